// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509keypair

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrNoSuitableAlgorithm is returned when no installed signature algorithm
	// fits the key algorithm.
	ErrNoSuitableAlgorithm = errors.New("x509keypair: no suitable signature algorithm")
	// ErrCrypto is returned when a test signature cannot be generated.
	ErrCrypto = errors.New("x509keypair: signature generation failed")
)

// Key algorithm family names.
const (
	RSA     = "RSA"
	EC      = "EC"
	Ed25519 = "Ed25519"
)

// SignatureAlgorithm names a "<digest>with<keyAlgorithm>" signature scheme.
type SignatureAlgorithm struct {
	Name string
	Hash crypto.Hash
}

var installed = []SignatureAlgorithm{
	{Name: "SHA256withRSA", Hash: crypto.SHA256},
	{Name: "SHA384withRSA", Hash: crypto.SHA384},
	{Name: "SHA512withRSA", Hash: crypto.SHA512},
	{Name: "SHA1withRSA", Hash: crypto.SHA1},
	{Name: "SHA384withECDSA", Hash: crypto.SHA384},
	{Name: "SHA256withECDSA", Hash: crypto.SHA256},
	{Name: "SHA512withECDSA", Hash: crypto.SHA512},
	{Name: "SHA1withECDSA", Hash: crypto.SHA1},
	{Name: "NONEwithEd25519"},
}

var (
	signatureNamePattern = regexp.MustCompile(`(?i)^(.+)with(.+)$`)
	preferredDigests     = map[string]bool{"SHA1": true, "SHA256": true}
)

// Installed returns the supported signature algorithms in lookup order.
func Installed() []SignatureAlgorithm {
	return append([]SignatureAlgorithm(nil), installed...)
}

// SignatureAlgorithmFor picks the signature algorithm for keyAlgorithm.
//
// Candidates are the installed algorithms whose key part starts with
// keyAlgorithm. The first candidate with a preferred digest (SHA1, SHA256)
// wins; otherwise the last candidate seen is used.
func SignatureAlgorithmFor(keyAlgorithm string) (SignatureAlgorithm, error) {
	var found *SignatureAlgorithm
	keyAlgorithm = strings.ToUpper(keyAlgorithm)
	for i := range installed {
		m := signatureNamePattern.FindStringSubmatch(installed[i].Name)
		if m == nil {
			continue
		}
		digest, suffix := strings.ToUpper(m[1]), strings.ToUpper(m[2])
		if !strings.HasPrefix(suffix, keyAlgorithm) {
			continue
		}
		found = &installed[i]
		if preferredDigests[digest] {
			break
		}
	}
	if found == nil {
		return SignatureAlgorithm{}, fmt.Errorf("%w for %s", ErrNoSuitableAlgorithm, keyAlgorithm)
	}
	return *found, nil
}

// KeyAlgorithm returns the algorithm family of a private or public key.
func KeyAlgorithm(key any) (string, bool) {
	switch key.(type) {
	case *rsa.PrivateKey, *rsa.PublicKey:
		return RSA, true
	case *ecdsa.PrivateKey, *ecdsa.PublicKey:
		return EC, true
	case ed25519.PrivateKey, ed25519.PublicKey, *ed25519.PrivateKey:
		return Ed25519, true
	}
	return "", false
}

func digest(alg SignatureAlgorithm, message []byte) []byte {
	if alg.Hash == 0 {
		return message
	}
	h := alg.Hash.New()
	h.Write(message)
	return h.Sum(nil)
}

// verify reports whether sig is a valid signature of message under pub.
func verify(alg SignatureAlgorithm, pub crypto.PublicKey, message, sig []byte) bool {
	switch pub := pub.(type) {
	case *rsa.PublicKey:
		return rsa.VerifyPKCS1v15(pub, alg.Hash, digest(alg, message), sig) == nil
	case *ecdsa.PublicKey:
		return ecdsa.VerifyASN1(pub, digest(alg, message), sig)
	case ed25519.PublicKey:
		return len(pub) == ed25519.PublicKeySize && ed25519.Verify(pub, message, sig)
	}
	return false
}
