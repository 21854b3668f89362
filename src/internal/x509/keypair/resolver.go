// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509keypair

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
)

var testMessage = []byte("x509-cert-manager key pair resolver test message")

// Pair is a private key together with its public key.
type Pair struct {
	Private crypto.Signer
	Public  crypto.PublicKey
}

type privateKey struct {
	key       crypto.Signer
	algorithm string
	signature []byte
}

type equaler interface {
	Equal(crypto.PublicKey) bool
}

// Resolver matches private keys to public keys.
//
// A Resolver is not safe for concurrent use.
type Resolver struct {
	privateKeys []privateKey
	publicKeys  []crypto.PublicKey
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver { return &Resolver{} }

// AddPrivateKey signs the test message with key and keeps the signature.
// Adding a key equal to one already added is a no-op.
//
// Returns:
//   - error: [ErrNoSuitableAlgorithm] if key has no usable signature algorithm
//     or [ErrCrypto] if signing fails
func (r *Resolver) AddPrivateKey(key crypto.PrivateKey) error {
	_, err := r.privateKey(key)
	return err
}

func (r *Resolver) privateKey(key crypto.PrivateKey) (*privateKey, error) {
	if k, ok := key.(*ed25519.PrivateKey); ok && k != nil {
		key = *k
	}
	algorithm, ok := KeyAlgorithm(key)
	signer, isSigner := key.(crypto.Signer)
	if !ok || !isSigner {
		return nil, fmt.Errorf("%w for key type %T", ErrNoSuitableAlgorithm, key)
	}
	sigAlg, err := SignatureAlgorithmFor(algorithm)
	if err != nil {
		return nil, err
	}

	for i := range r.privateKeys {
		if e, ok := r.privateKeys[i].key.(interface{ Equal(crypto.PrivateKey) bool }); ok && e.Equal(key) {
			return &r.privateKeys[i], nil
		}
	}

	sig, err := signer.Sign(rand.Reader, digest(sigAlg, testMessage), sigAlg.Hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	r.privateKeys = append(r.privateKeys, privateKey{key: signer, algorithm: algorithm, signature: sig})
	return &r.privateKeys[len(r.privateKeys)-1], nil
}

// Match reports whether priv and pub form a key pair. priv joins the
// candidate set, so its test signature is computed at most once.
func (r *Resolver) Match(priv crypto.PrivateKey, pub crypto.PublicKey) (bool, error) {
	entry, err := r.privateKey(priv)
	if err != nil {
		return false, err
	}
	return r.verify(entry, pub), nil
}

func (r *Resolver) verify(priv *privateKey, pub crypto.PublicKey) bool {
	pubAlgorithm, ok := KeyAlgorithm(pub)
	if !ok || pubAlgorithm != priv.algorithm {
		return false
	}
	sigAlg, err := SignatureAlgorithmFor(priv.algorithm)
	if err != nil {
		return false
	}
	return verify(sigAlg, pub, testMessage, priv.signature)
}

// AddPublicKey adds a public key. Adding a key equal to one already added is a no-op.
func (r *Resolver) AddPublicKey(key crypto.PublicKey) {
	for _, existing := range r.publicKeys {
		if e, ok := existing.(equaler); ok && e.Equal(key) {
			return
		}
	}
	r.publicKeys = append(r.publicKeys, key)
}

// Resolve returns every (private, public) combination whose test signature verifies.
// Keys of different algorithm families are never compared and a failed
// verification only means the keys do not belong together.
func (r *Resolver) Resolve() []Pair {
	var pairs []Pair
	for _, pub := range r.publicKeys {
		for i := range r.privateKeys {
			if r.verify(&r.privateKeys[i], pub) {
				pairs = append(pairs, Pair{Private: r.privateKeys[i].key, Public: pub})
			}
		}
	}
	return pairs
}

// Matches reports whether priv and pub form a key pair.
func Matches(priv crypto.PrivateKey, pub crypto.PublicKey) (bool, error) {
	return NewResolver().Match(priv, pub)
}
