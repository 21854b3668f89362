// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package certio

import (
	"crypto"
	"crypto/x509"
	"encoding/asn1"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
	"software.sslmate.com/src/go-pkcs12"

	x509certs "github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/certs"
	x509keypair "github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/keypair"
	"github.com/H0llyW00dzZ/x509-cert-manager/src/logger"
)

var (
	oidDataContentType       = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 1}
	oidSignedDataContentType = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 2}
)

// PKCS12 reads and writes PKCS#12 (PFX) files holding certificates and at
// most one private key.
type PKCS12 struct{ log logger.Logger }

// NewPKCS12 creates the PKCS#12 provider. A nil log discards warnings.
func NewPKCS12(log logger.Logger) *PKCS12 {
	if log == nil {
		log = logger.Nop()
	}
	return &PKCS12{log: log}
}

// ProviderName returns "PKCS12".
func (*PKCS12) ProviderName() string { return "PKCS12" }

// FileType returns the format label.
func (*PKCS12) FileType() string { return "PKCS#12 file" }

// FileExtensionPatterns returns the PKCS#12 file name patterns.
func (*PKCS12) FileExtensionPatterns() []string { return []string{"*.p12", "*.pfx"} }

// FileExtension returns ".p12" for every object type.
func (*PKCS12) FileExtension(x509certs.ObjectType) string { return ".p12" }

// isPKCS12 checks for the PFX outer shape:
//
//	PFX ::= SEQUENCE { version INTEGER (3), authSafe ContentInfo, ... }
func isPKCS12(data []byte) bool {
	s := cryptobyte.String(data)
	var pfx, authSafe cryptobyte.String
	var version int
	var contentType asn1.ObjectIdentifier
	if !s.ReadASN1(&pfx, cbasn1.SEQUENCE) ||
		!pfx.ReadASN1Integer(&version) || version != 3 ||
		!pfx.ReadASN1(&authSafe, cbasn1.SEQUENCE) ||
		!authSafe.ReadASN1ObjectIdentifier(&contentType) {
		return false
	}
	return contentType.Equal(oidDataContentType) || contentType.Equal(oidSignedDataContentType)
}

// ReadBinary decodes a PFX. An unprotected file is read without asking
// for a password.
func (p *PKCS12) ReadBinary(in *Input, pw PasswordCallback) (*x509certs.ObjectStore, error) {
	data, err := in.Bytes()
	if err != nil {
		return nil, err
	}
	if !isPKCS12(data) {
		return nil, nil
	}

	var store *x509certs.ObjectStore
	try := func(password []byte) error {
		s, err := p.decode(data, string(password))
		store = s
		return err
	}
	if err := try([]byte{}); err == nil {
		return store, nil
	} else if !errors.Is(err, ErrWrongPassword) {
		return nil, err
	}
	if err := unlock(in.Resource, pw, try); err != nil {
		return nil, err
	}
	return store, nil
}

func (p *PKCS12) decode(data []byte, password string) (*x509certs.ObjectStore, error) {
	store := x509certs.NewObjectStore(p.log)

	key, cert, cas, err := pkcs12.DecodeChain(data, password)
	if err == nil {
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("%w: unsupported private key type %T", ErrMalformed, key)
		}
		store.AddCRT("", cert)
		store.AddPrivateKey("", signer)
		for _, ca := range cas {
			store.AddCRT("", ca)
		}
		return store, nil
	}
	if errors.Is(err, pkcs12.ErrIncorrectPassword) {
		return nil, fmt.Errorf("%w: %v", ErrWrongPassword, err)
	}

	// No usable key bag; the file may be a trust store.
	certs, terr := pkcs12.DecodeTrustStore(data, password)
	if terr != nil {
		if errors.Is(terr, pkcs12.ErrIncorrectPassword) {
			return nil, fmt.Errorf("%w: %v", ErrWrongPassword, terr)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for _, c := range certs {
		store.AddCRT("", c)
	}
	return store, nil
}

// ReadString never recognizes character input.
func (*PKCS12) ReadString(*Input, PasswordCallback) (*x509certs.ObjectStore, error) {
	return nil, nil
}

// IsCharWriter returns false.
func (*PKCS12) IsCharWriter() bool { return false }

// IsEncryptionRequired returns false.
func (*PKCS12) IsEncryptionRequired() bool { return false }

// WriteBinary writes an unprotected PFX.
func (p *PKCS12) WriteBinary(w io.Writer, store *x509certs.ObjectStore) error {
	return p.write(w, store, pkcs12.Passwordless, "")
}

// WriteEncryptedBinary writes a PFX protected by the password from pw.
func (p *PKCS12) WriteEncryptedBinary(w io.Writer, store *x509certs.ObjectStore, pw PasswordCallback) error {
	password, err := newPassword(resourceName(w), pw)
	if err != nil {
		return err
	}
	return p.write(w, store, pkcs12.Modern, string(password))
}

func (p *PKCS12) write(w io.Writer, store *x509certs.ObjectStore, enc *pkcs12.Encoder, password string) error {
	var (
		key   crypto.Signer
		certs []*x509.Certificate
	)
	for _, o := range store.Entries() {
		switch o.Type() {
		case x509certs.CRT:
			certs = append(certs, o.Certificate())
		case x509certs.KEY:
			if key != nil {
				return fmt.Errorf("%w: PKCS#12 output holds one private key", ErrUnsupportedOperation)
			}
			key = o.Key().Private
		default:
			p.log.Warnf("skipping %s: not supported by PKCS#12", o)
		}
	}

	var (
		data []byte
		err  error
	)
	if key == nil {
		data, err = enc.EncodeTrustStore(certs, password)
	} else {
		leaf, cas := splitLeaf(key, certs)
		if leaf == nil {
			return fmt.Errorf("%w: no certificate for the private key", ErrUnsupportedOperation)
		}
		data, err = enc.Encode(key, leaf, cas, password)
	}
	if err != nil {
		return fmt.Errorf("certio: encode PKCS#12: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// splitLeaf returns the certificate matching key and the remaining certificates.
func splitLeaf(key crypto.Signer, certs []*x509.Certificate) (*x509.Certificate, []*x509.Certificate) {
	for i, c := range certs {
		if ok, _ := x509keypair.Matches(key, c.PublicKey); ok {
			rest := make([]*x509.Certificate, 0, len(certs)-1)
			rest = append(rest, certs[:i]...)
			return c, append(rest, certs[i+1:]...)
		}
	}
	return nil, certs
}

// WriteString returns [ErrUnsupportedOperation].
func (*PKCS12) WriteString(io.Writer, *x509certs.ObjectStore) error { return ErrUnsupportedOperation }

// WriteEncryptedString returns [ErrUnsupportedOperation].
func (*PKCS12) WriteEncryptedString(io.Writer, *x509certs.ObjectStore, PasswordCallback) error {
	return ErrUnsupportedOperation
}
