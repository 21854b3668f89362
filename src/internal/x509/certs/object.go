// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509certs

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
)

// ErrParseKey indicates that key material could not be parsed.
var ErrParseKey = errors.New("x509certs: failed to parse key")

// ObjectType tags the payload of an [Object].
type ObjectType int

const (
	// CRT is an X.509 certificate.
	CRT ObjectType = iota
	// KEY is a key pair.
	KEY
	// CSR is a PKCS#10 certificate signing request.
	CSR
	// CRL is a certificate revocation list.
	CRL
)

var objectTypeNames = [...]string{"CRT", "KEY", "CSR", "CRL"}

func (t ObjectType) String() string {
	if t < 0 || int(t) >= len(objectTypeNames) {
		return fmt.Sprintf("ObjectType(%d)", int(t))
	}
	return objectTypeNames[t]
}

// FileExtension returns the conventional file extension (with leading dot)
// for objects of this type.
func (t ObjectType) FileExtension() string {
	switch t {
	case CRT:
		return ".crt"
	case KEY:
		return ".key"
	case CSR:
		return ".csr"
	case CRL:
		return ".crl"
	}
	return ""
}

// ObjectTypes lists every object type in storage order.
func ObjectTypes() []ObjectType { return []ObjectType{CRT, KEY, CSR, CRL} }

// KeyPair is a private key and its public key. Either half may be nil while
// an [ObjectStore] is being filled.
type KeyPair struct {
	Private crypto.Signer
	Public  crypto.PublicKey
}

// Complete reports whether both halves are present.
func (k KeyPair) Complete() bool { return k.Private != nil && k.Public != nil }

// Object is one typed item read from or written to a certificate file.
type Object struct {
	alias string
	typ   ObjectType
	value any
}

// NewObject wraps value, which must match typ:
// *x509.Certificate for CRT, KeyPair for KEY, *x509.CertificateRequest for
// CSR and *x509.RevocationList for CRL.
func NewObject(alias string, typ ObjectType, value any) (Object, error) {
	ok := false
	switch typ {
	case CRT:
		_, ok = value.(*x509.Certificate)
	case KEY:
		_, ok = value.(KeyPair)
	case CSR:
		_, ok = value.(*x509.CertificateRequest)
	case CRL:
		_, ok = value.(*x509.RevocationList)
	}
	if !ok {
		return Object{}, fmt.Errorf("x509certs: %T is not a %s value", value, typ)
	}
	return Object{alias: alias, typ: typ, value: value}, nil
}

// Alias returns the object's alias.
func (o Object) Alias() string { return o.alias }

// Type returns the object's type.
func (o Object) Type() ObjectType { return o.typ }

func (o Object) String() string { return o.alias + ":" + o.typ.String() }

// Certificate returns the certificate of a CRT object or nil.
func (o Object) Certificate() *x509.Certificate {
	c, _ := o.value.(*x509.Certificate)
	return c
}

// Key returns the key pair of a KEY object or the zero KeyPair.
func (o Object) Key() KeyPair {
	k, _ := o.value.(KeyPair)
	return k
}

// CSR returns the request of a CSR object or nil.
func (o Object) CSR() *x509.CertificateRequest {
	r, _ := o.value.(*x509.CertificateRequest)
	return r
}

// CRL returns the revocation list of a CRL object or nil.
func (o Object) CRL() *x509.RevocationList {
	l, _ := o.value.(*x509.RevocationList)
	return l
}

// PublicKey returns the public key carried by a CRT, KEY or CSR object.
func (o Object) PublicKey() crypto.PublicKey {
	switch v := o.value.(type) {
	case *x509.Certificate:
		return v.PublicKey
	case KeyPair:
		return v.Public
	case *x509.CertificateRequest:
		return v.PublicKey
	}
	return nil
}

// Encoded returns the DER encoding of the object. Key pairs encode their
// private half as PKCS#8, or their public half as PKIX if there is no
// private half.
func (o Object) Encoded() ([]byte, error) {
	switch v := o.value.(type) {
	case *x509.Certificate:
		return v.Raw, nil
	case *x509.CertificateRequest:
		return v.Raw, nil
	case *x509.RevocationList:
		return v.Raw, nil
	case KeyPair:
		if v.Private != nil {
			return x509.MarshalPKCS8PrivateKey(v.Private)
		}
		return x509.MarshalPKIXPublicKey(v.Public)
	}
	return nil, fmt.Errorf("x509certs: cannot encode %s", o)
}

// ParsePrivateKey parses a PKCS#8, PKCS#1 or SEC 1 private key.
func ParsePrivateKey(der []byte) (crypto.Signer, error) {
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		if signer, ok := key.(crypto.Signer); ok {
			return signer, nil
		}
		return nil, fmt.Errorf("%w: unsupported private key type %T", ErrParseKey, key)
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	return nil, ErrParseKey
}

// ParsePublicKey parses a PKIX or PKCS#1 public key.
func ParsePublicKey(der []byte) (crypto.PublicKey, error) {
	if key, err := x509.ParsePKIXPublicKey(der); err == nil {
		switch key.(type) {
		case *rsa.PublicKey, *ecdsa.PublicKey, ed25519.PublicKey:
			return key, nil
		}
		return nil, fmt.Errorf("%w: unsupported public key type %T", ErrParseKey, key)
	}
	if key, err := x509.ParsePKCS1PublicKey(der); err == nil {
		return key, nil
	}
	return nil, ErrParseKey
}
