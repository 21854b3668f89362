// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509store

import (
	"crypto"
	"crypto/x509"
	"time"

	x509certs "github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/certs"
)

// Validity describes a certificate's validity period relative to a point in time.
type Validity int

const (
	// Valid means the time lies within the validity period.
	Valid Validity = iota
	// Expired means the period ended before the time.
	Expired
	// NotYetValid means the period starts after the time.
	NotYetValid
)

func (v Validity) String() string {
	switch v {
	case Valid:
		return "valid"
	case Expired:
		return "expired"
	case NotYetValid:
		return "not yet valid"
	}
	return "unknown"
}

// Entry is one certificate identity of a [Store].
type Entry struct {
	alias   string
	subject string

	crt *x509.Certificate
	key crypto.Signer
	csr *x509.CertificateRequest
	crl *x509.RevocationList

	files    [4]bool // indexed by x509certs.ObjectType
	locked   bool
	matched  bool
	external bool

	issuer     *Entry
	issued     []*Entry
	revocation RevocationStatus
}

// Alias returns the entry's alias, or "" for an external placeholder.
func (e *Entry) Alias() string { return e.alias }

// Subject returns the subject DN in RFC 2253 form.
func (e *Entry) Subject() string { return e.subject }

// External reports whether the entry is a placeholder for an issuer that is
// not in the store.
func (e *Entry) External() bool { return e.external }

func (e *Entry) HasCRT() bool { return e.files[x509certs.CRT] }
func (e *Entry) HasKey() bool { return e.files[x509certs.KEY] }
func (e *Entry) HasCSR() bool { return e.files[x509certs.CSR] }
func (e *Entry) HasCRL() bool { return e.files[x509certs.CRL] }

// Locked reports whether the entry's private key is encrypted and no
// password was available to open it.
func (e *Entry) Locked() bool { return e.locked }

// CanIssue reports whether the entry holds a certificate and its matching
// private key. A locked key is assumed to match, since the store only pairs
// keys with certificates they match.
func (e *Entry) CanIssue() bool {
	if e.crt == nil || !e.HasKey() {
		return false
	}
	return e.locked || e.matched
}

// Certificate returns the entry's certificate or nil.
func (e *Entry) Certificate() *x509.Certificate { return e.crt }

// CSR returns the entry's certificate signing request or nil.
func (e *Entry) CSR() *x509.CertificateRequest { return e.csr }

// CRL returns the revocation list published by the entry or nil.
func (e *Entry) CRL() *x509.RevocationList { return e.crl }

// Validity returns the certificate's validity at the current time.
func (e *Entry) Validity() Validity { return e.ValidityAt(time.Now()) }

// ValidityAt returns the certificate's validity at t. Entries without a
// certificate are always [Valid].
func (e *Entry) ValidityAt(t time.Time) Validity {
	switch {
	case e.crt == nil:
		return Valid
	case t.Before(e.crt.NotBefore):
		return NotYetValid
	case t.After(e.crt.NotAfter):
		return Expired
	}
	return Valid
}

// Revocation returns the revocation status taken from the issuer's CRL.
func (e *Entry) Revocation() RevocationStatus { return e.revocation }

// Revoked reports whether the issuer's CRL lists the certificate.
func (e *Entry) Revoked() bool { return e.revocation.CRLStatus == StatusRevoked }

// Status summarizes revocation and validity, e.g. "valid" or "revoked".
func (e *Entry) Status() string {
	switch {
	case e.crt == nil:
		return "-"
	case e.Revoked():
		return "revoked"
	}
	return e.Validity().String()
}

// Flags lists the object types present, e.g. "CRT KEY".
func (e *Entry) Flags() []string {
	var flags []string
	for _, t := range x509certs.ObjectTypes() {
		if e.files[t] {
			flags = append(flags, t.String())
		}
	}
	return flags
}
