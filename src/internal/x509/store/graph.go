// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509store

import (
	"bytes"
	"crypto/x509"
	"slices"
	"strings"
)

// IsSelfSigned checks if a certificate is self-signed.
//
// It verifies the certificate's signature with its own public key, without
// the CA constraints [x509.Certificate.CheckSignatureFrom] applies.
func IsSelfSigned(cert *x509.Certificate) bool {
	if !bytes.Equal(cert.RawIssuer, cert.RawSubject) {
		return false
	}
	return cert.CheckSignature(cert.SignatureAlgorithm, cert.RawTBSCertificate, cert.Signature) == nil
}

// link recomputes issuers, issued lists, revocation states and external
// placeholders for every entry.
func (s *Store) link() {
	entries := s.Entries()
	for _, e := range entries {
		e.issuer, e.issued = nil, nil
		e.revocation = RevocationStatus{CRLStatus: StatusNotAvailable}
	}

	external := make(map[string]*Entry)
	for _, e := range entries {
		if e.crt == nil || IsSelfSigned(e.crt) {
			continue
		}

		candidates := s.candidates(entries, e)
		if len(candidates) == 0 {
			key := string(e.crt.RawIssuer)
			p, ok := external[key]
			if !ok {
				p = &Entry{external: true, subject: s.dn(e.crt.RawIssuer, e.crt.Issuer.String())}
				external[key] = p
			}
			e.issuer = p
			p.issued = append(p.issued, e)
			continue
		}

		if issuer := findIssuerForCertificate(e.crt, candidates); issuer != nil {
			e.issuer = issuer
			issuer.issued = append(issuer.issued, e)
			e.revocation = checkCRLStatus(e.crt, issuer)
		}
	}

	s.external = make([]*Entry, 0, len(external))
	for _, p := range external {
		s.external = append(s.external, p)
	}
	slices.SortFunc(s.external, func(a, b *Entry) int { return strings.Compare(a.subject, b.subject) })
}

// candidates returns the entries, other than e, whose certificate subject
// equals the issuer of e's certificate.
func (s *Store) candidates(entries []*Entry, e *Entry) []*Entry {
	var out []*Entry
	for _, c := range entries {
		if c != e && c.crt != nil && bytes.Equal(c.crt.RawSubject, e.crt.RawIssuer) {
			out = append(out, c)
		}
	}
	return out
}

// findIssuerForCertificate picks the issuer of cert among candidates with a
// matching subject name.
//
// Candidates whose certificate does not verify cert's signature are
// discarded. If several remain, only those holding their matching private
// key are kept.
//
// Returns:
//   - *Entry: The only remaining candidate, or nil if none or more than one remain
func findIssuerForCertificate(cert *x509.Certificate, candidates []*Entry) *Entry {
	var verified []*Entry
	for _, c := range candidates {
		if err := cert.CheckSignatureFrom(c.crt); err == nil {
			verified = append(verified, c)
		}
	}
	switch len(verified) {
	case 0:
		return nil
	case 1:
		return verified[0]
	}

	var matched *Entry
	for _, c := range verified {
		if !c.CanIssue() {
			continue
		}
		if matched != nil {
			return nil
		}
		matched = c
	}
	return matched
}
