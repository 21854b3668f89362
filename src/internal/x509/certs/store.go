// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509certs

import (
	"crypto"
	"crypto/x509"
	"fmt"
	"strings"

	x509keypair "github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/keypair"
	"github.com/H0llyW00dzZ/x509-cert-manager/src/logger"
)

// ObjectStore is the ordered result of one read operation.
//
// Objects keep their insertion order and duplicates are allowed. Adding an
// empty alias assigns the next generated alias for the type (crt1, key1, ...).
//
// Private and public key halves are merged into one KEY object whenever the
// key-pair resolver matches them. KEY objects that end up without a private
// key are dropped from [ObjectStore.Entries] with a warning; KEY objects
// without a public key take it from the private key.
//
// An ObjectStore is not safe for concurrent use.
type ObjectStore struct {
	entries  []Object
	counters [len(objectTypeNames)]int
	resolver *x509keypair.Resolver
	log      logger.Logger
}

// NewObjectStore creates an empty store. A nil log discards warnings.
func NewObjectStore(log logger.Logger) *ObjectStore {
	if log == nil {
		log = logger.Nop()
	}
	return &ObjectStore{resolver: x509keypair.NewResolver(), log: log}
}

// Wrap creates a store holding o only.
func Wrap(o Object, log logger.Logger) *ObjectStore {
	s := NewObjectStore(log)
	s.entries = append(s.entries, o)
	return s
}

func (s *ObjectStore) alias(alias string, typ ObjectType) string {
	if alias != "" {
		return alias
	}
	s.counters[typ]++
	return fmt.Sprintf("%s%d", strings.ToLower(typ.String()), s.counters[typ])
}

// AddCRT adds a certificate and completes any KEY object still missing
// the certificate's public key.
func (s *ObjectStore) AddCRT(alias string, crt *x509.Certificate) {
	s.entries = append(s.entries, Object{alias: s.alias(alias, CRT), typ: CRT, value: crt})
	s.mergePublicKey("", crt.PublicKey, true)
}

// AddKey adds a key pair as is.
func (s *ObjectStore) AddKey(alias string, key KeyPair) {
	s.entries = append(s.entries, Object{alias: s.alias(alias, KEY), typ: KEY, value: key})
}

// AddCSR adds a signing request and completes any KEY object still missing
// the request's public key.
func (s *ObjectStore) AddCSR(alias string, csr *x509.CertificateRequest) {
	s.entries = append(s.entries, Object{alias: s.alias(alias, CSR), typ: CSR, value: csr})
	s.mergePublicKey("", csr.PublicKey, true)
}

// AddCRL adds a revocation list.
func (s *ObjectStore) AddCRL(alias string, crl *x509.RevocationList) {
	s.entries = append(s.entries, Object{alias: s.alias(alias, CRL), typ: CRL, value: crl})
}

// AddPrivateKey adds a private key.
//
// The key is merged into the first KEY object that lacks a private key and
// matches it. Otherwise the public key of the first matching CRT or CSR
// object completes a new KEY object. Without any match a private-only KEY
// object is added.
func (s *ObjectStore) AddPrivateKey(alias string, key crypto.Signer) {
	for i, e := range s.entries {
		if e.typ != KEY {
			continue
		}
		pair := e.Key()
		if pair.Private == nil && s.match(alias, key, pair.Public) {
			s.entries[i].value = KeyPair{Private: key, Public: pair.Public}
			return
		}
	}

	var public crypto.PublicKey
	for _, e := range s.entries {
		if e.typ != CRT && e.typ != CSR {
			continue
		}
		if pub := e.PublicKey(); pub != nil && s.match(alias, key, pub) {
			public = pub
			break
		}
	}
	s.AddKey(alias, KeyPair{Private: key, Public: public})
}

// AddPublicKey adds a public key, merging it into the first KEY object that
// lacks a public key and matches it.
func (s *ObjectStore) AddPublicKey(alias string, key crypto.PublicKey) {
	s.mergePublicKey(alias, key, false)
}

func (s *ObjectStore) mergePublicKey(alias string, key crypto.PublicKey, mergeOnly bool) {
	for i, e := range s.entries {
		if e.typ != KEY {
			continue
		}
		pair := e.Key()
		if pair.Public == nil && pair.Private != nil && s.match(e.alias, pair.Private, key) {
			s.entries[i].value = KeyPair{Private: pair.Private, Public: key}
			return
		}
	}
	if !mergeOnly {
		s.AddKey(alias, KeyPair{Public: key})
	}
}

func (s *ObjectStore) match(alias string, priv crypto.Signer, pub crypto.PublicKey) bool {
	ok, err := s.resolver.Match(priv, pub)
	if err != nil {
		s.log.Warnf("cannot match key %q: %v", alias, err)
		return false
	}
	return ok
}

// Entries returns the complete objects in insertion order.
func (s *ObjectStore) Entries() []Object {
	entries := make([]Object, 0, len(s.entries))
	for _, e := range s.entries {
		if e.typ == KEY {
			pair := e.Key()
			if pair.Private == nil {
				s.log.Warnf("ignoring incomplete key %q", e.alias)
				continue
			}
			if pair.Public == nil {
				e.value = KeyPair{Private: pair.Private, Public: pair.Private.Public()}
			}
		}
		entries = append(entries, e)
	}
	return entries
}

// Len returns the number of complete objects.
func (s *ObjectStore) Len() int {
	n := 0
	for _, e := range s.entries {
		if e.typ != KEY || e.Key().Private != nil {
			n++
		}
	}
	return n
}

// Certificates returns the certificates in insertion order.
func (s *ObjectStore) Certificates() []*x509.Certificate {
	var certs []*x509.Certificate
	for _, e := range s.entries {
		if e.typ == CRT {
			certs = append(certs, e.Certificate())
		}
	}
	return certs
}

// Keys returns the complete key pairs in insertion order.
func (s *ObjectStore) Keys() []KeyPair {
	var keys []KeyPair
	for _, e := range s.Entries() {
		if e.typ == KEY {
			keys = append(keys, e.Key())
		}
	}
	return keys
}

// Append adds all entries of other, keeping their aliases.
func (s *ObjectStore) Append(other *ObjectStore) {
	s.entries = append(s.entries, other.Entries()...)
}
