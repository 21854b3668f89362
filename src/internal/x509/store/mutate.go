// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509store

import (
	"bytes"
	"crypto"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/certio"
	x509certs "github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/certs"
	x509keypair "github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/keypair"
)

// unsafeAliasChars matches the characters replaced when deriving an alias
// from a certificate name.
var unsafeAliasChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// pending collects the objects of one entry during an import.
type pending struct {
	entry  *Entry // existing entry, or a new one not yet in the store
	exists bool
	added  [4]bool
	hint   string
}

// Import adds the objects of objs to the store.
//
// Certificates already in the store complete their existing entry. A key is
// placed with the certificate it matches, a CSR with the key or certificate
// sharing its public key, and a CRL with the certificate that signed it.
// Objects left over start new entries.
//
// New entries are named after aliasHint, or after the certificate or
// request common name when aliasHint is empty. Names are made unique by
// appending -2, -3 and so on.
//
// Parameters:
//   - objs: Objects to import, usually the result of a registry read
//   - aliasHint: Preferred alias for new entries, may be empty
//
// Returns:
//   - []string: Aliases of the entries created or extended
//   - error: [ErrPathViolation] for an aliasHint outside the store root, or a write error
func (s *Store) Import(objs *x509certs.ObjectStore, aliasHint string) ([]string, error) {
	if aliasHint != "" {
		if err := s.checkAlias(aliasHint); err != nil {
			return nil, err
		}
	}

	var groups []*pending
	entries := s.Entries()
	newGroup := func(hint string) *pending {
		g := &pending{entry: &Entry{}, hint: hint}
		groups = append(groups, g)
		return g
	}
	existing := func(e *Entry) *pending {
		for _, g := range groups {
			if g.entry == e {
				return g
			}
		}
		g := &pending{entry: e, exists: true}
		groups = append(groups, g)
		return g
	}

	var keys, csrs, crls []x509certs.Object
	for _, o := range objs.Entries() {
		switch o.Type() {
		case x509certs.CRT:
			crt := o.Certificate()
			var g *pending
			for _, c := range groups {
				if c.entry.crt != nil && c.entry.crt.Equal(crt) {
					g = c
					break
				}
			}
			if g == nil {
				for _, e := range entries {
					if e.crt != nil && e.crt.Equal(crt) {
						g = existing(e)
						break
					}
				}
			}
			if g == nil {
				g = newGroup(commonName(crt.Subject.CommonName, o.Alias()))
			}
			if g.entry.crt == nil {
				g.entry.crt, g.added[x509certs.CRT] = crt, true
			}
		case x509certs.KEY:
			keys = append(keys, o)
		case x509certs.CSR:
			csrs = append(csrs, o)
		case x509certs.CRL:
			crls = append(crls, o)
		}
	}

	for _, o := range keys {
		key := o.Key().Private
		g := s.placeKey(groups, entries, key, existing)
		if g == nil {
			g = newGroup(o.Alias())
		}
		g.entry.key, g.added[x509certs.KEY] = key, true
	}

	for _, o := range csrs {
		csr := o.CSR()
		g := placeByPublicKey(groups, csr.PublicKey)
		if g == nil {
			if e := placeEntryByPublicKey(entries, csr.PublicKey); e != nil {
				g = existing(e)
			}
		}
		if g == nil {
			g = newGroup(commonName(csr.Subject.CommonName, o.Alias()))
		}
		g.entry.csr, g.added[x509certs.CSR] = csr, true
	}

	for _, o := range crls {
		crl := o.CRL()
		var g *pending
		for _, c := range groups {
			if c.entry.crt != nil && bytes.Equal(c.entry.crt.RawSubject, crl.RawIssuer) && crl.CheckSignatureFrom(c.entry.crt) == nil {
				g = c
				break
			}
		}
		if g == nil {
			for _, e := range entries {
				if e.crt != nil && bytes.Equal(e.crt.RawSubject, crl.RawIssuer) && crl.CheckSignatureFrom(e.crt) == nil {
					g = existing(e)
					break
				}
			}
		}
		if g == nil {
			g = newGroup(o.Alias())
		}
		g.entry.crl, g.added[x509certs.CRL] = crl, true
	}

	return s.commit(groups, aliasHint)
}

// placeKey finds the group, or existing entry without a key, whose
// certificate matches key.
func (s *Store) placeKey(groups []*pending, entries []*Entry, key crypto.Signer, existing func(*Entry) *pending) *pending {
	matches := func(e *Entry) bool {
		if e.crt == nil || e.key != nil || e.HasKey() {
			return false
		}
		ok, err := x509keypair.Matches(key, e.crt.PublicKey)
		if err != nil {
			s.log.Warnf("cannot match key for %q: %v", e.alias, err)
		}
		return ok
	}
	for _, g := range groups {
		if matches(g.entry) {
			return g
		}
	}
	for _, e := range entries {
		if matches(e) {
			return existing(e)
		}
	}
	return nil
}

// placeByPublicKey returns the first group without a CSR whose certificate
// or key carries pub.
func placeByPublicKey(groups []*pending, pub crypto.PublicKey) *pending {
	for _, g := range groups {
		if g.entry.csr == nil && carries(g.entry, pub) {
			return g
		}
	}
	return nil
}

// placeEntryByPublicKey is placeByPublicKey for entries already in the store.
func placeEntryByPublicKey(entries []*Entry, pub crypto.PublicKey) *Entry {
	for _, e := range entries {
		if !e.HasCSR() && carries(e, pub) {
			return e
		}
	}
	return nil
}

func carries(e *Entry, pub crypto.PublicKey) bool {
	if e.crt != nil && equalKeys(e.crt.PublicKey, pub) {
		return true
	}
	return e.key != nil && equalKeys(e.key.Public(), pub)
}

func equalKeys(a, b crypto.PublicKey) bool {
	k, ok := a.(interface{ Equal(crypto.PublicKey) bool })
	return ok && k.Equal(b)
}

// commonName derives an alias from a common name.
func commonName(cn, fallback string) string {
	alias := strings.Trim(unsafeAliasChars.ReplaceAllString(cn, "-"), "-.")
	if alias == "" {
		return fallback
	}
	return strings.ToLower(alias)
}

// commit names the new groups and writes every added object.
func (s *Store) commit(groups []*pending, aliasHint string) ([]string, error) {
	taken := make(map[string]bool)
	var aliases []string
	for _, g := range groups {
		if !g.exists {
			hint := aliasHint
			if hint == "" {
				hint = g.hint
			}
			g.entry.alias = s.uniqueAlias(hint, taken)
			taken[g.entry.alias] = true
		}
		aliases = append(aliases, g.entry.alias)
	}

	var errs []error
	for _, g := range groups {
		e := g.entry
		for _, o := range objects(e) {
			if !g.added[o.Type()] {
				continue
			}
			if err := s.writeObject(e.alias, o); err != nil {
				errs = append(errs, err)
				continue
			}
			e.files[o.Type()] = true
		}
		if !g.exists && e.files != [4]bool{} {
			s.entries[e.alias] = e
		}
		s.refresh(e)
	}
	s.link()
	return aliases, errors.Join(errs...)
}

// writeObject writes o, encrypting keys when the store has a password callback.
func (s *Store) writeObject(alias string, o x509certs.Object) error {
	return s.writeFile(alias, o, o.Type() == x509certs.KEY && s.encryptKeys, s.password)
}

// uniqueAlias returns base, or base-N for the smallest N >= 2 not in use.
func (s *Store) uniqueAlias(base string, taken map[string]bool) string {
	if s.checkAlias(base) != nil {
		base = commonName(base, "entry")
	}
	free := func(a string) bool {
		if _, ok := s.entries[a]; ok || taken[a] {
			return false
		}
		for _, t := range x509certs.ObjectTypes() {
			if _, err := os.Lstat(s.path(a, t)); err == nil {
				return false
			}
		}
		return true
	}
	if free(base) {
		return base
	}
	for n := 2; ; n++ {
		if a := base + "-" + strconv.Itoa(n); free(a) {
			return a
		}
	}
}

// Rename changes the alias of an entry and renames its files.
//
// newAlias must name files directly under the store root. On any error the
// store is left unchanged.
//
// Returns:
//   - error: [ErrPathViolation], [ErrUnknownEntry], [ErrAliasExists] or a
//     file system error
func (s *Store) Rename(alias, newAlias string) error {
	if err := s.checkAlias(newAlias); err != nil {
		return err
	}
	e, ok := s.entries[alias]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntry, alias)
	}
	if alias == newAlias {
		return nil
	}
	if _, ok := s.entries[newAlias]; ok {
		return fmt.Errorf("%w: %q", ErrAliasExists, newAlias)
	}
	for _, t := range x509certs.ObjectTypes() {
		if _, err := os.Lstat(s.path(newAlias, t)); err == nil {
			return fmt.Errorf("%w: %q", ErrAliasExists, newAlias)
		}
	}

	var done []x509certs.ObjectType
	for _, t := range x509certs.ObjectTypes() {
		if !e.files[t] {
			continue
		}
		if err := os.Rename(s.path(alias, t), s.path(newAlias, t)); err != nil {
			for _, d := range done {
				if rerr := os.Rename(s.path(newAlias, d), s.path(alias, d)); rerr != nil {
					s.log.Warnf("cannot restore %q: %v", s.path(alias, d), rerr)
				}
			}
			return fmt.Errorf("x509store: rename %q: %w", alias, err)
		}
		done = append(done, t)
	}

	delete(s.entries, alias)
	e.alias = newAlias
	s.entries[newAlias] = e
	s.link()
	return nil
}

// Delete removes an entry and its files.
func (s *Store) Delete(alias string) error {
	e, ok := s.entries[alias]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntry, alias)
	}
	var errs []error
	for _, t := range x509certs.ObjectTypes() {
		if !e.files[t] {
			continue
		}
		if err := os.Remove(s.path(alias, t)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		e.files[t] = false
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("x509store: delete %q: %w", alias, err)
	}
	delete(s.entries, alias)
	s.link()
	return nil
}

// ChangePassword re-encrypts the private key of an entry.
//
// Parameters:
//   - alias: Entry holding the key
//   - oldPassword: Current password; nil for an unencrypted key
//   - newPassword: New password; nil writes the key unencrypted
//
// Returns:
//   - error: [ErrUnknownEntry], [ErrNoKey], [certio.ErrWrongPassword] when
//     oldPassword does not open the key, or a write error
func (s *Store) ChangePassword(alias string, oldPassword, newPassword []byte) error {
	e, ok := s.entries[alias]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEntry, alias)
	}
	if !e.HasKey() {
		return fmt.Errorf("%w: %q", ErrNoKey, alias)
	}

	key, err := s.readKey(e, passwordOrNone(oldPassword))
	if err != nil {
		if oldPassword != nil && errors.Is(err, certio.ErrPasswordCancelled) {
			return fmt.Errorf("%w: %s", certio.ErrWrongPassword, alias)
		}
		return err
	}

	o, err := x509certs.NewObject(alias, x509certs.KEY, x509certs.KeyPair{Private: key, Public: key.Public()})
	if err != nil {
		return err
	}
	if err := s.writeFile(alias, o, newPassword != nil, passwordOrNone(newPassword)); err != nil {
		return err
	}
	e.key, e.locked = key, false
	s.refresh(e)
	s.link()
	return nil
}

func passwordOrNone(password []byte) certio.PasswordCallback {
	if password == nil {
		return certio.NoPassword()
	}
	return certio.StaticPassword(password)
}

// readKey reads the key file of e with pw.
func (s *Store) readKey(e *Entry, pw certio.PasswordCallback) (crypto.Signer, error) {
	res, err := s.registry.ReadFile(s.path(e.alias, x509certs.KEY), pw)
	if err != nil {
		return nil, err
	}
	if res.Found() {
		if keys := res.Store().Keys(); len(keys) > 0 {
			return keys[0].Private, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoKey, e.alias)
}

// Export writes entries with the writer registered under writerName.
//
// Parameters:
//   - w: Destination
//   - aliases: Entries to export; none exports every entry
//   - writerName: Provider name, e.g. "PEM" or "PKCS12"
//   - encrypted: Whether the output is encrypted
//   - pw: Supplies the output password
//
// Returns:
//   - error: [ErrUnknownEntry], an error for locked keys, or the writer's error
func (s *Store) Export(w io.Writer, aliases []string, writerName string, encrypted bool, pw certio.PasswordCallback) error {
	selected := s.Entries()
	if len(aliases) > 0 {
		selected = selected[:0:0]
		for _, a := range aliases {
			e, ok := s.entries[a]
			if !ok {
				return fmt.Errorf("%w: %q", ErrUnknownEntry, a)
			}
			selected = append(selected, e)
		}
	}

	out := x509certs.NewObjectStore(s.log)
	for _, e := range selected {
		if e.locked {
			key, err := s.readKey(e, s.password)
			if err != nil {
				return fmt.Errorf("x509store: export %q: %w", e.alias, err)
			}
			e.key, e.locked = key, false
			s.refresh(e)
		}
		if e.crt != nil {
			out.AddCRT(e.alias, e.crt)
		}
		if e.key != nil {
			out.AddKey(e.alias, x509certs.KeyPair{Private: e.key, Public: e.key.Public()})
		}
		if e.csr != nil {
			out.AddCSR(e.alias, e.csr)
		}
		if e.crl != nil {
			out.AddCRL(e.alias, e.crl)
		}
	}
	return s.registry.Write(w, writerName, out, encrypted, pw)
}
