// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509store

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/certio"
	x509certs "github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/certs"
	x509keypair "github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/keypair"
	"github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/x500"
	"github.com/H0llyW00dzZ/x509-cert-manager/src/logger"
)

var (
	// ErrPathViolation indicates an alias that does not name a file directly
	// under the store root.
	ErrPathViolation = errors.New("x509store: alias escapes store root")

	// ErrUnknownEntry indicates an alias that is not in the store.
	ErrUnknownEntry = errors.New("x509store: unknown entry")

	// ErrAliasExists indicates an alias that is already taken.
	ErrAliasExists = errors.New("x509store: alias already exists")

	// ErrNoKey indicates an operation that needs a private key on an entry without one.
	ErrNoKey = errors.New("x509store: entry has no key")
)

// storageProvider is the provider every store file is written with.
const storageProvider = "PEM"

// Store is a directory of certificate entries.
type Store struct {
	root     string
	registry *certio.Registry
	dict     *x500.Dictionary
	password certio.PasswordCallback
	log      logger.Logger

	encryptKeys bool

	entries  map[string]*Entry
	external []*Entry
}

// Option configures a [Store].
type Option func(*Store)

// WithPassword sets the callback used to open encrypted keys and to encrypt
// keys written by [Store.Import]. Without it keys are written unencrypted
// and encrypted keys stay locked.
func WithPassword(pw certio.PasswordCallback) Option {
	return func(s *Store) {
		if pw != nil {
			s.password, s.encryptKeys = pw, true
		}
	}
}

// Open scans the store rooted at root, creating the directory if needed.
//
// Parameters:
//   - root: Store directory
//   - registry: Providers used to read and write entry files; nil selects
//     [certio.DefaultRegistry]
//   - dict: Dictionary used to render subject names; nil selects the bundled table
//   - log: Destination of warnings about unreadable files; nil discards them
//
// Returns:
//   - *Store: The opened store
//   - error: Error if root cannot be created or listed
func Open(root string, registry *certio.Registry, dict *x500.Dictionary, log logger.Logger, opts ...Option) (*Store, error) {
	if log == nil {
		log = logger.Nop()
	}
	if registry == nil {
		registry = certio.DefaultRegistry(log)
	}
	if dict == nil {
		var err error
		if dict, err = x500.Default("", log); err != nil {
			return nil, err
		}
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, fmt.Errorf("x509store: create root: %w", err)
	}

	s := &Store{
		root:     abs,
		registry: registry,
		dict:     dict,
		password: certio.NoPassword(),
		log:      log,
		entries:  make(map[string]*Entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.scan(); err != nil {
		return nil, err
	}
	s.link()
	return s, nil
}

// Root returns the absolute store directory.
func (s *Store) Root() string { return s.root }

func (s *Store) scan() error {
	files, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("x509store: list root: %w", err)
	}
	for _, f := range files {
		if !f.Type().IsRegular() {
			continue
		}
		ext := filepath.Ext(f.Name())
		typ, ok := objectType(ext)
		if !ok {
			continue
		}
		alias := strings.TrimSuffix(f.Name(), ext)
		if alias == "" {
			continue
		}
		e := s.entries[alias]
		if e == nil {
			e = &Entry{alias: alias}
			s.entries[alias] = e
		}
		e.files[typ] = true
		s.load(e, typ)
	}
	for _, e := range s.entries {
		s.refresh(e)
	}
	return nil
}

func objectType(ext string) (x509certs.ObjectType, bool) {
	for _, t := range x509certs.ObjectTypes() {
		if t.FileExtension() == ext {
			return t, true
		}
	}
	return 0, false
}

// load reads one file of e. Unreadable files are logged and leave the
// corresponding field empty.
func (s *Store) load(e *Entry, typ x509certs.ObjectType) {
	path := s.path(e.alias, typ)
	res, err := s.registry.ReadFile(path, s.password)
	if err != nil {
		if typ == x509certs.KEY && errors.Is(err, certio.ErrPasswordCancelled) {
			e.locked = true
			return
		}
		s.log.Warnf("ignoring unreadable file %q: %v", path, err)
		return
	}
	if !res.Found() {
		s.log.Warnf("ignoring unrecognized file %q", path)
		return
	}

	for _, o := range res.Store().Entries() {
		if o.Type() != typ {
			continue
		}
		switch typ {
		case x509certs.CRT:
			e.crt = o.Certificate()
		case x509certs.KEY:
			e.key, e.locked = o.Key().Private, false
		case x509certs.CSR:
			e.csr = o.CSR()
		case x509certs.CRL:
			e.crl = o.CRL()
		}
		return
	}
	s.log.Warnf("ignoring file %q without %s object", path, typ)
}

// refresh recomputes the fields derived from e's objects.
func (s *Store) refresh(e *Entry) {
	e.matched = false
	if e.crt != nil && e.key != nil {
		ok, err := x509keypair.Matches(e.key, e.crt.PublicKey)
		if err != nil {
			s.log.Warnf("cannot match key %q: %v", e.alias, err)
		}
		e.matched = ok
	}

	switch {
	case e.crt != nil:
		e.subject = s.dn(e.crt.RawSubject, e.crt.Subject.String())
	case e.csr != nil:
		e.subject = s.dn(e.csr.RawSubject, e.csr.Subject.String())
	case e.crl != nil:
		e.subject = s.dn(e.crl.RawIssuer, e.crl.Issuer.String())
	default:
		e.subject = ""
	}
}

// dn renders a DER name with the store's dictionary.
func (s *Store) dn(der []byte, fallback string) string {
	name, err := s.dict.DERToString(der)
	if err != nil {
		return fallback
	}
	return name
}

func (s *Store) path(alias string, typ x509certs.ObjectType) string {
	return filepath.Join(s.root, alias+typ.FileExtension())
}

// checkAlias ensures alias names a file directly under the store root.
func (s *Store) checkAlias(alias string) error {
	if alias == "" {
		return fmt.Errorf("%w: empty alias", ErrPathViolation)
	}
	p := filepath.Join(s.root, alias)
	if filepath.Dir(p) != s.root || filepath.Base(p) != alias {
		return fmt.Errorf("%w: %q", ErrPathViolation, alias)
	}
	return nil
}

// Entries returns the entries sorted by alias. External placeholders are
// not included.
func (s *Store) Entries() []*Entry {
	aliases := slices.Sorted(maps.Keys(s.entries))
	entries := make([]*Entry, 0, len(aliases))
	for _, a := range aliases {
		entries = append(entries, s.entries[a])
	}
	return entries
}

// Entry returns the entry named alias.
func (s *Store) Entry(alias string) (*Entry, bool) {
	e, ok := s.entries[alias]
	return e, ok
}

// Roots returns the entries without an issuer followed by the external
// placeholders.
func (s *Store) Roots() []*Entry {
	var roots []*Entry
	for _, e := range s.Entries() {
		if e.issuer == nil {
			roots = append(roots, e)
		}
	}
	return append(roots, s.external...)
}

// Issued returns the entries issued by e, sorted by alias.
func (s *Store) Issued(e *Entry) []*Entry { return slices.Clone(e.issued) }

// Issuer returns the issuer of e, which may be an external placeholder.
func (s *Store) Issuer(e *Entry) (*Entry, bool) { return e.issuer, e.issuer != nil }

// writeFile atomically replaces the file of alias holding o.
func (s *Store) writeFile(alias string, o x509certs.Object, encrypted bool, pw certio.PasswordCallback) error {
	f, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	err = s.registry.Write(f, storageProvider, x509certs.Wrap(o, s.log), encrypted, pw)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("x509store: write %s%s: %w", alias, o.Type().FileExtension(), err)
	}
	return os.Rename(tmp, s.path(alias, o.Type()))
}

// objects returns the loaded objects of e in storage order.
func objects(e *Entry) []x509certs.Object {
	var objs []x509certs.Object
	add := func(typ x509certs.ObjectType, v any) {
		o, err := x509certs.NewObject(e.alias, typ, v)
		if err == nil {
			objs = append(objs, o)
		}
	}
	if e.crt != nil {
		add(x509certs.CRT, e.crt)
	}
	if e.key != nil {
		add(x509certs.KEY, x509certs.KeyPair{Private: e.key, Public: e.key.Public()})
	}
	if e.csr != nil {
		add(x509certs.CSR, e.csr)
	}
	if e.crl != nil {
		add(x509certs.CRL, e.crl)
	}
	return objs
}
