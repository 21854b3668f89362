// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package certio

import (
	"fmt"
	"io"
	"os"
	"strings"

	x509certs "github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/certs"
	"github.com/H0llyW00dzZ/x509-cert-manager/src/logger"
)

// ProviderMap indexes providers by name in registration order.
type ProviderMap[T Provider] struct {
	providers []T
	byName    map[string]T
	log       logger.Logger
}

// NewProviderMap creates an empty map. A nil log discards warnings.
func NewProviderMap[T Provider](log logger.Logger) *ProviderMap[T] {
	if log == nil {
		log = logger.Nop()
	}
	return &ProviderMap[T]{byName: make(map[string]T), log: log}
}

// Register adds p. A provider whose name is already taken is ignored with a
// warning and Register returns false.
func (m *ProviderMap[T]) Register(p T) bool {
	name := p.ProviderName()
	if _, ok := m.byName[name]; ok {
		m.log.Warnf("ignoring duplicate provider %q", name)
		return false
	}
	m.byName[name] = p
	m.providers = append(m.providers, p)
	return true
}

// Get returns the provider registered under name.
func (m *ProviderMap[T]) Get(name string) (T, bool) {
	p, ok := m.byName[name]
	return p, ok
}

// Providers returns the providers in registration order.
func (m *ProviderMap[T]) Providers() []T { return append([]T(nil), m.providers...) }

// Names returns the provider names in registration order.
func (m *ProviderMap[T]) Names() []string {
	names := make([]string, 0, len(m.providers))
	for _, p := range m.providers {
		names = append(names, p.ProviderName())
	}
	return names
}

// Result is the outcome of a registry read. A zero Result means no reader
// recognized the input.
type Result struct {
	store    *x509certs.ObjectStore
	provider string
}

// Found reports whether a reader recognized the input.
func (r Result) Found() bool { return r.store != nil }

// Store returns the objects read, or nil.
func (r Result) Store() *x509certs.ObjectStore { return r.store }

// Provider returns the name of the reader that recognized the input.
func (r Result) Provider() string { return r.provider }

// Registry holds the readers and writers available to the process.
type Registry struct {
	Readers *ProviderMap[Reader]
	Writers *ProviderMap[Writer]
	// ReadLimit bounds every input read through the registry.
	ReadLimit int64

	log logger.Logger
}

// NewRegistry creates an empty registry. A nil log discards warnings.
func NewRegistry(log logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{
		Readers:   NewProviderMap[Reader](log),
		Writers:   NewProviderMap[Writer](log),
		ReadLimit: DefaultReadLimit,
		log:       log,
	}
}

// DefaultRegistry creates a registry with the PEM, DER, PKCS12 and JKS providers.
func DefaultRegistry(log logger.Logger) *Registry {
	r := NewRegistry(log)
	for _, p := range []Provider{NewPEM(log), NewDER(log), NewPKCS12(log), NewJKS(log)} {
		r.Register(p)
	}
	return r
}

// Register adds p to the reader and writer maps it qualifies for.
func (r *Registry) Register(p Provider) {
	if rd, ok := p.(Reader); ok {
		r.Readers.Register(rd)
	}
	if w, ok := p.(Writer); ok {
		r.Writers.Register(w)
	}
}

// ReadFile reads the file at path. Readers whose extension patterns match
// the file name are tried first.
func (r *Registry) ReadFile(path string, pw PasswordCallback) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	in := NewInput(path, f)
	in.Limit = r.ReadLimit
	return r.read(in, pw, r.orderedReaders(in.Name()), Reader.ReadBinary)
}

// ReadBytes offers data to every reader as binary input.
func (r *Registry) ReadBytes(resource string, data []byte, pw PasswordCallback) (Result, error) {
	in := BytesInput(resource, data)
	in.Limit = r.ReadLimit
	return r.read(in, pw, r.orderedReaders(in.Name()), Reader.ReadBinary)
}

// ReadText offers text to every reader as character input.
func (r *Registry) ReadText(resource, text string, pw PasswordCallback) (Result, error) {
	in := NewInput(resource, strings.NewReader(text))
	in.Limit = r.ReadLimit
	return r.read(in, pw, r.Readers.Providers(), Reader.ReadString)
}

func (r *Registry) orderedReaders(name string) []Reader {
	var preferred, rest []Reader
	for _, rd := range r.Readers.Providers() {
		if matchesPatterns(name, rd.FileExtensionPatterns()) {
			preferred = append(preferred, rd)
		} else {
			rest = append(rest, rd)
		}
	}
	return append(preferred, rest...)
}

func (r *Registry) read(in *Input, pw PasswordCallback, readers []Reader,
	read func(Reader, *Input, PasswordCallback) (*x509certs.ObjectStore, error)) (Result, error) {
	if _, err := in.Bytes(); err != nil {
		return Result{}, err
	}
	for _, rd := range readers {
		store, err := read(rd, in, pw)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", rd.ProviderName(), err)
		}
		if store != nil {
			return Result{store: store, provider: rd.ProviderName()}, nil
		}
	}
	r.log.Printf("no reader recognized %s", in.Resource)
	return Result{}, nil
}

// Write serializes store with the writer registered under name.
//
// Parameters:
//   - w: Destination
//   - name: Writer provider name
//   - store: Objects to write
//   - encrypted: Whether to encrypt; pw supplies the new password
//   - pw: Password callback, unused for unencrypted writes
//
// Returns:
//   - error: An error for unknown writers, [ErrUnsupportedOperation] when the writer
//     refuses an unencrypted write, or the writer's error
func (r *Registry) Write(w io.Writer, name string, store *x509certs.ObjectStore, encrypted bool, pw PasswordCallback) error {
	wr, ok := r.Writers.Get(name)
	if !ok {
		return fmt.Errorf("certio: unknown writer %q", name)
	}
	switch {
	case encrypted && wr.IsCharWriter():
		return wr.WriteEncryptedString(w, store, pw)
	case encrypted:
		return wr.WriteEncryptedBinary(w, store, pw)
	case wr.IsCharWriter():
		return wr.WriteString(w, store)
	default:
		return wr.WriteBinary(w, store)
	}
}
