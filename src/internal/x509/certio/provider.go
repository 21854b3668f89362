// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package certio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/H0llyW00dzZ/x509-cert-manager/src/internal/helper/gc"
	x509certs "github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/certs"
)

// DefaultReadLimit is the maximum number of bytes buffered for one input.
const DefaultReadLimit int64 = 1 << 20

var (
	// ErrResourceLimitExceeded is returned when an input is larger than its read limit.
	ErrResourceLimitExceeded = errors.New("certio: resource limit exceeded")
	// ErrUnsupportedOperation is returned by writers asked for a write they cannot perform.
	ErrUnsupportedOperation = errors.New("certio: unsupported operation")
	// ErrPasswordCancelled is returned when a password callback returns no password.
	ErrPasswordCancelled = errors.New("certio: password entry cancelled")
	// ErrWrongPassword is passed to [PasswordCallback.RequeryPassword] after a failed attempt.
	ErrWrongPassword = errors.New("certio: wrong password")
	// ErrMalformed is returned for recognized input that cannot be decoded.
	ErrMalformed = errors.New("certio: malformed input")
)

// Provider describes one file format.
type Provider interface {
	// ProviderName returns the unique, case-sensitive provider name.
	ProviderName() string
	// FileType returns a human readable format label.
	FileType() string
	// FileExtensionPatterns returns glob patterns of file names this format
	// usually carries, most specific first.
	FileExtensionPatterns() []string
	// FileExtension suggests a file extension for saving objects of type t.
	FileExtension(t x509certs.ObjectType) string
}

// Reader decodes a file format.
//
// Both methods return a nil store and a nil error when the input is not in
// the reader's format.
type Reader interface {
	Provider
	ReadBinary(in *Input, pw PasswordCallback) (*x509certs.ObjectStore, error)
	ReadString(in *Input, pw PasswordCallback) (*x509certs.ObjectStore, error)
}

// Writer encodes a file format.
//
// A writer and a reader sharing a provider name read back what the other wrote.
type Writer interface {
	Provider
	// IsCharWriter reports whether the format is text.
	IsCharWriter() bool
	// IsEncryptionRequired reports whether unencrypted writes are refused.
	IsEncryptionRequired() bool
	WriteBinary(w io.Writer, store *x509certs.ObjectStore) error
	WriteEncryptedBinary(w io.Writer, store *x509certs.ObjectStore, pw PasswordCallback) error
	WriteString(w io.Writer, store *x509certs.ObjectStore) error
	WriteEncryptedString(w io.Writer, store *x509certs.ObjectStore, pw PasswordCallback) error
}

// PasswordCallback supplies passwords for encrypted resources.
//
// Returning nil cancels the operation. An empty, non-nil slice is the empty password.
type PasswordCallback interface {
	QueryPassword(resource string) []byte
	RequeryPassword(resource string, cause error) []byte
}

type staticPassword struct{ password []byte }

// StaticPassword answers the first query with password and cancels any requery.
func StaticPassword(password []byte) PasswordCallback { return staticPassword{password} }

func (s staticPassword) QueryPassword(string) []byte { return s.password }

func (staticPassword) RequeryPassword(string, error) []byte { return nil }

type noPassword struct{}

// NoPassword cancels every password request.
func NoPassword() PasswordCallback { return noPassword{} }

func (noPassword) QueryPassword(string) []byte { return nil }

func (noPassword) RequeryPassword(string, error) []byte { return nil }

// unlock calls try with passwords from pw until try succeeds or fails for a
// reason other than [ErrWrongPassword].
func unlock(resource string, pw PasswordCallback, try func(password []byte) error) error {
	password := pw.QueryPassword(resource)
	for {
		if password == nil {
			return fmt.Errorf("%w: %s", ErrPasswordCancelled, resource)
		}
		err := try(password)
		if err == nil || !errors.Is(err, ErrWrongPassword) {
			return err
		}
		password = pw.RequeryPassword(resource, err)
	}
}

// newPassword asks pw for the password of a resource being written.
func newPassword(resource string, pw PasswordCallback) ([]byte, error) {
	password := pw.QueryPassword(resource)
	if password == nil {
		return nil, fmt.Errorf("%w: %s", ErrPasswordCancelled, resource)
	}
	return password, nil
}

// Input is a named source of bytes for a [Reader].
//
// The source is buffered on first use, so one Input can be offered to
// several readers.
type Input struct {
	// Resource labels the input in password prompts and messages.
	Resource string
	// Limit is the maximum number of bytes buffered.
	Limit int64

	r      io.Reader
	data   []byte
	err    error
	loaded bool
}

// NewInput wraps r with the default read limit.
func NewInput(resource string, r io.Reader) *Input {
	return &Input{Resource: resource, Limit: DefaultReadLimit, r: r}
}

// BytesInput wraps data with the default read limit.
func BytesInput(resource string, data []byte) *Input {
	return NewInput(resource, bytes.NewReader(data))
}

// Bytes returns the buffered input.
//
// Returns:
//   - []byte: The input data, shared with other callers; do not modify
//   - error: [ErrResourceLimitExceeded] if the input exceeds Limit, or the read error
func (in *Input) Bytes() ([]byte, error) {
	if !in.loaded {
		in.loaded = true
		in.data, in.err = gc.ReadLimited(in.r, in.Limit)
		if errors.Is(in.err, gc.ErrLimitExceeded) {
			in.err = fmt.Errorf("%w: %s exceeds %d bytes", ErrResourceLimitExceeded, in.Resource, in.Limit)
		}
	}
	return in.data, in.err
}

// Name returns the base name of the resource.
func (in *Input) Name() string { return filepath.Base(in.Resource) }

// matchesPatterns reports whether name matches one of the glob patterns.
func matchesPatterns(name string, patterns []string) bool {
	name = strings.ToLower(name)
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}

// objectAlias returns the alias used for o in multi-entry formats.
func objectAlias(o x509certs.Object) string {
	if o.Alias() != "" {
		return o.Alias()
	}
	return strings.ToLower(o.Type().String())
}
