// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package certio

import (
	"crypto/x509"
	"io"

	"golang.org/x/crypto/cryptobyte"

	"github.com/H0llyW00dzZ/x509-cert-manager/src/internal/helper/gc"
	x509certs "github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/certs"
	"github.com/H0llyW00dzZ/x509-cert-manager/src/logger"
)

// DER reads and writes concatenated DER objects. Private keys are read but
// never written since DER has no encryption.
type DER struct{ log logger.Logger }

// NewDER creates the DER provider. A nil log discards warnings.
func NewDER(log logger.Logger) *DER {
	if log == nil {
		log = logger.Nop()
	}
	return &DER{log: log}
}

// ProviderName returns "DER".
func (*DER) ProviderName() string { return "DER" }

// FileType returns the format label.
func (*DER) FileType() string { return "DER encoded file" }

// FileExtensionPatterns returns the DER file name patterns.
func (*DER) FileExtensionPatterns() []string {
	return []string{"*.der", "*.cer", "*.p7b", "*.p7c"}
}

// FileExtension returns the per-type extension.
func (*DER) FileExtension(t x509certs.ObjectType) string {
	if ext := t.FileExtension(); ext != "" {
		return ext
	}
	return ".der"
}

// ReadBinary splits in into top level DER elements and decodes each one.
// Input that is not DER, or holds no decodable object, is not recognized.
func (d *DER) ReadBinary(in *Input, _ PasswordCallback) (*x509certs.ObjectStore, error) {
	data, err := in.Bytes()
	if err != nil {
		return nil, err
	}

	s := cryptobyte.String(data)
	store := x509certs.NewObjectStore(d.log)
	recognized := 0
	for !s.Empty() {
		var element cryptobyte.String
		if !s.ReadAnyASN1Element(&element, nil) {
			return nil, nil
		}
		if d.decode(store, element) {
			recognized++
		} else {
			d.log.Warnf("ignoring unrecognized DER object in %s", in.Resource)
		}
	}
	if recognized == 0 {
		return nil, nil
	}
	return store, nil
}

func (d *DER) decode(store *x509certs.ObjectStore, der []byte) bool {
	if cert, err := x509.ParseCertificate(der); err == nil {
		store.AddCRT("", cert)
		return true
	}
	if csr, err := x509.ParseCertificateRequest(der); err == nil {
		store.AddCSR("", csr)
		return true
	}
	if crl, err := x509.ParseRevocationList(der); err == nil {
		store.AddCRL("", crl)
		return true
	}
	if key, err := x509certs.ParsePrivateKey(der); err == nil {
		store.AddPrivateKey("", key)
		return true
	}
	if key, err := x509certs.ParsePublicKey(der); err == nil {
		store.AddPublicKey("", key)
		return true
	}
	if certs, err := x509certs.DecodePKCS7(der); err == nil {
		for _, cert := range certs {
			store.AddCRT("", cert)
		}
		return true
	}
	return false
}

// ReadString never recognizes character input.
func (*DER) ReadString(*Input, PasswordCallback) (*x509certs.ObjectStore, error) { return nil, nil }

// IsCharWriter returns false.
func (*DER) IsCharWriter() bool { return false }

// IsEncryptionRequired returns false.
func (*DER) IsEncryptionRequired() bool { return false }

// WriteBinary writes certificates, requests and revocation lists; keys are skipped.
func (d *DER) WriteBinary(w io.Writer, store *x509certs.ObjectStore) error {
	buf := gc.Default.Get()
	defer func() {
		buf.Reset()
		gc.Default.Put(buf)
	}()

	for _, o := range store.Entries() {
		if o.Type() == x509certs.KEY {
			d.log.Warnf("skipping key %s: DER output is unencrypted", o.Alias())
			continue
		}
		der, err := o.Encoded()
		if err != nil {
			return err
		}
		buf.Write(der)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteEncryptedBinary asks pw for a password and then writes like
// [DER.WriteBinary]; DER carries no encrypted objects.
func (d *DER) WriteEncryptedBinary(w io.Writer, store *x509certs.ObjectStore, pw PasswordCallback) error {
	if _, err := newPassword(resourceName(w), pw); err != nil {
		return err
	}
	return d.WriteBinary(w, store)
}

// WriteString returns [ErrUnsupportedOperation].
func (*DER) WriteString(io.Writer, *x509certs.ObjectStore) error { return ErrUnsupportedOperation }

// WriteEncryptedString returns [ErrUnsupportedOperation].
func (*DER) WriteEncryptedString(io.Writer, *x509certs.ObjectStore, PasswordCallback) error {
	return ErrUnsupportedOperation
}
