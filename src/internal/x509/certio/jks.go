// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package certio

import (
	"bytes"
	"crypto/x509"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pavlo-v-chernykh/keystore-go/v4"

	x509certs "github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/certs"
	x509keypair "github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/keypair"
	"github.com/H0llyW00dzZ/x509-cert-manager/src/logger"
)

const (
	jksMagic        = 0xFEEDFEED
	jksCertificate  = "X.509"
	jksMinKeyLength = 6
)

// JKS reads and writes Java key stores. Writing always encrypts.
type JKS struct{ log logger.Logger }

// NewJKS creates the JKS provider. A nil log discards warnings.
func NewJKS(log logger.Logger) *JKS {
	if log == nil {
		log = logger.Nop()
	}
	return &JKS{log: log}
}

// ProviderName returns "JKS".
func (*JKS) ProviderName() string { return "JKS" }

// FileType returns the format label.
func (*JKS) FileType() string { return "Java key store" }

// FileExtensionPatterns returns the JKS file name patterns.
func (*JKS) FileExtensionPatterns() []string { return []string{"*.jks", "*.keystore"} }

// FileExtension returns ".jks" for every object type.
func (*JKS) FileExtension(x509certs.ObjectType) string { return ".jks" }

// clone keeps keystore-go from touching the caller's password slice.
func clone(password []byte) []byte { return append([]byte(nil), password...) }

// ReadBinary loads a key store.
//
// The store password comes from pw. Each private key entry is first
// unlocked with the store password and, if that fails, with a password
// queried for the entry alias; entries whose password query is cancelled are
// skipped with a warning.
func (j *JKS) ReadBinary(in *Input, pw PasswordCallback) (*x509certs.ObjectStore, error) {
	data, err := in.Bytes()
	if err != nil {
		return nil, err
	}
	if len(data) < 4 || binary.BigEndian.Uint32(data) != jksMagic {
		return nil, nil
	}

	var (
		ks            keystore.KeyStore
		storePassword []byte
	)
	err = unlock(in.Resource, pw, func(password []byte) error {
		ks = keystore.New(keystore.WithOrderedAliases())
		if err := ks.Load(bytes.NewReader(data), clone(password)); err != nil {
			return fmt.Errorf("%w: %v", ErrWrongPassword, err)
		}
		storePassword = password
		return nil
	})
	if err != nil {
		return nil, err
	}

	store := x509certs.NewObjectStore(j.log)
	for _, alias := range ks.Aliases() {
		switch {
		case ks.IsTrustedCertificateEntry(alias):
			entry, err := ks.GetTrustedCertificateEntry(alias)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, alias, err)
			}
			if cert := j.certificate(alias, entry.Certificate); cert != nil {
				store.AddCRT(alias, cert)
			}
		case ks.IsPrivateKeyEntry(alias):
			if err := j.readPrivateKeyEntry(store, ks, alias, storePassword, pw); err != nil {
				return nil, err
			}
		default:
			j.log.Warnf("ignoring unsupported key store entry %q", alias)
		}
	}
	return store, nil
}

func (j *JKS) readPrivateKeyEntry(store *x509certs.ObjectStore, ks keystore.KeyStore, alias string,
	storePassword []byte, pw PasswordCallback) error {
	entry, err := ks.GetPrivateKeyEntry(alias, clone(storePassword))
	if err != nil {
		err = unlock(alias, pw, func(password []byte) error {
			e, err := ks.GetPrivateKeyEntry(alias, clone(password))
			if err != nil {
				return fmt.Errorf("%w: %v", ErrWrongPassword, err)
			}
			entry = e
			return nil
		})
	}
	if errors.Is(err, ErrPasswordCancelled) {
		j.log.Warnf("skipping key store entry %q: no password", alias)
		return nil
	}
	if err != nil {
		return err
	}

	key, err := x509certs.ParsePrivateKey(entry.PrivateKey)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, alias, err)
	}
	store.AddPrivateKey(alias, key)
	for i, c := range entry.CertificateChain {
		cert := j.certificate(alias, c)
		if cert == nil {
			continue
		}
		if i == 0 {
			store.AddCRT(alias, cert)
		} else {
			store.AddCRT("", cert)
		}
	}
	return nil
}

func (j *JKS) certificate(alias string, c keystore.Certificate) *x509.Certificate {
	if c.Type != jksCertificate {
		j.log.Warnf("ignoring certificate of entry %q with type %q", alias, c.Type)
		return nil
	}
	cert, err := x509.ParseCertificate(c.Content)
	if err != nil {
		j.log.Warnf("ignoring certificate of entry %q: %v", alias, err)
		return nil
	}
	return cert
}

// ReadString never recognizes character input.
func (*JKS) ReadString(*Input, PasswordCallback) (*x509certs.ObjectStore, error) { return nil, nil }

// IsCharWriter returns false.
func (*JKS) IsCharWriter() bool { return false }

// IsEncryptionRequired returns true.
func (*JKS) IsEncryptionRequired() bool { return true }

// WriteBinary returns [ErrUnsupportedOperation]; key stores are always encrypted.
func (*JKS) WriteBinary(io.Writer, *x509certs.ObjectStore) error { return ErrUnsupportedOperation }

// WriteEncryptedBinary writes a key store protected by the password from pw.
//
// Every private key becomes a key entry whose chain starts with its
// certificate. All other certificates become trusted certificate entries.
func (j *JKS) WriteEncryptedBinary(w io.Writer, store *x509certs.ObjectStore, pw PasswordCallback) error {
	password, err := newPassword(resourceName(w), pw)
	if err != nil {
		return err
	}
	if len(password) < jksMinKeyLength {
		return fmt.Errorf("certio: key store password needs at least %d characters", jksMinKeyLength)
	}

	entries := store.Entries()
	chained := make(map[int]bool)
	ks := keystore.New(keystore.WithOrderedAliases())
	now := time.Now()

	for _, o := range entries {
		if o.Type() != x509certs.KEY {
			continue
		}
		der, err := x509.MarshalPKCS8PrivateKey(o.Key().Private)
		if err != nil {
			return fmt.Errorf("certio: encode key %s: %w", o.Alias(), err)
		}
		entry := keystore.PrivateKeyEntry{CreationTime: now, PrivateKey: der}
		for i, c := range entries {
			if c.Type() != x509certs.CRT || chained[i] {
				continue
			}
			if ok, _ := x509keypair.Matches(o.Key().Private, c.Certificate().PublicKey); ok {
				chained[i] = true
				entry.CertificateChain = []keystore.Certificate{{Type: jksCertificate, Content: c.Certificate().Raw}}
				break
			}
		}
		if err := ks.SetPrivateKeyEntry(uniqueAlias(ks, objectAlias(o)), entry, clone(password)); err != nil {
			return fmt.Errorf("certio: key store entry %s: %w", o.Alias(), err)
		}
	}

	for i, o := range entries {
		switch {
		case o.Type() == x509certs.CRT && !chained[i]:
			err := ks.SetTrustedCertificateEntry(uniqueAlias(ks, objectAlias(o)), keystore.TrustedCertificateEntry{
				CreationTime: now,
				Certificate:  keystore.Certificate{Type: jksCertificate, Content: o.Certificate().Raw},
			})
			if err != nil {
				return fmt.Errorf("certio: key store entry %s: %w", o.Alias(), err)
			}
		case o.Type() == x509certs.CSR || o.Type() == x509certs.CRL:
			j.log.Warnf("skipping %s: not supported by key stores", o)
		}
	}

	return ks.Store(w, clone(password))
}

// uniqueAlias appends a counter to alias while it is taken in ks.
func uniqueAlias(ks keystore.KeyStore, alias string) string {
	candidate := alias
	for n := 2; ks.IsPrivateKeyEntry(candidate) || ks.IsTrustedCertificateEntry(candidate); n++ {
		candidate = fmt.Sprintf("%s-%d", alias, n)
	}
	return candidate
}

// WriteString returns [ErrUnsupportedOperation].
func (*JKS) WriteString(io.Writer, *x509certs.ObjectStore) error { return ErrUnsupportedOperation }

// WriteEncryptedString returns [ErrUnsupportedOperation].
func (*JKS) WriteEncryptedString(io.Writer, *x509certs.ObjectStore, PasswordCallback) error {
	return ErrUnsupportedOperation
}
