// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package certio

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"

	"github.com/youmark/pkcs8"

	"github.com/H0llyW00dzZ/x509-cert-manager/src/internal/helper/gc"
	x509certs "github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/certs"
	"github.com/H0llyW00dzZ/x509-cert-manager/src/logger"
)

// PEM block types.
const (
	blockCertificate         = "CERTIFICATE"
	blockPrivateKey          = "PRIVATE KEY"
	blockRSAPrivateKey       = "RSA PRIVATE KEY"
	blockECPrivateKey        = "EC PRIVATE KEY"
	blockEncryptedPrivateKey = "ENCRYPTED PRIVATE KEY"
	blockPublicKey           = "PUBLIC KEY"
	blockRSAPublicKey        = "RSA PUBLIC KEY"
	blockCertificateRequest  = "CERTIFICATE REQUEST"
	blockNewCertRequest      = "NEW CERTIFICATE REQUEST"
	blockCRL                 = "X509 CRL"
	blockPKCS7               = "PKCS7"
)

// PEM reads and writes PEM encoded files. It is a character format with
// optional encryption of private keys.
type PEM struct{ log logger.Logger }

// NewPEM creates the PEM provider. A nil log discards warnings.
func NewPEM(log logger.Logger) *PEM {
	if log == nil {
		log = logger.Nop()
	}
	return &PEM{log: log}
}

// ProviderName returns "PEM".
func (*PEM) ProviderName() string { return "PEM" }

// FileType returns the format label.
func (*PEM) FileType() string { return "PEM encoded file" }

// FileExtensionPatterns returns the PEM file name patterns.
func (*PEM) FileExtensionPatterns() []string {
	return []string{"*.pem", "*.crt", "*.key", "*.csr", "*.crl"}
}

// FileExtension returns the per-type extension, e.g. ".crt" for certificates.
func (*PEM) FileExtension(t x509certs.ObjectType) string {
	if ext := t.FileExtension(); ext != "" {
		return ext
	}
	return ".pem"
}

// ReadBinary decodes every PEM block of in.
func (p *PEM) ReadBinary(in *Input, pw PasswordCallback) (*x509certs.ObjectStore, error) {
	return p.read(in, pw)
}

// ReadString decodes every PEM block of in.
func (p *PEM) ReadString(in *Input, pw PasswordCallback) (*x509certs.ObjectStore, error) {
	return p.read(in, pw)
}

func (p *PEM) read(in *Input, pw PasswordCallback) (*x509certs.ObjectStore, error) {
	data, err := in.Bytes()
	if err != nil {
		return nil, err
	}

	var store *x509certs.ObjectStore
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if store == nil {
			store = x509certs.NewObjectStore(p.log)
		}
		if err := p.decodeBlock(store, in.Resource, block, pw); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func (p *PEM) decodeBlock(store *x509certs.ObjectStore, resource string, block *pem.Block, pw PasswordCallback) error {
	switch block.Type {
	case blockCertificate:
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformed, block.Type, err)
		}
		store.AddCRT("", cert)
	case blockPrivateKey, blockRSAPrivateKey, blockECPrivateKey:
		key, err := p.decodePrivateKey(resource, block, pw)
		if err != nil {
			return err
		}
		store.AddPrivateKey("", key)
	case blockEncryptedPrivateKey:
		var key crypto.Signer
		err := unlock(resource, pw, func(password []byte) error {
			k, err := pkcs8.ParsePKCS8PrivateKey(block.Bytes, password)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrWrongPassword, err)
			}
			signer, ok := k.(crypto.Signer)
			if !ok {
				return fmt.Errorf("%w: unsupported private key type %T", ErrMalformed, k)
			}
			key = signer
			return nil
		})
		if err != nil {
			return err
		}
		store.AddPrivateKey("", key)
	case blockPublicKey, blockRSAPublicKey:
		key, err := x509certs.ParsePublicKey(block.Bytes)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		store.AddPublicKey("", key)
	case blockCertificateRequest, blockNewCertRequest:
		csr, err := x509.ParseCertificateRequest(block.Bytes)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformed, block.Type, err)
		}
		store.AddCSR("", csr)
	case blockCRL:
		crl, err := x509.ParseRevocationList(block.Bytes)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformed, block.Type, err)
		}
		store.AddCRL("", crl)
	case blockPKCS7:
		certs, err := x509certs.DecodePKCS7(block.Bytes)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		for _, cert := range certs {
			store.AddCRT("", cert)
		}
	default:
		p.log.Warnf("ignoring unrecognized PEM block %q in %s", block.Type, resource)
	}
	return nil
}

// decodePrivateKey handles plain and legacy Proc-Type encrypted key blocks.
// The legacy format is read only; writes always use PKCS#8.
func (p *PEM) decodePrivateKey(resource string, block *pem.Block, pw PasswordCallback) (crypto.Signer, error) {
	if !x509.IsEncryptedPEMBlock(block) {
		key, err := x509certs.ParsePrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return key, nil
	}

	var key crypto.Signer
	err := unlock(resource, pw, func(password []byte) error {
		der, err := x509.DecryptPEMBlock(block, password)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrWrongPassword, err)
		}
		if key, err = x509certs.ParsePrivateKey(der); err != nil {
			return fmt.Errorf("%w: %v", ErrWrongPassword, err)
		}
		return nil
	})
	return key, err
}

// IsCharWriter returns true.
func (*PEM) IsCharWriter() bool { return true }

// IsEncryptionRequired returns false.
func (*PEM) IsEncryptionRequired() bool { return false }

// WriteBinary writes the objects as PEM blocks.
func (p *PEM) WriteBinary(w io.Writer, store *x509certs.ObjectStore) error {
	return p.write(w, store, nil)
}

// WriteEncryptedBinary writes the objects as PEM blocks with encrypted private keys.
func (p *PEM) WriteEncryptedBinary(w io.Writer, store *x509certs.ObjectStore, pw PasswordCallback) error {
	return p.write(w, store, pw)
}

// WriteString writes the objects as PEM blocks.
func (p *PEM) WriteString(w io.Writer, store *x509certs.ObjectStore) error {
	return p.write(w, store, nil)
}

// WriteEncryptedString writes the objects as PEM blocks with encrypted private keys.
// Only private keys are encrypted, using PKCS#8 with the password from pw.
func (p *PEM) WriteEncryptedString(w io.Writer, store *x509certs.ObjectStore, pw PasswordCallback) error {
	return p.write(w, store, pw)
}

func (p *PEM) write(w io.Writer, store *x509certs.ObjectStore, pw PasswordCallback) error {
	buf := gc.Default.Get()
	defer func() {
		buf.Reset()
		gc.Default.Put(buf)
	}()

	var password []byte
	for _, o := range store.Entries() {
		block := &pem.Block{}
		switch o.Type() {
		case x509certs.CRT:
			block.Type, block.Bytes = blockCertificate, o.Certificate().Raw
		case x509certs.CSR:
			block.Type, block.Bytes = blockCertificateRequest, o.CSR().Raw
		case x509certs.CRL:
			block.Type, block.Bytes = blockCRL, o.CRL().Raw
		case x509certs.KEY:
			if pw == nil {
				der, err := x509.MarshalPKCS8PrivateKey(o.Key().Private)
				if err != nil {
					return fmt.Errorf("certio: encode key %s: %w", o.Alias(), err)
				}
				block.Type, block.Bytes = blockPrivateKey, der
				break
			}
			if password == nil {
				var err error
				if password, err = newPassword(resourceName(w), pw); err != nil {
					return err
				}
			}
			der, err := pkcs8.MarshalPrivateKey(o.Key().Private, password, nil)
			if err != nil {
				return fmt.Errorf("certio: encrypt key %s: %w", o.Alias(), err)
			}
			block.Type, block.Bytes = blockEncryptedPrivateKey, der
		}
		if err := pem.Encode(buf, block); err != nil {
			return err
		}
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// resourceName returns the name of w if it has one, e.g. an *os.File.
func resourceName(w io.Writer) string {
	if n, ok := w.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "output"
}
