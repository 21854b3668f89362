// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package pkitest generates throwaway keys, certificates, requests and
// revocation lists for tests.
package pkitest

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

var (
	oidData       = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 1}
	oidSignedData = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 2}
)

// KeyType selects the algorithm of a generated key.
type KeyType int

const (
	ECDSA KeyType = iota
	RSA
	Ed25519
)

var serial atomic.Int64

// Identity is a certificate together with its private key.
type Identity struct {
	Certificate *x509.Certificate
	Key         crypto.Signer
}

// NewKey generates a private key of the given type.
func NewKey(tb testing.TB, kt KeyType) crypto.Signer {
	tb.Helper()
	switch kt {
	case RSA:
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(tb, err)
		return key
	case Ed25519:
		_, key, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(tb, err)
		return key
	default:
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(tb, err)
		return key
	}
}

func template(cn string, ca bool) *x509.Certificate {
	t := &x509.Certificate{
		SerialNumber:          big.NewInt(serial.Add(1)),
		Subject:               pkix.Name{CommonName: cn, Organization: []string{"Test"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(365 * 24 * time.Hour),
		BasicConstraintsValid: true,
		IsCA:                  ca,
		KeyUsage:              x509.KeyUsageDigitalSignature,
	}
	if ca {
		t.KeyUsage |= x509.KeyUsageCertSign | x509.KeyUsageCRLSign
	}
	return t
}

func create(tb testing.TB, tmpl *x509.Certificate, key crypto.Signer, parent *Identity) *Identity {
	tb.Helper()
	parentCert, parentKey := tmpl, key
	if parent != nil {
		parentCert, parentKey = parent.Certificate, parent.Key
		tmpl.CRLDistributionPoints = []string{CRLURL(parent)}
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, parentCert, key.Public(), parentKey)
	require.NoError(tb, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(tb, err)
	return &Identity{Certificate: cert, Key: key}
}

// NewCA creates a self-signed CA with an ECDSA key.
func NewCA(tb testing.TB, cn string) *Identity {
	tb.Helper()
	return create(tb, template(cn, true), NewKey(tb, ECDSA), nil)
}

// Issue creates a certificate for cn signed by parent. The new
// identity is itself a CA when ca is set.
func Issue(tb testing.TB, parent *Identity, cn string, kt KeyType, ca bool) *Identity {
	tb.Helper()
	return create(tb, template(cn, ca), NewKey(tb, kt), parent)
}

// Expired creates a certificate for cn signed by parent that expired yesterday.
func Expired(tb testing.TB, parent *Identity, cn string) *Identity {
	tb.Helper()
	tmpl := template(cn, false)
	tmpl.NotBefore = time.Now().Add(-48 * time.Hour)
	tmpl.NotAfter = time.Now().Add(-24 * time.Hour)
	return create(tb, tmpl, NewKey(tb, ECDSA), parent)
}

// NewCSR creates a certificate signing request for cn signed by key.
func NewCSR(tb testing.TB, key crypto.Signer, cn string) *x509.CertificateRequest {
	tb.Helper()
	der, err := x509.CreateCertificateRequest(rand.Reader, &x509.CertificateRequest{
		Subject: pkix.Name{CommonName: cn},
	}, key)
	require.NoError(tb, err)
	csr, err := x509.ParseCertificateRequest(der)
	require.NoError(tb, err)
	return csr
}

// NewCRL creates a revocation list issued by ca listing the given certificates.
func NewCRL(tb testing.TB, ca *Identity, revoked ...*x509.Certificate) *x509.RevocationList {
	tb.Helper()
	entries := make([]x509.RevocationListEntry, 0, len(revoked))
	for _, cert := range revoked {
		entries = append(entries, x509.RevocationListEntry{
			SerialNumber:   cert.SerialNumber,
			RevocationTime: time.Now().Add(-time.Hour),
		})
	}
	der, err := x509.CreateRevocationList(rand.Reader, &x509.RevocationList{
		Number:                    big.NewInt(serial.Add(1)),
		ThisUpdate:                time.Now().Add(-time.Hour),
		NextUpdate:                time.Now().Add(24 * time.Hour),
		RevokedCertificateEntries: entries,
	}, ca.Certificate, ca.Key)
	require.NoError(tb, err)
	crl, err := x509.ParseRevocationList(der)
	require.NoError(tb, err)
	return crl
}

// CRLURL returns the CRL distribution point written into certificates
// issued by ca.
func CRLURL(ca *Identity) string {
	return fmt.Sprintf("http://crl.example.com/%s.crl", ca.Certificate.SerialNumber)
}

// PKCS7 encodes certs as a degenerate PKCS#7 SignedData bundle, the layout
// of .p7b files.
func PKCS7(tb testing.TB, certs ...*x509.Certificate) []byte {
	tb.Helper()
	var b cryptobyte.Builder
	b.AddASN1(cbasn1.SEQUENCE, func(info *cryptobyte.Builder) {
		info.AddASN1ObjectIdentifier(oidSignedData)
		info.AddASN1(cbasn1.Tag(0).Constructed().ContextSpecific(), func(content *cryptobyte.Builder) {
			content.AddASN1(cbasn1.SEQUENCE, func(sd *cryptobyte.Builder) {
				sd.AddASN1Int64(1)
				sd.AddASN1(cbasn1.SET, func(*cryptobyte.Builder) {})
				sd.AddASN1(cbasn1.SEQUENCE, func(ci *cryptobyte.Builder) {
					ci.AddASN1ObjectIdentifier(oidData)
				})
				sd.AddASN1(cbasn1.Tag(0).Constructed().ContextSpecific(), func(list *cryptobyte.Builder) {
					for _, cert := range certs {
						list.AddBytes(cert.Raw)
					}
				})
				// empty crls, then signerInfos
				sd.AddASN1(cbasn1.Tag(1).Constructed().ContextSpecific(), func(*cryptobyte.Builder) {})
				sd.AddASN1(cbasn1.SET, func(*cryptobyte.Builder) {})
			})
		})
	})
	der, err := b.Bytes()
	require.NoError(tb, err)
	return der
}
