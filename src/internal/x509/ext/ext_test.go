// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509ext_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	x509asn1 "github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/asn1data"
	x509ext "github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/ext"
)

func localhostName() pkix.RDNSequence {
	return pkix.RDNSequence{{{Type: asn1.ObjectIdentifier{2, 5, 4, 3}, Value: "localhost"}}}
}

func reparse(t *testing.T, e x509asn1.Encoder) ([]byte, x509asn1.Node) {
	t.Helper()
	der, err := x509asn1.GetEncoded(e)
	require.NoError(t, err, "GetEncoded() error")
	n, err := x509asn1.Parse(der)
	require.NoError(t, err, "Parse() error")
	return der, n
}

func TestGeneralNamesRoundTrip(t *testing.T) {
	uri, err := x509ext.NewStringName(x509ext.URIType, "https://localhost/test.crl")
	require.NoError(t, err)

	in := x509ext.GeneralNames{
		uri,
		&x509ext.DirectoryName{Name: localhostName()},
		&x509ext.IPAddressName{Address: net.ParseIP("127.0.0.1"), Mask: net.CIDRMask(32, 32)},
		&x509ext.IPAddressName{Address: net.ParseIP("::1")},
		&x509ext.RegisteredIDName{ID: asn1.ObjectIdentifier{1, 2, 3, 4}},
		&x509ext.OtherName{TypeID: asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 311, 20, 2, 3}, Value: x509asn1.IA5String("user@example.com")},
	}

	inEncoded, n := reparse(t, in)
	out, err := x509ext.DecodeGeneralNames(n)
	require.NoError(t, err, "DecodeGeneralNames() error")
	require.Len(t, out, len(in))

	outEncoded, _ := reparse(t, out)
	assert.Equal(t, inEncoded, outEncoded)

	assert.Equal(t, x509ext.URIType, out[0].Type())
	assert.Equal(t, "URI:https://localhost/test.crl", out[0].String())
	assert.Equal(t, "IP:127.0.0.1/255.255.255.255", out[2].String())
	assert.Equal(t, "dirName:CN=localhost", out[1].String())
}

func TestStringNameRejectsOtherTypes(t *testing.T) {
	_, err := x509ext.NewStringName(x509ext.DirectoryNameType, "CN=x")
	assert.Error(t, err)
}

func TestDistributionPointRoundTrip(t *testing.T) {
	uri, err := x509ext.NewStringName(x509ext.URIType, "https://localhost/test.crl")
	require.NoError(t, err)
	reasons := x509ext.NewReasonFlags(x509ext.KeyCompromise, x509ext.AACompromise)

	tests := []struct {
		name string
		in   *x509ext.DistributionPoint
	}{
		{
			name: "Full Name",
			in: &x509ext.DistributionPoint{Name: &x509ext.DistributionPointName{
				FullName: x509ext.GeneralNames{uri, &x509ext.DirectoryName{Name: localhostName()}},
			}},
		},
		{
			name: "CRL Issuer",
			in: &x509ext.DistributionPoint{CRLIssuer: x509ext.GeneralNames{
				&x509ext.DirectoryName{Name: localhostName()},
			}},
		},
		{
			name: "All Fields",
			in: &x509ext.DistributionPoint{
				Name:      &x509ext.DistributionPointName{FullName: x509ext.GeneralNames{uri}},
				Reasons:   &reasons,
				CRLIssuer: x509ext.GeneralNames{uri},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inEncoded, n := reparse(t, tt.in)
			out, err := x509ext.DecodeDistributionPoint(n)
			require.NoError(t, err, "DecodeDistributionPoint() error")
			outEncoded, _ := reparse(t, out)
			assert.Equal(t, inEncoded, outEncoded)
		})
	}
}

func TestReasonFlags(t *testing.T) {
	in := x509ext.NewReasonFlags(x509ext.KeyCompromise, x509ext.Superseded, x509ext.AACompromise)
	_, n := reparse(t, in)

	bs, err := x509asn1.DecodeBitString(n)
	require.NoError(t, err)
	assert.Equal(t, 9, bs.BitLength, "trailing zero bits must be trimmed")

	out, err := x509ext.DecodeReasonFlags(n)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.True(t, out.Has(x509ext.Superseded))
	assert.False(t, out.Has(x509ext.CertificateHold))
	assert.Equal(t, "keyCompromise, superseded, aACompromise", out.String())
}

func TestBasicConstraintsDecode(t *testing.T) {
	tests := []struct {
		name    string
		in      *x509ext.BasicConstraints
		wantStr string
	}{
		{name: "End Entity", in: &x509ext.BasicConstraints{PathLen: -1}, wantStr: "CA:false"},
		{name: "CA", in: &x509ext.BasicConstraints{CA: true, PathLen: -1}, wantStr: "CA:true"},
		{name: "CA With Path Length", in: &x509ext.BasicConstraints{CA: true, PathLen: 2}, wantStr: "CA:true, pathlen:2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, n := reparse(t, tt.in)
			out, err := x509ext.DecodeBasicConstraints(n)
			require.NoError(t, err)
			assert.Equal(t, tt.in, out)
			assert.Equal(t, tt.wantStr, out.String())
		})
	}
}

func TestExtensionsAcceptedByCryptoX509(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	uri, err := x509ext.NewStringName(x509ext.URIType, "http://crl.example.com/ca.crl")
	require.NoError(t, err)
	dns, err := x509ext.NewStringName(x509ext.DNSNameType, "www.example.com")
	require.NoError(t, err)

	var extensions []pkix.Extension
	for _, d := range []x509ext.Data{
		&x509ext.BasicConstraints{CA: true, PathLen: 1},
		x509ext.NewKeyUsage(x509ext.DigitalSignature, x509ext.KeyCertSign, x509ext.CRLSign),
		x509ext.CRLDistributionPoints{{Name: &x509ext.DistributionPointName{FullName: x509ext.GeneralNames{uri}}}},
		&x509ext.AltName{ID: x509ext.OIDSubjectAltName, Names: x509ext.GeneralNames{dns}},
	} {
		ext, err := x509ext.ToExtension(d, false)
		require.NoError(t, err)
		extensions = append(extensions, ext)
	}

	template := &x509.Certificate{
		SerialNumber:    big.NewInt(1),
		Subject:         pkix.Name{CommonName: "Extension Test"},
		NotBefore:       time.Now().Add(-time.Hour),
		NotAfter:        time.Now().Add(time.Hour),
		ExtraExtensions: extensions,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, key.Public(), key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	assert.True(t, cert.IsCA)
	assert.Equal(t, 1, cert.MaxPathLen)
	assert.Equal(t, x509.KeyUsageDigitalSignature|x509.KeyUsageCertSign|x509.KeyUsageCRLSign, cert.KeyUsage)
	assert.Equal(t, []string{"http://crl.example.com/ca.crl"}, cert.CRLDistributionPoints)
	assert.Equal(t, []string{"www.example.com"}, cert.DNSNames)
}

func TestDecodeReencodesCryptoX509Extensions(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(42),
		Subject:               pkix.Name{CommonName: "Round Trip CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		SubjectKeyId:          []byte{1, 2, 3, 4},
		AuthorityKeyId:        []byte{1, 2, 3, 4},
		DNSNames:              []string{"ca.example.com"},
		IPAddresses:           []net.IP{net.ParseIP("10.0.0.1")},
		CRLDistributionPoints: []string{"http://crl.example.com/ca.crl"},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, key.Public(), key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	for _, ext := range cert.Extensions {
		data, err := x509ext.Decode(ext)
		require.NoError(t, err, "Decode(%s) error", ext.Id)
		assert.True(t, ext.Id.Equal(data.OID()))
		assert.NotEmpty(t, data.String())

		encoded, err := x509asn1.GetEncoded(data)
		require.NoError(t, err)
		assert.Equal(t, ext.Value, encoded, "extension %s does not re-encode identically", ext.Id)
	}
}

func TestDecodeUnknownExtension(t *testing.T) {
	value, err := asn1.Marshal("custom")
	require.NoError(t, err)

	data, err := x509ext.Decode(pkix.Extension{Id: asn1.ObjectIdentifier{1, 2, 3}, Value: value})
	require.NoError(t, err)
	assert.IsType(t, &x509ext.Unknown{}, data)

	_, err = x509ext.Decode(pkix.Extension{Id: x509ext.OIDBasicConstraints, Value: value})
	assert.ErrorIs(t, err, x509asn1.ErrDecode)
}

func TestName(t *testing.T) {
	assert.Equal(t, "basicConstraints", x509ext.Name(x509ext.OIDBasicConstraints))
	assert.Equal(t, "cRLDistributionPoints", x509ext.Name(x509ext.OIDCRLDistributionPoints))
	assert.Equal(t, "1.2.3", x509ext.Name(asn1.ObjectIdentifier{1, 2, 3}))
}
