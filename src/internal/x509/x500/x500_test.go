// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x500_test

import (
	"bytes"
	"crypto/x509/pkix"
	"encoding/asn1"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/x500"
	"github.com/H0llyW00dzZ/x509-cert-manager/src/logger"
)

const testDN = "CN=Test,OU=Test.Org,EMAILADDRESS=info@test.org,SERIALNUMBER=42"

func newDictionary(t *testing.T) *x500.Dictionary {
	t.Helper()
	d, err := x500.Default("", nil)
	require.NoError(t, err, "Default() error")
	return d
}

func marshal(t *testing.T, rdns pkix.RDNSequence) []byte {
	t.Helper()
	der, err := asn1.Marshal(rdns)
	require.NoError(t, err)
	return der
}

func TestToStringFromString(t *testing.T) {
	d := newDictionary(t)

	rdns, err := d.FromString(testDN)
	require.NoError(t, err)
	require.Len(t, rdns, 4)

	// RFC 2253 strings list the most significant RDN last.
	assert.True(t, rdns[0][0].Type.Equal(asn1.ObjectIdentifier{2, 5, 4, 5}))
	assert.True(t, rdns[3][0].Type.Equal(asn1.ObjectIdentifier{2, 5, 4, 3}))

	assert.Equal(t, testDN, d.ToString(rdns))
}

func TestRoundTrip(t *testing.T) {
	d := newDictionary(t)
	unknown := asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 99999, 1}
	rawInt, err := asn1.Marshal(42)
	require.NoError(t, err)

	tests := []struct {
		name string
		rdns pkix.RDNSequence
	}{
		{
			name: "Reversed Order",
			rdns: pkix.RDNSequence{
				{{Type: asn1.ObjectIdentifier{2, 5, 4, 3}, Value: "leaf"}},
				{{Type: asn1.ObjectIdentifier{2, 5, 4, 10}, Value: "Org"}},
				{{Type: asn1.ObjectIdentifier{2, 5, 4, 6}, Value: "DE"}},
			},
		},
		{
			name: "Unknown Attribute Type",
			rdns: pkix.RDNSequence{
				{{Type: asn1.ObjectIdentifier{2, 5, 4, 6}, Value: "US"}},
				{{Type: unknown, Value: "opaque value"}},
				{{Type: asn1.ObjectIdentifier{2, 5, 4, 3}, Value: asn1.RawValue{FullBytes: rawInt}}},
			},
		},
		{
			name: "Multi Valued RDN",
			rdns: pkix.RDNSequence{
				{
					{Type: asn1.ObjectIdentifier{2, 5, 4, 3}, Value: "a"},
					{Type: asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 1}, Value: "uid1"},
				},
			},
		},
		{
			name: "Special Characters",
			rdns: pkix.RDNSequence{
				{{Type: asn1.ObjectIdentifier{2, 5, 4, 10}, Value: `Acme, Inc. + "Friends" <x>;\`}},
				{{Type: asn1.ObjectIdentifier{2, 5, 4, 3}, Value: " #leading and trailing "}},
				{{Type: asn1.ObjectIdentifier{2, 5, 4, 11}, Value: "Größe\x01"}},
			},
		},
		{
			name: "Empty",
			rdns: pkix.RDNSequence{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := d.ToString(tt.rdns)
			parsed, err := d.FromString(s)
			require.NoError(t, err, "FromString(%q) error", s)
			assert.Equal(t, marshal(t, tt.rdns), marshal(t, parsed), "round trip of %q", s)
		})
	}
}

func TestToStringFormats(t *testing.T) {
	d := newDictionary(t)

	rdns := pkix.RDNSequence{
		{{Type: asn1.ObjectIdentifier{1, 2, 3}, Value: "x"}},
		{{Type: asn1.ObjectIdentifier{2, 5, 4, 3}, Value: "a,b"}},
	}
	assert.Equal(t, `CN=a\,b,1.2.3=#130178`, d.ToString(rdns))
}

func TestFromStringAliases(t *testing.T) {
	d := newDictionary(t)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "Long Alias", input: "commonName=host, organizationName=Org", want: "CN=host,O=Org"},
		{name: "Case Insensitive Keyword", input: "cn=host", want: "CN=host"},
		{name: "OID Prefix", input: "OID.2.5.4.3=host", want: "CN=host"},
		{name: "Quoted Value", input: `CN="a, b"`, want: `CN=a\, b`},
		{name: "Hex Pair Escape", input: `CN=caf\c3\a9`, want: "CN=café"},
		{name: "Semicolon Separator", input: "CN=a; O=b", want: "CN=a,O=b"},
		{name: "Spaces Around Separators", input: " CN = a , O = b ", want: "CN=a,O=b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rdns, err := d.FromString(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.ToString(rdns))
		})
	}
}

func TestFromStringErrors(t *testing.T) {
	d := newDictionary(t)

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "Unknown Keyword", input: "NOPE=x", wantErr: x500.ErrUnknownAttributeType},
		{name: "Missing Equals", input: "CN", wantErr: x500.ErrInvalidName},
		{name: "Bad Hex", input: "CN=#zz", wantErr: x500.ErrInvalidName},
		{name: "Unterminated Quote", input: `CN="abc`, wantErr: x500.ErrInvalidName},
		{name: "Bad Escape", input: `CN=a\q`, wantErr: x500.ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.FromString(tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oids.properties")
	require.NoError(t, os.WriteFile(path, []byte("# custom\n2.5.4.3 = COMMON, CN\n1.2.3.4 = MYATTR\n"), 0o600))

	d, err := x500.Default(path, nil)
	require.NoError(t, err)

	rdns, err := d.FromString("MYATTR=v,CN=host")
	require.NoError(t, err)
	assert.Equal(t, "MYATTR=v,COMMON=host", d.ToString(rdns))
	assert.Contains(t, d.RDNTypes(), "MYATTR")
	assert.Contains(t, d.RDNTypes(), "commonName", "builtin aliases stay resolvable")
}

func TestOverrideFileFailureIsIgnored(t *testing.T) {
	var logs bytes.Buffer
	d, err := x500.Default(filepath.Join(t.TempDir(), "missing.properties"), logger.NewJSONLogger(&logs, false))
	require.NoError(t, err)
	assert.NotNil(t, d)
	assert.Contains(t, logs.String(), `"level":"warn"`)
}

func TestInvalidBuiltinIsFatal(t *testing.T) {
	_, err := x500.Init(strings.NewReader("not-an-oid = X\n"), "", nil)
	assert.ErrorIs(t, err, x500.ErrInvalidDictionary)
}

func TestParseDER(t *testing.T) {
	d := newDictionary(t)

	bmp := asn1.RawValue{Class: asn1.ClassUniversal, Tag: asn1.TagBMPString, Bytes: []byte{0x00, 'H', 0x00, 'i'}}
	rdns := pkix.RDNSequence{
		{{Type: asn1.ObjectIdentifier{2, 5, 4, 6}, Value: "DE"}},
		{{Type: asn1.ObjectIdentifier{2, 5, 4, 3}, Value: bmp}},
	}
	der := marshal(t, rdns)

	parsed, err := x500.ParseDER(der)
	require.NoError(t, err)
	assert.Equal(t, "Hi", parsed[1][0].Value)

	s, err := d.DERToString(der)
	require.NoError(t, err)
	assert.Equal(t, "CN=Hi,C=DE", s)

	_, err = x500.ParseDER([]byte{0x30, 0x01})
	assert.ErrorIs(t, err, x500.ErrInvalidName)
}
