// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509asn1_test

import (
	"encoding/asn1"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	x509asn1 "github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/asn1data"
)

type nodeEncoder struct{ n x509asn1.Node }

func (e nodeEncoder) Encode() (x509asn1.Node, error) { return e.n, nil }

func mustParse(t *testing.T, n x509asn1.Node) x509asn1.Node {
	t.Helper()
	der, err := x509asn1.GetEncoded(nodeEncoder{n})
	require.NoError(t, err, "GetEncoded() error")
	parsed, err := x509asn1.Parse(der)
	require.NoError(t, err, "Parse() error")
	return parsed
}

func TestDecodeSequenceBounds(t *testing.T) {
	seq := mustParse(t, x509asn1.Sequence(x509asn1.Int64(1), x509asn1.Int64(2), x509asn1.Int64(3)))

	tests := []struct {
		name    string
		min     int
		max     int
		wantErr bool
	}{
		{name: "exact", min: 3, max: 3},
		{name: "within range", min: 1, max: 5},
		{name: "below min", min: 4, max: 6, wantErr: true},
		{name: "above max", min: 0, max: 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			elements, err := x509asn1.DecodeSequence(seq, tt.min, tt.max)
			if tt.wantErr {
				assert.ErrorIs(t, err, x509asn1.ErrDecode)
				return
			}
			require.NoError(t, err)
			assert.Len(t, elements, 3)
		})
	}
}

func TestDecodeSequenceSingleNode(t *testing.T) {
	n := mustParse(t, x509asn1.Int64(42))

	elements, err := x509asn1.DecodeSequence(n, 1, 1)
	require.NoError(t, err)
	require.Len(t, elements, 1)

	v, err := x509asn1.DecodeInteger(elements[0])
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Int64())

	_, err = x509asn1.DecodeSequence(n, 2, 3)
	assert.ErrorIs(t, err, x509asn1.ErrDecode)
}

func TestDecodeTagged(t *testing.T) {
	tagged := mustParse(t, x509asn1.Explicit(2, x509asn1.Int64(5)))

	inner, err := x509asn1.DecodeTagged(tagged, 2)
	require.NoError(t, err)
	v, err := x509asn1.DecodeInteger(inner)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v.Int64())

	_, err = x509asn1.DecodeTagged(tagged, 3)
	assert.ErrorIs(t, err, x509asn1.ErrDecode, "tag number mismatch must fail")

	_, err = x509asn1.DecodeTagged(mustParse(t, x509asn1.Int64(5)), 2)
	assert.ErrorIs(t, err, x509asn1.ErrDecode, "untagged node must fail")
}

func TestDecodeImplicit(t *testing.T) {
	n := mustParse(t, x509asn1.Implicit(6, x509asn1.IA5String("https://localhost/test.crl")))

	retyped, err := x509asn1.DecodeImplicit(n, 6, asn1.TagIA5String)
	require.NoError(t, err)
	s, err := x509asn1.DecodeIA5String(retyped)
	require.NoError(t, err)
	assert.Equal(t, "https://localhost/test.crl", s)

	_, err = x509asn1.DecodeImplicit(n, 2, asn1.TagIA5String)
	assert.ErrorIs(t, err, x509asn1.ErrDecode)
}

func TestDecodePrimitives(t *testing.T) {
	tests := []struct {
		name     string
		testFunc func(t *testing.T)
	}{
		{
			name: "Integer From Octet String",
			testFunc: func(t *testing.T) {
				n := mustParse(t, x509asn1.OctetString([]byte{0x01, 0x00}))
				v, err := x509asn1.DecodeInteger(n)
				require.NoError(t, err)
				assert.Equal(t, int64(256), v.Int64())
			},
		},
		{
			name: "Negative Integer",
			testFunc: func(t *testing.T) {
				n := mustParse(t, x509asn1.Int64(-129))
				v, err := x509asn1.DecodeInteger(n)
				require.NoError(t, err)
				assert.Equal(t, int64(-129), v.Int64())
			},
		},
		{
			name: "Big Integer",
			testFunc: func(t *testing.T) {
				want, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
				require.True(t, ok)
				v, err := x509asn1.DecodeInteger(mustParse(t, x509asn1.Integer(want)))
				require.NoError(t, err)
				assert.Equal(t, 0, want.Cmp(v))
			},
		},
		{
			name: "Wrong Type",
			testFunc: func(t *testing.T) {
				_, err := x509asn1.DecodeBoolean(mustParse(t, x509asn1.Int64(1)))
				assert.ErrorIs(t, err, x509asn1.ErrDecode)
				_, err = x509asn1.DecodeOctetString(mustParse(t, x509asn1.Boolean(true)))
				assert.ErrorIs(t, err, x509asn1.ErrDecode)
			},
		},
		{
			name: "Object Identifier",
			testFunc: func(t *testing.T) {
				oid := asn1.ObjectIdentifier{2, 5, 29, 31}
				v, err := x509asn1.DecodeOID(mustParse(t, x509asn1.OID(oid)))
				require.NoError(t, err)
				assert.True(t, oid.Equal(v))
			},
		},
		{
			name: "Bit String",
			testFunc: func(t *testing.T) {
				in := asn1.BitString{Bytes: []byte{0x60, 0x80}, BitLength: 9}
				out, err := x509asn1.DecodeBitString(mustParse(t, x509asn1.BitString(in)))
				require.NoError(t, err)
				assert.Equal(t, in.BitLength, out.BitLength)
				for i := 0; i < in.BitLength; i++ {
					assert.Equal(t, in.At(i), out.At(i), "bit %d", i)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.testFunc(t)
		})
	}
}

func TestGetEncodedMatchesEncodingASN1(t *testing.T) {
	type sample struct {
		A int
		B asn1.ObjectIdentifier
		C bool
		D []byte
	}
	in := sample{A: 7, B: asn1.ObjectIdentifier{1, 2, 840, 113549}, C: true, D: []byte("data")}
	want, err := asn1.Marshal(in)
	require.NoError(t, err)

	got, err := x509asn1.GetEncoded(nodeEncoder{x509asn1.Sequence(
		x509asn1.Int64(7),
		x509asn1.OID(in.B),
		x509asn1.Boolean(true),
		x509asn1.OctetString(in.D),
	)})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEncodeErrors(t *testing.T) {
	_, err := x509asn1.GetEncoded(nodeEncoder{x509asn1.Explicit(31, x509asn1.Int64(1))})
	assert.ErrorIs(t, err, x509asn1.ErrHighTagNumber)

	_, err = x509asn1.GetEncoded(nodeEncoder{x509asn1.Sequence(x509asn1.IA5String("café"))})
	assert.Error(t, err)

	_, err = x509asn1.Parse([]byte{0x02, 0x01, 0x01, 0x00})
	assert.ErrorIs(t, err, x509asn1.ErrDecode, "trailing data must be rejected")
}

func TestBitString(t *testing.T) {
	tests := []struct {
		name     string
		in       asn1.BitString
		expected []byte
		wantErr  bool
	}{
		{
			name:     "Trailing Bits Cleared",
			in:       asn1.BitString{Bytes: []byte{0xff}, BitLength: 3},
			expected: []byte{0x03, 0x02, 0x05, 0xe0},
		},
		{
			name:     "Whole Bytes",
			in:       asn1.BitString{Bytes: []byte{0xa5, 0x5a}, BitLength: 16},
			expected: []byte{0x03, 0x03, 0x00, 0xa5, 0x5a},
		},
		{
			name:     "Empty",
			in:       asn1.BitString{},
			expected: []byte{0x03, 0x01, 0x00},
		},
		{
			name:    "Length Exceeds Bytes",
			in:      asn1.BitString{Bytes: []byte{0x80}, BitLength: 12},
			wantErr: true,
		},
		{
			name:    "Negative Length",
			in:      asn1.BitString{BitLength: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			der, err := x509asn1.BitString(tt.in).Marshal()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, der)
		})
	}
}
