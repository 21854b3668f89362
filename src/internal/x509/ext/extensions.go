// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509ext

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"strings"

	x509asn1 "github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/asn1data"
)

// Extension object identifiers.
var (
	OIDSubjectKeyIdentifier   = asn1.ObjectIdentifier{2, 5, 29, 14}
	OIDKeyUsage               = asn1.ObjectIdentifier{2, 5, 29, 15}
	OIDSubjectAltName         = asn1.ObjectIdentifier{2, 5, 29, 17}
	OIDIssuerAltName          = asn1.ObjectIdentifier{2, 5, 29, 18}
	OIDBasicConstraints       = asn1.ObjectIdentifier{2, 5, 29, 19}
	OIDCRLNumber              = asn1.ObjectIdentifier{2, 5, 29, 20}
	OIDCRLDistributionPoints  = asn1.ObjectIdentifier{2, 5, 29, 31}
	OIDAuthorityKeyIdentifier = asn1.ObjectIdentifier{2, 5, 29, 35}
	OIDExtendedKeyUsage       = asn1.ObjectIdentifier{2, 5, 29, 37}
)

var extensionNames = map[string]string{
	OIDSubjectKeyIdentifier.String():   "subjectKeyIdentifier",
	OIDKeyUsage.String():               "keyUsage",
	OIDSubjectAltName.String():         "subjectAltName",
	OIDIssuerAltName.String():          "issuerAltName",
	OIDBasicConstraints.String():       "basicConstraints",
	OIDCRLNumber.String():              "cRLNumber",
	OIDCRLDistributionPoints.String():  "cRLDistributionPoints",
	OIDAuthorityKeyIdentifier.String(): "authorityKeyIdentifier",
	OIDExtendedKeyUsage.String():       "extKeyUsage",
}

// Name returns the RFC 5280 name of an extension, or its dotted OID.
func Name(oid asn1.ObjectIdentifier) string {
	if name, ok := extensionNames[oid.String()]; ok {
		return name
	}
	return oid.String()
}

// Data is a decoded extension value.
type Data interface {
	x509asn1.Encoder
	OID() asn1.ObjectIdentifier
	String() string
}

// Decode decodes the value of ext. Extensions without a dedicated type are
// returned as [*Unknown].
func Decode(ext pkix.Extension) (Data, error) {
	n, err := x509asn1.Parse(ext.Value)
	if err != nil {
		return nil, fmt.Errorf("x509ext: extension %s: %w", ext.Id, err)
	}
	var data Data
	switch {
	case ext.Id.Equal(OIDBasicConstraints):
		data, err = DecodeBasicConstraints(n)
	case ext.Id.Equal(OIDKeyUsage):
		data, err = DecodeKeyUsage(n)
	case ext.Id.Equal(OIDExtendedKeyUsage):
		data, err = DecodeExtendedKeyUsage(n)
	case ext.Id.Equal(OIDSubjectKeyIdentifier):
		data, err = DecodeSubjectKeyIdentifier(n)
	case ext.Id.Equal(OIDAuthorityKeyIdentifier):
		data, err = DecodeAuthorityKeyIdentifier(n)
	case ext.Id.Equal(OIDCRLDistributionPoints):
		data, err = DecodeCRLDistributionPoints(n)
	case ext.Id.Equal(OIDSubjectAltName), ext.Id.Equal(OIDIssuerAltName):
		var names GeneralNames
		if names, err = DecodeGeneralNames(n); err == nil {
			data = &AltName{ID: ext.Id, Names: names}
		}
	case ext.Id.Equal(OIDCRLNumber):
		data, err = DecodeCRLNumber(n)
	default:
		data = &Unknown{ID: ext.Id, Value: ext.Value}
	}
	if err != nil {
		return nil, fmt.Errorf("x509ext: extension %s: %w", ext.Id, err)
	}
	return data, nil
}

// ToExtension encodes d into a certificate extension.
func ToExtension(d Data, critical bool) (pkix.Extension, error) {
	value, err := x509asn1.GetEncoded(d)
	if err != nil {
		return pkix.Extension{}, err
	}
	return pkix.Extension{Id: d.OID(), Critical: critical, Value: value}, nil
}

// BasicConstraints holds the CA flag and the optional path length constraint.
// PathLen is negative when absent.
type BasicConstraints struct {
	CA      bool
	PathLen int
}

func (*BasicConstraints) OID() asn1.ObjectIdentifier { return OIDBasicConstraints }

func (b *BasicConstraints) Encode() (x509asn1.Node, error) {
	var nodes []x509asn1.Node
	if b.CA {
		nodes = append(nodes, x509asn1.Boolean(true))
	}
	if b.PathLen >= 0 {
		nodes = append(nodes, x509asn1.Int64(int64(b.PathLen)))
	}
	return x509asn1.Sequence(nodes...), nil
}

func (b *BasicConstraints) String() string {
	if b.PathLen >= 0 {
		return fmt.Sprintf("CA:%t, pathlen:%d", b.CA, b.PathLen)
	}
	return fmt.Sprintf("CA:%t", b.CA)
}

// DecodeBasicConstraints decodes a BasicConstraints sequence.
func DecodeBasicConstraints(n x509asn1.Node) (*BasicConstraints, error) {
	if !n.IsSequence() {
		return nil, fmt.Errorf("%w: basic constraints must be a sequence", x509asn1.ErrDecode)
	}
	elements, err := x509asn1.DecodeSequence(n, 0, 2)
	if err != nil {
		return nil, err
	}
	bc := &BasicConstraints{PathLen: -1}
	for _, element := range elements {
		if element.Is(asn1.ClassUniversal, asn1.TagBoolean) {
			if bc.CA, err = x509asn1.DecodeBoolean(element); err != nil {
				return nil, err
			}
			continue
		}
		v, err := x509asn1.DecodeInteger(element)
		if err != nil {
			return nil, err
		}
		if !v.IsInt64() || v.Sign() < 0 || v.Int64() > math.MaxInt32 {
			return nil, fmt.Errorf("%w: invalid path length %s", x509asn1.ErrDecode, v)
		}
		bc.PathLen = int(v.Int64())
	}
	return bc, nil
}

// KeyUsageBit is a single key usage bit.
type KeyUsageBit int

// Key usage bit positions.
const (
	DigitalSignature KeyUsageBit = iota
	NonRepudiation
	KeyEncipherment
	DataEncipherment
	KeyAgreement
	KeyCertSign
	CRLSign
	EncipherOnly
	DecipherOnly
)

var keyUsageNames = [...]string{
	"digitalSignature", "nonRepudiation", "keyEncipherment", "dataEncipherment", "keyAgreement",
	"keyCertSign", "cRLSign", "encipherOnly", "decipherOnly",
}

// KeyUsage is the key usage bit set.
type KeyUsage struct{ bits uint16 }

// NewKeyUsage creates a key usage set.
func NewKeyUsage(bits ...KeyUsageBit) *KeyUsage {
	k := &KeyUsage{}
	for _, b := range bits {
		k.bits |= 1 << uint(b)
	}
	return k
}

// Has reports whether bit is set.
func (k *KeyUsage) Has(bit KeyUsageBit) bool { return k.bits&(1<<uint(bit)) != 0 }

func (*KeyUsage) OID() asn1.ObjectIdentifier { return OIDKeyUsage }

func (k *KeyUsage) Encode() (x509asn1.Node, error) {
	return x509asn1.BitString(namedBits(uint(k.bits), len(keyUsageNames))), nil
}

func (k *KeyUsage) String() string {
	var names []string
	for i, name := range keyUsageNames {
		if k.Has(KeyUsageBit(i)) {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

// DecodeKeyUsage decodes a KeyUsage bit string.
func DecodeKeyUsage(n x509asn1.Node) (*KeyUsage, error) {
	bs, err := x509asn1.DecodeBitString(n)
	if err != nil {
		return nil, err
	}
	k := &KeyUsage{}
	for i := 0; i < bs.BitLength && i < len(keyUsageNames); i++ {
		if bs.At(i) == 1 {
			k.bits |= 1 << uint(i)
		}
	}
	return k, nil
}

var extKeyUsageNames = map[string]string{
	"1.3.6.1.5.5.7.3.1": "serverAuth",
	"1.3.6.1.5.5.7.3.2": "clientAuth",
	"1.3.6.1.5.5.7.3.3": "codeSigning",
	"1.3.6.1.5.5.7.3.4": "emailProtection",
	"1.3.6.1.5.5.7.3.8": "timeStamping",
	"1.3.6.1.5.5.7.3.9": "OCSPSigning",
	"2.5.29.37.0":       "anyExtendedKeyUsage",
}

// ExtendedKeyUsage lists key purpose identifiers.
type ExtendedKeyUsage []asn1.ObjectIdentifier

func (ExtendedKeyUsage) OID() asn1.ObjectIdentifier { return OIDExtendedKeyUsage }

func (e ExtendedKeyUsage) Encode() (x509asn1.Node, error) {
	nodes := make([]x509asn1.Node, len(e))
	for i, oid := range e {
		nodes[i] = x509asn1.OID(oid)
	}
	return x509asn1.Sequence(nodes...), nil
}

func (e ExtendedKeyUsage) String() string {
	names := make([]string, len(e))
	for i, oid := range e {
		if name, ok := extKeyUsageNames[oid.String()]; ok {
			names[i] = name
		} else {
			names[i] = oid.String()
		}
	}
	return strings.Join(names, ", ")
}

// DecodeExtendedKeyUsage decodes an ExtKeyUsageSyntax sequence.
func DecodeExtendedKeyUsage(n x509asn1.Node) (ExtendedKeyUsage, error) {
	elements, err := x509asn1.DecodeSequence(n, 1, math.MaxInt)
	if err != nil {
		return nil, err
	}
	e := make(ExtendedKeyUsage, 0, len(elements))
	for _, element := range elements {
		oid, err := x509asn1.DecodeOID(element)
		if err != nil {
			return nil, err
		}
		e = append(e, oid)
	}
	return e, nil
}

// SubjectKeyIdentifier is the subject key identifier extension value.
type SubjectKeyIdentifier []byte

func (SubjectKeyIdentifier) OID() asn1.ObjectIdentifier { return OIDSubjectKeyIdentifier }

func (s SubjectKeyIdentifier) Encode() (x509asn1.Node, error) {
	return x509asn1.OctetString(s), nil
}

func (s SubjectKeyIdentifier) String() string { return formatKeyID(s) }

// DecodeSubjectKeyIdentifier decodes the extension value.
func DecodeSubjectKeyIdentifier(n x509asn1.Node) (SubjectKeyIdentifier, error) {
	b, err := x509asn1.DecodeOctetString(n)
	if err != nil {
		return nil, err
	}
	return SubjectKeyIdentifier(b), nil
}

// AuthorityKeyIdentifier identifies the key that signed a certificate or CRL.
type AuthorityKeyIdentifier struct {
	KeyID        []byte
	Issuer       GeneralNames
	SerialNumber *big.Int
}

func (*AuthorityKeyIdentifier) OID() asn1.ObjectIdentifier { return OIDAuthorityKeyIdentifier }

func (a *AuthorityKeyIdentifier) Encode() (x509asn1.Node, error) {
	var nodes []x509asn1.Node
	if a.KeyID != nil {
		nodes = append(nodes, x509asn1.Implicit(0, x509asn1.OctetString(a.KeyID)))
	}
	if a.Issuer != nil {
		n, err := a.Issuer.Encode()
		if err != nil {
			return x509asn1.Node{}, err
		}
		nodes = append(nodes, x509asn1.Implicit(1, n))
	}
	if a.SerialNumber != nil {
		nodes = append(nodes, x509asn1.Implicit(2, x509asn1.Integer(a.SerialNumber)))
	}
	return x509asn1.Sequence(nodes...), nil
}

func (a *AuthorityKeyIdentifier) String() string {
	var parts []string
	if a.KeyID != nil {
		parts = append(parts, "keyid:"+formatKeyID(a.KeyID))
	}
	if a.Issuer != nil {
		parts = append(parts, a.Issuer.String())
	}
	if a.SerialNumber != nil {
		parts = append(parts, "serial:"+a.SerialNumber.Text(16))
	}
	return strings.Join(parts, ", ")
}

// DecodeAuthorityKeyIdentifier decodes the extension value.
func DecodeAuthorityKeyIdentifier(n x509asn1.Node) (*AuthorityKeyIdentifier, error) {
	if !n.IsSequence() {
		return nil, fmt.Errorf("%w: authority key identifier must be a sequence", x509asn1.ErrDecode)
	}
	elements, err := x509asn1.DecodeSequence(n, 0, 3)
	if err != nil {
		return nil, err
	}
	a := &AuthorityKeyIdentifier{}
	for _, element := range elements {
		switch {
		case element.IsContext(0):
			inner, err := x509asn1.DecodeImplicit(element, 0, asn1.TagOctetString)
			if err != nil {
				return nil, err
			}
			if a.KeyID, err = x509asn1.DecodeOctetString(inner); err != nil {
				return nil, err
			}
		case element.IsContext(1):
			inner, err := x509asn1.DecodeImplicit(element, 1, asn1.TagSequence)
			if err != nil {
				return nil, err
			}
			if a.Issuer, err = DecodeGeneralNames(inner); err != nil {
				return nil, err
			}
		case element.IsContext(2):
			inner, err := x509asn1.DecodeImplicit(element, 2, asn1.TagInteger)
			if err != nil {
				return nil, err
			}
			if a.SerialNumber, err = x509asn1.DecodeInteger(inner); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: unexpected authority key identifier tag %d", x509asn1.ErrDecode, element.Tag)
		}
	}
	return a, nil
}

// AltName holds a subject or issuer alternative name extension.
type AltName struct {
	ID    asn1.ObjectIdentifier
	Names GeneralNames
}

func (a *AltName) OID() asn1.ObjectIdentifier { return a.ID }

func (a *AltName) Encode() (x509asn1.Node, error) { return a.Names.Encode() }

func (a *AltName) String() string { return a.Names.String() }

// CRLNumber is the CRL number extension value.
type CRLNumber struct{ Number *big.Int }

func (*CRLNumber) OID() asn1.ObjectIdentifier { return OIDCRLNumber }

func (c *CRLNumber) Encode() (x509asn1.Node, error) { return x509asn1.Integer(c.Number), nil }

func (c *CRLNumber) String() string { return c.Number.String() }

// DecodeCRLNumber decodes the extension value.
func DecodeCRLNumber(n x509asn1.Node) (*CRLNumber, error) {
	v, err := x509asn1.DecodeInteger(n)
	if err != nil {
		return nil, err
	}
	return &CRLNumber{Number: v}, nil
}

// Unknown keeps an extension value without a dedicated type.
type Unknown struct {
	ID    asn1.ObjectIdentifier
	Value []byte
}

func (u *Unknown) OID() asn1.ObjectIdentifier { return u.ID }

func (u *Unknown) Encode() (x509asn1.Node, error) { return x509asn1.Parse(u.Value) }

func (u *Unknown) String() string { return "#" + hex.EncodeToString(u.Value) }

func formatKeyID(b []byte) string {
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = fmt.Sprintf("%02X", c)
	}
	return strings.Join(parts, ":")
}
