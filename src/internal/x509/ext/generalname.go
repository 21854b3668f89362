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
	"net"
	"strings"

	x509asn1 "github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/asn1data"
)

// GeneralNameType is the context tag number of a GeneralName choice.
type GeneralNameType int

// GeneralName choices as defined by RFC 5280.
const (
	OtherNameType GeneralNameType = iota
	RFC822NameType
	DNSNameType
	X400AddressType
	DirectoryNameType
	EDIPartyNameType
	URIType
	IPAddressType
	RegisteredIDType
)

var generalNameLabels = [...]string{
	"otherName", "email", "DNS", "x400Address", "dirName", "ediPartyName", "URI", "IP", "registeredID",
}

func (t GeneralNameType) String() string {
	if t < 0 || int(t) >= len(generalNameLabels) {
		return fmt.Sprintf("GeneralName(%d)", int(t))
	}
	return generalNameLabels[t]
}

// GeneralName is one entry of a GeneralNames sequence.
type GeneralName interface {
	x509asn1.Encoder
	Type() GeneralNameType
	String() string
}

// StringName holds an rfc822Name, dNSName or uniformResourceIdentifier.
type StringName struct {
	NameType GeneralNameType
	Value    string
}

// NewStringName creates a string based general name.
func NewStringName(t GeneralNameType, value string) (*StringName, error) {
	switch t {
	case RFC822NameType, DNSNameType, URIType:
		return &StringName{NameType: t, Value: value}, nil
	}
	return nil, fmt.Errorf("x509ext: %s is not a string name type", t)
}

func (n *StringName) Type() GeneralNameType { return n.NameType }

func (n *StringName) Encode() (x509asn1.Node, error) {
	return x509asn1.Implicit(int(n.NameType), x509asn1.IA5String(n.Value)), nil
}

func (n *StringName) String() string { return n.NameType.String() + ":" + n.Value }

// DirectoryName holds a distinguished name. Raw keeps the encoding a decoded
// name was read from and takes precedence over Name when encoding.
type DirectoryName struct {
	Name pkix.RDNSequence
	Raw  []byte
}

func (n *DirectoryName) Type() GeneralNameType { return DirectoryNameType }

func (n *DirectoryName) Encode() (x509asn1.Node, error) {
	der := n.Raw
	if len(der) == 0 {
		var err error
		if der, err = asn1.Marshal(n.Name); err != nil {
			return x509asn1.Node{}, fmt.Errorf("x509ext: failed to encode directory name: %w", err)
		}
	}
	inner, err := x509asn1.Parse(der)
	if err != nil {
		return x509asn1.Node{}, err
	}
	return x509asn1.Explicit(int(DirectoryNameType), inner), nil
}

func (n *DirectoryName) String() string { return "dirName:" + n.Name.String() }

// IPAddressName holds an IP address and, inside name constraints, its netmask.
type IPAddressName struct {
	Address net.IP
	Mask    net.IPMask
}

func (n *IPAddressName) Type() GeneralNameType { return IPAddressType }

func (n *IPAddressName) Encode() (x509asn1.Node, error) {
	addr := n.Address
	if v4 := addr.To4(); v4 != nil && (n.Mask == nil || len(n.Mask) == net.IPv4len) {
		addr = v4
	}
	value := append([]byte{}, addr...)
	if n.Mask != nil {
		if len(n.Mask) != len(addr) {
			return x509asn1.Node{}, fmt.Errorf("x509ext: netmask length %d does not match address length %d", len(n.Mask), len(addr))
		}
		value = append(value, n.Mask...)
	}
	return x509asn1.Implicit(int(IPAddressType), x509asn1.OctetString(value)), nil
}

func (n *IPAddressName) String() string {
	if n.Mask != nil {
		return "IP:" + n.Address.String() + "/" + net.IP(n.Mask).String()
	}
	return "IP:" + n.Address.String()
}

// RegisteredIDName holds a registered object identifier.
type RegisteredIDName struct {
	ID asn1.ObjectIdentifier
}

func (n *RegisteredIDName) Type() GeneralNameType { return RegisteredIDType }

func (n *RegisteredIDName) Encode() (x509asn1.Node, error) {
	return x509asn1.Implicit(int(RegisteredIDType), x509asn1.OID(n.ID)), nil
}

func (n *RegisteredIDName) String() string { return "registeredID:" + n.ID.String() }

// OtherName holds a type-id and its explicitly tagged value.
type OtherName struct {
	TypeID asn1.ObjectIdentifier
	Value  x509asn1.Node
}

func (n *OtherName) Type() GeneralNameType { return OtherNameType }

func (n *OtherName) Encode() (x509asn1.Node, error) {
	return x509asn1.Implicit(int(OtherNameType), x509asn1.Sequence(
		x509asn1.OID(n.TypeID),
		x509asn1.Explicit(0, n.Value),
	)), nil
}

func (n *OtherName) String() string {
	der, _ := n.Value.Marshal()
	return "otherName:" + n.TypeID.String() + ";#" + hex.EncodeToString(der)
}

// OpaqueName keeps x400Address and ediPartyName values as encoded.
type OpaqueName struct {
	NameType GeneralNameType
	Content  []byte
}

func (n *OpaqueName) Type() GeneralNameType { return n.NameType }

func (n *OpaqueName) Encode() (x509asn1.Node, error) {
	return x509asn1.Raw(asn1.ClassContextSpecific, int(n.NameType), true, n.Content), nil
}

func (n *OpaqueName) String() string {
	return n.NameType.String() + ":#" + hex.EncodeToString(n.Content)
}

// DecodeGeneralName decodes a single GeneralName choice.
func DecodeGeneralName(n x509asn1.Node) (GeneralName, error) {
	if n.Class != asn1.ClassContextSpecific {
		return nil, fmt.Errorf("%w: general name must be context tagged", x509asn1.ErrDecode)
	}
	switch t := GeneralNameType(n.Tag); t {
	case RFC822NameType, DNSNameType, URIType:
		inner, err := x509asn1.DecodeImplicit(n, int(t), asn1.TagIA5String)
		if err != nil {
			return nil, err
		}
		s, err := x509asn1.DecodeIA5String(inner)
		if err != nil {
			return nil, err
		}
		return &StringName{NameType: t, Value: s}, nil
	case DirectoryNameType:
		inner, err := x509asn1.DecodeTagged(n, int(t))
		if err != nil {
			return nil, err
		}
		der, err := inner.Marshal()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", x509asn1.ErrDecode, err)
		}
		var name pkix.RDNSequence
		if rest, err := asn1.Unmarshal(der, &name); err != nil || len(rest) > 0 {
			return nil, fmt.Errorf("%w: invalid directory name", x509asn1.ErrDecode)
		}
		return &DirectoryName{Name: name, Raw: der}, nil
	case IPAddressType:
		inner, err := x509asn1.DecodeImplicit(n, int(t), asn1.TagOctetString)
		if err != nil {
			return nil, err
		}
		b, err := x509asn1.DecodeOctetString(inner)
		if err != nil {
			return nil, err
		}
		switch len(b) {
		case net.IPv4len, net.IPv6len:
			return &IPAddressName{Address: net.IP(b)}, nil
		case 2 * net.IPv4len, 2 * net.IPv6len:
			half := len(b) / 2
			return &IPAddressName{Address: net.IP(b[:half]), Mask: net.IPMask(b[half:])}, nil
		}
		return nil, fmt.Errorf("%w: invalid IP address length %d", x509asn1.ErrDecode, len(b))
	case RegisteredIDType:
		inner, err := x509asn1.DecodeImplicit(n, int(t), asn1.TagOID)
		if err != nil {
			return nil, err
		}
		oid, err := x509asn1.DecodeOID(inner)
		if err != nil {
			return nil, err
		}
		return &RegisteredIDName{ID: oid}, nil
	case OtherNameType:
		seq, err := x509asn1.DecodeImplicit(n, int(t), asn1.TagSequence)
		if err != nil {
			return nil, err
		}
		elements, err := x509asn1.DecodeSequence(seq, 2, 2)
		if err != nil {
			return nil, err
		}
		oid, err := x509asn1.DecodeOID(elements[0])
		if err != nil {
			return nil, err
		}
		value, err := x509asn1.DecodeTagged(elements[1], 0)
		if err != nil {
			return nil, err
		}
		return &OtherName{TypeID: oid, Value: value}, nil
	case X400AddressType, EDIPartyNameType:
		content, err := n.Content()
		if err != nil {
			return nil, err
		}
		return &OpaqueName{NameType: t, Content: content}, nil
	default:
		return nil, fmt.Errorf("%w: unknown general name tag %d", x509asn1.ErrDecode, n.Tag)
	}
}

// GeneralNames is an ordered list of general names.
type GeneralNames []GeneralName

// Encode encodes the names as a SEQUENCE.
func (g GeneralNames) Encode() (x509asn1.Node, error) {
	nodes := make([]x509asn1.Node, 0, len(g))
	for _, name := range g {
		n, err := name.Encode()
		if err != nil {
			return x509asn1.Node{}, err
		}
		nodes = append(nodes, n)
	}
	return x509asn1.Sequence(nodes...), nil
}

func (g GeneralNames) String() string {
	parts := make([]string, len(g))
	for i, name := range g {
		parts[i] = name.String()
	}
	return strings.Join(parts, ", ")
}

// DecodeGeneralNames decodes a GeneralNames sequence.
func DecodeGeneralNames(n x509asn1.Node) (GeneralNames, error) {
	elements, err := x509asn1.DecodeSequence(n, 1, math.MaxInt)
	if err != nil {
		return nil, err
	}
	names := make(GeneralNames, 0, len(elements))
	for _, element := range elements {
		name, err := DecodeGeneralName(element)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}
