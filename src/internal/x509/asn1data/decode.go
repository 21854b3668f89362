// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509asn1

import (
	"encoding/asn1"
	"fmt"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
)

// DecodeSequence returns the elements of n.
//
// A SEQUENCE node is expanded into its children in order. Any other node is
// treated as a sequence holding just that node. The element count must lie
// within [min, max].
//
// Parameters:
//   - n: Node to decode
//   - min: Minimum number of elements
//   - max: Maximum number of elements
//
// Returns:
//   - []Node: The sequence elements
//   - error: [ErrDecode] if n is malformed or the count is out of range
func DecodeSequence(n Node, min, max int) ([]Node, error) {
	var elements []Node
	if n.IsSequence() {
		children, err := n.Children()
		if err != nil {
			return nil, err
		}
		elements = children
	} else {
		elements = []Node{n}
	}
	if len(elements) < min || len(elements) > max {
		return nil, fmt.Errorf("%w: sequence has %d elements, expected %d..%d", ErrDecode, len(elements), min, max)
	}
	return elements, nil
}

// DecodeTagged unwraps an explicitly tagged node.
//
// The node must be a context-specific constructed element with tag number
// tagNo holding exactly one inner element, which is returned.
func DecodeTagged(n Node, tagNo int) (Node, error) {
	if n.Class != asn1.ClassContextSpecific || !n.Compound {
		return Node{}, fmt.Errorf("%w: expected tagged object [%d], got class %d tag %d", ErrDecode, tagNo, n.Class, n.Tag)
	}
	if n.Tag != tagNo {
		return Node{}, fmt.Errorf("%w: unexpected tag number %d (expected %d)", ErrDecode, n.Tag, tagNo)
	}
	children, err := n.Children()
	if err != nil {
		return Node{}, err
	}
	if len(children) != 1 {
		return Node{}, fmt.Errorf("%w: tagged object [%d] holds %d elements", ErrDecode, tagNo, len(children))
	}
	return children[0], nil
}

// DecodeImplicit checks that n is context-specific with tag number tagNo and
// returns it re-typed as the universal type it implicitly replaces.
func DecodeImplicit(n Node, tagNo, universalTag int) (Node, error) {
	if n.Class != asn1.ClassContextSpecific {
		return Node{}, fmt.Errorf("%w: expected implicitly tagged object [%d], got class %d", ErrDecode, tagNo, n.Class)
	}
	if n.Tag != tagNo {
		return Node{}, fmt.Errorf("%w: unexpected tag number %d (expected %d)", ErrDecode, n.Tag, tagNo)
	}
	out := n
	out.Class = asn1.ClassUniversal
	out.Tag = universalTag
	return out, nil
}

func expectPrimitive(n Node, tag int, what string) ([]byte, error) {
	if !n.Is(asn1.ClassUniversal, tag) || n.Compound {
		return nil, fmt.Errorf("%w: expected %s, got class %d tag %d", ErrDecode, what, n.Class, n.Tag)
	}
	return n.Content()
}

// DecodeInteger decodes an INTEGER.
//
// An OCTET STRING node is accepted as well and its content is read as a
// big-endian two's complement integer. Some encoders emit integers that way.
func DecodeInteger(n Node) (*big.Int, error) {
	var content []byte
	var err error
	if n.Is(asn1.ClassUniversal, asn1.TagOctetString) && !n.Compound {
		content, err = n.Content()
	} else {
		content, err = expectPrimitive(n, asn1.TagInteger, "INTEGER")
	}
	if err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: empty integer", ErrDecode)
	}
	v := new(big.Int).SetBytes(content)
	if content[0]&0x80 != 0 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(len(content))*8))
	}
	return v, nil
}

// DecodeOctetString decodes an OCTET STRING.
func DecodeOctetString(n Node) ([]byte, error) {
	return expectPrimitive(n, asn1.TagOctetString, "OCTET STRING")
}

// DecodeBoolean decodes a BOOLEAN.
func DecodeBoolean(n Node) (bool, error) {
	content, err := expectPrimitive(n, asn1.TagBoolean, "BOOLEAN")
	if err != nil {
		return false, err
	}
	if len(content) != 1 {
		return false, fmt.Errorf("%w: invalid boolean length %d", ErrDecode, len(content))
	}
	return content[0] != 0, nil
}

// DecodeOID decodes an OBJECT IDENTIFIER.
func DecodeOID(n Node) (asn1.ObjectIdentifier, error) {
	if _, err := expectPrimitive(n, asn1.TagOID, "OBJECT IDENTIFIER"); err != nil {
		return nil, err
	}
	der, err := n.Marshal()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	var oid asn1.ObjectIdentifier
	s := cryptobyte.String(der)
	if !s.ReadASN1ObjectIdentifier(&oid) {
		return nil, fmt.Errorf("%w: malformed object identifier", ErrDecode)
	}
	return oid, nil
}

// DecodeBitString decodes a BIT STRING.
func DecodeBitString(n Node) (asn1.BitString, error) {
	content, err := expectPrimitive(n, asn1.TagBitString, "BIT STRING")
	if err != nil {
		return asn1.BitString{}, err
	}
	if len(content) == 0 {
		return asn1.BitString{}, fmt.Errorf("%w: empty bit string", ErrDecode)
	}
	unused := int(content[0])
	if unused > 7 || (len(content) == 1 && unused > 0) {
		return asn1.BitString{}, fmt.Errorf("%w: invalid bit string padding", ErrDecode)
	}
	return asn1.BitString{Bytes: content[1:], BitLength: (len(content)-1)*8 - unused}, nil
}

// DecodeIA5String decodes an IA5String.
func DecodeIA5String(n Node) (string, error) {
	content, err := expectPrimitive(n, asn1.TagIA5String, "IA5String")
	if err != nil {
		return "", err
	}
	for _, c := range content {
		if c >= 0x80 {
			return "", fmt.Errorf("%w: non-ASCII character in IA5String", ErrDecode)
		}
	}
	return string(content), nil
}
