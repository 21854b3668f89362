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

// Encoder is implemented by every type that can be represented as an ASN.1 node.
type Encoder interface {
	// Encode builds the node tree for the receiver.
	Encode() (Node, error)
}

// GetEncoded serializes the node returned by e.Encode to DER.
func GetEncoded(e Encoder) ([]byte, error) {
	n, err := e.Encode()
	if err != nil {
		return nil, err
	}
	der, err := n.Marshal()
	if err != nil {
		return nil, fmt.Errorf("x509asn1: failed to serialize node: %w", err)
	}
	return der, nil
}

// Sequence builds a SEQUENCE holding children in order.
func Sequence(children ...Node) Node {
	return Node{
		Class:    asn1.ClassUniversal,
		Tag:      asn1.TagSequence,
		Compound: true,
		children: children,
		built:    true,
	}
}

// Set builds a SET holding children in the given order.
func Set(children ...Node) Node {
	n := Sequence(children...)
	n.Tag = asn1.TagSet
	return n
}

// Explicit wraps inner in a context-specific constructed tag.
func Explicit(tag int, inner Node) Node {
	return Node{
		Class:    asn1.ClassContextSpecific,
		Tag:      tag,
		Compound: true,
		children: []Node{inner},
		built:    true,
	}
}

// Implicit replaces the identifier of n with a context-specific tag.
func Implicit(tag int, n Node) Node {
	n.Class = asn1.ClassContextSpecific
	n.Tag = tag
	return n
}

// primitive runs add against a fresh builder and parses the result back into a node.
func primitive(add func(b *cryptobyte.Builder)) Node {
	b := cryptobyte.NewBuilder(nil)
	add(b)
	der, err := b.Bytes()
	if err != nil {
		return Node{err: err}
	}
	n, err := Parse(der)
	if err != nil {
		return Node{err: err}
	}
	return n
}

// Integer builds an INTEGER.
func Integer(v *big.Int) Node {
	if v == nil {
		return Node{err: fmt.Errorf("x509asn1: nil integer")}
	}
	return primitive(func(b *cryptobyte.Builder) { b.AddASN1BigInt(v) })
}

// Int64 builds an INTEGER from v.
func Int64(v int64) Node {
	return primitive(func(b *cryptobyte.Builder) { b.AddASN1Int64(v) })
}

// OctetString builds an OCTET STRING.
func OctetString(v []byte) Node {
	return primitive(func(b *cryptobyte.Builder) { b.AddASN1OctetString(v) })
}

// Boolean builds a BOOLEAN.
func Boolean(v bool) Node {
	return primitive(func(b *cryptobyte.Builder) { b.AddASN1Boolean(v) })
}

// OID builds an OBJECT IDENTIFIER.
func OID(oid asn1.ObjectIdentifier) Node {
	return primitive(func(b *cryptobyte.Builder) { b.AddASN1ObjectIdentifier(oid) })
}

// BitString builds a BIT STRING. Bits past BitLength are cleared.
func BitString(bs asn1.BitString) Node {
	size := (bs.BitLength + 7) / 8
	if bs.BitLength < 0 || len(bs.Bytes) < size {
		return Node{err: fmt.Errorf("x509asn1: bit string of %d bits holds only %d bytes", bs.BitLength, len(bs.Bytes))}
	}
	unused := (8 - bs.BitLength%8) % 8
	content := make([]byte, 1, 1+size)
	content[0] = byte(unused)
	content = append(content, bs.Bytes[:size]...)
	if size > 0 {
		content[size] &= 0xff << unused
	}
	return Raw(asn1.ClassUniversal, asn1.TagBitString, false, content)
}

// IA5String builds an IA5String.
func IA5String(s string) Node {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return Node{err: fmt.Errorf("x509asn1: non-ASCII character in IA5String %q", s)}
		}
	}
	return Raw(asn1.ClassUniversal, asn1.TagIA5String, false, []byte(s))
}
