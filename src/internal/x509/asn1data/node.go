// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509asn1

import (
	"encoding/asn1"
	"errors"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// ErrDecode is wrapped by every error caused by malformed ASN.1 shape:
// wrong tag, wrong element count or wrong primitive type.
var ErrDecode = errors.New("x509asn1: decoding error")

// ErrHighTagNumber is returned when encoding a node whose tag needs the
// multi-byte identifier form.
var ErrHighTagNumber = errors.New("x509asn1: high tag numbers are not supported by the encoder")

// Node is a single ASN.1 element. A node either carries its encoded content
// (parsed nodes and primitives) or a list of child nodes (constructed nodes
// built by [Sequence] and friends).
type Node struct {
	Class    int
	Tag      int
	Compound bool

	content  []byte
	children []Node
	built    bool
	err      error
}

// Parse decodes exactly one DER element from der.
func Parse(der []byte) (Node, error) {
	var raw asn1.RawValue
	rest, err := asn1.Unmarshal(der, &raw)
	if err != nil {
		return Node{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(rest) > 0 {
		return Node{}, fmt.Errorf("%w: %d bytes of trailing data", ErrDecode, len(rest))
	}
	return FromRawValue(raw), nil
}

// FromRawValue wraps an already decoded [asn1.RawValue].
func FromRawValue(raw asn1.RawValue) Node {
	return Node{Class: raw.Class, Tag: raw.Tag, Compound: raw.IsCompound, content: raw.Bytes}
}

// Raw builds a node from its identifier and encoded content.
func Raw(class, tag int, compound bool, content []byte) Node {
	return Node{Class: class, Tag: tag, Compound: compound, content: content}
}

// Is reports whether the node carries the given class and tag.
func (n Node) Is(class, tag int) bool { return n.Class == class && n.Tag == tag }

// IsSequence reports whether the node is a universal SEQUENCE.
func (n Node) IsSequence() bool {
	return n.Class == asn1.ClassUniversal && n.Tag == asn1.TagSequence && n.Compound
}

// IsContext reports whether the node is context-specific with the given tag number.
func (n Node) IsContext(tag int) bool { return n.Is(asn1.ClassContextSpecific, tag) }

// Children returns the elements contained in a constructed node.
func (n Node) Children() ([]Node, error) {
	if n.built {
		return n.children, nil
	}
	if !n.Compound {
		return nil, fmt.Errorf("%w: primitive node has no children", ErrDecode)
	}
	var nodes []Node
	rest := n.content
	for len(rest) > 0 {
		var raw asn1.RawValue
		var err error
		rest, err = asn1.Unmarshal(rest, &raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		nodes = append(nodes, FromRawValue(raw))
	}
	return nodes, nil
}

// Content returns the content octets of the node.
func (n Node) Content() ([]byte, error) {
	if !n.built {
		return n.content, nil
	}
	b := cryptobyte.NewBuilder(nil)
	for _, c := range n.children {
		c.marshal(b)
	}
	return b.Bytes()
}

// Marshal serializes the node to DER.
func (n Node) Marshal() ([]byte, error) {
	b := cryptobyte.NewBuilder(nil)
	n.marshal(b)
	return b.Bytes()
}

func (n Node) marshal(b *cryptobyte.Builder) {
	if n.err != nil {
		b.SetError(n.err)
		return
	}
	if n.Tag > 30 || n.Tag < 0 {
		b.SetError(ErrHighTagNumber)
		return
	}
	tag := cbasn1.Tag(uint8(n.Class<<6) | uint8(n.Tag))
	if n.Compound {
		tag = tag.Constructed()
	}
	b.AddASN1(tag, func(child *cryptobyte.Builder) {
		if n.built {
			for _, c := range n.children {
				c.marshal(child)
			}
			return
		}
		child.AddBytes(n.content)
	})
}

// Equal reports whether both nodes serialize to the same DER.
func (n Node) Equal(other Node) bool {
	a, errA := n.Marshal()
	b, errB := other.Marshal()
	if errA != nil || errB != nil {
		return false
	}
	return string(a) == string(b)
}
