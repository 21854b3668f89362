// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509ext

import (
	"encoding/asn1"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	x509asn1 "github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/asn1data"
)

// DistributionPointName is either a full name or a name relative to the CRL issuer.
type DistributionPointName struct {
	FullName GeneralNames
	// RelativeName holds the encoded content of nameRelativeToCRLIssuer.
	RelativeName []byte
}

// Encode encodes the CHOICE.
func (d *DistributionPointName) Encode() (x509asn1.Node, error) {
	if d.FullName != nil {
		names, err := d.FullName.Encode()
		if err != nil {
			return x509asn1.Node{}, err
		}
		return x509asn1.Implicit(0, names), nil
	}
	return x509asn1.Raw(asn1.ClassContextSpecific, 1, true, d.RelativeName), nil
}

func (d *DistributionPointName) String() string {
	if d.FullName != nil {
		return d.FullName.String()
	}
	return "relative:#" + hex.EncodeToString(d.RelativeName)
}

// DecodeDistributionPointName decodes a DistributionPointName CHOICE.
func DecodeDistributionPointName(n x509asn1.Node) (*DistributionPointName, error) {
	switch {
	case n.IsContext(0):
		seq, err := x509asn1.DecodeImplicit(n, 0, asn1.TagSequence)
		if err != nil {
			return nil, err
		}
		names, err := DecodeGeneralNames(seq)
		if err != nil {
			return nil, err
		}
		return &DistributionPointName{FullName: names}, nil
	case n.IsContext(1):
		content, err := n.Content()
		if err != nil {
			return nil, err
		}
		return &DistributionPointName{RelativeName: content}, nil
	}
	return nil, fmt.Errorf("%w: invalid distribution point name tag %d", x509asn1.ErrDecode, n.Tag)
}

// DistributionPoint is one entry of a CRL distribution points extension.
type DistributionPoint struct {
	Name      *DistributionPointName
	Reasons   *ReasonFlags
	CRLIssuer GeneralNames
}

// Encode encodes the distribution point.
func (d *DistributionPoint) Encode() (x509asn1.Node, error) {
	var nodes []x509asn1.Node
	if d.Name != nil {
		n, err := d.Name.Encode()
		if err != nil {
			return x509asn1.Node{}, err
		}
		nodes = append(nodes, x509asn1.Explicit(0, n))
	}
	if d.Reasons != nil {
		n, err := d.Reasons.Encode()
		if err != nil {
			return x509asn1.Node{}, err
		}
		nodes = append(nodes, x509asn1.Implicit(1, n))
	}
	if d.CRLIssuer != nil {
		n, err := d.CRLIssuer.Encode()
		if err != nil {
			return x509asn1.Node{}, err
		}
		nodes = append(nodes, x509asn1.Implicit(2, n))
	}
	return x509asn1.Sequence(nodes...), nil
}

func (d *DistributionPoint) String() string {
	var parts []string
	if d.Name != nil {
		parts = append(parts, d.Name.String())
	}
	if d.Reasons != nil {
		parts = append(parts, "reasons: "+d.Reasons.String())
	}
	if d.CRLIssuer != nil {
		parts = append(parts, "issuer: "+d.CRLIssuer.String())
	}
	return strings.Join(parts, "; ")
}

// DecodeDistributionPoint decodes a DistributionPoint sequence.
func DecodeDistributionPoint(n x509asn1.Node) (*DistributionPoint, error) {
	if !n.IsSequence() {
		return nil, fmt.Errorf("%w: distribution point must be a sequence", x509asn1.ErrDecode)
	}
	elements, err := x509asn1.DecodeSequence(n, 0, 3)
	if err != nil {
		return nil, err
	}
	dp := &DistributionPoint{}
	for _, element := range elements {
		switch {
		case element.IsContext(0):
			inner, err := x509asn1.DecodeTagged(element, 0)
			if err != nil {
				return nil, err
			}
			if dp.Name, err = DecodeDistributionPointName(inner); err != nil {
				return nil, err
			}
		case element.IsContext(1):
			inner, err := x509asn1.DecodeImplicit(element, 1, asn1.TagBitString)
			if err != nil {
				return nil, err
			}
			reasons, err := DecodeReasonFlags(inner)
			if err != nil {
				return nil, err
			}
			dp.Reasons = &reasons
		case element.IsContext(2):
			inner, err := x509asn1.DecodeImplicit(element, 2, asn1.TagSequence)
			if err != nil {
				return nil, err
			}
			if dp.CRLIssuer, err = DecodeGeneralNames(inner); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: unexpected distribution point element tag %d", x509asn1.ErrDecode, element.Tag)
		}
	}
	return dp, nil
}

// CRLDistributionPoints is the value of the CRL distribution points extension.
type CRLDistributionPoints []*DistributionPoint

// OID returns the extension identifier.
func (CRLDistributionPoints) OID() asn1.ObjectIdentifier { return OIDCRLDistributionPoints }

// Encode encodes the list of distribution points.
func (c CRLDistributionPoints) Encode() (x509asn1.Node, error) {
	nodes := make([]x509asn1.Node, 0, len(c))
	for _, dp := range c {
		n, err := dp.Encode()
		if err != nil {
			return x509asn1.Node{}, err
		}
		nodes = append(nodes, n)
	}
	return x509asn1.Sequence(nodes...), nil
}

func (c CRLDistributionPoints) String() string {
	parts := make([]string, len(c))
	for i, dp := range c {
		parts[i] = "[" + dp.String() + "]"
	}
	return strings.Join(parts, ", ")
}

// DecodeCRLDistributionPoints decodes the extension value.
func DecodeCRLDistributionPoints(n x509asn1.Node) (CRLDistributionPoints, error) {
	elements, err := x509asn1.DecodeSequence(n, 1, math.MaxInt)
	if err != nil {
		return nil, err
	}
	points := make(CRLDistributionPoints, 0, len(elements))
	for _, element := range elements {
		dp, err := DecodeDistributionPoint(element)
		if err != nil {
			return nil, err
		}
		points = append(points, dp)
	}
	return points, nil
}
