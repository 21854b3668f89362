// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509ext

import (
	"encoding/asn1"
	"strings"

	x509asn1 "github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/asn1data"
)

// ReasonFlag is a single bit of a ReasonFlags bit string.
type ReasonFlag int

// Reason flag bit positions.
const (
	Unused ReasonFlag = iota
	KeyCompromise
	CACompromise
	AffiliationChanged
	Superseded
	CessationOfOperation
	CertificateHold
	PrivilegeWithdrawn
	AACompromise
)

var reasonFlagNames = [...]string{
	"unused", "keyCompromise", "cACompromise", "affiliationChanged", "superseded",
	"cessationOfOperation", "certificateHold", "privilegeWithdrawn", "aACompromise",
}

func (f ReasonFlag) String() string {
	if f < 0 || int(f) >= len(reasonFlagNames) {
		return "unknown"
	}
	return reasonFlagNames[f]
}

// ReasonFlags is a set of revocation reasons.
type ReasonFlags struct{ bits uint16 }

// NewReasonFlags creates a set holding flags.
func NewReasonFlags(flags ...ReasonFlag) ReasonFlags {
	var r ReasonFlags
	for _, f := range flags {
		r.bits |= 1 << uint(f)
	}
	return r
}

// Has reports whether f is set.
func (r ReasonFlags) Has(f ReasonFlag) bool { return r.bits&(1<<uint(f)) != 0 }

// Flags returns the set flags in bit order.
func (r ReasonFlags) Flags() []ReasonFlag {
	var flags []ReasonFlag
	for f := Unused; f <= AACompromise; f++ {
		if r.Has(f) {
			flags = append(flags, f)
		}
	}
	return flags
}

func (r ReasonFlags) String() string {
	flags := r.Flags()
	names := make([]string, len(flags))
	for i, f := range flags {
		names[i] = f.String()
	}
	return strings.Join(names, ", ")
}

// Encode encodes the flags as a named bit list with trailing zero bits removed.
func (r ReasonFlags) Encode() (x509asn1.Node, error) {
	return x509asn1.BitString(namedBits(uint(r.bits), int(AACompromise)+1)), nil
}

// DecodeReasonFlags decodes a ReasonFlags bit string.
func DecodeReasonFlags(n x509asn1.Node) (ReasonFlags, error) {
	bs, err := x509asn1.DecodeBitString(n)
	if err != nil {
		return ReasonFlags{}, err
	}
	var r ReasonFlags
	for i := 0; i < bs.BitLength && i <= int(AACompromise); i++ {
		if bs.At(i) == 1 {
			r.bits |= 1 << uint(i)
		}
	}
	return r, nil
}

// namedBits converts a bit mask (bit 0 first) into a DER named bit list.
func namedBits(mask uint, size int) asn1.BitString {
	length := 0
	for i := 0; i < size; i++ {
		if mask&(1<<uint(i)) != 0 {
			length = i + 1
		}
	}
	bs := asn1.BitString{Bytes: make([]byte, (length+7)/8), BitLength: length}
	for i := 0; i < length; i++ {
		if mask&(1<<uint(i)) != 0 {
			bs.Bytes[i/8] |= 0x80 >> uint(i%8)
		}
	}
	return bs
}
