// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x500

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

const specialChars = ",+\"\\<>;"

// ToString renders rdns as an RFC 2253 string.
//
// RDNs are written last to first as RFC 2253 requires. Attribute types found in
// the dictionary are written with their canonical alias and string values are
// escaped. Unknown types are written as dotted OIDs with a #hex value.
func (d *Dictionary) ToString(rdns pkix.RDNSequence) string {
	parts := make([]string, 0, len(rdns))
	for i := len(rdns) - 1; i >= 0; i-- {
		atvs := make([]string, len(rdns[i]))
		for j, atv := range rdns[i] {
			atvs[j] = d.formatAttribute(atv)
		}
		parts = append(parts, strings.Join(atvs, "+"))
	}
	return strings.Join(parts, ",")
}

// DERToString parses an encoded name and renders it with [Dictionary.ToString].
func (d *Dictionary) DERToString(der []byte) (string, error) {
	rdns, err := ParseDER(der)
	if err != nil {
		return "", err
	}
	return d.ToString(rdns), nil
}

func (d *Dictionary) formatAttribute(atv pkix.AttributeTypeAndValue) string {
	if name, ok := d.Name(atv.Type); ok {
		if s, ok := atv.Value.(string); ok {
			return name + "=" + escapeValue(s)
		}
		return name + "=" + hexValue(atv.Value)
	}
	return atv.Type.String() + "=" + hexValue(atv.Value)
}

func hexValue(v any) string {
	der, err := asn1.Marshal(v)
	if err != nil {
		return "#"
	}
	return "#" + hex.EncodeToString(der)
}

func escapeValue(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case strings.ContainsRune(specialChars, r):
			b.WriteByte('\\')
			b.WriteRune(r)
		case i == 0 && (r == '#' || r == ' '):
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == ' ' && i+size == len(s):
			b.WriteString("\\ ")
		case r < 0x20 || r == 0x7f || r == utf8.RuneError && size == 1:
			for _, c := range []byte(s[i : i+size]) {
				fmt.Fprintf(&b, "\\%02x", c)
			}
		default:
			b.WriteRune(r)
		}
		i += size
	}
	return b.String()
}

// FromString parses an RFC 2253 string. Any alias of a dictionary entry and
// dotted OIDs are accepted as attribute types.
func (d *Dictionary) FromString(name string) (pkix.RDNSequence, error) {
	p := &dnParser{s: name, dict: d}
	rdns := pkix.RDNSequence{}
	p.skipSpaces()
	if p.eof() {
		return rdns, nil
	}
	for {
		rdn, err := p.parseRDN()
		if err != nil {
			return nil, err
		}
		rdns = append(rdns, rdn)
		p.skipSpaces()
		if p.eof() {
			break
		}
		if c := p.next(); c != ',' && c != ';' {
			return nil, p.errorf("unexpected %q", c)
		}
	}
	for i, j := 0, len(rdns)-1; i < j; i, j = i+1, j-1 {
		rdns[i], rdns[j] = rdns[j], rdns[i]
	}
	return rdns, nil
}

type dnParser struct {
	s    string
	pos  int
	dict *Dictionary
}

func (p *dnParser) eof() bool  { return p.pos >= len(p.s) }
func (p *dnParser) peek() byte { return p.s[p.pos] }

func (p *dnParser) next() byte {
	c := p.s[p.pos]
	p.pos++
	return c
}

func (p *dnParser) skipSpaces() {
	for !p.eof() && p.peek() == ' ' {
		p.pos++
	}
}

func (p *dnParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s at offset %d in %q", ErrInvalidName, fmt.Sprintf(format, args...), p.pos, p.s)
}

func (p *dnParser) parseRDN() (pkix.RelativeDistinguishedNameSET, error) {
	var rdn pkix.RelativeDistinguishedNameSET
	for {
		atv, err := p.parseAttribute()
		if err != nil {
			return nil, err
		}
		rdn = append(rdn, atv)
		p.skipSpaces()
		if p.eof() || p.peek() != '+' {
			return rdn, nil
		}
		p.pos++
	}
}

func (p *dnParser) parseAttribute() (pkix.AttributeTypeAndValue, error) {
	p.skipSpaces()
	start := p.pos
	for !p.eof() && p.peek() != '=' {
		p.pos++
	}
	if p.eof() {
		return pkix.AttributeTypeAndValue{}, p.errorf("missing '='")
	}
	keyword := strings.TrimSpace(p.s[start:p.pos])
	p.pos++

	oid, err := p.resolveType(keyword)
	if err != nil {
		return pkix.AttributeTypeAndValue{}, err
	}

	p.skipSpaces()
	var value any
	switch {
	case !p.eof() && p.peek() == '#':
		value, err = p.parseHexValue()
	case !p.eof() && p.peek() == '"':
		value, err = p.parseQuotedValue()
	default:
		value, err = p.parseStringValue()
	}
	if err != nil {
		return pkix.AttributeTypeAndValue{}, err
	}
	return pkix.AttributeTypeAndValue{Type: oid, Value: value}, nil
}

func (p *dnParser) resolveType(keyword string) (asn1.ObjectIdentifier, error) {
	if keyword == "" {
		return nil, p.errorf("empty attribute type")
	}
	if strings.HasPrefix(strings.ToUpper(keyword), "OID.") {
		keyword = keyword[4:]
	}
	if keyword[0] >= '0' && keyword[0] <= '9' {
		oid, err := parseOID(keyword)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidName, err)
		}
		return oid, nil
	}
	oid, ok := p.dict.OID(keyword)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAttributeType, keyword)
	}
	return oid, nil
}

func (p *dnParser) parseHexValue() (any, error) {
	p.pos++
	start := p.pos
	for !p.eof() && isHex(p.peek()) {
		p.pos++
	}
	der, err := hex.DecodeString(p.s[start:p.pos])
	if err != nil || len(der) == 0 {
		return nil, p.errorf("invalid hex value")
	}
	var raw asn1.RawValue
	rest, err := asn1.Unmarshal(der, &raw)
	if err != nil || len(rest) > 0 {
		return nil, p.errorf("hex value is not a single BER element")
	}
	return raw, nil
}

func (p *dnParser) parseQuotedValue() (any, error) {
	p.pos++
	var buf []byte
	for {
		if p.eof() {
			return nil, p.errorf("unterminated quoted value")
		}
		c := p.next()
		switch c {
		case '"':
			return string(buf), nil
		case '\\':
			b, err := p.parseEscape()
			if err != nil {
				return nil, err
			}
			buf = append(buf, b)
		default:
			buf = append(buf, c)
		}
	}
}

func (p *dnParser) parseStringValue() (any, error) {
	var buf []byte
	significant := 0
	for !p.eof() {
		c := p.peek()
		if c == ',' || c == ';' || c == '+' {
			break
		}
		p.pos++
		if c == '\\' {
			b, err := p.parseEscape()
			if err != nil {
				return nil, err
			}
			buf = append(buf, b)
			significant = len(buf)
			continue
		}
		buf = append(buf, c)
		if c != ' ' {
			significant = len(buf)
		}
	}
	return string(buf[:significant]), nil
}

// parseEscape decodes the character following a backslash.
func (p *dnParser) parseEscape() (byte, error) {
	if p.eof() {
		return 0, p.errorf("dangling escape")
	}
	c := p.next()
	if isHex(c) && !p.eof() && isHex(p.peek()) {
		b, _ := hex.DecodeString(string([]byte{c, p.next()}))
		return b[0], nil
	}
	if strings.IndexByte(specialChars+" #=", c) >= 0 {
		return c, nil
	}
	return 0, p.errorf("invalid escape sequence \\%c", c)
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// attributeTypeAndValue keeps the raw value so no encoding is lost while parsing.
type attributeTypeAndValue struct {
	Type  asn1.ObjectIdentifier
	Value asn1.RawValue
}

type attributeSET []attributeTypeAndValue

// ParseDER decodes an encoded Name. String values of any ASN.1 string type are
// converted to Go strings; other values are kept as [asn1.RawValue].
func ParseDER(der []byte) (pkix.RDNSequence, error) {
	var sets []attributeSET
	rest, err := asn1.Unmarshal(der, &sets)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidName)
	}

	rdns := make(pkix.RDNSequence, 0, len(sets))
	for _, set := range sets {
		rdn := make(pkix.RelativeDistinguishedNameSET, 0, len(set))
		for _, atv := range set {
			value, err := decodeValue(atv.Value)
			if err != nil {
				return nil, err
			}
			rdn = append(rdn, pkix.AttributeTypeAndValue{Type: atv.Type, Value: value})
		}
		rdns = append(rdns, rdn)
	}
	return rdns, nil
}

func decodeValue(raw asn1.RawValue) (any, error) {
	if raw.Class != asn1.ClassUniversal || raw.IsCompound {
		return raw, nil
	}
	switch raw.Tag {
	case asn1.TagPrintableString, asn1.TagUTF8String, asn1.TagIA5String, asn1.TagNumericString:
		return string(raw.Bytes), nil
	case asn1.TagT61String:
		s, err := charmap.ISO8859_1.NewDecoder().Bytes(raw.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidName, err)
		}
		return string(s), nil
	case asn1.TagBMPString:
		s, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().Bytes(raw.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidName, err)
		}
		return string(s), nil
	case 28: // UniversalString
		s, err := utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM).NewDecoder().Bytes(raw.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidName, err)
		}
		return string(s), nil
	}
	return raw, nil
}
