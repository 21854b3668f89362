// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package x509asn1 provides the primitive [ASN.1] decode and encode helpers that the
// certificate field types are built from.
//
// Decoding works on [Node] values, a thin tree view over DER data. Callers compose
// [DecodeSequence], [DecodeTagged], [DecodeImplicit] and the primitive decoders to
// validate a fixed-shape structure without re-checking tags and lengths themselves.
// Every failure wraps [ErrDecode].
//
// Encoding goes the other way: a type implements [Encoder] by returning a [Node] tree,
// and [GetEncoded] serializes that tree to DER using [cryptobyte].
//
// [ASN.1]: https://grokipedia.com/page/ASN.1
// [cryptobyte]: https://pkg.go.dev/golang.org/x/crypto/cryptobyte
package x509asn1
