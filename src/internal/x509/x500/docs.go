// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package x500 converts [X.500] distinguished names between their encoded RDN
// sequence form and [RFC 2253] strings.
//
// Attribute types are resolved through a [Dictionary] built once by [Init] from a
// bundled properties table and an optional operator supplied override file. Each
// dictionary line maps an OID to a comma separated list of aliases; the first alias
// is the one used when rendering names, while every alias is accepted when parsing.
//
// RDN order is preserved exactly in both directions and values are not normalized
// beyond the quoting rules of RFC 2253.
//
// [X.500]: https://grokipedia.com/page/X.500
// [RFC 2253]: https://www.rfc-editor.org/rfc/rfc2253
package x500
