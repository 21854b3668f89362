// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package x509ext implements the [X.509] certificate and CRL extension values the
// certificate manager displays and edits: general names, CRL distribution points,
// reason flags, basic constraints, key usages and key identifiers.
//
// Each type decodes from and encodes to an [x509asn1.Node], so a value read from a
// certificate re-encodes to the same DER.
//
// [X.509]: https://grokipedia.com/page/X.509
package x509ext
