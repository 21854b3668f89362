// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package x509certs holds the certificate object model.
//
// Every read operation produces an [ObjectStore]: an ordered list of typed
// [Object] values (certificates, key pairs, signing requests and revocation
// lists). Key halves read separately are merged into one key pair by
// signature matching, see [x509keypair.Resolver].
//
// [DecodePKCS7] unpacks the [X.509] certificates of a [PKCS7] bundle for the
// PEM and DER readers.
//
// [X.509]: https://grokipedia.com/page/X.509
// [PKCS7]: https://grokipedia.com/page/PKCS_7
package x509certs
