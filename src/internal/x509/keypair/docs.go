// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package x509keypair reunites private keys with their public keys.
//
// Keys read from different files (a .key file and a certificate, a PKCS#12 key bag
// and a loose public key) carry no link to each other. The [Resolver] signs a fixed
// test message once per private key and tries to verify that signature with every
// public key of the same algorithm family; a successful verification is a match.
//
// The scan is a nested loop over all private and public keys. It is bounded by the
// number of keys in one store, so no index is kept.
package x509keypair
