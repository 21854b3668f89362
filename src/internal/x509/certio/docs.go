// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package certio reads and writes certificate objects in the supported file formats.
//
// Every format is a named provider. A [Reader] turns bytes into an
// [x509certs.ObjectStore] and a [Writer] serializes one back. Providers are
// kept in a [Registry] built once at startup by [DefaultRegistry]:
//
//	reg := certio.DefaultRegistry(log)
//	res, err := reg.ReadFile("server.p12", certio.StaticPassword([]byte("secret")))
//	if err != nil {
//		return err
//	}
//	if !res.Found() {
//		return fmt.Errorf("unrecognized file")
//	}
//
// A reader that does not recognize its input returns a nil store and a nil
// error. Input is buffered in memory up to [DefaultReadLimit] bytes; larger
// inputs fail with [ErrResourceLimitExceeded].
//
// [ReadServer] is the one non-file source: it returns the chain a TLS server
// presents during the handshake.
//
// Encrypted inputs ask a [PasswordCallback] for passwords. A callback
// returning nil cancels the operation with [ErrPasswordCancelled].
//
// Providers and registries are not synchronized; callers running reads in
// parallel must serialize access.
package certio
