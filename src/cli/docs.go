// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package cli provides the command-line interface of the certificate manager.
// It implements a Cobra command tree over a certificate store: listing the
// issuer forest, importing files in any supported format, exporting entries,
// renaming, deleting and re-encrypting keys. Configuration comes from the
// config package and core warnings go to the supplied logger.
package cli
