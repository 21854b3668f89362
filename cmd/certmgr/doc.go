// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
// Use of this source code is governed by a BSD 3-Clause
// license that can be found in the LICENSE file.

// certmgr is a command-line tool for keeping X.509 certificates, keys,
// signing requests and revocation lists in a directory store.
//
// # Installation
//
// Install with Go 1.25.5 or later:
//
//	go install github.com/H0llyW00dzZ/x509-cert-manager/cmd/certmgr@latest
//
// # Usage
//
//	certmgr [--config FILE] [--store DIR] [--password PW] COMMAND
//
// # Commands
//
//	list       Show the store as an issuer tree (--format tree|table|json)
//	show       Show one entry
//	import     Import PEM, DER, PKCS#7, PKCS#12 or JKS files (- reads stdin)
//	export     Export entries with a writer (--format PEM|DER|PKCS12|JKS)
//	rename     Rename an entry; the new alias must stay inside the store
//	delete     Delete entries
//	passwd     Change the password protecting an entry's key
//	names      List distinguished name attributes or normalize a name
//	providers  List the registered readers and writers
//
// # Environment Variables
//
//	CERTMGR_CONFIG_FILE  Path to configuration file (alternative to --config)
//	CERTMGR_STORE        Store directory
//	CERTMGR_OID_FILE     OID override properties file
//	CERTMGR_PASSWORD     Password (alternative to --password)
//
// # Examples
//
// Import a PKCS#12 bundle and show the result:
//
//	certmgr import server.p12 --alias web --password changeit
//	certmgr list --format table
//
// Export an entry as a Java key store:
//
//	certmgr export web --format JKS --encrypt --password changeit --out web.jks
package main
