// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package x509store keeps certificate entries in a directory and links them
// into an issuer forest.
//
// Every entry is addressed by an alias. Its objects live directly under the
// store root as <alias>.crt, <alias>.key, <alias>.csr and <alias>.crl, all
// PEM encoded:
//
//	st, err := x509store.Open("/var/lib/certmgr", reg, dict, log)
//	if err != nil {
//		return err
//	}
//	for _, root := range st.Roots() {
//		fmt.Println(root.Alias(), len(st.Issued(root)))
//	}
//
// The issuer of an entry is not stored. It is derived whenever the store
// changes by comparing issuer and subject names and checking the
// certificate signature. Issuers named by a certificate but missing from
// the store show up as external placeholder entries.
//
// A Store is not safe for concurrent use.
package x509store
