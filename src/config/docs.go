// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package config loads the certificate manager configuration.
//
// A configuration file is optional. When present it is JSON or YAML,
// selected by its extension (.json, .yaml or .yml):
//
//	store:
//	  path: /var/lib/certmgr
//	io:
//	  readLimit: 1048576
//	x500:
//	  oidFile: /etc/certmgr/oids.properties
//	export:
//	  defaultProvider: PEM
//
// The CERTMGR_CONFIG_FILE environment variable names the file when no path
// is given. CERTMGR_STORE and CERTMGR_OID_FILE override the store path and
// the OID override file.
package config
