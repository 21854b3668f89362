// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

// Package posix holds small process helpers that behave the same on every
// operating system.
//
// [ExecutableName] turns os.Args[0] into the bare program name shown in
// usage strings:
//
//	rootCmd := &cobra.Command{
//		Use: posix.ExecutableName("certmgr"),
//	}
//
// Results per platform:
//
//   - Linux/macOS: "/usr/local/bin/certmgr" → "certmgr"
//   - Windows: "C:\bin\certmgr.exe" → "certmgr"
//   - Empty args: the fallback
package posix
