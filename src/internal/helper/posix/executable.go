// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package posix

import (
	"os"
	"path/filepath"
	"strings"
)

// ExecutableName returns the name of the running program without directory
// or .exe suffix.
//
// Windows style paths are split on both separators so they resolve the same
// way on Unix hosts.
//
// Parameters:
//   - fallback: Name returned when os.Args[0] is missing or empty
//
// Returns:
//   - string: Program name suitable for CLI usage lines
func ExecutableName(fallback string) string {
	if len(os.Args) == 0 || os.Args[0] == "" {
		return fallback
	}

	name := filepath.Base(os.Args[0])
	if strings.ContainsAny(name, `/\`) {
		parts := strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' })
		if len(parts) > 0 {
			name = parts[len(parts)-1]
		}
	}

	name = strings.TrimSuffix(name, ".exe")
	if name == "" || name == "." || name == string(filepath.Separator) {
		return fallback
	}
	return name
}
