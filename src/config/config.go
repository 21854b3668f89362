// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/certio"
	"gopkg.in/yaml.v3"
)

// Environment variables read by [Load].
const (
	EnvConfigFile = "CERTMGR_CONFIG_FILE"
	EnvStore      = "CERTMGR_STORE"
	EnvOIDFile    = "CERTMGR_OID_FILE"
)

// DefaultProvider is the writer used by exports that name none.
const DefaultProvider = "PEM"

// configFormat represents supported configuration file formats.
type configFormat int

const (
	// configFormatJSON represents JSON configuration format (.json)
	configFormatJSON configFormat = iota
	// configFormatYAML represents YAML configuration format (.yaml, .yml)
	configFormatYAML
)

// Config is the certificate manager configuration.
type Config struct {
	// Store: Location of the certificate store
	Store struct {
		// Path: Store root directory
		Path string `json:"path" yaml:"path"`
	} `json:"store" yaml:"store"`

	// IO: Limits applied when reading certificate files
	IO struct {
		// ReadLimit: Maximum number of bytes read from one input
		ReadLimit int64 `json:"readLimit" yaml:"readLimit"`
	} `json:"io" yaml:"io"`

	// X500: Distinguished name rendering
	X500 struct {
		// OIDFile: Optional properties file mapping OIDs to attribute names
		OIDFile string `json:"oidFile,omitempty" yaml:"oidFile,omitempty"`
	} `json:"x500" yaml:"x500"`

	// Export: Export defaults
	Export struct {
		// DefaultProvider: Writer used when an export names none
		DefaultProvider string `json:"defaultProvider" yaml:"defaultProvider"`
	} `json:"export" yaml:"export"`
}

// detectConfigFormat determines the configuration file format from its
// extension, case-insensitively.
func detectConfigFormat(configPath string) configFormat {
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		return configFormatYAML
	default:
		return configFormatJSON
	}
}

// unmarshalConfig unmarshals configuration data based on the specified format.
func unmarshalConfig(data []byte, config *Config, format configFormat) error {
	switch format {
	case configFormatYAML:
		if err := yaml.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse YAML config file: %w", err)
		}
	default:
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("failed to parse JSON config file: %w", err)
		}
	}
	return nil
}

// DefaultStorePath returns the store used when none is configured:
// certmgr/store under the user configuration directory, or .certmgr in the
// working directory when that is unknown.
func DefaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".certmgr"
	}
	return filepath.Join(dir, "certmgr", "store")
}

// Load loads the configuration from a JSON or YAML file or applies defaults.
//
// Parameters:
//   - configPath: Path to the configuration file (optional, can be empty)
//
// Returns:
//   - *Config: The loaded configuration with defaults applied
//   - error: An error if the configuration file cannot be read or parsed
//
// Configuration Priority:
//  1. Default values are set
//  2. CERTMGR_CONFIG_FILE environment variable is checked if configPath is empty
//  3. Config file values override defaults
//  4. CERTMGR_STORE and CERTMGR_OID_FILE override config file values
func Load(configPath string) (*Config, error) {
	config := &Config{}
	config.Store.Path = DefaultStorePath()
	config.IO.ReadLimit = certio.DefaultReadLimit
	config.Export.DefaultProvider = DefaultProvider

	if configPath == "" {
		configPath = os.Getenv(EnvConfigFile)
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := unmarshalConfig(data, config, detectConfigFormat(configPath)); err != nil {
			return nil, err
		}

		if config.IO.ReadLimit <= 0 {
			config.IO.ReadLimit = certio.DefaultReadLimit
		}
		if config.Export.DefaultProvider == "" {
			config.Export.DefaultProvider = DefaultProvider
		}
		if config.Store.Path == "" {
			config.Store.Path = DefaultStorePath()
		}
	}

	if v := os.Getenv(EnvStore); v != "" {
		config.Store.Path = v
	}
	if v := os.Getenv(EnvOIDFile); v != "" {
		config.X500.OIDFile = v
	}

	return config, nil
}
