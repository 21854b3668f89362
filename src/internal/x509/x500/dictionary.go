// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x500

import (
	"bytes"
	_ "embed"
	"encoding/asn1"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/magiconair/properties"

	"github.com/H0llyW00dzZ/x509-cert-manager/src/logger"
)

//go:embed oids.properties
var builtinOIDs []byte

var (
	// ErrInvalidDictionary is returned when the bundled dictionary cannot be loaded.
	ErrInvalidDictionary = errors.New("x500: invalid OID dictionary")
	// ErrUnknownAttributeType is returned when a name uses an unknown attribute keyword.
	ErrUnknownAttributeType = errors.New("x500: unknown attribute type")
	// ErrInvalidName is returned for malformed distinguished name strings.
	ErrInvalidName = errors.New("x500: invalid distinguished name")
)

// Dictionary maps attribute type OIDs to their aliases and back.
//
// A Dictionary is immutable after [Init] returns and is safe for concurrent use.
type Dictionary struct {
	oids    map[string]string
	names   map[string]asn1.ObjectIdentifier
	aliases map[string]struct{}
}

// Init builds a dictionary from the builtin properties table and merges the
// optional override file at overridePath on top of it.
//
// Parameters:
//   - builtin: Bundled dictionary; failing to read or parse it is fatal
//   - overridePath: Optional user dictionary; empty disables it
//   - log: Receives a warning when the override file cannot be used
//
// Returns:
//   - *Dictionary: The merged dictionary
//   - error: [ErrInvalidDictionary] if the builtin table is unusable
func Init(builtin io.Reader, overridePath string, log logger.Logger) (*Dictionary, error) {
	if log == nil {
		log = logger.Nop()
	}

	data, err := io.ReadAll(builtin)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDictionary, err)
	}

	d := &Dictionary{
		oids:    make(map[string]string),
		names:   make(map[string]asn1.ObjectIdentifier),
		aliases: make(map[string]struct{}),
	}
	if err := d.merge(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDictionary, err)
	}

	if overridePath != "" {
		data, err := os.ReadFile(overridePath)
		if err == nil {
			err = d.merge(data)
		}
		if err != nil {
			log.Warnf("Ignoring OID override file %s: %v", overridePath, err)
		}
	}
	return d, nil
}

// Default builds a dictionary from the bundled table.
func Default(overridePath string, log logger.Logger) (*Dictionary, error) {
	return Init(bytes.NewReader(builtinOIDs), overridePath, log)
}

// merge adds the entries of a properties document; later entries win.
func (d *Dictionary) merge(data []byte) error {
	p, err := properties.Load(data, properties.UTF8)
	if err != nil {
		return err
	}
	p.DisableExpansion = true

	type entry struct {
		oid     asn1.ObjectIdentifier
		aliases []string
	}
	var entries []entry
	for _, key := range p.Keys() {
		oid, err := parseOID(key)
		if err != nil {
			return err
		}
		value, _ := p.Get(key)
		var aliases []string
		for _, alias := range strings.Split(value, ",") {
			if alias = strings.TrimSpace(alias); alias != "" {
				aliases = append(aliases, alias)
			}
		}
		if len(aliases) == 0 {
			return fmt.Errorf("no alias defined for %s", key)
		}
		entries = append(entries, entry{oid: oid, aliases: aliases})
	}

	for _, e := range entries {
		d.oids[e.oid.String()] = e.aliases[0]
		for _, alias := range e.aliases {
			d.names[strings.ToUpper(alias)] = e.oid
			d.aliases[alias] = struct{}{}
		}
	}
	return nil
}

// Name returns the canonical alias of oid.
func (d *Dictionary) Name(oid asn1.ObjectIdentifier) (string, bool) {
	name, ok := d.oids[oid.String()]
	return name, ok
}

// OID resolves an alias (case-insensitive) to its OID.
func (d *Dictionary) OID(name string) (asn1.ObjectIdentifier, bool) {
	oid, ok := d.names[strings.ToUpper(name)]
	return oid, ok
}

// RDNTypes returns every known attribute type alias in sorted order.
func (d *Dictionary) RDNTypes() []string {
	types := make([]string, 0, len(d.aliases))
	for alias := range d.aliases {
		types = append(types, alias)
	}
	sort.Strings(types)
	return types
}

func parseOID(s string) (asn1.ObjectIdentifier, error) {
	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid OID %q", s)
	}
	oid := make(asn1.ObjectIdentifier, len(parts))
	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("invalid OID %q", s)
		}
		oid[i] = v
	}
	return oid, nil
}
