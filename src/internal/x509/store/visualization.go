// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509store

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// RenderTree renders the issuer forest as an ASCII tree.
//
// Each line shows a status icon, the alias, the subject and the object
// types held by the entry. Entries that are part of an issuer cycle are
// appended as extra roots.
//
// Returns:
//   - string: Tree representation of the store
func (s *Store) RenderTree() string {
	if len(s.entries) == 0 {
		return "No entries in store\n"
	}

	var result strings.Builder
	visited := make(map[*Entry]bool)
	roots := s.Roots()
	for _, e := range s.Entries() {
		if e.issuer != nil && !reachable(e, roots) {
			roots = append(roots, e)
		}
	}
	for i, root := range roots {
		s.renderNode(&result, root, "", i == len(roots)-1, visited)
	}
	return result.String()
}

// reachable reports whether walking up from e ends at one of roots.
func reachable(e *Entry, roots []*Entry) bool {
	seen := make(map[*Entry]bool)
	for e.issuer != nil && !seen[e] {
		seen[e] = true
		e = e.issuer
	}
	for _, r := range roots {
		if r == e {
			return true
		}
	}
	return false
}

func (s *Store) renderNode(b *strings.Builder, e *Entry, prefix string, isLast bool, visited map[*Entry]bool) {
	if visited[e] {
		return
	}
	visited[e] = true

	connector, indent := "├── ", "│   "
	if isLast {
		connector, indent = "└── ", "    "
	}
	b.WriteString(prefix + connector + nodeLabel(e) + "\n")

	for i, child := range e.issued {
		s.renderNode(b, child, prefix+indent, i == len(e.issued)-1, visited)
	}
}

func nodeLabel(e *Entry) string {
	if e.external {
		return "[?] " + e.subject + " (external)"
	}
	icon := "✓"
	switch {
	case e.crt == nil:
		icon = "-"
	case e.Status() != "valid":
		icon = "✗"
	}
	label := fmt.Sprintf("[%s] %s", icon, e.alias)
	if e.subject != "" {
		label += ": " + e.subject
	}
	label += " [" + strings.Join(e.Flags(), " ") + "]"
	if e.CanIssue() {
		label += " (CA)"
	}
	return label
}

// RenderTable renders the entries as a markdown table.
//
// Returns:
//   - string: Markdown table with alias, subject, issuer, expiry, key,
//     object types and status columns
func (s *Store) RenderTable() string {
	if len(s.entries) == 0 {
		return "No entries to display\n"
	}

	var buf strings.Builder
	table := tablewriter.NewTable(&buf,
		tablewriter.WithRenderer(renderer.NewMarkdown(tw.Rendition{Streaming: true})),
	)
	table.Header([]string{"Alias", "Subject", "Issuer", "Valid Until", "Key", "Objects", "Status"})

	var rows [][]string
	for _, e := range s.Entries() {
		issuer, validUntil, key := "-", "-", "-"
		if e.issuer != nil {
			issuer = e.issuer.alias
			if e.issuer.external {
				issuer = e.issuer.subject + " (external)"
			}
		}
		if e.crt != nil {
			validUntil = e.crt.NotAfter.Format("2006-01-02")
			key = keyDescription(e.crt.PublicKey)
		}
		rows = append(rows, []string{
			e.alias,
			e.subject,
			issuer,
			validUntil,
			key,
			strings.Join(e.Flags(), " "),
			e.Status(),
		})
	}

	table.Bulk(rows)
	table.Render()
	return buf.String()
}

// keyDescription formats a public key as e.g. "2048-bit RSA".
func keyDescription(pub any) string {
	algo, size := keyInfo(pub)
	if size == 0 {
		return algo
	}
	return fmt.Sprintf("%d-bit %s", size, algo)
}

func keyInfo(pub any) (string, int) {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return "RSA", k.Size() * 8
	case *ecdsa.PublicKey:
		return "ECDSA", k.Curve.Params().BitSize
	case ed25519.PublicKey:
		return "Ed25519", 256
	}
	return "unknown", 0
}

type entryJSON struct {
	Alias              string     `json:"alias"`
	Subject            string     `json:"subject"`
	Issuer             string     `json:"issuer,omitempty"`
	Objects            []string   `json:"objects"`
	CanIssue           bool       `json:"canIssue"`
	Locked             bool       `json:"locked,omitempty"`
	SerialNumber       string     `json:"serialNumber,omitempty"`
	SignatureAlgorithm string     `json:"signatureAlgorithm,omitempty"`
	PublicKeyAlgorithm string     `json:"publicKeyAlgorithm,omitempty"`
	KeySize            int        `json:"keySize,omitempty"`
	NotBefore          *time.Time `json:"notBefore,omitempty"`
	NotAfter           *time.Time `json:"notAfter,omitempty"`
	Status             string     `json:"status"`
	RevocationStatus   string     `json:"revocationStatus"`
}

type relationshipJSON struct {
	From string `json:"from"`
	To   string `json:"to"`
	Type string `json:"type"`
}

// ToJSON converts the store to structured JSON for external tools.
//
// External issuers appear in relationships under their subject name.
//
// Returns:
//   - []byte: Indented JSON document
//   - error: Error if JSON marshaling fails
func (s *Store) ToJSON() ([]byte, error) {
	data := struct {
		Timestamp     string             `json:"timestamp"`
		Root          string             `json:"root"`
		Entries       []entryJSON        `json:"entries"`
		Relationships []relationshipJSON `json:"relationships"`
	}{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Root:          s.root,
		Entries:       []entryJSON{},
		Relationships: []relationshipJSON{},
	}

	for _, e := range s.Entries() {
		ej := entryJSON{
			Alias:            e.alias,
			Subject:          e.subject,
			Objects:          e.Flags(),
			CanIssue:         e.CanIssue(),
			Locked:           e.locked,
			Status:           e.Status(),
			RevocationStatus: e.revocation.CRLStatus,
		}
		if e.crt != nil {
			ej.SerialNumber = e.crt.SerialNumber.String()
			ej.SignatureAlgorithm = e.crt.SignatureAlgorithm.String()
			ej.PublicKeyAlgorithm, ej.KeySize = keyInfo(e.crt.PublicKey)
			ej.NotBefore, ej.NotAfter = &e.crt.NotBefore, &e.crt.NotAfter
		}
		if e.issuer != nil {
			ej.Issuer = e.issuer.alias
			if e.issuer.external {
				ej.Issuer = e.issuer.subject
			}
			data.Relationships = append(data.Relationships, relationshipJSON{
				From: e.alias,
				To:   ej.Issuer,
				Type: "issued_by",
			})
		}
		data.Entries = append(data.Entries, ej)
	}

	return json.MarshalIndent(data, "", "  ")
}
