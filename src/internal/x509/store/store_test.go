// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509store_test

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/H0llyW00dzZ/x509-cert-manager/src/internal/helper/pkitest"
	"github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/certio"
	x509certs "github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/certs"
	x509store "github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pki struct {
	root, inter, leaf *pkitest.Identity
}

func newPKI(t *testing.T) pki {
	t.Helper()
	root := pkitest.NewCA(t, "Test Root")
	inter := pkitest.Issue(t, root, "Test Intermediate", pkitest.ECDSA, true)
	leaf := pkitest.Issue(t, inter, "www.example.com", pkitest.RSA, false)
	return pki{root: root, inter: inter, leaf: leaf}
}

func open(t *testing.T, dir string, opts ...x509store.Option) *x509store.Store {
	t.Helper()
	st, err := x509store.Open(dir, nil, nil, nil, opts...)
	require.NoError(t, err)
	return st
}

func identity(id *pkitest.Identity) *x509certs.ObjectStore {
	objs := x509certs.NewObjectStore(nil)
	objs.AddCRT("", id.Certificate)
	objs.AddPrivateKey("", id.Key)
	return objs
}

func importAs(t *testing.T, st *x509store.Store, objs *x509certs.ObjectStore, alias string) {
	t.Helper()
	aliases, err := st.Import(objs, alias)
	require.NoError(t, err)
	require.Contains(t, aliases, alias)
}

func aliases(entries []*x509store.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Alias())
	}
	return out
}

func entry(t *testing.T, st *x509store.Store, alias string) *x509store.Entry {
	t.Helper()
	e, ok := st.Entry(alias)
	require.True(t, ok, "entry %q", alias)
	return e
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, f := range files {
		names = append(names, f.Name())
	}
	return names
}

func populate(t *testing.T, dir string, p pki) *x509store.Store {
	t.Helper()
	st := open(t, dir)
	importAs(t, st, identity(p.root), "root")
	importAs(t, st, identity(p.inter), "inter")
	importAs(t, st, identity(p.leaf), "leaf")
	return st
}

func assertForest(t *testing.T, st *x509store.Store) {
	t.Helper()
	assert.Equal(t, []string{"inter", "leaf", "root"}, aliases(st.Entries()))
	assert.Equal(t, []string{"root"}, aliases(st.Roots()))

	root := entry(t, st, "root")
	assert.Equal(t, []string{"inter"}, aliases(st.Issued(root)))

	inter := entry(t, st, "inter")
	assert.Equal(t, []string{"leaf"}, aliases(st.Issued(inter)))

	issuer, ok := st.Issuer(entry(t, st, "leaf"))
	require.True(t, ok)
	assert.Equal(t, "inter", issuer.Alias())

	_, ok = st.Issuer(root)
	assert.False(t, ok)
}

func TestImportBuildsForest(t *testing.T) {
	dir := t.TempDir()
	st := populate(t, dir, newPKI(t))

	assertForest(t, st)
	assert.ElementsMatch(t, []string{
		"inter.crt", "inter.key", "leaf.crt", "leaf.key", "root.crt", "root.key",
	}, listDir(t, dir))

	root := entry(t, st, "root")
	assert.True(t, root.HasCRT())
	assert.True(t, root.HasKey())
	assert.False(t, root.HasCSR())
	assert.False(t, root.HasCRL())
	assert.True(t, root.CanIssue())
	assert.Contains(t, root.Subject(), "CN=Test Root")
	assert.Equal(t, []string{"CRT", "KEY"}, root.Flags())
}

func TestOpenRescansStore(t *testing.T) {
	dir := t.TempDir()
	populate(t, dir, newPKI(t))

	st := open(t, dir)
	assertForest(t, st)
	assert.True(t, entry(t, st, "leaf").CanIssue())
}

func TestOpenIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.crt"), []byte("not a certificate"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.crt"), 0o700))

	st := open(t, dir)
	broken := entry(t, st, "broken")
	assert.True(t, broken.HasCRT())
	assert.Nil(t, broken.Certificate())
	assert.False(t, broken.CanIssue())
	assert.Len(t, st.Entries(), 1)
}

func TestImportDerivesAliases(t *testing.T) {
	p := newPKI(t)
	st := open(t, t.TempDir())

	got, err := st.Import(identity(p.leaf), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"www.example.com"}, got)

	other := pkitest.Issue(t, p.inter, "www.example.com", pkitest.ECDSA, false)
	got, err = st.Import(identity(other), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"www.example.com-2"}, got)
}

func TestImportMergesDuplicateCertificates(t *testing.T) {
	p := newPKI(t)
	st := open(t, t.TempDir())

	objs := x509certs.NewObjectStore(nil)
	objs.AddCRT("", p.leaf.Certificate)
	objs.AddCRT("", p.leaf.Certificate)
	objs.AddPrivateKey("", p.leaf.Key)

	got, err := st.Import(objs, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"www.example.com"}, got)
	assert.Equal(t, []string{"www.example.com"}, aliases(st.Entries()))
	assert.Equal(t, []string{"CRT", "KEY"}, entry(t, st, "www.example.com").Flags())
}

func TestImportCompletesExistingEntries(t *testing.T) {
	p := newPKI(t)
	st := open(t, t.TempDir())

	objs := x509certs.NewObjectStore(nil)
	objs.AddCRT("", p.inter.Certificate)
	importAs(t, st, objs, "inter")
	assert.False(t, entry(t, st, "inter").CanIssue())

	// The same certificate again plus its key, a CSR and a CRL.
	objs = x509certs.NewObjectStore(nil)
	objs.AddCRT("", p.inter.Certificate)
	objs.AddCSR("", pkitest.NewCSR(t, p.inter.Key, "Test Intermediate"))
	objs.AddCRL("", pkitest.NewCRL(t, p.inter))
	got, err := st.Import(objs, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"inter"}, got)

	keyOnly := x509certs.NewObjectStore(nil)
	keyOnly.AddPrivateKey("", p.inter.Key)
	got, err = st.Import(keyOnly, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"inter"}, got)

	e := entry(t, st, "inter")
	assert.Equal(t, []string{"CRT", "KEY", "CSR", "CRL"}, e.Flags())
	assert.True(t, e.CanIssue())
	assert.Len(t, st.Entries(), 1)
}

func TestImportRejectsEscapingHint(t *testing.T) {
	dir := t.TempDir()
	st := open(t, dir)
	_, err := st.Import(identity(pkitest.NewCA(t, "CA")), "../escape")
	require.ErrorIs(t, err, x509store.ErrPathViolation)
	assert.Empty(t, listDir(t, dir))
}

func TestRenamePathViolation(t *testing.T) {
	dir := t.TempDir()
	st := populate(t, dir, newPKI(t))
	before := listDir(t, dir)

	tests := []string{"../escape", "..", ".", "", "sub/leaf", "a/../leaf2", "/tmp/leaf"}
	for _, alias := range tests {
		t.Run(alias, func(t *testing.T) {
			err := st.Rename("leaf", alias)
			require.ErrorIs(t, err, x509store.ErrPathViolation)
			assert.Equal(t, before, listDir(t, dir))
			assertForest(t, st)
		})
	}

	_, err := os.Stat(filepath.Join(filepath.Dir(dir), "escape.crt"))
	assert.True(t, os.IsNotExist(err))
}

func TestRename(t *testing.T) {
	dir := t.TempDir()
	st := populate(t, dir, newPKI(t))

	require.NoError(t, st.Rename("leaf", "web"))
	_, ok := st.Entry("leaf")
	assert.False(t, ok)

	web := entry(t, st, "web")
	issuer, ok := st.Issuer(web)
	require.True(t, ok)
	assert.Equal(t, "inter", issuer.Alias())
	assert.ElementsMatch(t, []string{
		"inter.crt", "inter.key", "root.crt", "root.key", "web.crt", "web.key",
	}, listDir(t, dir))

	require.NoError(t, st.Rename("inter", "ca"))
	assert.Equal(t, []string{"web"}, aliases(st.Issued(entry(t, st, "ca"))))

	assert.ErrorIs(t, st.Rename("web", "root"), x509store.ErrAliasExists)
	assert.ErrorIs(t, st.Rename("missing", "other"), x509store.ErrUnknownEntry)
	assert.NoError(t, st.Rename("web", "web"))
}

func TestDeleteLeavesExternalIssuer(t *testing.T) {
	dir := t.TempDir()
	st := populate(t, dir, newPKI(t))

	require.NoError(t, st.Delete("inter"))
	assert.ElementsMatch(t, []string{"leaf.crt", "leaf.key", "root.crt", "root.key"}, listDir(t, dir))

	roots := st.Roots()
	require.Len(t, roots, 2)
	assert.Equal(t, []string{"root", ""}, aliases(roots))
	placeholder := roots[1]
	assert.True(t, placeholder.External())
	assert.Contains(t, placeholder.Subject(), "CN=Test Intermediate")
	assert.Equal(t, []string{"leaf"}, aliases(st.Issued(placeholder)))

	issuer, ok := st.Issuer(entry(t, st, "leaf"))
	require.True(t, ok)
	assert.True(t, issuer.External())

	assert.ErrorIs(t, st.Delete("inter"), x509store.ErrUnknownEntry)
}

func TestValidityAndRevocation(t *testing.T) {
	ca := pkitest.NewCA(t, "Test CA")
	good := pkitest.Issue(t, ca, "good", pkitest.ECDSA, false)
	revoked := pkitest.Issue(t, ca, "revoked", pkitest.ECDSA, false)
	expired := pkitest.Expired(t, ca, "expired")

	st := open(t, t.TempDir())
	objs := identity(ca)
	objs.AddCRL("", pkitest.NewCRL(t, ca, revoked.Certificate))
	importAs(t, st, objs, "ca")
	for _, id := range []*pkitest.Identity{good, revoked, expired} {
		c := x509certs.NewObjectStore(nil)
		c.AddCRT("", id.Certificate)
		importAs(t, st, c, id.Certificate.Subject.CommonName)
	}

	assert.True(t, entry(t, st, "ca").HasCRL())

	tests := []struct {
		alias      string
		validity   x509store.Validity
		crlStatus  string
		status     string
		revokedSet bool
	}{
		{"good", x509store.Valid, x509store.StatusGood, "valid", false},
		{"revoked", x509store.Valid, x509store.StatusRevoked, "revoked", true},
		{"expired", x509store.Expired, x509store.StatusGood, "expired", false},
		{"ca", x509store.Valid, x509store.StatusNotAvailable, "valid", false},
	}
	for _, tt := range tests {
		t.Run(tt.alias, func(t *testing.T) {
			e := entry(t, st, tt.alias)
			assert.Equal(t, tt.validity, e.Validity())
			assert.Equal(t, tt.crlStatus, e.Revocation().CRLStatus)
			assert.Equal(t, tt.status, e.Status())
			assert.Equal(t, tt.revokedSet, e.Revoked())
			assert.Equal(t, tt.revokedSet, !e.Revocation().RevokedAt.IsZero())
		})
	}

	e := entry(t, st, "good")
	assert.Equal(t, x509store.NotYetValid, e.ValidityAt(e.Certificate().NotBefore.Add(-time.Minute)))
	assert.Equal(t, "not yet valid", x509store.NotYetValid.String())
}

// selfSigned creates a CA certificate for cn with the given key.
func selfSigned(t *testing.T, key crypto.Signer, cn string, serial int64) *x509.Certificate {
	t.Helper()
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(serial),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		BasicConstraintsValid: true,
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, key.Public(), key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert
}

func TestIssuerTieBreak(t *testing.T) {
	key := pkitest.NewKey(t, pkitest.ECDSA)
	first := &pkitest.Identity{Certificate: selfSigned(t, key, "Twin CA", 1001), Key: key}
	second := selfSigned(t, key, "Twin CA", 1002)
	leaf := pkitest.Issue(t, first, "leaf", pkitest.ECDSA, false)

	st := open(t, t.TempDir())
	importAs(t, st, identity(first), "first")
	crt := x509certs.NewObjectStore(nil)
	crt.AddCRT("", second)
	importAs(t, st, crt, "second")
	crt = x509certs.NewObjectStore(nil)
	crt.AddCRT("", leaf.Certificate)
	importAs(t, st, crt, "leaf")

	issuer, ok := st.Issuer(entry(t, st, "leaf"))
	require.True(t, ok)
	assert.Equal(t, "first", issuer.Alias(), "candidate holding its key wins")

	keyOnly := x509certs.NewObjectStore(nil)
	keyOnly.AddPrivateKey("", key)
	got, err := st.Import(keyOnly, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"second"}, got)

	_, ok = st.Issuer(entry(t, st, "leaf"))
	assert.False(t, ok, "ambiguous issuers leave the entry as a root")
	assert.Contains(t, aliases(st.Roots()), "leaf")
}

func TestChangePassword(t *testing.T) {
	dir := t.TempDir()
	ca := pkitest.NewCA(t, "Locked CA")

	st := open(t, dir, x509store.WithPassword(certio.StaticPassword([]byte("secret"))))
	importAs(t, st, identity(ca), "ca")
	data, err := os.ReadFile(filepath.Join(dir, "ca.key"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "ENCRYPTED PRIVATE KEY")

	st = open(t, dir)
	e := entry(t, st, "ca")
	assert.True(t, e.Locked())
	assert.True(t, e.CanIssue())

	err = st.ChangePassword("ca", []byte("wrong"), []byte("new"))
	require.ErrorIs(t, err, certio.ErrWrongPassword)

	require.NoError(t, st.ChangePassword("ca", []byte("secret"), nil))
	assert.False(t, entry(t, st, "ca").Locked())
	data, err = os.ReadFile(filepath.Join(dir, "ca.key"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "ENCRYPTED")

	st = open(t, dir)
	assert.False(t, entry(t, st, "ca").Locked())

	require.NoError(t, st.ChangePassword("ca", nil, []byte("again")))
	st = open(t, dir, x509store.WithPassword(certio.StaticPassword([]byte("again"))))
	assert.False(t, entry(t, st, "ca").Locked())

	assert.ErrorIs(t, st.ChangePassword("missing", nil, nil), x509store.ErrUnknownEntry)
	c := x509certs.NewObjectStore(nil)
	c.AddCRT("", pkitest.NewCA(t, "No Key").Certificate)
	importAs(t, st, c, "nokey")
	assert.ErrorIs(t, st.ChangePassword("nokey", nil, nil), x509store.ErrNoKey)
}

func TestExport(t *testing.T) {
	p := newPKI(t)
	st := populate(t, t.TempDir(), p)
	reg := certio.DefaultRegistry(nil)

	var buf bytes.Buffer
	require.NoError(t, st.Export(&buf, []string{"leaf"}, "PEM", false, nil))
	res, err := reg.ReadBytes("leaf.pem", buf.Bytes(), certio.NoPassword())
	require.NoError(t, err)
	require.True(t, res.Found())
	assert.Len(t, res.Store().Certificates(), 1)
	assert.Len(t, res.Store().Keys(), 1)

	buf.Reset()
	pw := certio.StaticPassword([]byte("changeit"))
	require.NoError(t, st.Export(&buf, []string{"leaf"}, "PKCS12", true, pw))
	res, err = reg.ReadBytes("bundle.p12", buf.Bytes(), pw)
	require.NoError(t, err)
	require.True(t, res.Found())
	assert.Equal(t, "PKCS12", res.Provider())

	buf.Reset()
	require.NoError(t, st.Export(&buf, nil, "PEM", false, nil))
	res, err = reg.ReadBytes("all.pem", buf.Bytes(), certio.NoPassword())
	require.NoError(t, err)
	assert.Len(t, res.Store().Certificates(), 3)

	assert.ErrorIs(t, st.Export(&buf, []string{"missing"}, "PEM", false, nil), x509store.ErrUnknownEntry)
}

func TestExportLockedKey(t *testing.T) {
	dir := t.TempDir()
	st := open(t, dir, x509store.WithPassword(certio.StaticPassword([]byte("secret"))))
	importAs(t, st, identity(pkitest.NewCA(t, "CA")), "ca")

	st = open(t, dir)
	var buf bytes.Buffer
	err := st.Export(&buf, []string{"ca"}, "PEM", false, nil)
	require.ErrorIs(t, err, certio.ErrPasswordCancelled)
}

func TestRender(t *testing.T) {
	empty := open(t, t.TempDir())
	assert.Equal(t, "No entries in store\n", empty.RenderTree())
	assert.Equal(t, "No entries to display\n", empty.RenderTable())

	st := populate(t, t.TempDir(), newPKI(t))

	tree := st.RenderTree()
	lines := strings.Split(strings.TrimSuffix(tree, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "└── [✓] root: "))
	assert.True(t, strings.HasPrefix(lines[1], "    └── [✓] inter: "))
	assert.True(t, strings.HasPrefix(lines[2], "        └── [✓] leaf: "))
	assert.Contains(t, lines[0], "[CRT KEY] (CA)")

	table := st.RenderTable()
	assert.Contains(t, strings.ToLower(table), "alias")
	for _, alias := range []string{"root", "inter", "leaf"} {
		assert.Contains(t, table, alias)
	}
	assert.Contains(t, table, "2048-bit RSA")

	data, err := st.ToJSON()
	require.NoError(t, err)
	type relationship struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	var doc struct {
		Entries []struct {
			Alias  string `json:"alias"`
			Issuer string `json:"issuer"`
		} `json:"entries"`
		Relationships []relationship `json:"relationships"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Entries, 3)
	assert.Len(t, doc.Relationships, 2)
	assert.True(t, slices.Contains(doc.Relationships, relationship{From: "leaf", To: "inter"}))
}
