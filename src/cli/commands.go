// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package cli

import (
	"context"
	"crypto/x509/pkix"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/H0llyW00dzZ/x509-cert-manager/src/internal/helper/gc"
	"github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/certio"
	x509certs "github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/certs"
	x509ext "github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/ext"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

func (o *options) listCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the store as an issuer tree, a table or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, st, err := o.openStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch format {
			case "tree":
				_, err = io.WriteString(out, st.RenderTree())
			case "table":
				_, err = io.WriteString(out, st.RenderTable())
			case "json":
				var data []byte
				if data, err = st.ToJSON(); err == nil {
					_, err = fmt.Fprintln(out, string(data))
				}
			default:
				return fmt.Errorf("unknown format %q (use tree, table or json)", format)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "tree", "output format: tree, table or json")
	return cmd
}

func (o *options) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show ALIAS",
		Short: "Show the details of one entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := o.openStore()
			if err != nil {
				return err
			}
			e, ok := st.Entry(args[0])
			if !ok {
				return fmt.Errorf("unknown entry %q", args[0])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Alias:     %s\n", e.Alias())
			fmt.Fprintf(out, "Subject:   %s\n", e.Subject())
			if issuer, ok := st.Issuer(e); ok {
				name := issuer.Alias()
				if issuer.External() {
					name = issuer.Subject() + " (external)"
				}
				fmt.Fprintf(out, "Issuer:    %s\n", name)
			}
			fmt.Fprintf(out, "Objects:   %s\n", strings.Join(e.Flags(), " "))
			fmt.Fprintf(out, "Can issue: %t\n", e.CanIssue())
			if e.Locked() {
				fmt.Fprintln(out, "Key:       locked")
			}
			if crt := e.Certificate(); crt != nil {
				fmt.Fprintf(out, "Serial:    %s\n", crt.SerialNumber)
				fmt.Fprintf(out, "Valid:     %s to %s\n", crt.NotBefore.UTC().Format("2006-01-02 15:04:05"), crt.NotAfter.UTC().Format("2006-01-02 15:04:05"))
				fmt.Fprintf(out, "Signature: %s\n", crt.SignatureAlgorithm)
				writeExtensions(out, crt.Extensions)
			}
			fmt.Fprintf(out, "Status:    %s\n", e.Status())
			if issued := st.Issued(e); len(issued) > 0 {
				aliases := make([]string, 0, len(issued))
				for _, c := range issued {
					aliases = append(aliases, c.Alias())
				}
				fmt.Fprintf(out, "Issued:    %s\n", strings.Join(aliases, ", "))
			}
			return nil
		},
	}
}

// writeExtensions prints one decoded extension per line.
func writeExtensions(out io.Writer, exts []pkix.Extension) {
	if len(exts) == 0 {
		return
	}
	fmt.Fprintln(out, "Extensions:")
	for _, ext := range exts {
		label := x509ext.Name(ext.Id)
		if ext.Critical {
			label += " (critical)"
		}
		value := "undecodable"
		if data, err := x509ext.Decode(ext); err == nil {
			value = data.String()
		}
		fmt.Fprintf(out, "  %s: %s\n", label, value)
	}
}

func (o *options) importCommand() *cobra.Command {
	var (
		alias   string
		server  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "import [FILE...]",
		Short: "Import certificates, keys, requests and CRLs from files (- reads stdin) or a TLS server",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && server == "" {
				return fmt.Errorf("requires at least one FILE or --server")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			e, st, err := o.openStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if server != "" {
				objs, err := e.readServer(cmd.Context(), server, timeout)
				if err != nil {
					return err
				}
				aliases, err := st.Import(objs, alias)
				if len(aliases) > 0 {
					OperationPerformed = true
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Imported %s (TLS): %s\n", server, strings.Join(aliases, ", "))
			}
			for _, file := range args {
				res, err := e.read(cmd, file)
				if err != nil {
					return fmt.Errorf("read %s: %w", file, err)
				}
				if !res.Found() {
					return fmt.Errorf("%w: %s", ErrNotRecognized, file)
				}
				aliases, err := st.Import(res.Store(), alias)
				if len(aliases) > 0 {
					OperationPerformed = true
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Imported %s (%s): %s\n", file, res.Provider(), strings.Join(aliases, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&alias, "alias", "a", "", "alias for new entries (default: derived from the subject)")
	cmd.Flags().StringVarP(&server, "server", "s", "", "import the chain presented by a TLS server at HOST:PORT (port defaults to 443)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "connection timeout for --server")
	return cmd
}

// readServer fetches the chain presented by the TLS server at address.
func (e *env) readServer(ctx context.Context, address string, timeout time.Duration) (*x509certs.ObjectStore, error) {
	host, port := address, 443
	if h, p, err := net.SplitHostPort(address); err == nil {
		if port, err = strconv.Atoi(p); err != nil {
			return nil, fmt.Errorf("invalid port in %q", address)
		}
		host = h
	}
	return certio.ReadServer(ctx, host, port, timeout, e.log)
}

// read reads file, or stdin for "-", through the registry.
func (e *env) read(cmd *cobra.Command, file string) (certio.Result, error) {
	if file != "-" {
		return e.registry.ReadFile(file, e.password)
	}
	data, err := gc.ReadLimited(cmd.InOrStdin(), e.registry.ReadLimit)
	if err != nil {
		return certio.Result{}, err
	}
	return e.registry.ReadBytes("stdin", data, e.password)
}

func (o *options) exportCommand() *cobra.Command {
	var (
		format  string
		output  string
		encrypt bool
	)
	cmd := &cobra.Command{
		Use:   "export [ALIAS...]",
		Short: "Export entries (all when none given) with a writer provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, st, err := o.openStore()
			if err != nil {
				return err
			}
			if format == "" {
				format = e.cfg.Export.DefaultProvider
			}

			if output == "" {
				return st.Export(cmd.OutOrStdout(), args, format, encrypt, e.password)
			}
			f, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
			if err != nil {
				return err
			}
			err = st.Export(f, args, format, encrypt, e.password)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				os.Remove(output)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "writer provider name (default from configuration)")
	cmd.Flags().StringVarP(&output, "out", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVarP(&encrypt, "encrypt", "e", false, "encrypt the output with --password")
	return cmd
}

func (o *options) renameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename ALIAS NEW_ALIAS",
		Short: "Rename an entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := o.openStore()
			if err != nil {
				return err
			}
			if err := st.Rename(args[0], args[1]); err != nil {
				return err
			}
			OperationPerformed = true
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", args[0], args[1])
			return nil
		},
	}
}

func (o *options) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ALIAS...",
		Short: "Delete entries and their files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := o.openStore()
			if err != nil {
				return err
			}
			for _, alias := range args {
				if err := st.Delete(alias); err != nil {
					return err
				}
				OperationPerformed = true
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", alias)
			}
			return nil
		},
	}
}

func (o *options) passwdCommand() *cobra.Command {
	var oldPassword, newPassword string
	cmd := &cobra.Command{
		Use:   "passwd ALIAS",
		Short: "Change the password protecting an entry's key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := o.openStore()
			if err != nil {
				return err
			}
			if err := st.ChangePassword(args[0], secret(oldPassword), secret(newPassword)); err != nil {
				return err
			}
			OperationPerformed = true
			fmt.Fprintf(cmd.OutOrStdout(), "Changed key password of %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&oldPassword, "old", "", "current key password (empty for an unencrypted key)")
	cmd.Flags().StringVar(&newPassword, "new", "", "new key password (empty stores the key unencrypted)")
	return cmd
}

func secret(s string) []byte {
	if s == "" {
		return nil
	}
	return []byte(s)
}

func (o *options) namesCommand() *cobra.Command {
	var parse string
	cmd := &cobra.Command{
		Use:   "names",
		Short: "List known distinguished name attributes or normalize a name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := o.env()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if parse != "" {
				rdns, err := e.dict.FromString(parse)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, e.dict.ToString(rdns))
				return err
			}
			for _, name := range e.dict.RDNTypes() {
				oid, _ := e.dict.OID(name)
				fmt.Fprintf(out, "%-24s %s\n", name, oid)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&parse, "parse", "", "distinguished name to parse and print in canonical form")
	return cmd
}

func (o *options) providersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the registered readers and writers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := o.env()
			if err != nil {
				return err
			}

			table := tablewriter.NewTable(cmd.OutOrStdout(),
				tablewriter.WithRenderer(renderer.NewMarkdown(tw.Rendition{Streaming: true})),
			)
			table.Header([]string{"Name", "Type", "Patterns", "Read", "Write", "Text", "Encryption"})

			var rows [][]string
			seen := make(map[string]bool)
			providers := make([]certio.Provider, 0)
			for _, r := range e.registry.Readers.Providers() {
				providers = append(providers, r)
			}
			for _, w := range e.registry.Writers.Providers() {
				providers = append(providers, w)
			}
			for _, p := range providers {
				name := p.ProviderName()
				if seen[name] {
					continue
				}
				seen[name] = true
				_, canRead := e.registry.Readers.Get(name)
				w, canWrite := e.registry.Writers.Get(name)
				text, enc := "-", "-"
				if canWrite {
					text = strconv.FormatBool(w.IsCharWriter())
					enc = "optional"
					if w.IsEncryptionRequired() {
						enc = "required"
					}
				}
				rows = append(rows, []string{
					name,
					p.FileType(),
					strings.Join(p.FileExtensionPatterns(), " "),
					strconv.FormatBool(canRead),
					strconv.FormatBool(canWrite),
					text,
					enc,
				})
			}
			table.Bulk(rows)
			table.Render()

			fmt.Fprintf(cmd.OutOrStdout(), "\nStore files use %s extensions.\n", extensions())
			return nil
		},
	}
}

func extensions() string {
	var exts []string
	for _, t := range x509certs.ObjectTypes() {
		exts = append(exts, t.FileExtension())
	}
	return strings.Join(exts, " ")
}
