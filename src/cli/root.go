// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/H0llyW00dzZ/x509-cert-manager/src/config"
	"github.com/H0llyW00dzZ/x509-cert-manager/src/internal/helper/posix"
	"github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/certio"
	x509store "github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/store"
	"github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/x500"
	"github.com/H0llyW00dzZ/x509-cert-manager/src/logger"
	"github.com/spf13/cobra"
)

// EnvPassword supplies the password when --password is not given.
const EnvPassword = "CERTMGR_PASSWORD"

// ErrNotRecognized indicates an input no reader recognized.
var ErrNotRecognized = errors.New("cli: unrecognized certificate input")

// OperationPerformed reports whether the last [Execute] changed the store.
var OperationPerformed bool

// options holds the global flags.
type options struct {
	configFile string
	storePath  string
	password   string
	logFormat  string
	log        logger.Logger
}

// env is the core wiring shared by all commands.
type env struct {
	cfg      *config.Config
	registry *certio.Registry
	dict     *x500.Dictionary
	password certio.PasswordCallback
	secret   bool
	log      logger.Logger
}

// Execute runs the command line in os.Args.
func Execute(ctx context.Context, version string, log logger.Logger) error {
	OperationPerformed = false
	return NewRootCommand(version, log).ExecuteContext(ctx)
}

// NewRootCommand builds the command tree. A nil log discards core warnings.
func NewRootCommand(version string, log logger.Logger) *cobra.Command {
	if log == nil {
		log = logger.Nop()
	}
	o := &options{log: log}
	name := posix.ExecutableName("certmgr")

	rootCmd := &cobra.Command{
		Use:           name,
		Short:         "X.509 certificate store manager",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: "  " + name + " import server.p12 --alias web --password changeit\n" +
			"  " + name + " list --format table\n" +
			"  " + name + " export web --format JKS --encrypt --out web.jks",
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&o.configFile, "config", "", "configuration file (JSON or YAML)")
	flags.StringVar(&o.storePath, "store", "", "store directory (overrides configuration)")
	flags.StringVar(&o.password, "password", "", "password for encrypted inputs, keys and exports (default $"+EnvPassword+")")
	flags.StringVar(&o.logFormat, "log-format", "text", "format of warnings about skipped input: text, or json written to stderr")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		switch o.logFormat {
		case "text":
		case "json":
			o.log = logger.NewJSONLogger(cmd.ErrOrStderr(), false)
		default:
			return fmt.Errorf("unknown log format %q (use text or json)", o.logFormat)
		}
		return nil
	}

	rootCmd.AddCommand(
		o.listCommand(),
		o.showCommand(),
		o.importCommand(),
		o.exportCommand(),
		o.renameCommand(),
		o.deleteCommand(),
		o.passwdCommand(),
		o.namesCommand(),
		o.providersCommand(),
	)
	return rootCmd
}

// env loads the configuration and builds the registry and name dictionary.
func (o *options) env() (*env, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}
	if o.storePath != "" {
		cfg.Store.Path = o.storePath
	}

	dict, err := x500.Default(cfg.X500.OIDFile, o.log)
	if err != nil {
		return nil, err
	}
	registry := certio.DefaultRegistry(o.log)
	registry.ReadLimit = cfg.IO.ReadLimit

	e := &env{cfg: cfg, registry: registry, dict: dict, password: certio.NoPassword(), log: o.log}
	secret := o.password
	if secret == "" {
		secret = os.Getenv(EnvPassword)
	}
	if secret != "" {
		e.password, e.secret = certio.StaticPassword([]byte(secret)), true
	}
	return e, nil
}

// open opens the configured store. With a password, keys are encrypted on
// import and opened on read.
func (e *env) open() (*x509store.Store, error) {
	var opts []x509store.Option
	if e.secret {
		opts = append(opts, x509store.WithPassword(e.password))
	}
	return x509store.Open(e.cfg.Store.Path, e.registry, e.dict, e.log, opts...)
}

// openStore combines env and open for commands that only need the store.
func (o *options) openStore() (*env, *x509store.Store, error) {
	e, err := o.env()
	if err != nil {
		return nil, nil, err
	}
	st, err := e.open()
	if err != nil {
		return nil, nil, err
	}
	return e, st, nil
}
