// Package cli wires the phonebook commands together.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/phonebook/internal/api"
	"github.com/Makepad-fr/phonebook/internal/config"
	"github.com/Makepad-fr/phonebook/internal/credentials"
	"github.com/Makepad-fr/phonebook/internal/phonebook"
	"github.com/Makepad-fr/phonebook/internal/telemetry"
	"github.com/Makepad-fr/phonebook/internal/ui"
)

// Version is set at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

// Exit codes returned by Execute.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// usageError marks errors caused by bad arguments rather than a failed operation.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, a ...any) error {
	return usageError{fmt.Errorf(format, a...)}
}

// app carries what the commands share once flags are parsed.
type app struct {
	cfgFile string
	cfg     config.Config
	log     *slog.Logger
	creds   *credentials.Store

	closers []func() error
}

// Execute runs the command line and returns the process exit code.
func Execute(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCmd()
	cmd.SetArgs(args)
	return run(ctx, cmd)
}

func run(ctx context.Context, cmd *cobra.Command) int {
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	ui.SetOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())
	ui.Fail(err.Error())
	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Run '%s --help' for usage.\n", cmd.Root().Name())
		return ExitUsage
	}
	return ExitError
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "phonebook",
		Short: "Keep a remote phonebook in sync from the terminal",
		Long: `phonebook talks to a phonebook REST server with a per-user key.

Without a subcommand it opens the interactive UI.`,
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          usageArgs(cobra.NoArgs),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/phonebook/phonebook.yaml or ./phonebook.yaml)")
	pf.String("url", config.Defaults["url"].(string), "phonebook server URL; a ?key= query sets the key")
	pf.String("key", "", "auth key (env PHONEBOOK_KEY)")
	pf.Duration("timeout", 0, "per-request timeout (default 10s)")
	pf.String("log-level", "", `log level ("debug", "info", "warn", "error")`)
	pf.String("log-file", "", "write logs to this file")
	pf.String("theme", "", `output theme ("classic", "neon", "mono")`)

	cmd.AddCommand(
		a.newListCmd(),
		a.newShowCmd(),
		a.newAddCmd(),
		a.newEditCmd(),
		a.newRemoveCmd(),
		a.newKeyCmd(),
		a.newConfigCmd(),
		a.newTUICmd(),
		a.newServeCmd(),
		newVersionCmd(),
	)
	return cmd
}

// setup loads the configuration and the ambient services for cmd.
func (a *app) setup(cmd *cobra.Command) error {
	ui.SetOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := config.Load(cmd, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	ui.SetTheme(cfg.Theme)

	if err := a.setupLogger(cmd); err != nil {
		return err
	}

	shutdown, err := telemetry.Setup(cmd.Context(), Version)
	if err != nil {
		a.log.Warn("tracing disabled", "err", err)
	} else {
		a.closers = append(a.closers, func() error { return shutdown(context.Background()) })
	}

	if a.creds == nil {
		if a.creds, err = credentials.DefaultStore(); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) setupLogger(cmd *cobra.Command) error {
	level, err := parseLevel(a.cfg.LogLevel)
	if err != nil {
		return usageError{err}
	}
	// serve logs requests at info unless a level was asked for
	if cmd.Name() == "serve" && !levelExplicit(cmd) {
		level = slog.LevelInfo
	}

	var w io.Writer = cmd.ErrOrStderr()
	switch {
	case a.cfg.LogFile != "":
		f, err := os.OpenFile(a.cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.closers = append(a.closers, f.Close)
		w = f
	case isTUI(cmd):
		// stderr would tear the alt screen
		w = io.Discard
	}

	a.log = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.log)
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

func levelExplicit(cmd *cobra.Command) bool {
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		return true
	}
	return os.Getenv("PHONEBOOK_LOG_LEVEL") != ""
}

func isTUI(cmd *cobra.Command) bool {
	return cmd.Name() == "tui" || cmd == cmd.Root()
}

// resolveKey picks the auth key: flag, env or config first, then a key query
// on the server URL, then the saved credentials.
func (a *app) resolveKey() (string, error) {
	if k := strings.TrimSpace(a.cfg.Key); k != "" {
		return k, nil
	}
	if k := config.KeyFromURL(a.cfg.URL); k != "" {
		return k, nil
	}
	saved, err := a.creds.Load()
	if err != nil {
		return "", err
	}
	if saved != nil {
		a.log.Debug("using saved key", "source", saved.Source)
		return saved.Key, nil
	}
	return "", nil
}

func (a *app) client() (*api.Client, error) {
	return api.New(a.cfg.URL, api.WithTimeout(a.cfg.Timeout), api.WithLogger(a.log))
}

// controller returns a controller holding the resolved key. Nothing is fetched.
func (a *app) controller() (*phonebook.Controller, error) {
	c, err := a.client()
	if err != nil {
		return nil, usageError{err}
	}
	key, err := a.resolveKey()
	if err != nil {
		return nil, err
	}
	ctrl := phonebook.New(c, phonebook.WithLogger(a.log))
	ctrl.SetAuthKey(key)
	return ctrl, nil
}

func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, usagef("not an entry id: %s", s)
	}
	return id, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "phonebook", Version)
			return nil
		},
	}
}
