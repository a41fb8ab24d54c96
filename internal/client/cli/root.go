package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/ordersync/internal/buildinfo"
	"github.com/dmitrijs2005/ordersync/internal/client/config"
	"github.com/dmitrijs2005/ordersync/internal/logging"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // a command ran and failed
	ExitCommandError = 2 // bad configuration or unusable local cache
)

// ExitError carries the process exit code for an error.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// RootOptions holds global flags. They are parsed a second time by the
// config loader from the raw arguments, which keeps the layering in one place.
type RootOptions struct {
	ConfigFile string
	Server     string
	Interval   int
	DB         string
	LogLevel   string
	Offline    bool

	// Args are the raw process arguments handed to config.Load.
	Args   []string
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

// NewRootCommand creates the root command. Without a subcommand it starts
// the interactive shell.
func NewRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ordersync",
		Short:         "Offline-first order management client",
		Long:          "Manage clients, products and orders. Data is cached locally and kept in sync with the server whenever it is reachable.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShell(cmd.Context(), opts)
		},
	}
	cmd.SetIn(opts.In)
	cmd.SetOut(opts.Out)
	cmd.SetErr(opts.ErrOut)

	f := cmd.PersistentFlags()
	f.StringVarP(&opts.ConfigFile, "config", "c", "", "path to a JSON or YAML config file")
	f.StringVarP(&opts.Server, "server", "a", "", "base URL of the REST API")
	f.IntVarP(&opts.Interval, "interval", "i", 0, "online check interval in seconds")
	f.StringVarP(&opts.DB, "db", "d", "", "path to the local cache")
	f.StringVarP(&opts.LogLevel, "log-level", "l", "", "log level (debug, info, warn, error)")
	f.BoolVar(&opts.Offline, "offline", false, "never contact the server")

	cmd.AddCommand(newShellCommand(opts))
	cmd.AddCommand(newSyncCommand(opts))
	cmd.AddCommand(newStatusCommand(opts))
	cmd.AddCommand(newVersionCommand(opts))
	return cmd
}

func newShellCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShell(cmd.Context(), opts)
		},
	}
}

func newSyncCommand(opts *RootOptions) *cobra.Command {
	var push bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Refresh every collection once and exit",
		Long: `Refresh clients, products, orders and the user profile from the server.

With --push, records created offline are sent to the server first.

Example:
  ordersync sync --push -c ordersync.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *App) error {
				if !a.net.Online() {
					return &ExitError{Code: ExitFailure, Err: fmt.Errorf("server %s is not reachable", a.cfg.ServerURL)}
				}
				if push {
					if err := a.Push(ctx); err != nil {
						return &ExitError{Code: ExitFailure, Err: err}
					}
				}
				if err := a.Sync(ctx); err != nil {
					return &ExitError{Code: ExitFailure, Err: err}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&push, "push", false, "send records created offline before refreshing")
	return cmd
}

func newStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connectivity and cache contents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *App) error {
				return a.Status(ctx)
			})
		},
	}
}

func newVersionCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			buildinfo.PrintBuildData(cmd.OutOrStdout())
			return nil
		},
	}
}

// withApp loads the configuration, builds the App, probes connectivity once
// and runs fn.
func withApp(ctx context.Context, opts *RootOptions, fn func(ctx context.Context, a *App) error) error {
	cfg, err := config.Load(opts.Args)
	if err != nil {
		return &ExitError{Code: ExitCommandError, Err: err}
	}
	log := logging.NewTextLogger(opts.ErrOut, cfg.LogLevel)

	a, err := NewApp(ctx, cfg, opts.In, opts.Out, log)
	if err != nil {
		return &ExitError{Code: ExitCommandError, Err: err}
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn(ctx, "failed to close app", "error", err)
		}
	}()

	a.Start(ctx)
	return fn(ctx, a)
}

func runShell(ctx context.Context, opts *RootOptions) error {
	return withApp(ctx, opts, func(ctx context.Context, a *App) error {
		greet(ctx, a)
		runREPL(ctx, a, a.status, a.reader)
		return nil
	})
}

// greet prints the banner, settles reminder permission and refreshes the
// cache before the first prompt.
func greet(ctx context.Context, a *App) {
	fmt.Fprintln(a.out, "ordersync (type 'help' for commands)")
	if _, err := a.scheduler.RequestPermission(ctx); err != nil {
		a.log.Warn(ctx, "notification permission not decided", "error", err)
	}
	if !a.api.HasCredential() {
		fmt.Fprintln(a.out, "Not signed in. Use 'login' to enter an access token.")
	}
	if err := a.Sync(ctx); err != nil {
		a.log.Warn(ctx, "startup refresh failed", "error", err)
	}
}

// Execute runs the root command with the process arguments and returns the
// exit code.
func Execute(ctx context.Context) int {
	opts := &RootOptions{Args: os.Args[1:], In: os.Stdin, Out: os.Stdout, ErrOut: os.Stderr}
	cmd := NewRootCommand(opts)
	cmd.SetArgs(opts.Args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	fmt.Fprintln(opts.ErrOut, "Error:", err)
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitFailure
}
