package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rendis/recipelint/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Getenv))
}

// run executes the CLI and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, getenv: getenv}
	root := newRootCommand(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	return exitCode(root.ExecuteContext(ctx), stderr)
}

// app carries process wiring shared by every command.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string

	configPath string
	logLevel   string
	logFormat  string

	cfg    Config
	logger *slog.Logger
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recipelint",
		Short: "Static validation for Workato recipes",
		Long: `recipelint checks Workato recipe documents before they are deployed:
line structure, input modes, formulas, data pill references, connector
input schemas and user-defined rules.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "config file (default "+defaultConfigFile+", or $RECIPELINT_CONFIG)")
	f.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	f.StringVar(&a.logFormat, "log-format", "", "log encoding: text or json")

	cmd.AddCommand(
		newValidateCommand(a),
		newOutlineCommand(a),
		newSchemasCommand(a),
		newMCPCommand(a),
		newVersionCommand(a),
	)
	return cmd
}

// setup loads the layered configuration and builds the logger. Flags are
// the last layer.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.configPath, a.getenv)
	if err != nil {
		return failure("loading configuration", err)
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = a.logFormat
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: a.stderr})
	if err != nil {
		return failure("configuring logging", err)
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}
