package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/vk/notegrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	return &ExitError{Code: 2, Message: err.Error()}
}

// usageArgs turns argument validation failures into usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

// globalFlags are shared by every command.
type globalFlags struct {
	logLevel  string
	logFormat string
}

// newApp validates cfg and builds the application around it.
func (g *globalFlags) newApp(cmd *cobra.Command, cfg app.Config) (*app.App, error) {
	cfg.LogLevel = g.logLevel
	cfg.LogFormat = g.logFormat
	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, usageError(err)
	}
	slog.Debug("Configuration validated.", "config", config)
	return app.NewApp(cmd.OutOrStdout(), cmd.ErrOrStderr(), config), nil
}

// NewRootCommand builds the command tree. Results are written to outW and
// logs to errW.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "notegrid",
		Short: "A live notebook engine for HCL cells",
		Long: `notegrid evaluates notebooks made of prose, declaration and code cells.
Code cells export bindings that later cells consume; editing a cell marks
everything downstream outdated and re-evaluation proceeds top to bottom.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")

	root.AddCommand(
		newRunCommand(g),
		newServeCommand(g),
		newWatchCommand(g),
		newReplCommand(g),
		newFmtCommand(),
	)
	return root
}

// Execute runs the command line args against a fresh command tree.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	root := NewRootCommand(outW, errW)
	if args == nil {
		// cobra falls back to os.Args on a nil slice.
		args = []string{}
	}
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
