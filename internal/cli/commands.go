package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"github.com/vk/notegrid/internal/app"
	"github.com/vk/notegrid/internal/docfile"
)

func newRunCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run <document" + docfile.Extension + ">",
		Short: "Evaluate a document once and print every code cell",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.newApp(cmd, app.Config{DocumentPath: args[0]})
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Run(cmd.Context())
		},
	}
}

func newServeCommand(g *globalFlags) *cobra.Command {
	cfg := app.Config{}
	cmd := &cobra.Command{
		Use:   "serve [document" + docfile.Extension + "]",
		Short: "Keep a document live and stream its state to socket.io clients",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := cfg
			if len(args) == 1 {
				c.DocumentPath = args[0]
			}
			a, err := g.newApp(cmd, c)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&cfg.Listen, "listen", ":8080", "Address of the notebook HTTP server.")
	cmd.Flags().IntVar(&cfg.HealthcheckPort, "healthcheck-port", 0, "Port for a dedicated HTTP health check server. 0 is disabled.")
	cmd.Flags().DurationVar(&cfg.Tick, "tick", app.DefaultTick, "Interval between scheduler ticks.")
	cmd.Flags().BoolVar(&cfg.AutoRefresh, "auto-refresh", true, "Re-run outdated cells automatically.")
	cmd.Flags().BoolVar(&cfg.SaveOnExit, "save", false, "Write the document back on shutdown.")
	return cmd
}

func newWatchCommand(g *globalFlags) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:     "watch <url>",
		Short:   "Print the events of a running notebook server",
		Example: "  notegrid watch http://localhost:8080/socket.io/",
		Args:    usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.newApp(cmd, app.Config{})
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Watch(cmd.Context(), args[0], timeout)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "How long to wait for the connection.")
	return cmd
}

func newReplCommand(g *globalFlags) *cobra.Command {
	var historyPath string
	var autoRefresh bool
	cmd := &cobra.Command{
		Use:   "repl [document" + docfile.Extension + "]",
		Short: "Build a notebook interactively",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config{AutoRefresh: autoRefresh}
			if len(args) == 1 {
				cfg.DocumentPath = args[0]
			}
			a, err := g.newApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ln := liner.NewLiner()
			defer ln.Close()
			ln.SetCtrlCAborts(true)
			if historyPath != "" {
				if f, err := os.Open(historyPath); err == nil {
					_, _ = ln.ReadHistory(f)
					_ = f.Close()
				}
				defer func() {
					if f, err := os.Create(historyPath); err == nil {
						_, _ = ln.WriteHistory(f)
						_ = f.Close()
					}
				}()
			}
			return a.Repl(cmd.Context(), ln)
		},
	}
	cmd.Flags().StringVar(&historyPath, "history", defaultHistoryPath(), "File that keeps the REPL history. Empty disables it.")
	cmd.Flags().BoolVar(&autoRefresh, "auto-refresh", true, "Re-run outdated cells automatically.")
	return cmd
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".notegrid_history")
}

func newFmtCommand() *cobra.Command {
	var write, check bool
	cmd := &cobra.Command{
		Use:   "fmt <path>...",
		Short: "Rewrite documents in canonical form",
		Long:  "Formats documents, or every " + docfile.Extension + " file below a directory. Without flags the result is printed.",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if write && check {
				return &ExitError{Code: 2, Message: "--write and --check are mutually exclusive"}
			}
			var unformatted int
			for _, root := range args {
				paths, err := docfile.Find(root)
				if err != nil {
					return err
				}
				for _, path := range paths {
					changed, err := formatFile(cmd, path, write, check)
					if err != nil {
						return err
					}
					if changed {
						unformatted++
					}
				}
			}
			if check && unformatted > 0 {
				return &ExitError{Code: 1, Message: fmt.Sprintf("%d document(s) need formatting", unformatted)}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Write the result back to the source file.")
	cmd.Flags().BoolVar(&check, "check", false, "List documents that are not formatted and exit 1 if any.")
	return cmd
}

// formatFile reports whether path differs from its canonical form.
func formatFile(cmd *cobra.Command, path string, write, check bool) (bool, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read document: %w", err)
	}
	cells, err := docfile.Decode(src, path)
	if err != nil {
		return false, err
	}
	out := docfile.Encode(cells)
	changed := !bytes.Equal(src, out)

	switch {
	case check:
		if changed {
			fmt.Fprintln(cmd.OutOrStdout(), path)
		}
	case write:
		if changed {
			info, err := os.Stat(path)
			if err != nil {
				return false, err
			}
			if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
				return false, fmt.Errorf("failed to write %s: %w", path, err)
			}
		}
	default:
		_, err := cmd.OutOrStdout().Write(out)
		return changed, err
	}
	return changed, nil
}
