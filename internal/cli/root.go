// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// root.go - Command tree.

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/amadeus-tui/internal/config"
	"github.com/jeranaias/amadeus-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Execute runs the command line and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styles.RenderError(err.Error()))
		return 1
	}
	return 0
}

// NewRootCommand builds the command tree. Each call returns a fresh tree so
// tests can run commands in isolation.
func NewRootCommand() *cobra.Command {
	var lineMode bool

	root := &cobra.Command{
		Use:   "amadeus",
		Short: "Talk to Makise Kurisu in your terminal",
		Long: `amadeus - a visual novel style chat with Makise Kurisu.

Run without arguments to open the full-screen interface. When stdin or
stdout is not a terminal, amadeus falls back to line mode.

Configuration lives in ~/.amadeus/config.toml (config.json and config.yaml
are also read). Use 'amadeus config' to inspect and change it.

Examples:
  amadeus                          Open the dialogue screen
  amadeus ask "What is a D-Mail?"  Ask one question and print the reply
  amadeus config set provider.index 1
  amadeus backlog --limit 50`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := OpenApp(config.OpenStore())
			if err != nil {
				return err
			}
			defer closeApp(app)

			if lineMode || !Interactive() {
				return RunLine(app, LineOptions{Out: cmd.OutOrStdout(), Instant: !IsStdoutTTY()})
			}
			return RunTUI(app)
		},
	}
	root.Flags().BoolVarP(&lineMode, "line", "l", false, "use line mode instead of the full-screen interface")

	root.AddCommand(
		newAskCommand(),
		newConfigCommand(),
		newBacklogCommand(),
		newMemoryCommand(),
		newModelsCommand(),
		newVersionCommand(),
	)
	return root
}

func closeApp(app *App) {
	if err := app.Close(); err != nil {
		fmt.Fprintln(os.Stderr, styles.RenderWarning(err.Error()))
	}
}

// =============================================================================
// ASK
// =============================================================================

func newAskCommand() *cobra.Command {
	var instant bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question and print the reply",
		Long: `Ask one question in line mode. With no argument the question is read
from stdin, so replies can be piped:

  echo "Explain the Reading Steiner" | amadeus ask > answer.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				if IsTTY() {
					return fmt.Errorf("no question given")
				}
				raw, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 64*1024))
				if err != nil {
					return fmt.Errorf("read question: %w", err)
				}
				question = strings.TrimSpace(string(raw))
				if question == "" {
					return fmt.Errorf("no question given")
				}
			}

			app, err := OpenApp(config.OpenStore())
			if err != nil {
				return err
			}
			defer closeApp(app)

			return RunLine(app, LineOptions{
				Question: question,
				Instant:  instant || !IsStdoutTTY(),
				Out:      cmd.OutOrStdout(),
			})
		},
	}
	cmd.Flags().BoolVar(&instant, "instant", false, "print each page at once instead of revealing it")
	return cmd
}

// =============================================================================
// VERSION
// =============================================================================

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "amadeus %s\n", Version)
			fmt.Fprintf(out, "  commit: %s\n", GitCommit)
			fmt.Fprintf(out, "  built:  %s\n", BuildDate)
		},
	}
}
