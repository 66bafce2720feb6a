// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// backlog_cmd.go - Browse what was said in earlier sessions.

package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/amadeus-tui/internal/config"
	"github.com/jeranaias/amadeus-tui/internal/storage"
	"github.com/jeranaias/amadeus-tui/internal/ui/styles"
	"github.com/jeranaias/amadeus-tui/internal/util"
)

// openBacklog opens the backlog database from the configured data dir.
func openBacklog() (*storage.BacklogStore, error) {
	dir, err := config.OpenStore().Config().DataDir()
	if err != nil {
		return nil, err
	}
	return storage.Open(filepath.Join(dir, BacklogFile))
}

func newBacklogCommand() *cobra.Command {
	var limit, searchLimit int

	cmd := &cobra.Command{
		Use:   "backlog",
		Short: "Show recent lines from the backlog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openBacklog()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printEntries(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 30, "number of lines to show")

	search := &cobra.Command{
		Use:   "search <text>",
		Short: "Find lines containing text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openBacklog()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Search(cmd.Context(), args[0], searchLimit)
			if err != nil {
				return err
			}
			printEntries(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	search.Flags().IntVarP(&searchLimit, "limit", "n", 50, "maximum matches")

	sessions := &cobra.Command{
		Use:   "sessions",
		Short: "List past sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openBacklog()
			if err != nil {
				return err
			}
			defer store.Close()

			metas, err := store.Sessions(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(metas) == 0 {
				fmt.Fprintln(out, DimStyle.Render("No sessions yet."))
				return nil
			}
			// id, date and count take 38 columns.
			previewWidth := max(GetTerminalWidth()-38, 20)
			for _, m := range metas {
				fmt.Fprintf(out, "%s  %s  %3d lines  %s\n",
					DimStyle.Render(shortID(m.ID)),
					m.StartedAt.Format("2006-01-02 15:04"),
					m.Count,
					util.TruncateWidth(m.Preview, previewWidth))
			}
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <session>",
		Short: "Print one session; an ID prefix from 'sessions' is enough",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openBacklog()
			if err != nil {
				return err
			}
			defer store.Close()

			id, err := resolveSession(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			entries, err := store.SessionEntries(cmd.Context(), id)
			if err != nil {
				return err
			}
			printEntries(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the whole backlog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openBacklog()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			if err := store.Clear(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess("Backlog cleared."))
			return nil
		},
	}

	cmd.AddCommand(search, sessions, show, clearCmd)
	return cmd
}

func printEntries(out io.Writer, entries []storage.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, DimStyle.Render("Nothing has been said yet."))
		return
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s %s %s\n",
			DimStyle.Render(e.CreatedAt.Format("01/02 15:04")),
			speakerStyle(e.Speaker).Render(e.Speaker+":"),
			e.Text)
	}
}

// resolveSession expands a session ID prefix. Ambiguous prefixes are errors.
func resolveSession(ctx context.Context, store *storage.BacklogStore, prefix string) (string, error) {
	metas, err := store.Sessions(ctx)
	if err != nil {
		return "", err
	}
	var match string
	for _, m := range metas {
		if !strings.HasPrefix(m.ID, prefix) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("session prefix %q is ambiguous", prefix)
		}
		match = m.ID
	}
	if match == "" {
		return "", fmt.Errorf("no session matches %q", prefix)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
