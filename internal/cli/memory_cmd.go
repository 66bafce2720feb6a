// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// memory_cmd.go - Inspect and edit what Kurisu remembers.

package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/amadeus-tui/internal/config"
	"github.com/jeranaias/amadeus-tui/internal/memory"
	"github.com/jeranaias/amadeus-tui/internal/ui/styles"
)

func loadMemory() (*memory.Manager, error) {
	dir, err := config.OpenStore().Config().DataDir()
	if err != nil {
		return nil, err
	}
	return memory.Load(filepath.Join(dir, MemoryFile)), nil
}

func newMemoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Show long-term memory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mem, err := loadMemory()
			if err != nil {
				return err
			}
			printMemory(cmd, mem.Snapshot())
			return nil
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "name <name>",
			Short: "Tell Kurisu your name",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				mem, err := loadMemory()
				if err != nil {
					return err
				}
				mem.SetUserName(strings.Join(args, " "))
				if err := mem.Save(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Name saved: ")+mem.UserName())
				return nil
			},
		},
		&cobra.Command{
			Use:   "fact <text>",
			Short: "Add a fact about yourself",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				mem, err := loadMemory()
				if err != nil {
					return err
				}
				mem.AddUserFact(strings.Join(args, " "))
				if err := mem.Save(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Fact saved."))
				return nil
			},
		},
		&cobra.Command{
			Use:   "topic <text>",
			Short: "Record a topic you have talked about",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				mem, err := loadMemory()
				if err != nil {
					return err
				}
				mem.AddTopic(strings.Join(args, " "))
				if err := mem.Save(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Topic saved."))
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Forget everything",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				mem, err := loadMemory()
				if err != nil {
					return err
				}
				if err := mem.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), styles.RenderSuccess("Memory cleared."))
				return nil
			},
		},
	)
	return cmd
}

func printMemory(cmd *cobra.Command, d memory.Data) {
	out := cmd.OutOrStdout()
	orNone := func(s string) string {
		if s == "" {
			return "(none)"
		}
		return s
	}

	fmt.Fprintln(out, TitleStyle.Render("Memory"))
	fmt.Fprintln(out, RenderKeyValue("name", orNone(d.UserName)))
	fmt.Fprintln(out, RenderKeyValue("interactions", d.TotalInteractions))
	fmt.Fprintln(out, RenderKeyValue("last session", orNone(d.LastSessionDate)))
	fmt.Fprintln(out, RenderKeyValue("recent emotions", orNone(strings.Join(d.RecentEmotions, " "))))
	fmt.Fprintln(out, RenderKeyValue("topics", orNone(strings.Join(d.Topics, ", "))))

	list := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, LabelStyle.Render(title+":"))
		for _, item := range items {
			fmt.Fprintln(out, "  - "+item)
		}
	}
	list("facts", d.UserFacts)
	list("summaries", d.Summaries)
}
