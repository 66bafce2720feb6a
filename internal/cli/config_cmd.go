// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Inspect and change settings.

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/amadeus-tui/internal/config"
)

// secretMask replaces credential values in output.
const secretMask = "********"

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
		Long: `Show or change settings using dot notation.

Keys:
  ` + strings.Join(config.GetAllKeys(), "\n  "),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd, config.OpenStore())
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one setting",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := config.OpenStore().Config().Get(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), displayValue(args[0], v))
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change one setting and save it",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				store := config.OpenStore()
				next := store.Config()
				if err := next.Set(args[0], args[1]); err != nil {
					return err
				}
				if err := store.Update(func(c *config.Config) { *c = *next }); err != nil {
					return fmt.Errorf("save config: %w", err)
				}
				v, _ := store.Config().Get(args[0])
				fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Saved")+" "+args[0]+" = "+displayValue(args[0], v))
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), config.OpenStore().Path())
			},
		},
	)
	return cmd
}

func showConfig(cmd *cobra.Command, store *config.Store) error {
	out := cmd.OutOrStdout()
	cfg := store.Config()
	fmt.Fprintln(out, TitleStyle.Render("Configuration"))
	fmt.Fprintln(out, RenderKeyValue("file", store.Path()))
	for _, key := range config.GetAllKeys() {
		v, err := cfg.Get(key)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, RenderKeyValue(key, displayValue(key, v)))
	}
	s := store.Settings()
	fmt.Fprintln(out)
	fmt.Fprintln(out, RenderKeyValue("active provider", fmt.Sprintf("%s (%s)", s.Provider, s.Model)))
	return nil
}

// displayValue masks credentials.
// SECURITY: Keys and tokens are never printed, only whether they are set.
func displayValue(key string, v interface{}) string {
	if config.IsSecret(key) {
		if s, ok := v.(string); ok && s != "" {
			return secretMask
		}
		return "(not set)"
	}
	return fmt.Sprint(v)
}
