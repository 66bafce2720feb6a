// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// models_cmd.go - List suggested models per provider.

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jeranaias/amadeus-tui/internal/config"
	"github.com/jeranaias/amadeus-tui/internal/model"
	"github.com/jeranaias/amadeus-tui/internal/ui/styles"
)

func newModelsCommand() *cobra.Command {
	var only string

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List suggested models",
		Long: `List well-known models for each provider. The active model is marked
with *. Any model name can be configured; this list is only a guide.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := config.OpenStore().Settings()
			out := cmd.OutOrStdout()

			providers := model.Providers()
			if only != "" {
				if len(model.ModelsByProvider(only)) == 0 {
					return fmt.Errorf("no models listed for provider %q", only)
				}
				providers = []string{only}
			}

			for i, p := range providers {
				if i > 0 {
					fmt.Fprintln(out, RenderSeparator(40))
				}
				printModels(out, p, s.Provider.String(), s.Model)
			}

			// USABILITY: a custom model is fine, but say so.
			if _, ok := model.LookupModel(s.Provider.String(), s.Model); !ok && s.Model != "" {
				fmt.Fprintln(out)
				fmt.Fprintln(out, styles.RenderInfo(fmt.Sprintf("%s is not in the list; it is passed to %s as-is.", s.Model, s.Provider)))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&only, "provider", "p", "", "show one provider only")
	return cmd
}

func printModels(out io.Writer, provider, activeProvider, activeModel string) {
	fmt.Fprintln(out, TitleStyle.Render(provider))
	for _, m := range model.ModelsByProvider(provider) {
		mark := " "
		if provider == activeProvider && m.ID == activeModel {
			mark = SuccessStyle.Render("*")
		}
		var notes string
		if m.Reasoning {
			notes += " reasoning"
		}
		if m.WebSearch {
			notes += " web-search"
		}
		fmt.Fprintf(out, "%s %-28s %-18s %s%s\n",
			mark, m.ID, m.Name, DimStyle.Render(m.ContextString()), DimStyle.Render(notes))
	}
}
