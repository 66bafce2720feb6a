// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dialogue

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/amadeus-tui/internal/present"
)

// helpIntro is the markdown shown above the key table.
const helpIntro = `# Amadeus

Talk to Kurisu. Replies are revealed a character at a time; when the
%s mark appears, press **Enter** or **Space** to continue.

Settings live in ` + "`~/.amadeus/config.toml`" + ` and are picked up while
the app is running. Pacing changes apply to the reply on screen.

## Keys
`

// HelpMarkdown returns the help page as markdown.
func HelpMarkdown(k KeyMap) string {
	var b strings.Builder
	fmt.Fprintf(&b, helpIntro, present.AdvanceMark)
	b.WriteString("\n| Key | Action |\n|---|---|\n")
	for _, group := range k.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			fmt.Fprintf(&b, "| `%s` | %s |\n", h.Key, h.Desc)
		}
	}
	return b.String()
}

// renderHelp renders the help page through glamour, falling back to the
// raw markdown if rendering fails.
func renderHelp(k KeyMap, width int) string {
	md := HelpMarkdown(k)
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(width-4, 20)),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}
