// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the Amadeus TUI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection.

# Color System (colors.go)

  - Crimson - Brand color, the dialogue frame and speaker name
  - Steel - The user and the input prompt
  - Amber - Auto mode badge and notices
  - Rose - Errors

Each emotion has its own portrait frame color:

	styles.EmotionColor(tagparse.Blush)

# Theme System (theme.go)

	theme := styles.NewTheme()
	box := theme.DialogueBox.Width(width - 2).Render(text)
	face := theme.PortraitFor(view.Emotion).Render(view.Emotion.Face())
*/
package styles
