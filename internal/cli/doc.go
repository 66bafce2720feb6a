// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the amadeus command tree and the two ways to hold a
// conversation: the full-screen dialogue interface and line mode.
//
// # Key Types
//
//   - App: Settings store, memory, backlog and Vertex token source
//   - ChatCLI: liner-based line editing with persistent history
//   - LineOptions: One-shot or interactive line mode
//
// # Usage
//
//	os.Exit(cli.Execute())
//
// # Commands Overview
//
//   - (none): Dialogue screen, or line mode when not on a terminal
//   - ask: One question, reply printed to stdout
//   - config: Show settings; get, set and path subcommands
//   - backlog: Recent lines; search, sessions, show and clear subcommands
//   - memory: Long-term memory; name, fact, topic and clear subcommands
//   - models: Suggested models per provider
//   - version: Build information
package cli
