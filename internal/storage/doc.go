// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists the backlog: every page shown during a turn,
// tagged with its speaker and the program run (session) it belongs to.
//
// # Key Types
//
//   - BacklogStore: SQLite-backed store, usable directly as a BacklogSink
//   - Entry: one stored page
//   - SessionMeta: lightweight metadata for listing runs
//
// # Usage
//
//	store, err := storage.Open(filepath.Join(dataDir, "backlog.db"))
//	store.Append("User", "hello")
//	entries, err := store.Recent(ctx, 50)
//
// # Storage Location
//
// The database lives at ~/.amadeus/backlog.db with 0600 permissions.
package storage
