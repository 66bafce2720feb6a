// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across packages.
//
// # Key Functions
//
//   - AtomicWriteFile: Crash-safe file writing with fsync
//   - TruncateRunes, ClipRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth, StringWidth: Terminal-column aware helpers for CJK text
//
// # Usage
//
//	err := util.AtomicWriteFile(path, data, 0600)
//	entry := util.ClipRunes(text, 50)
package util
