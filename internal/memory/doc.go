// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package memory keeps the companion's short- and long-term memory.
//
// Short-term memory is the conversation history itself, bounded by Trim.
// Long-term memory (user name, facts, summaries of trimmed conversation,
// recent emotions) is persisted as JSON and rendered into the system prompt
// by MemoryContext and DynamicContext.
//
// # Key Types
//
//   - Manager: Long-term memory with atomic JSON persistence
//   - Data: The persisted document
//
// # Usage
//
//	mem := memory.Load(filepath.Join(dir, "memory.json"))
//	history, _ = mem.TrimHistory(history, memory.DefaultWindow)
//	prompt := persona.Build(base, mem.MemoryContext(), mem.DynamicContext(turn), webSearch)
package memory
