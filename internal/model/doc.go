// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// # Key Types
//
//   - Conversation: Ordered, mutex-guarded history with the system prompt at index 0
//   - Message: Single message with role, cleaned content, and timestamp
//   - ModelInfo: Suggested model for a provider
//   - Role: Message role enumeration (system, user, assistant)
//
// # Usage
//
//	conv := model.NewConversation()
//	conv.SetSystem(prompt)
//	conv.Append(model.NewUserMessage("こんにちは"))
//	history := conv.Snapshot()
package model
