// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sync"
	"time"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds the ordered chat history. Index 0 is always the system
// message once SetSystem has been called; the orchestrator rewrites it before
// every request.
type Conversation struct {
	mu        sync.RWMutex
	messages  []Message
	updatedAt time.Time
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{messages: make([]Message, 0, 32)}
}

// SetSystem installs or replaces the system message at index 0.
func (c *Conversation) SetSystem(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.messages) > 0 && c.messages[0].IsSystem() {
		c.messages[0].Content = content
		c.messages[0].Timestamp = time.Now()
	} else {
		c.messages = append([]Message{NewSystemMessage(content)}, c.messages...)
	}
	c.updatedAt = time.Now()
}

// System returns the current system prompt, or "" when none is set.
func (c *Conversation) System() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.messages) > 0 && c.messages[0].IsSystem() {
		return c.messages[0].Content
	}
	return ""
}

// Append adds a message to the end of the history.
func (c *Conversation) Append(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages, msg)
	c.updatedAt = time.Now()
}

// Len returns the number of messages including the system message.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// NonSystemCount returns the number of user and assistant messages.
func (c *Conversation) NonSystemCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, m := range c.messages {
		if !m.IsSystem() {
			n++
		}
	}
	return n
}

// Snapshot returns a copy of the history safe to hand to a request builder.
func (c *Conversation) Snapshot() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Replace swaps the whole history, used after trimming.
func (c *Conversation) Replace(messages []Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.messages = append(c.messages[:0:0], messages...)
	c.updatedAt = time.Now()
}

// Last returns the most recent message.
func (c *Conversation) Last() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// Clear drops every message except the system prompt.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.messages) > 0 && c.messages[0].IsSystem() {
		c.messages = c.messages[:1]
	} else {
		c.messages = c.messages[:0]
	}
	c.updatedAt = time.Now()
}

// UpdatedAt returns the time of the last mutation.
func (c *Conversation) UpdatedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatedAt
}
