// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is who wrote a message. The values double as wire roles for the
// OpenAI-style providers.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) String() string { return string(r) }

// Speaker is the backlog name for the role.
func (r Role) Speaker() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Kurisu"
	}
	return "System"
}

// Message is one history entry. Content is already cleaned: reasoning
// spans and emotion tags never reach history.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage stamps a message with a fresh ID and the current time.
func NewMessage(role Role, content string) Message {
	return Message{ID: uuid.NewString(), Role: role, Content: content, Timestamp: time.Now()}
}

func NewUserMessage(content string) Message      { return NewMessage(RoleUser, content) }
func NewAssistantMessage(content string) Message { return NewMessage(RoleAssistant, content) }
func NewSystemMessage(content string) Message    { return NewMessage(RoleSystem, content) }

// IsSystem reports whether m is the rebuilt persona prompt.
func (m Message) IsSystem() bool { return m.Role == RoleSystem }
