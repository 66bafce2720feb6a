// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_SetSystemReplacesIndexZero(t *testing.T) {
	c := NewConversation()
	c.Append(NewUserMessage("hi"))
	c.SetSystem("first")

	msgs := c.Snapshot()
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.Equal(t, "first", msgs[0].Content)

	c.SetSystem("second")
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "second", c.System())
}

func TestConversation_SnapshotIsACopy(t *testing.T) {
	c := NewConversation()
	c.SetSystem("sys")
	c.Append(NewUserMessage("a"))

	snap := c.Snapshot()
	snap[1].Content = "mutated"

	last, ok := c.Last()
	require.True(t, ok)
	assert.Equal(t, "a", last.Content)
}

func TestConversation_ClearKeepsSystem(t *testing.T) {
	c := NewConversation()
	c.SetSystem("sys")
	c.Append(NewUserMessage("a"))
	c.Append(NewAssistantMessage("b"))
	assert.Equal(t, 2, c.NonSystemCount())

	c.Clear()
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 0, c.NonSystemCount())
	assert.Equal(t, "sys", c.System())
}

func TestConversation_Replace(t *testing.T) {
	c := NewConversation()
	msgs := []Message{NewSystemMessage("s"), NewUserMessage("u")}
	c.Replace(msgs)
	msgs[1].Content = "changed"

	last, _ := c.Last()
	assert.Equal(t, "u", last.Content)
}

func TestMessage_IDsAreUnique(t *testing.T) {
	a := NewUserMessage("x")
	b := NewUserMessage("x")
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEmpty(t, a.ID)
}

func TestRole_Speaker(t *testing.T) {
	assert.Equal(t, "User", RoleUser.Speaker())
	assert.Equal(t, "Kurisu", RoleAssistant.Speaker())
}

// =============================================================================
// CATALOG TESTS
// =============================================================================

func TestModelsByProvider(t *testing.T) {
	groq := ModelsByProvider("groq")
	require.NotEmpty(t, groq)
	for _, m := range groq {
		assert.Equal(t, "Groq", m.Provider)
	}
}

func TestLookupModel(t *testing.T) {
	m, ok := LookupModel("Vertex", "gemini-2.5-flash")
	require.True(t, ok)
	assert.True(t, m.WebSearch)

	_, ok = LookupModel("", "does-not-exist")
	assert.False(t, ok)
}

func TestModelInfo_ContextString(t *testing.T) {
	assert.Equal(t, "128K tokens", ModelInfo{MaxTokens: 128000}.ContextString())
	assert.Equal(t, "1.0M tokens", ModelInfo{MaxTokens: 1048576}.ContextString())
	assert.Equal(t, "512 tokens", ModelInfo{MaxTokens: 512}.ContextString())
}

func TestProviders_Sorted(t *testing.T) {
	assert.Equal(t, []string{"Claude", "Gemini", "Groq", "OpenAI", "Vertex"}, Providers())
}
