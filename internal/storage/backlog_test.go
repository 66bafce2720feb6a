// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *BacklogStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "backlog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBacklogStore_AppendAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.Append("User", "hello")
	s.Append("Kurisu", "  ……何よ。  ")
	s.Append("Kurisu", "   ")

	entries, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2, "blank pages are not stored")
	assert.Equal(t, "User", entries[0].Speaker)
	assert.Equal(t, "hello", entries[0].Text)
	assert.Equal(t, "……何よ。", entries[1].Text)
	assert.Equal(t, s.Session(), entries[1].Session)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)

	last, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "Kurisu", last[0].Speaker)
}

func TestBacklogStore_PersistsAcrossSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "backlog.db")
	ctx := context.Background()

	first, err := Open(path)
	require.NoError(t, err)
	first.Append("User", "first run")
	require.NoError(t, first.Close())

	if os.PathSeparator == '/' {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()
	second.Append("User", "second run")

	assert.NotEqual(t, first.Session(), second.Session())

	sessions, err := second.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.Session(), sessions[0].ID, "newest session first")
	assert.Equal(t, "second run", sessions[0].Preview)
	assert.Equal(t, 1, sessions[1].Count)

	entries, err := second.SessionEntries(ctx, first.Session())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "first run", entries[0].Text)
}

func TestBacklogStore_MaxEntries(t *testing.T) {
	s := openTestStore(t)
	s.MaxEntries = 3

	for _, text := range []string{"a", "b", "c", "d", "e"} {
		s.Append("User", text)
	}

	entries, err := s.Recent(context.Background(), 0)
	require.NoError(t, err)
	var texts []string
	for _, e := range entries {
		texts = append(texts, e.Text)
	}
	assert.Equal(t, []string{"c", "d", "e"}, texts)
}

func TestBacklogStore_Search(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.Append("User", "Dr Pepper is great")
	s.Append("Kurisu", "100% sure")
	s.Append("Kurisu", "no wildcard here")

	found, err := s.Search(ctx, "pepper", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Dr Pepper is great", found[0].Text)

	found, err = s.Search(ctx, "%", 10)
	require.NoError(t, err)
	require.Len(t, found, 1, "LIKE wildcards are literal")
	assert.Equal(t, "100% sure", found[0].Text)

	found, err = s.Search(ctx, "  ", 10)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestBacklogStore_ClearAndClose(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.Append("User", "hello")
	require.NoError(t, s.Clear(ctx))

	entries, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "double close is harmless")

	_, err = s.Add(ctx, "User", "late")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Recent(ctx, 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEntry_Format(t *testing.T) {
	e := Entry{
		Speaker:   "Kurisu",
		Text:      "ふん。",
		CreatedAt: time.Date(2025, 7, 25, 21, 30, 0, 0, time.Local),
	}
	assert.Equal(t, "[07/25 21:30] Kurisu: ふん。", e.Format())
}
