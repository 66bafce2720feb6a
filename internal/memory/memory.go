// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/amadeus-tui/internal/model"
	"github.com/jeranaias/amadeus-tui/internal/util"
)

// Retention limits.
const (
	MaxUserFacts      = 50
	MaxSummaries      = 10
	MaxTopics         = 30
	EmotionHistoryLen = 10

	// contextSummaries is how many summaries are injected into the prompt.
	contextSummaries = 3

	// repeatThreshold is the run length RecordEmotion reports.
	repeatThreshold = 3

	sessionLayout = "2006-01-02 15:04"
)

// moodHints vary the persona's tone between turns.
var moodHints = []string{
	"（今は少しリラックスしている）",
	"（知的好奇心が高まっている）",
	"（少し眠そう）",
	"（何かを考え込んでいる）",
	"（いつも通りの調子）",
}

// Data is the persisted long-term memory.
type Data struct {
	UserName          string   `json:"user_name"`
	UserFacts         []string `json:"user_facts"`
	Summaries         []string `json:"conversation_summaries"`
	LastSessionDate   string   `json:"last_session_date"`
	TotalInteractions int      `json:"total_interactions"`
	RecentEmotions    []string `json:"recent_emotions"`
	Topics            []string `json:"topics_discussed"`
}

// Manager owns long-term memory and history trimming.
type Manager struct {
	mu   sync.Mutex
	path string
	data Data

	now   func() time.Time
	intn  func(n int) int
	saveF func() error
}

// New creates an empty manager persisting to path. An empty path keeps
// memory in process only.
func New(path string) *Manager {
	m := &Manager{path: path, now: time.Now, intn: rand.IntN}
	m.saveF = m.save
	return m
}

// Load reads memory from path. A missing file yields empty memory; an
// unreadable one is logged and replaced with empty memory.
func Load(path string) *Manager {
	m := New(path)
	if path == "" {
		return m
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("[memory] failed to read %s: %v", path, err)
		}
		return m
	}
	if err := json.Unmarshal(raw, &m.data); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: memory file is corrupt, starting fresh: %v\n", err)
		m.data = Data{}
		return m
	}
	log.Printf("[memory] loaded, %d total interactions", m.data.TotalInteractions)
	return m
}

// WithClock overrides the time source.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// WithRand overrides the mood hint selector.
func (m *Manager) WithRand(intn func(n int) int) *Manager {
	m.intn = intn
	return m
}

// Snapshot returns a copy of the stored data.
func (m *Manager) Snapshot() Data {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := m.data
	d.UserFacts = slices.Clone(d.UserFacts)
	d.Summaries = slices.Clone(d.Summaries)
	d.RecentEmotions = slices.Clone(d.RecentEmotions)
	d.Topics = slices.Clone(d.Topics)
	return d
}

// =============================================================================
// PROMPT CONTEXT
// =============================================================================

// MemoryContext renders the long-term memory block for the system prompt.
func (m *Manager) MemoryContext() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := m.data
	var lines []string

	if d.UserName != "" {
		lines = append(lines, "【ユーザー情報】ユーザーの名前は「"+d.UserName+"」。")
	}
	if len(d.UserFacts) > 0 {
		lines = append(lines, "【ユーザーについて知っていること】")
		for _, f := range d.UserFacts {
			lines = append(lines, "- "+f)
		}
	}
	if len(d.Summaries) > 0 {
		lines = append(lines, "【過去の会話の記憶】")
		start := max(0, len(d.Summaries)-contextSummaries)
		for _, s := range d.Summaries[start:] {
			lines = append(lines, "- "+s)
		}
	}
	if d.LastSessionDate != "" {
		lines = append(lines, "【前回のセッション】"+d.LastSessionDate)
	}
	if d.TotalInteractions > 0 {
		lines = append(lines, fmt.Sprintf("【累計やりとり回数】%d回", d.TotalInteractions))
	}
	if len(d.RecentEmotions) >= repeatThreshold {
		lines = append(lines, "【最近の感情傾向】"+strings.Join(d.RecentEmotions, "→")+"（同じ感情が続きすぎないように意識して）")
	}

	return strings.Join(lines, "\n")
}

// TimeOfDay returns the Japanese time-of-day bucket for hour.
func TimeOfDay(hour int) string {
	switch {
	case hour >= 5 && hour < 10:
		return "朝"
	case hour >= 10 && hour < 12:
		return "午前中"
	case hour >= 12 && hour < 14:
		return "昼"
	case hour >= 14 && hour < 17:
		return "午後"
	case hour >= 17 && hour < 20:
		return "夕方"
	case hour >= 20 && hour < 24:
		return "夜"
	default:
		return "深夜"
	}
}

// DynamicContext renders the per-turn situation block.
func (m *Manager) DynamicContext(turn int) string {
	bucket := TimeOfDay(m.now().Hour())
	hint := moodHints[m.intn(len(moodHints))]
	return fmt.Sprintf("【現在の状況】時間帯: %s / 会話ターン数: %d\n%s", bucket, turn, hint)
}

// =============================================================================
// RECORDING
// =============================================================================

// RecordEmotion appends emotion to the recent history and reports whether
// the same emotion has now been used three or more times in a row.
func (m *Manager) RecordEmotion(emotion string) bool {
	m.mu.Lock()
	m.data.RecentEmotions = append(m.data.RecentEmotions, emotion)
	if n := len(m.data.RecentEmotions); n > EmotionHistoryLen {
		m.data.RecentEmotions = slices.Clone(m.data.RecentEmotions[n-EmotionHistoryLen:])
	}

	run := 0
	for i := len(m.data.RecentEmotions) - 1; i >= 0 && m.data.RecentEmotions[i] == emotion; i-- {
		run++
	}
	m.mu.Unlock()

	m.persist()
	return run >= repeatThreshold
}

// RecordInteraction bumps the interaction count and session date.
func (m *Manager) RecordInteraction() {
	m.mu.Lock()
	m.data.TotalInteractions++
	m.data.LastSessionDate = m.now().Format(sessionLayout)
	m.mu.Unlock()

	m.persist()
}

// AddUserFact stores a fact about the user, ignoring duplicates.
func (m *Manager) AddUserFact(fact string) {
	fact = strings.TrimSpace(fact)
	if fact == "" {
		return
	}

	m.mu.Lock()
	if slices.Contains(m.data.UserFacts, fact) {
		m.mu.Unlock()
		return
	}
	m.data.UserFacts = appendBounded(m.data.UserFacts, fact, MaxUserFacts)
	m.mu.Unlock()

	m.persist()
}

// SetUserName stores the user's name. Empty names are ignored.
func (m *Manager) SetUserName(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}

	m.mu.Lock()
	m.data.UserName = name
	m.mu.Unlock()

	m.persist()
}

// UserName returns the stored name.
func (m *Manager) UserName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.UserName
}

// AddSummary stores a conversation summary.
func (m *Manager) AddSummary(summary string) {
	if summary == "" {
		return
	}

	m.mu.Lock()
	m.data.Summaries = appendBounded(m.data.Summaries, summary, MaxSummaries)
	m.mu.Unlock()

	m.persist()
}

// AddTopic records a discussed topic, ignoring duplicates.
func (m *Manager) AddTopic(topic string) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.Contains(m.data.Topics, topic) {
		m.data.Topics = appendBounded(m.data.Topics, topic, MaxTopics)
	}
}

// TrimHistory trims history to window and files the summary.
func (m *Manager) TrimHistory(history []model.Message, window int) ([]model.Message, string) {
	out, summary := Trim(history, window, m.now())
	if summary != "" {
		m.AddSummary(summary)
		log.Printf("[memory] trimmed %d messages", len(history)-len(out))
	}
	return out, summary
}

// Clear wipes all memory.
func (m *Manager) Clear() error {
	m.mu.Lock()
	m.data = Data{}
	m.mu.Unlock()

	log.Printf("[memory] all memory cleared")
	return m.Save()
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Save writes memory to disk.
func (m *Manager) Save() error {
	return m.saveF()
}

// persist saves and logs failures; memory loss is not fatal to a turn.
func (m *Manager) persist() {
	if err := m.Save(); err != nil {
		log.Printf("[memory] failed to save: %v", err)
	}
}

func (m *Manager) save() error {
	if m.path == "" {
		return nil
	}

	m.mu.Lock()
	raw, err := json.MarshalIndent(m.data, "", "  ")
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal memory: %w", err)
	}

	// SECURITY: Memory holds personal facts; owner-only permissions
	if err := util.AtomicWriteFile(m.path, raw, 0600); err != nil {
		return fmt.Errorf("save memory: %w", err)
	}
	return nil
}

// appendBounded appends v and drops the oldest entries beyond limit.
func appendBounded(list []string, v string, limit int) []string {
	list = append(list, v)
	if len(list) > limit {
		list = slices.Clone(list[len(list)-limit:])
	}
	return list
}
