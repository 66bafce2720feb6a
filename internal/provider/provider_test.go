// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/jeranaias/amadeus-tui/internal/model"
)

func testHistory() []model.Message {
	return []model.Message{
		model.NewSystemMessage("persona"),
		model.NewUserMessage("hi"),
		model.NewAssistantMessage("hello"),
		model.NewUserMessage("again"),
	}
}

// =============================================================================
// KIND AND REGISTRY TESTS
// =============================================================================

func TestParseKind(t *testing.T) {
	k, err := ParseKind("groq")
	require.NoError(t, err)
	assert.Equal(t, KindGroq, k)

	k, err = ParseKind("4")
	require.NoError(t, err)
	assert.Equal(t, KindVertex, k)

	_, err = ParseKind("9")
	assert.ErrorIs(t, err, ErrUnknownProvider)
	_, err = ParseKind("mistral")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestKind_IndicesAreStable(t *testing.T) {
	assert.Equal(t, 0, int(KindOpenAI))
	assert.Equal(t, 1, int(KindGemini))
	assert.Equal(t, 2, int(KindClaude))
	assert.Equal(t, 3, int(KindGroq))
	assert.Equal(t, 4, int(KindVertex))
}

func TestRegistry(t *testing.T) {
	reg := DefaultRegistry()
	assert.Equal(t, []Kind{KindOpenAI, KindGemini, KindClaude, KindGroq, KindVertex}, reg.Kinds())

	for _, k := range reg.Kinds() {
		c, err := reg.Get(k)
		require.NoError(t, err)
		assert.Equal(t, k, c.Kind())
		assert.Equal(t, k.String(), c.Name())
	}

	_, err := reg.Get(Kind(42))
	assert.ErrorIs(t, err, ErrUnknownProvider)

	empty := NewRegistry()
	_, err = empty.Get(KindOpenAI)
	assert.ErrorIs(t, err, ErrUnknownProvider)
	empty.Register(NewOpenAI())
	_, err = empty.Get(KindOpenAI)
	assert.NoError(t, err)
}

func TestStreamsByDefault(t *testing.T) {
	reg := DefaultRegistry()
	want := map[Kind]bool{KindOpenAI: false, KindGemini: false, KindClaude: false, KindGroq: true, KindVertex: true}
	for k, streams := range want {
		c, _ := reg.Get(k)
		assert.Equal(t, streams, c.StreamsByDefault(), k.String())
	}
}

func TestBuildRequest_MissingCredential(t *testing.T) {
	for _, c := range []Client{NewOpenAI(), NewGemini(), NewClaude(), NewGroq(), NewVertex()} {
		_, err := c.BuildRequest(testHistory(), Selection{Project: "p"})
		assert.ErrorIs(t, err, ErrMissingCredential, c.Name())
	}
	_, err := NewVertex().BuildRequest(testHistory(), Selection{Credential: "tok"})
	assert.ErrorIs(t, err, ErrMissingCredential)
}

// =============================================================================
// REQUEST BUILDING TESTS
// =============================================================================

func TestOpenAI_BuildRequest(t *testing.T) {
	req, err := NewOpenAI().BuildRequest(testHistory(), Selection{Credential: "sk-test"})
	require.NoError(t, err)

	assert.Equal(t, OpenAIURL, req.URL)
	assert.Equal(t, "Bearer sk-test", req.Header.Get("Authorization"))
	assert.False(t, req.Stream)
	assert.NotContains(t, req.Fingerprint, "sk-test")

	body := string(req.Body)
	assert.Equal(t, OpenAIDefaultModel, gjson.Get(body, "model").String())
	assert.Equal(t, int64(2048), gjson.Get(body, "max_tokens").Int())
	assert.False(t, gjson.Get(body, "stream").Exists())
	assert.Equal(t, "system", gjson.Get(body, "messages.0.role").String())
	assert.Equal(t, "persona", gjson.Get(body, "messages.0.content").String())
	assert.Equal(t, "assistant", gjson.Get(body, "messages.2.role").String())
	assert.Equal(t, "again", gjson.Get(body, "messages.3.content").String())

	req, err = NewOpenAI().BuildRequest(testHistory(), Selection{Credential: "k", Model: "gpt-4o-mini", Stream: true})
	require.NoError(t, err)
	assert.True(t, gjson.GetBytes(req.Body, "stream").Bool())
	assert.Equal(t, "gpt-4o-mini", gjson.GetBytes(req.Body, "model").String())
}

func TestGroq_BuildRequest(t *testing.T) {
	req, err := NewGroq().BuildRequest(testHistory(), Selection{Credential: "gsk", Model: "qwen/qwen3-32b", Stream: true})
	require.NoError(t, err)

	body := string(req.Body)
	assert.Equal(t, GroqURL, req.URL)
	assert.InDelta(t, 0.85, gjson.Get(body, "temperature").Float(), 1e-9)
	assert.InDelta(t, 0.9, gjson.Get(body, "top_p").Float(), 1e-9)
	assert.Equal(t, "hidden", gjson.Get(body, "reasoning_format").String())
	assert.True(t, gjson.Get(body, "stream").Bool())

	req, err = NewGroq().BuildRequest(testHistory(), Selection{Credential: "gsk", Model: "llama-3.3-70b-versatile"})
	require.NoError(t, err)
	assert.False(t, gjson.GetBytes(req.Body, "reasoning_format").Exists())
}

func TestGroq_ResolveModel(t *testing.T) {
	g := NewGroq()
	assert.Equal(t, GroqDefaultModel, g.ResolveModel(Selection{Model: "gpt-4o"}))
	assert.Equal(t, GroqDefaultModel, g.ResolveModel(Selection{}))
	assert.Equal(t, "llama-3.3-70b-versatile", g.ResolveModel(Selection{Model: "llama-3.3-70b-versatile"}))
	assert.Equal(t, "deepseek-r1-distill", g.ResolveModel(Selection{Model: "deepseek-r1-distill"}))
	assert.Equal(t, GroqWebSearchModel, g.ResolveModel(Selection{Model: "llama3", WebSearch: true}))
}

func TestClaude_BuildRequest(t *testing.T) {
	req, err := NewClaude().BuildRequest(testHistory(), Selection{Credential: "ant", Model: "gpt-4o"})
	require.NoError(t, err)

	assert.Equal(t, "ant", req.Header.Get("x-api-key"))
	assert.Equal(t, ClaudeAPIVersion, req.Header.Get("anthropic-version"))
	assert.Empty(t, req.Header.Get("Authorization"))

	body := string(req.Body)
	assert.Equal(t, ClaudeDefaultModel, gjson.Get(body, "model").String())
	assert.Equal(t, "persona", gjson.Get(body, "system.0.text").String())
	assert.Equal(t, "text", gjson.Get(body, "system.0.type").String())
	assert.Equal(t, int64(3), gjson.Get(body, "messages.#").Int())
	assert.Equal(t, "user", gjson.Get(body, "messages.0.role").String())
	assert.Equal(t, "text", gjson.Get(body, "messages.0.content.0.type").String())
	assert.Equal(t, "assistant", gjson.Get(body, "messages.1.role").String())
	assert.Equal(t, int64(2048), gjson.Get(body, "max_tokens").Int())
	assert.False(t, gjson.Get(body, "stream").Exists())
}

func TestClaude_BuildRequestStreamAndNoSystem(t *testing.T) {
	history := []model.Message{model.NewUserMessage("hi")}
	req, err := NewClaude().BuildRequest(history, Selection{Credential: "ant", Model: "claude-3-5-haiku-latest", Stream: true})
	require.NoError(t, err)

	body := string(req.Body)
	assert.Equal(t, "claude-3-5-haiku-latest", gjson.Get(body, "model").String())
	assert.False(t, gjson.Get(body, "system").Exists())
	assert.Equal(t, "hi", gjson.Get(body, "messages.0.content.0.text").String())
	assert.True(t, gjson.Get(body, "stream").Bool())
}

func TestGemini_BuildRequest(t *testing.T) {
	req, err := NewGemini().BuildRequest(testHistory(), Selection{Credential: "AIza"})
	require.NoError(t, err)

	assert.Equal(t, GeminiBaseURL+"/gemini-2.0-flash:generateContent?key=AIza", req.URL)
	assert.Empty(t, req.Header.Get("Authorization"))

	body := string(req.Body)
	assert.Equal(t, "persona", gjson.Get(body, "system_instruction.parts.0.text").String())
	assert.Equal(t, int64(3), gjson.Get(body, "contents.#").Int())
	assert.Equal(t, "user", gjson.Get(body, "contents.0.role").String())
	assert.Equal(t, "model", gjson.Get(body, "contents.1.role").String())
	assert.Equal(t, "hello", gjson.Get(body, "contents.1.parts.0.text").String())
	assert.Equal(t, int64(2048), gjson.Get(body, "generationConfig.maxOutputTokens").Int())
	assert.False(t, gjson.Get(body, "tools").Exists())

	req, err = NewGemini().BuildRequest(testHistory(), Selection{Credential: "AIza", Model: "gemini-2.5-flash", Stream: true})
	require.NoError(t, err)
	assert.Equal(t, GeminiBaseURL+"/gemini-2.5-flash:streamGenerateContent?alt=sse&key=AIza", req.URL)
}

func TestVertex_BuildRequest(t *testing.T) {
	v := NewVertex()
	req, err := v.BuildRequest(testHistory(), Selection{
		Credential: "ya29", Project: "proj", Region: "asia-northeast1", WebSearch: true, Stream: true,
	})
	require.NoError(t, err)

	assert.Equal(t,
		"https://asia-northeast1-aiplatform.googleapis.com/v1/projects/proj/locations/asia-northeast1/publishers/google/models/gemini-2.0-flash:streamGenerateContent?alt=sse",
		req.URL)
	assert.Equal(t, "Bearer ya29", req.Header.Get("Authorization"))
	assert.True(t, gjson.GetBytes(req.Body, "tools.0.googleSearch").Exists())

	req, err = v.BuildRequest(testHistory(), Selection{Credential: "ya29", Project: "proj"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(req.URL, "https://us-central1-aiplatform.googleapis.com/"))
	assert.True(t, strings.HasSuffix(req.URL, ":generateContent"))
}

func TestVertexHost_Global(t *testing.T) {
	assert.Equal(t, "https://aiplatform.googleapis.com", VertexHost("global"))
	assert.Equal(t, "https://us-east4-aiplatform.googleapis.com", VertexHost("us-east4"))
}

// =============================================================================
// DECODE TESTS
// =============================================================================

func TestDecodeBatch(t *testing.T) {
	tests := []struct {
		client Client
		body   string
		want   string
	}{
		{NewOpenAI(), `{"choices":[{"message":{"role":"assistant","content":"[SMILE] hi\n\"there\""}}]}`, "[SMILE] hi\n\"there\""},
		{NewGroq(), `{"choices":[{"message":{"content":"ok",}}]}`, "ok"},
		{NewClaude(), `{"content":[{"type":"text","text":"やあ"}]}`, "やあ"},
		{NewGemini(), `{"candidates":[{"content":{"parts":[{"text":"g"}],"role":"model"}}]}`, "g"},
		{NewVertex(), `{"candidates":[{"content":{"parts":[{"text":"v"}]}}]`, "v"},
	}
	for _, tt := range tests {
		got, err := tt.client.DecodeBatch([]byte(tt.body))
		require.NoError(t, err, tt.client.Name())
		assert.Equal(t, tt.want, got, tt.client.Name())
	}
}

func TestDecodeBatch_Failure(t *testing.T) {
	_, err := NewOpenAI().DecodeBatch([]byte(`{"choices":[]}`))
	require.ErrorIs(t, err, ErrDecodeFailure)

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, KindOpenAI, pe.Provider)
	assert.False(t, pe.Temporary())

	_, err = NewClaude().DecodeBatch([]byte(`{"content":[{"text":"   "}]}`))
	assert.ErrorIs(t, err, ErrDecodeFailure)
}

// feedBytes decodes a stream one byte at a time to exercise every split point.
func feedBytes(t *testing.T, c Client, stream string) string {
	t.Helper()
	var (
		out strings.Builder
		buf []byte
	)
	for i := 0; i < len(stream); i++ {
		delta, rest, err := c.DecodeStreamChunk(buf, []byte{stream[i]})
		require.NoError(t, err)
		out.WriteString(delta)
		buf = rest
	}
	return out.String()
}

func TestDecodeStreamChunk_OpenAIFraming(t *testing.T) {
	stream := "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"[SMILE] \"}}]}\n\n" +
		": keep-alive\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"Hi the\"}}]}\r\n\r\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"re!\\n\"}}]}\n\n" +
		"data: [DONE]\n\n"

	assert.Equal(t, "[SMILE] Hi there!\n", feedBytes(t, NewGroq(), stream))
}

func TestDecodeStreamChunk_Claude(t *testing.T) {
	stream := "event: message_start\ndata: {\"type\":\"message_start\",\"message\":{\"content\":[]}}\n\n" +
		"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"こん\"}}\n\n" +
		"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"にちは\"}}\n\n" +
		"event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n"

	assert.Equal(t, "こんにちは", feedBytes(t, NewClaude(), stream))
}

func TestDecodeStreamChunk_ContentParts(t *testing.T) {
	stream := "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"Hel\"},{\"text\":\"lo\"}]}}]}\n\n" +
		"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\", world\"}]},\"finishReason\":\"STOP\"}]}\n\n"

	assert.Equal(t, "Hello, world", feedBytes(t, NewVertex(), stream))
	assert.Equal(t, "Hello, world", feedBytes(t, NewGemini(), stream))
}

func TestDecodeStreamChunk_PartialLineReturned(t *testing.T) {
	c := NewOpenAI()
	delta, buf, err := c.DecodeStreamChunk(nil, []byte("data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\ndata: {\"cho"))
	require.NoError(t, err)
	assert.Equal(t, "a", delta)
	assert.Equal(t, "data: {\"cho", string(buf))

	delta, buf, err = c.DecodeStreamChunk(buf, []byte("ices\":[{\"delta\":{\"content\":\"b\"}}]}\n"))
	require.NoError(t, err)
	assert.Equal(t, "b", delta)
	assert.Empty(t, buf)
}

func TestDecodeStreamChunk_ErrorPayload(t *testing.T) {
	_, _, err := NewVertex().DecodeStreamChunk(nil,
		[]byte("data: {\"error\":{\"code\":429,\"message\":\"Resource exhausted\",\"status\":\"RESOURCE_EXHAUSTED\"}}\n"))
	require.ErrorIs(t, err, ErrRateLimited)

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 429, pe.StatusCode())
	assert.Equal(t, "Resource exhausted", pe.Message)
	assert.True(t, pe.Temporary())
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestStatusError(t *testing.T) {
	assert.ErrorIs(t, StatusError(401), ErrAuthFailed)
	assert.ErrorIs(t, StatusError(403), ErrAuthFailed)
	assert.ErrorIs(t, StatusError(403), ErrForbidden)
	assert.NotErrorIs(t, StatusError(401), ErrForbidden)
	assert.ErrorIs(t, StatusError(404), ErrModelNotFound)
	assert.ErrorIs(t, StatusError(429), ErrRateLimited)
	assert.ErrorIs(t, StatusError(503), ErrServerFault)
	assert.ErrorIs(t, StatusError(400), ErrBadRequest)
}

func TestNewStatusError(t *testing.T) {
	pe := NewStatusError(KindOpenAI, 401, []byte(`{"error":{"message":"Incorrect API key provided"}}`))
	assert.Equal(t, "OpenAI error (HTTP 401): Incorrect API key provided", pe.Error())
	assert.False(t, pe.Temporary())

	pe = NewStatusError(KindGroq, 502, []byte(`<html>bad gateway</html>`))
	assert.Empty(t, pe.Message)
	assert.True(t, pe.Temporary())
	assert.Contains(t, pe.Error(), "HTTP 502")
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, "none", Fingerprint(""))
	fp := Fingerprint("sk-secret")
	assert.Len(t, fp, 8)
	assert.Equal(t, fp, Fingerprint("sk-secret"))
	assert.NotEqual(t, fp, Fingerprint("sk-other"))
}
