// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bytes"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/jeranaias/amadeus-tui/internal/extract"
)

// sseDone is the sentinel some providers send to signal end of stream.
const sseDone = "[DONE]"

// deltaFunc extracts the text delta from one complete SSE payload. It returns
// "" for payloads that carry no text (role-only, usage or ping events).
type deltaFunc func(payload string) string

// decodeSSE is the shared DecodeStreamChunk implementation.
//
// STREAMING: Chunks arrive at arbitrary byte boundaries. Only complete lines
// are decoded; the trailing partial line is returned as buf and prefixed onto
// the next chunk by the caller.
func decodeSSE(kind Kind, prev, chunk []byte, delta deltaFunc) (string, []byte, error) {
	data := make([]byte, 0, len(prev)+len(chunk))
	data = append(data, prev...)
	data = append(data, chunk...)

	var out strings.Builder
	for {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimRight(string(data[:idx]), "\r")
		data = data[idx+1:]

		payload, ok := ssePayload(line)
		if !ok {
			continue
		}
		if err := streamError(kind, payload); err != nil {
			return out.String(), data, err
		}
		out.WriteString(delta(payload))
	}

	if len(data) == 0 {
		return out.String(), nil, nil
	}
	return out.String(), data, nil
}

// ssePayload returns the data of a "data:" line. Blank lines, event/id lines,
// comments and the [DONE] sentinel are skipped.
func ssePayload(line string) (string, bool) {
	if !strings.HasPrefix(line, "data:") {
		return "", false
	}
	payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if payload == "" || payload == sseDone {
		return "", false
	}
	return payload, true
}

// streamError turns an in-band error payload into a ProviderError.
func streamError(kind Kind, payload string) *ProviderError {
	if !extract.Valid(payload) {
		return nil
	}
	errObj := gjson.Get(payload, "error")
	if !errObj.Exists() || errObj.Type == gjson.Null {
		return nil
	}

	status := int(errObj.Get("code").Int())
	if status == 0 {
		status = 500
	}
	pe := NewStatusError(kind, status, []byte(payload))
	if pe.Message == "" {
		pe.Message = errObj.Get("message").String()
	}
	return pe
}

// pathOrAnchor looks up path in a complete payload and falls back to the
// tolerant scanner (anchor then field) when the payload is not valid JSON.
func pathOrAnchor(payload, path, anchor, field string) (string, bool) {
	if extract.Valid(payload) {
		r := gjson.Get(payload, path)
		if !r.Exists() || r.Type == gjson.Null {
			return "", false
		}
		return r.String(), true
	}
	if anchor == "" {
		return extract.String(payload, field)
	}
	return extract.StringAfter(payload, anchor, field)
}

// batchContent decodes a complete response body.
func batchContent(kind Kind, body []byte, path, anchor, field string) (string, error) {
	text := string(body)
	content, ok := extract.Path(text, path)
	if !ok {
		if anchor == "" {
			content, ok = extract.String(text, field)
		} else {
			content, ok = extract.StringAfter(text, anchor, field)
		}
	}
	if !ok || strings.TrimSpace(content) == "" {
		return "", decodeError(kind, body)
	}
	return content, nil
}
