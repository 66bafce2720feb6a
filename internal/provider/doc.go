// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider builds requests for and decodes replies from the LLM
// providers: OpenAI, Gemini, Claude, Groq and Vertex AI.
//
// Clients are pure: they turn history plus a Selection into a transport-neutral
// Request and turn bytes back into text. I/O happens in a Transport, and the
// Send and Stream helpers glue the two together. No client retries; Vertex
// region failover lives in the failover package.
//
// # Key Types
//
//   - Client: Per-provider request builder and decoder
//   - Registry: Kind to Client lookup, no switch dispatch
//   - Transport: Performs a Request; HTTPTransport is the pooled production one
//   - ProviderError: Typed failure wrapping the package sentinels
//
// # Usage
//
//	reg := provider.DefaultRegistry()
//	client, err := reg.Get(provider.KindGroq)
//	req, err := client.BuildRequest(history, provider.Selection{
//	    Credential: key, Model: "qwen/qwen3-32b", Stream: true,
//	})
//	text, err := provider.Stream(ctx, provider.NewHTTPTransport(), client, req, onDelta)
//
// # Security
//
// Credentials are never logged. Requests are logged by method and host with a
// SHA-256 fingerprint of the credential, and all connections require TLS 1.2+.
package provider
