// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat runs conversation turns against the configured provider and
// drives the presentation state machine with the result.
//
// One turn: the user message is appended, history is trimmed into memory, the
// system prompt is rebuilt, and a request goroutine is started. Its tokens or
// batch text come back as Events and are applied on the owning loop, so the
// conversation and the state machine are only touched from one goroutine.
// Vertex requests go through region failover with a cached access token.
//
// Failures never escape as Go errors to the user. They are classified and
// shown as an in-character line with the error emotion.
//
// # Key Types
//
//   - Orchestrator: the turn owner
//   - Event: a request result tagged with its request id
//   - Loop: a single-goroutine driver for headless use
//   - ErrorKind: the failure classification behind each user message
//
// # Usage
//
//	loop := chat.NewLoop(0)
//	orch := chat.New(chat.Options{Settings: store, Surface: view, Post: loop.Post})
//	go loop.Run(ctx, orch)
//	loop.Do(func() { err = orch.Submit("hello") })
package chat
