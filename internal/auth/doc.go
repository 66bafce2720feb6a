// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth supplies Vertex AI access tokens.
//
// Two fetchers exist: GcloudFetcher shells out to the gcloud CLI and
// OAuthFetcher performs the OAuth 2.0 refresh-token grant. Either is wrapped
// in a Cache, which hands out the cached token until it expires and
// collapses concurrent refreshes into one call.
//
// # Key Types
//
//   - TokenSource: Anything that yields a bearer token
//   - Cache: Expiry-aware, single-flight TokenSource
//   - GcloudFetcher: `gcloud auth print-access-token`, trusted for 50 minutes
//   - OAuthFetcher: refresh_token grant with a 5 minute early refresh
//
// # Security
//
// Tokens and client secrets are never logged.
package auth
