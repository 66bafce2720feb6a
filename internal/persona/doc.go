// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package persona holds the character prompt and assembles the system
// message from it, the memory blocks and the optional web-search block.
package persona
