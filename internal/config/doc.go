// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and the live settings store
// for amadeus.
//
// TOML, JSON and YAML files are supported. Values are clamped into range on
// load; nothing else is validated.
//
// # Key Types
//
//   - Config: the configuration file structure
//   - Settings: the resolved per-turn view (active provider, key, model)
//   - Store: thread-safe holder implementing the orchestrator's settings source
//   - Watcher: fsnotify-based hot reload for a Store
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (AMADEUS_*)
//   - ~/.amadeus/config.toml
//   - ~/.amadeus/config.json
//   - ~/.amadeus/config.yaml
//   - Built-in defaults
//
// # Usage
//
//	store := config.OpenStore()
//	s := store.Settings()
//	err := store.Update(func(c *config.Config) { c.Display.AutoMode = true })
package config
