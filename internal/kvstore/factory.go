// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package kvstore

import (
	"context"
	"fmt"
)

// Config holds the knobs BuildStore needs across all backends.
type Config struct {
	// BoltPath is the database file path for the "bbolt" backend.
	BoltPath string
	// RedisAddr is the server address for the "redis" backend, e.g. "127.0.0.1:6379".
	RedisAddr string
}

// BuildStore constructs a Store based on a string selector. Supported
// backends:
//   - "", "memory": in-process map, default, not durable across restarts
//   - "bbolt": embedded on-disk database, the production default
//   - "redis": shared Redis instance, opt-in, for fleets centralizing state
func BuildStore(backend string, cfg Config) (Store, error) {
	switch backend {
	case "", "memory":
		return NewMemory(), nil
	case "bbolt":
		if cfg.BoltPath == "" {
			return nil, fmt.Errorf("kvstore: bbolt backend requires BoltPath")
		}
		return OpenBolt(cfg.BoltPath)
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("kvstore: redis backend requires RedisAddr")
		}
		store := NewRedis(cfg.RedisAddr)
		if err := store.Ping(context.Background()); err != nil {
			return nil, fmt.Errorf("kvstore: redis backend unreachable: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("kvstore: unknown backend %q", backend)
	}
}
