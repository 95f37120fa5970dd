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

	redis "github.com/redis/go-redis/v9"
)

// Redis is an opt-in Store backend for fleets that already centralize state
// in a shared Redis instance, so a host's buffer survives the loss of its
// local disk. It is not the default: spec.md frames the Persistent Buffer as
// local to the host, and routing every buffered log line through a shared
// Redis turns a single-host outage into a fleet-wide one if that Redis
// instance is unreachable. Pair it with a short Sink send timeout so a stuck
// Redis doesn't stall the whole drain cycle.
//
// Values live in a Redis hash named "values:<domain>" (HSET values:<domain>
// key value); key order within a domain is tracked separately in the sorted
// set "order:<domain>" so Scan can
// return a stable, lexicographically ordered slice the way the in-process
// and bbolt backends do.
type Redis struct {
	client *redis.Client
}

// NewRedis builds a client for addr (e.g. "127.0.0.1:6379"). The client
// connects on first use, not here; callers should Ping before relying on the
// store being reachable.
func NewRedis(addr string) *Redis {
	return &Redis{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// Ping verifies connectivity to the Redis server.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("kvstore: redis ping: %w", err)
	}
	return nil
}

// Close releases the underlying client's connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

func orderKey(domain string) string { return "order:" + domain }
func valuesKey(domain string) string { return "values:" + domain }

// Scan returns up to limit keys in domain, in the lexicographic order
// maintained by the domain's companion sorted set.
func (r *Redis) Scan(ctx context.Context, domain string, limit int) ([]string, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	keys, err := r.client.ZRange(ctx, orderKey(domain), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("kvstore: redis scan %s: %w", domain, err)
	}
	return keys, nil
}

// Get returns the value stored at key in domain.
func (r *Redis) Get(ctx context.Context, domain, key string) (string, bool, error) {
	v, err := r.client.HGet(ctx, valuesKey(domain), key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kvstore: redis get %s/%s: %w", domain, key, err)
	}
	return v, true, nil
}

// Put writes value at key in domain and records key in the domain's order set.
func (r *Redis) Put(ctx context.Context, domain, key, value string) error {
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, valuesKey(domain), key, value)
	pipe.ZAdd(ctx, orderKey(domain), redis.Z{Score: 0, Member: key})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("kvstore: redis put %s/%s: %w", domain, key, err)
	}
	return nil
}

// Delete removes key from domain's hash and order set.
func (r *Redis) Delete(ctx context.Context, domain, key string) error {
	pipe := r.client.TxPipeline()
	pipe.HDel(ctx, valuesKey(domain), key)
	pipe.ZRem(ctx, orderKey(domain), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("kvstore: redis delete %s/%s: %w", domain, key, err)
	}
	return nil
}

var _ Store = (*Redis)(nil)
