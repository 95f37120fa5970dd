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

// Package forwarder drains the persistent buffer into a Sink on a timer,
// the same job the original TLS/Kinesis collector threads performed, and
// exposes the producer-facing facade library code calls to enqueue lines.
package forwarder

import "time"

// Config holds the immutable drain-cycle knobs the Runner needs. It replaces
// the source collector's global drain FLAG variables (logger_tls_period,
// logger_tls_max, the max-lines cap) with a single value constructed once at
// startup and passed down, rather than read from package-level mutable
// state. Sink settings (endpoint, compression, stream) are not part of it:
// they go straight to the sink constructors.
type Config struct {
	// InstanceName namespaces this forwarder's buffer keys; typically the
	// host identifier (see internal/hostinfo).
	InstanceName string
	// Period is the interval between drain cycles (logger_tls_period).
	Period time.Duration
	// MaxBatch caps how many keys a single scan returns (kTLSMaxLogLines in
	// the source collector).
	MaxBatch int
	// MaxLineBytes caps a single buffered line's size (logger_tls_max);
	// lines over this size are dropped rather than retried forever. This
	// only applies to the HTTPS adapter (spec.md §4.4.a, §4.5 step 2): leave
	// it zero for any other sink so Kinesis/Kafka/local batches are never
	// size-filtered by the Runner.
	MaxLineBytes int
	// IterationYield, when true, has long per-item loops (the recovery scan)
	// sleep 20ms every 100 items instead of running flat out. It
	// mirrors the source collector's iterate() helper; spec.md's own
	// analysis calls the benefit marginal on modern schedulers, so it
	// defaults to off and exists for operators who've measured otherwise.
	IterationYield bool
}

// DefaultConfig returns the zero-value collector's defaults, taken directly
// from the source collector's FLAG definitions. MaxLineBytes is left at zero
// (unset): it only applies to the HTTPS adapter, so a caller wiring that sink
// must set it explicitly rather than inherit it here.
func DefaultConfig(instanceName string) Config {
	return Config{
		InstanceName: instanceName,
		Period:       4 * time.Second,
		MaxBatch:     1024,
	}
}
