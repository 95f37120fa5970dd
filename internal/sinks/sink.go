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

// Package sinks adapts the remote collectors a forwarder drains its buffer
// into. Every backend (HTTPS/JSON, Kinesis, Kafka) implements the same
// Sink contract so the Runner doesn't need to know which one it's talking to.
package sinks

import (
	"context"
	"fmt"
)

// Kind labels a batch the way the wire protocols do: "result" or "status".
type Kind string

const (
	KindResult Kind = "result"
	KindStatus Kind = "status"
)

// Sink ships a batch of already-rendered JSON lines to a remote collector.
// Implementations must not mutate batch; they may split it internally to
// respect a backend's own size limits (e.g. Kinesis's per-PutRecords cap),
// but the call either ships the whole batch or returns an error — there is
// no partial-success return value, so a partial remote failure must surface
// as an error to keep the Runner's delete-on-success invariant correct.
type Sink interface {
	Send(ctx context.Context, kind Kind, batch []string) error
}

// TransientError marks a send failure the Runner should retry on its next
// drain cycle without operator intervention: a timeout, a connection reset,
// a 5xx response. The Runner leaves the batch's keys in the buffer and
// tries again next tick.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("sinks: %s: transient: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// FatalConfigError marks a send failure that will not resolve itself: bad
// credentials, a stream/endpoint that doesn't exist, a malformed TLS
// certificate. The Runner does not tell it apart from other Send errors: it
// logs a warning, keeps the batch buffered and retries next tick (it does
// not drop data), but callers wiring alerting should treat this class as
// actionable.
type FatalConfigError struct {
	Op   string
	Err  error
	Hint string
}

func (e *FatalConfigError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("sinks: %s: fatal config: %v (%s)", e.Op, e.Err, e.Hint)
	}
	return fmt.Sprintf("sinks: %s: fatal config: %v", e.Op, e.Err)
}

func (e *FatalConfigError) Unwrap() error { return e.Err }

// OversizeLineError marks a single line that exceeded the backend's max line
// size. No sink in this package returns it: the Runner drops oversize keys
// through its own Config.MaxLineBytes check, and the HTTPS sink skips
// oversize lines without reporting them.
type OversizeLineError struct {
	Size, Max int
}

func (e *OversizeLineError) Error() string {
	return fmt.Sprintf("sinks: line size %d exceeds max %d", e.Size, e.Max)
}
