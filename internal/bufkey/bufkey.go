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

// Package bufkey allocates and parses the keys used to buffer log entries in
// the persistent store. A key has the shape <k>_<name>_<unixSeconds>_<seq>,
// where <k> is a single ASCII byte identifying the entry Kind.
package bufkey

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Kind tags a buffered entry as either a query result or an internal status line.
type Kind byte

const (
	// KindResult marks a pre-serialized result payload supplied by the producer.
	KindResult Kind = 'r'
	// KindStatus marks a status envelope produced by the envelope builder.
	KindStatus Kind = 's'
)

// String renders the kind's wire-visible batch label, matching the "result"/
// "status" strings the Sink contract and the original TLS/Kinesis collectors use.
func (k Kind) String() string {
	switch k {
	case KindResult:
		return "result"
	case KindStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Allocator generates monotonically distinguishable keys for one forwarder
// instance. It is safe for concurrent use by multiple producer goroutines.
//
// The counter is not persisted across restarts. On restart within the same
// wall-clock second, freshly allocated keys can collide with pre-restart
// keys sharing the same (unixSeconds, seq) pair; the buffer's put semantics
// overwrite the prior entry rather than erroring. Recover from this by
// seeding the counter from the largest observed seq for this instance name
// (see Allocator.Seed), called once at Runner startup after the recovery
// scan. Skipping Seed is accepted behavior, not a bug: the collision window
// is one wall-clock second wide and only matters across a crash-restart
// boundary.
type Allocator struct {
	name    string
	counter atomic.Uint64
	now     func() time.Time
}

// New returns an Allocator for the given forwarder instance name.
func New(name string) *Allocator {
	return &Allocator{name: name, now: time.Now}
}

// Seed advances the counter to at least want, so the next allocation issues
// seq > want. Called once at startup with the largest seq observed for this
// instance's prefix during the recovery scan (§4.2 Recovery).
func (a *Allocator) Seed(want uint64) {
	for {
		cur := a.counter.Load()
		if cur >= want {
			return
		}
		if a.counter.CompareAndSwap(cur, want) {
			return
		}
	}
}

// Next allocates a fresh key for the given kind. The <unixSeconds> component reads
// wall-clock time in whole seconds; the counter is pre-incremented so the
// first issued seq is 1.
func (a *Allocator) Next(kind Kind) string {
	seq := a.counter.Add(1)
	sec := a.now().Unix()
	return fmt.Sprintf("%c_%s_%d_%d", byte(kind), a.name, sec, seq)
}

// Prefix returns the "<k>_<name>_" string an implementation MAY use to
// restrict a KV scan to this instance's own keys, avoiding the cross-instance
// interference spec.md §4.5 documents as a latent defect in the source.
func Prefix(kind Kind, name string) string {
	return fmt.Sprintf("%c_%s_", byte(kind), name)
}

// KindOf returns the Kind encoded in a key's first byte. ok is false for an
// empty key or an unrecognized leading byte.
func KindOf(key string) (kind Kind, ok bool) {
	if key == "" {
		return 0, false
	}
	switch Kind(key[0]) {
	case KindResult:
		return KindResult, true
	case KindStatus:
		return KindStatus, true
	default:
		return 0, false
	}
}

// Seq extracts the <seq> suffix of a key produced by Next, for instances
// matching name. ok is false if the key doesn't match the expected shape or
// belongs to a different instance.
func Seq(key, name string) (seq uint64, ok bool) {
	parts := strings.SplitN(key, "_", 4)
	if len(parts) != 4 {
		return 0, false
	}
	if parts[1] != name {
		return 0, false
	}
	n, err := strconv.ParseUint(parts[3], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
