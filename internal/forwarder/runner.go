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

package forwarder

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"logforwarder/internal/bufkey"
	"logforwarder/internal/kvstore"
	"logforwarder/internal/sinks"
)

// State is the Runner's lifecycle state.
type State int32

const (
	StateStarting State = iota
	StateRunning
	StateDraining
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// DrainStats summarizes one drain cycle, for telemetry and tests.
type DrainStats struct {
	Scanned    int
	Sent       map[sinks.Kind]int
	Dropped    int
	SendErrors map[sinks.Kind]error
	// Duration is the wall-clock time the drain cycle took, start to finish.
	Duration time.Duration
}

// Runner periodically scans the buffer, partitions entries by kind, and
// ships each partition to a Sink, deleting only the keys a send actually
// succeeded for. This is the drain cycle the source collector's check()
// method performs once per logger_tls_period tick.
type Runner struct {
	store kvstore.Store
	sink  sinks.Sink
	alloc *bufkey.Allocator
	cfg   Config
	log   *zap.SugaredLogger

	state    atomic.Int32
	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool

	onDrain func(DrainStats) // test/telemetry hook, may be nil
}

// NewRunner wires a Runner around store and sink. alloc is shared with the
// Facade so recovery seeding (see Recover) keeps both in sync.
func NewRunner(store kvstore.Store, sink sinks.Sink, alloc *bufkey.Allocator, cfg Config, log *zap.SugaredLogger) *Runner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Runner{
		store:    store,
		sink:     sink,
		alloc:    alloc,
		cfg:      cfg,
		log:      log,
		stopChan: make(chan struct{}),
	}
}

// OnDrain registers a callback invoked after every drain cycle completes,
// for telemetry wiring and tests. Not safe to call after Start.
func (r *Runner) OnDrain(fn func(DrainStats)) { r.onDrain = fn }

// State reports the Runner's current lifecycle state.
func (r *Runner) State() State { return State(r.state.Load()) }

// Recover seeds the allocator from the largest seq currently buffered for
// this instance, per spec.md §4.2's Recovery note, so a post-crash restart
// does not reissue a seq that collides with an unsent, still-buffered key.
// Call once before Start.
func (r *Runner) Recover(ctx context.Context) error {
	keys, err := r.store.Scan(ctx, kvstore.DomainLogs, 0)
	if err != nil {
		return err
	}
	var maxSeq uint64
	for i, k := range keys {
		if seq, ok := bufkey.Seq(k, r.cfg.InstanceName); ok && seq > maxSeq {
			maxSeq = seq
		}
		yieldEvery(r.cfg.IterationYield, i)
	}
	if maxSeq > 0 {
		r.alloc.Seed(maxSeq)
	}
	return nil
}

// yieldEvery sleeps 20ms every 100th iteration when enabled, the Go
// equivalent of the original collector's iterate() chunked-sleep helper
// (spec.md §9). Left off by default: the source's own motivation ("prevent
// utilization thrash") is weak on a modern scheduler and only matters on a
// pathologically large recovery scan.
func yieldEvery(enabled bool, i int) {
	if enabled && i > 0 && i%100 == 0 {
		time.Sleep(20 * time.Millisecond)
	}
}

// Start launches the drain loop in the background. Call Stop to shut it
// down cleanly.
func (r *Runner) Start() {
	r.state.Store(int32(StateRunning))
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.loop()
	}()
}

// Stop signals the drain loop to exit and waits for the in-flight cycle (if
// any) to finish, followed by one final drain cycle the loop runs on its
// way out. Safe to call more than once.
func (r *Runner) Stop() {
	if !r.stopped.CompareAndSwap(false, true) {
		return
	}
	r.state.Store(int32(StateStopping))
	close(r.stopChan)
	r.wg.Wait()
	r.state.Store(int32(StateStopped))
}

func (r *Runner) loop() {
	ticker := time.NewTicker(r.cfg.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Drain(context.Background())
		case <-r.stopChan:
			// Final drain on shutdown, the same as the source collector's
			// last check() before its thread exits — buffered-but-unsent
			// data is not flushed synchronously beyond this one extra pass.
			r.Drain(context.Background())
			return
		}
	}
}

// Drain runs one scan→partition→send→delete cycle. Exported so callers (and
// tests) can trigger a cycle deterministically instead of waiting on the
// ticker.
func (r *Runner) Drain(ctx context.Context) (stats DrainStats) {
	r.state.Store(int32(StateDraining))
	defer r.state.Store(int32(StateRunning))

	start := time.Now()
	stats = DrainStats{Sent: map[sinks.Kind]int{}, SendErrors: map[sinks.Kind]error{}}
	defer func() {
		stats.Duration = time.Since(start)
		if r.onDrain != nil {
			r.onDrain(stats)
		}
	}()

	keys, err := r.store.Scan(ctx, kvstore.DomainLogs, r.cfg.MaxBatch)
	if err != nil {
		r.log.Errorw("buffer scan failed", "error", err)
		return stats
	}
	stats.Scanned = len(keys)
	if len(keys) == 0 {
		return stats
	}

	partitions := map[sinks.Kind][]string{}
	for _, key := range keys {
		kind, ok := bufkey.KindOf(key)
		if !ok {
			r.log.Warnw("buffered key has unrecognized kind prefix, skipping", "key", key)
			continue
		}
		sinkKind := sinks.KindResult
		if kind == bufkey.KindStatus {
			sinkKind = sinks.KindStatus
		}
		partitions[sinkKind] = append(partitions[sinkKind], key)
	}

	for kind, kindKeys := range partitions {
		r.drainPartition(ctx, kind, kindKeys, &stats)
	}
	return stats
}

func (r *Runner) drainPartition(ctx context.Context, kind sinks.Kind, keys []string, stats *DrainStats) {
	var toSend, sentKeys, dropKeys []string
	for _, key := range keys {
		value, ok, err := r.store.Get(ctx, kvstore.DomainLogs, key)
		if err != nil {
			r.log.Errorw("buffer get failed", "key", key, "error", err)
			continue
		}
		if !ok {
			// Raced with a concurrent delete (for example another
			// instance's drain); nothing to send for this key.
			continue
		}
		if r.cfg.MaxLineBytes > 0 && len(value) > r.cfg.MaxLineBytes {
			r.log.Warnw("dropping oversize buffered line", "key", key, "size", len(value), "max", r.cfg.MaxLineBytes)
			dropKeys = append(dropKeys, key)
			stats.Dropped++
			continue
		}
		toSend = append(toSend, value)
		sentKeys = append(sentKeys, key)
	}

	if len(toSend) == 0 {
		// Nothing left to send, but any oversize lines found among keys
		// still need to go: there's no batch send gating their deletion.
		for _, key := range dropKeys {
			if err := r.store.Delete(ctx, kvstore.DomainLogs, key); err != nil {
				r.log.Errorw("failed to delete oversize line", "key", key, "error", err)
			}
		}
		return
	}

	if err := r.sink.Send(ctx, kind, toSend); err != nil {
		stats.SendErrors[kind] = err
		r.log.Warnw("sink send failed, leaving batch buffered for retry", "kind", kind, "count", len(toSend), "error", err)
		return
	}

	// Success gates deletion of both the sent keys and the oversize keys
	// dropped from this same batch (spec.md §4.5 step 3: "On success,
	// delete every key in resultKeys (including the oversize-drop keys).
	// On failure, leave all result keys in place").
	stats.Sent[kind] = len(toSend)
	for _, key := range append(sentKeys, dropKeys...) {
		if err := r.store.Delete(ctx, kvstore.DomainLogs, key); err != nil {
			r.log.Errorw("failed to delete sent key", "key", key, "error", err)
		}
	}
}
