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

	"go.uber.org/zap"

	"logforwarder/internal/bufkey"
	"logforwarder/internal/envelope"
	"logforwarder/internal/hostinfo"
	"logforwarder/internal/kvstore"
)

// Facade is the producer-facing surface: LogResult buffers an
// already-serialized result line, LogStatus/LogStatusBatch wrap and buffer
// status lines,
// and SetUp prepares the process-wide logging sink before either is called.
// It corresponds to the original TLSLoggerPlugin: init/logString/logStatus.
type Facade struct {
	store kvstore.Store
	alloc *bufkey.Allocator
	host  hostinfo.Provider
	log   *zap.SugaredLogger

	fallbackOnce sync.Once
}

// NewFacade builds a Facade over store. Buffer keys come from alloc and so
// carry the instance name alloc was built with; host only supplies the
// decorations attached to status lines.
func NewFacade(store kvstore.Store, alloc *bufkey.Allocator, host hostinfo.Provider, log *zap.SugaredLogger) *Facade {
	return &Facade{store: store, alloc: alloc, host: host, log: log}
}

// SetUp prepares process-wide logging for name. If cfg constructs a logger
// successfully it's used as-is; otherwise the Facade falls back to zap's
// development console encoder writing to stderr, exactly once, logging
// that it did so — the same fallback-to-stderr behavior the original plugin
// exhibits when it could not obtain a node key from enrollment. Returns the
// logger actually in effect, which callers should use or discard as needed.
func (f *Facade) SetUp(name string, cfg zap.Config) *zap.SugaredLogger {
	built, err := cfg.Build()
	if err == nil {
		f.log = built.Sugar().Named(name)
		return f.log
	}

	f.fallbackOnce.Do(func() {
		dev := zap.NewDevelopmentConfig()
		fallback, ferr := dev.Build()
		if ferr != nil {
			// Last resort: a fully no-op logger. This only happens if even
			// the development preset fails to build, which requires a
			// broken zap installation rather than a bad cfg.
			f.log = zap.NewNop().Sugar()
			return
		}
		f.log = fallback.Sugar().Named(name)
		f.log.Warnw("configured logger could not be built, falling back to stderr console logging", "error", err)
	})
	return f.log
}

// LogResult buffers a pre-serialized result line under a fresh result key.
func (f *Facade) LogResult(ctx context.Context, line string) error {
	key := f.alloc.Next(bufkey.KindResult)
	return f.store.Put(ctx, kvstore.DomainLogs, key, line)
}

// LogStatus renders rec with the host's decorations and buffers it under a
// fresh status key.
func (f *Facade) LogStatus(ctx context.Context, rec envelope.StatusRecord) error {
	deco := envelope.DecorationMap(f.host.Decorations())
	return f.logStatus(ctx, rec, deco)
}

// logStatus renders rec with a decoration snapshot supplied by the caller,
// so a multi-record flush (LogStatusBatch) can capture it once.
func (f *Facade) logStatus(ctx context.Context, rec envelope.StatusRecord, deco envelope.DecorationMap) error {
	line, err := envelope.Build(rec, deco)
	if err != nil {
		if f.log != nil {
			f.log.Errorw("failed to encode status line", "error", err)
		}
		return err
	}
	key := f.alloc.Next(bufkey.KindStatus)
	return f.store.Put(ctx, kvstore.DomainLogs, key, line)
}

// LogStatusBatch buffers each record in recs in order, stopping at the
// first failure. Entries already persisted before the failing one remain
// buffered — per spec.md §4.6, "Returns on the first put failure; earlier
// entries remain persisted (intentional: partial status is better than
// none)." This is the operation the original plugin's init() drives with
// its bootstrap diagnostic lines. The decoration map is captured once for
// the whole call, per spec.md §3, and attached to every record in recs.
func (f *Facade) LogStatusBatch(ctx context.Context, recs []envelope.StatusRecord) error {
	deco := envelope.DecorationMap(f.host.Decorations())
	for _, rec := range recs {
		if err := f.logStatus(ctx, rec, deco); err != nil {
			return err
		}
	}
	return nil
}
