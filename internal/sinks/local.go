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

package sinks

import (
	"bufio"
	"context"
	"io"
	"sync"
)

// Local appends batches as newline-delimited JSON to a writer. It is the
// agent's fallback (buildSinkOrFallback in cmd/logforwarder-agent) when sink
// construction or the sink's setup check fails at startup: logging keeps
// flowing to stderr instead of being silently dropped, the same role stderr
// logging plays in the original collector when it cannot obtain a node key.
type Local struct {
	mu sync.Mutex
	w  *bufio.Writer
	c  io.Closer
}

// NewLocal wraps w for buffered line writes. If w also implements
// io.Closer, Close releases it.
func NewLocal(w io.Writer) *Local {
	l := &Local{w: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		l.c = c
	}
	return l
}

// Send writes each line in batch, flushing once per call.
func (l *Local) Send(_ context.Context, _ Kind, batch []string) error {
	if len(batch) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range batch {
		if _, err := l.w.WriteString(line); err != nil {
			return &TransientError{Op: "local.write", Err: err}
		}
		if err := l.w.WriteByte('\n'); err != nil {
			return &TransientError{Op: "local.write", Err: err}
		}
	}
	return l.w.Flush()
}

// Close flushes and, if the wrapped writer is closeable, closes it.
func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.w.Flush(); err != nil {
		return err
	}
	if l.c != nil {
		return l.c.Close()
	}
	return nil
}

var _ Sink = (*Local)(nil)
