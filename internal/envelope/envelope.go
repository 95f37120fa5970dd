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

// Package envelope builds the JSON payloads the buffer stores and the sinks
// ship. Result lines are stored as the producer supplied them; status lines
// are wrapped into a small envelope carrying a decoration map, so every
// status line shipped from one host carries the same tags.
package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecorationMap holds host-level tags (e.g. hostname, os version) applied to
// every status line. Keys and values are plain strings; callers own how they
// are populated.
type DecorationMap map[string]string

// StatusRecord mirrors a single status log line: a severity, the source
// location that emitted it, and the rendered message.
type StatusRecord struct {
	Severity int    `json:"severity"`
	Filename string `json:"filename"`
	Line     int    `json:"line"`
	Message  string `json:"message"`
}

// EncodingError reports that a StatusRecord could not be rendered as JSON.
// It is not retryable: re-encoding the same record produces the same error,
// so the Facade returns it to the caller and buffers nothing for that record.
type EncodingError struct {
	Record StatusRecord
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("envelope: encode status line %q: %v", e.Record.Message, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// Build renders rec and deco into a single-line JSON object. Status fields
// are emitted first and decorations last, matching the field order the
// original collector payload used, so downstream consumers that rely on key
// order in a raw byte comparison still see the status fields first.
func Build(rec StatusRecord, deco DecorationMap) (string, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	fields := []struct {
		name string
		val  interface{}
	}{
		{"severity", rec.Severity},
		{"filename", rec.Filename},
		{"line", rec.Line},
		{"message", rec.Message},
	}
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.name)
		if err != nil {
			return "", &EncodingError{Record: rec, Err: err}
		}
		val, err := json.Marshal(f.val)
		if err != nil {
			return "", &EncodingError{Record: rec, Err: err}
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}

	if len(deco) > 0 {
		decoJSON, err := json.Marshal(deco)
		if err != nil {
			return "", &EncodingError{Record: rec, Err: err}
		}
		buf.WriteString(`,"decorations":`)
		buf.Write(decoJSON)
	}

	buf.WriteByte('}')
	return buf.String(), nil
}

// Batch wraps a set of already-rendered JSON lines and a node identifier
// into the payload shape the HTTPS sink posts, matching the original
// collector's {"node_key", "log_type", "data": [...]} request body. Each
// line in raw must already be a JSON object; malformed lines are dropped
// rather than aborting the whole batch, mirroring the source collector's
// per-line try/catch around read_json.
func Batch(nodeKey, logType string, raw []string) ([]byte, int) {
	var buf bytes.Buffer
	buf.WriteString(`{"node_key":`)
	nodeKeyJSON, _ := json.Marshal(nodeKey)
	buf.Write(nodeKeyJSON)
	buf.WriteString(`,"log_type":`)
	logTypeJSON, _ := json.Marshal(logType)
	buf.Write(logTypeJSON)
	buf.WriteString(`,"data":[`)

	dropped := 0
	first := true
	for _, line := range raw {
		if !json.Valid([]byte(line)) {
			dropped++
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		buf.WriteString(line)
		first = false
	}
	buf.WriteString("]}")
	return buf.Bytes(), dropped
}
