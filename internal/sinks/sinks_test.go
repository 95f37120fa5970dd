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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPS_SendSuccess(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = readRequestBody(r)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := NewHTTPS(srv.URL, "node-1", 0)
	err := h.Send(context.Background(), KindStatus, []string{`{"severity":0,"filename":"a.go","line":1,"message":"m"}`})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	var decoded struct {
		NodeKey string `json:"node_key"`
		LogType string `json:"log_type"`
	}
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("server received invalid JSON: %v", err)
	}
	if decoded.NodeKey != "node-1" || decoded.LogType != "status" {
		t.Fatalf("unexpected request body: %+v", decoded)
	}
}

func TestHTTPS_SendEmpty(t *testing.T) {
	h := NewHTTPS("http://unused.invalid", "node-1", 0)
	if err := h.Send(context.Background(), KindResult, nil); err != nil {
		t.Fatalf("Send(empty) = %v, want nil", err)
	}
}

func TestHTTPS_FatalOnAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	h := NewHTTPS(srv.URL, "node-1", 0)
	err := h.Send(context.Background(), KindResult, []string{`{"a":1}`})
	var fatal *FatalConfigError
	if !asFatal(err, &fatal) {
		t.Fatalf("expected FatalConfigError, got %v (%T)", err, err)
	}
}

func TestHTTPS_TransientOn5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	h := NewHTTPS(srv.URL, "node-1", 0)
	err := h.Send(context.Background(), KindResult, []string{`{"a":1}`})
	var transient *TransientError
	if !asTransient(err, &transient) {
		t.Fatalf("expected TransientError, got %v (%T)", err, err)
	}
}

func TestHTTPS_DropsOversizeLines(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = readRequestBody(r)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	h := NewHTTPS(srv.URL, "node-1", 10)
	err := h.Send(context.Background(), KindResult, []string{
		`{"small":1}`,
		`{"this one is definitely over ten bytes":true}`,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if strings.Contains(string(gotBody), "definitely") {
		t.Fatalf("oversize line was not dropped: %s", gotBody)
	}
}

func TestLocal_SendAndClose(t *testing.T) {
	var buf bytes.Buffer
	l := NewLocal(&buf)
	if err := l.Send(context.Background(), KindStatus, []string{"a", "b"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := buf.String(); got != "a\nb\n" {
		t.Fatalf("buf = %q, want %q", got, "a\nb\n")
	}
}

func readRequestBody(r *http.Request) ([]byte, error) {
	buf := new(bytes.Buffer)
	_, err := buf.ReadFrom(r.Body)
	return buf.Bytes(), err
}

func asFatal(err error, target **FatalConfigError) bool {
	fc, ok := err.(*FatalConfigError)
	if ok {
		*target = fc
	}
	return ok
}

func asTransient(err error, target **TransientError) bool {
	tc, ok := err.(*TransientError)
	if ok {
		*target = tc
	}
	return ok
}
