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

// Package adminserver exposes operator-facing HTTP endpoints for a running
// forwarder: liveness, the buffer's current depth, and Prometheus metrics.
// It carries no business logic of its own.
package adminserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"logforwarder/internal/forwarder"
	"logforwarder/internal/kvstore"
)

// Server serves /healthz, /backlog and /metrics for one forwarder instance.
type Server struct {
	store   kvstore.Store
	runner  *forwarder.Runner
	metrics http.Handler
}

// NewServer wires a Server around the running components. metrics may be
// nil to omit the /metrics route.
func NewServer(store kvstore.Store, runner *forwarder.Runner, metrics http.Handler) *Server {
	return &Server{store: store, runner: runner, metrics: metrics}
}

// RegisterRoutes attaches this server's handlers to mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/backlog", s.handleBacklog)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
}

// handleHealthz reports the Runner's lifecycle state; any state other than
// stopped is considered healthy, since draining and running are both
// expected steady states.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	state := s.runner.State()
	if state == forwarder.StateStopped {
		http.Error(w, "stopped", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"state": state.String()})
}

// handleBacklog reports how many keys are currently buffered.
func (s *Server) handleBacklog(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	keys, err := s.store.Scan(ctx, kvstore.DomainLogs, 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"depth": len(keys)})
}

// ListenAndServe starts the admin HTTP server on addr. It blocks until the
// server stops or returns an error.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return httpServer.ListenAndServe()
}
