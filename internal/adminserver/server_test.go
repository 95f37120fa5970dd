package adminserver

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"logforwarder/internal/bufkey"
	"logforwarder/internal/forwarder"
	"logforwarder/internal/kvstore"
	"logforwarder/internal/sinks"
)

type nopSink struct{}

func (nopSink) Send(context.Context, sinks.Kind, []string) error { return nil }

func TestServer_HealthzAndBacklog(t *testing.T) {
	store := kvstore.NewMemory()
	alloc := bufkey.New("host")
	runner := forwarder.NewRunner(store, nopSink{}, alloc, forwarder.Config{InstanceName: "host", Period: time.Hour, MaxBatch: 10}, nil)
	runner.Start()
	defer runner.Stop()

	key := alloc.Next(bufkey.KindResult)
	store.Put(context.Background(), kvstore.DomainLogs, key, "x")

	srv := NewServer(store, runner, nil)
	mux := srv

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.handleHealthz(rec, req)
	if rec.Code != 200 {
		t.Fatalf("healthz status = %d, want 200", rec.Code)
	}

	req2 := httptest.NewRequest("GET", "/backlog", nil)
	rec2 := httptest.NewRecorder()
	mux.handleBacklog(rec2, req2)
	if rec2.Code != 200 {
		t.Fatalf("backlog status = %d, want 200", rec2.Code)
	}
	if body := rec2.Body.String(); body == "" {
		t.Fatalf("expected backlog body")
	}
}
