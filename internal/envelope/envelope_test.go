package envelope

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestBuild_FieldOrderAndDecorations(t *testing.T) {
	rec := StatusRecord{Severity: 1, Filename: "forwarder.go", Line: 42, Message: "hello"}
	deco := DecorationMap{"hostname": "host-a"}

	out, err := Build(rec, deco)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !strings.HasPrefix(out, `{"severity":1,"filename":"forwarder.go","line":42,"message":"hello"`) {
		t.Fatalf("unexpected field order: %s", out)
	}
	if !strings.Contains(out, `"decorations":{"hostname":"host-a"}`) {
		t.Fatalf("missing decorations: %s", out)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("Build produced invalid JSON: %v", err)
	}
}

func TestBuild_NoDecorations(t *testing.T) {
	rec := StatusRecord{Severity: 0, Filename: "a.go", Line: 1, Message: "m"}
	out, err := Build(rec, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if strings.Contains(out, "decorations") {
		t.Fatalf("expected no decorations key, got %s", out)
	}
}

func TestBatch_DropsMalformedLines(t *testing.T) {
	lines := []string{
		`{"severity":0,"filename":"a.go","line":1,"message":"ok"}`,
		`not json`,
		`{"severity":1,"filename":"b.go","line":2,"message":"also ok"}`,
	}
	raw, dropped := Batch("node-1", "status", lines)
	if dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}
	var decoded struct {
		NodeKey string            `json:"node_key"`
		LogType string            `json:"log_type"`
		Data    []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Batch produced invalid JSON: %v", err)
	}
	if decoded.NodeKey != "node-1" || decoded.LogType != "status" {
		t.Fatalf("unexpected envelope header: %+v", decoded)
	}
	if len(decoded.Data) != 2 {
		t.Fatalf("Data length = %d, want 2", len(decoded.Data))
	}
}

func TestBatch_Empty(t *testing.T) {
	raw, dropped := Batch("node-1", "result", nil)
	if dropped != 0 {
		t.Fatalf("dropped = %d, want 0", dropped)
	}
	var decoded struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Batch produced invalid JSON: %v", err)
	}
	if len(decoded.Data) != 0 {
		t.Fatalf("expected empty data, got %v", decoded.Data)
	}
}
