package stream

import (
	"encoding/json"
	"testing"

	"ruleoracle/internal/queue"
)

func TestEventNameForMapsTerminalStates(t *testing.T) {
	cases := map[queue.State]string{
		queue.StateReady:      "complete",
		queue.StateFailed:     "error",
		queue.StateError:      "error",
		queue.StateEmbedding:  "progress",
		queue.StateDownloading: "progress",
	}
	for state, want := range cases {
		if got := eventNameFor(state); got != want {
			t.Errorf("eventNameFor(%q) = %q, want %q", state, got, want)
		}
	}
}

func TestMarshalStatusRoundTrips(t *testing.T) {
	s := queue.Status{State: queue.StateEmbedding, Pct: 70, Message: "generating embeddings"}
	raw, err := marshalStatus(s)
	if err != nil {
		t.Fatalf("marshalStatus: %v", err)
	}
	var out wireStatus
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.State != s.State || out.Pct != s.Pct || out.Msg != s.Message {
		t.Errorf("round trip mismatch: got %+v, want state=%v pct=%v msg=%v", out, s.State, s.Pct, s.Message)
	}
}

func TestMarshalStatusOmitsEmptyErrorAndResult(t *testing.T) {
	s := queue.Status{State: queue.StateQueued, Pct: 0, Message: "queued"}
	raw, err := marshalStatus(s)
	if err != nil {
		t.Fatalf("marshalStatus: %v", err)
	}
	if string(raw) == "" {
		t.Fatal("expected non-empty JSON")
	}
	var m map[string]any
	_ = json.Unmarshal(raw, &m)
	if _, ok := m["error"]; ok {
		t.Error("error field should be omitted when empty")
	}
	if _, ok := m["result"]; ok {
		t.Error("result field should be omitted when empty")
	}
}
