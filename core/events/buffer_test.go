package events

import (
	"testing"

	"tipchain/core/types"
)

type testEvent struct{ kind string }

func (e testEvent) EventType() string { return e.kind }

type payloadEvent struct{}

func (payloadEvent) EventType() string { return "payload" }

func (payloadEvent) Event() *types.Event {
	return &types.Event{Type: "payload", Attributes: map[string]string{"k": "v"}}
}

func TestBufferDrainPreservesOrder(t *testing.T) {
	buf := NewBuffer()
	buf.Emit(testEvent{kind: "a"})
	buf.Emit(nil)
	buf.Emit(testEvent{kind: "b"})
	if buf.Len() != 2 {
		t.Fatalf("expected 2 staged events, got %d", buf.Len())
	}
	drained := buf.Drain()
	if len(drained) != 2 || drained[0].EventType() != "a" || drained[1].EventType() != "b" {
		t.Fatalf("unexpected drain result: %+v", drained)
	}
	if buf.Len() != 0 {
		t.Fatalf("buffer not reset after drain")
	}
}

func TestBufferDiscard(t *testing.T) {
	buf := NewBuffer()
	buf.Emit(testEvent{kind: "a"})
	buf.Discard()
	if got := buf.Drain(); len(got) != 0 {
		t.Fatalf("expected discarded buffer to be empty, got %d", len(got))
	}
}

func TestRender(t *testing.T) {
	if Render(nil) != nil {
		t.Fatalf("expected nil render for nil event")
	}
	plain := Render(testEvent{kind: "plain"})
	if plain.Type != "plain" || len(plain.Attributes) != 0 {
		t.Fatalf("unexpected plain render: %+v", plain)
	}
	rich := Render(payloadEvent{})
	if rich.Attr("k") != "v" {
		t.Fatalf("expected payload attributes, got %+v", rich)
	}
}
