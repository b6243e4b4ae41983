package backplane

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
)

func TestMemoryDeliversToEverySubscriberInOrder(t *testing.T) {
	bus := NewMemory()

	var first, second []string
	if err := bus.Subscribe(func(ev Event) { first = append(first, ev.Type) }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := bus.Subscribe(func(ev Event) { second = append(second, ev.Type) }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	for i := 0; i < 3; i++ {
		ev := Event{
			Room:    "r1",
			Type:    fmt.Sprintf("e%d", i),
			Origin:  "gw1",
			Payload: json.RawMessage(`{}`),
		}
		if err := bus.Publish(context.Background(), ev); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	want := []string{"e0", "e1", "e2"}
	for name, got := range map[string][]string{"first": first, "second": second} {
		if len(got) != len(want) {
			t.Fatalf("%s subscriber saw %v, want %v", name, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s subscriber event %d = %q, want %q", name, i, got[i], want[i])
			}
		}
	}
}

func TestMemoryDeliversBackToPublisher(t *testing.T) {
	// The publishing instance consumes its own events: local and remote
	// delivery share one code path.
	bus := NewMemory()

	var seen []Event
	if err := bus.Subscribe(func(ev Event) { seen = append(seen, ev) }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	ev := Event{Room: "r1", Type: "message", Origin: "gw1", SourceSocket: "s1", Payload: json.RawMessage(`{"x":1}`)}
	if err := bus.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(seen) != 1 {
		t.Fatalf("seen %d events, want 1", len(seen))
	}
	got := seen[0]
	if got.Room != "r1" || got.Type != "message" || got.Origin != "gw1" || got.SourceSocket != "s1" {
		t.Errorf("event = %+v", got)
	}
}

func TestMemoryRefusesAfterClose(t *testing.T) {
	bus := NewMemory()
	if err := bus.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := bus.Publish(context.Background(), Event{Room: "r1", Type: "x"}); err == nil {
		t.Error("publish after close must fail")
	}
	if err := bus.Subscribe(func(Event) {}); err == nil {
		t.Error("subscribe after close must fail")
	}
}
