package events

import (
	"testing"
)

func TestBroadcasterSubscribeUnsubscribe(t *testing.T) {
	b := NewBroadcaster()

	ch1 := b.Subscribe()
	ch2 := b.Subscribe()

	if b.Count() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", b.Count())
	}

	b.Unsubscribe(ch1)
	if b.Count() != 1 {
		t.Fatalf("expected 1 subscriber after unsubscribe, got %d", b.Count())
	}

	b.Unsubscribe(ch2)
	if b.Count() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", b.Count())
	}
}

func TestBroadcasterPublish(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{
		Type:   EventUploadFailed,
		Path:   "/docs/report.pdf",
		FileID: "f1",
		Error:  "remote store unavailable",
	})

	select {
	case received := <-ch:
		if received.Type != EventUploadFailed {
			t.Errorf("expected type %s, got %s", EventUploadFailed, received.Type)
		}
		if received.Path != "/docs/report.pdf" {
			t.Errorf("expected path /docs/report.pdf, got %s", received.Path)
		}
		if received.Timestamp == 0 {
			t.Error("expected non-zero timestamp")
		}
	default:
		t.Fatal("expected event on channel")
	}
}

func TestBroadcasterSlowConsumer(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill the buffer and then some; extra events must be dropped,
	// never block Publish.
	for i := 0; i < 200; i++ {
		b.Publish(Event{Type: EventUploadComplete, Path: "/f"})
	}

	if len(ch) != cap(ch) {
		t.Errorf("expected full channel (%d), got %d", cap(ch), len(ch))
	}
}
