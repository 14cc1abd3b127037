package eventbus

import (
	"context"
	"testing"
	"time"
)

func TestHubDeliversAndUnsubscribes(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	sub := h.Subscribe(ctx, 1)

	if got := h.SubscriberCount(); got != 1 {
		t.Fatalf("subscribers=%d, want 1", got)
	}

	h.Publish(Event{Type: "document_updated"})
	// 缓冲已满，第二条应被丢弃而不是阻塞
	h.Publish(Event{Type: "analysis_completed"})

	evt := <-sub
	if evt.Type != "document_updated" || evt.Timestamp == 0 {
		t.Fatalf("unexpected event: %+v", evt)
	}
	if st := h.Stats(); st.Published != 2 || st.Dropped != 1 || st.Subscribers != 1 {
		t.Fatalf("stats=%+v, want published=2 dropped=1", st)
	}

	cancel()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-sub:
			if !ok {
				if got := h.SubscriberCount(); got != 0 {
					t.Fatalf("subscribers=%d after cancel, want 0", got)
				}
				return
			}
		case <-deadline:
			t.Fatalf("subscription not closed after cancel")
		}
	}
}

func TestHubFiltersByType(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	onlyAnalysis := h.Subscribe(ctx, 4, "analysis_completed")
	all := h.Subscribe(ctx, 4)

	h.Publish(Event{Type: "document_updated"})
	h.Publish(Event{Type: "analysis_completed", Data: map[string]any{"history_id": "h1"}})

	select {
	case evt := <-onlyAnalysis:
		if evt.Type != "analysis_completed" || evt.Data["history_id"] != "h1" {
			t.Fatalf("filtered subscriber got %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatalf("filtered subscriber got nothing")
	}
	select {
	case evt := <-onlyAnalysis:
		t.Fatalf("filtered subscriber should get one event, extra %+v", evt)
	default:
	}

	if len(all) != 2 {
		t.Fatalf("unfiltered subscriber buffered %d events, want 2", len(all))
	}
	if st := h.Stats(); st.Dropped != 0 {
		t.Fatalf("skipped events must not count as dropped: %+v", st)
	}
}

func TestNilHubIsSafe(t *testing.T) {
	var h *Hub
	h.Publish(Event{Type: "config_reloaded"})
	if h.SubscriberCount() != 0 || h.Stats() != (Stats{}) {
		t.Fatalf("nil hub should report zero stats")
	}
}
