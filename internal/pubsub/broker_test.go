package pubsub

import (
	"context"
	"testing"
	"time"
)

func TestSubscribeReceivesPublishedEvents(t *testing.T) {
	b := NewBroker[string]()
	defer b.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := b.Subscribe(ctx)

	b.Publish(CreatedEvent, "first")
	b.Publish(UpdatedEvent, "second")

	for _, want := range []struct {
		typ     EventType
		payload string
	}{
		{CreatedEvent, "first"},
		{UpdatedEvent, "second"},
	} {
		select {
		case ev := <-ch:
			if ev.Type != want.typ || ev.Payload != want.payload {
				t.Errorf("got %+v, want %s/%s", ev, want.typ, want.payload)
			}
		case <-time.After(time.Second):
			t.Fatalf("event %s/%s never arrived", want.typ, want.payload)
		}
	}
}

func TestSubscriptionClosesOnContextCancel(t *testing.T) {
	b := NewBroker[int]()
	defer b.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected a closed channel, got an event")
		}
	case <-time.After(time.Second):
		t.Fatal("channel never closed after cancel")
	}
}

func TestPublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	b := NewBroker[int]()
	defer b.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := b.Subscribe(ctx)

	// Overflow the buffer without anyone draining; extra events are dropped.
	for i := 0; i < defaultBufferSize+5; i++ {
		b.Publish(UpdatedEvent, i)
	}

	got := 0
	for {
		select {
		case <-ch:
			got++
		default:
			if got != defaultBufferSize {
				t.Errorf("expected %d buffered events, got %d", defaultBufferSize, got)
			}
			return
		}
	}
}

func TestShutdownClosesSubscribers(t *testing.T) {
	b := NewBroker[int]()
	ch := b.Subscribe(context.Background())
	b.Shutdown()

	if _, ok := <-ch; ok {
		t.Error("expected a closed channel after shutdown")
	}

	// A subscription after shutdown is born closed.
	late := b.Subscribe(context.Background())
	if _, ok := <-late; ok {
		t.Error("expected a closed channel for a late subscriber")
	}
}
