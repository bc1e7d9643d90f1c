package relay

import (
	"context"
	"testing"
	"time"

	"github.com/khaledhikmat/cm-go/model"
)

func TestSubscriberKeepsOldestWhenFull(t *testing.T) {
	sub := newSubscriber(2)

	if !sub.TrySend(model.Frame{Timestamp: 1}) {
		t.Fatal("first send should be accepted")
	}
	if !sub.TrySend(model.Frame{Timestamp: 2}) {
		t.Fatal("second send should be accepted")
	}

	// The queue is full; the newest frame is the one that loses.
	if sub.TrySend(model.Frame{Timestamp: 3}) {
		t.Fatal("third send should be dropped")
	}

	first := <-sub.Frames()
	second := <-sub.Frames()
	if first.Timestamp != 1 || second.Timestamp != 2 {
		t.Errorf("expected frames 1 and 2, got %d and %d", first.Timestamp, second.Timestamp)
	}

	if sub.Sent() != 2 {
		t.Errorf("expected 2 sent, got %d", sub.Sent())
	}
	if sub.Dropped() != 1 {
		t.Errorf("expected 1 dropped, got %d", sub.Dropped())
	}
}

func TestSubscriberMinimumCapacity(t *testing.T) {
	sub := newSubscriber(0)

	if !sub.TrySend(model.Frame{Timestamp: 1}) {
		t.Fatal("a zero-capacity request should still hold one frame")
	}
	if sub.TrySend(model.Frame{Timestamp: 2}) {
		t.Fatal("second send should be dropped")
	}
}

func TestSubscriberNextReceivesFrame(t *testing.T) {
	sub := newSubscriber(4)
	sub.TrySend(model.Frame{Timestamp: 42})

	frame, received, err := sub.Next(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if !received {
		t.Fatal("expected a frame")
	}
	if frame.Timestamp != 42 {
		t.Errorf("expected frame 42, got %d", frame.Timestamp)
	}
}

func TestSubscriberNextTimeout(t *testing.T) {
	sub := newSubscriber(4)

	_, received, err := sub.Next(context.Background(), 20*time.Millisecond)
	if err != nil {
		t.Fatalf("a timeout is not an error: %v", err)
	}
	if received {
		t.Fatal("expected no frame")
	}
}

func TestSubscriberNextCancelled(t *testing.T) {
	sub := newSubscriber(4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, received, err := sub.Next(ctx, time.Second)
	if err == nil {
		t.Fatal("expected a context error")
	}
	if received {
		t.Fatal("expected no frame")
	}
}
