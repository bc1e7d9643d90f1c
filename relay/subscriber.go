package relay

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/khaledhikmat/cm-go/model"
)

// Subscriber is one viewer's bounded frame queue. When the queue is full
// the newest frame is dropped so the subscriber keeps the frames it has
// not consumed yet; a stale backlog beats a torn one.
type Subscriber struct {
	frames  chan model.Frame
	sent    atomic.Int64
	dropped atomic.Int64
}

func newSubscriber(capacity int) *Subscriber {
	if capacity <= 0 {
		capacity = 1
	}

	return &Subscriber{
		frames: make(chan model.Frame, capacity),
	}
}

// TrySend enqueues the frame without blocking. It reports whether the
// frame was accepted.
func (s *Subscriber) TrySend(frame model.Frame) bool {
	select {
	case s.frames <- frame:
		s.sent.Add(1)
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Next blocks until a frame arrives, the timeout elapses or the context
// is cancelled. A timeout is an expected outcome and is reported via the
// second return, not as an error.
func (s *Subscriber) Next(ctx context.Context, timeout time.Duration) (model.Frame, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case frame := <-s.frames:
		return frame, true, nil
	case <-timer.C:
		return model.Frame{}, false, nil
	case <-ctx.Done():
		return model.Frame{}, false, ctx.Err()
	}
}

// Frames exposes the queue for callers that select on it directly.
func (s *Subscriber) Frames() <-chan model.Frame {
	return s.frames
}

func (s *Subscriber) Sent() int64 {
	return s.sent.Load()
}

func (s *Subscriber) Dropped() int64 {
	return s.dropped.Load()
}
