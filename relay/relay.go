package relay

import (
	"sync"
	"time"

	"github.com/khaledhikmat/cm-go/model"
	"github.com/khaledhikmat/cm-go/service/metrics"
)

// Relay fans frames for one source key out to its subscribers and caches
// the most recent frame so late joiners have something to show at once.
type Relay struct {
	sourceKey string
	capacity  int

	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
	lastFrame   *model.Frame
	frames      int64
	drops       int64
}

func newRelay(sourceKey string, capacity int) *Relay {
	return &Relay{
		sourceKey:   sourceKey,
		capacity:    capacity,
		subscribers: map[*Subscriber]struct{}{},
	}
}

func (r *Relay) SourceKey() string {
	return r.sourceKey
}

// Subscribe adds a viewer queue. The caller owns the subscription and
// must Unsubscribe when its connection ends.
func (r *Relay) Subscribe() *Subscriber {
	sub := newSubscriber(r.capacity)

	r.mu.Lock()
	r.subscribers[sub] = struct{}{}
	r.mu.Unlock()

	return sub
}

// Unsubscribe removes a viewer queue. Unknown or already removed
// subscribers are a no-op.
func (r *Relay) Unsubscribe(sub *Subscriber) {
	r.mu.Lock()
	delete(r.subscribers, sub)
	r.mu.Unlock()
}

// Broadcast caches the frame and offers it to every subscriber without
// blocking. A slow subscriber loses this frame; nobody else does.
func (r *Relay) Broadcast(frame model.Frame) {
	dropped := 0

	r.mu.Lock()
	r.lastFrame = &frame
	r.frames++
	for sub := range r.subscribers {
		if !sub.TrySend(frame) {
			dropped++
		}
	}
	r.drops += int64(dropped)
	r.mu.Unlock()

	metrics.FramesBroadcast.WithLabelValues(r.sourceKey).Inc()
	if dropped > 0 {
		metrics.FramesDropped.WithLabelValues(r.sourceKey).Add(float64(dropped))
	}
}

// LastFrame returns the cached frame, if any frame was broadcast yet.
func (r *Relay) LastFrame() (model.Frame, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.lastFrame == nil {
		return model.Frame{}, false
	}

	return *r.lastFrame, true
}

func (r *Relay) SubscriberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.subscribers)
}

func (r *Relay) Stats() model.RelayStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return model.RelayStats{
		SourceKey:   r.sourceKey,
		Subscribers: len(r.subscribers),
		Frames:      r.frames,
		Drops:       r.drops,
		Timestamp:   time.Now().Unix(),
	}
}
