package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/khaledhikmat/cm-go/model"
	"github.com/khaledhikmat/cm-go/service/lgr"
	"github.com/khaledhikmat/cm-go/service/metrics"
)

type puller struct {
	runID  string
	canxFn context.CancelFunc
	done   chan struct{}
}

// Supervisor owns the background pullers, one per source key at most.
// EnsureRunning is cheap enough to call on every new subscription; the
// periodic sweep restarts pullers that died under watched relays.
type Supervisor struct {
	canxCtx     context.Context
	svcs        ServicesFactory
	relays      *Relays
	errorStream chan interface{}
	statsStream chan interface{}

	mu      sync.Mutex
	pullers map[string]*puller
}

func NewSupervisor(canxCtx context.Context,
	svcs ServicesFactory,
	relays *Relays,
	errorStream chan interface{},
	statsStream chan interface{}) *Supervisor {
	return &Supervisor{
		canxCtx:     canxCtx,
		svcs:        svcs,
		relays:      relays,
		errorStream: errorStream,
		statsStream: statsStream,
		pullers:     map[string]*puller{},
	}
}

// EnsureRunning starts a puller for the source key unless a live one
// already exists. Safe to call concurrently and repeatedly.
func (s *Supervisor) EnsureRunning(sourceKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pullers[sourceKey]; ok {
		select {
		case <-p.done:
			// The previous run ended. Replace it below.
		default:
			return
		}
	}

	ctx, canxFn := context.WithCancel(s.canxCtx)
	p := &puller{
		runID:  uuid.NewString(),
		canxFn: canxFn,
		done:   make(chan struct{}),
	}
	s.pullers[sourceKey] = p

	go s.pull(ctx, sourceKey, p)
}

// Sweep re-arms pullers for every relay that still has subscribers and
// refreshes the running gauge. Meant to be called from the mode loop's
// periodic tick.
func (s *Supervisor) Sweep() {
	for _, key := range s.relays.Keys() {
		if s.relays.Get(key).SubscriberCount() > 0 {
			s.EnsureRunning(key)
		}
	}

	metrics.PullersRunning.Set(float64(s.RunningCount()))
}

func (s *Supervisor) RunningCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, p := range s.pullers {
		select {
		case <-p.done:
		default:
			count++
		}
	}

	return count
}

func (s *Supervisor) pull(canxCtx context.Context, sourceKey string, p *puller) {
	defer close(p.done)
	defer p.canxFn()

	lgr.Logger.Info(
		"puller starting....",
		slog.String("runID", p.runID),
		slog.String("sourceKey", sourceKey),
	)

	rel := s.relays.Get(sourceKey)

	// OTEL stats
	var startTime = time.Now().Unix()
	stats := model.PullerStats{
		SourceKey: sourceKey,
		RunID:     p.runID,
	}

	defer func() {
		stats.Uptime = time.Now().Unix() - startTime
		s.statsStream <- stats
	}()

	idle := time.Duration(s.svcs.CfgSvc.GetPullerIdleInterval()) * time.Millisecond
	pace := time.Duration(s.svcs.CfgSvc.GetPullerFrameInterval()) * time.Millisecond
	backoff := time.Duration(s.svcs.CfgSvc.GetPullerFailureBackoff()) * time.Millisecond

	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"puller context cancelled",
				slog.String("sourceKey", sourceKey),
			)
			return

		default:
			// Nobody is watching, so do not touch the device.
			if rel.SubscriberCount() == 0 {
				sleep(canxCtx, idle)
				continue
			}

			// Resolve the device address fresh on every pass so room
			// updates take effect without restarting the puller.
			room, err := s.svcs.DataSvc.RetrieveRoomByKey(sourceKey)
			if err != nil {
				s.errorStream <- model.GenError("relay_puller",
					err,
					map[string]interface{}{"sourceKey": sourceKey},
					"error resolving room for source key")
				sleep(canxCtx, backoff)
				continue
			}

			if room.Excluded || room.DeviceAddr == "" {
				sleep(canxCtx, idle)
				continue
			}

			stats.Polls++
			metrics.DevicePolls.WithLabelValues(sourceKey).Inc()

			image, err := s.svcs.DeviceSvc.Snapshot(canxCtx, room.DeviceAddr)
			if err != nil {
				if canxCtx.Err() != nil {
					// Cancelled mid-request; not a device failure.
					continue
				}

				stats.Failures++
				metrics.DevicePollFailures.WithLabelValues(sourceKey).Inc()
				lgr.Logger.Debug(
					"device snapshot failed",
					slog.String("sourceKey", sourceKey),
					slog.Any("error", err),
				)
				sleep(canxCtx, backoff)
				continue
			}

			rel.Broadcast(model.Frame{
				SourceKey: sourceKey,
				Image:     image,
				Timestamp: time.Now().Unix(),
			})
			stats.Frames++

			sleep(canxCtx, pace)
		}
	}
}
