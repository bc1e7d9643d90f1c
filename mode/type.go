package mode

import (
	"context"
	"log/slog"

	"github.com/khaledhikmat/cm-go/model"
	"github.com/khaledhikmat/cm-go/relay"
	"github.com/khaledhikmat/cm-go/service/data"
	"github.com/khaledhikmat/cm-go/service/lgr"
	"github.com/khaledhikmat/cm-go/service/metrics"
)

type Processor func(canxCtx context.Context, svcs relay.ServicesFactory) error

// procStats folds stream stats into the exported gauges. Counters are
// incremented at the point of action; only snapshots land here.
func procStats(stats interface{}) {
	switch stats := stats.(type) {
	case model.RelayStats:
		procRelayStats(stats)
	case model.PullerStats:
		procPullerStats(stats)
	case model.BrokerStats:
		procBrokerStats(stats)
	default:
		lgr.Logger.Error(
			"unknown stats type",
			slog.Any("stats", stats),
		)
	}
}

func procRelayStats(stats model.RelayStats) {
	metrics.StreamSubscribers.WithLabelValues(stats.SourceKey).Set(float64(stats.Subscribers))

	lgr.Logger.Debug(
		"relay stats",
		slog.String("sourceKey", stats.SourceKey),
		slog.Int("subscribers", stats.Subscribers),
		slog.Int64("frames", stats.Frames),
		slog.Int64("drops", stats.Drops),
	)
}

func procPullerStats(stats model.PullerStats) {
	lgr.Logger.Debug(
		"puller stats",
		slog.String("sourceKey", stats.SourceKey),
		slog.String("runID", stats.RunID),
		slog.Int("polls", stats.Polls),
		slog.Int("failures", stats.Failures),
		slog.Int("frames", stats.Frames),
		slog.Int64("uptime", stats.Uptime),
	)
}

func procBrokerStats(stats model.BrokerStats) {
	metrics.AlertConnections.Set(float64(stats.Connections))

	lgr.Logger.Debug(
		"broker stats",
		slog.Int("identifiers", stats.Identifiers),
		slog.Int("connections", stats.Connections),
		slog.Int64("delivered", stats.Delivered),
		slog.Int64("failed", stats.Failed),
	)
}

func procError(datasvc data.IService, err interface{}) {
	errTemp := datasvc.NewError(err)
	if errTemp != nil {
		lgr.Logger.Error(
			"failed to store error",
			slog.Any("error", errTemp),
		)
	}
}
