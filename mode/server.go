package mode

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/khaledhikmat/cm-go/broker"
	"github.com/khaledhikmat/cm-go/model"
	"github.com/khaledhikmat/cm-go/relay"
	"github.com/khaledhikmat/cm-go/server"
	"github.com/khaledhikmat/cm-go/service/lgr"
)

// The server mode runs the relay: the HTTP/WebSocket surface, the relay
// registry, the puller supervisor and the alert broker.
func Server(canxCtx context.Context, svcs relay.ServicesFactory) error {
	// Create an error stream
	errorStream := make(chan interface{})
	defer close(errorStream)

	// Create a stats stream
	statsStream := make(chan interface{})
	defer close(statsStream)

	relays := relay.NewRelays(svcs.CfgSvc)
	supervisor := relay.NewSupervisor(canxCtx, svcs, relays, errorStream, statsStream)
	conns := broker.NewConnections()
	alertBroker := broker.New(svcs.CfgSvc, conns)

	httpServer := server.New(canxCtx, svcs, relays, supervisor, alertBroker, conns, errorStream)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	var fatalErr error

	// Wait for cancellation, server failure, the periodic tick or
	// stream traffic
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"relay server context cancelled",
			)
			goto resume

		case err := <-serverErrors:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				procError(svcs.DataSvc, model.GenError("relay_server",
					err,
					map[string]interface{}{},
					"http server failed"))
				fatalErr = err
			}
			goto resume

		case <-time.After(time.Duration(svcs.CfgSvc.GetServerPeriodicTimeout()) * time.Second):
			// Re-arm pullers that died under watched relays and refresh
			// the snapshot gauges.
			supervisor.Sweep()

			for _, stats := range relays.Stats() {
				procStats(stats)
			}
			procStats(alertBroker.Stats())

		case s := <-statsStream:
			procStats(s)

		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		}
	}

	// Stop accepting work, then wait in a non-blocking way for the
	// pullers and connection tasks to exit. This is needed because the
	// go routines may need to report stats or errors as they are exiting.
resume:
	shutdownCtx, shutdownCanxFn := context.WithTimeout(context.Background(),
		time.Duration(svcs.CfgSvc.GetModeMaxShutdownTime())*time.Second)
	defer shutdownCanxFn()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		lgr.Logger.Error(
			"error shutting down http server",
			slog.Any("error", err),
		)
	}

	lgr.Logger.Info(
		"relay server is waiting for all go routines to exit",
	)

	timer := time.NewTimer(time.Duration(svcs.CfgSvc.GetModeMaxShutdownTime()) * time.Second)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			// Timer expired, proceed with shutdown
			lgr.Logger.Info(
				"relay server shutdown waiting period expired. Exiting now",
				slog.Duration("period", time.Duration(svcs.CfgSvc.GetModeMaxShutdownTime())*time.Second),
			)

			return fatalErr

		case s := <-statsStream:
			procStats(s)

		case e := <-errorStream:
			procError(svcs.DataSvc, e)
		}
	}
}
