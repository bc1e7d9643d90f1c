package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/xerrors"

	"github.com/khaledhikmat/cm-go/mode"
	"github.com/khaledhikmat/cm-go/relay"
	"github.com/khaledhikmat/cm-go/service/auth"
	"github.com/khaledhikmat/cm-go/service/config"
	"github.com/khaledhikmat/cm-go/service/data"
	"github.com/khaledhikmat/cm-go/service/detect"
	"github.com/khaledhikmat/cm-go/service/device"
	"github.com/khaledhikmat/cm-go/service/lgr"
	"github.com/khaledhikmat/cm-go/service/storage"
)

const (
	// WARNING: this has to be bigger that the mode processor shutdown time
	waitOnShutdown = 8 * time.Second
)

var modeProcessors = map[string]mode.Processor{
	"server": mode.Server,
	"seed":   mode.Seed,
}

func main() {
	rootCtx := context.Background()
	canxCtx, canxFn := context.WithCancel(rootCtx)

	// Hook up a signal handler to cancel the context
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		lgr.Logger.Info(
			"received kill signal",
			slog.Any("signal", sig),
		)
		canxFn()
	}()

	// Load env vars if we are in DEV mode
	if os.Getenv("RUN_TIME_ENV") == "dev" || os.Getenv("RUN_TIME_ENV") == "" {
		lgr.Logger.Info("loading env vars from .env file")
		err := godotenv.Load()
		if err != nil {
			lgr.Logger.Error("error loading .env file", slog.Any("error", xerrors.New(err.Error())))
			panic("error loading .env file")
		}
	}

	modeType := "server"
	args := os.Args[1:]
	if len(args) > 0 {
		modeType = args[0]
	}

	modeProc, ok := modeProcessors[modeType]
	if !ok {
		lgr.Logger.Error("invalid mode", slog.String("mode", modeType))
		panic("invalid mode")
	}

	// Create the services needed for the mode processor
	// They can be overridden by the mode processor with different implementations
	// Config service
	cfgSvc := config.NewEnv()
	// Data service
	dataSvc, err := data.NewSQLite(cfgSvc)
	if err != nil {
		lgr.Logger.Error("error opening the database", slog.Any("error", xerrors.New(err.Error())))
		panic("error opening the database")
	}
	defer dataSvc.Close()
	// Auth service
	authSvc := auth.NewJWT(cfgSvc)
	// Device service
	deviceSvc := device.NewHTTP(cfgSvc)
	// Detect service
	detectSvc := detect.NewHTTP(cfgSvc)
	// Storage service
	storageSvc := storage.NewFiles(cfgSvc)

	svcs := relay.ServicesFactory{
		CfgSvc:     cfgSvc,
		DataSvc:    dataSvc,
		AuthSvc:    authSvc,
		DeviceSvc:  deviceSvc,
		DetectSvc:  detectSvc,
		StorageSvc: storageSvc,
	}

	// Create mode processor result
	modeProcResult := make(chan error)
	defer close(modeProcResult)

	// Start the mode processor
	go func() {
		modeProcResult <- modeProc(canxCtx, svcs)
	}()

	// Wait for cancellation or the mode proc to exit
	for {
		select {
		case <-canxCtx.Done():
			lgr.Logger.Info(
				"monitor pod context cancelled",
			)
			goto resume

		case err := <-modeProcResult:
			if err != nil {
				lgr.Logger.Info(
					"monitor pod mode processor exited",
					slog.Any("error", xerrors.New(err.Error())),
				)
			}
			goto resume
		}
	}

	// Wait in a non-blocking way for `waitOnShutdown` for all the go routines to exit
	// This is needed because the go routines may need to report errors as they are existing
resume:
	// Cancel the context if not already cancelled
	if canxCtx.Err() == nil {
		// Force cancel the context
		canxFn()
	}

	lgr.Logger.Info(
		"monitor pod is waiting for all go routines to exit",
	)

	// The only way to exit the main function is to wait for the shutdown
	// duration
	timer := time.NewTimer(waitOnShutdown)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			// Timer expired, proceed with shutdown
			lgr.Logger.Info(
				"monitor pod shutdown waiting period expired. Exiting now",
				slog.Duration("period", waitOnShutdown),
			)

			return

		case err := <-modeProcResult:
			if err != nil {
				lgr.Logger.Info(
					"monitor pod mode processor exited",
					slog.Any("error", xerrors.New(err.Error())),
				)
			}
		}
	}
}
