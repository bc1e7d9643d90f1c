package relay

import (
	"context"
	"time"

	"github.com/khaledhikmat/cm-go/service/auth"
	"github.com/khaledhikmat/cm-go/service/config"
	"github.com/khaledhikmat/cm-go/service/data"
	"github.com/khaledhikmat/cm-go/service/detect"
	"github.com/khaledhikmat/cm-go/service/device"
	"github.com/khaledhikmat/cm-go/service/storage"
)

// ServicesFactory makes it possible to inject services into processors
// without a long list of arguments.
type ServicesFactory struct {
	CfgSvc     config.IService
	DataSvc    data.IService
	AuthSvc    auth.IService
	DeviceSvc  device.IService
	DetectSvc  detect.IService
	StorageSvc storage.IService
}

// sleep pauses for d or until the context is cancelled, whichever comes
// first. Callers loop back to their cancellation check afterwards.
func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
