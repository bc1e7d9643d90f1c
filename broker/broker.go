package broker

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/khaledhikmat/cm-go/model"
	"github.com/khaledhikmat/cm-go/service/config"
	"github.com/khaledhikmat/cm-go/service/lgr"
	"github.com/khaledhikmat/cm-go/service/metrics"
)

// Broker pushes alerts to the target identifier's connections and to the
// configured mirror identifier. Delivery is best effort: offline
// recipients and dead connections never fail the caller.
type Broker struct {
	cfgSvc config.IService
	conns  *Connections

	delivered atomic.Int64
	failed    atomic.Int64
}

func New(cfgsvc config.IService, conns *Connections) *Broker {
	return &Broker{
		cfgSvc: cfgsvc,
		conns:  conns,
	}
}

// SendAlert delivers the alert to the target and mirrors it. The two
// deliveries are independent; a dead target connection does not keep the
// mirror from seeing the alert.
func (b *Broker) SendAlert(target string, alert model.Alert) {
	b.deliver(target, alert)

	mirror := b.cfgSvc.GetMirrorIdentifier()
	if mirror != "" && mirror != target {
		b.deliver(mirror, alert)
	}
}

func (b *Broker) deliver(identifier string, alert model.Alert) {
	conns := b.conns.For(identifier)
	if len(conns) == 0 {
		lgr.Logger.Debug(
			"alert recipient offline",
			slog.String("identifier", identifier),
			slog.String("alertID", alert.ID),
		)
		return
	}

	for _, conn := range conns {
		if err := conn.Send(alert); err != nil {
			// The write failed, so the socket is gone. Prune it and move
			// on to the remaining connections.
			b.failed.Add(1)
			metrics.AlertsFailed.Inc()

			b.conns.Unregister(identifier, conn)
			conn.Close()

			lgr.Logger.Info(
				"pruned dead alert connection",
				slog.String("identifier", identifier),
				slog.String("connID", conn.ID),
				slog.Any("error", err),
			)
			continue
		}

		b.delivered.Add(1)
		metrics.AlertsDelivered.Inc()
	}
}

func (b *Broker) Stats() model.BrokerStats {
	return model.BrokerStats{
		Identifiers: b.conns.Identifiers(),
		Connections: b.conns.Total(),
		Delivered:   b.delivered.Load(),
		Failed:      b.failed.Load(),
		Timestamp:   time.Now().Unix(),
	}
}
