// Package poller runs the fetch side of the sign: periodic train and
// alert fetches, config hot-reload, and snapshot publication into the
// render pipe.
package poller

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mta-display/subway-sign/config"
	"github.com/mta-display/subway-sign/model"
	"github.com/mta-display/subway-sign/mta"
	"github.com/mta-display/subway-sign/pipe"
)

// configWatchInterval is how often the config file's mtime is checked.
const configWatchInterval = 5 * time.Second

// Poller owns the fetch loop. It fetches trains and alerts on their
// configured intervals, watches the config file for changes, and
// publishes a fresh DisplaySnapshot after every fetch.
type Poller struct {
	store  *config.Store
	source mta.Source
	out    *pipe.Pipe

	// lastSuccess is the unix time of the last published snapshot,
	// readable from other goroutines for supervision.
	lastSuccess atomic.Int64

	trains []model.Train
	alerts []model.Alert
}

// New creates a poller publishing into out.
func New(store *config.Store, source mta.Source, out *pipe.Pipe) *Poller {
	return &Poller{store: store, source: source, out: out}
}

// LastSuccess returns when the poller last published a snapshot.
func (p *Poller) LastSuccess() time.Time {
	return time.Unix(p.lastSuccess.Load(), 0)
}

// Run drives the fetch loop until ctx is cancelled. A full fetch runs
// immediately so the sign has data before the first tick.
func (p *Poller) Run(ctx context.Context) error {
	cfg := p.store.Current()

	p.fetchTrains(ctx, cfg)
	p.fetchAlerts(ctx, cfg)
	p.publish()

	trainTicker := time.NewTicker(time.Duration(cfg.Refresh.TrainsIntervalSec) * time.Second)
	alertTicker := time.NewTicker(time.Duration(cfg.Refresh.AlertsIntervalSec) * time.Second)
	watchTicker := time.NewTicker(configWatchInterval)
	defer trainTicker.Stop()
	defer alertTicker.Stop()
	defer watchTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-trainTicker.C:
			p.fetchTrains(ctx, cfg)
			p.publish()

		case <-alertTicker.C:
			p.fetchAlerts(ctx, cfg)
			p.publish()

		case <-watchTicker.C:
			changed, err := p.store.CheckAndReload()
			if err != nil {
				slog.Warn("config reload failed, keeping previous config", "err", err)
				continue
			}
			if !changed {
				continue
			}
			cfg = p.store.Current()
			slog.Info("config reloaded",
				"platforms", len(cfg.StationStops),
				"routes", cfg.Routes,
				"trains_interval", cfg.Refresh.TrainsIntervalSec,
				"alerts_interval", cfg.Refresh.AlertsIntervalSec,
			)
			trainTicker.Reset(time.Duration(cfg.Refresh.TrainsIntervalSec) * time.Second)
			alertTicker.Reset(time.Duration(cfg.Refresh.AlertsIntervalSec) * time.Second)
			// Refetch immediately so the new station shows up without
			// waiting out the old interval.
			p.fetchTrains(ctx, cfg)
			p.fetchAlerts(ctx, cfg)
			p.publish()
		}
	}
}

func (p *Poller) fetchTrains(ctx context.Context, cfg *config.Config) {
	p.trains = p.source.FetchTrains(ctx, cfg.AllStopIDs(), cfg.RouteSet(), cfg.Display.MaxTrains)
}

func (p *Poller) fetchAlerts(ctx context.Context, cfg *config.Config) {
	if !cfg.Display.ShowAlerts {
		p.alerts = nil
		return
	}
	p.alerts = p.source.FetchAlerts(ctx, cfg.RouteSet())
}

func (p *Poller) publish() {
	p.out.Publish(model.DisplaySnapshot{
		Trains:    p.trains,
		Alerts:    p.alerts,
		FetchedAt: time.Now(),
	})
	p.lastSuccess.Store(time.Now().Unix())
}
