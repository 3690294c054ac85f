package orchestrator

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mta-display/subway-sign/alerts"
	"github.com/mta-display/subway-sign/config"
	"github.com/mta-display/subway-sign/model"
	"github.com/mta-display/subway-sign/pipe"
)

const (
	// targetFPS sets the frame budget; scroll speed is per frame, so
	// the rate also fixes scroll speed in px/s.
	targetFPS   = 30
	frameBudget = time.Second / targetFPS

	// cycleInterval advances the bottom-row train rotation.
	cycleInterval = 3 * time.Second
	// cycleTrainCount is how many upcoming trains the rotation covers.
	cycleTrainCount = 6
	// flashInterval toggles the top-row arrival flash.
	flashInterval = 500 * time.Millisecond
	// scrollSpeed is the alert scroll advance per frame, in pixels.
	scrollSpeed = 2.0
	// maxAlertCycle unconditionally ends an alert display cycle.
	maxAlertCycle = 90 * time.Second

	statsInterval = 5 * time.Minute
)

// Renderer draws one frame and owns the output device. The orchestrator
// never touches pixels itself.
type Renderer interface {
	// RenderFrame draws the current state: the snapshot, the bottom-row
	// cycle index, the top-row flash phase, and the active alert (nil
	// when no alert is showing) at the given scroll offset.
	RenderFrame(snap model.DisplaySnapshot, cycleIndex int, flash bool, scrollOffset float64, alert *model.Alert)

	// ScrollCompleteDistance is the pixel distance at which the last
	// rendered alert has fully exited the screen.
	ScrollCompleteDistance() int

	// SetBrightness applies a brightness percentage in [1, 100].
	SetBrightness(percent int)
}

// Orchestrator runs the render side: one cooperative loop, one frame at
// a time, no blocking calls. Data arrives only through the snapshot
// pipe and the config store; neither read can stall a frame.
type Orchestrator struct {
	store    *config.Store
	in       *pipe.Pipe
	renderer Renderer
	sched    *alerts.Manager

	// lastFrame is the unix time of the most recent rendered frame,
	// readable from other goroutines for supervision.
	lastFrame atomic.Int64
}

// New creates an orchestrator reading snapshots from in.
func New(store *config.Store, in *pipe.Pipe, renderer Renderer) *Orchestrator {
	return &Orchestrator{
		store:    store,
		in:       in,
		renderer: renderer,
		sched:    alerts.NewManager(),
	}
}

// LastFrame returns when the last frame was rendered.
func (o *Orchestrator) LastFrame() time.Time {
	return time.Unix(o.lastFrame.Load(), 0)
}

// Run drives the frame loop until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	cfg := o.store.Current()
	brightness := brightnessPercent(cfg.Display.Brightness)
	o.renderer.SetBrightness(brightness)

	alertSt := newAlertState()
	snap := model.EmptySnapshot()

	cycleIndex := 0
	flash := false
	lastCycle := time.Now()
	lastFlash := time.Now()

	var frameCount, missedFrames, totalFrameUS, maxFrameUS uint64
	lastStats := time.Now()

	slog.Info("render loop started", "fps", targetFPS)

	for {
		select {
		case <-ctx.Done():
			slog.Info("render loop stopped")
			return ctx.Err()
		default:
		}

		frameStart := time.Now()

		// Newest snapshot wins; keep the previous one when the fetch
		// side has nothing new.
		if s, ok := o.in.Poll(); ok {
			snap = s
			if cfg.Display.ShowAlerts {
				o.sched.FilterAndSort(snap.Alerts)
			}
		}

		if time.Since(lastCycle) >= cycleInterval {
			lastCycle = time.Now()
			cycleIndex = (cycleIndex + 1) % cycleTrainCount
		}
		if time.Since(lastFlash) >= flashInterval {
			lastFlash = time.Now()
			flash = !flash
		}

		var activeAlert *model.Alert
		if cfg.Display.ShowAlerts {
			alertSt.step(o.sched, snap, o.renderer, scrollSpeed, maxAlertCycle)
			if alertSt.showAlert {
				a := alertSt.currentAlert
				activeAlert = &a
			}
		}

		o.renderer.RenderFrame(snap, cycleIndex, flash, alertSt.scrollOffset, activeAlert)

		work := time.Since(frameStart)
		workUS := uint64(work.Microseconds())
		totalFrameUS += workUS
		if workUS > maxFrameUS {
			maxFrameUS = workUS
		}
		if work > frameBudget {
			missedFrames++
			if work > frameBudget*3/2 {
				slog.Warn("frame overran budget", "frame_ms", float64(workUS)/1000, "budget_ms", float64(frameBudget.Microseconds())/1000)
			}
		}
		frameCount++

		// Once a second: re-read config for brightness changes and
		// record liveness.
		if frameCount%targetFPS == 0 {
			cfg = o.store.Current()
			if b := brightnessPercent(cfg.Display.Brightness); b != brightness {
				o.renderer.SetBrightness(b)
				brightness = b
				slog.Info("brightness updated", "percent", b)
			}
			o.lastFrame.Store(time.Now().Unix())
		}

		if time.Since(lastStats) >= statsInterval {
			elapsed := time.Since(lastStats).Seconds()
			avgMS := 0.0
			missedPct := 0.0
			if frameCount > 0 {
				avgMS = float64(totalFrameUS) / float64(frameCount) / 1000
				missedPct = float64(missedFrames) / float64(frameCount) * 100
			}
			slog.Info("frame stats",
				"fps", float64(frameCount)/elapsed,
				"missed", missedFrames,
				"missed_pct", missedPct,
				"avg_frame_ms", avgMS,
				"max_frame_ms", float64(maxFrameUS)/1000,
				"trains", len(snap.Trains),
				"alerts", len(snap.Alerts),
			)
			frameCount, missedFrames, totalFrameUS, maxFrameUS = 0, 0, 0, 0
			lastStats = time.Now()
		}

		// Late frames are delivered late, never skipped; the loop
		// sleeps only the remaining budget.
		if rest := frameBudget - time.Since(frameStart); rest > 0 {
			time.Sleep(rest)
		}
	}
}

// brightnessPercent converts the configured [0,1] brightness to a
// device percentage, clamped to [1, 100].
func brightnessPercent(b float64) int {
	p := int(b*100 + 0.5)
	if p < 1 {
		p = 1
	}
	if p > 100 {
		p = 100
	}
	return p
}
