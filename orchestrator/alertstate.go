package orchestrator

import (
	"time"

	"github.com/mta-display/subway-sign/alerts"
	"github.com/mta-display/subway-sign/model"
)

// alertState is the alert-display sub-state-machine. Idle is the zero
// value (showAlert false); Displaying tracks the scrolling alert, the
// (route, destination) pair of the train that triggered the cycle, and
// when the cycle began.
type alertState struct {
	showAlert    bool
	currentAlert model.Alert
	scrollOffset float64

	triggeredRoute string
	triggeredDest  string
	cycleStart     time.Time

	now func() time.Time
}

func newAlertState() *alertState {
	return &alertState{now: time.Now}
}

// clear returns the machine to Idle.
func (s *alertState) clear() {
	s.showAlert = false
	s.currentAlert = model.Alert{}
	s.scrollOffset = 0
	s.triggeredRoute = ""
	s.triggeredDest = ""
}

// step advances the machine by one frame.
//
// A train arriving now (zero minutes) with displayable alerts queued
// starts a display cycle. The active alert scrolls at scrollSpeed
// px/frame until it fully exits the screen, then the machine either
// rotates to the next unshown alert, restarts the cycle for a newly
// arrived train, or returns to Idle. maxDuration caps a cycle
// unconditionally.
func (s *alertState) step(sched *alerts.Manager, snap model.DisplaySnapshot, r Renderer, scrollSpeed float64, maxDuration time.Duration) {
	first := snap.FirstTrain()
	trainAtZero := first.Minutes == 0

	// Fast path: nothing showing and nothing can trigger.
	if !trainAtZero && !s.showAlert {
		return
	}

	// Has the train that triggered this cycle left the zero-minute
	// state? Judged against the triggering pair, not the current
	// soonest train.
	triggerDeparted := false
	if s.showAlert {
		triggerDeparted = true
		for _, t := range snap.Trains {
			if t.Route == s.triggeredRoute && t.Destination == s.triggeredDest && t.Minutes == 0 {
				triggerDeparted = false
				break
			}
		}
	}

	if trainAtZero && !s.showAlert && sched.HasDisplayable() {
		sched.ResetCycle()
		if a, ok := sched.NextAlert(); ok {
			s.currentAlert = a
			s.showAlert = true
			s.scrollOffset = 0
			s.triggeredRoute = first.Route
			s.triggeredDest = first.Destination
			s.cycleStart = s.now()
		}
	}

	if s.showAlert {
		if s.now().Sub(s.cycleStart) > maxDuration {
			s.clear()
			sched.PeriodicCleanup()
			return
		}

		s.scrollOffset += scrollSpeed

		if s.scrollOffset < float64(r.ScrollCompleteDistance()) {
			sched.PeriodicCleanup()
			return
		}

		// Finished scrolling: cooldown starts now.
		sched.MarkDisplayed(s.currentAlert)

		var next model.Alert
		var haveNext bool
		switch {
		case triggerDeparted && trainAtZero && sched.HasDisplayable():
			// Triggering train left but another is arriving: restart
			// the cycle for the new train.
			sched.ResetCycle()
			next, haveNext = sched.NextAlert()
		case !triggerDeparted && !sched.AllShownThisCycle():
			next, haveNext = sched.NextAlert()
		}

		if haveNext {
			s.currentAlert = next
			s.scrollOffset = 0
			if triggerDeparted {
				s.triggeredRoute = first.Route
				s.triggeredDest = first.Destination
				s.cycleStart = s.now()
			}
		} else {
			s.clear()
		}
	}

	sched.PeriodicCleanup()
}
