package orchestrator

import (
	"testing"
	"time"

	"github.com/mta-display/subway-sign/alerts"
	"github.com/mta-display/subway-sign/model"
)

// stubRenderer fixes the scroll completion distance so tests can count
// frames exactly.
type stubRenderer struct {
	completeDistance int
}

func (r *stubRenderer) RenderFrame(model.DisplaySnapshot, int, bool, float64, *model.Alert) {}
func (r *stubRenderer) ScrollCompleteDistance() int { return r.completeDistance }
func (r *stubRenderer) SetBrightness(int)           {}

type stateClock struct {
	t time.Time
}

func (c *stateClock) now() time.Time          { return c.t }
func (c *stateClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestState() (*alertState, *alerts.Manager, *stateClock) {
	clock := &stateClock{t: time.Unix(1_700_000_000, 0)}
	st := newAlertState()
	st.now = clock.now
	sched := alerts.NewManager()
	return st, sched, clock
}

func arrivalSnapshot(route, dest string, minutes int) model.DisplaySnapshot {
	return model.DisplaySnapshot{Trains: []model.Train{
		{Route: route, Destination: dest, Minutes: minutes},
	}}
}

func queueAlerts(sched *alerts.Manager, as ...model.Alert) {
	sched.FilterAndSort(as)
}

func TestAlertState_TriggersOnArrival(t *testing.T) {
	st, sched, _ := newTestState()
	queueAlerts(sched, model.NewAlert("a1", "Delays on the 6", 1, "6"))
	r := &stubRenderer{completeDistance: 400}

	snap := arrivalSnapshot("6", "Pelham Bay Park", 0)
	st.step(sched, snap, r, 2.0, maxAlertCycle)

	if !st.showAlert {
		t.Fatal("zero-minute train with queued alerts must start a display cycle")
	}
	if st.currentAlert.ID != "a1" {
		t.Errorf("unexpected alert: %+v", st.currentAlert)
	}
	if st.triggeredRoute != "6" || st.triggeredDest != "Pelham Bay Park" {
		t.Errorf("triggering pair not recorded: %q/%q", st.triggeredRoute, st.triggeredDest)
	}
	if st.scrollOffset != 2.0 {
		t.Errorf("first frame should advance scroll by one step, got %v", st.scrollOffset)
	}
}

func TestAlertState_NoTriggerWithoutArrival(t *testing.T) {
	st, sched, _ := newTestState()
	queueAlerts(sched, model.NewAlert("a1", "Delays", 1, "6"))
	r := &stubRenderer{completeDistance: 400}

	st.step(sched, arrivalSnapshot("6", "Pelham Bay Park", 3), r, 2.0, maxAlertCycle)
	if st.showAlert {
		t.Error("no zero-minute train, no alert display")
	}
}

func TestAlertState_NoTriggerWithEmptyQueue(t *testing.T) {
	st, sched, _ := newTestState()
	r := &stubRenderer{completeDistance: 400}

	st.step(sched, arrivalSnapshot("6", "Pelham Bay Park", 0), r, 2.0, maxAlertCycle)
	if st.showAlert {
		t.Error("nothing queued, nothing to display")
	}
}

// Scroll 2 px/frame: an alert whose completion distance is D finishes
// after ceil(D/2) frames, is marked displayed, and with a single-alert
// queue the machine returns to Idle.
func TestAlertState_ScrollCompletesAndIdles(t *testing.T) {
	st, sched, _ := newTestState()
	queueAlerts(sched, model.NewAlert("a1", "Delays on the 6", 1, "6"))
	r := &stubRenderer{completeDistance: 20}

	snap := arrivalSnapshot("6", "Pelham Bay Park", 0)
	for frame := 0; frame < 10; frame++ {
		st.step(sched, snap, r, 2.0, maxAlertCycle)
		if frame < 9 && !st.showAlert {
			t.Fatalf("alert ended early at frame %d (offset %v)", frame, st.scrollOffset)
		}
	}

	if st.showAlert {
		t.Error("single alert fully scrolled, state should be Idle")
	}
	if !sched.AllShownThisCycle() {
		t.Error("completed alert must be marked displayed")
	}
	// Cooldown started: nothing displayable until it elapses.
	queueAlerts(sched, model.NewAlert("a1", "Delays on the 6", 1, "6"))
	if sched.HasDisplayable() {
		t.Error("displayed alert must be on cooldown")
	}
}

func TestAlertState_RotatesThroughQueue(t *testing.T) {
	st, sched, _ := newTestState()
	queueAlerts(sched,
		model.NewAlert("a1", "First", 1, "6"),
		model.NewAlert("a2", "Second", 2, "6"),
	)
	r := &stubRenderer{completeDistance: 4}

	snap := arrivalSnapshot("6", "Pelham Bay Park", 0)
	st.step(sched, snap, r, 2.0, maxAlertCycle)
	if st.currentAlert.ID != "a1" {
		t.Fatalf("expected a1 first, got %s", st.currentAlert.ID)
	}

	// Second frame completes a1 and rotates to a2 within the same
	// cycle: scroll resets, triggering pair stays.
	st.step(sched, snap, r, 2.0, maxAlertCycle)
	if !st.showAlert || st.currentAlert.ID != "a2" {
		t.Fatalf("expected rotation to a2, got show=%v alert=%s", st.showAlert, st.currentAlert.ID)
	}
	if st.scrollOffset != 0 {
		t.Errorf("scroll must reset for the next alert, got %v", st.scrollOffset)
	}

	// a2 completes; everything shown, back to Idle.
	st.step(sched, snap, r, 2.0, maxAlertCycle)
	st.step(sched, snap, r, 2.0, maxAlertCycle)
	if st.showAlert {
		t.Error("all alerts shown, state should be Idle")
	}
}

// At T+91s the cycle ends regardless of scroll progress.
func TestAlertState_CycleTimeout(t *testing.T) {
	st, sched, clock := newTestState()
	queueAlerts(sched, model.NewAlert("a1", "Endless alert", 1, "6"))
	r := &stubRenderer{completeDistance: 1 << 20}

	snap := arrivalSnapshot("6", "Pelham Bay Park", 0)
	st.step(sched, snap, r, 2.0, maxAlertCycle)
	if !st.showAlert {
		t.Fatal("cycle should have started")
	}

	clock.advance(91 * time.Second)
	st.step(sched, snap, r, 2.0, maxAlertCycle)
	if st.showAlert {
		t.Error("cycle must end unconditionally after the 90s ceiling")
	}
}

// Triggering train gone, another at zero: the cycle restarts for the
// new train with fresh bookkeeping.
func TestAlertState_DepartureRestartsCycle(t *testing.T) {
	st, sched, clock := newTestState()
	queueAlerts(sched,
		model.NewAlert("a1", "First", 1, "6"),
		model.NewAlert("a2", "Second", 2, "6"),
	)
	r := &stubRenderer{completeDistance: 4}

	st.step(sched, arrivalSnapshot("6", "Pelham Bay Park", 0), r, 2.0, maxAlertCycle)
	if st.currentAlert.ID != "a1" {
		t.Fatalf("expected a1, got %s", st.currentAlert.ID)
	}
	started := st.cycleStart

	// The 6 departs; a 4 is now arriving. Completing the current alert
	// should restart the cycle for the 4.
	clock.advance(5 * time.Second)
	newSnap := arrivalSnapshot("4", "Woodlawn", 0)
	st.step(sched, newSnap, r, 2.0, maxAlertCycle)

	if !st.showAlert {
		t.Fatal("restart expected while alerts remain displayable")
	}
	if st.triggeredRoute != "4" || st.triggeredDest != "Woodlawn" {
		t.Errorf("triggering pair should follow the new train: %q/%q", st.triggeredRoute, st.triggeredDest)
	}
	if !st.cycleStart.After(started) {
		t.Error("cycle start time should reset on restart")
	}
}

// Triggering train gone and nothing arriving: back to Idle once the
// current alert completes.
func TestAlertState_DepartureWithoutArrivalIdles(t *testing.T) {
	st, sched, _ := newTestState()
	queueAlerts(sched,
		model.NewAlert("a1", "First", 1, "6"),
		model.NewAlert("a2", "Second", 2, "6"),
	)
	r := &stubRenderer{completeDistance: 4}

	st.step(sched, arrivalSnapshot("6", "Pelham Bay Park", 0), r, 2.0, maxAlertCycle)

	gone := arrivalSnapshot("6", "Pelham Bay Park", 2)
	st.step(sched, gone, r, 2.0, maxAlertCycle)
	if st.showAlert {
		t.Error("trigger departed with no arrival, state should be Idle")
	}
}
