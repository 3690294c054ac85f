package alerts

import (
	"sort"
	"time"

	"github.com/mta-display/subway-sign/model"
)

const (
	// Cooldown keeps a displayed alert off the sign before it may
	// repeat.
	Cooldown = 300 * time.Second
	// MaxQueueSize caps the rotation queue; lower-priority alerts
	// beyond the cap are dropped on refresh.
	MaxQueueSize = 10
	// cleanupInterval gates how often stale cooldown entries are swept.
	cleanupInterval = 60 * time.Second
)

// Manager schedules alerts for display. It tracks per-alert cooldowns,
// keeps a priority-sorted queue with a rotation cursor, and remembers
// which alerts were shown in the current display cycle.
//
// A Manager is owned by the render loop and is not safe for concurrent
// use.
type Manager struct {
	cooldowns      map[string]time.Time
	queue          []model.Alert
	queueIndex     int
	shownThisCycle map[string]struct{}
	lastCleanup    time.Time

	now func() time.Time
}

// NewManager creates an empty alert scheduler.
func NewManager() *Manager {
	return &Manager{
		cooldowns:      map[string]time.Time{},
		shownThisCycle: map[string]struct{}{},
		lastCleanup:    time.Now(),
		now:            time.Now,
	}
}

// FilterAndSort rebuilds the queue from a fresh batch: alerts on
// cooldown are excluded, the rest sorted by priority (ascending, lower
// is more severe) and capped at MaxQueueSize. The rotation cursor is
// preserved unless it falls off the new queue. Returns the new queue.
func (m *Manager) FilterAndSort(batch []model.Alert) []model.Alert {
	m.cleanupCooldowns()

	queue := make([]model.Alert, 0, len(batch))
	for _, a := range batch {
		if m.onCooldown(a) {
			continue
		}
		queue = append(queue, a)
	}
	sort.SliceStable(queue, func(i, j int) bool { return queue[i].Priority < queue[j].Priority })
	if len(queue) > MaxQueueSize {
		queue = queue[:MaxQueueSize]
	}

	m.queue = queue
	if m.queueIndex >= len(m.queue) {
		m.queueIndex = 0
	}
	return queue
}

// NextAlert returns the next displayable alert: scanning from the
// cursor, wrapping at most once, skipping alerts already shown this
// cycle or now on cooldown. Returns ok=false when nothing qualifies.
func (m *Manager) NextAlert() (model.Alert, bool) {
	if len(m.queue) == 0 {
		return model.Alert{}, false
	}
	idx := m.queueIndex
	for checked := 0; checked < len(m.queue); checked++ {
		a := m.queue[idx]
		_, shown := m.shownThisCycle[a.Key()]
		if !shown && !m.onCooldown(a) {
			return a, true
		}
		idx = (idx + 1) % len(m.queue)
	}
	return model.Alert{}, false
}

// MarkDisplayed records that an alert finished displaying: its cooldown
// starts, it joins the shown set, and the cursor advances.
func (m *Manager) MarkDisplayed(a model.Alert) {
	key := a.Key()
	m.cooldowns[key] = m.now()
	m.shownThisCycle[key] = struct{}{}
	if len(m.queue) > 0 {
		m.queueIndex = (m.queueIndex + 1) % len(m.queue)
	}
}

// ResetCycle clears the shown set and rewinds the cursor, starting a
// fresh rotation over the queue.
func (m *Manager) ResetCycle() {
	m.shownThisCycle = map[string]struct{}{}
	m.queueIndex = 0
}

// AllShownThisCycle reports whether every queued alert has been shown
// in the current cycle. An empty queue counts as fully shown.
func (m *Manager) AllShownThisCycle() bool {
	for _, a := range m.queue {
		if _, ok := m.shownThisCycle[a.Key()]; !ok {
			return false
		}
	}
	return true
}

// HasDisplayable reports whether any queued alert is off cooldown.
func (m *Manager) HasDisplayable() bool {
	for _, a := range m.queue {
		if !m.onCooldown(a) {
			return true
		}
	}
	return false
}

// QueueLen returns the current queue length.
func (m *Manager) QueueLen() int {
	return len(m.queue)
}

// PeriodicCleanup sweeps expired cooldown entries if the cleanup
// interval has elapsed, so the cooldown map cannot grow unbounded on a
// long-lived sign.
func (m *Manager) PeriodicCleanup() {
	if m.now().Sub(m.lastCleanup) > cleanupInterval {
		m.cleanupCooldowns()
	}
}

func (m *Manager) onCooldown(a model.Alert) bool {
	last, ok := m.cooldowns[a.Key()]
	if !ok {
		return false
	}
	return m.now().Sub(last) < Cooldown
}

// cleanupCooldowns drops entries older than twice the cooldown; they
// can no longer affect scheduling.
func (m *Manager) cleanupCooldowns() {
	now := m.now()
	for key, last := range m.cooldowns {
		if now.Sub(last) >= 2*Cooldown {
			delete(m.cooldowns, key)
		}
	}
	m.lastCleanup = now
}
