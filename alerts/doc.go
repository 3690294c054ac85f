// Package alerts schedules service-alert display: priority ordering,
// per-alert cooldowns, bounded queueing and fair rotation across
// display cycles.
package alerts
