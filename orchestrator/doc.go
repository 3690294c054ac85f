// Package orchestrator runs the frame-paced display loop: it drains the
// snapshot pipe, advances the cycle and flash timers, drives the
// alert-display state machine, and calls the Renderer once per frame.
package orchestrator
