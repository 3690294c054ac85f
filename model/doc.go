// Package model defines the immutable data types shared between the
// fetch context and the orchestration context.
//
// Train, Alert and DisplaySnapshot are value types constructed by the
// feed client and consumed read-only downstream. Once a DisplaySnapshot
// has been published it is never mutated, which is what makes the
// cross-goroutine hand-off race-free.
package model
