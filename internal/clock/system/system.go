// Package system provides the wall clock used by the reconciliation engine.
package system

import "time"

// Clock implements crawler.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC. Movie timestamps fall back to this
// value when the source payload carries no usable modified time, so all
// stored times share one location.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
