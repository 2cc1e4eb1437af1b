// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spikenet

import (
	"github.com/emer/emergent/v2/etime"
	"github.com/goki/mat32"
)

// spikenet.Time contains the timing state and parameters for running a model:
// a millisecond event clock with a fixed step resolution used to express
// transmission delays as integer step counts.
type Time struct {

	// current simulation time (ms), advanced to each delivered event.
	Time float32

	// event-time resolution: ms per simulation step.  Delays on
	// connections are integer multiples of this.
	Res float32 `def:"0.1"`

	// total number of events delivered since the last Reset.
	EventTot int

	// current evaluation mode, e.g., Train, Test, etc
	Mode etime.Modes
}

// NewTime returns a new Time struct with default parameters
func NewTime() *Time {
	tm := &Time{}
	tm.Defaults()
	return tm
}

// Defaults sets default values
func (tm *Time) Defaults() {
	tm.Res = 0.1
}

// Reset resets the clock back to zero
func (tm *Time) Reset() {
	tm.Time = 0
	tm.EventTot = 0
	if tm.Res == 0 {
		tm.Defaults()
	}
}

// Steps returns the given duration in ms as a step count, minimum 1,
// as carried on outgoing events.
func (tm *Time) Steps(ms float32) int32 {
	st := int32(mat32.Round(ms / tm.Res))
	if st < 1 {
		st = 1
	}
	return st
}

// StepsMs returns the duration in ms of the given step count.
func (tm *Time) StepsMs(st int32) float32 {
	return float32(st) * tm.Res
}
