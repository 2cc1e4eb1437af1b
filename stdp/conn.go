// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stdp

import (
	"fmt"

	"github.com/emer/emergent/v2/params"
)

// stdp.Conn is the generic connection base: transmission delay and
// target / routing bookkeeping, shared by all synapse types.
// The plasticity state itself lives in Synapse.
type Conn struct {
	Delay      float32 `min:"0" desc:"total transmission delay (ms) -- axonal plus dendritic"`
	DelaySteps int32   `min:"1" desc:"total delay in simulation steps, as delivered on outgoing events"`
	Thread     int32   `inactive:"+" desc:"execution lane owning this connection -- routing id for adjustment entries"`
	SynType    int32   `inactive:"+" desc:"synapse type index, selecting the shared Params block -- routing id for adjustment entries"`
	Index      int32   `inactive:"+" desc:"local connection index -- routing id for adjustment entries"`
	RecvIndex  int32   `inactive:"+" desc:"index of the receiving neuron"`
	RPort      int32   `desc:"receptor port on the receiving neuron"`
}

// DendriticDelay returns the dendritic portion of the total delay:
// Delay - AxonalDelay.  Negative values are a configuration error
// caught by Validate.
func (cn *Conn) DendriticDelay(pr *Params) float32 {
	return cn.Delay - pr.AxonalDelay
}

// Validate returns a configuration error if the connection delays are
// inconsistent with the given shared params.  An axonal delay exceeding
// the total delay is rejected here, never clamped -- it must block
// simulation start.
func (cn *Conn) Validate(pr *Params) error {
	if cn.DelaySteps < 1 {
		return fmt.Errorf("stdp.Conn: DelaySteps must be >= 1, got: %v", cn.DelaySteps)
	}
	if dd := cn.DendriticDelay(pr); dd < 0 {
		return fmt.Errorf("stdp.Conn: AxonalDelay %v exceeds total delay %v (dendritic delay %v < 0)", pr.AxonalDelay, cn.Delay, dd)
	}
	return nil
}

// styler methods, for params.Sheet selectors

func (cn *Conn) TypeName() string { return "Conn" }
func (cn *Conn) Class() string    { return "" }
func (cn *Conn) Name() string     { return "" }
func (cn *Conn) Label() string    { return "Conn" }

// ApplyParams applies the given parameter style Sheet to this connection.
// If setMsg is true a message is printed to confirm each parameter set.
// returns true if any params were set, and error if there were any errors.
func (cn *Conn) ApplyParams(pars *params.Sheet, setMsg bool) (bool, error) {
	return pars.Apply(cn, setMsg)
}
