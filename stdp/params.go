// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stdp

import (
	"fmt"

	"github.com/emer/emergent/v2/params"
	"github.com/goki/mat32"
)

// stdp.Params is the homogeneous parameter block shared by all synapses
// of a given type: power-law STDP with an explicit axonal delay component.
// It is owned at the synapse-type scope, read-only per synapse instance,
// and passed explicitly into Send and AdjustWeight so ownership is
// visible at call sites.
type Params struct {
	TauPlus     float32 `def:"20" min:"0" desc:"time constant of the potentiation side of the STDP window (ms) -- the depression time constant tau_minus is owned by the postsynaptic neuron"`
	Lambda      float32 `def:"0.01" desc:"learning rate"`
	Alpha       float32 `def:"1" desc:"asymmetry parameter -- scales depressing increments as alpha*lambda"`
	Mu          float32 `def:"0.4" desc:"weight dependence exponent for potentiation"`
	AxonalDelay float32 `def:"0" min:"0" desc:"axonal portion of the total transmission delay (ms) -- must not exceed the total delay of any connection using these params"`
	Eps         float32 `def:"1e-6" view:"-" desc:"numerical tolerance on the causal ordering of spike times -- violations beyond this are fatal"`

	TauPlusInv float32 `view:"-" json:"-" xml:"-" desc:"1 / tau_plus"`
}

func (pr *Params) Defaults() {
	pr.TauPlus = 20
	pr.Lambda = 0.01
	pr.Alpha = 1
	pr.Mu = 0.4
	pr.AxonalDelay = 0
	pr.Eps = 1.0e-6
	pr.Update()
}

// Update must be called after any changes to parameters
func (pr *Params) Update() {
	if pr.Eps == 0 {
		pr.Eps = 1.0e-6
	}
	pr.TauPlusInv = 1 / pr.TauPlus
}

// Facilitate returns the weight w potentiated by the power-law rule,
// where kplus is the presynaptic trace already decayed to the spike
// coincidence time.
func (pr *Params) Facilitate(w, kplus float32) float32 {
	return w + pr.Lambda*mat32.Pow(w, pr.Mu)*kplus
}

// Depress returns the weight w depressed by the postsynaptic trace value
// kminus, clamped at zero -- an exhausted weight is not an error.
func (pr *Params) Depress(w, kminus float32) float32 {
	nw := w - pr.Lambda*pr.Alpha*w*kminus
	if nw > 0 {
		return nw
	}
	return 0
}

// Validate returns a configuration error if the parameters are not
// usable for simulation.  Errors here must block simulation start.
func (pr *Params) Validate() error {
	if pr.TauPlus <= 0 {
		return fmt.Errorf("stdp.Params: TauPlus must be > 0, got: %v", pr.TauPlus)
	}
	if pr.AxonalDelay < 0 {
		return fmt.Errorf("stdp.Params: AxonalDelay must be >= 0, got: %v", pr.AxonalDelay)
	}
	return nil
}

// styler methods, for params.Sheet selectors

func (pr *Params) TypeName() string { return "Syn" }
func (pr *Params) Class() string    { return "" }
func (pr *Params) Name() string     { return "" }
func (pr *Params) Label() string    { return "Syn" }

// ApplyParams applies the given parameter style Sheet to these params,
// calling Update to recompute derived values if anything was set.
// If setMsg is true a message is printed to confirm each parameter set.
// returns true if any params were set, and error if there were any errors.
func (pr *Params) ApplyParams(pars *params.Sheet, setMsg bool) (bool, error) {
	app, err := pars.Apply(pr, setMsg)
	if app {
		pr.Update()
	}
	return app, err
}
