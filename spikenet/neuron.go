// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spikenet

import (
	"sort"

	"github.com/emer/emergent/v2/params"
	"github.com/emer/spikestdp/spikehist"
	"github.com/emer/spikestdp/stdp"
)

// spikenet.Neuron is a postsynaptic target node.  It owns the spike
// history store and the pending-correction queue, and implements the
// stdp.Target capability interface for the synapses projecting onto it.
// It spikes at scripted times and, if Thr > 0, whenever accumulated
// synaptic drive crosses the threshold.
type Neuron struct {
	Nm      string             `desc:"name of the neuron"`
	Index   int32              `inactive:"+" desc:"index in the network's neuron list"`
	Hist    spikehist.History  `desc:"postsynaptic spike history and K-minus trace"`
	Thr     float32            `desc:"if > 0, accumulated synaptic drive crossing this fires a spike and resets the drive"`
	Forced  []float32          `desc:"scripted spike times (ms), increasing"`
	Pending []stdp.AdjustEntry `view:"-" desc:"adjustment entries awaiting confirmation of a missing spike -- each consumed exactly once"`
	Gsyn    float32            `inactive:"+" desc:"accumulated synaptic drive from delivered events"`
	CorrWt  float32            `inactive:"+" desc:"net weight change received via delta-only correction events"`
	NCorr   int                `inactive:"+" desc:"number of correction events received"`

	// Net is the owning network, used to schedule deliveries for
	// incoming events -- set during Add.
	Net *Network `view:"-"`
}

func (nr *Neuron) Name() string { return nr.Nm }

// Defaults sets default parameters
func (nr *Neuron) Defaults() {
	nr.Hist.Defaults()
}

// Init clears all run state: history, pending entries, drive.
func (nr *Neuron) Init() {
	nr.Hist.Init()
	nr.Pending = nr.Pending[:0]
	nr.Gsyn = 0
	nr.CorrWt = 0
	nr.NCorr = 0
}

// AddForced appends scripted spike times, keeping the list sorted.
func (nr *Neuron) AddForced(ts ...float32) {
	nr.Forced = append(nr.Forced, ts...)
	sort.Slice(nr.Forced, func(i, j int) bool { return nr.Forced[i] < nr.Forced[j] })
}

//////////////////////////////////////////////////////////////////////////////
//  stdp.Target interface

func (nr *Neuron) History(t1, t2 float32) []float32 {
	return nr.Hist.Range(t1, t2)
}

func (nr *Neuron) KValue(t float32) float32 {
	return nr.Hist.KValue(t)
}

func (nr *Neuron) RegisterSTDP(tFirst, delay float32) {
	nr.Hist.Register(tFirst, delay)
}

func (nr *Neuron) AddPending(ae stdp.AdjustEntry) {
	nr.Pending = append(nr.Pending, ae)
}

// Recv delivers an outgoing synapse event.  Full spike events are
// scheduled for delivery after the connection delay; delta-only
// correction events are applied immediately to the accumulated drive --
// as a delta, never a replacement.
// A correction amends drive that was already delivered in the past, so
// it does not itself evaluate the spike threshold: a spike fired at
// correction-arrival time would carry the wrong time.  The threshold is
// evaluated only when Deliver events arrive (Network.Run).
func (nr *Neuron) Recv(ev stdp.Event) {
	if ev.HasStamp {
		nr.Gsyn += ev.Weight
		nr.CorrWt += ev.Weight
		nr.NCorr++
		return
	}
	nr.Net.schedule(&Event{
		T:      nr.Net.Time.Time + nr.Net.Time.StepsMs(ev.DelaySteps),
		Kind:   Deliver,
		Node:   nr.Index,
		Weight: ev.Weight,
		RPort:  ev.RPort,
	})
}

//////////////////////////////////////////////////////////////////////////////
//  params styling

func (nr *Neuron) TypeName() string { return "Neuron" }
func (nr *Neuron) Class() string    { return "" }
func (nr *Neuron) Label() string    { return nr.Nm }

// ApplyParams applies the given parameter style Sheet to this neuron,
// updating derived history parameters if anything was set.
// If setMsg is true a message is printed to confirm each parameter set.
// returns true if any params were set, and error if there were any errors.
func (nr *Neuron) ApplyParams(pars *params.Sheet, setMsg bool) (bool, error) {
	app, err := pars.Apply(nr, setMsg)
	if app {
		nr.Hist.Params.Update()
	}
	return app, err
}
