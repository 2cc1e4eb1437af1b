// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package spikehist provides the per-neuron postsynaptic spike-history
store queried by STDP synapses: an ordered sequence of past spike
records, each carrying the decaying trace value (K-minus) at that spike
and an access reference count used to prune records once every incoming
plastic connection has consumed them.

The store is owned by the target neuron.  Synapses only query sub-ranges
and trace values; registration of incoming connections establishes the
retention window and the reference-count threshold for pruning.
*/
package spikehist

import "github.com/goki/mat32"

// pruneEps guards against dropping a record exactly on the retention
// boundary of a registered connection.
const pruneEps = 1.0e-4

// spikehist.Params holds the postsynaptic trace parameters.
type Params struct {
	TauMinus float32 `def:"20" min:"0" desc:"time constant of the depression side of the STDP window (ms) -- decay of the postsynaptic K-minus trace"`

	TauMinusInv float32 `view:"-" json:"-" xml:"-" desc:"1 / tau_minus"`
}

func (pr *Params) Defaults() {
	pr.TauMinus = 20
	pr.Update()
}

// Update must be called after any changes to parameters
func (pr *Params) Update() {
	pr.TauMinusInv = 1 / pr.TauMinus
}

// Entry is one archived postsynaptic spike.
type Entry struct {
	T    float32 `desc:"spike time (ms)"`
	Kmin float32 `desc:"K-minus trace value immediately after this spike: prior trace decayed to T, plus 1"`
	Acc  int32   `desc:"number of range-query accesses by incoming plastic connections -- a record is prunable once every registered connection has seen it"`
}

// History is the spike-history store for one neuron.  All methods are
// called from the neuron's single execution lane; the store does no
// internal locking.
type History struct {
	Params    Params  `view:"inline" desc:"postsynaptic trace parameters"`
	Entries   []Entry `desc:"archived spikes in increasing time order"`
	Kmin      float32 `inactive:"+" desc:"running K-minus trace value as of TLast"`
	TLast     float32 `inactive:"+" desc:"time of the most recent archived spike"`
	NIncoming int32   `inactive:"+" desc:"number of registered incoming plastic connections"`
	MaxDelay  float32 `inactive:"+" desc:"maximum total delay over registered connections -- lower bound on the retention window behind the latest spike"`
}

func (hs *History) Defaults() {
	hs.Params.Defaults()
}

// Init clears all archived history and the running trace.
// Registrations are preserved.
func (hs *History) Init() {
	hs.Entries = hs.Entries[:0]
	hs.Kmin = 0
	hs.TLast = 0
}

// Register records an incoming plastic connection that needs history
// retained from tFirst onward, with the given total transmission delay.
// Called once per connection at establishment.
func (hs *History) Register(tFirst, delay float32) {
	hs.NIncoming++
	if delay > hs.MaxDelay {
		hs.MaxDelay = delay
	}
	_ = tFirst // retention behind the latest spike is governed by MaxDelay
}

// Spike archives a postsynaptic spike at time t, updating the running
// trace and pruning fully consumed records that have fallen behind the
// retention window.  Spikes must arrive in increasing time order.
// Records are only kept while at least one plastic connection is
// registered; the running trace is maintained regardless.
func (hs *History) Spike(t float32) {
	if hs.NIncoming > 0 {
		for len(hs.Entries) > 0 {
			e0 := &hs.Entries[0]
			if e0.Acc >= hs.NIncoming && e0.T+hs.MaxDelay+pruneEps < t {
				hs.Entries = hs.Entries[1:]
			} else {
				break
			}
		}
		hs.Entries = append(hs.Entries, Entry{T: t, Kmin: hs.decayTo(t) + 1})
	}
	hs.Kmin = hs.decayTo(t) + 1
	hs.TLast = t
}

func (hs *History) decayTo(t float32) float32 {
	return hs.Kmin * mat32.Exp((hs.TLast-t)*hs.Params.TauMinusInv)
}

// Range returns the times of archived spikes in the half-open interval
// (t1, t2], in increasing time order, incrementing the access count of
// every record returned.
func (hs *History) Range(t1, t2 float32) []float32 {
	var ts []float32
	for i := range hs.Entries {
		e := &hs.Entries[i]
		if e.T <= t1 {
			continue
		}
		if e.T > t2 {
			break
		}
		e.Acc++
		ts = append(ts, e.T)
	}
	return ts
}

// KValue returns the K-minus trace value at time t, reflecting all
// spikes archived strictly before t: the trace of the latest such
// spike, decayed to t.  Returns 0 if no spike precedes t.
func (hs *History) KValue(t float32) float32 {
	for i := len(hs.Entries) - 1; i >= 0; i-- {
		e := &hs.Entries[i]
		if e.T < t {
			return e.Kmin * mat32.Exp((e.T-t)*hs.Params.TauMinusInv)
		}
	}
	return 0
}
