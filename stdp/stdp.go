// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package stdp implements a power-law spike-timing-dependent plasticity
rule for event-driven spiking simulation, with an explicit axonal delay
component of the transmission delay.

When the axonal delay exceeds the dendritic delay, a postsynaptic spike
that belongs in a forward update's causal window may not yet be knowable
at the moment the update is dispatched.  The forward update (Send) then
proceeds optimistically and registers an AdjustEntry with the target;
once the missing spike is confirmed, the retroactive correction
(AdjustWeight) rolls back the speculative depression, re-applies the
rule with the corrected trace, and emits a delta-only correction event.

The target neuron is accessed only through the narrow Target capability
interface, keeping this core decoupled from the rest of the kernel.
*/
package stdp

import (
	"fmt"

	"github.com/goki/mat32"
)

// histEps is the probe half-width for the bookkeeping history read
// around a confirmed missing spike during correction.
const histEps = 1.0e-3

// Event is the outgoing payload delivered to the target neuron.
// A forward update emits a full weighted spike event; a retroactive
// correction emits a delta-only event, distinguished by HasStamp, whose
// Weight is the net change relative to the superseded original and whose
// Stamp is the corrected causal spike time.  Receivers must apply
// correction events as deltas, not replacements.
type Event struct {
	Weight     float32 `desc:"synaptic weight for full spike events, or net weight change for correction events"`
	DelaySteps int32   `desc:"total transmission delay in simulation steps"`
	RPort      int32   `desc:"receptor port on the receiving neuron"`
	Stamp      float32 `desc:"explicit causal timestamp -- only valid when HasStamp"`
	HasStamp   bool    `desc:"true for delta-only correction events carrying an explicit Stamp"`
}

// Target is the capability interface onto the postsynaptic neuron: the
// spike-history store, the event channel, and the pending-correction
// queue.  The synapse never mutates the history, it only queries it;
// the target owns the insertion / exactly-once consumption discipline
// of the pending queue.
type Target interface {
	// History returns the times of postsynaptic spikes in the half-open
	// interval (t1, t2], in increasing time order, incrementing the
	// access reference count of every record returned.
	History(t1, t2 float32) []float32

	// KValue returns the decaying postsynaptic trace value at time t,
	// reflecting all spikes recorded strictly before t.
	KValue(t float32) float32

	// RegisterSTDP informs the target that this connection needs spike
	// history retained from tFirst onward, for a connection with the
	// given total delay.
	RegisterSTDP(tFirst, delay float32)

	// AddPending registers an adjustment entry for later retroactive
	// correction, consumed exactly once by the target.
	AddPending(ae AdjustEntry)

	// Recv delivers an outgoing event to the target.
	Recv(ev Event)
}

// AdjustEntry is the correction ticket registered with the target when a
// forward update had to depress using provisional information.  It holds
// enough state to undo the speculative depression and re-locate the
// originating synapse.  An entry is valid for exactly one consumption;
// AdjustWeight returns the updated entry so that a further missing spike
// inside the same window composes on the corrected OldWt rather than the
// stale one.
type AdjustEntry struct {
	TLastSpike float32 `desc:"presynaptic TLastSpike at dispatch time"`
	OldWt      float32 `desc:"weight before the speculative depression this entry undoes -- updated after each correction"`
	TReceived  float32 `desc:"nominal arrival time indexing the correction window: t_spike + AxonalDelay - dendritic delay"`
	Thread     int32   `desc:"routing: execution lane of the originating synapse"`
	SynType    int32   `desc:"routing: synapse type index of the originating synapse"`
	ConnIndex  int32   `desc:"routing: local connection index of the originating synapse"`
}

// WindowLow returns the lower bound of the correction window.  A spike
// confirmed in (WindowLow, TReceived] is a missing spike for this entry;
// once the target's known-spike horizon passes TReceived the entry is
// stale.  The bound is the dispatch time of the originating forward
// update (earlier spikes were already visible), clamped up to the lower
// edge of the window that update queried: when presynaptic spikes arrive
// closer together than AxonalDelay - dendritic delay, a spike below that
// edge belongs to a later update's window, not this one.
func (ae *AdjustEntry) WindowLow(pr *Params, cn *Conn) float32 {
	dd := cn.DendriticDelay(pr)
	lo := ae.TReceived - pr.AxonalDelay + dd
	if lb := ae.TLastSpike - dd + pr.AxonalDelay; lb > lo {
		lo = lb
	}
	return lo
}

// CausalityError reports a violation of the causal ordering invariant:
// a facilitation step saw a postsynaptic spike that is not strictly
// later than the effective presynaptic time.  This signals corruption of
// the event ordering (a history query outside its window, or an
// out-of-order correction), not a transient condition -- the run must be
// aborted, as continuing would silently produce wrong results.
type CausalityError struct {
	Op      string  `desc:"operation that detected the violation"`
	TPre    float32 `desc:"effective presynaptic time: TLastSpike + AxonalDelay"`
	TPost   float32 `desc:"effective postsynaptic time: spike time + dendritic delay"`
	MinusDt float32 `desc:"TPre - TPost -- must be strictly negative beyond Eps"`
}

func (ce *CausalityError) Error() string {
	return fmt.Sprintf("stdp: causality violation in %s: pre time %v not strictly before post time %v (minus_dt: %v)", ce.Op, ce.TPre, ce.TPost, ce.MinusDt)
}

// Send performs the forward update for a presynaptic spike arriving at
// simulation time tSpike: facilitation for every postsynaptic spike in
// the axonal-delay-shifted causal window, then depression against the
// postsynaptic trace, then emission of the weighted spike event.
// If the axonal delay exceeds the dendritic delay, the depression acted
// on provisional information and an AdjustEntry is registered with the
// target for later retroactive correction.
// Must be invoked exactly once per presynaptic spike, in strictly
// increasing tSpike order; the host scheduler serializes calls per
// synapse.  A returned CausalityError is fatal to the run.
func (sy *Synapse) Send(tSpike float32, cn *Conn, tgt Target, pr *Params) error {
	dd := cn.DendriticDelay(pr)

	// postsynaptic spikes in (t1, t2] -- the shifted window compensates
	// for the axonal delay moving the effective comparison time
	hist := tgt.History(sy.TLastSpike-dd+pr.AxonalDelay, tSpike-dd+pr.AxonalDelay)

	for _, tp := range hist {
		minusDt := sy.TLastSpike + pr.AxonalDelay - (tp + dd)
		if minusDt >= -pr.Eps {
			return &CausalityError{Op: "Send facilitation", TPre: sy.TLastSpike + pr.AxonalDelay, TPost: tp + dd, MinusDt: minusDt}
		}
		sy.Wt = pr.Facilitate(sy.Wt, sy.Kplus*mat32.Exp(minusDt*pr.TauPlusInv))
	}

	// weight before depression, in case an adjustment must undo it
	oldWt := sy.Wt

	kminus := tgt.KValue(tSpike + pr.AxonalDelay - dd)
	sy.Wt = pr.Depress(sy.Wt, kminus)

	tgt.Recv(Event{Weight: sy.Wt, DelaySteps: cn.DelaySteps, RPort: cn.RPort})

	if pr.AxonalDelay > dd {
		// the trace used for depression was provisional: a postsynaptic
		// spike still in transit along the axon may belong in the window
		tgt.AddPending(AdjustEntry{
			TLastSpike: sy.TLastSpike,
			OldWt:      oldWt,
			TReceived:  tSpike + pr.AxonalDelay - dd,
			Thread:     cn.Thread,
			SynType:    cn.SynType,
			ConnIndex:  cn.Index,
		})
	}

	sy.Kplus = sy.Kplus*mat32.Exp((sy.TLastSpike-tSpike)*pr.TauPlusInv) + 1
	sy.TLastSpike = tSpike
	return nil
}

// AdjustWeight performs the retroactive correction for a confirmed
// missing postsynaptic spike at time missingSpike, consuming the given
// AdjustEntry: it rolls the weight back to the entry's pre-depression
// value, re-applies facilitation with the trace projected back to the
// entry's dispatch time, then re-applies depression with the now
// complete history, and emits a delta-only correction event stamped
// with the corrected causal time.
// Kplus and TLastSpike are deliberately not rolled back: later
// presynaptic spikes may already depend on them.
// The returned entry carries the updated OldWt so that a further
// missing spike inside the same window composes correctly; the caller
// owns whether to retain it.  Corrections for a synapse must be applied
// in the order their triggering spikes become known.
func (sy *Synapse) AdjustWeight(ae AdjustEntry, missingSpike float32, cn *Conn, tgt Target, pr *Params) (AdjustEntry, error) {
	oriWt := sy.Wt
	sy.Wt = ae.OldWt // removes the speculative depression

	dd := cn.DendriticDelay(pr)
	tSpike := ae.TReceived - pr.AxonalDelay + dd

	// the spike time is already known -- read it anyway so the history
	// access counters stay correct for pruning
	tgt.History(missingSpike-histEps, missingSpike+histEps)

	minusDt := ae.TLastSpike + pr.AxonalDelay - (missingSpike + dd)
	if minusDt >= -pr.Eps {
		sy.Wt = oriWt
		return ae, &CausalityError{Op: "AdjustWeight facilitation", TPre: ae.TLastSpike + pr.AxonalDelay, TPost: missingSpike + dd, MinusDt: minusDt}
	}

	// project the trace back to its value at the entry's dispatch time,
	// removing contributions accumulated since
	kplusCorr := (sy.Kplus - 1) / mat32.Exp((ae.TLastSpike-tSpike)*pr.TauPlusInv)
	sy.Wt = pr.Facilitate(sy.Wt, kplusCorr*mat32.Exp(minusDt*pr.TauPlusInv))

	// a later missing spike in the same window must compose on this
	ae.OldWt = sy.Wt

	kminus := tgt.KValue(tSpike + pr.AxonalDelay - dd)
	sy.Wt = pr.Depress(sy.Wt, kminus)

	tgt.Recv(Event{Weight: sy.Wt - oriWt, DelaySteps: cn.DelaySteps, RPort: cn.RPort, Stamp: tSpike, HasStamp: true})
	return ae, nil
}
