// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stdp

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
	"github.com/emer/spikestdp/spikehist"
	"github.com/goki/mat32"
)

// difTol is the numerical difference tolerance for comparing vs. target values
const difTol = float32(1.0e-6)

func CmprFloats(got, trg []float32, msg string, t *testing.T) {
	t.Helper()
	for i := range got {
		dif := math32.Abs(got[i] - trg[i])
		if dif > difTol { // allow for small numerical diffs
			t.Errorf("%v err: got: %v, trg: %v, dif: %v\n", msg, got[i], trg[i], dif)
		}
	}
}

// testTarget wires a real history store to recording event / pending
// sinks, standing in for the kernel's neuron.
type testTarget struct {
	hist    spikehist.History
	events  []Event
	pending []AdjustEntry
}

func newTestTarget(tauMinus, delay float32) *testTarget {
	tt := &testTarget{}
	tt.hist.Defaults()
	tt.hist.Params.TauMinus = tauMinus
	tt.hist.Params.Update()
	tt.hist.Register(-delay, delay)
	return tt
}

func (tt *testTarget) History(t1, t2 float32) []float32 { return tt.hist.Range(t1, t2) }
func (tt *testTarget) KValue(t float32) float32         { return tt.hist.KValue(t) }
func (tt *testTarget) RegisterSTDP(tFirst, delay float32) {
	tt.hist.Register(tFirst, delay)
}
func (tt *testTarget) AddPending(ae AdjustEntry) { tt.pending = append(tt.pending, ae) }
func (tt *testTarget) Recv(ev Event)             { tt.events = append(tt.events, ev) }

func testParams(axonalDelay float32) *Params {
	pr := &Params{}
	pr.Defaults()
	pr.Alpha = 1.05
	pr.AxonalDelay = axonalDelay
	pr.Update()
	return pr
}

// TestForwardZeroAxonal is the reference pair-based scenario: pre spikes
// at 10 and 20 ms, one post spike at 15 ms, total delay 1 ms, no axonal
// delay.  Exactly one facilitation (at the 20 ms update), depression at
// both, no adjustment entries.
func TestForwardZeroAxonal(t *testing.T) {
	pr := testParams(0)
	cn := &Conn{Delay: 1, DelaySteps: 10}
	if err := cn.Validate(pr); err != nil {
		t.Fatal(err)
	}
	tt := newTestTarget(20, cn.Delay)
	sy := &Synapse{}
	sy.Init()

	if err := sy.Send(10, cn, tt, pr); err != nil {
		t.Fatal(err)
	}
	// window (-1, 9] is empty and no post trace exists yet
	CmprFloats([]float32{sy.Wt, sy.Kplus, sy.TLastSpike}, []float32{1, 1, 10}, "first forward update", t)

	tt.hist.Spike(15)

	if err := sy.Send(20, cn, tt, pr); err != nil {
		t.Fatal(err)
	}
	// facilitation: window (9, 19] holds the 15 ms post spike,
	// minus_dt = 10 - (15+1) = -6
	w1 := float32(1) + pr.Lambda*mat32.Pow(1, pr.Mu)*1*mat32.Exp(-6.0/20)
	// depression: post trace sampled at 19, one spike 4 ms back
	km := mat32.Exp(-4.0 / 20)
	w2 := w1 - pr.Lambda*pr.Alpha*w1*km
	CmprFloats([]float32{sy.Wt}, []float32{w2}, "second forward update", t)

	if len(tt.pending) != 0 {
		t.Errorf("zero axonal delay must never enqueue adjustment entries, got %d", len(tt.pending))
	}
	if len(tt.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(tt.events))
	}
	for i, ev := range tt.events {
		if ev.HasStamp {
			t.Errorf("event %d: forward updates must emit full events, not corrections", i)
		}
		if ev.DelaySteps != cn.DelaySteps {
			t.Errorf("event %d: delay steps %d != %d", i, ev.DelaySteps, cn.DelaySteps)
		}
	}
	CmprFloats([]float32{tt.events[0].Weight, tt.events[1].Weight}, []float32{1, w2}, "event weights", t)
}

// TestPureDepression: once the post spike falls behind the facilitation
// window, each further forward update is pure depression and the weight
// decreases monotonically toward 0, never below.
func TestPureDepression(t *testing.T) {
	pr := testParams(0)
	cn := &Conn{Delay: 1, DelaySteps: 10}
	tt := newTestTarget(20, cn.Delay)
	sy := &Synapse{}
	sy.Init()

	tt.hist.Spike(5)

	prev := sy.Wt
	for _, ts := range []float32{10, 20, 30, 40, 50} {
		if err := sy.Send(ts, cn, tt, pr); err != nil {
			t.Fatal(err)
		}
		if sy.Wt < 0 {
			t.Errorf("weight clamp violated: %v at t=%v", sy.Wt, ts)
		}
		if ts > 10 && sy.Wt >= prev {
			t.Errorf("expected monotone depression: %v -> %v at t=%v", prev, sy.Wt, ts)
		}
		prev = sy.Wt
	}
	if len(tt.pending) != 0 {
		t.Errorf("zero axonal delay must never enqueue adjustment entries, got %d", len(tt.pending))
	}
}

// TestWeightClamp: depression driving the weight below zero clamps at
// zero, and the power-law facilitation keeps an exhausted weight at zero.
func TestWeightClamp(t *testing.T) {
	pr := testParams(0)
	pr.Lambda = 1
	pr.Alpha = 50
	pr.Update()
	cn := &Conn{Delay: 1, DelaySteps: 10}
	tt := newTestTarget(20, cn.Delay)
	sy := &Synapse{}
	sy.Init()

	tt.hist.Spike(5)
	if err := sy.Send(10, cn, tt, pr); err != nil {
		t.Fatal(err)
	}
	if sy.Wt != 0 {
		t.Errorf("expected exhausted weight clamped to 0, got %v", sy.Wt)
	}
	tt.hist.Spike(15)
	if err := sy.Send(20, cn, tt, pr); err != nil {
		t.Fatal(err)
	}
	if sy.Wt != 0 {
		t.Errorf("power-law facilitation must leave an exhausted weight at 0, got %v", sy.Wt)
	}
}

// TestAdjustIdempotence: with axonal delay exceeding dendritic delay, an
// optimistic forward update followed by the retroactive correction for
// the late-confirmed post spike yields exactly the weight a
// full-information single pass would have produced.
func TestAdjustIdempotence(t *testing.T) {
	pr := testParams(1.5)
	cn := &Conn{Delay: 2, DelaySteps: 20}
	if err := cn.Validate(pr); err != nil {
		t.Fatal(err)
	}

	// optimistic timeline: the 20.6 ms post spike is confirmed only
	// after the t=20 forward update dispatched
	ta := newTestTarget(20, cn.Delay)
	sa := &Synapse{}
	sa.Init()
	if err := sa.Send(10, cn, ta, pr); err != nil {
		t.Fatal(err)
	}
	if err := sa.Send(20, cn, ta, pr); err != nil {
		t.Fatal(err)
	}
	if len(ta.pending) != 2 {
		t.Fatalf("axonal > dendritic must enqueue an adjustment entry per forward update, got %d", len(ta.pending))
	}
	ae := ta.pending[1] // the t=20 entry: window (20, 21]
	CmprFloats([]float32{ae.TLastSpike, ae.TReceived}, []float32{10, 21}, "adjust entry fields", t)

	ta.hist.Spike(20.6)
	wtBefore := sa.Wt
	upd, err := sa.AdjustWeight(ae, 20.6, cn, ta, pr)
	if err != nil {
		t.Fatal(err)
	}
	if upd.OldWt == ae.OldWt {
		t.Errorf("correction must persist the corrected weight into the returned entry")
	}

	// full-information timeline: same spikes, but the post spike is
	// already archived when the t=20 update runs
	tb := newTestTarget(20, cn.Delay)
	sb := &Synapse{}
	sb.Init()
	if err := sb.Send(10, cn, tb, pr); err != nil {
		t.Fatal(err)
	}
	tb.hist.Spike(20.6)
	if err := sb.Send(20, cn, tb, pr); err != nil {
		t.Fatal(err)
	}

	CmprFloats([]float32{sa.Wt}, []float32{sb.Wt}, "corrected vs full-information weight", t)

	// the correction event is delta-only, stamped with the causal time
	last := ta.events[len(ta.events)-1]
	if !last.HasStamp {
		t.Fatalf("correction must emit a stamped delta event")
	}
	CmprFloats([]float32{last.Stamp, last.Weight}, []float32{20, sa.Wt - wtBefore}, "correction event", t)
}

// TestAdjustComposition: two post spikes confirmed late inside the same
// correction window must compose -- the second correction builds on the
// OldWt persisted by the first, and the result matches the
// full-information single pass.
func TestAdjustComposition(t *testing.T) {
	pr := testParams(1.5)
	cn := &Conn{Delay: 2, DelaySteps: 20}

	ta := newTestTarget(20, cn.Delay)
	sa := &Synapse{}
	sa.Init()
	if err := sa.Send(10, cn, ta, pr); err != nil {
		t.Fatal(err)
	}
	if err := sa.Send(12, cn, ta, pr); err != nil {
		t.Fatal(err)
	}
	ae := ta.pending[1] // the t=12 entry: window (12, 13]

	// corrections applied in the order the spikes become known
	ta.hist.Spike(12.3)
	upd, err := sa.AdjustWeight(ae, 12.3, cn, ta, pr)
	if err != nil {
		t.Fatal(err)
	}
	ta.hist.Spike(12.7)
	if _, err = sa.AdjustWeight(upd, 12.7, cn, ta, pr); err != nil {
		t.Fatal(err)
	}

	tb := newTestTarget(20, cn.Delay)
	sb := &Synapse{}
	sb.Init()
	if err := sb.Send(10, cn, tb, pr); err != nil {
		t.Fatal(err)
	}
	tb.hist.Spike(12.3)
	tb.hist.Spike(12.7)
	if err := sb.Send(12, cn, tb, pr); err != nil {
		t.Fatal(err)
	}

	CmprFloats([]float32{sa.Wt}, []float32{sb.Wt}, "composed corrections vs full information", t)
}

// TestAdjustNoTraceRollback documents that Kplus and TLastSpike are not
// rolled back by a correction: a correction arriving after a later
// forward update projects the trace back instead.
func TestAdjustNoTraceRollback(t *testing.T) {
	pr := testParams(1.5)
	cn := &Conn{Delay: 2, DelaySteps: 20}
	tt := newTestTarget(20, cn.Delay)
	sy := &Synapse{}
	sy.Init()

	if err := sy.Send(10, cn, tt, pr); err != nil {
		t.Fatal(err)
	}
	ae := tt.pending[0]
	kplus, tLast := sy.Kplus, sy.TLastSpike

	tt.hist.Spike(10.4) // inside the (10, 11] window of the t=10 entry
	if _, err := sy.AdjustWeight(ae, 10.4, cn, tt, pr); err != nil {
		t.Fatal(err)
	}
	CmprFloats([]float32{sy.Kplus, sy.TLastSpike}, []float32{kplus, tLast}, "trace state untouched by correction", t)
}

// badHistTarget returns a spike outside the requested window,
// simulating a corrupted history provider.
type badHistTarget struct {
	testTarget
}

func (bt *badHistTarget) History(t1, t2 float32) []float32 {
	return []float32{t1 - 1}
}

func TestCausalityViolation(t *testing.T) {
	pr := testParams(0)
	cn := &Conn{Delay: 1, DelaySteps: 10}
	sy := &Synapse{}
	sy.Init()

	bt := &badHistTarget{}
	bt.hist.Defaults()
	err := sy.Send(10, cn, bt, pr)
	var ce *CausalityError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CausalityError from out-of-window history, got: %v", err)
	}

	// an out-of-order correction is the same class of fatal error
	pr = testParams(1.5)
	cn = &Conn{Delay: 2, DelaySteps: 20}
	tt := newTestTarget(20, cn.Delay)
	sy.Init()
	sy.Kplus = 1
	ae := AdjustEntry{TLastSpike: 10, OldWt: 1, TReceived: 11.5}
	wt := sy.Wt
	_, err = sy.AdjustWeight(ae, 10, cn, tt, pr)
	if !errors.As(err, &ce) {
		t.Fatalf("expected CausalityError from non-causal missing spike, got: %v", err)
	}
	if sy.Wt != wt {
		t.Errorf("failed correction must leave the weight untouched: %v != %v", sy.Wt, wt)
	}
}

// TestConnValidate: an axonal delay exceeding the total connection delay
// is a configuration error, rejected rather than clamped.
func TestConnValidate(t *testing.T) {
	pr := testParams(3)
	cn := &Conn{Delay: 1, DelaySteps: 10}
	if err := cn.Validate(pr); err == nil {
		t.Errorf("axonal delay 3 > total delay 1 must fail validation")
	}
	pr = testParams(1)
	cn = &Conn{Delay: 1, DelaySteps: 10}
	if err := cn.Validate(pr); err != nil {
		t.Errorf("axonal delay == total delay (dendritic 0) is valid, got: %v", err)
	}
	cn = &Conn{Delay: 1}
	if err := cn.Validate(pr); err == nil {
		t.Errorf("DelaySteps 0 must fail validation")
	}
}
