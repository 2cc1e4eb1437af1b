// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package spikenet is a minimal deterministic event-driven kernel for
exercising the axonal-delay STDP synapse: a millisecond event clock, a
spike event queue, scripted generator and neuron nodes, and the
pending-correction bookkeeping that drives the retroactive weight
adjustment protocol.

Everything runs on a single execution lane: forward updates for a given
synapse occur in strictly increasing spike-time order, and corrections
are applied in the order their triggering spikes become known, so the
per-synapse serialization the plasticity rule requires holds by
construction.
*/
package spikenet

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/c2h5oh/datasize"
	"github.com/emer/emergent/v2/params"
	"github.com/emer/etable/v2/minmax"
	"github.com/emer/spikestdp/spikehist"
	"github.com/emer/spikestdp/stdp"
)

// staleEps guards the pending-entry horizon comparison against float
// roundoff at the window boundary.
const staleEps = 1.0e-4

// SynConn is one plastic connection: synapse state plus connection base,
// from a generator onto a neuron.
type SynConn struct {
	Syn  stdp.Synapse `desc:"per-connection plasticity state"`
	Cn   stdp.Conn    `desc:"delay and routing bookkeeping"`
	Send *Generator   `view:"-" desc:"presynaptic source"`
	Recv *Neuron      `view:"-" desc:"postsynaptic target"`
}

// spikenet.Network holds the nodes, connections, shared synapse
// parameter blocks, and the event queue, and runs the simulation.
type Network struct {
	Nm        string           `desc:"overall name of network -- helps discriminate if there are multiple"`
	Time      Time             `desc:"event clock and step resolution"`
	Gens      []*Generator     `desc:"presynaptic spike sources"`
	Neurons   []*Neuron        `desc:"postsynaptic target nodes"`
	SynParams []*stdp.Params   `desc:"shared parameter blocks, one per synapse type, indexed by Conn.SynType"`
	Conns     []*SynConn       `desc:"all plastic connections"`
	WtRange   minmax.F32       `inactive:"+" desc:"range of weights seen across all forward updates in the last run"`
	NAdjusted int              `inactive:"+" desc:"adjustment entries consumed by a correction in the last run"`
	NDropped  int              `inactive:"+" desc:"adjustment entries dropped stale (window passed with no missing spike) in the last run"`

	queue eventQueue
	seq   int64
}

// NewNetwork returns a new network with the given name and default
// timing parameters, and one default synapse type (index 0).
func NewNetwork(name string) *Network {
	nt := &Network{Nm: name}
	nt.Time.Defaults()
	pr := &stdp.Params{}
	pr.Defaults()
	nt.SynParams = []*stdp.Params{pr}
	return nt
}

// AddSynType adds a shared synapse parameter block, returning its type
// index for use in Connect.
func (nt *Network) AddSynType(pr *stdp.Params) int32 {
	nt.SynParams = append(nt.SynParams, pr)
	return int32(len(nt.SynParams) - 1)
}

// AddGenerator adds a presynaptic spike source.
func (nt *Network) AddGenerator(name string) *Generator {
	gn := &Generator{Nm: name, Index: int32(len(nt.Gens))}
	nt.Gens = append(nt.Gens, gn)
	return gn
}

// AddNeuron adds a postsynaptic target node with default parameters.
func (nt *Network) AddNeuron(name string) *Neuron {
	nr := &Neuron{Nm: name, Index: int32(len(nt.Neurons)), Net: nt}
	nr.Defaults()
	nt.Neurons = append(nt.Neurons, nr)
	return nr
}

// Connect creates a plastic connection from the generator onto the
// neuron with the given total delay (ms), receptor port, and synapse
// type.  Configuration errors (axonal delay exceeding the total delay,
// invalid params) are returned here and must block the run.
// Registers the connection with the target so spike history is retained.
func (nt *Network) Connect(gn *Generator, nr *Neuron, delay float32, rport, synType int32) (*SynConn, error) {
	if synType < 0 || int(synType) >= len(nt.SynParams) {
		return nil, fmt.Errorf("spikenet.Network %s: synapse type %d not defined", nt.Nm, synType)
	}
	pr := nt.SynParams[synType]
	if err := pr.Validate(); err != nil {
		return nil, err
	}
	sc := &SynConn{Send: gn, Recv: nr}
	sc.Syn.Init()
	sc.Cn = stdp.Conn{
		Delay:      delay,
		DelaySteps: nt.Time.Steps(delay),
		SynType:    synType,
		Index:      int32(len(nt.Conns)),
		RecvIndex:  nr.Index,
		RPort:      rport,
	}
	if err := sc.Cn.Validate(pr); err != nil {
		return nil, err
	}
	nr.RegisterSTDP(sc.Syn.TLastSpike-delay, delay)
	gn.ConnIndexes = append(gn.ConnIndexes, sc.Cn.Index)
	nt.Conns = append(nt.Conns, sc)
	return sc, nil
}

// Init resets all run state (clock, queue, synapses, neurons, stats)
// and seeds the event queue from the scripted generator and neuron
// spike trains.  Connection and registration structure is preserved.
func (nt *Network) Init() {
	nt.Time.Reset()
	nt.queue = nt.queue[:0]
	nt.seq = 0
	nt.WtRange.SetInfinity()
	nt.NAdjusted = 0
	nt.NDropped = 0
	for _, sc := range nt.Conns {
		sc.Syn.Init()
	}
	for _, nr := range nt.Neurons {
		nr.Init()
	}
	for _, gn := range nt.Gens {
		for _, t := range gn.Spikes {
			nt.schedule(&Event{T: t, Kind: PreSpike, Node: gn.Index})
		}
	}
	for _, nr := range nt.Neurons {
		for _, t := range nr.Forced {
			nt.schedule(&Event{T: t, Kind: PostSpike, Node: nr.Index})
		}
	}
}

func (nt *Network) schedule(ev *Event) {
	ev.seq = nt.seq
	nt.seq++
	nt.queue.add(ev)
}

// Run processes events in time order up to and including time to (ms).
// Any error from a forward update or correction aborts the run
// immediately and is returned: causality violations signal corruption
// of the event ordering and must not be tolerated.
func (nt *Network) Run(to float32) error {
	for {
		top := nt.queue.peek()
		if top == nil || top.T > to {
			break
		}
		ev := nt.queue.next()
		nt.Time.Time = ev.T
		nt.Time.EventTot++
		switch ev.Kind {
		case PreSpike:
			gn := nt.Gens[ev.Node]
			for _, ci := range gn.ConnIndexes {
				sc := nt.Conns[ci]
				pr := nt.SynParams[sc.Cn.SynType]
				if err := sc.Syn.Send(ev.T, &sc.Cn, sc.Recv, pr); err != nil {
					return err
				}
				nt.WtRange.FitValInRange(sc.Syn.Wt)
			}
		case PostSpike:
			if err := nt.neuronSpike(nt.Neurons[ev.Node], ev.T); err != nil {
				return err
			}
		case Deliver:
			nr := nt.Neurons[ev.Node]
			nr.Gsyn += ev.Weight
			if nr.Thr > 0 && nr.Gsyn >= nr.Thr {
				nr.Gsyn = 0
				if err := nt.neuronSpike(nr, ev.T); err != nil {
					return err
				}
			}
		}
	}
	nt.Time.Time = to
	return nil
}

// neuronSpike archives a postsynaptic spike and resolves the neuron's
// pending adjustment entries against it.  Each entry is consumed at most
// once per confirmed spike: a spike inside the entry's correction window
// triggers the retroactive correction and the entry is replaced by its
// updated ticket (a further missing spike in the same window composes on
// the corrected weight); an entry whose window the spike has passed is
// dropped without correction.
func (nt *Network) neuronSpike(nr *Neuron, t float32) error {
	nr.Hist.Spike(t)
	if len(nr.Pending) == 0 {
		return nil
	}
	keep := nr.Pending[:0]
	for _, ae := range nr.Pending {
		pr := nt.SynParams[ae.SynType]
		sc := nt.Conns[ae.ConnIndex]
		switch {
		case t > ae.TReceived+staleEps:
			// horizon passed: no missing spike can fall in this window now
			nt.NDropped++
		case t > ae.WindowLow(pr, &sc.Cn):
			upd, err := sc.Syn.AdjustWeight(ae, t, &sc.Cn, nr, pr)
			if err != nil {
				return err
			}
			nt.NAdjusted++
			nt.WtRange.FitValInRange(sc.Syn.Wt)
			keep = append(keep, upd)
		default:
			keep = append(keep, ae)
		}
	}
	nr.Pending = keep
	return nil
}

// ApplyParams applies the given parameter style Sheet to all shared
// synapse parameter blocks, connections, and neurons, revalidating
// delays afterwards.  If setMsg is true a message is printed to confirm
// each parameter that is set.
// returns true if any params were set, and error if there were any errors.
func (nt *Network) ApplyParams(pars *params.Sheet, setMsg bool) (bool, error) {
	applied := false
	var rerr error
	for _, pr := range nt.SynParams {
		app, err := pr.ApplyParams(pars, setMsg)
		if app {
			applied = true
		}
		if err != nil {
			rerr = err
		}
	}
	for _, sc := range nt.Conns {
		app, err := sc.Cn.ApplyParams(pars, setMsg)
		if app {
			applied = true
			sc.Cn.DelaySteps = nt.Time.Steps(sc.Cn.Delay)
		}
		if err != nil {
			rerr = err
		}
		if err = sc.Cn.Validate(nt.SynParams[sc.Cn.SynType]); err != nil {
			rerr = err
		}
	}
	for _, nr := range nt.Neurons {
		app, err := nr.ApplyParams(pars, setMsg)
		if app {
			applied = true
		}
		if err != nil {
			rerr = err
		}
	}
	return applied, rerr
}

// SizeReport returns a string report of the memory used by the network
// state: connection state, and per-neuron retained spike history.
func (nt *Network) SizeReport() string {
	var b strings.Builder
	synMem := len(nt.Conns) * int(unsafe.Sizeof(SynConn{}))
	histMem := 0
	for _, nr := range nt.Neurons {
		histMem += len(nr.Hist.Entries) * int(unsafe.Sizeof(spikehist.Entry{}))
	}
	fmt.Fprintf(&b, "%14s:\t Conns: %d\t SynMem: %v\t Neurons: %d\t HistMem: %v\n",
		nt.Nm, len(nt.Conns), (datasize.ByteSize)(synMem).HumanReadable(),
		len(nt.Neurons), (datasize.ByteSize)(histMem).HumanReadable())
	return b.String()
}
