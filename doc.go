// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package spikestdp is the overall repository for an event-driven
spike-timing-dependent plasticity (STDP) synapse with power-law weight
dependence and an explicit axonal delay component, implemented in the
Go language (golang).

The defining feature of this model is that the axonal portion of the
transmission delay can exceed the dendritic portion.  In that regime a
forward weight update must be dispatched before all causally relevant
postsynaptic spikes are knowable, so updates are performed
optimistically and retroactively corrected once the missing spike is
confirmed -- an optimistic / rollback consistency protocol inside a
deterministic, causally ordered event simulation.

This top-level of the repository has no functional code -- everything is
organized into the following sub-packages:

* stdp: the core plasticity rule -- shared parameter block, per-connection
synapse state, the forward update (Send) and the retroactive correction
(AdjustWeight), and the narrow capability interface onto the target
neuron.

* spikehist: the postsynaptic spike-history store -- time-indexed spike
records carrying a decaying trace value and access reference counts,
with half-open range queries and registration-based retention.

* spikenet: a minimal deterministic event-driven kernel -- millisecond
clock, spike event queue, generator and neuron nodes, and the
pending-correction bookkeeping that drives the retroactive protocol.

* examples: runnable programs, starting with examples/axdelay which
exercises the full optimistic-dispatch-then-correct cycle.
*/
package spikestdp
