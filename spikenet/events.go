// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spikenet

import (
	"container/heap"

	"github.com/goki/ki/kit"
)

// EventKinds are the kinds of events processed by the kernel loop.
type EventKinds int

//go:generate stringer -type=EventKinds

var KiT_EventKinds = kit.Enums.AddEnum(EventKindsN, false, nil)

func (ev EventKinds) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *EventKinds) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// PreSpike is a presynaptic spike leaving a generator: drives the
	// forward update on each of its outgoing connections.
	PreSpike EventKinds = iota

	// PostSpike is a postsynaptic spike on a neuron, scripted or
	// threshold-driven: archives history and resolves pending
	// adjustment entries.
	PostSpike

	// Deliver is a weighted synaptic input arriving at a neuron after
	// the connection delay.
	Deliver

	EventKindsN
)

// Event is one entry in the kernel event queue.
type Event struct {
	T      float32    `desc:"delivery time (ms)"`
	Kind   EventKinds `desc:"what to do at delivery"`
	Node   int32      `desc:"generator index for PreSpike, neuron index otherwise"`
	Weight float32    `desc:"synaptic weight carried by Deliver events"`
	RPort  int32      `desc:"receptor port carried by Deliver events"`

	seq int64 // insertion order, deterministic tie-break at equal T
}

// eventQueue is a min-heap on (T, seq): events at the same time are
// delivered in insertion order, keeping runs deterministic.
type eventQueue []*Event

func (eq eventQueue) Len() int { return len(eq) }

func (eq eventQueue) Less(i, j int) bool {
	if eq[i].T != eq[j].T {
		return eq[i].T < eq[j].T
	}
	return eq[i].seq < eq[j].seq
}

func (eq eventQueue) Swap(i, j int) { eq[i], eq[j] = eq[j], eq[i] }

func (eq *eventQueue) Push(x any) { *eq = append(*eq, x.(*Event)) }

func (eq *eventQueue) Pop() any {
	old := *eq
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*eq = old[:n-1]
	return ev
}

func (eq *eventQueue) add(ev *Event) { heap.Push(eq, ev) }

func (eq *eventQueue) next() *Event {
	if eq.Len() == 0 {
		return nil
	}
	return heap.Pop(eq).(*Event)
}

func (eq *eventQueue) peek() *Event {
	if eq.Len() == 0 {
		return nil
	}
	return (*eq)[0]
}
