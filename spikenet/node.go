// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spikenet

import (
	"math/rand"
	"sort"
)

// spikenet.Generator is a presynaptic spike source: it fires at scripted
// times and drives the forward update on each of its outgoing
// connections when it does.
type Generator struct {
	Nm          string    `desc:"name of the generator"`
	Index       int32     `inactive:"+" desc:"index in the network's generator list"`
	Spikes      []float32 `desc:"scripted spike times (ms), increasing"`
	ConnIndexes []int32   `view:"-" desc:"outgoing connection indexes into the network connection list"`
}

func (gn *Generator) Name() string { return gn.Nm }

// AddSpikes appends scripted spike times, keeping the list sorted.
func (gn *Generator) AddSpikes(ts ...float32) {
	gn.Spikes = append(gn.Spikes, ts...)
	sort.Slice(gn.Spikes, func(i, j int) bool { return gn.Spikes[i] < gn.Spikes[j] })
}

// AddPoissonSpikes appends a Poisson spike train at the given rate (Hz)
// over [tStart, tEnd), quantized to the given resolution (ms), using the
// given random source for reproducibility.
func (gn *Generator) AddPoissonSpikes(rateHz, tStart, tEnd, res float32, rnd *rand.Rand) {
	if rateHz <= 0 {
		return
	}
	isi := 1000 / rateHz // mean inter-spike interval in ms
	last := float32(-1)
	t := tStart + isi*float32(rnd.ExpFloat64())
	for t < tEnd {
		qt := float32(int(t/res)) * res
		if qt > tStart && qt > last { // quantization can collide: one spike per step
			gn.AddSpikes(qt)
			last = qt
		}
		t += isi * float32(rnd.ExpFloat64())
	}
}
