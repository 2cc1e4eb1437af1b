// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stdp

import (
	"fmt"
	"reflect"
	"unsafe"
)

// stdp.Synapse holds the per-connection plasticity state.
// It is created with InitWeight defaults, mutated only by Send and
// AdjustWeight, and destroyed with its connection -- there are no
// dynamic sub-allocations.  Delay and target identity are owned by the
// connection base (Conn), not duplicated here.
type Synapse struct {
	Wt         float32 `desc:"synaptic weight value -- conventionally >= 0, clamped at 0 by depression"`
	Kplus      float32 `desc:"exponentially decaying presynaptic eligibility trace -- incremented by 1 at each presynaptic spike, decayed by exp(-dt/TauPlus) between spikes"`
	TLastSpike float32 `desc:"time (ms) of the previous presynaptic spike seen by this synapse -- 0 before the first spike"`
}

// Init restores the state a synapse is created with.
func (sy *Synapse) Init() {
	sy.Wt = 1
	sy.Kplus = 0
	sy.TLastSpike = 0
}

// SizeOf is the read-only size_of diagnostic: bytes of synapse state.
func (sy *Synapse) SizeOf() int {
	return int(unsafe.Sizeof(*sy))
}

var SynapseVars = []string{"Wt", "Kplus", "TLastSpike"}

var SynapseVarsMap map[string]int

func init() {
	SynapseVarsMap = make(map[string]int, len(SynapseVars))
	for i, v := range SynapseVars {
		SynapseVarsMap[v] = i
	}
}

func (sy *Synapse) VarNames() []string {
	return SynapseVars
}

// SynapseVarByName returns the index of the variable in the Synapse, or error
func SynapseVarByName(varNm string) (int, error) {
	i, ok := SynapseVarsMap[varNm]
	if !ok {
		return 0, fmt.Errorf("Synapse VarByName: variable name: %v not valid", varNm)
	}
	return i, nil
}

// VarByIndex returns variable using index (0 = first variable in SynapseVars list)
func (sy *Synapse) VarByIndex(idx int) float32 {
	// todo: would be ideal to avoid having to use reflect here..
	v := reflect.ValueOf(*sy)
	return v.Field(idx).Interface().(float32)
}

// VarByName returns variable by name, or error
func (sy *Synapse) VarByName(varNm string) (float32, error) {
	i, err := SynapseVarByName(varNm)
	if err != nil {
		return 0, err
	}
	return sy.VarByIndex(i), nil
}

func (sy *Synapse) SetVarByIndex(idx int, val float32) {
	// todo: would be ideal to avoid having to use reflect here..
	v := reflect.ValueOf(sy)
	v.Elem().Field(idx).SetFloat(float64(val))
}

// SetVarByName sets synapse variable to given value
func (sy *Synapse) SetVarByName(varNm string, val float32) error {
	i, err := SynapseVarByName(varNm)
	if err != nil {
		return err
	}
	sy.SetVarByIndex(i, val)
	return nil
}
