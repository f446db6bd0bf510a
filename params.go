// params.go - Tunable parameters of the combined-waveform pull-down model

/*
Real 6581/8580 chips do not OR the selected waveforms digitally. The bit
lines of the waveform generators couple through an analog pull-down network,
and the strength of that coupling varies from chip to chip. The model here
reduces one chip's behavior to five floats:

  - threshold:     digitization cutoff for reading a bit line as high
  - pulsestrength: uniform extra pull-down added while the pulse selector is on
  - topbit:        scaling of the oscillator MSB when sawtooth is selected
  - distance1/2:   decay inputs governing coupling toward lower/higher bits

plus a distance function giving the decay shape of the coupling weight as a
function of bit offset. Parameter values are float32 so that published
calibration constants round-trip exactly.
*/

package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DistanceFunc converts a bit-index offset i >= 1 into a coupling weight.
// All shapes are strictly decreasing in i for distance > 0.
type DistanceFunc func(distance float32, i int) float32

func ExponentialDistance(distance float32, i int) float32 {
	return float32(math.Pow(float64(distance), float64(-i)))
}

func LinearDistance(distance float32, i int) float32 {
	return 1.0 / (1.0 + float32(i)*distance)
}

func QuadraticDistance(distance float32, i int) float32 {
	return 1.0 / (1.0 + float32(i*i)*distance)
}

// DistanceFuncByName resolves a decay shape name from calibration data.
func DistanceFuncByName(name string) (DistanceFunc, error) {
	switch name {
	case "exponential":
		return ExponentialDistance, nil
	case "linear":
		return LinearDistance, nil
	case "quadratic":
		return QuadraticDistance, nil
	}
	return nil, fmt.Errorf("unknown distance function %q", name)
}

// ParameterSet is one candidate calibration of the pull-down model.
// A set is owned by a single search lineage and mutated in place.
type ParameterSet struct {
	Threshold     float32
	PulseStrength float32
	TopBit        float32
	Distance1     float32
	Distance2     float32
	DistFunc      DistanceFunc
}

// NewParameterSet returns the neutral starting calibration used by the
// original tool before any chip data is applied.
func NewParameterSet() *ParameterSet {
	return &ParameterSet{
		Threshold:     0.9,
		PulseStrength: 1.0,
		TopBit:        1.0,
		Distance1:     1.0,
		Distance2:     1.0,
		DistFunc:      ExponentialDistance,
	}
}

// Clone returns an independent copy sharing the same distance function.
func (p *ParameterSet) Clone() *ParameterSet {
	c := *p
	return &c
}

// WeightTable derives the 25-entry coupling weight vector indexed by signed
// bit offset in [-12,+12]. Entry 12 is the self weight; the mixer never
// consults it. Offsets toward lower bits use Distance1, toward higher bits
// Distance2.
func (p *ParameterSet) WeightTable() [2*OSC_BITS + 1]float32 {
	var wa [2*OSC_BITS + 1]float32
	wa[OSC_BITS] = 1.0
	for i := OSC_BITS; i > 0; i-- {
		wa[OSC_BITS-i] = p.DistFunc(p.Distance1, i)
		wa[OSC_BITS+i] = p.DistFunc(p.Distance2, i)
	}
	return wa
}

// String renders the parameter dump in the calibration-archive format, one
// "bestparams.<name> = <value>f;" line per field with full float32
// round-trip precision.
func (p *ParameterSet) String() string {
	var sb strings.Builder
	fields := []struct {
		name  string
		value float32
	}{
		{"threshold", p.Threshold},
		{"pulsestrength", p.PulseStrength},
		{"topbit", p.TopBit},
		{"distance1", p.Distance1},
		{"distance2", p.Distance2},
	}
	for _, f := range fields {
		fmt.Fprintf(&sb, "bestparams.%s = %sf;\n", f.name,
			strconv.FormatFloat(float64(f.value), 'g', -1, 32))
	}
	return sb.String()
}

// paramDim describes one tunable dimension of the search space: its name,
// the waveform bits that must be selected for the dimension to matter, and
// accessors. The optimizer iterates this table directly.
type paramDim struct {
	name string
	mask int // required waveform bits, 0 = always applicable
	get  func(*ParameterSet) float32
	set  func(*ParameterSet, float32)
}

var paramDims = [5]paramDim{
	{
		name: "threshold",
		get:  func(p *ParameterSet) float32 { return p.Threshold },
		set:  func(p *ParameterSet, v float32) { p.Threshold = v },
	},
	{
		// Pulse pull-down only acts while the pulse selector is on.
		name: "pulsestrength",
		mask: WAVE_PULSE,
		get:  func(p *ParameterSet) float32 { return p.PulseStrength },
		set:  func(p *ParameterSet, v float32) { p.PulseStrength = v },
	},
	{
		// The MSB scaling only matters when sawtooth feeds the mix.
		name: "topbit",
		mask: WAVE_SAWTOOTH,
		get:  func(p *ParameterSet) float32 { return p.TopBit },
		set:  func(p *ParameterSet, v float32) { p.TopBit = v },
	},
	{
		name: "distance1",
		get:  func(p *ParameterSet) float32 { return p.Distance1 },
		set:  func(p *ParameterSet, v float32) { p.Distance1 = v },
	},
	{
		name: "distance2",
		get:  func(p *ParameterSet) float32 { return p.Distance2 },
		set:  func(p *ParameterSet, v float32) { p.Distance2 = v },
	},
}

// appliesTo reports whether the dimension affects the given waveform.
func (d *paramDim) appliesTo(wave int) bool {
	return d.mask == 0 || wave&d.mask == d.mask
}
