// score.go - Scoring of a parameter set against captured chip output

package main

import (
	"fmt"
	"io"
	"math"
	"math/bits"
	"runtime"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"
)

// Score aggregates the disagreement between predicted and captured output
// over all 4096 oscillator phases. AudibleError weighs mismatches by XOR
// magnitude so high-bit errors dominate; WrongBits counts mispredicted bits
// and breaks ties. RMS is the root mean square of the *predicted* values,
// reported for diagnostics only.
type Score struct {
	AudibleError uint32
	WrongBits    uint32
	TotalBits    uint32
	RMS          float64
}

// Better reports whether s improves on the other score: lower audible
// error, or the same audible error with fewer wrong bits.
func (s Score) Better(than Score) bool {
	return s.AudibleError < than.AudibleError ||
		(s.AudibleError == than.AudibleError && s.WrongBits < than.WrongBits)
}

// String renders the score in the calibration-archive format.
func (s Score) String() string {
	return fmt.Sprintf("%d (%d/%d) [RMS: %.2f]", s.AudibleError, s.WrongBits, s.TotalBits, s.RMS)
}

// ScoreResult is the per-phase error between a predicted and a captured
// byte: the plain XOR, so higher bit positions contribute larger values.
func ScoreResult(a, b uint32) uint32 {
	return a ^ b
}

// OscPattern derives the 12-bit oscillator pattern fed into the mixer for
// phase j. With sawtooth selected the accumulator passes through unchanged.
// Without it the triangle XOR stage folds the ramp and shifts left one bit.
// With sawtooth and triangle both selected, the sawtooth selector pulls the
// triangle's XOR transistor down, interlocking adjacent bits: the result is
// two sawtooth ramps, not a saw/triangle blend.
func OscPattern(wave int, j uint32) uint32 {
	var osc uint32
	if wave&WAVE_SAWTOOTH != 0 {
		osc = j
	} else if j&0x800 == 0 {
		osc = j << 1
	} else {
		osc = (j ^ 0xfff) << 1
	}
	if wave&(WAVE_SAWTOOTH|WAVE_TRIANGLE) == WAVE_SAWTOOTH|WAVE_TRIANGLE {
		osc &= osc << 1
	}
	return osc
}

// Evaluator drives the mixer over every oscillator phase of one waveform
// and scores predictions against one captured reference set.
type Evaluator struct {
	Wave      int
	Reference []uint32

	// Workers bounds the parallel phase reduction; <= 0 means NumCPU.
	Workers int

	// LegacySawMask ignores the two top error bits when sawtooth is
	// selected, matching how early 6581 captures were scored.
	LegacySawMask bool
}

// errorMask returns the mask applied to each per-phase XOR error.
func (e *Evaluator) errorMask() uint32 {
	if e.LegacySawMask && e.Wave&WAVE_SAWTOOTH != 0 {
		return 0x3f
	}
	return 0xff
}

// Predict runs the forward model for a single phase and returns the
// predicted output byte.
func (e *Evaluator) Predict(p *ParameterSet, wa *[2*OSC_BITS + 1]float32, j uint32) uint32 {
	osc := OscPattern(e.Wave, j)

	var bitarray [OSC_BITS]float32
	for i := 0; i < OSC_BITS; i++ {
		if osc&(1<<i) != 0 {
			bitarray[i] = 1.0
		}
	}
	if e.Wave&WAVE_SAWTOOTH != 0 {
		// Chip dependent MSB leakage: near 0 on most 6581s, near 1 on 8580s.
		bitarray[OSC_BITS-1] *= p.TopBit
	}

	p.Mix(&bitarray, wa, e.Wave&WAVE_PULSE != 0)
	return p.Digitize(&bitarray)
}

// Score evaluates p over all 4096 phases. Once the accumulated audible
// error passes bound the workers stop early; the returned AudibleError is
// then a lower bound on the true error but never drops back below bound,
// so a truncated score can never masquerade as an improvement. Workers may
// overrun the stop flag by a bounded number of phases; accumulation is
// purely additive, so any interleaving yields a valid result.
func (e *Evaluator) Score(p *ParameterSet, bound uint32) Score {
	wa := p.WeightTable()
	mask := e.errorMask()

	var audible atomic.Uint32
	var wrong atomic.Uint32
	var sumSquares atomic.Uint64
	var done atomic.Bool

	workers := e.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	chunk := (OSC_PHASES + workers - 1) / workers

	pl := pool.New().WithMaxGoroutines(workers)
	for start := 0; start < OSC_PHASES; start += chunk {
		start := start
		end := start + chunk
		if end > OSC_PHASES {
			end = OSC_PHASES
		}
		pl.Go(func() {
			for j := start; j < end; j++ {
				if done.Load() {
					return
				}
				simval := e.Predict(p, &wa, uint32(j))
				err := ScoreResult(simval, e.Reference[j]) & mask

				sumSquares.Add(uint64(simval * simval))
				wrong.Add(uint32(bits.OnesCount32(err)))
				if audible.Add(err) > bound {
					done.Store(true)
				}
			}
		})
	}
	pl.Wait()

	return Score{
		AudibleError: audible.Load(),
		WrongBits:    wrong.Load(),
		TotalBits:    TOTAL_BITS,
		RMS:          math.Sqrt(float64(sumSquares.Load()) / OSC_PHASES),
	}
}

// DumpPhases writes the per-phase prediction table for p: phase, oscillator
// pattern, captured byte, predicted byte and their XOR, all in hex.
func (e *Evaluator) DumpPhases(p *ParameterSet, w io.Writer) {
	wa := p.WeightTable()
	for j := uint32(0); j < OSC_PHASES; j++ {
		simval := e.Predict(p, &wa, j)
		refval := e.Reference[j]
		fmt.Fprintf(w, "%03x %03x %02x %02x %02x\n",
			j, OscPattern(e.Wave, j), refval, simval, simval^refval)
	}
}

// SynthesizeReference runs the forward model once and returns the predicted
// bytes as a reference set. A search started against such a set has a known
// perfect solution, which the convergence tests rely on.
func SynthesizeReference(wave int, p *ParameterSet) []uint32 {
	e := &Evaluator{Wave: wave}
	wa := p.WeightTable()
	ref := make([]uint32, OSC_PHASES)
	for j := range ref {
		ref[j] = e.Predict(p, &wa, uint32(j))
	}
	return ref
}
