// mixer.go - Analog pull-down mixing of combined SID waveforms

package main

// Mix simulates the analog coupling between the 12 oscillator bit lines and
// rewrites bitarray in place. For every bit position the weighted average of
// the *low* neighboring bits estimates how hard the position is pulled
// toward ground; the pulse selector adds a uniform, distance-independent
// pull-down on top. Only bits that start high are rewritten: a line already
// at ground cannot be pulled further down, so low bits pass through exactly.
func (p *ParameterSet) Mix(bitarray *[OSC_BITS]float32, wa *[2*OSC_BITS + 1]float32, hasPulse bool) {
	var pulldown [OSC_BITS]float32

	for sb := 0; sb < OSC_BITS; sb++ {
		var n float32
		var avg float32
		for cb := 0; cb < OSC_BITS; cb++ {
			if cb == sb {
				continue
			}
			weight := wa[sb-cb+OSC_BITS]
			avg += (1.0 - bitarray[cb]) * weight
			n += weight
		}
		if hasPulse {
			// Unnormalized subtraction: the pulse selector transistor
			// contributes before the weight normalization.
			avg -= p.PulseStrength
		}
		pulldown[sb] = avg / n
	}

	for i := 0; i < OSC_BITS; i++ {
		if bitarray[i] != 0.0 {
			bitarray[i] = 1.0 - pulldown[i]
		}
	}
}

// Digitize reads the upper 8 bit lines against the threshold and packs them
// into the value the chip's digital output register would hold. The low 4
// oscillator bits never reach the register.
func (p *ParameterSet) Digitize(bitarray *[OSC_BITS]float32) uint32 {
	var result uint32
	for cb := 0; cb < OUTPUT_BITS; cb++ {
		if bitarray[4+cb] > p.Threshold {
			result |= 1 << cb
		}
	}
	return result
}
