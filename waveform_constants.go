// waveform_constants.go - MOS 6581/8580 combined-waveform model constants
// See params.go for the tunable model parameters these constants bound.

package main

// Waveform select bits of the SID control register (low nibble, noise excluded).
// Combined waveforms are named by the selected generators: 3=ST, 5=PT, 6=PS, 7=PST.
const (
	WAVE_TRIANGLE = 0x01
	WAVE_SAWTOOTH = 0x02
	WAVE_PULSE    = 0x04
)

// Oscillator geometry. The accumulator is 12 bits wide; only the top 8 bits
// reach the digital output register.
const (
	OSC_PHASES  = 4096
	OSC_BITS    = 12
	OUTPUT_BITS = 8

	// One reference set scores this many bits in total.
	TOTAL_BITS = OSC_PHASES * OUTPUT_BITS

	// Worst possible audible error, used as the initial scoring bound.
	MAX_AUDIBLE_ERROR = OSC_PHASES * 255
)

// SID chip models. The 6581 and 8580 differ in how the sawtooth top bit
// leaks into combined waveforms; the difference is carried by calibration
// data (topbit near 0 for 6581, near 1 for 8580).
const (
	SID_MODEL_6581 = "6581"
	SID_MODEL_8580 = "8580"
)

// PARAM_EPSILON is the floor applied to mutated parameters to keep the
// model away from zero and negative values.
const PARAM_EPSILON = 1e-4
