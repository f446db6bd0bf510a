// profiles.go - Calibration profiles for captured chips
// The embedded table carries the best parameters found so far for each
// (chip, waveform) pair; a search resumes from there rather than from the
// neutral defaults.

package main

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
)

//go:embed profiles.json
var embeddedProfiles []byte

// WaveformProfile is the stored calibration for one (chip, waveform) pair.
type WaveformProfile struct {
	Threshold        float32 `json:"threshold"`
	PulseStrength    float32 `json:"pulsestrength"`
	TopBit           float32 `json:"topbit"`
	Distance1        float32 `json:"distance1"`
	Distance2        float32 `json:"distance2"`
	DistanceFunction string  `json:"distanceFunction"`
}

// ChipProfile groups the calibrations captured from one physical chip.
type ChipProfile struct {
	ID        string                     `json:"id"`
	Model     string                     `json:"model"`
	Waveforms map[string]WaveformProfile `json:"waveforms"`
}

// ProfileRepository resolves (chip, waveform) keys to starting parameters.
// It is pure data; chips are added by editing profiles.json, not code.
type ProfileRepository struct {
	chips map[string]ChipProfile
}

type profileFile struct {
	Chips []ChipProfile `json:"chips"`
}

// LoadProfileRepository parses a profile table from JSON.
func LoadProfileRepository(data []byte) (*ProfileRepository, error) {
	var file profileFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing chip profiles: %w", err)
	}

	chips := make(map[string]ChipProfile, len(file.Chips))
	for _, chip := range file.Chips {
		if chip.Model != SID_MODEL_6581 && chip.Model != SID_MODEL_8580 {
			return nil, fmt.Errorf("chip %q: unknown model %q", chip.ID, chip.Model)
		}
		chips[chip.ID] = chip
	}
	return &ProfileRepository{chips: chips}, nil
}

// DefaultProfiles returns the repository built from the embedded table.
func DefaultProfiles() (*ProfileRepository, error) {
	return LoadProfileRepository(embeddedProfiles)
}

// ChipIDs lists the known chips in stable order.
func (r *ProfileRepository) ChipIDs() []string {
	ids := make([]string, 0, len(r.chips))
	for id := range r.chips {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Model returns the chip model for a known chip id.
func (r *ProfileRepository) Model(chipID string) (string, error) {
	chip, ok := r.chips[chipID]
	if !ok {
		return "", fmt.Errorf("unrecognized chip %q", chipID)
	}
	return chip.Model, nil
}

// Lookup returns the starting parameters for a (chip, waveform) pair.
func (r *ProfileRepository) Lookup(chipID string, wave int) (*ParameterSet, error) {
	chip, ok := r.chips[chipID]
	if !ok {
		return nil, fmt.Errorf("unrecognized chip %q", chipID)
	}
	profile, ok := chip.Waveforms[fmt.Sprintf("%d", wave)]
	if !ok {
		return nil, fmt.Errorf("chip %q has no calibration for waveform %d", chipID, wave)
	}

	distFunc, err := DistanceFuncByName(profile.DistanceFunction)
	if err != nil {
		return nil, fmt.Errorf("chip %q waveform %d: %w", chipID, wave, err)
	}

	params := &ParameterSet{
		Threshold:     profile.Threshold,
		PulseStrength: profile.PulseStrength,
		TopBit:        profile.TopBit,
		Distance1:     profile.Distance1,
		Distance2:     profile.Distance2,
		DistFunc:      distFunc,
	}
	// Older tables left distance2 unset for symmetric chips.
	if params.Distance2 == 0 {
		params.Distance2 = params.Distance1
	}
	return params, nil
}
