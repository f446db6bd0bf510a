// profiles_test.go - Tests for the calibration profile repository

package main

import (
	"testing"
)

func TestDefaultProfilesLoad(t *testing.T) {
	repo, err := DefaultProfiles()
	if err != nil {
		t.Fatalf("loading embedded profiles: %v", err)
	}

	ids := repo.ChipIDs()
	if len(ids) != 11 {
		t.Errorf("embedded table has %d chips, want 11", len(ids))
	}

	for _, id := range ids {
		for _, wave := range combinedWaves {
			p, err := repo.Lookup(id, wave)
			if err != nil {
				t.Errorf("Lookup(%q, %d): %v", id, wave, err)
				continue
			}
			if p.Threshold <= 0 || p.Distance1 <= 0 || p.Distance2 <= 0 {
				t.Errorf("chip %q wave %d: non-positive parameters %+v", id, wave, p)
			}
			if p.DistFunc == nil {
				t.Errorf("chip %q wave %d: no distance function", id, wave)
			}
		}
	}
}

// TestProfileSpotValues pins a few entries against the published
// calibration archive.
func TestProfileSpotValues(t *testing.T) {
	repo, err := DefaultProfiles()
	if err != nil {
		t.Fatal(err)
	}

	p, err := repo.Lookup("locu128_6581_cbm_4383", 5)
	if err != nil {
		t.Fatal(err)
	}
	if p.Threshold != 1.0130074 || p.PulseStrength != 2.4708786 {
		t.Errorf("locu128 PT calibration drifted: threshold=%v pulsestrength=%v",
			p.Threshold, p.PulseStrength)
	}

	p, err = repo.Lookup("r34785", 3)
	if err != nil {
		t.Fatal(err)
	}
	if p.Threshold != 0.796405137 || p.TopBit != 1.25515425 {
		t.Errorf("r34785 ST calibration drifted: threshold=%v topbit=%v", p.Threshold, p.TopBit)
	}
	// ST has no pulse contribution; the default carries through.
	if p.PulseStrength != 1.0 {
		t.Errorf("r34785 ST pulsestrength = %v, want the 1.0 default", p.PulseStrength)
	}
}

func TestProfileLookupErrors(t *testing.T) {
	repo, err := DefaultProfiles()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Lookup("no-such-chip", 3); err == nil {
		t.Error("expected error for unrecognized chip")
	}
	if _, err := repo.Lookup("r34785", 4); err == nil {
		t.Error("expected error for waveform without calibration")
	}
	if _, err := repo.Model("no-such-chip"); err == nil {
		t.Error("expected error for unrecognized chip model lookup")
	}
}

func TestLoadProfileRepository(t *testing.T) {
	data := []byte(`{"chips": [{"id": "test", "model": "8580", "waveforms": {
		"5": {"threshold": 0.9, "pulsestrength": 1.5, "topbit": 1.0,
		      "distance1": 0.25, "distance2": 0, "distanceFunction": "quadratic"}}}]}`)

	repo, err := LoadProfileRepository(data)
	if err != nil {
		t.Fatal(err)
	}

	model, err := repo.Model("test")
	if err != nil || model != SID_MODEL_8580 {
		t.Errorf("Model = %q, %v, want 8580", model, err)
	}

	p, err := repo.Lookup("test", 5)
	if err != nil {
		t.Fatal(err)
	}
	// Unset distance2 falls back to distance1.
	if p.Distance2 != p.Distance1 {
		t.Errorf("distance2 = %v, want fallback to distance1 %v", p.Distance2, p.Distance1)
	}
	if p.DistFunc(2.0, 1) != QuadraticDistance(2.0, 1) {
		t.Error("distance function not resolved to quadratic")
	}
}

func TestLoadProfileRepositoryErrors(t *testing.T) {
	if _, err := LoadProfileRepository([]byte("{")); err == nil {
		t.Error("expected error for malformed JSON")
	}
	bad := []byte(`{"chips": [{"id": "x", "model": "6582", "waveforms": {}}]}`)
	if _, err := LoadProfileRepository(bad); err == nil {
		t.Error("expected error for unknown chip model")
	}
	badFunc := []byte(`{"chips": [{"id": "x", "model": "6581", "waveforms": {
		"3": {"threshold": 0.9, "distance1": 1, "distance2": 1, "distanceFunction": "cubic"}}}]}`)
	repo, err := LoadProfileRepository(badFunc)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Lookup("x", 3); err == nil {
		t.Error("expected error for unknown distance function")
	}
}
