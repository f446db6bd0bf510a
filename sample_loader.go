// sample_loader.go - Reference waveform capture loading and reformatting
// Captures live under sidwaves/<chip>/6581wf<w>0.dat.prg as C64 PRG files:
// a 2-byte load address followed by the 4096 sampled output bytes.

package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const prgHeaderSize = 2

// ReferencePath builds the conventional capture path for a chip/waveform.
func ReferencePath(dir, chipID string, wave int) string {
	return filepath.Join(dir, chipID, fmt.Sprintf("6581wf%d0.dat.prg", wave))
}

// LoadPRG reads a raw capture: 2-byte PRG header, then one byte per
// oscillator phase.
func LoadPRG(path string) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading capture: %w", err)
	}
	if len(data) < prgHeaderSize+OSC_PHASES {
		return nil, fmt.Errorf("capture %s: got %d bytes, want at least %d",
			path, len(data), prgHeaderSize+OSC_PHASES)
	}

	samples := make([]uint32, OSC_PHASES)
	for i := 0; i < OSC_PHASES; i++ {
		samples[i] = uint32(data[prgHeaderSize+i])
	}
	return samples, nil
}

// LoadCSV reads one chip's column from a comma-delimited capture table,
// one row per oscillator phase.
func LoadCSV(path string, column int) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading capture table: %w", err)
	}

	samples := make([]uint32, 0, OSC_PHASES)
	for lineNo, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		fields := strings.Split(strings.TrimRight(line, "\r"), ",")
		if column >= len(fields) {
			return nil, fmt.Errorf("capture table %s line %d: no column %d", path, lineNo+1, column)
		}
		value, err := strconv.ParseUint(strings.TrimSpace(fields[column]), 10, 8)
		if err != nil {
			return nil, fmt.Errorf("capture table %s line %d: %w", path, lineNo+1, err)
		}
		samples = append(samples, uint32(value))
	}
	if len(samples) != OSC_PHASES {
		return nil, fmt.Errorf("capture table %s: got %d phases, want %d", path, len(samples), OSC_PHASES)
	}
	return samples, nil
}

// combinedWaves are the waveform selections that produce combined output.
var combinedWaves = [4]int{3, 5, 6, 7}

// DumpCSV re-dumps the raw captures of every known chip into one CSV table
// per waveform (wave0<w>.csv): first row chip ids, then one row per phase.
func DumpCSV(dir string, chipIDs []string, outDir string) error {
	for _, wave := range combinedWaves {
		rows := make([]string, OSC_PHASES+1)

		for _, chip := range chipIDs {
			reference, err := LoadPRG(ReferencePath(dir, chip, wave))
			if err != nil {
				return err
			}
			rows[0] += chip + ","
			for j, val := range reference {
				rows[j+1] += strconv.FormatUint(uint64(val), 10) + ","
			}
		}

		name := filepath.Join(outDir, fmt.Sprintf("wave0%d.csv", wave))
		fmt.Printf("Saving %s\n", name)
		if err := os.WriteFile(name, []byte(strings.Join(rows, "\n")+"\n"), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}

// ReferenceRMS computes the root mean square of one capture.
func ReferenceRMS(reference []uint32) float64 {
	var sum float64
	for _, val := range reference {
		sum += float64(val) * float64(val)
	}
	return math.Sqrt(sum / float64(len(reference)))
}

// RMSReport writes rms.csv: one row per chip with the RMS of each combined
// waveform's capture, for eyeballing capture quality across chips.
func RMSReport(dir string, chipIDs []string, outPath string) error {
	var sb strings.Builder

	for _, chip := range chipIDs {
		fmt.Printf("Reading waves for chip %s\n", chip)
		sb.WriteString(chip)

		for _, wave := range combinedWaves {
			reference, err := LoadPRG(ReferencePath(dir, chip, wave))
			if err != nil {
				return err
			}
			fmt.Fprintf(&sb, ",%g", ReferenceRMS(reference))
		}
		sb.WriteString("\n")
	}

	if err := os.WriteFile(outPath, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	return nil
}
