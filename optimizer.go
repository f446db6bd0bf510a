// optimizer.go - Monte Carlo hill climbing over the model parameters

package main

import (
	"context"
	"math/rand/v2"
)

// SearchOutcome classifies how a search run ended.
type SearchOutcome int

const (
	// SearchConverged means the model reproduces the capture exactly.
	SearchConverged SearchOutcome = iota
	// SearchExhausted means the iteration budget ran out.
	SearchExhausted
	// SearchStopped means the run was cancelled externally.
	SearchStopped
)

func (o SearchOutcome) String() string {
	switch o {
	case SearchConverged:
		return "converged"
	case SearchExhausted:
		return "exhausted"
	case SearchStopped:
		return "stopped"
	}
	return "unknown"
}

// SearchResult carries the best calibration found and how the run ended.
type SearchResult struct {
	Outcome    SearchOutcome
	Best       *ParameterSet
	Score      Score
	Iterations int
}

// Optimizer mutates one parameter lineage and keeps every strict
// improvement. Equal-error candidates are adopted as the new mutation base
// without touching the recorded best, which walks plateaus in the error
// surface instead of getting pinned to the first point reached.
type Optimizer struct {
	Eval   *Evaluator
	Params *ParameterSet

	// Sigma is the stddev of the mutation draws, the run-level
	// annealing knob.
	Sigma float64

	// LimitThreshold keeps the threshold below 1.0. Some chips calibrate
	// past 1.0, so this is off unless the profile asks for it.
	LimitThreshold bool

	// MaxIterations bounds the run; 0 searches until convergence or
	// cancellation, like the original tool.
	MaxIterations int

	// Rand is the injected randomness source; every draw the search
	// makes comes from here, so a fixed seed replays a run exactly.
	Rand *rand.Rand

	// OnImprovement and OnPlateau report progress; either may be nil.
	OnImprovement func(best *ParameterSet, s Score)
	OnPlateau     func(s Score)
}

const defaultSigma = 0.1

// draw returns a sample from a normal distribution with the given mean and
// the optimizer's sigma.
func (o *Optimizer) draw(mean float64) float64 {
	sigma := o.Sigma
	if sigma <= 0 {
		sigma = defaultSigma
	}
	return mean + sigma*o.Rand.NormFloat64()
}

// rescueDraw nudges a parameter that mutated to nearly zero back into
// useful range.
func (o *Optimizer) rescueDraw() float32 {
	return float32(0.5 + 0.2*o.Rand.NormFloat64())
}

// mutate copies base into candidate and perturbs it until at least one
// applicable dimension actually changed. Each dimension mutates with ~50%
// probability by a multiplicative normal factor centered at 1.0, clamped
// away from zero and rescued away from the epsilon floor.
func (o *Optimizer) mutate(candidate, base *ParameterSet) {
	*candidate = *base

	for changed := false; !changed; {
		for i := range paramDims {
			dim := &paramDims[i]
			if !dim.appliesTo(o.Eval.Wave) {
				continue
			}
			if o.draw(1.0) <= 1.0 {
				continue
			}

			oldValue := dim.get(base)
			newValue := float32(o.draw(1.0) * float64(oldValue))
			if newValue <= 0 {
				newValue = PARAM_EPSILON
			} else if newValue < PARAM_EPSILON {
				newValue += o.rescueDraw()
			}
			if o.LimitThreshold && dim.name == "threshold" && newValue >= 1.0 {
				newValue = 1.0 - PARAM_EPSILON
			}

			dim.set(candidate, newValue)
			if newValue != oldValue {
				changed = true
			}
		}
	}
}

// Run scores the starting parameters and then loops: mutate, score against
// the best error as early-exit bound, accept or discard. The search is an
// anytime algorithm; failing to converge is not an error.
func (o *Optimizer) Run(ctx context.Context) SearchResult {
	best := o.Params.Clone()
	bestScore := o.Eval.Score(best, MAX_AUDIBLE_ERROR)

	if o.OnImprovement != nil {
		o.OnImprovement(best, bestScore)
	}
	if bestScore.AudibleError == 0 {
		return SearchResult{Outcome: SearchConverged, Best: best, Score: bestScore}
	}

	candidate := best.Clone()
	for iter := 0; ; iter++ {
		select {
		case <-ctx.Done():
			return SearchResult{Outcome: SearchStopped, Best: best, Score: bestScore, Iterations: iter}
		default:
		}
		if o.MaxIterations > 0 && iter >= o.MaxIterations {
			return SearchResult{Outcome: SearchExhausted, Best: best, Score: bestScore, Iterations: iter}
		}

		o.mutate(candidate, best)

		score := o.Eval.Score(candidate, bestScore.AudibleError)
		switch {
		case score.Better(bestScore):
			*best = *candidate
			bestScore = score
			if o.OnImprovement != nil {
				o.OnImprovement(best, bestScore)
			}
			if bestScore.AudibleError == 0 {
				return SearchResult{Outcome: SearchConverged, Best: best, Score: bestScore, Iterations: iter + 1}
			}
		case score.AudibleError == bestScore.AudibleError:
			// Same audible error: adopt the parameters as the new base
			// to keep the walk moving, but keep the recorded best score.
			if o.OnPlateau != nil {
				o.OnPlateau(score)
			}
			*best = *candidate
		}
	}
}
