package bkt

import (
	"fmt"
	"strings"
)

// Default parameters used when no configuration overrides them.
const (
	DefaultPTransit = 0.1
	DefaultPSlip    = 0.1
	DefaultPGuess   = 0.2
)

// Params holds the per-attempt Bayesian Knowledge Tracing probabilities.
type Params struct {
	// PTransit is the probability of learning on an attempt, regardless
	// of correctness.
	PTransit float64 `json:"p_transit" yaml:"p_transit"`

	// PSlip is the probability that a learner who has mastered the
	// objective answers incorrectly.
	PSlip float64 `json:"p_slip" yaml:"p_slip"`

	// PGuess is the probability that a learner who has not mastered the
	// objective answers correctly by chance.
	PGuess float64 `json:"p_guess" yaml:"p_guess"`
}

// DefaultParams returns the default parameter set.
func DefaultParams() Params {
	return Params{
		PTransit: DefaultPTransit,
		PSlip:    DefaultPSlip,
		PGuess:   DefaultPGuess,
	}
}

// Validate checks that every probability is in [0,1) and that the
// parameterization keeps correct answers from lowering knowledge
// (PSlip < 0.5 < 1-PGuess).
func (p Params) Validate() error {
	var errs []string

	check := func(name string, v float64) {
		if v < 0 || v >= 1 {
			errs = append(errs, fmt.Sprintf("%s must be in [0, 1), got %g", name, v))
		}
	}
	check("p_transit", p.PTransit)
	check("p_slip", p.PSlip)
	check("p_guess", p.PGuess)

	if p.PSlip >= 0.5 {
		errs = append(errs, fmt.Sprintf("p_slip must be < 0.5, got %g", p.PSlip))
	}
	if p.PGuess >= 0.5 {
		errs = append(errs, fmt.Sprintf("p_guess must be < 0.5, got %g", p.PGuess))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid BKT parameters:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
