package bkt

import (
	"fmt"
	"math"
)

// Effective slip and guess are kept inside these bounds after scaling so
// that a correct answer can never lower the estimate.
const (
	minEffective = 0.01
	maxEffective = 0.49
)

// DifficultyCurve derives the effective parameters for a question of the
// given difficulty. Difficulty is expressed in [0, 1].
type DifficultyCurve interface {
	Adjust(p Params, difficulty float64) Params
}

// FlatCurve ignores difficulty.
type FlatCurve struct{}

func (FlatCurve) Adjust(p Params, _ float64) Params { return p }

// LinearCurve shifts slip up and guess down linearly as difficulty rises
// above NeutralDifficulty, and the reverse below it.
type LinearCurve struct {
	SlipGain  float64
	GuessGain float64
}

func (c LinearCurve) Adjust(p Params, difficulty float64) Params {
	if math.IsNaN(difficulty) {
		return p
	}
	d := clamp(difficulty, 0, 1) - NeutralDifficulty
	if d == 0 {
		return p
	}
	p.PSlip = clamp(p.PSlip+c.SlipGain*d, minEffective, maxEffective)
	p.PGuess = clamp(p.PGuess-c.GuessGain*d, minEffective, maxEffective)
	return p
}

// Curve kinds accepted by NewCurve.
const (
	CurveFlat   = "flat"
	CurveLinear = "linear"
)

// NewCurve builds a curve by kind name.
func NewCurve(kind string, slipGain, guessGain float64) (DifficultyCurve, error) {
	switch kind {
	case "", CurveFlat:
		return FlatCurve{}, nil
	case CurveLinear:
		if slipGain < 0 || guessGain < 0 {
			return nil, fmt.Errorf("linear curve gains must be >= 0, got slip=%g guess=%g", slipGain, guessGain)
		}
		return LinearCurve{SlipGain: slipGain, GuessGain: guessGain}, nil
	default:
		return nil, fmt.Errorf("unknown difficulty curve: %q", kind)
	}
}
