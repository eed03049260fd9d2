package bkt

// Epsilon bounds the knowledge estimate away from 0 and 1 inside the update
// so neither Bayes denominator can reach zero.
const Epsilon = 1e-6

// NeutralDifficulty is the difficulty at which a curve leaves the base
// parameters untouched.
const NeutralDifficulty = 0.5

// Model maps a prior knowledge estimate and one observed answer to a
// posterior estimate. Implementations must be pure and deterministic.
type Model interface {
	Update(prior float64, correct bool, difficulty float64) float64
}

// BKT is the standard Bayesian Knowledge Tracing update with an optional
// difficulty curve applied to slip and guess.
type BKT struct {
	Params Params
	Curve  DifficultyCurve
}

// New returns a BKT model. A nil curve ignores difficulty.
func New(p Params, curve DifficultyCurve) *BKT {
	if curve == nil {
		curve = FlatCurve{}
	}
	return &BKT{Params: p, Curve: curve}
}

// Update applies the evidence step for one answer and then the learning
// transition. The result is always within [0, 1].
func (m *BKT) Update(prior float64, correct bool, difficulty float64) float64 {
	params := m.Params
	if m.Curve != nil {
		params = m.Curve.Adjust(params, difficulty)
	}

	p := clamp(prior, Epsilon, 1-Epsilon)

	var num, den float64
	if correct {
		num = p * (1 - params.PSlip)
		den = num + (1-p)*params.PGuess
	} else {
		num = p * params.PSlip
		den = num + (1-p)*(1-params.PGuess)
	}

	// Degenerate parameters (slip=0 with guess=1 and the like) leave the
	// estimate where it was.
	if den <= 0 {
		return clamp(prior, 0, 1)
	}

	evidence := num / den
	posterior := clamp(evidence+(1-evidence)*params.PTransit, 0, 1)

	// The epsilon clamp can shave a prior sitting at 1; a correct answer
	// keeps at least the prior.
	if correct {
		if base := clamp(prior, 0, 1); posterior < base {
			posterior = base
		}
	}
	return posterior
}

// Predict returns the probability that a learner with knowledge p answers
// correctly under params.
func Predict(p float64, params Params) float64 {
	p = clamp(p, 0, 1)
	return p*(1-params.PSlip) + (1-p)*params.PGuess
}

func clamp(v, lo, hi float64) float64 {
	if v != v { // NaN
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
