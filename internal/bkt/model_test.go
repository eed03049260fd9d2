package bkt

import (
	"math"
	"testing"
)

func scenarioModel() *BKT {
	return New(Params{PTransit: 0.1, PSlip: 0.1, PGuess: 0.2}, nil)
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestUpdate_KnownValues(t *testing.T) {
	m := scenarioModel()

	tests := []struct {
		name    string
		prior   float64
		correct bool
		want    float64
	}{
		// 0.27 / 0.41 = 0.658537, then + 0.341463 * 0.1
		{"correct from 0.3", 0.3, true, 0.692683},
		// 0.03 / 0.59 = 0.050847, then + 0.949153 * 0.1
		{"incorrect from 0.3", 0.3, false, 0.145763},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Update(tt.prior, tt.correct, NeutralDifficulty)
			if !approxEqual(got, tt.want) {
				t.Errorf("Update(%v, %v) = %.6f, want %.6f", tt.prior, tt.correct, got, tt.want)
			}
		})
	}
}

func TestUpdate_TenCorrectCrossesThreshold(t *testing.T) {
	m := scenarioModel()
	p := 0.3
	for i := 0; i < 10; i++ {
		p = m.Update(p, true, NeutralDifficulty)
	}
	if p < 0.95 {
		t.Errorf("knowledge after 10 correct = %.4f, want >= 0.95", p)
	}
}

func TestUpdate_BoundedForAllPriors(t *testing.T) {
	models := []*BKT{
		scenarioModel(),
		New(Params{PTransit: 0, PSlip: 0, PGuess: 0}, nil),
		New(Params{PTransit: 0.9, PSlip: 0.49, PGuess: 0.49}, LinearCurve{SlipGain: 1, GuessGain: 1}),
	}

	for mi, m := range models {
		for i := 0; i <= 100; i++ {
			prior := float64(i) / 100
			for _, d := range []float64{0, 0.25, 0.5, 0.75, 1} {
				for _, correct := range []bool{true, false} {
					got := m.Update(prior, correct, d)
					if got < 0 || got > 1 || math.IsNaN(got) {
						t.Fatalf("model %d: Update(%v, %v, %v) = %v, out of [0,1]", mi, prior, correct, d, got)
					}
				}
			}
		}
	}
}

func TestUpdate_CorrectNeverDecreases(t *testing.T) {
	m := New(Params{PTransit: 0.05, PSlip: 0.3, PGuess: 0.4}, LinearCurve{SlipGain: 0.4, GuessGain: 0.4})
	for i := 0; i <= 100; i++ {
		prior := float64(i) / 100
		for _, d := range []float64{0, 0.3, 0.5, 0.8, 1} {
			got := m.Update(prior, true, d)
			if got < prior-1e-12 {
				t.Fatalf("Update(%v, correct, %v) = %v, decreased below prior", prior, d, got)
			}
		}
	}
}

func TestUpdate_EdgePriorsClamped(t *testing.T) {
	m := scenarioModel()

	for _, prior := range []float64{0, 1, -0.5, 1.5, math.NaN()} {
		for _, correct := range []bool{true, false} {
			got := m.Update(prior, correct, NeutralDifficulty)
			if got < 0 || got > 1 || math.IsNaN(got) {
				t.Errorf("Update(%v, %v) = %v, want value in [0,1]", prior, correct, got)
			}
		}
	}
}

func TestUpdate_DegenerateDenominatorKeepsPrior(t *testing.T) {
	// Correct answer with slip=1 is impossible for a mastered learner and
	// guess=0 makes it impossible for an unmastered one.
	m := &BKT{Params: Params{PTransit: 0.2, PSlip: 1, PGuess: 0}}
	if got := m.Update(0.4, true, NeutralDifficulty); got != 0.4 {
		t.Errorf("Update with zero denominator = %v, want prior 0.4", got)
	}
}

func TestUpdate_Deterministic(t *testing.T) {
	m := New(DefaultParams(), LinearCurve{SlipGain: 0.2, GuessGain: 0.2})
	a := m.Update(0.42, true, 0.8)
	b := m.Update(0.42, true, 0.8)
	if a != b {
		t.Errorf("Update not deterministic: %v != %v", a, b)
	}
}

func TestPredict(t *testing.T) {
	p := Params{PSlip: 0.1, PGuess: 0.2}
	if got := Predict(0, p); !approxEqual(got, 0.2) {
		t.Errorf("Predict(0) = %v, want 0.2", got)
	}
	if got := Predict(1, p); !approxEqual(got, 0.9) {
		t.Errorf("Predict(1) = %v, want 0.9", got)
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"defaults", DefaultParams(), false},
		{"slip too high", Params{PTransit: 0.1, PSlip: 0.5, PGuess: 0.1}, true},
		{"guess too high", Params{PTransit: 0.1, PSlip: 0.1, PGuess: 0.6}, true},
		{"negative transit", Params{PTransit: -0.1, PSlip: 0.1, PGuess: 0.1}, true},
		{"transit one", Params{PTransit: 1, PSlip: 0.1, PGuess: 0.1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
