package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fixedBudget float64

func (f fixedBudget) BudgetTotal() float64 { return float64(f) }

func TestValidateCap(t *testing.T) {
	p := New(fixedBudget(1.0))

	// cap = 0.05 * 1.0 * 0.8 = 0.04
	assert.True(t, p.Validate(0.04, "solana", 0.8))
	assert.False(t, p.Validate(0.05, "solana", 0.8))
	assert.True(t, p.Validate(0.0, "solana", 0.8))
}

func TestValidateDefaultPSuccess(t *testing.T) {
	p := New(fixedBudget(1.0))
	// zero or negative estimates fall back to the default 0.8
	assert.True(t, p.Validate(0.04, "solana", 0))
	assert.False(t, p.Validate(0.05, "solana", -1))
}

func TestValidateFullConfidenceNeverExceedsFlatCap(t *testing.T) {
	p := New(fixedBudget(1.0))
	// at pSuccess = 1 both min arms agree on 0.05 of total
	assert.True(t, p.Validate(0.05, "solana", 1.0))
	assert.False(t, p.Validate(0.051, "solana", 1.0))
}

func TestValidateMonotonicInPSuccess(t *testing.T) {
	p := New(fixedBudget(1.0))
	amount := 0.045
	var prev bool
	for _, ps := range []float64{0.1, 0.3, 0.5, 0.7, 0.9, 1.0} {
		ok := p.Validate(amount, "solana", ps)
		if prev {
			assert.True(t, ok, "raising pSuccess must never turn an accepted amount into a rejected one (ps=%v)", ps)
		}
		prev = ok
	}
}

func TestValidateScalesWithTotal(t *testing.T) {
	p := New(fixedBudget(10.0))
	// cap = 0.05 * 10 * 0.8 = 0.4
	assert.True(t, p.Validate(0.4, "ethereum", 0.8))
	assert.False(t, p.Validate(0.41, "ethereum", 0.8))
}
