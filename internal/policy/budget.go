// Package policy validates proposed trade sizes against the shared budget.
package policy

import "math"

const (
	// DefaultPSuccess is the assumed execution success probability when the
	// caller has no better estimate.
	DefaultPSuccess = 0.8
	// CapFraction is the largest share of the total budget a single order
	// may claim.
	CapFraction = 0.05
)

// BudgetSource exposes the shared available-budget scalar.
type BudgetSource interface {
	BudgetTotal() float64
}

// BudgetPolicy caps order amounts at a fraction of the available budget,
// scaled by the estimated success probability.
type BudgetPolicy struct {
	source BudgetSource
}

// New creates a BudgetPolicy reading the budget from source.
func New(source BudgetSource) *BudgetPolicy {
	return &BudgetPolicy{source: source}
}

// Validate reports whether amount fits under the cap. pSuccess <= 0 falls
// back to DefaultPSuccess. No side effects.
//
// The min() form is redundant for pSuccess <= 1 (both arms agree) but is
// kept so the formula matches the published policy verbatim.
func (p *BudgetPolicy) Validate(amount float64, chain string, pSuccess float64) bool {
	if pSuccess <= 0 {
		pSuccess = DefaultPSuccess
	}
	total := p.source.BudgetTotal()
	cap := math.Min(CapFraction*total*pSuccess, CapFraction*total)
	return amount <= cap
}
