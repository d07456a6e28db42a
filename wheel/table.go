package wheel

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Outcome is a single wheel segment. A zero weight makes the segment
// unreachable by selection but it remains a valid display value.
type Outcome struct {
	Label       string          `mapstructure:"label" json:"label"`
	Weight      float64         `mapstructure:"weight" json:"weight"`
	Amount      decimal.Decimal `mapstructure:"amount" json:"amount"`
	AssetSymbol string          `mapstructure:"asset_symbol" json:"assetSymbol"`
}

// IsWin reports whether the outcome carries a reward.
func (o Outcome) IsWin() bool {
	return o.Amount.GreaterThan(decimal.Zero)
}

// Table is the ordered, immutable outcome table the wheel is built from.
type Table struct {
	Outcomes []Outcome `mapstructure:"outcomes" json:"outcomes"`
}

// Validate checks the table invariants: at least one outcome, no negative
// weight, and a positive total weight (selection is undefined otherwise).
func (t *Table) Validate() error {
	if len(t.Outcomes) == 0 {
		return fmt.Errorf("outcome table is empty")
	}
	total := 0.0
	for i, o := range t.Outcomes {
		if o.Weight < 0 {
			return fmt.Errorf("outcome %d (%q) has negative weight %v", i, o.Label, o.Weight)
		}
		if o.Amount.IsNegative() {
			return fmt.Errorf("outcome %d (%q) has negative amount %s", i, o.Label, o.Amount)
		}
		total += o.Weight
	}
	if total <= 0 {
		return fmt.Errorf("total weight must be positive, got %v", total)
	}
	return nil
}

// TotalWeight returns the sum of all segment weights.
func (t *Table) TotalWeight() float64 {
	total := 0.0
	for _, o := range t.Outcomes {
		total += o.Weight
	}
	return total
}

// Labels returns the segment labels in wheel order.
func (t *Table) Labels() []string {
	return lo.Map(t.Outcomes, func(o Outcome, _ int) string {
		return o.Label
	})
}

// Outcome returns the SpinOutcome for a segment index.
func (t *Table) Outcome(index int) (SpinOutcome, error) {
	if index < 0 || index >= len(t.Outcomes) {
		return SpinOutcome{}, fmt.Errorf("outcome index %d out of range [0,%d)", index, len(t.Outcomes))
	}
	o := t.Outcomes[index]
	return SpinOutcome{
		Index:       index,
		Label:       o.Label,
		Amount:      o.Amount,
		AssetSymbol: o.AssetSymbol,
	}, nil
}

// Normalize converts the table to a response-friendly map. Weights are
// intentionally omitted from the public surface.
func (t *Table) Normalize() map[string]interface{} {
	segments := lo.Map(t.Outcomes, func(o Outcome, i int) map[string]interface{} {
		return map[string]interface{}{
			"index":       i,
			"label":       o.Label,
			"amount":      o.Amount,
			"assetSymbol": o.AssetSymbol,
		}
	})
	return map[string]interface{}{
		"segments": segments,
	}
}

// SpinOutcome is the result of one spin. It is produced once per spin and
// consumed immediately; it is never persisted.
type SpinOutcome struct {
	Index       int             `json:"index"`
	Label       string          `json:"label"`
	Amount      decimal.Decimal `json:"amount"`
	AssetSymbol string          `json:"assetSymbol"`
}
