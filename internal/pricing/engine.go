package pricing

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Strategy names accepted by ParseStrategy.
const (
	StrategySubtract     = "subtract"
	StrategyTaxInclusive = "tax_inclusive"
)

var hundred = decimal.NewFromInt(100)

// ErrOutOfRange is returned when a total does not fit a finite float64.
var ErrOutOfRange = errors.New("totalAmount out of range")

// Input carries the amounts an item total is derived from. Tax is a percentage and is
// only consulted when TaxApplicable is set.
type Input struct {
	BaseAmount    float64
	Discount      float64
	TaxApplicable bool
	Tax           float64
}

// Strategy computes the payable total of an item.
type Strategy interface {
	Name() string
	Total(in Input) (float64, error)
}

// Subtract is the default strategy: total = base - discount. Tax is stored on the item
// but never priced in.
type Subtract struct{}

// Name implements Strategy.
func (Subtract) Name() string { return StrategySubtract }

// Total implements Strategy.
func (Subtract) Total(in Input) (float64, error) {
	return finite(decimal.NewFromFloat(in.BaseAmount).Sub(decimal.NewFromFloat(in.Discount)))
}

// TaxInclusive prices the item tax on top of the base amount before the discount:
// total = base + base*tax/100 - discount.
type TaxInclusive struct{}

// Name implements Strategy.
func (TaxInclusive) Name() string { return StrategyTaxInclusive }

// Total implements Strategy.
func (TaxInclusive) Total(in Input) (float64, error) {
	base := decimal.NewFromFloat(in.BaseAmount)
	total := base
	if in.TaxApplicable {
		total = total.Add(base.Mul(decimal.NewFromFloat(in.Tax)).Div(hundred))
	}
	return finite(total.Sub(decimal.NewFromFloat(in.Discount)))
}

func finite(d decimal.Decimal) (float64, error) {
	f := d.InexactFloat64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, ErrOutOfRange
	}
	return f, nil
}

// ParseStrategy resolves a configured strategy name. An empty name selects Subtract.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategySubtract:
		return Subtract{}, nil
	case StrategyTaxInclusive:
		return TaxInclusive{}, nil
	default:
		return nil, fmt.Errorf("unknown pricing strategy %q", name)
	}
}

// ComputeTotal applies the default strategy.
func ComputeTotal(baseAmount, discount float64) (float64, error) {
	return Subtract{}.Total(Input{BaseAmount: baseAmount, Discount: discount})
}
