package catalog

import "errors"

var errTaxRequired = errors.New("tax is required when taxApplicability is true")

// TaxSnapshot is the pair of tax fields a child receives from its parent.
type TaxSnapshot struct {
	TaxApplicability bool
	Tax              *float64
}

// ResolveSubcategoryTax copies the parent's tax settings for a new subcategory.
// The copy is taken once; later changes to the parent never reach the child.
func ResolveSubcategoryTax(parent Category) TaxSnapshot {
	return TaxSnapshot{
		TaxApplicability: parent.TaxApplicability,
		Tax:              copyFloat(parent.Tax),
	}
}

// NormalizeTax enforces the tax invariant for categories and items: a tax value is
// required when tax applies and discarded when it does not.
func NormalizeTax(applicable bool, tax *float64) (*float64, error) {
	if !applicable {
		return nil, nil
	}
	if tax == nil {
		return nil, errTaxRequired
	}
	return copyFloat(tax), nil
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
