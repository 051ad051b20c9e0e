package points

import (
	"github.com/shopspring/decimal"

	"github.com/ecopontos/ecopontos-backend/pkg/enums"
)

var (
	gramsPerKg   = decimal.NewFromInt(1000)
	tierHeavyKg  = decimal.NewFromInt(5)
	tierMediumKg = decimal.NewFromInt(2)
	tierHeavyPct = decimal.RequireFromString("0.2")
	tierMedPct   = decimal.RequireFromString("0.1")
	one          = decimal.NewFromInt(1)
)

// BreakdownEntry is one itemized contribution to the final point total.
type BreakdownEntry struct {
	Label  string          `json:"label"`
	Points decimal.Decimal `json:"points"`
}

// Result is the full outcome of a point calculation. Components are rounded to two
// decimals for presentation; FinalPoints is rounded once, from the unrounded sum, so
// rounding error never compounds across bonuses.
type Result struct {
	WeightKg      decimal.Decimal  `json:"weight_kg"`
	BasePoints    decimal.Decimal  `json:"base_points"`
	MaterialBonus decimal.Decimal  `json:"material_bonus"`
	WeightBonus   decimal.Decimal  `json:"weight_bonus"`
	LocationBonus decimal.Decimal  `json:"location_bonus"`
	FinalPoints   decimal.Decimal  `json:"final_points"`
	Breakdown     []BreakdownEntry `json:"breakdown"`
}

// Calculator computes recycling point totals against a material/location catalog.
type Calculator struct {
	catalog *Catalog
}

func NewCalculator(catalog *Catalog) *Calculator {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Calculator{catalog: catalog}
}

// Catalog exposes the catalog the calculator resolves against.
func (c *Calculator) Catalog() *Catalog {
	return c.catalog
}

// Calculate derives base points, material bonus, quantity-tier bonus and location bonus
// for a recycling submission. Weight validation (> 0) belongs to the caller; an unknown
// material or location contributes a zero bonus rather than an error.
func (c *Calculator) Calculate(material string, weightRaw string, unit enums.WeightUnit, location string) Result {
	weightKg := Normalize(weightRaw)
	if unit == enums.WeightUnitGram {
		weightKg = weightKg.Div(gramsPerKg)
	}

	rate := decimal.Zero
	multiplier := one
	if mat, ok := c.catalog.Material(material); ok {
		rate = mat.PointsPerKg
		if !mat.Multiplier.IsZero() {
			multiplier = mat.Multiplier
		}
	}

	base := weightKg.Mul(rate)
	materialBonus := base.Mul(multiplier.Sub(one))

	// Highest applicable tier wins; tiers never stack.
	weightBonus := decimal.Zero
	switch {
	case weightKg.GreaterThanOrEqual(tierHeavyKg):
		weightBonus = base.Mul(tierHeavyPct)
	case weightKg.GreaterThanOrEqual(tierMediumKg):
		weightBonus = base.Mul(tierMedPct)
	}

	locationMultiplier := one
	if loc, ok := c.catalog.Location(location); ok && !loc.Bonus.IsZero() {
		locationMultiplier = loc.Bonus
	}
	subtotal := base.Add(materialBonus).Add(weightBonus)
	locationBonus := subtotal.Mul(locationMultiplier.Sub(one))

	final := subtotal.Add(locationBonus)

	result := Result{
		WeightKg:      weightKg,
		BasePoints:    base.Round(2),
		MaterialBonus: materialBonus.Round(2),
		WeightBonus:   weightBonus.Round(2),
		LocationBonus: locationBonus.Round(2),
		FinalPoints:   final.Round(2),
	}

	result.Breakdown = append(result.Breakdown, BreakdownEntry{Label: "Base points", Points: result.BasePoints})
	if materialBonus.IsPositive() {
		result.Breakdown = append(result.Breakdown, BreakdownEntry{Label: "Material bonus", Points: result.MaterialBonus})
	}
	if weightBonus.IsPositive() {
		result.Breakdown = append(result.Breakdown, BreakdownEntry{Label: "Quantity bonus", Points: result.WeightBonus})
	}
	if locationBonus.IsPositive() {
		result.Breakdown = append(result.Breakdown, BreakdownEntry{Label: "Location bonus", Points: result.LocationBonus})
	}

	return result
}
