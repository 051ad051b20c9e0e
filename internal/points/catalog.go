package points

import "github.com/shopspring/decimal"

// Material describes a recyclable material accepted by collection points. PointsPerKg
// is the base accrual rate; Multiplier is an independent bonus lever kept at 1.0 in the
// current deployment but honored by the calculator whenever it diverges.
type Material struct {
	Name        string
	PointsPerKg decimal.Decimal
	Multiplier  decimal.Decimal
}

// Location is a collection point carrying its own bonus multiplier (1.1 = +10%).
type Location struct {
	ID    string
	Name  string
	Bonus decimal.Decimal
}

// Catalog resolves material and location keys for the calculator. Lookups are by the
// display name the client submits; unknown keys are tolerated and simply contribute no
// bonus for that dimension.
type Catalog struct {
	materials map[string]Material
	locations map[string]Location
}

func NewCatalog(materials []Material, locations []Location) *Catalog {
	c := &Catalog{
		materials: make(map[string]Material, len(materials)),
		locations: make(map[string]Location, len(locations)),
	}
	for _, m := range materials {
		c.materials[m.Name] = m
	}
	for _, l := range locations {
		c.locations[l.Name] = l
	}
	return c
}

func (c *Catalog) Material(name string) (Material, bool) {
	m, ok := c.materials[name]
	return m, ok
}

func (c *Catalog) Location(name string) (Location, bool) {
	l, ok := c.locations[name]
	return l, ok
}

// DefaultCatalog returns the rates configured for the current deployment.
func DefaultCatalog() *Catalog {
	one := decimal.NewFromInt(1)
	return NewCatalog(
		[]Material{
			{Name: "Plástico", PointsPerKg: decimal.RequireFromString("5.1"), Multiplier: one},
			{Name: "Papel", PointsPerKg: decimal.NewFromInt(3), Multiplier: one},
			{Name: "Vidro", PointsPerKg: decimal.NewFromInt(2), Multiplier: one},
			{Name: "Metal", PointsPerKg: decimal.RequireFromString("7.5"), Multiplier: one},
			{Name: "Eletrônico", PointsPerKg: decimal.NewFromInt(12), Multiplier: one},
			{Name: "Óleo de Cozinha", PointsPerKg: decimal.NewFromInt(8), Multiplier: one},
		},
		[]Location{
			{ID: "loc-iguatemi", Name: "Shopping Iguatemi", Bonus: decimal.RequireFromString("1.15")},
			{ID: "loc-praca-central", Name: "Praça Central", Bonus: decimal.RequireFromString("1.1")},
			{ID: "loc-ecoponto-centro", Name: "EcoPonto Centro", Bonus: decimal.NewFromInt(1)},
			{ID: "loc-mercado-municipal", Name: "Mercado Municipal", Bonus: decimal.RequireFromString("1.05")},
		},
	)
}
