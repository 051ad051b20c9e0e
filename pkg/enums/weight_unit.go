package enums

import "fmt"

// WeightUnit is the unit a recycling weight was submitted in.
type WeightUnit string

const (
	WeightUnitKilogram WeightUnit = "kg"
	WeightUnitGram     WeightUnit = "g"
)

// IsValid reports whether the value is a supported weight unit.
func (u WeightUnit) IsValid() bool {
	return u == WeightUnitKilogram || u == WeightUnitGram
}

// ParseWeightUnit converts raw input into WeightUnit, defaulting empty input to kg.
func ParseWeightUnit(value string) (WeightUnit, error) {
	switch WeightUnit(value) {
	case WeightUnitKilogram, WeightUnitGram:
		return WeightUnit(value), nil
	case "":
		return WeightUnitKilogram, nil
	}
	return "", fmt.Errorf("invalid weight unit %q", value)
}
