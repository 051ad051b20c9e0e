package points

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Normalize parses a user-supplied numeric string into a canonical two-decimal value.
// A comma is treated as the decimal separator and surrounding whitespace is ignored.
// Input that does not parse yields zero; callers that must distinguish a malformed
// value from a legitimate zero use ParseAmount instead.
func Normalize(value string) decimal.Decimal {
	parsed, err := ParseAmount(value)
	if err != nil {
		return decimal.Zero
	}
	return parsed
}

// NormalizeDecimal rounds an already-numeric value to the canonical two decimal places,
// half away from zero.
func NormalizeDecimal(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}

// ParseAmount is the strict counterpart of Normalize: it returns an error when the
// input does not parse instead of masking it as zero. Ledger entry points use this so a
// malformed request cannot slip through as a zero-value operation.
func ParseAmount(value string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(value), ",", ".")
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty numeric value")
	}
	parsed, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid numeric value %q", value)
	}
	return parsed.Round(2), nil
}

// RawNumber carries a numeric field across the trust boundary. Clients send either a
// JSON number or a decimal string ("2.5" or "2,5"); both are preserved verbatim for
// normalization by the service.
type RawNumber string

func (n *RawNumber) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty number payload")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = RawNumber(s)
		return nil
	}
	if string(data) == "null" {
		*n = ""
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*n = RawNumber(num.String())
	return nil
}

func (n RawNumber) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(n))
}

func (n RawNumber) String() string {
	return string(n)
}

// IsEmpty reports whether the field was absent or blank.
func (n RawNumber) IsEmpty() bool {
	return strings.TrimSpace(string(n)) == ""
}
