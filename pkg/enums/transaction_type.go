package enums

import "fmt"

// TransactionType maps to the points_transaction_type enum in Postgres.
type TransactionType string

const (
	TransactionTypeRecycling   TransactionType = "recycling"
	TransactionTypeReward      TransactionType = "reward"
	TransactionTypeBonus       TransactionType = "bonus"
	TransactionTypeAdminCredit TransactionType = "admin_credit"
	TransactionTypeAdminDebit  TransactionType = "admin_debit"
	TransactionTypeAdjustment  TransactionType = "adjustment"
)

var validTransactionTypes = []TransactionType{
	TransactionTypeRecycling,
	TransactionTypeReward,
	TransactionTypeBonus,
	TransactionTypeAdminCredit,
	TransactionTypeAdminDebit,
	TransactionTypeAdjustment,
}

// IsValid reports whether the value matches the canonical transaction type enum.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransactionType converts raw input into TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}
