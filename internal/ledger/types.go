package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ecopontos/ecopontos-backend/internal/points"
	"github.com/ecopontos/ecopontos-backend/pkg/enums"
)

// AccrueInput carries the raw recycling submission. Numeric fields arrive as the client
// typed them; the service re-derives canonical values before touching the store.
type AccrueInput struct {
	Material         string
	Weight           points.RawNumber
	WeightUnit       enums.WeightUnit
	Location         string
	LocationID       string
	PointsPerUnit    points.RawNumber
	TotalPoints      points.RawNumber
	BasePoints       points.RawNumber
	BonusPoints      points.RawNumber
	ConfirmationCode string
	IdempotencyKey   string
}

// AccrueResult reports the committed accrual. Replayed is true when the idempotency key
// matched a previously committed transaction and no new state was written.
type AccrueResult struct {
	TransactionID uuid.UUID       `json:"transaction_id"`
	NewBalance    decimal.Decimal `json:"new_balance"`
	PointsAdded   decimal.Decimal `json:"points_added"`
	Replayed      bool            `json:"replayed,omitempty"`
}

// BonusInput credits a flat amount with a reason, skipping the recycling fields.
type BonusInput struct {
	Points         points.RawNumber
	Reason         string
	IdempotencyKey string
}

// RedeemInput spends points on a reward.
type RedeemInput struct {
	Points         points.RawNumber
	RewardName     string
	RewardCategory string
	IdempotencyKey string
}

// RedeemResult reports the committed redemption.
type RedeemResult struct {
	TransactionID    uuid.UUID       `json:"transaction_id"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	PointsSpent      decimal.Decimal `json:"points_spent"`
	Replayed         bool            `json:"replayed,omitempty"`
}

// BalanceDTO is the read-side projection of a user's balance.
type BalanceDTO struct {
	UserID         uuid.UUID       `json:"user_id"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	TotalEarned    decimal.Decimal `json:"total_earned"`
	TotalSpent     decimal.Decimal `json:"total_spent"`
	RecyclingCount int             `json:"recycling_count"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TransactionDTO is one ledger entry as exposed to clients. Payload fields are omitted
// when they do not apply to the entry's type.
type TransactionDTO struct {
	ID          uuid.UUID             `json:"id"`
	Type        enums.TransactionType `json:"type"`
	Points      decimal.Decimal       `json:"points"`
	Description string                `json:"description"`
	CreatedAt   time.Time             `json:"created_at"`

	Material         string           `json:"material,omitempty"`
	Weight           *decimal.Decimal `json:"weight,omitempty"`
	WeightUnit       enums.WeightUnit `json:"weight_unit,omitempty"`
	Location         string           `json:"location,omitempty"`
	LocationID       string           `json:"location_id,omitempty"`
	PointsPerUnit    *decimal.Decimal `json:"points_per_unit,omitempty"`
	BasePoints       *decimal.Decimal `json:"base_points,omitempty"`
	BonusPoints      *decimal.Decimal `json:"bonus_points,omitempty"`
	ConfirmationCode string           `json:"confirmation_code,omitempty"`

	RewardName     string `json:"reward_name,omitempty"`
	RewardCategory string `json:"reward_category,omitempty"`

	Reason string `json:"reason,omitempty"`
}

// TransactionPage is one page of a user's history, most recent first.
type TransactionPage struct {
	Transactions []TransactionDTO `json:"transactions"`
	NextCursor   string           `json:"next_cursor,omitempty"`
	HasMore      bool             `json:"has_more"`
}

// Stats aggregates a user's recent recycling activity. Derived on read, never persisted.
type Stats struct {
	RecyclingCount    int             `json:"recycling_count"`
	TotalWeightKg     decimal.Decimal `json:"total_weight_kg"`
	DistinctMaterials int             `json:"distinct_materials"`
	AveragePoints     decimal.Decimal `json:"average_points"`
}
