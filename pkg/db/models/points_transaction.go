package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ecopontos/ecopontos-backend/pkg/enums"
)

// PointsTransaction records an immutable point-affecting event. Rows are append-only:
// corrections are written as new adjustment rows, never edits.
type PointsTransaction struct {
	ID     uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index:idx_points_transactions_user_created"`
	Type   enums.TransactionType `gorm:"column:type;type:points_transaction_type;not null"`
	// Points is signed: positive for accruals and bonuses, negative for redemptions.
	Points         decimal.Decimal `gorm:"column:points;type:numeric(12,2);not null"`
	Description    string          `gorm:"column:description;not null"`
	IdempotencyKey *string         `gorm:"column:idempotency_key;uniqueIndex:idx_points_transactions_idem,where:idempotency_key IS NOT NULL"`

	// Recycling payload.
	Material         string           `gorm:"column:material"`
	Weight           decimal.Decimal  `gorm:"column:weight;type:numeric(12,3)"`
	WeightUnit       enums.WeightUnit `gorm:"column:weight_unit"`
	Location         string           `gorm:"column:location"`
	LocationID       string           `gorm:"column:location_id"`
	PointsPerUnit    decimal.Decimal  `gorm:"column:points_per_unit;type:numeric(12,2)"`
	BasePoints       decimal.Decimal  `gorm:"column:base_points;type:numeric(12,2)"`
	BonusPoints      decimal.Decimal  `gorm:"column:bonus_points;type:numeric(12,2)"`
	ConfirmationCode string           `gorm:"column:confirmation_code"`

	// Reward payload.
	RewardName     string `gorm:"column:reward_name"`
	RewardCategory string `gorm:"column:reward_category"`

	// Bonus payload.
	Reason string `gorm:"column:reason"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index:idx_points_transactions_user_created,sort:desc"`
}

func (PointsTransaction) TableName() string {
	return "points_transactions"
}
