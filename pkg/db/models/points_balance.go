package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PointsBalance holds the per-user aggregate of spendable points and lifetime totals.
// The row is created lazily on the first accrual or the first balance read and is only
// mutated inside a store transaction; CurrentBalance must always equal
// TotalEarned - TotalSpent.
type PointsBalance struct {
	UserID         uuid.UUID       `gorm:"column:user_id;type:uuid;primaryKey"`
	CurrentBalance decimal.Decimal `gorm:"column:current_balance;type:numeric(12,2);not null"`
	TotalEarned    decimal.Decimal `gorm:"column:total_earned;type:numeric(12,2);not null"`
	TotalSpent     decimal.Decimal `gorm:"column:total_spent;type:numeric(12,2);not null"`
	RecyclingCount int             `gorm:"column:recycling_count;not null;default:0"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (PointsBalance) TableName() string {
	return "points_balances"
}
