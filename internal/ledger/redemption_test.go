package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecopontos/ecopontos-backend/internal/points"
	pkgerrors "github.com/ecopontos/ecopontos-backend/pkg/errors"
)

func TestRedeemWithoutBalance(t *testing.T) {
	svcs := newLedgerServices(t)
	ctx := context.Background()

	_, err := svcs.redemption.Redeem(ctx, uuid.New(), RedeemInput{
		Points:     points.RawNumber("10"),
		RewardName: "Vale-transporte",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRedeemInsufficientBalance(t *testing.T) {
	svcs := newLedgerServices(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svcs.accrual.AddBonus(ctx, userID, BonusInput{
		Points: points.RawNumber("5"),
		Reason: "welcome",
	})
	require.NoError(t, err)

	_, err = svcs.redemption.Redeem(ctx, userID, RedeemInput{
		Points:     points.RawNumber("10"),
		RewardName: "Vale-transporte",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds))

	// A rejected redemption leaves the balance untouched.
	balance, err := svcs.query.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, balance.CurrentBalance.Equal(decimal.NewFromInt(5)))
	assert.True(t, balance.TotalSpent.IsZero())
}

func TestRedeemSpendsPoints(t *testing.T) {
	svcs := newLedgerServices(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svcs.accrual.Accrue(ctx, userID, plasticAccrual("12.9"))
	require.NoError(t, err)

	result, err := svcs.redemption.Redeem(ctx, userID, RedeemInput{
		Points:         points.RawNumber("10"),
		RewardName:     "Vale-transporte",
		RewardCategory: "mobilidade",
	})
	require.NoError(t, err)
	assert.True(t, result.RemainingBalance.Equal(decimal.RequireFromString("2.9")))
	assert.True(t, result.PointsSpent.Equal(decimal.NewFromInt(10)))
	assert.False(t, result.Replayed)

	balance, err := svcs.query.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, balance.CurrentBalance.Equal(decimal.RequireFromString("2.9")))
	assert.True(t, balance.TotalEarned.Equal(decimal.RequireFromString("12.9")))
	assert.True(t, balance.TotalSpent.Equal(decimal.NewFromInt(10)))
	// current = earned - spent holds after a spend.
	assert.True(t, balance.CurrentBalance.Equal(balance.TotalEarned.Sub(balance.TotalSpent)))

	// The log entry carries a negative amount and the reward payload.
	page, err := svcs.query.ListTransactions(ctx, userID, paginationParams(10))
	require.NoError(t, err)
	require.Len(t, page.Transactions, 2)
	latest := page.Transactions[0]
	assert.True(t, latest.Points.Equal(decimal.NewFromInt(-10)))
	assert.Equal(t, "Vale-transporte", latest.RewardName)
	assert.Equal(t, "mobilidade", latest.RewardCategory)
	assert.Equal(t, "Redeemed 10 points for Vale-transporte", latest.Description)
}

func TestRedeemExactBalance(t *testing.T) {
	svcs := newLedgerServices(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svcs.accrual.AddBonus(ctx, userID, BonusInput{
		Points: points.RawNumber("25"),
		Reason: "welcome",
	})
	require.NoError(t, err)

	result, err := svcs.redemption.Redeem(ctx, userID, RedeemInput{
		Points:     points.RawNumber("25"),
		RewardName: "Caneca",
	})
	require.NoError(t, err)
	assert.True(t, result.RemainingBalance.IsZero())
}

func TestRedeemValidation(t *testing.T) {
	svcs := newLedgerServices(t)
	ctx := context.Background()
	userID := uuid.New()

	cases := []struct {
		name  string
		input RedeemInput
	}{
		{"missing reward name", RedeemInput{Points: points.RawNumber("10")}},
		{"zero points", RedeemInput{Points: points.RawNumber("0"), RewardName: "Caneca"}},
		{"negative points", RedeemInput{Points: points.RawNumber("-10"), RewardName: "Caneca"}},
		{"garbage points", RedeemInput{Points: points.RawNumber("muitos"), RewardName: "Caneca"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svcs.redemption.Redeem(ctx, userID, tc.input)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}
}

func TestRedeemIdempotentReplay(t *testing.T) {
	svcs := newLedgerServices(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svcs.accrual.AddBonus(ctx, userID, BonusInput{
		Points: points.RawNumber("100"),
		Reason: "welcome",
	})
	require.NoError(t, err)

	input := RedeemInput{
		Points:         points.RawNumber("30"),
		RewardName:     "Vale-transporte",
		IdempotencyKey: "redeem-001",
	}
	first, err := svcs.redemption.Redeem(ctx, userID, input)
	require.NoError(t, err)

	second, err := svcs.redemption.Redeem(ctx, userID, input)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.TransactionID, second.TransactionID)
	assert.True(t, second.PointsSpent.Equal(decimal.NewFromInt(30)))

	balance, err := svcs.query.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, balance.CurrentBalance.Equal(decimal.NewFromInt(70)))
}
