package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ecopontos/ecopontos-backend/internal/points"
	"github.com/ecopontos/ecopontos-backend/pkg/config"
	pkgerrors "github.com/ecopontos/ecopontos-backend/pkg/errors"
	"github.com/ecopontos/ecopontos-backend/pkg/pagination"
)

func paginationParams(limit int) pagination.Params {
	return pagination.Params{Limit: limit}
}

type ledgerServices struct {
	accrual    AccrualService
	redemption RedemptionService
	query      QueryService
	db         *gorm.DB
	repo       Repository
}

func newLedgerServices(t *testing.T) ledgerServices {
	t.Helper()

	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	params := ServiceParams{
		DB:         db,
		Repo:       repo,
		Calculator: points.NewCalculator(points.DefaultCatalog()),
		Config: config.LedgerConfig{
			MaxTxRetries:    5,
			StatsSampleSize: 100,
			PointsTolerance: "0.01",
		},
	}

	accrual, err := NewAccrualService(params)
	require.NoError(t, err)
	redemption, err := NewRedemptionService(params)
	require.NoError(t, err)
	query, err := NewQueryService(params)
	require.NoError(t, err)

	return ledgerServices{
		accrual:    accrual,
		redemption: redemption,
		query:      query,
		db:         db,
		repo:       repo,
	}
}

func plasticAccrual(total string) AccrueInput {
	return AccrueInput{
		Material:    "Plástico",
		Weight:      points.RawNumber("2"),
		WeightUnit:  "kg",
		Location:    "Shopping Iguatemi",
		TotalPoints: points.RawNumber(total),
	}
}

func TestAccrueCreditsBalanceAndLogsTransaction(t *testing.T) {
	svcs := newLedgerServices(t)
	ctx := context.Background()
	userID := uuid.New()

	result, err := svcs.accrual.Accrue(ctx, userID, plasticAccrual("12.9"))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, result.TransactionID)
	assert.False(t, result.Replayed)
	assert.True(t, result.PointsAdded.Equal(decimal.RequireFromString("12.9")))
	assert.True(t, result.NewBalance.Equal(decimal.RequireFromString("12.9")))

	balance, err := svcs.query.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, balance.CurrentBalance.Equal(decimal.RequireFromString("12.9")))
	assert.True(t, balance.TotalEarned.Equal(decimal.RequireFromString("12.9")))
	assert.True(t, balance.TotalSpent.IsZero())
	assert.Equal(t, 1, balance.RecyclingCount)

	txn, err := svcs.repo.ListRecentRecycling(ctx, userID, 1)
	require.NoError(t, err)
	require.Len(t, txn, 1)
	assert.Equal(t, "Recycling of 2kg of Plástico at Shopping Iguatemi", txn[0].Description)
}

func TestAccrueRejectsMismatchedTotal(t *testing.T) {
	svcs := newLedgerServices(t)
	ctx := context.Background()

	// Plástico at Shopping Iguatemi is fully known to the catalog, so an inflated
	// total outside the tolerance is rejected.
	_, err := svcs.accrual.Accrue(ctx, uuid.New(), plasticAccrual("99"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestAccrueUnknownMaterialTrustsPositiveTotal(t *testing.T) {
	svcs := newLedgerServices(t)
	ctx := context.Background()
	userID := uuid.New()

	input := plasticAccrual("7.5")
	input.Material = "Isopor"

	result, err := svcs.accrual.Accrue(ctx, userID, input)
	require.NoError(t, err)
	assert.True(t, result.PointsAdded.Equal(decimal.RequireFromString("7.5")))
}

func TestAccrueValidation(t *testing.T) {
	svcs := newLedgerServices(t)
	ctx := context.Background()
	userID := uuid.New()

	cases := []struct {
		name   string
		mutate func(*AccrueInput)
	}{
		{"missing material", func(in *AccrueInput) { in.Material = "" }},
		{"missing location", func(in *AccrueInput) { in.Location = "" }},
		{"zero weight", func(in *AccrueInput) { in.Weight = points.RawNumber("0") }},
		{"negative weight", func(in *AccrueInput) { in.Weight = points.RawNumber("-1") }},
		{"garbage weight", func(in *AccrueInput) { in.Weight = points.RawNumber("abc") }},
		{"zero total", func(in *AccrueInput) { in.TotalPoints = points.RawNumber("0") }},
		{"negative total", func(in *AccrueInput) { in.TotalPoints = points.RawNumber("-3") }},
		{"bad unit", func(in *AccrueInput) { in.WeightUnit = "lb" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := plasticAccrual("12.9")
			tc.mutate(&input)
			_, err := svcs.accrual.Accrue(ctx, userID, input)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}

	// Nothing was written by any rejected submission.
	balance, err := svcs.query.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, balance.CurrentBalance.IsZero())
}

func TestAccrueCommaDecimalInput(t *testing.T) {
	svcs := newLedgerServices(t)
	ctx := context.Background()
	userID := uuid.New()

	input := plasticAccrual("12,9")
	input.Weight = points.RawNumber("2,0")

	result, err := svcs.accrual.Accrue(ctx, userID, input)
	require.NoError(t, err)
	assert.True(t, result.PointsAdded.Equal(decimal.RequireFromString("12.9")))
}

func TestAccrueIdempotentReplay(t *testing.T) {
	svcs := newLedgerServices(t)
	ctx := context.Background()
	userID := uuid.New()

	input := plasticAccrual("12.9")
	input.IdempotencyKey = "scan-001"

	first, err := svcs.accrual.Accrue(ctx, userID, input)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := svcs.accrual.Accrue(ctx, userID, input)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.TransactionID, second.TransactionID)
	assert.True(t, second.NewBalance.Equal(first.NewBalance))

	balance, err := svcs.query.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, balance.CurrentBalance.Equal(decimal.RequireFromString("12.9")))
	assert.Equal(t, 1, balance.RecyclingCount)
}

func TestAddBonus(t *testing.T) {
	svcs := newLedgerServices(t)
	ctx := context.Background()
	userID := uuid.New()

	result, err := svcs.accrual.AddBonus(ctx, userID, BonusInput{
		Points: points.RawNumber("50"),
		Reason: "Campanha semana do meio ambiente",
	})
	require.NoError(t, err)
	assert.True(t, result.NewBalance.Equal(decimal.NewFromInt(50)))

	balance, err := svcs.query.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, balance.TotalEarned.Equal(decimal.NewFromInt(50)))
	// Bonuses never count as recycling activity.
	assert.Equal(t, 0, balance.RecyclingCount)

	_, err = svcs.accrual.AddBonus(ctx, userID, BonusInput{Points: points.RawNumber("10")})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestAccrueConcurrentSubmissions(t *testing.T) {
	svcs := newLedgerServices(t)
	ctx := context.Background()
	userID := uuid.New()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svcs.accrual.AddBonus(ctx, userID, BonusInput{
				Points: points.RawNumber("10"),
				Reason: "stress",
			})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	balance, err := svcs.query.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.True(t, balance.CurrentBalance.Equal(decimal.NewFromInt(10*workers)))
	assert.True(t, balance.TotalEarned.Equal(decimal.NewFromInt(10*workers)))

	page, err := svcs.query.ListTransactions(ctx, userID, paginationParams(workers + 1))
	require.NoError(t, err)
	assert.Len(t, page.Transactions, workers)
}
