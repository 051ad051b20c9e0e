package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ecopontos/ecopontos-backend/internal/points"
	"github.com/ecopontos/ecopontos-backend/pkg/db/models"
	"github.com/ecopontos/ecopontos-backend/pkg/enums"
	pkgerrors "github.com/ecopontos/ecopontos-backend/pkg/errors"
	"github.com/ecopontos/ecopontos-backend/pkg/logger"
	"github.com/ecopontos/ecopontos-backend/pkg/metrics"
	"github.com/ecopontos/ecopontos-backend/pkg/pagination"
)

// QueryService is the read side of the ledger: balances, history pages, aggregate
// stats, and point previews that never touch stored state.
type QueryService interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (*BalanceDTO, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TransactionPage, error)
	GetStats(ctx context.Context, userID uuid.UUID) (*Stats, error)
	Preview(ctx context.Context, material, weight string, unit enums.WeightUnit, location string) (*points.Result, error)
}

type queryService struct {
	db         *gorm.DB
	repo       Repository
	calculator *points.Calculator
	logg       *logger.Logger
	metrics    *metrics.LedgerMetrics
	sampleSize int
}

// NewQueryService wires the read-side service.
func NewQueryService(params ServiceParams) (QueryService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db handle is required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger repository is required")
	}
	if params.Calculator == nil {
		params.Calculator = points.NewCalculator(nil)
	}
	sampleSize := params.Config.StatsSampleSize
	if sampleSize <= 0 {
		sampleSize = 100
	}
	return &queryService{
		db:         params.DB,
		repo:       params.Repo,
		calculator: params.Calculator,
		logg:       params.Logger,
		metrics:    params.Metrics,
		sampleSize: sampleSize,
	}, nil
}

// GetBalance returns the caller's balance, creating a zeroed row on first read so
// new users see zeros rather than a not-found error.
func (s *queryService) GetBalance(ctx context.Context, userID uuid.UUID) (*BalanceDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity required")
	}
	start := time.Now()
	balance, err := s.repo.EnsureBalance(ctx, userID)
	s.metrics.ObserveDuration("get_balance", time.Since(start))
	if err != nil {
		s.metrics.IncFailure("get_balance")
		return nil, mapStoreError(err, "balance lookup failed")
	}
	s.metrics.IncSuccess("get_balance")
	return &BalanceDTO{
		UserID:         balance.UserID,
		CurrentBalance: balance.CurrentBalance,
		TotalEarned:    balance.TotalEarned,
		TotalSpent:     balance.TotalSpent,
		RecyclingCount: balance.RecyclingCount,
		CreatedAt:      balance.CreatedAt,
		UpdatedAt:      balance.UpdatedAt,
	}, nil
}

func (s *queryService) ListTransactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (*TransactionPage, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity required")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor").WithDetails(map[string]string{"cursor": "is malformed"})
	}

	start := time.Now()
	txns, err := s.repo.ListTransactions(ctx, userID, cursor, limit)
	s.metrics.ObserveDuration("list_transactions", time.Since(start))
	if err != nil {
		s.metrics.IncFailure("list_transactions")
		return nil, mapStoreError(err, "transaction listing failed")
	}
	s.metrics.IncSuccess("list_transactions")

	page := &TransactionPage{
		Transactions: make([]TransactionDTO, 0, len(txns)),
		HasMore:      len(txns) == limit,
	}
	for i := range txns {
		page.Transactions = append(page.Transactions, toTransactionDTO(&txns[i]))
	}
	if page.HasMore && len(txns) > 0 {
		last := txns[len(txns)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return page, nil
}

// GetStats derives aggregates from the most recent recycling entries. The sample size
// bounds the scan so the endpoint stays cheap regardless of history length.
func (s *queryService) GetStats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity required")
	}
	start := time.Now()
	txns, err := s.repo.ListRecentRecycling(ctx, userID, s.sampleSize)
	s.metrics.ObserveDuration("get_stats", time.Since(start))
	if err != nil {
		s.metrics.IncFailure("get_stats")
		return nil, mapStoreError(err, "stats lookup failed")
	}
	s.metrics.IncSuccess("get_stats")

	stats := &Stats{
		RecyclingCount: len(txns),
		TotalWeightKg:  decimal.Zero,
		AveragePoints:  decimal.Zero,
	}
	if len(txns) == 0 {
		return stats, nil
	}

	materials := make(map[string]struct{}, len(txns))
	pointsSum := decimal.Zero
	for i := range txns {
		txn := &txns[i]
		weight := txn.Weight
		if txn.WeightUnit == enums.WeightUnitGram {
			weight = weight.Div(decimal.NewFromInt(1000))
		}
		stats.TotalWeightKg = stats.TotalWeightKg.Add(weight)
		pointsSum = pointsSum.Add(txn.Points)
		if txn.Material != "" {
			materials[txn.Material] = struct{}{}
		}
	}
	stats.DistinctMaterials = len(materials)
	stats.TotalWeightKg = stats.TotalWeightKg.Round(3)
	stats.AveragePoints = pointsSum.Div(decimal.NewFromInt(int64(len(txns)))).Round(2)
	return stats, nil
}

// Preview runs the calculator without writing anything, so clients can show the
// points a submission would earn.
func (s *queryService) Preview(ctx context.Context, material, weight string, unit enums.WeightUnit, location string) (*points.Result, error) {
	if material == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material is required").WithDetails(map[string]string{"material": "is required"})
	}
	if _, err := points.ParseAmount(weight); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "weight did not parse").WithDetails(map[string]string{"weight": "must be a decimal number"})
	}
	if unit == "" {
		unit = enums.WeightUnitKilogram
	}
	if !unit.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid weight unit").WithDetails(map[string]string{"weight_unit": "must be kg or g"})
	}
	result := s.calculator.Calculate(material, weight, unit, location)
	return &result, nil
}

func toTransactionDTO(txn *models.PointsTransaction) TransactionDTO {
	dto := TransactionDTO{
		ID:          txn.ID,
		Type:        txn.Type,
		Points:      txn.Points,
		Description: txn.Description,
		CreatedAt:   txn.CreatedAt,
	}
	switch txn.Type {
	case enums.TransactionTypeRecycling:
		weight := txn.Weight
		dto.Material = txn.Material
		dto.Weight = &weight
		dto.WeightUnit = txn.WeightUnit
		dto.Location = txn.Location
		dto.LocationID = txn.LocationID
		if txn.PointsPerUnit.IsPositive() {
			ppu := txn.PointsPerUnit
			dto.PointsPerUnit = &ppu
		}
		if txn.BasePoints.IsPositive() {
			base := txn.BasePoints
			dto.BasePoints = &base
		}
		if txn.BonusPoints.IsPositive() {
			bonus := txn.BonusPoints
			dto.BonusPoints = &bonus
		}
		dto.ConfirmationCode = txn.ConfirmationCode
	case enums.TransactionTypeReward:
		dto.RewardName = txn.RewardName
		dto.RewardCategory = txn.RewardCategory
	case enums.TransactionTypeBonus:
		dto.Reason = txn.Reason
	}
	return dto
}
