package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ecopontos/ecopontos-backend/internal/points"
	"github.com/ecopontos/ecopontos-backend/pkg/config"
	pkgdb "github.com/ecopontos/ecopontos-backend/pkg/db"
	"github.com/ecopontos/ecopontos-backend/pkg/db/models"
	"github.com/ecopontos/ecopontos-backend/pkg/enums"
	pkgerrors "github.com/ecopontos/ecopontos-backend/pkg/errors"
	"github.com/ecopontos/ecopontos-backend/pkg/logger"
	"github.com/ecopontos/ecopontos-backend/pkg/metrics"
)

// AccrualService credits points for recycling events and flat bonuses.
type AccrualService interface {
	Accrue(ctx context.Context, userID uuid.UUID, input AccrueInput) (*AccrueResult, error)
	AddBonus(ctx context.Context, userID uuid.UUID, input BonusInput) (*AccrueResult, error)
}

// ServiceParams groups the dependencies shared by the ledger services.
type ServiceParams struct {
	DB         *gorm.DB
	Repo       Repository
	Calculator *points.Calculator
	Logger     *logger.Logger
	Metrics    *metrics.LedgerMetrics
	Config     config.LedgerConfig
}

type accrualService struct {
	db         *gorm.DB
	repo       Repository
	calculator *points.Calculator
	logg       *logger.Logger
	metrics    *metrics.LedgerMetrics
	maxRetries int
	tolerance  decimal.Decimal
}

// NewAccrualService wires an accrual service with the provided dependencies.
func NewAccrualService(params ServiceParams) (AccrualService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db handle is required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger repository is required")
	}
	if params.Calculator == nil {
		params.Calculator = points.NewCalculator(nil)
	}
	tolerance, err := toleranceFromConfig(params.Config)
	if err != nil {
		return nil, err
	}
	return &accrualService{
		db:         params.DB,
		repo:       params.Repo,
		calculator: params.Calculator,
		logg:       params.Logger,
		metrics:    params.Metrics,
		maxRetries: params.Config.MaxTxRetries,
		tolerance:  tolerance,
	}, nil
}

func toleranceFromConfig(cfg config.LedgerConfig) (decimal.Decimal, error) {
	if cfg.PointsTolerance == "" {
		return decimal.RequireFromString("0.01"), nil
	}
	tolerance, err := decimal.NewFromString(cfg.PointsTolerance)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid points tolerance")
	}
	return tolerance, nil
}

func (s *accrualService) Accrue(ctx context.Context, userID uuid.UUID, input AccrueInput) (*AccrueResult, error) {
	start := time.Now()
	result, err := s.accrue(ctx, userID, input)
	s.observe(ctx, "accrue", start, err)
	return result, err
}

func (s *accrualService) accrue(ctx context.Context, userID uuid.UUID, input AccrueInput) (*AccrueResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity required")
	}
	if input.Material == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material is required").WithDetails(map[string]string{"material": "is required"})
	}
	if input.Location == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location is required").WithDetails(map[string]string{"location": "is required"})
	}
	unit := input.WeightUnit
	if unit == "" {
		unit = enums.WeightUnitKilogram
	}
	if !unit.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid weight unit").WithDetails(map[string]string{"weight_unit": "must be kg or g"})
	}

	weight, err := points.ParseAmount(input.Weight.String())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "weight did not parse").WithDetails(map[string]string{"weight": "must be a decimal number"})
	}
	if !weight.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "weight must be positive").WithDetails(map[string]string{"weight": "must be greater than zero"})
	}

	total, err := points.ParseAmount(input.TotalPoints.String())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "total points did not parse").WithDetails(map[string]string{"total_points": "must be a decimal number"})
	}
	if !total.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total points must be positive").WithDetails(map[string]string{"total_points": "must be greater than zero"})
	}

	// The client computes the total for preview, but the ledger does not take its word
	// for it: when the catalog knows both keys, the server recomputes and rejects totals
	// outside the tolerance. Unknown keys fall back to the positivity check alone so
	// older clients with stale catalogs keep working.
	_, materialKnown := s.calculator.Catalog().Material(input.Material)
	_, locationKnown := s.calculator.Catalog().Location(input.Location)
	if materialKnown && locationKnown {
		expected := s.calculator.Calculate(input.Material, input.Weight.String(), unit, input.Location)
		if total.Sub(expected.FinalPoints).Abs().GreaterThan(s.tolerance) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "total points does not match server calculation").
				WithDetails(map[string]string{
					"total_points": fmt.Sprintf("expected %s", expected.FinalPoints),
				})
		}
	}

	txn := &models.PointsTransaction{
		UserID:           userID,
		Type:             enums.TransactionTypeRecycling,
		Points:           total,
		Description:      fmt.Sprintf("Recycling of %s%s of %s at %s", weight, unit, input.Material, input.Location),
		Material:         input.Material,
		Weight:           weight,
		WeightUnit:       unit,
		Location:         input.Location,
		LocationID:       input.LocationID,
		PointsPerUnit:    points.Normalize(input.PointsPerUnit.String()),
		BasePoints:       points.Normalize(input.BasePoints.String()),
		BonusPoints:      points.Normalize(input.BonusPoints.String()),
		ConfirmationCode: input.ConfirmationCode,
	}
	return s.credit(ctx, userID, txn, input.IdempotencyKey, true)
}

func (s *accrualService) AddBonus(ctx context.Context, userID uuid.UUID, input BonusInput) (*AccrueResult, error) {
	start := time.Now()
	result, err := s.addBonus(ctx, userID, input)
	s.observe(ctx, "add_bonus", start, err)
	return result, err
}

func (s *accrualService) addBonus(ctx context.Context, userID uuid.UUID, input BonusInput) (*AccrueResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity required")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is required").WithDetails(map[string]string{"reason": "is required"})
	}
	amount, err := points.ParseAmount(input.Points.String())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "points did not parse").WithDetails(map[string]string{"points": "must be a decimal number"})
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "points must be positive").WithDetails(map[string]string{"points": "must be greater than zero"})
	}

	txn := &models.PointsTransaction{
		UserID:      userID,
		Type:        enums.TransactionTypeBonus,
		Points:      amount,
		Description: fmt.Sprintf("Bonus: %s", input.Reason),
		Reason:      input.Reason,
	}
	return s.credit(ctx, userID, txn, input.IdempotencyKey, false)
}

// credit runs the shared atomic accrual path: replay check, lazy balance upsert,
// balance update and transaction append, all inside one store transaction.
func (s *accrualService) credit(ctx context.Context, userID uuid.UUID, txn *models.PointsTransaction, idempotencyKey string, countRecycling bool) (*AccrueResult, error) {
	if idempotencyKey != "" {
		txn.IdempotencyKey = &idempotencyKey
	}

	var result *AccrueResult
	err := pkgdb.WithSerializableTx(ctx, s.db, s.maxRetries, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if idempotencyKey != "" {
			prior, err := repo.FindByIdempotencyKey(ctx, userID, idempotencyKey)
			if err != nil {
				return err
			}
			if prior != nil {
				balance, err := repo.GetBalance(ctx, userID)
				if err != nil {
					return err
				}
				result = &AccrueResult{
					TransactionID: prior.ID,
					NewBalance:    balance.CurrentBalance,
					PointsAdded:   prior.Points,
					Replayed:      true,
				}
				return nil
			}
		}

		balance, err := repo.GetBalance(ctx, userID)
		created := false
		if err == ErrBalanceNotFound {
			balance = &models.PointsBalance{UserID: userID}
			created = true
		} else if err != nil {
			return err
		}

		balance.CurrentBalance = balance.CurrentBalance.Add(txn.Points)
		balance.TotalEarned = balance.TotalEarned.Add(txn.Points)
		if countRecycling {
			balance.RecyclingCount++
		}

		if created {
			if err := repo.CreateBalance(ctx, balance); err != nil {
				return err
			}
		} else if err := repo.SaveBalance(ctx, balance); err != nil {
			return err
		}

		txn.ID = uuid.Nil
		if err := repo.AppendTransaction(ctx, txn); err != nil {
			return err
		}

		result = &AccrueResult{
			TransactionID: txn.ID,
			NewBalance:    balance.CurrentBalance,
			PointsAdded:   txn.Points,
		}
		return nil
	}, s.countRetry)

	if err != nil {
		// A concurrent request with the same key can slip past the replay check and hit
		// the unique index instead; resolve it by replaying the winner's result.
		if idempotencyKey != "" && pkgdb.IsUniqueViolation(err, "idx_points_transactions_idem") {
			return s.replay(ctx, userID, idempotencyKey)
		}
		return nil, mapStoreError(err, "accrual failed")
	}
	return result, nil
}

func (s *accrualService) replay(ctx context.Context, userID uuid.UUID, idempotencyKey string) (*AccrueResult, error) {
	prior, err := s.repo.FindByIdempotencyKey(ctx, userID, idempotencyKey)
	if err != nil || prior == nil {
		return nil, mapStoreError(err, "idempotency replay failed")
	}
	balance, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err, "idempotency replay failed")
	}
	return &AccrueResult{
		TransactionID: prior.ID,
		NewBalance:    balance.CurrentBalance,
		PointsAdded:   prior.Points,
		Replayed:      true,
	}, nil
}

func (s *accrualService) countRetry() {
	s.metrics.IncRetry()
}

func (s *accrualService) observe(ctx context.Context, op string, start time.Time, err error) {
	s.metrics.ObserveDuration(op, time.Since(start))
	if err != nil {
		s.metrics.IncFailure(op)
		return
	}
	s.metrics.IncSuccess(op)
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "op", op), "ledger.credit")
	}
}

// mapStoreError keeps typed errors intact and wraps everything else as an opaque
// dependency failure so store internals never leak to clients.
func mapStoreError(err error, message string) error {
	if err == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, message)
	}
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	if pkgdb.IsSerializationFailure(err) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "balance update lost a concurrent race")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
