package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecopontos/ecopontos-backend/internal/points"
	pkgdb "github.com/ecopontos/ecopontos-backend/pkg/db"
	"github.com/ecopontos/ecopontos-backend/pkg/db/models"
	"github.com/ecopontos/ecopontos-backend/pkg/enums"
	pkgerrors "github.com/ecopontos/ecopontos-backend/pkg/errors"
	"github.com/ecopontos/ecopontos-backend/pkg/logger"
	"github.com/ecopontos/ecopontos-backend/pkg/metrics"
)

// RedemptionService spends points against a user's balance.
type RedemptionService interface {
	Redeem(ctx context.Context, userID uuid.UUID, input RedeemInput) (*RedeemResult, error)
}

type redemptionService struct {
	db         *gorm.DB
	repo       Repository
	logg       *logger.Logger
	metrics    *metrics.LedgerMetrics
	maxRetries int
}

// NewRedemptionService wires a redemption service with the provided dependencies.
func NewRedemptionService(params ServiceParams) (RedemptionService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "db handle is required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger repository is required")
	}
	return &redemptionService{
		db:         params.DB,
		repo:       params.Repo,
		logg:       params.Logger,
		metrics:    params.Metrics,
		maxRetries: params.Config.MaxTxRetries,
	}, nil
}

func (s *redemptionService) Redeem(ctx context.Context, userID uuid.UUID, input RedeemInput) (*RedeemResult, error) {
	start := time.Now()
	result, err := s.redeem(ctx, userID, input)
	s.metrics.ObserveDuration("redeem", time.Since(start))
	if err != nil {
		s.metrics.IncFailure("redeem")
	} else {
		s.metrics.IncSuccess("redeem")
	}
	return result, err
}

func (s *redemptionService) redeem(ctx context.Context, userID uuid.UUID, input RedeemInput) (*RedeemResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity required")
	}
	if input.RewardName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reward name is required").WithDetails(map[string]string{"reward_name": "is required"})
	}
	amount, err := points.ParseAmount(input.Points.String())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "points did not parse").WithDetails(map[string]string{"points": "must be a decimal number"})
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "points must be positive").WithDetails(map[string]string{"points": "must be greater than zero"})
	}

	txn := &models.PointsTransaction{
		UserID:         userID,
		Type:           enums.TransactionTypeReward,
		Points:         amount.Neg(),
		Description:    fmt.Sprintf("Redeemed %s points for %s", amount, input.RewardName),
		RewardName:     input.RewardName,
		RewardCategory: input.RewardCategory,
	}
	if input.IdempotencyKey != "" {
		txn.IdempotencyKey = &input.IdempotencyKey
	}

	var result *RedeemResult
	txErr := pkgdb.WithSerializableTx(ctx, s.db, s.maxRetries, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if input.IdempotencyKey != "" {
			prior, err := repo.FindByIdempotencyKey(ctx, userID, input.IdempotencyKey)
			if err != nil {
				return err
			}
			if prior != nil {
				balance, err := repo.GetBalance(ctx, userID)
				if err != nil {
					return err
				}
				result = &RedeemResult{
					TransactionID:    prior.ID,
					RemainingBalance: balance.CurrentBalance,
					PointsSpent:      prior.Points.Neg(),
					Replayed:         true,
				}
				return nil
			}
		}

		balance, err := repo.GetBalance(ctx, userID)
		if err == ErrBalanceNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no points balance for user")
		}
		if err != nil {
			return err
		}
		if balance.CurrentBalance.LessThan(amount) {
			return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "balance too low for redemption").
				WithDetails(map[string]string{
					"current_balance": balance.CurrentBalance.String(),
					"requested":       amount.String(),
				})
		}

		balance.CurrentBalance = balance.CurrentBalance.Sub(amount)
		balance.TotalSpent = balance.TotalSpent.Add(amount)
		if err := repo.SaveBalance(ctx, balance); err != nil {
			return err
		}

		txn.ID = uuid.Nil
		if err := repo.AppendTransaction(ctx, txn); err != nil {
			return err
		}

		result = &RedeemResult{
			TransactionID:    txn.ID,
			RemainingBalance: balance.CurrentBalance,
			PointsSpent:      amount,
		}
		return nil
	}, s.metrics.IncRetry)

	if txErr != nil {
		if input.IdempotencyKey != "" && pkgdb.IsUniqueViolation(txErr, "idx_points_transactions_idem") {
			return s.replay(ctx, userID, input.IdempotencyKey)
		}
		return nil, mapStoreError(txErr, "redemption failed")
	}
	return result, nil
}

func (s *redemptionService) replay(ctx context.Context, userID uuid.UUID, idempotencyKey string) (*RedeemResult, error) {
	prior, err := s.repo.FindByIdempotencyKey(ctx, userID, idempotencyKey)
	if err != nil || prior == nil {
		return nil, mapStoreError(err, "idempotency replay failed")
	}
	balance, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		return nil, mapStoreError(err, "idempotency replay failed")
	}
	return &RedeemResult{
		TransactionID:    prior.ID,
		RemainingBalance: balance.CurrentBalance,
		PointsSpent:      prior.Points.Neg(),
		Replayed:         true,
	}, nil
}
