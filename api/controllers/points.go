package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ecopontos/ecopontos-backend/api/middleware"
	"github.com/ecopontos/ecopontos-backend/api/responses"
	"github.com/ecopontos/ecopontos-backend/api/validators"
	"github.com/ecopontos/ecopontos-backend/internal/ledger"
	"github.com/ecopontos/ecopontos-backend/internal/points"
	"github.com/ecopontos/ecopontos-backend/pkg/enums"
	pkgerrors "github.com/ecopontos/ecopontos-backend/pkg/errors"
	"github.com/ecopontos/ecopontos-backend/pkg/logger"
	"github.com/ecopontos/ecopontos-backend/pkg/pagination"
)

type recyclePayload struct {
	Material         string           `json:"material" validate:"required"`
	Weight           points.RawNumber `json:"weight" validate:"required"`
	WeightUnit       string           `json:"weight_unit" validate:"omitempty,oneof=kg g"`
	Location         string           `json:"location" validate:"required"`
	LocationID       string           `json:"location_id"`
	PointsPerUnit    points.RawNumber `json:"points_per_unit"`
	TotalPoints      points.RawNumber `json:"total_points" validate:"required"`
	BasePoints       points.RawNumber `json:"base_points"`
	BonusPoints      points.RawNumber `json:"bonus_points"`
	ConfirmationCode string           `json:"confirmation_code"`
}

type redeemPayload struct {
	Points         points.RawNumber `json:"points" validate:"required"`
	RewardName     string           `json:"reward_name" validate:"required"`
	RewardCategory string           `json:"reward_category"`
}

type bonusPayload struct {
	Points points.RawNumber `json:"points" validate:"required"`
	Reason string           `json:"reason" validate:"required"`
}

func callerID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

// PointsRecycle credits points for a confirmed recycling drop-off.
func PointsRecycle(svc ledger.AccrualService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "accrual service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload recyclePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Accrue(ctx, userID, ledger.AccrueInput{
			Material:         payload.Material,
			Weight:           payload.Weight,
			WeightUnit:       enums.WeightUnit(payload.WeightUnit),
			Location:         payload.Location,
			LocationID:       payload.LocationID,
			PointsPerUnit:    payload.PointsPerUnit,
			TotalPoints:      payload.TotalPoints,
			BasePoints:       payload.BasePoints,
			BonusPoints:      payload.BonusPoints,
			ConfirmationCode: payload.ConfirmationCode,
			IdempotencyKey:   strings.TrimSpace(r.Header.Get("Idempotency-Key")),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Replayed {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// PointsRedeem spends points on a reward.
func PointsRedeem(svc ledger.RedemptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "redemption service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload redeemPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Redeem(ctx, userID, ledger.RedeemInput{
			Points:         payload.Points,
			RewardName:     payload.RewardName,
			RewardCategory: payload.RewardCategory,
			IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Replayed {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// PointsBonus credits a flat promotional or administrative bonus.
func PointsBonus(svc ledger.AccrualService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "accrual service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload bonusPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.AddBonus(ctx, userID, ledger.BonusInput{
			Points:         payload.Points,
			Reason:         payload.Reason,
			IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Replayed {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// PointsBalance returns the caller's balance summary.
func PointsBalance(svc ledger.QueryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "query service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		balance, err := svc.GetBalance(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, balance)
	}
}

// PointsTransactions returns a page of the caller's transaction history.
func PointsTransactions(svc ledger.QueryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "query service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		page, err := svc.ListTransactions(ctx, userID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

// PointsStats returns aggregates over the caller's recent recycling activity.
func PointsStats(svc ledger.QueryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "query service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		stats, err := svc.GetStats(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, stats)
	}
}

// PointsPreview computes the points a submission would earn without recording it.
func PointsPreview(svc ledger.QueryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "query service unavailable"))
			return
		}

		if _, err := callerID(r); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		query := r.URL.Query()
		result, err := svc.Preview(ctx,
			strings.TrimSpace(query.Get("material")),
			strings.TrimSpace(query.Get("weight")),
			enums.WeightUnit(strings.TrimSpace(query.Get("weight_unit"))),
			strings.TrimSpace(query.Get("location")),
		)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
