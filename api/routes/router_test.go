package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ecopontos/ecopontos-backend/internal/ledger"
	"github.com/ecopontos/ecopontos-backend/internal/points"
	pkgAuth "github.com/ecopontos/ecopontos-backend/pkg/auth"
	"github.com/ecopontos/ecopontos-backend/pkg/config"
	"github.com/ecopontos/ecopontos-backend/pkg/enums"
	"github.com/ecopontos/ecopontos-backend/pkg/pagination"
	"github.com/ecopontos/ecopontos-backend/pkg/types"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubAccrualService struct {
	lastInput ledger.AccrueInput
}

func (s *stubAccrualService) Accrue(_ context.Context, _ uuid.UUID, input ledger.AccrueInput) (*ledger.AccrueResult, error) {
	s.lastInput = input
	return &ledger.AccrueResult{
		TransactionID: uuid.New(),
		NewBalance:    decimal.RequireFromString("12.9"),
		PointsAdded:   decimal.RequireFromString("12.9"),
	}, nil
}

func (s *stubAccrualService) AddBonus(_ context.Context, _ uuid.UUID, input ledger.BonusInput) (*ledger.AccrueResult, error) {
	return &ledger.AccrueResult{
		TransactionID: uuid.New(),
		NewBalance:    decimal.NewFromInt(50),
		PointsAdded:   decimal.NewFromInt(50),
	}, nil
}

type stubRedemptionService struct{}

func (stubRedemptionService) Redeem(context.Context, uuid.UUID, ledger.RedeemInput) (*ledger.RedeemResult, error) {
	return &ledger.RedeemResult{
		TransactionID:    uuid.New(),
		RemainingBalance: decimal.NewFromInt(2),
		PointsSpent:      decimal.NewFromInt(10),
	}, nil
}

type stubQueryService struct{}

func (stubQueryService) GetBalance(_ context.Context, userID uuid.UUID) (*ledger.BalanceDTO, error) {
	return &ledger.BalanceDTO{UserID: userID}, nil
}

func (stubQueryService) ListTransactions(context.Context, uuid.UUID, pagination.Params) (*ledger.TransactionPage, error) {
	return &ledger.TransactionPage{Transactions: []ledger.TransactionDTO{}}, nil
}

func (stubQueryService) GetStats(context.Context, uuid.UUID) (*ledger.Stats, error) {
	return &ledger.Stats{}, nil
}

func (stubQueryService) Preview(context.Context, string, string, enums.WeightUnit, string) (*points.Result, error) {
	return &points.Result{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: config.AppEnvDev},
		JWT: config.JWTConfig{Secret: "test-secret", Issuer: "ecopontos-test", ExpirationMinutes: 60},
	}
}

func newTestRouter(t *testing.T) (http.Handler, string) {
	t.Helper()

	cfg := testConfig()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	router := NewRouter(Deps{
		Config:     cfg,
		DBPinger:   stubPinger{},
		Accrual:    &stubAccrualService{},
		Redemption: stubRedemptionService{},
		Query:      stubQueryService{},
	})
	return router, token
}

func TestHealthEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestPointsRoutesRequireAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/points/recycle"},
		{http.MethodPost, "/api/v1/points/redeem"},
		{http.MethodPost, "/api/v1/points/bonus"},
		{http.MethodGet, "/api/v1/points/balance"},
		{http.MethodGet, "/api/v1/points/transactions"},
		{http.MethodGet, "/api/v1/points/stats"},
		{http.MethodGet, "/api/v1/points/preview"},
	}
	for _, tt := range paths {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(tt.method, tt.path, nil))
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401 got %d", tt.method, tt.path, resp.Code)
		}
	}
}

func TestRecycleRouteWired(t *testing.T) {
	router, token := newTestRouter(t)

	body := `{"material":"Plástico","weight":"2","weight_unit":"kg","location":"Shopping Iguatemi","total_points":"12.9"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/points/recycle", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope types.SuccessEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	payload, ok := envelope.Data.(map[string]any)
	if !ok {
		t.Fatalf("unexpected payload %T", envelope.Data)
	}
	if payload["new_balance"] != "12.9" {
		t.Fatalf("unexpected balance %v", payload["new_balance"])
	}
}

func TestRecycleRouteRejectsUnknownFields(t *testing.T) {
	router, token := newTestRouter(t)

	body := `{"material":"Plástico","weight":"2","location":"X","total_points":"12.9","hacker_field":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/points/recycle", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestBalanceRouteWired(t *testing.T) {
	router, token := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/points/balance", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
