package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ecopontos/ecopontos-backend/pkg/db/models"
	"github.com/ecopontos/ecopontos-backend/pkg/enums"
	"github.com/ecopontos/ecopontos-backend/pkg/pagination"
)

// ErrBalanceNotFound signals that no balance row exists for the user.
var ErrBalanceNotFound = errors.New("balance not found")

// Repository manages persistence for balances and the append-only transaction log.
// Mutating methods are meant to run on a transaction handle obtained via WithTx; the
// store-level transaction is what makes the balance update and the log append atomic.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetBalance(ctx context.Context, userID uuid.UUID) (*models.PointsBalance, error)
	CreateBalance(ctx context.Context, balance *models.PointsBalance) error
	EnsureBalance(ctx context.Context, userID uuid.UUID) (*models.PointsBalance, error)
	SaveBalance(ctx context.Context, balance *models.PointsBalance) error
	AppendTransaction(ctx context.Context, txn *models.PointsTransaction) error
	FindByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*models.PointsTransaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.PointsTransaction, error)
	ListRecentRecycling(ctx context.Context, userID uuid.UUID, limit int) ([]models.PointsTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetBalance(ctx context.Context, userID uuid.UUID) (*models.PointsBalance, error) {
	var balance models.PointsBalance
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBalanceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *repository) CreateBalance(ctx context.Context, balance *models.PointsBalance) error {
	return r.db.WithContext(ctx).Create(balance).Error
}

// EnsureBalance lazily creates a zeroed balance row and returns the current row either
// way. The insert is conflict-tolerant so concurrent first reads cannot fail.
func (r *repository) EnsureBalance(ctx context.Context, userID uuid.UUID) (*models.PointsBalance, error) {
	seed := models.PointsBalance{UserID: userID}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&seed).Error; err != nil {
		return nil, err
	}
	return r.GetBalance(ctx, userID)
}

func (r *repository) SaveBalance(ctx context.Context, balance *models.PointsBalance) error {
	return r.db.WithContext(ctx).Save(balance).Error
}

func (r *repository) AppendTransaction(ctx context.Context, txn *models.PointsTransaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) FindByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*models.PointsTransaction, error) {
	if key == "" {
		return nil, nil
	}
	var txn models.PointsTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

func (r *repository) ListTransactions(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.PointsTransaction, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit)

	if cursor != nil {
		q = q.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var txns []models.PointsTransaction
	if err := q.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) ListRecentRecycling(ctx context.Context, userID uuid.UUID, limit int) ([]models.PointsTransaction, error) {
	var txns []models.PointsTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND type = ?", userID, enums.TransactionTypeRecycling).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}
