package ledgertransaction

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// LedgerTransactionRepository defines the interface for ledger transaction operations
type LedgerTransactionRepository interface {
	GetByID(ctx context.Context, id string) (*models.LedgerTransaction, error)
	ListPending(ctx context.Context) ([]models.LedgerTransaction, error)
	SetReimbursementOutcome(ctx context.Context, id string, reimbStatus models.TransactionReimbursementStatus, status models.TransactionStatus) error
}

// Repository implements LedgerTransactionRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new ledger transaction repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "ledger_transactions"

var columns = []string{"id", "description", "amount", "status", "reimbursement_status", "created_at", "updated_at", "deleted_at"}

// GetByID gets a ledger transaction by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.LedgerTransaction, error) {
	ctx, span := tracing.StartSpan(ctx, "LedgerTransactionRepository.GetByID")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()

	var tx models.LedgerTransaction
	err := r.db.GetContext(ctx, &tx, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("failed to get ledger transaction")
		return nil, fmt.Errorf("failed to get ledger transaction: %w", err)
	}

	return &tx, nil
}

// ListPending returns transactions still open for reimbursement linkage
func (r *Repository) ListPending(ctx context.Context) ([]models.LedgerTransaction, error) {
	ctx, span := tracing.StartSpan(ctx, "LedgerTransactionRepository.ListPending")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("status", models.TransactionPending),
		sb.IsNull("deleted_at"),
	)
	sb.OrderBy("created_at DESC")

	query, args := sb.Build()

	var txs []models.LedgerTransaction
	err := r.db.SelectContext(ctx, &txs, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list pending ledger transactions")
		return nil, fmt.Errorf("failed to list pending ledger transactions: %w", err)
	}

	return txs, nil
}

// SetReimbursementOutcome applies the derived transition from a reimbursement
// decision: both the reimbursement_status and the transaction's own status
// move together.
func (r *Repository) SetReimbursementOutcome(ctx context.Context, id string, reimbStatus models.TransactionReimbursementStatus, status models.TransactionStatus) error {
	ctx, span := tracing.StartSpan(ctx, "LedgerTransactionRepository.SetReimbursementOutcome")
	defer span.End()

	sb := database.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("reimbursement_status", reimbStatus),
		sb.Assign("status", status),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":                   id,
			"reimbursement_status": reimbStatus,
			"status":               status,
		}).Error("failed to set ledger transaction reimbursement outcome")
		return fmt.Errorf("failed to set ledger transaction outcome: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":                   id,
		"reimbursement_status": reimbStatus,
		"status":               status,
	}).Info("updated ledger transaction from reimbursement decision")

	return nil
}
