package relationships

import (
	"context"

	"github.com/Ramsey-B/clover/internal/repositories/entityref"
	"github.com/Ramsey-B/clover/internal/repositories/ledgertransaction"
	"github.com/Ramsey-B/clover/internal/repositories/reimbursement"
	"github.com/Ramsey-B/clover/pkg/models"
)

// RefAdapter serves kinds that live in the linkable_entities projection table
// (receipts, meeting minutes, budgets, inventory items)
type RefAdapter struct {
	kind models.EntityType
	repo entityref.EntityRefRepository
}

// NewRefAdapter creates an adapter for a projection-table kind
func NewRefAdapter(kind models.EntityType, repo entityref.EntityRefRepository) *RefAdapter {
	return &RefAdapter{kind: kind, repo: repo}
}

func (a *RefAdapter) Kind() models.EntityType { return a.kind }

func (a *RefAdapter) GetByIDs(ctx context.Context, ids []string) ([]models.EntityRef, error) {
	return a.repo.GetByIDs(ctx, a.kind, ids)
}

func (a *RefAdapter) ListOpen(ctx context.Context) ([]models.EntityRef, error) {
	return a.repo.ListOpen(ctx, a.kind)
}

// TransactionAdapter projects ledger transactions into entity refs
type TransactionAdapter struct {
	repo ledgertransaction.LedgerTransactionRepository
}

// NewTransactionAdapter creates an adapter for ledger transactions
func NewTransactionAdapter(repo ledgertransaction.LedgerTransactionRepository) *TransactionAdapter {
	return &TransactionAdapter{repo: repo}
}

func (a *TransactionAdapter) Kind() models.EntityType { return models.EntityTypeTransaction }

func (a *TransactionAdapter) GetByIDs(ctx context.Context, ids []string) ([]models.EntityRef, error) {
	refs := make([]models.EntityRef, 0, len(ids))
	for _, id := range ids {
		tx, err := a.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if tx == nil {
			continue
		}
		amount := tx.Amount
		refs = append(refs, models.EntityRef{
			EntityType:  models.EntityTypeTransaction,
			ID:          tx.ID,
			DisplayName: tx.Description,
			Status:      string(tx.Status),
			Amount:      &amount,
		})
	}
	return refs, nil
}

// ListOpen returns pending transactions; completed, paused and declined
// transactions are not candidates for new reimbursement links.
func (a *TransactionAdapter) ListOpen(ctx context.Context) ([]models.EntityRef, error) {
	txs, err := a.repo.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	refs := make([]models.EntityRef, 0, len(txs))
	for _, tx := range txs {
		amount := tx.Amount
		refs = append(refs, models.EntityRef{
			EntityType:  models.EntityTypeTransaction,
			ID:          tx.ID,
			DisplayName: tx.Description,
			Status:      string(tx.Status),
			Amount:      &amount,
		})
	}
	return refs, nil
}

// ReimbursementAdapter projects reimbursement requests into entity refs, so
// edges can be walked from the other side too
type ReimbursementAdapter struct {
	repo reimbursement.ReimbursementRepository
}

// NewReimbursementAdapter creates an adapter for reimbursement requests
func NewReimbursementAdapter(repo reimbursement.ReimbursementRepository) *ReimbursementAdapter {
	return &ReimbursementAdapter{repo: repo}
}

func (a *ReimbursementAdapter) Kind() models.EntityType { return models.EntityTypeReimbursement }

func (a *ReimbursementAdapter) GetByIDs(ctx context.Context, ids []string) ([]models.EntityRef, error) {
	refs := make([]models.EntityRef, 0, len(ids))
	for _, id := range ids {
		req, err := a.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if req == nil {
			continue
		}
		amount := req.Amount
		refs = append(refs, models.EntityRef{
			EntityType:  models.EntityTypeReimbursement,
			ID:          req.ID,
			DisplayName: req.Description,
			Status:      string(req.Status),
			Amount:      &amount,
		})
	}
	return refs, nil
}

// ListOpen returns nothing; links are initiated from the reimbursement side,
// so reimbursements are never offered as candidates.
func (a *ReimbursementAdapter) ListOpen(ctx context.Context) ([]models.EntityRef, error) {
	return nil, nil
}
