// Package propagate applies a classified reply decision to reimbursement and
// ledger transaction state, idempotently.
package propagate

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Outcome describes what a propagation did
type Outcome string

const (
	// OutcomeApplied means the decision changed the request status
	OutcomeApplied Outcome = "applied"
	// OutcomeTerminal means the request was already decided; the reply was
	// recorded for audit only
	OutcomeTerminal Outcome = "terminal"
	// OutcomeRecorded means the decision was unclear; the reply was recorded
	// without a status change
	OutcomeRecorded Outcome = "recorded"
	// OutcomeNotFound means the correlated request does not exist
	OutcomeNotFound Outcome = "not_found"
)

// ReimbursementStore is the slice of the reimbursement repository the
// propagator needs
type ReimbursementStore interface {
	GetByID(ctx context.Context, id string) (*models.ReimbursementRequest, error)
	RecordReply(ctx context.Context, id string, replyContent string) error
	SetStatus(ctx context.Context, id string, status models.ReimbursementStatus, replyContent string) error
}

// TransactionStore is the slice of the ledger transaction repository the
// propagator needs
type TransactionStore interface {
	SetReimbursementOutcome(ctx context.Context, id string, reimbStatus models.TransactionReimbursementStatus, status models.TransactionStatus) error
}

// EdgeQuerier resolves edges touching an entity
type EdgeQuerier interface {
	Query(ctx context.Context, entityType models.EntityType, entityID string) ([]models.RelationshipEdge, error)
}

// Result reports the outcome of one propagation
type Result struct {
	Outcome       Outcome                    `json:"outcome"`
	OldStatus     models.ReimbursementStatus `json:"old_status,omitempty"`
	NewStatus     models.ReimbursementStatus `json:"new_status,omitempty"`
	TransactionID string                     `json:"transaction_id,omitempty"`
}

// Propagator applies decisions to reimbursement records and their linked
// ledger transactions
type Propagator struct {
	reimbursements ReimbursementStore
	transactions   TransactionStore
	edges          EdgeQuerier
	notifier       events.Notifier
	logger         ectologger.Logger
}

// NewPropagator creates a new propagator. notifier may be nil, disabling
// notifications.
func NewPropagator(reimbursements ReimbursementStore, transactions TransactionStore, edges EdgeQuerier, notifier events.Notifier, logger ectologger.Logger) *Propagator {
	return &Propagator{
		reimbursements: reimbursements,
		transactions:   transactions,
		edges:          edges,
		notifier:       notifier,
		logger:         logger,
	}
}

// Apply applies a decision to the request. Terminal requests are never
// reopened; the reply is still recorded for audit. Notification failure never
// rolls back the status change. When the request has a linked ledger
// transaction, its reimbursement status and lifecycle status move as a
// derived transition.
func (p *Propagator) Apply(ctx context.Context, requestID string, decision models.Decision, replyContent string) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "Propagator.Apply")
	defer span.End()

	replyContent = models.BoundReplyContent(replyContent)

	req, err := p.reimbursements.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		metrics.PropagationsTotal.WithLabelValues(string(OutcomeNotFound)).Inc()
		return &Result{Outcome: OutcomeNotFound}, nil
	}

	if req.Status.IsTerminal() {
		if err := p.reimbursements.RecordReply(ctx, requestID, replyContent); err != nil {
			return nil, err
		}
		p.logger.WithContext(ctx).WithFields(map[string]any{
			"reimbursement_id": requestID,
			"status":           req.Status,
			"decision":         decision,
		}).Info("request already decided, reply recorded for audit only")
		metrics.PropagationsTotal.WithLabelValues(string(OutcomeTerminal)).Inc()
		return &Result{Outcome: OutcomeTerminal, OldStatus: req.Status, NewStatus: req.Status}, nil
	}

	var newStatus models.ReimbursementStatus
	switch decision {
	case models.DecisionApproved:
		newStatus = models.ReimbursementApproved
	case models.DecisionRejected:
		newStatus = models.ReimbursementRejected
	default:
		if err := p.reimbursements.RecordReply(ctx, requestID, replyContent); err != nil {
			return nil, err
		}
		metrics.PropagationsTotal.WithLabelValues(string(OutcomeRecorded)).Inc()
		return &Result{Outcome: OutcomeRecorded, OldStatus: req.Status, NewStatus: req.Status}, nil
	}

	if err := p.reimbursements.SetStatus(ctx, requestID, newStatus, replyContent); err != nil {
		return nil, err
	}

	result := &Result{Outcome: OutcomeApplied, OldStatus: req.Status, NewStatus: newStatus}

	if p.notifier != nil {
		if err := p.notifier.NotifyStatusChange(ctx, req.CreatedBy, requestID, req.Status, newStatus); err != nil {
			// best-effort: the status change stands
			p.logger.WithContext(ctx).WithError(err).WithField("reimbursement_id", requestID).Error("failed to notify status change")
		}
	}

	txID, err := p.linkedTransactionID(ctx, requestID)
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithField("reimbursement_id", requestID).Error("failed to resolve linked transaction")
		metrics.PropagationsTotal.WithLabelValues(string(OutcomeApplied)).Inc()
		return result, nil
	}

	if txID != "" {
		reimbStatus := models.ReimbStatusApproved
		txStatus := models.TransactionComplete
		if newStatus == models.ReimbursementRejected {
			reimbStatus = models.ReimbStatusDeclined
			txStatus = models.TransactionDeclined
		}
		if err := p.transactions.SetReimbursementOutcome(ctx, txID, reimbStatus, txStatus); err != nil {
			p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"reimbursement_id": requestID,
				"transaction_id":   txID,
			}).Error("failed to update linked transaction")
		} else {
			result.TransactionID = txID
		}
	}

	metrics.PropagationsTotal.WithLabelValues(string(OutcomeApplied)).Inc()
	return result, nil
}

// linkedTransactionID resolves the request's linked ledger transaction. The
// store does not enforce cardinality; by convention a request has at most one
// linked transaction, so extras are logged and the oldest link wins.
func (p *Propagator) linkedTransactionID(ctx context.Context, requestID string) (string, error) {
	edges, err := p.edges.Query(ctx, models.EntityTypeReimbursement, requestID)
	if err != nil {
		return "", fmt.Errorf("failed to query edges: %w", err)
	}

	var ids []string
	for _, edge := range edges {
		otherType, otherID, ok := edge.Other(models.EntityTypeReimbursement, requestID)
		if ok && otherType == models.EntityTypeTransaction {
			ids = append(ids, otherID)
		}
	}

	if len(ids) == 0 {
		return "", nil
	}
	if len(ids) > 1 {
		p.logger.WithContext(ctx).WithFields(map[string]any{
			"reimbursement_id": requestID,
			"transactions":     len(ids),
		}).Warn("request linked to multiple transactions, using the oldest link")
	}
	return ids[0], nil
}
