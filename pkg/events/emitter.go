// Package events handles notification emission for reimbursement status changes
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Notifier is the opaque notification collaborator consumed by the status
// propagator. Emission is best-effort; failures never roll anything back.
type Notifier interface {
	NotifyStatusChange(ctx context.Context, userID string, reimbursementID string, oldStatus, newStatus models.ReimbursementStatus) error
}

// Emitter publishes status change notifications to Kafka
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// NotifyStatusChange emits a reimbursement.status_changed event
func (e *Emitter) NotifyStatusChange(ctx context.Context, userID string, reimbursementID string, oldStatus, newStatus models.ReimbursementStatus) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.NotifyStatusChange")
	defer span.End()

	event := &kafka.StatusChangeEvent{
		EventType:       "reimbursement.status_changed",
		ReimbursementID: reimbursementID,
		UserID:          userID,
		OldStatus:       string(oldStatus),
		NewStatus:       string(newStatus),
	}

	if err := e.producer.PublishStatusChange(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("failed to emit status change event")
		return err
	}

	return nil
}
