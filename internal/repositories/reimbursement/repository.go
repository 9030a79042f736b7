package reimbursement

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// ReimbursementRepository defines the interface for reimbursement request operations
type ReimbursementRepository interface {
	Create(ctx context.Context, req models.CreateReimbursementRequest, createdBy string) (*models.ReimbursementRequest, error)
	GetByID(ctx context.Context, id string) (*models.ReimbursementRequest, error)
	List(ctx context.Context, page, pageSize int) ([]models.ReimbursementRequest, int, error)
	MarkEmailSent(ctx context.Context, id string, emailMessageID string) error
	RecordReply(ctx context.Context, id string, replyContent string) error
	SetStatus(ctx context.Context, id string, status models.ReimbursementStatus, replyContent string) error
	Delete(ctx context.Context, id string) error
}

// Repository implements ReimbursementRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new reimbursement repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "reimbursement_requests"

var columns = []string{"id", "description", "amount", "purchaser_name", "bank_account", "status", "email_sent", "email_message_id", "email_reply_received", "email_reply_content", "created_by", "created_at", "updated_at", "deleted_at"}

// Create creates a new reimbursement request in pending status
func (r *Repository) Create(ctx context.Context, req models.CreateReimbursementRequest, createdBy string) (*models.ReimbursementRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "ReimbursementRepository.Create")
	defer span.End()

	now := time.Now().UTC()
	id := uuid.New().String()

	sb := database.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols("id", "description", "amount", "purchaser_name", "bank_account", "status", "created_by", "created_at", "updated_at")
	sb.Values(id, req.Description, req.Amount, req.PurchaserName, req.BankAccount, models.ReimbursementPending, createdBy, now, now)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"id":         id,
			"created_by": createdBy,
		}).Error("failed to create reimbursement request")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to create reimbursement request: %s", err.Error())
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":         id,
		"created_by": createdBy,
	}).Info("created reimbursement request")

	return r.GetByID(ctx, id)
}

// GetByID gets a reimbursement request by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.ReimbursementRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "ReimbursementRepository.GetByID")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()

	var req models.ReimbursementRequest
	err := r.db.GetContext(ctx, &req, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("failed to get reimbursement request")
		return nil, fmt.Errorf("failed to get reimbursement request: %w", err)
	}

	return &req, nil
}

// List lists reimbursement requests with pagination
func (r *Repository) List(ctx context.Context, page, pageSize int) ([]models.ReimbursementRequest, int, error) {
	ctx, span := tracing.StartSpan(ctx, "ReimbursementRepository.List")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	countSb := database.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From(tableName)
	countSb.Where(countSb.IsNull("deleted_at"))
	countQuery, countArgs := countSb.Build()

	var totalCount int
	err := r.db.GetContext(ctx, &totalCount, countQuery, countArgs...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to count reimbursement requests")
		return nil, 0, fmt.Errorf("failed to count reimbursement requests: %w", err)
	}

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.IsNull("deleted_at"))
	sb.OrderBy("created_at DESC")
	sb.Limit(pageSize)
	sb.Offset(offset)

	query, args := sb.Build()

	var items []models.ReimbursementRequest
	err = r.db.SelectContext(ctx, &items, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"page":      page,
			"page_size": pageSize,
		}).Error("failed to list reimbursement requests")
		return nil, 0, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to list reimbursement requests: %s", err.Error())
	}

	return items, totalCount, nil
}

// MarkEmailSent records that the approval email went out and which provider
// message id it got
func (r *Repository) MarkEmailSent(ctx context.Context, id string, emailMessageID string) error {
	ctx, span := tracing.StartSpan(ctx, "ReimbursementRepository.MarkEmailSent")
	defer span.End()

	sb := database.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("email_sent", true),
		sb.Assign("email_message_id", emailMessageID),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("failed to mark email sent")
		return fmt.Errorf("failed to mark email sent: %w", err)
	}

	return nil
}

// RecordReply stores a bounded copy of a reply body and flips the received
// flag without touching status. Used for audit on terminal requests.
func (r *Repository) RecordReply(ctx context.Context, id string, replyContent string) error {
	ctx, span := tracing.StartSpan(ctx, "ReimbursementRepository.RecordReply")
	defer span.End()

	sb := database.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("email_reply_received", true),
		sb.Assign("email_reply_content", models.BoundReplyContent(replyContent)),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("failed to record reply")
		return fmt.Errorf("failed to record reply: %w", err)
	}

	return nil
}

// SetStatus applies a decision to the request along with the reply that drove it
func (r *Repository) SetStatus(ctx context.Context, id string, status models.ReimbursementStatus, replyContent string) error {
	ctx, span := tracing.StartSpan(ctx, "ReimbursementRepository.SetStatus")
	defer span.End()

	sb := database.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("status", status),
		sb.Assign("email_reply_received", true),
		sb.Assign("email_reply_content", models.BoundReplyContent(replyContent)),
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
			"id":     id,
			"status": status,
		}).Error("failed to set reimbursement status")
		return fmt.Errorf("failed to set reimbursement status: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":     id,
		"status": status,
	}).Info("updated reimbursement status")

	return nil
}

// Delete soft deletes a reimbursement request
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "ReimbursementRepository.Delete")
	defer span.End()

	sb := database.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(sb.Assign("deleted_at", time.Now().UTC()))
	sb.Where(
		sb.Equal("id", id),
		sb.IsNull("deleted_at"),
	)

	query, args := sb.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", id).Error("failed to delete reimbursement request")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to delete reimbursement request: %s", err.Error())
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "reimbursement request not found")
	}

	return nil
}
