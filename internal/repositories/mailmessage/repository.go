package mailmessage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// MailMessageRepository defines the interface for stored mail message operations
type MailMessageRepository interface {
	Store(ctx context.Context, msg *models.MailMessage) (*models.MailMessage, error)
	ExistsByMessageID(ctx context.Context, messageID string) (bool, error)
	GetByMessageID(ctx context.Context, messageID string) (*models.MailMessage, error)
	ListByThreadID(ctx context.Context, threadID string) ([]models.MailMessage, error)
}

// Repository implements MailMessageRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new mail message repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "mail_messages"

var columns = []string{"id", "message_id", "in_reply_to", "references_list", "thread_id", "direction", "from_address", "to_addresses", "subject", "body_text", "body_html", "sent_at", "created_at"}

// Store persists a message. The caller is expected to have checked
// ExistsByMessageID first; a unique index on message_id backs that up.
func (r *Repository) Store(ctx context.Context, msg *models.MailMessage) (*models.MailMessage, error) {
	ctx, span := tracing.StartSpan(ctx, "MailMessageRepository.Store")
	defer span.End()

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	sb := database.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(msg.ID, msg.MessageID, msg.InReplyTo, pq.StringArray(msg.References), msg.ThreadID, msg.Direction, msg.FromAddress, pq.StringArray(msg.ToAddresses), msg.Subject, msg.BodyText, msg.BodyHTML, msg.SentAt, msg.CreatedAt)

	query, args := sb.Build()

	_, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"message_id": msg.MessageID,
			"thread_id":  msg.ThreadID,
		}).Error("failed to store mail message")
		return nil, fmt.Errorf("failed to store mail message: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":         msg.ID,
		"message_id": msg.MessageID,
		"thread_id":  msg.ThreadID,
		"direction":  msg.Direction,
	}).Info("stored mail message")

	return msg, nil
}

// ExistsByMessageID reports whether a message with the given Message-ID is
// already stored. Empty message ids never match; they carry no identity.
func (r *Repository) ExistsByMessageID(ctx context.Context, messageID string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "MailMessageRepository.ExistsByMessageID")
	defer span.End()

	if messageID == "" {
		return false, nil
	}

	sb := database.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From(tableName)
	sb.Where(sb.Equal("message_id", messageID))

	query, args := sb.Build()

	var count int
	err := r.db.GetContext(ctx, &count, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("message_id", messageID).Error("failed to check mail message existence")
		return false, fmt.Errorf("failed to check mail message existence: %w", err)
	}

	return count > 0, nil
}

// GetByMessageID gets a stored message by its Message-ID header
func (r *Repository) GetByMessageID(ctx context.Context, messageID string) (*models.MailMessage, error) {
	ctx, span := tracing.StartSpan(ctx, "MailMessageRepository.GetByMessageID")
	defer span.End()

	if messageID == "" {
		return nil, nil
	}

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("message_id", messageID))

	query, args := sb.Build()

	var msg models.MailMessage
	err := r.db.GetContext(ctx, &msg, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("message_id", messageID).Error("failed to get mail message")
		return nil, fmt.Errorf("failed to get mail message: %w", err)
	}

	return &msg, nil
}

// ListByThreadID returns all stored messages sharing a thread id, oldest first
func (r *Repository) ListByThreadID(ctx context.Context, threadID string) ([]models.MailMessage, error) {
	ctx, span := tracing.StartSpan(ctx, "MailMessageRepository.ListByThreadID")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("thread_id", threadID))
	sb.OrderBy("sent_at ASC")

	query, args := sb.Build()

	var msgs []models.MailMessage
	err := r.db.SelectContext(ctx, &msgs, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("thread_id", threadID).Error("failed to list thread messages")
		return nil, fmt.Errorf("failed to list thread messages: %w", err)
	}

	return msgs, nil
}
