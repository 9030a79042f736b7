// Package reimbursement implements the approval request send flow.
package reimbursement

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	reimbrepo "github.com/Ramsey-B/clover/internal/repositories/reimbursement"
	"github.com/Ramsey-B/clover/pkg/mailer"
	"github.com/Ramsey-B/clover/pkg/mailsync"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/relationships"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// MailSender sends the approval request email
type MailSender interface {
	SendRequest(ctx context.Context, req *models.ReimbursementRequest, recipient string) (*mailer.SentMail, error)
}

// EdgeCreator links the stored sent message to its request
type EdgeCreator interface {
	Create(ctx context.Context, typeA models.EntityType, idA string, typeB models.EntityType, idB string, createdBy string) (*models.RelationshipEdge, error)
}

// MessageStore persists the local copy of the sent email
type MessageStore interface {
	Store(ctx context.Context, msg *models.MailMessage) (*models.MailMessage, error)
}

// Service coordinates validation, email sending, and bookkeeping for
// reimbursement requests
type Service struct {
	requests reimbrepo.ReimbursementRepository
	loader   *relationships.Loader
	rules    []relationships.Rule
	sender   MailSender
	messages MessageStore
	edges    EdgeCreator
	logger   ectologger.Logger
}

// NewService creates a new reimbursement service
func NewService(
	requests reimbrepo.ReimbursementRepository,
	loader *relationships.Loader,
	rules []relationships.Rule,
	sender MailSender,
	messages MessageStore,
	edges EdgeCreator,
	logger ectologger.Logger,
) *Service {
	return &Service{
		requests: requests,
		loader:   loader,
		rules:    rules,
		sender:   sender,
		messages: messages,
		edges:    edges,
		logger:   logger,
	}
}

// Send validates the request's linked evidence and emails the approval
// request to recipient. Validation reports every missing requirement at once
// so the caller can fix them in one pass.
func (s *Service) Send(ctx context.Context, requestID string, recipient string, userID string) (*models.ReimbursementRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "ReimbursementService.Send")
	defer span.End()

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "reimbursement request not found")
	}

	if req.Status.IsTerminal() {
		return nil, httperror.NewHTTPErrorf(http.StatusConflict, "request is already %s", req.Status)
	}

	loaded, err := s.loader.Load(ctx, models.EntityTypeReimbursement, requestID, requiredKinds(s.rules), nil)
	if err != nil {
		return nil, err
	}

	validation := relationships.Validate(models.EntityTypeReimbursement, loaded.LinkedCounts(), s.rules)
	if !validation.Valid {
		s.logger.WithContext(ctx).WithFields(map[string]any{
			"reimbursement_id": requestID,
			"missing":          validation.Missing,
		}).Info("send blocked by missing requirements")
		return nil, httperror.NewHTTPError(http.StatusUnprocessableEntity, "request does not meet send requirements").AddMetaValue("missing", validation.Missing)
	}

	sent, err := s.sender.SendRequest(ctx, req, recipient)
	if err != nil {
		return nil, httperror.NewHTTPErrorf(http.StatusBadGateway, "failed to send approval email: %s", err.Error())
	}

	if err := s.requests.MarkEmailSent(ctx, requestID, sent.MessageID); err != nil {
		return nil, err
	}

	// a local copy of the outbound message seeds the thread so replies
	// correlate even when the sender strips the reply address
	copyMsg := &models.MailMessage{
		MessageID:   sent.MessageID,
		Direction:   models.MailDirectionSent,
		FromAddress: sent.From,
		ToAddresses: sent.To,
		Subject:     sent.Subject,
		BodyText:    sent.Body,
		SentAt:      sent.SentAt,
	}
	copyMsg.ThreadID = mailsync.ThreadID(copyMsg)

	stored, err := s.messages.Store(ctx, copyMsg)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("reimbursement_id", requestID).Error("failed to store sent message copy")
	} else if _, err := s.edges.Create(ctx, models.EntityTypeMailMessage, stored.ID, models.EntityTypeReimbursement, requestID, userID); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("reimbursement_id", requestID).Error("failed to link sent message")
	}

	return s.requests.GetByID(ctx, requestID)
}

// Relationships loads the linked and available entities for a request
func (s *Service) Relationships(ctx context.Context, requestID string, kinds []models.EntityType, perms relationships.PermissionSet) (*relationships.Loaded, error) {
	ctx, span := tracing.StartSpan(ctx, "ReimbursementService.Relationships")
	defer span.End()

	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, httperror.NewHTTPError(http.StatusNotFound, "reimbursement request not found")
	}

	return s.loader.Load(ctx, models.EntityTypeReimbursement, requestID, kinds, perms)
}

func requiredKinds(rules []relationships.Rule) []models.EntityType {
	kinds := make([]models.EntityType, 0, len(rules))
	for _, rule := range rules {
		kinds = append(kinds, rule.RequiredType)
	}
	return kinds
}
