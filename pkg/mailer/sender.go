// Package mailer composes and sends reimbursement request emails over SMTP.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// SentMail describes an email that was handed to the SMTP server
type SentMail struct {
	MessageID string
	Subject   string
	From      string
	To        []string
	ReplyTo   string
	Body      string
	SentAt    time.Time
}

// Sender sends reimbursement approval request emails
type Sender struct {
	addr        string
	username    string
	password    string
	from        string
	replyDomain string
	logger      ectologger.Logger
}

// Config holds the SMTP connection settings for a Sender
type Config struct {
	Addr        string
	Username    string
	Password    string
	From        string
	ReplyDomain string
}

// NewSender creates a new SMTP sender
func NewSender(cfg Config, logger ectologger.Logger) *Sender {
	return &Sender{
		addr:        cfg.Addr,
		username:    cfg.Username,
		password:    cfg.Password,
		from:        cfg.From,
		replyDomain: cfg.ReplyDomain,
		logger:      logger,
	}
}

// ReplyAddress returns the per-request reply address. Replies sent to it are
// correlated back to the request by the local part alone.
func (s *Sender) ReplyAddress(requestID string) string {
	return fmt.Sprintf("reimbursement-%s@%s", requestID, s.replyDomain)
}

// Subject returns the tagged subject line for a request
func (s *Sender) Subject(req *models.ReimbursementRequest) string {
	return fmt.Sprintf("Reimbursement approval needed: %s [reimbursement:%s]", req.Description, req.ID)
}

// SendRequest composes and sends the approval request email for req to
// recipient and returns what was sent
func (s *Sender) SendRequest(ctx context.Context, req *models.ReimbursementRequest, recipient string) (*SentMail, error) {
	ctx, span := tracing.StartSpan(ctx, "Sender.SendRequest")
	defer span.End()

	// bare id, no angle brackets: ingest parses Message-ID headers to bare
	// ids, and the stored copy must match them for dedup and threading
	sent := &SentMail{
		MessageID: fmt.Sprintf("%s@%s", uuid.NewString(), s.replyDomain),
		Subject:   s.Subject(req),
		From:      s.from,
		To:        []string{recipient},
		ReplyTo:   s.ReplyAddress(req.ID),
		Body:      s.body(req),
		SentAt:    time.Now().UTC(),
	}

	raw, err := compose(sent)
	if err != nil {
		return nil, fmt.Errorf("failed to compose email: %w", err)
	}

	auth := sasl.NewPlainClient("", s.username, s.password)
	if err := smtp.SendMail(s.addr, auth, s.from, sent.To, bytes.NewReader(raw)); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"reimbursement_id": req.ID,
			"recipient":        recipient,
		}).Error("failed to send reimbursement email")
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"reimbursement_id": req.ID,
		"recipient":        recipient,
		"message_id":       sent.MessageID,
	}).Info("sent reimbursement approval request")

	return sent, nil
}

func (s *Sender) body(req *models.ReimbursementRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A reimbursement request needs your approval.\r\n\r\n")
	fmt.Fprintf(&b, "Description: %s\r\n", req.Description)
	fmt.Fprintf(&b, "Amount: %s\r\n", req.Amount.StringFixed(2))
	fmt.Fprintf(&b, "Purchaser: %s\r\n", req.PurchaserName)
	fmt.Fprintf(&b, "\r\nReply to this email with \"approved\" or \"rejected\".\r\n")
	fmt.Fprintf(&b, "Reference: reimbursement %s\r\n", req.ID)
	return b.String()
}

func compose(m *SentMail) ([]byte, error) {
	from, err := mail.ParseAddress(m.From)
	if err != nil {
		return nil, fmt.Errorf("invalid from address %q: %w", m.From, err)
	}

	to := make([]*mail.Address, 0, len(m.To))
	for _, addr := range m.To {
		parsed, err := mail.ParseAddress(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid recipient address %q: %w", addr, err)
		}
		to = append(to, parsed)
	}

	var h mail.Header
	h.SetDate(m.SentAt)
	h.SetAddressList("From", []*mail.Address{from})
	h.SetAddressList("To", to)
	h.SetAddressList("Reply-To", []*mail.Address{{Address: m.ReplyTo}})
	h.SetSubject(m.Subject)
	h.SetMessageID(m.MessageID)

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, m.Body); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
