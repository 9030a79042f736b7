// Package correlate determines which reimbursement request an inbound mail
// message concerns.
package correlate

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var (
	// addressPattern matches the structured reply-to local part,
	// reimbursement-{id}@domain
	addressPattern = regexp.MustCompile(`(?i)^reimbursement-([a-f0-9-]+)@`)

	// subjectPattern matches an embedded subject tag, [reimbursement:{id}]
	subjectPattern = regexp.MustCompile(`(?i)\[reimbursement:([a-f0-9-]+)\]`)

	// bodyPattern matches an explicit identifier mentioned in the body
	bodyPattern = regexp.MustCompile(`(?i)reimbursement[ -:]+\s*([a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12})`)

	htmlTagPattern = regexp.MustCompile(`(?s)<[^>]*>`)
)

// ThreadAssociator resolves which reimbursement requests earlier messages in
// a thread were already associated with
type ThreadAssociator interface {
	RequestIDsForThread(ctx context.Context, threadID string) ([]string, error)
}

// Correlator extracts a reimbursement id from a message using three ordered
// strategies, falling back to the message's thread association
type Correlator struct {
	threads ThreadAssociator
	logger  ectologger.Logger
}

// NewCorrelator creates a new correlator. threads may be nil, disabling the
// thread-inheritance fallback.
func NewCorrelator(threads ThreadAssociator, logger ectologger.Logger) *Correlator {
	return &Correlator{
		threads: threads,
		logger:  logger,
	}
}

// Correlate returns the referenced reimbursement id, or "" when nothing
// correlates. A miss is not an error; the message is simply left unlinked.
func (c *Correlator) Correlate(ctx context.Context, msg *models.MailMessage) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "Correlator.Correlate")
	defer span.End()

	if id := FromRecipients(msg.ToAddresses); id != "" {
		return id, nil
	}

	if id := FromSubject(msg.Subject); id != "" {
		return id, nil
	}

	body := msg.BodyText
	if body == "" {
		body = StripHTML(msg.BodyHTML)
	}
	if id := FromBody(body); id != "" {
		return id, nil
	}

	if c.threads == nil || msg.ThreadID == "" {
		return "", nil
	}

	ids, err := c.threads.RequestIDsForThread(ctx, msg.ThreadID)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).WithField("thread_id", msg.ThreadID).Error("failed to resolve thread association")
		return "", err
	}
	if len(ids) == 1 {
		c.logger.WithContext(ctx).WithFields(map[string]any{
			"thread_id":        msg.ThreadID,
			"reimbursement_id": ids[0],
		}).Debug("correlated message via thread inheritance")
		return ids[0], nil
	}

	return "", nil
}

// FromRecipients extracts an id from a structured recipient local part.
// First matching recipient wins.
func FromRecipients(recipients []string) string {
	for _, addr := range recipients {
		match := addressPattern.FindStringSubmatch(strings.TrimSpace(addr))
		if match == nil {
			continue
		}
		if id := validID(match[1]); id != "" {
			return id
		}
	}
	return ""
}

// FromSubject extracts an id from a subject tag
func FromSubject(subject string) string {
	match := subjectPattern.FindStringSubmatch(subject)
	if match == nil {
		return ""
	}
	return validID(match[1])
}

// FromBody scans the body for an explicitly mentioned identifier
func FromBody(body string) string {
	match := bodyPattern.FindStringSubmatch(body)
	if match == nil {
		return ""
	}
	return validID(match[1])
}

// StripHTML crudely reduces an HTML body to text for scanning
func StripHTML(s string) string {
	return html.UnescapeString(htmlTagPattern.ReplaceAllString(s, " "))
}

func validID(candidate string) string {
	parsed, err := uuid.Parse(candidate)
	if err != nil {
		return ""
	}
	return parsed.String()
}
