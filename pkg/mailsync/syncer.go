// Package mailsync pulls messages from the remote mailbox, threads and
// deduplicates them, and routes correlated replies into classification and
// status propagation.
package mailsync

import (
	"context"
	"errors"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/classify"
	"github.com/Ramsey-B/clover/pkg/correlate"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/propagate"
	"github.com/Ramsey-B/clover/pkg/redis"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const inboxMailbox = "INBOX"

// MessageStore is the slice of the mail message repository the syncer needs
type MessageStore interface {
	Store(ctx context.Context, msg *models.MailMessage) (*models.MailMessage, error)
	ExistsByMessageID(ctx context.Context, messageID string) (bool, error)
	ListByThreadID(ctx context.Context, threadID string) ([]models.MailMessage, error)
}

// EdgeStore is the slice of the relationship repository the syncer needs
type EdgeStore interface {
	Create(ctx context.Context, typeA models.EntityType, idA string, typeB models.EntityType, idB string, createdBy string) (*models.RelationshipEdge, error)
	QueryMany(ctx context.Context, entityType models.EntityType, entityIDs []string) (map[string][]models.RelationshipEdge, error)
}

// SettingsProvider supplies the current settings snapshot
type SettingsProvider interface {
	Get(ctx context.Context) (*models.Settings, error)
}

// Lock is a held sync lock
type Lock interface {
	Release(ctx context.Context) error
}

// Locker serializes mailbox sync runs across instances
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

type redisLocker struct {
	locker *redis.Locker
}

// NewRedisLocker adapts a redis locker to the sync Locker interface
func NewRedisLocker(locker *redis.Locker) Locker {
	return &redisLocker{locker: locker}
}

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	return l.locker.Acquire(ctx, key, ttl)
}

// Syncer runs one mail sync pass over the inbox and sent folders
type Syncer struct {
	fetcher    Fetcher
	messages   MessageStore
	edges      EdgeStore
	correlator *correlate.Correlator
	classifier *classify.Classifier
	propagator *propagate.Propagator
	settings   SettingsProvider
	locker     Locker
	window     uint32
	lockTTL    time.Duration
	logger     ectologger.Logger
}

// NewSyncer creates a new syncer. window is the number of most recent
// messages fetched per folder each run.
func NewSyncer(
	fetcher Fetcher,
	messages MessageStore,
	edges EdgeStore,
	correlator *correlate.Correlator,
	classifier *classify.Classifier,
	propagator *propagate.Propagator,
	settings SettingsProvider,
	locker Locker,
	window uint32,
	lockTTL time.Duration,
	logger ectologger.Logger,
) *Syncer {
	return &Syncer{
		fetcher:    fetcher,
		messages:   messages,
		edges:      edges,
		correlator: correlator,
		classifier: classifier,
		propagator: propagator,
		settings:   settings,
		locker:     locker,
		window:     window,
		lockTTL:    lockTTL,
		logger:     logger,
	}
}

// Run syncs the inbox and sent folders. A folder that fails or is locked by
// a concurrent run is reported in its MailboxResult; the other folder still
// syncs.
func (s *Syncer) Run(ctx context.Context) (*models.SyncResult, error) {
	ctx, span := tracing.StartSpan(ctx, "Syncer.Run")
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.MailSyncDuration.Observe(time.Since(start).Seconds())
	}()

	result := &models.SyncResult{StartedAt: start.UTC()}

	folders := []struct {
		name      string
		direction models.MailDirection
	}{
		{inboxMailbox, models.MailDirectionInbox},
	}

	sent, err := s.fetcher.SentMailbox(ctx)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("failed to discover sent mailbox")
		result.Mailboxes = append(result.Mailboxes, models.MailboxResult{Mailbox: "sent", Error: err.Error()})
	} else {
		folders = append(folders, struct {
			name      string
			direction models.MailDirection
		}{sent, models.MailDirectionSent})
	}

	for _, folder := range folders {
		mb := s.syncMailbox(ctx, folder.name, folder.direction)
		result.Mailboxes = append(result.Mailboxes, mb)
		result.TotalNew += mb.Stored
		result.TotalSeen += mb.Stored + mb.Skipped
	}

	result.FinishedAt = time.Now().UTC()

	outcome := "success"
	for _, mb := range result.Mailboxes {
		if mb.Error != "" {
			outcome = "partial"
			break
		}
	}
	metrics.MailSyncRunsTotal.WithLabelValues(outcome).Inc()

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"total_new":  result.TotalNew,
		"total_seen": result.TotalSeen,
		"duration":   result.FinishedAt.Sub(result.StartedAt).String(),
	}).Info("mail sync finished")

	return result, nil
}

func (s *Syncer) syncMailbox(ctx context.Context, mailbox string, direction models.MailDirection) models.MailboxResult {
	ctx, span := tracing.StartSpan(ctx, "Syncer.syncMailbox")
	defer span.End()

	result := models.MailboxResult{Mailbox: mailbox}

	lock, err := s.locker.Acquire(ctx, "mailsync:"+mailbox, s.lockTTL)
	if err != nil {
		if errors.Is(err, redis.ErrLockNotAcquired) {
			s.logger.WithContext(ctx).WithField("mailbox", mailbox).Info("mailbox sync already in progress, skipping")
			result.Error = "sync already in progress"
			return result
		}
		s.logger.WithContext(ctx).WithError(err).WithField("mailbox", mailbox).Error("failed to acquire sync lock")
		result.Error = err.Error()
		return result
	}
	defer lock.Release(ctx)

	raws, err := s.fetcher.FetchRecent(ctx, mailbox, s.window)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("mailbox", mailbox).Error("failed to fetch mailbox")
		result.Error = err.Error()
		return result
	}

	for _, raw := range raws {
		msg, err := ParseMessage(raw.Source, direction)
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"mailbox": mailbox,
				"uid":     raw.UID,
			}).Error("failed to parse message, skipping")
			metrics.MessagesIngested.WithLabelValues(mailbox, "unparsable").Inc()
			result.Skipped++
			continue
		}

		if msg.MessageID != "" {
			exists, err := s.messages.ExistsByMessageID(ctx, msg.MessageID)
			if err != nil {
				s.logger.WithContext(ctx).WithError(err).WithField("message_id", msg.MessageID).Error("failed to check message existence")
				result.Skipped++
				continue
			}
			if exists {
				metrics.MessagesIngested.WithLabelValues(mailbox, "duplicate").Inc()
				result.Skipped++
				continue
			}
		}

		stored, err := s.messages.Store(ctx, msg)
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).WithField("message_id", msg.MessageID).Error("failed to store message")
			result.Skipped++
			continue
		}
		metrics.MessagesIngested.WithLabelValues(mailbox, "stored").Inc()
		result.Stored++

		requestID, err := s.correlator.Correlate(ctx, stored)
		if err != nil || requestID == "" {
			continue
		}
		result.Correlated++

		if err := s.linkAndApply(ctx, stored, requestID, direction); err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"message_id":       stored.MessageID,
				"reimbursement_id": requestID,
			}).Error("failed to process correlated message")
		}
	}

	return result
}

// linkAndApply links the message to its request so later replies in the
// thread inherit the association, then classifies and propagates inbox
// replies. Sent copies are linked only.
func (s *Syncer) linkAndApply(ctx context.Context, msg *models.MailMessage, requestID string, direction models.MailDirection) error {
	if _, err := s.edges.Create(ctx, models.EntityTypeMailMessage, msg.ID, models.EntityTypeReimbursement, requestID, "mailsync"); err != nil {
		return err
	}

	if direction != models.MailDirectionInbox {
		return nil
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}

	body := msg.BodyText
	if body == "" {
		body = correlate.StripHTML(msg.BodyHTML)
	}

	decision := s.classifier.Classify(ctx, settings, body)

	res, err := s.propagator.Apply(ctx, requestID, decision, body)
	if err != nil {
		return err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"reimbursement_id": requestID,
		"message_id":       msg.MessageID,
		"decision":         decision,
		"outcome":          res.Outcome,
	}).Info("processed reply")

	return nil
}
