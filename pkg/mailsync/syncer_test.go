package mailsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/classify"
	"github.com/Ramsey-B/clover/pkg/correlate"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/propagate"
	"github.com/Ramsey-B/clover/pkg/redis"
)

const reimbID = "7e6d3a1c-0000-4000-8000-000000000001"

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type fakeFetcher struct {
	byMailbox map[string][]RawMessage
	sent      string
	sentErr   error
	fetchErr  map[string]error
}

func (f *fakeFetcher) FetchRecent(ctx context.Context, mailbox string, limit uint32) ([]RawMessage, error) {
	if err := f.fetchErr[mailbox]; err != nil {
		return nil, err
	}
	return f.byMailbox[mailbox], nil
}

func (f *fakeFetcher) SentMailbox(ctx context.Context) (string, error) {
	if f.sentErr != nil {
		return "", f.sentErr
	}
	return f.sent, nil
}

type memMessageStore struct {
	stored  []*models.MailMessage
	nextRow int
}

func (s *memMessageStore) Store(ctx context.Context, msg *models.MailMessage) (*models.MailMessage, error) {
	s.stored = append(s.stored, msg)
	return msg, nil
}

func (s *memMessageStore) ExistsByMessageID(ctx context.Context, messageID string) (bool, error) {
	if messageID == "" {
		return false, nil
	}
	for _, msg := range s.stored {
		if msg.MessageID == messageID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memMessageStore) ListByThreadID(ctx context.Context, threadID string) ([]models.MailMessage, error) {
	var out []models.MailMessage
	for _, msg := range s.stored {
		if msg.ThreadID == threadID {
			out = append(out, *msg)
		}
	}
	return out, nil
}

type memEdgeStore struct {
	created []models.RelationshipEdge
}

func (s *memEdgeStore) Create(ctx context.Context, typeA models.EntityType, idA string, typeB models.EntityType, idB string, createdBy string) (*models.RelationshipEdge, error) {
	typeA, idA, typeB, idB = models.NormalizePair(typeA, idA, typeB, idB)
	edge := models.RelationshipEdge{EntityTypeA: typeA, EntityIDA: idA, EntityTypeB: typeB, EntityIDB: idB, CreatedBy: createdBy}
	s.created = append(s.created, edge)
	return &edge, nil
}

func (s *memEdgeStore) QueryMany(ctx context.Context, entityType models.EntityType, entityIDs []string) (map[string][]models.RelationshipEdge, error) {
	result := map[string][]models.RelationshipEdge{}
	for _, id := range entityIDs {
		for _, edge := range s.created {
			if edge.Touches(entityType, id) {
				result[id] = append(result[id], edge)
			}
		}
	}
	return result, nil
}

func (s *memEdgeStore) Query(ctx context.Context, entityType models.EntityType, entityID string) ([]models.RelationshipEdge, error) {
	var out []models.RelationshipEdge
	for _, edge := range s.created {
		if edge.Touches(entityType, entityID) {
			out = append(out, edge)
		}
	}
	return out, nil
}

type fakeSettings struct{ settings models.Settings }

func (f *fakeSettings) Get(ctx context.Context) (*models.Settings, error) {
	s := f.settings
	return &s, nil
}

type fakeLock struct{ released bool }

func (l *fakeLock) Release(ctx context.Context) error {
	l.released = true
	return nil
}

type fakeLocker struct {
	denied map[string]bool
	locks  []*fakeLock
}

func (f *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	if f.denied[key] {
		return nil, redis.ErrLockNotAcquired
	}
	lock := &fakeLock{}
	f.locks = append(f.locks, lock)
	return lock, nil
}

type fakeRequestStore struct {
	request   *models.ReimbursementRequest
	setStatus []models.ReimbursementStatus
	recorded  []string
}

func (f *fakeRequestStore) GetByID(ctx context.Context, id string) (*models.ReimbursementRequest, error) {
	return f.request, nil
}

func (f *fakeRequestStore) RecordReply(ctx context.Context, id string, replyContent string) error {
	f.recorded = append(f.recorded, replyContent)
	return nil
}

func (f *fakeRequestStore) SetStatus(ctx context.Context, id string, status models.ReimbursementStatus, replyContent string) error {
	f.setStatus = append(f.setStatus, status)
	return nil
}

type fakeTxStore struct{}

func (f *fakeTxStore) SetReimbursementOutcome(ctx context.Context, id string, reimbStatus models.TransactionReimbursementStatus, status models.TransactionStatus) error {
	return nil
}

func approvedReplyRaw() RawMessage {
	return RawMessage{UID: 1, Source: rawMessage(
		"From: treasurer@example.org",
		"To: reimbursement-"+reimbID+"@treasury.example.org",
		"Subject: Re: Reimbursement approval needed",
		"Message-Id: <reply-1@example.org>",
		"Content-Type: text/plain",
		"",
		"approved",
		"",
	)}
}

func newTestSyncer(fetcher Fetcher, messages *memMessageStore, edges *memEdgeStore, requests *fakeRequestStore, locker Locker) *Syncer {
	logger := noopLogger()
	propagator := propagate.NewPropagator(requests, &fakeTxStore{}, edges, nil, logger)
	classifier := classify.NewClassifier(nil, logger)
	correlator := correlate.NewCorrelator(NewThreadAssociator(messages, edges), logger)
	settings := &fakeSettings{settings: models.Settings{ApprovalKeywords: []string{"approved"}, RejectionKeywords: []string{"rejected"}}}

	return NewSyncer(fetcher, messages, edges, correlator, classifier, propagator, settings, locker, 50, time.Minute, logger)
}

func TestRunStoresAndPropagatesApprovedReply(t *testing.T) {
	fetcher := &fakeFetcher{
		byMailbox: map[string][]RawMessage{"INBOX": {approvedReplyRaw()}},
		sent:      "Sent",
	}
	messages := &memMessageStore{}
	edges := &memEdgeStore{}
	requests := &fakeRequestStore{request: &models.ReimbursementRequest{ID: reimbID, Status: models.ReimbursementPending}}
	locker := &fakeLocker{}

	syncer := newTestSyncer(fetcher, messages, edges, requests, locker)

	result, err := syncer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalNew)
	require.Len(t, result.Mailboxes, 2)
	assert.Equal(t, 1, result.Mailboxes[0].Stored)
	assert.Equal(t, 1, result.Mailboxes[0].Correlated)

	require.Len(t, requests.setStatus, 1)
	assert.Equal(t, models.ReimbursementApproved, requests.setStatus[0])

	// the message is linked to the request so later thread replies inherit it
	require.Len(t, messages.stored, 1)
	found := false
	for _, edge := range edges.created {
		if edge.Touches(models.EntityTypeReimbursement, reimbID) && edge.Touches(models.EntityTypeMailMessage, messages.stored[0].ID) {
			found = true
		}
	}
	assert.True(t, found)

	for _, lock := range locker.locks {
		assert.True(t, lock.released)
	}
}

func TestRunSkipsDuplicateMessages(t *testing.T) {
	fetcher := &fakeFetcher{
		byMailbox: map[string][]RawMessage{"INBOX": {approvedReplyRaw(), approvedReplyRaw()}},
		sent:      "Sent",
	}
	messages := &memMessageStore{}
	requests := &fakeRequestStore{request: &models.ReimbursementRequest{ID: reimbID, Status: models.ReimbursementPending}}

	syncer := newTestSyncer(fetcher, messages, &memEdgeStore{}, requests, &fakeLocker{})

	result, err := syncer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalNew)
	assert.Equal(t, 1, result.Mailboxes[0].Skipped)
	require.Len(t, messages.stored, 1)
	// the duplicate never reaches propagation
	require.Len(t, requests.setStatus, 1)
}

func TestRunLockedMailboxIsSkipped(t *testing.T) {
	fetcher := &fakeFetcher{
		byMailbox: map[string][]RawMessage{"INBOX": {approvedReplyRaw()}},
		sent:      "Sent",
	}
	messages := &memMessageStore{}
	requests := &fakeRequestStore{request: &models.ReimbursementRequest{ID: reimbID, Status: models.ReimbursementPending}}
	locker := &fakeLocker{denied: map[string]bool{"mailsync:INBOX": true}}

	syncer := newTestSyncer(fetcher, messages, &memEdgeStore{}, requests, locker)

	result, err := syncer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, result.TotalNew)
	assert.Equal(t, "sync already in progress", result.Mailboxes[0].Error)
	assert.Empty(t, messages.stored)
}

func TestRunOneMailboxFailingDoesNotAbortOthers(t *testing.T) {
	fetcher := &fakeFetcher{
		byMailbox: map[string][]RawMessage{"INBOX": {approvedReplyRaw()}},
		sent:      "Sent",
		fetchErr:  map[string]error{"Sent": errors.New("connection reset")},
	}
	messages := &memMessageStore{}
	requests := &fakeRequestStore{request: &models.ReimbursementRequest{ID: reimbID, Status: models.ReimbursementPending}}

	syncer := newTestSyncer(fetcher, messages, &memEdgeStore{}, requests, &fakeLocker{})

	result, err := syncer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Mailboxes[0].Stored)
	assert.NotEmpty(t, result.Mailboxes[1].Error)
}

func TestRunSentMailboxDiscoveryFailureStillSyncsInbox(t *testing.T) {
	fetcher := &fakeFetcher{
		byMailbox: map[string][]RawMessage{"INBOX": {approvedReplyRaw()}},
		sentErr:   errors.New("no sent mailbox found"),
	}
	messages := &memMessageStore{}
	requests := &fakeRequestStore{request: &models.ReimbursementRequest{ID: reimbID, Status: models.ReimbursementPending}}

	syncer := newTestSyncer(fetcher, messages, &memEdgeStore{}, requests, &fakeLocker{})

	result, err := syncer.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, messages.stored, 1)
	assert.Equal(t, 1, result.TotalNew)
}

func TestRunThreadReplyInheritsAssociation(t *testing.T) {
	// first run: a tagged reply establishes the message-to-request link
	first := approvedReplyRaw()

	// second run: an untagged reply in the same thread
	followUp := RawMessage{UID: 2, Source: rawMessage(
		"From: treasurer@example.org",
		"To: treasury@example.org",
		"Subject: Re: Reimbursement approval needed",
		"Message-Id: <reply-2@example.org>",
		"In-Reply-To: <reply-1@example.org>",
		"References: <reply-1@example.org>",
		"Content-Type: text/plain",
		"",
		"confirmed, approved",
		"",
	)}

	fetcher := &fakeFetcher{byMailbox: map[string][]RawMessage{"INBOX": {first}}, sent: "Sent"}
	messages := &memMessageStore{}
	edges := &memEdgeStore{}
	requests := &fakeRequestStore{request: &models.ReimbursementRequest{ID: reimbID, Status: models.ReimbursementPending}}

	syncer := newTestSyncer(fetcher, messages, edges, requests, &fakeLocker{})

	_, err := syncer.Run(context.Background())
	require.NoError(t, err)

	fetcher.byMailbox["INBOX"] = []RawMessage{first, followUp}

	result, err := syncer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalNew)
	assert.Equal(t, 2, result.Mailboxes[0].Correlated+result.Mailboxes[0].Skipped)
	require.Len(t, messages.stored, 2)
}

func TestRunRecordsOutcomeMetric(t *testing.T) {
	fetcher := &fakeFetcher{
		byMailbox: map[string][]RawMessage{"INBOX": {approvedReplyRaw()}},
		sent:      "Sent",
	}
	requests := &fakeRequestStore{request: &models.ReimbursementRequest{ID: reimbID, Status: models.ReimbursementPending}}

	success := testutil.ToFloat64(metrics.MailSyncRunsTotal.WithLabelValues("success"))
	partial := testutil.ToFloat64(metrics.MailSyncRunsTotal.WithLabelValues("partial"))

	syncer := newTestSyncer(fetcher, &memMessageStore{}, &memEdgeStore{}, requests, &fakeLocker{})
	_, err := syncer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, success+1, testutil.ToFloat64(metrics.MailSyncRunsTotal.WithLabelValues("success")))

	fetcher.fetchErr = map[string]error{"Sent": errors.New("connection reset")}
	_, err = syncer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, partial+1, testutil.ToFloat64(metrics.MailSyncRunsTotal.WithLabelValues("partial")))
}

func TestRunSentFolderDedupsSeededCopy(t *testing.T) {
	// the send flow stores the outbound copy with a bare message id; syncing
	// the sent folder later must recognize it instead of storing it twice
	outboundID := "out-1@treasury.example.org"
	fetcher := &fakeFetcher{
		byMailbox: map[string][]RawMessage{
			"Sent": {{UID: 9, Source: rawMessage(
				"From: treasury@example.org",
				"To: treasurer@example.org",
				"Subject: Reimbursement approval needed",
				"Message-Id: <"+outboundID+">",
				"Content-Type: text/plain",
				"",
				"please approve",
				"",
			)}},
		},
		sent: "Sent",
	}
	messages := &memMessageStore{}
	seeded := &models.MailMessage{MessageID: outboundID, Direction: models.MailDirectionSent}
	seeded.ThreadID = ThreadID(seeded)
	messages.Store(context.Background(), seeded)

	requests := &fakeRequestStore{request: &models.ReimbursementRequest{ID: reimbID, Status: models.ReimbursementPending}}
	syncer := newTestSyncer(fetcher, messages, &memEdgeStore{}, requests, &fakeLocker{})

	result, err := syncer.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, result.TotalNew)
	require.Len(t, messages.stored, 1)
	assert.Equal(t, outboundID, seeded.ThreadID)
}
