package reimbursement

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/mailer"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/relationships"
)

const testRequestID = "0f8c2b51-9d7a-4a3e-b2c1-6f4e8d9a1b2c"

type fakeRequests struct {
	requests        map[string]*models.ReimbursementRequest
	getErr          error
	markSentErr     error
	markSentID      string
	markSentMsgID   string
	markSentCalls   int
}

func (f *fakeRequests) Create(ctx context.Context, req models.CreateReimbursementRequest, createdBy string) (*models.ReimbursementRequest, error) {
	return nil, nil
}

func (f *fakeRequests) GetByID(ctx context.Context, id string) (*models.ReimbursementRequest, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.requests[id], nil
}

func (f *fakeRequests) List(ctx context.Context, page, pageSize int) ([]models.ReimbursementRequest, int, error) {
	return nil, 0, nil
}

func (f *fakeRequests) MarkEmailSent(ctx context.Context, id string, emailMessageID string) error {
	if f.markSentErr != nil {
		return f.markSentErr
	}
	f.markSentCalls++
	f.markSentID = id
	f.markSentMsgID = emailMessageID
	if req, ok := f.requests[id]; ok {
		req.EmailSent = true
		req.EmailMessageID = emailMessageID
	}
	return nil
}

func (f *fakeRequests) RecordReply(ctx context.Context, id string, replyContent string) error {
	return nil
}

func (f *fakeRequests) SetStatus(ctx context.Context, id string, status models.ReimbursementStatus, replyContent string) error {
	return nil
}

func (f *fakeRequests) Delete(ctx context.Context, id string) error {
	return nil
}

type fakeSender struct {
	sent      *mailer.SentMail
	err       error
	recipient string
	calls     int
}

func (f *fakeSender) SendRequest(ctx context.Context, req *models.ReimbursementRequest, recipient string) (*mailer.SentMail, error) {
	f.calls++
	f.recipient = recipient
	if f.err != nil {
		return nil, f.err
	}
	return f.sent, nil
}

type fakeMessages struct {
	stored []*models.MailMessage
	err    error
}

func (f *fakeMessages) Store(ctx context.Context, msg *models.MailMessage) (*models.MailMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	msg.ID = "stored-msg-1"
	f.stored = append(f.stored, msg)
	return msg, nil
}

type fakeEdges struct {
	queried []models.RelationshipEdge
	created []models.RelationshipEdge
	err     error
}

func (f *fakeEdges) Query(ctx context.Context, entityType models.EntityType, entityID string) ([]models.RelationshipEdge, error) {
	return f.queried, nil
}

func (f *fakeEdges) Create(ctx context.Context, typeA models.EntityType, idA string, typeB models.EntityType, idB string, createdBy string) (*models.RelationshipEdge, error) {
	if f.err != nil {
		return nil, f.err
	}
	typeA, idA, typeB, idB = models.NormalizePair(typeA, idA, typeB, idB)
	edge := models.RelationshipEdge{EntityTypeA: typeA, EntityIDA: idA, EntityTypeB: typeB, EntityIDB: idB, CreatedBy: createdBy}
	f.created = append(f.created, edge)
	return &edge, nil
}

type fakeAdapter struct {
	kind models.EntityType
	refs []models.EntityRef
}

func (f *fakeAdapter) Kind() models.EntityType { return f.kind }

func (f *fakeAdapter) GetByIDs(ctx context.Context, ids []string) ([]models.EntityRef, error) {
	var out []models.EntityRef
	for _, id := range ids {
		for _, ref := range f.refs {
			if ref.ID == id {
				out = append(out, ref)
			}
		}
	}
	return out, nil
}

func (f *fakeAdapter) ListOpen(ctx context.Context) ([]models.EntityRef, error) {
	return f.refs, nil
}

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func linkedEdge(otherType models.EntityType, otherID string) models.RelationshipEdge {
	typeA, idA, typeB, idB := models.NormalizePair(models.EntityTypeReimbursement, testRequestID, otherType, otherID)
	return models.RelationshipEdge{EntityTypeA: typeA, EntityIDA: idA, EntityTypeB: typeB, EntityIDB: idB}
}

func pendingRequest() *models.ReimbursementRequest {
	return &models.ReimbursementRequest{
		ID:            testRequestID,
		Description:   "Team lunch",
		Amount:        decimal.NewFromFloat(84.50),
		PurchaserName: "Dana",
		Status:        models.ReimbursementPending,
	}
}

func sendRules() []relationships.Rule {
	return []relationships.Rule{
		{EntityType: models.EntityTypeReimbursement, RequiredType: models.EntityTypeReceipt, MinItems: 1, ReasonKey: "receipt_required"},
		{EntityType: models.EntityTypeReimbursement, RequiredType: models.EntityTypeMeetingMinute, MinItems: 1, ReasonKey: "minutes_required"},
	}
}

func newTestService(requests *fakeRequests, edges *fakeEdges, sender *fakeSender, messages *fakeMessages) *Service {
	logger := noopLogger()
	registry := relationships.NewRegistry(
		&fakeAdapter{kind: models.EntityTypeReceipt, refs: []models.EntityRef{{EntityType: models.EntityTypeReceipt, ID: "r1", DisplayName: "Lunch receipt"}}},
		&fakeAdapter{kind: models.EntityTypeMeetingMinute, refs: []models.EntityRef{{EntityType: models.EntityTypeMeetingMinute, ID: "mm1", DisplayName: "August minutes"}}},
	)
	loader := relationships.NewLoader(edges, registry, logger)
	return NewService(requests, loader, sendRules(), sender, messages, edges, logger)
}

func TestSendHappyPath(t *testing.T) {
	requests := &fakeRequests{requests: map[string]*models.ReimbursementRequest{testRequestID: pendingRequest()}}
	edges := &fakeEdges{queried: []models.RelationshipEdge{
		linkedEdge(models.EntityTypeReceipt, "r1"),
		linkedEdge(models.EntityTypeMeetingMinute, "mm1"),
	}}
	sender := &fakeSender{sent: &mailer.SentMail{
		MessageID: "out-1@clover.local",
		Subject:   "Approval needed: Team lunch",
		From:      "clover@clover.local",
		To:        []string{"treasurer@example.com"},
		Body:      "please approve",
		SentAt:    time.Now(),
	}}
	messages := &fakeMessages{}
	svc := newTestService(requests, edges, sender, messages)

	req, err := svc.Send(context.Background(), testRequestID, "treasurer@example.com", "user-1")
	require.NoError(t, err)
	require.NotNil(t, req)

	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, "treasurer@example.com", sender.recipient)
	assert.Equal(t, 1, requests.markSentCalls)
	assert.Equal(t, testRequestID, requests.markSentID)
	assert.Equal(t, "out-1@clover.local", requests.markSentMsgID)
	assert.True(t, req.EmailSent)

	require.Len(t, messages.stored, 1)
	copyMsg := messages.stored[0]
	assert.Equal(t, models.MailDirectionSent, copyMsg.Direction)
	assert.Equal(t, "out-1@clover.local", copyMsg.MessageID)
	assert.NotEmpty(t, copyMsg.ThreadID)

	require.Len(t, edges.created, 1)
	assert.True(t, edges.created[0].Touches(models.EntityTypeMailMessage, "stored-msg-1"))
	assert.True(t, edges.created[0].Touches(models.EntityTypeReimbursement, testRequestID))
	assert.Equal(t, "user-1", edges.created[0].CreatedBy)
}

func TestSendReportsAllMissingRequirements(t *testing.T) {
	requests := &fakeRequests{requests: map[string]*models.ReimbursementRequest{testRequestID: pendingRequest()}}
	edges := &fakeEdges{}
	sender := &fakeSender{}
	svc := newTestService(requests, edges, sender, &fakeMessages{})

	_, err := svc.Send(context.Background(), testRequestID, "treasurer@example.com", "user-1")
	require.Error(t, err)
	assert.True(t, httperror.IsHTTPError(err))
	assert.Equal(t, http.StatusUnprocessableEntity, httperror.GetStatusCode(err))
	assert.Equal(t, 0, sender.calls)
}

func TestSendPartialRequirementsStillBlocked(t *testing.T) {
	requests := &fakeRequests{requests: map[string]*models.ReimbursementRequest{testRequestID: pendingRequest()}}
	edges := &fakeEdges{queried: []models.RelationshipEdge{linkedEdge(models.EntityTypeReceipt, "r1")}}
	sender := &fakeSender{}
	svc := newTestService(requests, edges, sender, &fakeMessages{})

	_, err := svc.Send(context.Background(), testRequestID, "treasurer@example.com", "user-1")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, httperror.GetStatusCode(err))
	assert.Equal(t, 0, sender.calls)
}

func TestSendTerminalRequestConflicts(t *testing.T) {
	req := pendingRequest()
	req.Status = models.ReimbursementApproved
	requests := &fakeRequests{requests: map[string]*models.ReimbursementRequest{testRequestID: req}}
	sender := &fakeSender{}
	svc := newTestService(requests, &fakeEdges{}, sender, &fakeMessages{})

	_, err := svc.Send(context.Background(), testRequestID, "treasurer@example.com", "user-1")
	require.Error(t, err)
	assert.True(t, httperror.IsHTTPError(err))
	assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))
	assert.Equal(t, 0, sender.calls)
}

func TestSendUnknownRequestNotFound(t *testing.T) {
	requests := &fakeRequests{requests: map[string]*models.ReimbursementRequest{}}
	svc := newTestService(requests, &fakeEdges{}, &fakeSender{}, &fakeMessages{})

	_, err := svc.Send(context.Background(), testRequestID, "treasurer@example.com", "user-1")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}

func TestSendMailerFailureIsBadGateway(t *testing.T) {
	requests := &fakeRequests{requests: map[string]*models.ReimbursementRequest{testRequestID: pendingRequest()}}
	edges := &fakeEdges{queried: []models.RelationshipEdge{
		linkedEdge(models.EntityTypeReceipt, "r1"),
		linkedEdge(models.EntityTypeMeetingMinute, "mm1"),
	}}
	sender := &fakeSender{err: errors.New("smtp refused")}
	svc := newTestService(requests, edges, sender, &fakeMessages{})

	_, err := svc.Send(context.Background(), testRequestID, "treasurer@example.com", "user-1")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, httperror.GetStatusCode(err))
	assert.Equal(t, 0, requests.markSentCalls)
}

func TestSendStoreCopyFailureIsNonFatal(t *testing.T) {
	requests := &fakeRequests{requests: map[string]*models.ReimbursementRequest{testRequestID: pendingRequest()}}
	edges := &fakeEdges{queried: []models.RelationshipEdge{
		linkedEdge(models.EntityTypeReceipt, "r1"),
		linkedEdge(models.EntityTypeMeetingMinute, "mm1"),
	}}
	sender := &fakeSender{sent: &mailer.SentMail{MessageID: "out-2@clover.local", From: "clover@clover.local", To: []string{"treasurer@example.com"}, SentAt: time.Now()}}
	messages := &fakeMessages{err: errors.New("db down")}
	svc := newTestService(requests, edges, sender, messages)

	req, err := svc.Send(context.Background(), testRequestID, "treasurer@example.com", "user-1")
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.True(t, req.EmailSent)
	assert.Empty(t, edges.created)
}

func TestRelationshipsUnknownRequestNotFound(t *testing.T) {
	requests := &fakeRequests{requests: map[string]*models.ReimbursementRequest{}}
	svc := newTestService(requests, &fakeEdges{}, &fakeSender{}, &fakeMessages{})

	_, err := svc.Relationships(context.Background(), testRequestID, []models.EntityType{models.EntityTypeReceipt}, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))
}

func TestRelationshipsReturnsLoadedView(t *testing.T) {
	requests := &fakeRequests{requests: map[string]*models.ReimbursementRequest{testRequestID: pendingRequest()}}
	edges := &fakeEdges{queried: []models.RelationshipEdge{linkedEdge(models.EntityTypeReceipt, "r1")}}
	svc := newTestService(requests, edges, &fakeSender{}, &fakeMessages{})

	loaded, err := svc.Relationships(context.Background(), testRequestID, []models.EntityType{models.EntityTypeReceipt}, nil)
	require.NoError(t, err)
	require.Contains(t, loaded.Kinds, models.EntityTypeReceipt)
	assert.Len(t, loaded.Kinds[models.EntityTypeReceipt].Linked, 1)
}
