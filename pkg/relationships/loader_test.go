package relationships

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

type fakeEdges struct {
	edges []models.RelationshipEdge
	err   error
}

func (f *fakeEdges) Query(ctx context.Context, entityType models.EntityType, entityID string) ([]models.RelationshipEdge, error) {
	return f.edges, f.err
}

type fakeAdapter struct {
	kind       models.EntityType
	byID       map[string]models.EntityRef
	open       []models.EntityRef
	getErr     error
	listErr    error
	getCalled  bool
	listCalled bool
}

func (f *fakeAdapter) Kind() models.EntityType { return f.kind }

func (f *fakeAdapter) GetByIDs(ctx context.Context, ids []string) ([]models.EntityRef, error) {
	f.getCalled = true
	if f.getErr != nil {
		return nil, f.getErr
	}
	var refs []models.EntityRef
	for _, id := range ids {
		if ref, ok := f.byID[id]; ok {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

func (f *fakeAdapter) ListOpen(ctx context.Context) ([]models.EntityRef, error) {
	f.listCalled = true
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.open, nil
}

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func edge(typeA models.EntityType, idA string, typeB models.EntityType, idB string) models.RelationshipEdge {
	typeA, idA, typeB, idB = models.NormalizePair(typeA, idA, typeB, idB)
	return models.RelationshipEdge{EntityTypeA: typeA, EntityIDA: idA, EntityTypeB: typeB, EntityIDB: idB}
}

func TestLoaderSplitsLinkedAndAvailable(t *testing.T) {
	reimbID := "7e6d3a1c-0000-0000-0000-000000000001"

	receipts := &fakeAdapter{
		kind: models.EntityTypeReceipt,
		byID: map[string]models.EntityRef{
			"r1": {EntityType: models.EntityTypeReceipt, ID: "r1", DisplayName: "Taxi receipt"},
		},
		open: []models.EntityRef{
			{EntityType: models.EntityTypeReceipt, ID: "r1", DisplayName: "Taxi receipt"},
			{EntityType: models.EntityTypeReceipt, ID: "r2", DisplayName: "Lunch receipt"},
		},
	}

	edges := &fakeEdges{edges: []models.RelationshipEdge{
		edge(models.EntityTypeReimbursement, reimbID, models.EntityTypeReceipt, "r1"),
	}}

	loader := NewLoader(edges, NewRegistry(receipts), noopLogger())

	loaded, err := loader.Load(context.Background(), models.EntityTypeReimbursement, reimbID, []models.EntityType{models.EntityTypeReceipt}, nil)
	require.NoError(t, err)

	view, ok := loaded.Kinds[models.EntityTypeReceipt]
	require.True(t, ok)
	require.Len(t, view.Linked, 1)
	assert.Equal(t, "r1", view.Linked[0].ID)
	require.Len(t, view.Available, 1)
	assert.Equal(t, "r2", view.Available[0].ID)

	counts := loaded.LinkedCounts()
	assert.Equal(t, 1, counts[models.EntityTypeReceipt])
}

func TestLoaderDropsUnreadableKindsBeforeHydration(t *testing.T) {
	receipts := &fakeAdapter{kind: models.EntityTypeReceipt}
	transactions := &fakeAdapter{kind: models.EntityTypeTransaction}

	loader := NewLoader(&fakeEdges{}, NewRegistry(receipts, transactions), noopLogger())

	perms := PermissionSet{models.EntityTypeTransaction: true}

	loaded, err := loader.Load(context.Background(), models.EntityTypeReimbursement, "id-1",
		[]models.EntityType{models.EntityTypeReceipt, models.EntityTypeTransaction}, perms)
	require.NoError(t, err)

	_, hasReceipts := loaded.Kinds[models.EntityTypeReceipt]
	assert.False(t, hasReceipts)
	assert.False(t, receipts.getCalled)
	assert.False(t, receipts.listCalled)

	_, hasTransactions := loaded.Kinds[models.EntityTypeTransaction]
	assert.True(t, hasTransactions)
}

func TestLoaderSkipsKindOnHydrationFailure(t *testing.T) {
	reimbID := "7e6d3a1c-0000-0000-0000-000000000001"

	broken := &fakeAdapter{
		kind:   models.EntityTypeReceipt,
		getErr: errors.New("upstream down"),
		open:   []models.EntityRef{{EntityType: models.EntityTypeReceipt, ID: "r2"}},
	}

	edges := &fakeEdges{edges: []models.RelationshipEdge{
		edge(models.EntityTypeReimbursement, reimbID, models.EntityTypeReceipt, "r1"),
	}}

	loader := NewLoader(edges, NewRegistry(broken), noopLogger())

	loaded, err := loader.Load(context.Background(), models.EntityTypeReimbursement, reimbID, []models.EntityType{models.EntityTypeReceipt}, nil)
	require.NoError(t, err)

	view := loaded.Kinds[models.EntityTypeReceipt]
	assert.Empty(t, view.Linked)
	require.Len(t, view.Available, 1)
}

func TestLoaderFailsOnEdgeQueryError(t *testing.T) {
	loader := NewLoader(&fakeEdges{err: errors.New("db down")}, NewRegistry(), noopLogger())

	_, err := loader.Load(context.Background(), models.EntityTypeReimbursement, "id-1", nil, nil)
	assert.Error(t, err)
}

func TestLoaderSkipsUnknownKinds(t *testing.T) {
	loader := NewLoader(&fakeEdges{}, NewRegistry(), noopLogger())

	loaded, err := loader.Load(context.Background(), models.EntityTypeReimbursement, "id-1",
		[]models.EntityType{models.EntityTypeBudget}, nil)
	require.NoError(t, err)
	assert.Empty(t, loaded.Kinds)
}
