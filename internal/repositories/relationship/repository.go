package relationship

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
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// RelationshipRepository defines the interface for relationship edge operations
type RelationshipRepository interface {
	Create(ctx context.Context, typeA models.EntityType, idA string, typeB models.EntityType, idB string, createdBy string) (*models.RelationshipEdge, error)
	Delete(ctx context.Context, edgeID string) error
	Exists(ctx context.Context, typeA models.EntityType, idA string, typeB models.EntityType, idB string) (bool, error)
	Query(ctx context.Context, entityType models.EntityType, entityID string) ([]models.RelationshipEdge, error)
	QueryMany(ctx context.Context, entityType models.EntityType, entityIDs []string) (map[string][]models.RelationshipEdge, error)
}

// Repository implements RelationshipRepository on postgres
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new relationship repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "relationship_edges"

var columns = []string{"id", "entity_type_a", "entity_id_a", "entity_type_b", "entity_id_b", "created_by", "created_at"}

// Create links two entities. The pair is normalized before storage so both
// orientations resolve to the same edge; creating an existing edge returns it
// unchanged. Self-edges are rejected.
func (r *Repository) Create(ctx context.Context, typeA models.EntityType, idA string, typeB models.EntityType, idB string, createdBy string) (*models.RelationshipEdge, error) {
	ctx, span := tracing.StartSpan(ctx, "RelationshipRepository.Create")
	defer span.End()

	if typeA == typeB && idA == idB {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "an entity cannot be linked to itself")
	}

	typeA, idA, typeB, idB = models.NormalizePair(typeA, idA, typeB, idB)

	existing, err := r.get(ctx, typeA, idA, typeB, idB)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	edge := models.RelationshipEdge{
		ID:          uuid.New().String(),
		EntityTypeA: typeA,
		EntityIDA:   idA,
		EntityTypeB: typeB,
		EntityIDB:   idB,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now().UTC(),
	}

	sb := database.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(edge.ID, edge.EntityTypeA, edge.EntityIDA, edge.EntityTypeB, edge.EntityIDB, edge.CreatedBy, edge.CreatedAt)

	query, args := sb.Build()

	_, err = r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"entity_type_a": typeA,
			"entity_id_a":   idA,
			"entity_type_b": typeB,
			"entity_id_b":   idB,
		}).Error("failed to create relationship edge")
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to create relationship: %s", err.Error())
	}

	metrics.RelationshipEdges.WithLabelValues("create").Inc()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":            edge.ID,
		"entity_type_a": typeA,
		"entity_id_a":   idA,
		"entity_type_b": typeB,
		"entity_id_b":   idB,
	}).Info("created relationship edge")

	return &edge, nil
}

// Delete removes an edge by id. Callers clean up any dependent state; there is
// no cascading enforcement.
func (r *Repository) Delete(ctx context.Context, edgeID string) error {
	ctx, span := tracing.StartSpan(ctx, "RelationshipRepository.Delete")
	defer span.End()

	sb := database.NewDeleteBuilder()
	sb.DeleteFrom(tableName)
	sb.Where(sb.Equal("id", edgeID))

	query, args := sb.Build()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("id", edgeID).Error("failed to delete relationship edge")
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to delete relationship: %s", err.Error())
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, "relationship not found")
	}

	metrics.RelationshipEdges.WithLabelValues("delete").Inc()

	r.logger.WithContext(ctx).WithField("id", edgeID).Info("deleted relationship edge")
	return nil
}

// Exists reports whether an edge links the two entities, in either orientation
func (r *Repository) Exists(ctx context.Context, typeA models.EntityType, idA string, typeB models.EntityType, idB string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "RelationshipRepository.Exists")
	defer span.End()

	typeA, idA, typeB, idB = models.NormalizePair(typeA, idA, typeB, idB)

	edge, err := r.get(ctx, typeA, idA, typeB, idB)
	if err != nil {
		return false, err
	}
	return edge != nil, nil
}

// Query returns all edges touching the given entity from either side
func (r *Repository) Query(ctx context.Context, entityType models.EntityType, entityID string) ([]models.RelationshipEdge, error) {
	ctx, span := tracing.StartSpan(ctx, "RelationshipRepository.Query")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Or(
			sb.And(sb.Equal("entity_type_a", entityType), sb.Equal("entity_id_a", entityID)),
			sb.And(sb.Equal("entity_type_b", entityType), sb.Equal("entity_id_b", entityID)),
		),
	)
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()

	var edges []models.RelationshipEdge
	err := r.db.SelectContext(ctx, &edges, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"entity_type": entityType,
			"entity_id":   entityID,
		}).Error("failed to query relationship edges")
		return nil, fmt.Errorf("failed to query relationships: %w", err)
	}

	return edges, nil
}

// QueryMany returns edges for N entities of one type in a single pass, keyed
// by entity id
func (r *Repository) QueryMany(ctx context.Context, entityType models.EntityType, entityIDs []string) (map[string][]models.RelationshipEdge, error) {
	ctx, span := tracing.StartSpan(ctx, "RelationshipRepository.QueryMany")
	defer span.End()

	result := make(map[string][]models.RelationshipEdge, len(entityIDs))
	if len(entityIDs) == 0 {
		return result, nil
	}

	ids := make([]any, len(entityIDs))
	for i, id := range entityIDs {
		ids[i] = id
	}

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Or(
			sb.And(sb.Equal("entity_type_a", entityType), sb.In("entity_id_a", ids...)),
			sb.And(sb.Equal("entity_type_b", entityType), sb.In("entity_id_b", ids...)),
		),
	)
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()

	var edges []models.RelationshipEdge
	err := r.db.SelectContext(ctx, &edges, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"entity_type": entityType,
			"entity_ids":  len(entityIDs),
		}).Error("failed to batch query relationship edges")
		return nil, fmt.Errorf("failed to batch query relationships: %w", err)
	}

	for _, edge := range edges {
		for _, id := range entityIDs {
			if edge.Touches(entityType, id) {
				result[id] = append(result[id], edge)
			}
		}
	}

	return result, nil
}

func (r *Repository) get(ctx context.Context, typeA models.EntityType, idA string, typeB models.EntityType, idB string) (*models.RelationshipEdge, error) {
	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("entity_type_a", typeA),
		sb.Equal("entity_id_a", idA),
		sb.Equal("entity_type_b", typeB),
		sb.Equal("entity_id_b", idB),
	)

	query, args := sb.Build()

	var edge models.RelationshipEdge
	err := r.db.GetContext(ctx, &edge, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get relationship edge")
		return nil, fmt.Errorf("failed to get relationship: %w", err)
	}

	return &edge, nil
}
