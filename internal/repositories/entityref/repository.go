package entityref

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// EntityRefRepository resolves small projections of link-target entities
// (receipts, meeting minutes, budgets, inventory items). These kinds exist in
// Clover purely as link targets; their full lifecycle is owned elsewhere.
type EntityRefRepository interface {
	GetByIDs(ctx context.Context, entityType models.EntityType, ids []string) ([]models.EntityRef, error)
	ListOpen(ctx context.Context, entityType models.EntityType) ([]models.EntityRef, error)
}

// Repository implements EntityRefRepository on the linkable_entities table
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new entity ref repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "linkable_entities"

var columns = []string{"id", "entity_type", "display_name", "status", "amount"}

// statuses that make an entity ineligible as a new link candidate
var closedStatuses = []any{"archived", "closed"}

// GetByIDs hydrates projections for the given ids. Missing ids are simply
// absent from the result; the caller decides whether that matters.
func (r *Repository) GetByIDs(ctx context.Context, entityType models.EntityType, ids []string) ([]models.EntityRef, error) {
	ctx, span := tracing.StartSpan(ctx, "EntityRefRepository.GetByIDs")
	defer span.End()

	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("entity_type", entityType),
		sb.In("id", args...),
	)

	query, queryArgs := sb.Build()

	var refs []models.EntityRef
	err := r.db.SelectContext(ctx, &refs, query, queryArgs...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"entity_type": entityType,
			"ids":         len(ids),
		}).Error("failed to hydrate entity refs")
		return nil, fmt.Errorf("failed to hydrate entity refs: %w", err)
	}

	return refs, nil
}

// ListOpen returns candidates eligible for linking, excluding archived and
// closed entities
func (r *Repository) ListOpen(ctx context.Context, entityType models.EntityType) ([]models.EntityRef, error) {
	ctx, span := tracing.StartSpan(ctx, "EntityRefRepository.ListOpen")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(
		sb.Equal("entity_type", entityType),
		sb.NotIn("status", closedStatuses...),
	)
	sb.OrderBy("display_name ASC")

	query, args := sb.Build()

	var refs []models.EntityRef
	err := r.db.SelectContext(ctx, &refs, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("entity_type", entityType).Error("failed to list open entities")
		return nil, fmt.Errorf("failed to list open entities: %w", err)
	}

	return refs, nil
}
