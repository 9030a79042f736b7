// Package relationships resolves linked and linkable entities for a source
// entity across heterogeneous kinds, and validates link requirements ahead of
// workflow transitions.
package relationships

import (
	"context"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Adapter hydrates projections for one entity kind. The relationship
// subsystem treats every kind opaquely through this interface.
type Adapter interface {
	Kind() models.EntityType
	GetByIDs(ctx context.Context, ids []string) ([]models.EntityRef, error)
	ListOpen(ctx context.Context) ([]models.EntityRef, error)
}

// Registry holds the adapter for each linkable entity kind
type Registry struct {
	adapters map[models.EntityType]Adapter
}

// NewRegistry creates a registry from the given adapters
func NewRegistry(adapters ...Adapter) *Registry {
	reg := &Registry{adapters: make(map[models.EntityType]Adapter, len(adapters))}
	for _, a := range adapters {
		reg.adapters[a.Kind()] = a
	}
	return reg
}

// Get returns the adapter for a kind, or nil when the kind is unknown
func (r *Registry) Get(kind models.EntityType) Adapter {
	return r.adapters[kind]
}

// PermissionSet restricts which entity kinds a caller may read. A nil
// PermissionSet allows everything.
type PermissionSet map[models.EntityType]bool

// CanRead reports whether the caller may read the given kind
func (p PermissionSet) CanRead(kind models.EntityType) bool {
	if p == nil {
		return true
	}
	return p[kind]
}

// EdgeQuerier is the slice of the relationship store the loader needs
type EdgeQuerier interface {
	Query(ctx context.Context, entityType models.EntityType, entityID string) ([]models.RelationshipEdge, error)
}

// KindView holds the loader output for one target kind
type KindView struct {
	Linked    []models.EntityRef `json:"linked"`
	Available []models.EntityRef `json:"available"`
}

// Loaded is the per-target-kind view of an entity's relationships
type Loaded struct {
	Kinds map[models.EntityType]KindView `json:"kinds"`
}

// LinkedCounts returns how many linked entities each kind has, the shape the
// requirement validator consumes
func (l *Loaded) LinkedCounts() map[models.EntityType]int {
	counts := make(map[models.EntityType]int, len(l.Kinds))
	for kind, view := range l.Kinds {
		counts[kind] = len(view.Linked)
	}
	return counts
}

// Loader resolves linked + available entities per target kind
type Loader struct {
	edges    EdgeQuerier
	registry *Registry
	logger   ectologger.Logger
}

// NewLoader creates a new relationship loader
func NewLoader(edges EdgeQuerier, registry *Registry, logger ectologger.Logger) *Loader {
	return &Loader{
		edges:    edges,
		registry: registry,
		logger:   logger,
	}
}

// Load returns, for each requested target kind, the entities linked to the
// source and the open candidates not yet linked. Kinds the caller cannot read
// are dropped before any hydration. Hydration failures are logged and the
// affected items skipped; they never fail the whole load. Per-kind hydration
// fans out concurrently since each lookup is independent and read-only.
func (l *Loader) Load(ctx context.Context, sourceType models.EntityType, sourceID string, targetKinds []models.EntityType, perms PermissionSet) (*Loaded, error) {
	ctx, span := tracing.StartSpan(ctx, "Loader.Load")
	defer span.End()

	edges, err := l.edges.Query(ctx, sourceType, sourceID)
	if err != nil {
		return nil, err
	}

	linkedIDs := make(map[models.EntityType][]string)
	for _, edge := range edges {
		otherType, otherID, ok := edge.Other(sourceType, sourceID)
		if !ok {
			continue
		}
		linkedIDs[otherType] = append(linkedIDs[otherType], otherID)
	}

	loaded := &Loaded{Kinds: make(map[models.EntityType]KindView, len(targetKinds))}

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, kind := range targetKinds {
		if !perms.CanRead(kind) {
			continue
		}

		adapter := l.registry.Get(kind)
		if adapter == nil {
			l.logger.WithContext(ctx).WithField("entity_type", kind).Warn("no adapter registered for entity kind")
			continue
		}

		wg.Add(1)
		go func(kind models.EntityType, adapter Adapter) {
			defer wg.Done()

			view := l.loadKind(ctx, adapter, linkedIDs[kind])

			mu.Lock()
			loaded.Kinds[kind] = view
			mu.Unlock()
		}(kind, adapter)
	}

	wg.Wait()

	return loaded, nil
}

func (l *Loader) loadKind(ctx context.Context, adapter Adapter, linkedIDs []string) KindView {
	view := KindView{Linked: []models.EntityRef{}, Available: []models.EntityRef{}}

	if len(linkedIDs) > 0 {
		linked, err := adapter.GetByIDs(ctx, linkedIDs)
		if err != nil {
			l.logger.WithContext(ctx).WithError(err).WithField("entity_type", adapter.Kind()).Error("failed to hydrate linked entities, skipping kind")
		} else {
			if len(linked) < len(linkedIDs) {
				l.logger.WithContext(ctx).WithFields(map[string]any{
					"entity_type": adapter.Kind(),
					"requested":   len(linkedIDs),
					"resolved":    len(linked),
				}).Warn("some linked entities could not be hydrated")
			}
			view.Linked = linked
		}
	}

	open, err := adapter.ListOpen(ctx)
	if err != nil {
		l.logger.WithContext(ctx).WithError(err).WithField("entity_type", adapter.Kind()).Error("failed to list available entities, skipping kind")
		return view
	}

	isLinked := make(map[string]bool, len(linkedIDs))
	for _, id := range linkedIDs {
		isLinked[id] = true
	}
	for _, ref := range open {
		if !isLinked[ref.ID] {
			view.Available = append(view.Available, ref)
		}
	}

	return view
}
