package models

import "time"

// RelationshipEdge is a stored association between two entity references.
// The pair is stored orientation-normalized so that a link from A to B and a
// link from B to A are the same edge.
type RelationshipEdge struct {
	ID          string     `json:"id" db:"id"`
	EntityTypeA EntityType `json:"entity_type_a" db:"entity_type_a"`
	EntityIDA   string     `json:"entity_id_a" db:"entity_id_a"`
	EntityTypeB EntityType `json:"entity_type_b" db:"entity_type_b"`
	EntityIDB   string     `json:"entity_id_b" db:"entity_id_b"`
	CreatedBy   string     `json:"created_by" db:"created_by"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Other returns the opposite side of the edge relative to the given entity.
// ok is false when the entity is on neither side.
func (e *RelationshipEdge) Other(entityType EntityType, entityID string) (EntityType, string, bool) {
	if e.EntityTypeA == entityType && e.EntityIDA == entityID {
		return e.EntityTypeB, e.EntityIDB, true
	}
	if e.EntityTypeB == entityType && e.EntityIDB == entityID {
		return e.EntityTypeA, e.EntityIDA, true
	}
	return "", "", false
}

// Touches reports whether the edge references the given entity on either side
func (e *RelationshipEdge) Touches(entityType EntityType, entityID string) bool {
	_, _, ok := e.Other(entityType, entityID)
	return ok
}

// NormalizePair orders an unordered (type,id) pair deterministically so that
// both orientations map to the same stored edge. Ordering is lexicographic by
// type, then by id.
func NormalizePair(typeA EntityType, idA string, typeB EntityType, idB string) (EntityType, string, EntityType, string) {
	if typeA > typeB || (typeA == typeB && idA > idB) {
		return typeB, idB, typeA, idA
	}
	return typeA, idA, typeB, idB
}

// CreateRelationshipRequest is the request body for linking two entities
type CreateRelationshipRequest struct {
	EntityTypeA EntityType `json:"entity_type_a" validate:"required"`
	EntityIDA   string     `json:"entity_id_a" validate:"required,uuid"`
	EntityTypeB EntityType `json:"entity_type_b" validate:"required"`
	EntityIDB   string     `json:"entity_id_b" validate:"required,uuid"`
}

// RelationshipListResponse is the API response for listing edges of an entity
type RelationshipListResponse struct {
	Items      []RelationshipEdge `json:"items"`
	TotalCount int                `json:"total_count"`
}
