package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectBuilderUsesPostgresPlaceholders(t *testing.T) {
	sb := NewSelectBuilder()
	sb.Select("id")
	sb.From("relationship_edges")
	sb.Where(sb.Or(
		sb.And(sb.Equal("entity_type_a", "receipt"), sb.Equal("entity_id_a", "r1")),
		sb.And(sb.Equal("entity_type_b", "receipt"), sb.Equal("entity_id_b", "r1")),
	))

	query, args := sb.Build()
	require.Len(t, args, 4)
	assert.NotContains(t, query, "?")
	assert.Contains(t, query, "$1")
	assert.Contains(t, query, "$4")
}

func TestInsertBuilderUsesPostgresPlaceholders(t *testing.T) {
	ib := NewInsertBuilder()
	ib.InsertInto("mail_messages")
	ib.Cols("id", "message_id")
	ib.Values("m1", "<a@b>")

	query, args := ib.Build()
	require.Len(t, args, 2)
	assert.NotContains(t, query, "?")
	assert.Contains(t, query, "$1")
	assert.Contains(t, query, "$2")
}

func TestUpdateBuilderUsesPostgresPlaceholders(t *testing.T) {
	ub := NewUpdateBuilder()
	ub.Update("reimbursement_requests")
	ub.Set(ub.Assign("status", "approved"))
	ub.Where(ub.Equal("id", "x"))

	query, args := ub.Build()
	require.Len(t, args, 2)
	assert.NotContains(t, query, "?")
	assert.Contains(t, query, "$1")
}

func TestDeleteBuilderUsesPostgresPlaceholders(t *testing.T) {
	db := NewDeleteBuilder()
	db.DeleteFrom("relationship_edges")
	db.Where(db.Equal("id", "x"))

	query, args := db.Build()
	require.Len(t, args, 1)
	assert.NotContains(t, query, "?")
	assert.Contains(t, query, "$1")
}

func TestInsertBuilderUpsert(t *testing.T) {
	ib := NewInsertBuilder()
	ib.InsertInto("settings")
	ib.Cols("key", "value")
	ib.Values("approval_keywords", "[]")
	ub := ib.OnConflict("key")
	ub.Set(ub.Assign("value", Excluded("value")))

	query, args := ib.Build()
	require.Len(t, args, 2)
	assert.Contains(t, query, "ON CONFLICT (key) DO UPDATE")
	assert.Contains(t, query, "EXCLUDED.value")
	assert.NotContains(t, query, "?")
}
