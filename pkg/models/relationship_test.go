package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePairBothOrientationsAgree(t *testing.T) {
	cases := []struct {
		name  string
		typeA EntityType
		idA   string
		typeB EntityType
		idB   string
	}{
		{"different types", EntityTypeReceipt, "r1", EntityTypeTransaction, "t1"},
		{"same type different ids", EntityTypeReceipt, "b", EntityTypeReceipt, "a"},
		{"already ordered", EntityTypeBudget, "x", EntityTypeReceipt, "y"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fTypeA, fIDA, fTypeB, fIDB := NormalizePair(tc.typeA, tc.idA, tc.typeB, tc.idB)
			rTypeA, rIDA, rTypeB, rIDB := NormalizePair(tc.typeB, tc.idB, tc.typeA, tc.idA)

			assert.Equal(t, fTypeA, rTypeA)
			assert.Equal(t, fIDA, rIDA)
			assert.Equal(t, fTypeB, rTypeB)
			assert.Equal(t, fIDB, rIDB)

			assert.True(t, fTypeA < fTypeB || (fTypeA == fTypeB && fIDA <= fIDB))
		})
	}
}

func TestEdgeOther(t *testing.T) {
	edge := RelationshipEdge{
		EntityTypeA: EntityTypeReceipt, EntityIDA: "r1",
		EntityTypeB: EntityTypeReimbursement, EntityIDB: "m1",
	}

	otherType, otherID, ok := edge.Other(EntityTypeReceipt, "r1")
	assert.True(t, ok)
	assert.Equal(t, EntityTypeReimbursement, otherType)
	assert.Equal(t, "m1", otherID)

	otherType, otherID, ok = edge.Other(EntityTypeReimbursement, "m1")
	assert.True(t, ok)
	assert.Equal(t, EntityTypeReceipt, otherType)
	assert.Equal(t, "r1", otherID)

	_, _, ok = edge.Other(EntityTypeReceipt, "r2")
	assert.False(t, ok)
}

func TestReimbursementStatusTerminal(t *testing.T) {
	assert.False(t, ReimbursementPending.IsTerminal())
	assert.True(t, ReimbursementApproved.IsTerminal())
	assert.True(t, ReimbursementRejected.IsTerminal())
	assert.True(t, ReimbursementReimbursed.IsTerminal())
}

func TestIsValidEntityTypeExcludesMailMessages(t *testing.T) {
	assert.True(t, IsValidEntityType(EntityTypeReceipt))
	assert.True(t, IsValidEntityType(EntityTypeReimbursement))
	assert.False(t, IsValidEntityType(EntityTypeMailMessage))
	assert.False(t, IsValidEntityType(EntityType("bogus")))
}

func TestAIEnabledRequiresKeyAndModel(t *testing.T) {
	assert.False(t, (&Settings{}).AIEnabled())
	assert.False(t, (&Settings{AIAPIKey: "sk"}).AIEnabled())
	assert.False(t, (&Settings{AIModel: "gpt-4o-mini"}).AIEnabled())
	assert.True(t, (&Settings{AIAPIKey: "sk", AIModel: "gpt-4o-mini"}).AIEnabled())
}
