package relationships

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func TestValidateAllRequirementsMet(t *testing.T) {
	counts := map[models.EntityType]int{
		models.EntityTypeReceipt:       1,
		models.EntityTypeTransaction:   2,
		models.EntityTypeMeetingMinute: 1,
	}

	result := Validate(models.EntityTypeReimbursement, counts, DefaultRules)

	assert.True(t, result.Valid)
	assert.Empty(t, result.Missing)
}

func TestValidateReportsAllMissingAtOnce(t *testing.T) {
	counts := map[models.EntityType]int{
		models.EntityTypeTransaction: 1,
	}

	result := Validate(models.EntityTypeReimbursement, counts, DefaultRules)

	assert.False(t, result.Valid)
	require.Len(t, result.Missing, 2)

	types := []models.EntityType{result.Missing[0].RequiredType, result.Missing[1].RequiredType}
	assert.Contains(t, types, models.EntityTypeReceipt)
	assert.Contains(t, types, models.EntityTypeMeetingMinute)

	for _, missing := range result.Missing {
		assert.Equal(t, 1, missing.RequiredCount)
		assert.Equal(t, 0, missing.CurrentCount)
		assert.NotEmpty(t, missing.ReasonKey)
	}
}

func TestValidateIgnoresRulesForOtherEntityTypes(t *testing.T) {
	rules := []Rule{
		{EntityType: models.EntityTypeBudget, RequiredType: models.EntityTypeReceipt, MinItems: 3},
	}

	result := Validate(models.EntityTypeReimbursement, nil, rules)

	assert.True(t, result.Valid)
	assert.Empty(t, result.Missing)
}

func TestValidateMinItemsDefaultsToOne(t *testing.T) {
	rules := []Rule{
		{EntityType: models.EntityTypeReimbursement, RequiredType: models.EntityTypeReceipt, MinItems: 0},
	}

	result := Validate(models.EntityTypeReimbursement, nil, rules)

	assert.False(t, result.Valid)
	require.Len(t, result.Missing, 1)
	assert.Equal(t, 1, result.Missing[0].RequiredCount)
}

func TestValidateCountsAboveMinimum(t *testing.T) {
	rules := []Rule{
		{EntityType: models.EntityTypeReimbursement, RequiredType: models.EntityTypeReceipt, MinItems: 2},
	}

	result := Validate(models.EntityTypeReimbursement, map[models.EntityType]int{models.EntityTypeReceipt: 1}, rules)

	assert.False(t, result.Valid)
	require.Len(t, result.Missing, 1)
	assert.Equal(t, 2, result.Missing[0].RequiredCount)
	assert.Equal(t, 1, result.Missing[0].CurrentCount)

	result = Validate(models.EntityTypeReimbursement, map[models.EntityType]int{models.EntityTypeReceipt: 5}, rules)
	assert.True(t, result.Valid)
}
