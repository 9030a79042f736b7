package relationships

import "github.com/Ramsey-B/clover/pkg/models"

// Rule declares that an entity type needs at least MinItems linked entities
// of RequiredType before a workflow transition is permitted. Rules are static
// configuration, not per-instance state.
type Rule struct {
	EntityType   models.EntityType `json:"entity_type"`
	RequiredType models.EntityType `json:"required_type"`
	MinItems     int               `json:"min_items"`
	ReasonKey    string            `json:"reason_key"`
}

// Missing describes one unmet requirement
type Missing struct {
	RequiredType  models.EntityType `json:"required_type"`
	RequiredCount int               `json:"required_count"`
	CurrentCount  int               `json:"current_count"`
	ReasonKey     string            `json:"reason_key"`
}

// ValidationResult is the outcome of evaluating all rules for an entity
type ValidationResult struct {
	Valid   bool      `json:"valid"`
	Missing []Missing `json:"missing"`
}

// DefaultRules gates sending a reimbursement approval email on the presence
// of supporting evidence.
var DefaultRules = []Rule{
	{EntityType: models.EntityTypeReimbursement, RequiredType: models.EntityTypeReceipt, MinItems: 1, ReasonKey: "reimbursement.missing_receipt"},
	{EntityType: models.EntityTypeReimbursement, RequiredType: models.EntityTypeTransaction, MinItems: 1, ReasonKey: "reimbursement.missing_transaction"},
	{EntityType: models.EntityTypeReimbursement, RequiredType: models.EntityTypeMeetingMinute, MinItems: 1, ReasonKey: "reimbursement.missing_minute"},
}

// Validate evaluates every rule for the entity type against the linked counts
// and reports all unmet requirements at once. It never mutates state.
func Validate(entityType models.EntityType, linkedCounts map[models.EntityType]int, rules []Rule) ValidationResult {
	result := ValidationResult{Valid: true, Missing: []Missing{}}

	for _, rule := range rules {
		if rule.EntityType != entityType {
			continue
		}

		required := rule.MinItems
		if required < 1 {
			required = 1
		}

		current := linkedCounts[rule.RequiredType]
		if current < required {
			result.Valid = false
			result.Missing = append(result.Missing, Missing{
				RequiredType:  rule.RequiredType,
				RequiredCount: required,
				CurrentCount:  current,
				ReasonKey:     rule.ReasonKey,
			})
		}
	}

	return result
}
