package models

import "github.com/shopspring/decimal"

// EntityType identifies a kind of linkable entity
type EntityType string

const (
	EntityTypeReimbursement EntityType = "reimbursement"
	EntityTypeReceipt       EntityType = "receipt"
	EntityTypeTransaction   EntityType = "transaction"
	EntityTypeMeetingMinute EntityType = "meeting_minute"
	EntityTypeBudget        EntityType = "budget"
	EntityTypeInventoryItem EntityType = "inventory_item"
	// EntityTypeMailMessage participates in edges (messages link to the
	// requests they concern) but is not offered as a loader target kind.
	EntityTypeMailMessage EntityType = "mail_message"
)

// LinkableEntityTypes is the closed set of entity kinds the relationship
// subsystem knows how to project
var LinkableEntityTypes = []EntityType{
	EntityTypeReimbursement,
	EntityTypeReceipt,
	EntityTypeTransaction,
	EntityTypeMeetingMinute,
	EntityTypeBudget,
	EntityTypeInventoryItem,
}

// IsValidEntityType checks if a type string is a known entity kind
func IsValidEntityType(t EntityType) bool {
	for _, v := range LinkableEntityTypes {
		if v == t {
			return true
		}
	}
	return false
}

// EntityRef is the small projection of any linkable entity the relationship
// subsystem works with. Each kind supplies its own adapter to produce these.
type EntityRef struct {
	EntityType  EntityType       `json:"entity_type" db:"entity_type"`
	ID          string           `json:"id" db:"id"`
	DisplayName string           `json:"display_name" db:"display_name"`
	Status      string           `json:"status" db:"status"`
	Amount      *decimal.Decimal `json:"amount,omitempty" db:"amount"`
}
