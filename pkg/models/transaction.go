package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle status of a ledger transaction
type TransactionStatus string

const (
	TransactionPending  TransactionStatus = "pending"
	TransactionComplete TransactionStatus = "complete"
	TransactionPaused   TransactionStatus = "paused"
	TransactionDeclined TransactionStatus = "declined"
)

// TransactionReimbursementStatus tracks the reimbursement side of a transaction
type TransactionReimbursementStatus string

const (
	ReimbStatusNotRequested TransactionReimbursementStatus = "not_requested"
	ReimbStatusRequested    TransactionReimbursementStatus = "requested"
	ReimbStatusApproved     TransactionReimbursementStatus = "approved"
	ReimbStatusDeclined     TransactionReimbursementStatus = "declined"
)

// LedgerTransaction is a treasury ledger entry. It is kept in sync with a
// linked reimbursement request but has its own lifecycle through budget and
// inventory linkage.
type LedgerTransaction struct {
	ID                  string                         `json:"id" db:"id"`
	Description         string                         `json:"description" db:"description"`
	Amount              decimal.Decimal                `json:"amount" db:"amount"`
	Status              TransactionStatus              `json:"status" db:"status"`
	ReimbursementStatus TransactionReimbursementStatus `json:"reimbursement_status" db:"reimbursement_status"`
	CreatedAt           time.Time                      `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time                      `json:"updated_at" db:"updated_at"`
	DeletedAt           *time.Time                     `json:"deleted_at,omitempty" db:"deleted_at"`
}
