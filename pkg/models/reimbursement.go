package models

import (
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// MaxReplyContentLen caps the reply content stored on a request
const MaxReplyContentLen = 1000

// BoundReplyContent truncates free-text reply content to MaxReplyContentLen
// characters without splitting a multi-byte rune
func BoundReplyContent(s string) string {
	if utf8.RuneCountInString(s) <= MaxReplyContentLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxReplyContentLen])
}

// ReimbursementStatus is the lifecycle status of a reimbursement request
type ReimbursementStatus string

const (
	ReimbursementPending    ReimbursementStatus = "pending"
	ReimbursementApproved   ReimbursementStatus = "approved"
	ReimbursementRejected   ReimbursementStatus = "rejected"
	ReimbursementReimbursed ReimbursementStatus = "reimbursed"
)

// IsTerminal reports whether automated reply processing may no longer mutate
// a request in this status. Terminal statuses are a one-way latch.
func (s ReimbursementStatus) IsTerminal() bool {
	switch s {
	case ReimbursementApproved, ReimbursementRejected, ReimbursementReimbursed:
		return true
	}
	return false
}

// ReimbursementRequest is an expense reimbursement request awaiting approval
type ReimbursementRequest struct {
	ID                 string              `json:"id" db:"id"`
	Description        string              `json:"description" db:"description"`
	Amount             decimal.Decimal     `json:"amount" db:"amount"`
	PurchaserName      string              `json:"purchaser_name" db:"purchaser_name"`
	BankAccount        string              `json:"bank_account" db:"bank_account"`
	Status             ReimbursementStatus `json:"status" db:"status"`
	EmailSent          bool                `json:"email_sent" db:"email_sent"`
	EmailMessageID     string              `json:"email_message_id" db:"email_message_id"`
	EmailReplyReceived bool                `json:"email_reply_received" db:"email_reply_received"`
	EmailReplyContent  string              `json:"email_reply_content" db:"email_reply_content"`
	CreatedBy          string              `json:"created_by" db:"created_by"`
	CreatedAt          time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at" db:"updated_at"`
	DeletedAt          *time.Time          `json:"deleted_at,omitempty" db:"deleted_at"`
}

// CreateReimbursementRequest is the request body for creating a reimbursement
type CreateReimbursementRequest struct {
	Description   string          `json:"description" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	PurchaserName string          `json:"purchaser_name" validate:"required"`
	BankAccount   string          `json:"bank_account" validate:"required"`
}

// SendReimbursementRequest is the request body for sending an approval email
type SendReimbursementRequest struct {
	Recipient string `json:"recipient" validate:"required,email"`
}

// ReimbursementListResponse is the API response for listing reimbursements
type ReimbursementListResponse struct {
	Items      []ReimbursementRequest `json:"items"`
	TotalCount int                    `json:"total_count"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"page_size"`
}
