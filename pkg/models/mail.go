package models

import (
	"time"

	"github.com/lib/pq"
)

// MailDirection indicates which mailbox a stored message came from
type MailDirection string

const (
	MailDirectionInbox MailDirection = "inbox"
	MailDirectionSent  MailDirection = "sent"
)

// MailMessage is a stored copy of a message pulled from the remote mailbox.
// MessageID may be empty when the origin server omitted one; thread identity
// then degrades to a synthetic self-id.
type MailMessage struct {
	ID          string         `json:"id" db:"id"`
	MessageID   string         `json:"message_id" db:"message_id"`
	InReplyTo   string         `json:"in_reply_to" db:"in_reply_to"`
	References  pq.StringArray `json:"references" db:"references_list"`
	ThreadID    string         `json:"thread_id" db:"thread_id"`
	Direction   MailDirection  `json:"direction" db:"direction"`
	FromAddress string         `json:"from_address" db:"from_address"`
	ToAddresses pq.StringArray `json:"to_addresses" db:"to_addresses"`
	Subject     string         `json:"subject" db:"subject"`
	BodyText    string         `json:"body_text" db:"body_text"`
	BodyHTML    string         `json:"body_html" db:"body_html"`
	SentAt      time.Time      `json:"sent_at" db:"sent_at"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
}

// SyncResult summarizes one mail sync run
type SyncResult struct {
	Mailboxes  []MailboxResult `json:"mailboxes"`
	TotalNew   int             `json:"total_new"`
	TotalSeen  int             `json:"total_seen"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// MailboxResult summarizes the sync of a single mailbox folder
type MailboxResult struct {
	Mailbox    string `json:"mailbox"`
	Stored     int    `json:"stored"`
	Skipped    int    `json:"skipped"`
	Correlated int    `json:"correlated"`
	Error      string `json:"error,omitempty"`
}
