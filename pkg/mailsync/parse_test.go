package mailsync

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func rawMessage(lines ...string) []byte {
	return []byte(strings.Join(lines, "\r\n"))
}

func TestParseMessagePlainText(t *testing.T) {
	raw := rawMessage(
		"From: Treasurer <Treasurer@Example.org>",
		"To: reimbursement-7e6d3a1c-0000-4000-8000-000000000001@treasury.example.org",
		"Cc: secretary@example.org",
		"Subject: Re: Reimbursement approval needed",
		"Message-Id: <reply-1@example.org>",
		"In-Reply-To: <root@treasury.example.org>",
		"References: <root@treasury.example.org>",
		"Date: Mon, 02 Jan 2023 15:04:05 -0700",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Approved, go ahead.",
		"",
	)

	msg, err := ParseMessage(raw, models.MailDirectionInbox)
	require.NoError(t, err)

	assert.Equal(t, "reply-1@example.org", msg.MessageID)
	assert.Equal(t, "root@treasury.example.org", msg.InReplyTo)
	require.Len(t, msg.References, 1)
	assert.Equal(t, "root@treasury.example.org", msg.ThreadID)
	assert.Equal(t, "treasurer@example.org", msg.FromAddress)
	assert.Contains(t, msg.ToAddresses, "reimbursement-7e6d3a1c-0000-4000-8000-000000000001@treasury.example.org")
	assert.Contains(t, msg.ToAddresses, "secretary@example.org")
	assert.Equal(t, "Re: Reimbursement approval needed", msg.Subject)
	assert.Contains(t, msg.BodyText, "Approved, go ahead.")
	assert.Equal(t, models.MailDirectionInbox, msg.Direction)
	assert.False(t, msg.SentAt.IsZero())
	assert.NotEmpty(t, msg.ID)
}

func TestParseMessageMultipart(t *testing.T) {
	raw := rawMessage(
		"From: treasurer@example.org",
		"To: reimbursements@treasury.example.org",
		"Subject: Re: expenses",
		"Message-Id: <reply-2@example.org>",
		"MIME-Version: 1.0",
		"Content-Type: multipart/alternative; boundary=\"sep\"",
		"",
		"--sep",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"rejected, missing receipt",
		"--sep",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>rejected, missing receipt</p>",
		"--sep--",
		"",
	)

	msg, err := ParseMessage(raw, models.MailDirectionInbox)
	require.NoError(t, err)

	assert.Contains(t, msg.BodyText, "rejected, missing receipt")
	assert.Contains(t, msg.BodyHTML, "<p>rejected, missing receipt</p>")
	// no references and no in-reply-to: the message roots its own thread
	assert.Equal(t, "reply-2@example.org", msg.ThreadID)
}

func TestParseMessageMissingMessageID(t *testing.T) {
	raw := rawMessage(
		"From: treasurer@example.org",
		"To: reimbursements@treasury.example.org",
		"Subject: hello",
		"Content-Type: text/plain",
		"",
		"hi",
		"",
	)

	msg, err := ParseMessage(raw, models.MailDirectionInbox)
	require.NoError(t, err)

	assert.Empty(t, msg.MessageID)
	assert.Equal(t, "self:"+msg.ID, msg.ThreadID)
}
