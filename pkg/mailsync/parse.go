package mailsync

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/google/uuid"

	"github.com/Ramsey-B/clover/pkg/models"
)

// ParseMessage parses a raw RFC 5322 message into a MailMessage. Header
// fields a broken sender omitted degrade to zero values rather than failing
// the whole message; only an unreadable envelope is an error.
func ParseMessage(raw []byte, direction models.MailDirection) (*models.MailMessage, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && mr == nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	h := mr.Header

	msg := &models.MailMessage{
		ID:        uuid.NewString(),
		Direction: direction,
		CreatedAt: time.Now().UTC(),
	}

	if id, err := h.MessageID(); err == nil {
		msg.MessageID = id
	}
	if ids, err := h.MsgIDList("In-Reply-To"); err == nil && len(ids) > 0 {
		msg.InReplyTo = ids[0]
	}
	if ids, err := h.MsgIDList("References"); err == nil {
		msg.References = ids
	}
	if subject, err := h.Subject(); err == nil {
		msg.Subject = subject
	}
	if date, err := h.Date(); err == nil {
		msg.SentAt = date.UTC()
	} else {
		msg.SentAt = time.Now().UTC()
	}
	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		msg.FromAddress = strings.ToLower(from[0].Address)
	}
	for _, field := range []string{"To", "Cc"} {
		if addrs, err := h.AddressList(field); err == nil {
			for _, a := range addrs {
				msg.ToAddresses = append(msg.ToAddresses, strings.ToLower(a.Address))
			}
		}
	}

	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// salvage whatever parts were readable
			break
		}
		inline, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, err := inline.ContentType()
		if err != nil {
			continue
		}
		body, err := io.ReadAll(p.Body)
		if err != nil {
			continue
		}
		switch ct {
		case "text/plain":
			if msg.BodyText == "" {
				msg.BodyText = string(body)
			}
		case "text/html":
			if msg.BodyHTML == "" {
				msg.BodyHTML = string(body)
			}
		}
	}

	msg.ThreadID = ThreadID(msg)

	return msg, nil
}
