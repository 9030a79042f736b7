package mailsync

import "github.com/Ramsey-B/clover/pkg/models"

// ThreadID derives the conversation thread id for a message. The root of the
// References chain wins, then In-Reply-To, then the message's own id. A
// message with no id at all gets a synthetic self-id so it still belongs to a
// thread of one.
func ThreadID(msg *models.MailMessage) string {
	if len(msg.References) > 0 && msg.References[0] != "" {
		return msg.References[0]
	}
	if msg.InReplyTo != "" {
		return msg.InReplyTo
	}
	if msg.MessageID != "" {
		return msg.MessageID
	}
	return "self:" + msg.ID
}
