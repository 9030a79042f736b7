package mailsync

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/Ramsey-B/clover/pkg/tracing"
)

// RawMessage is a message pulled from the remote server, unparsed
type RawMessage struct {
	UID    uint32
	Source []byte
}

// Fetcher pulls raw messages from a remote mailbox
type Fetcher interface {
	// FetchRecent returns the raw source of up to limit most recent messages
	// in the named mailbox
	FetchRecent(ctx context.Context, mailbox string, limit uint32) ([]RawMessage, error)
	// SentMailbox returns the name of the server's sent-mail folder
	SentMailbox(ctx context.Context) (string, error)
}

// IMAPFetcher fetches messages over IMAP. Each call dials a fresh
// connection; sync runs are infrequent enough that connection reuse is not
// worth the session bookkeeping.
type IMAPFetcher struct {
	addr     string
	username string
	password string
	logger   ectologger.Logger
}

// NewIMAPFetcher creates a new IMAP fetcher
func NewIMAPFetcher(addr, username, password string, logger ectologger.Logger) *IMAPFetcher {
	return &IMAPFetcher{
		addr:     addr,
		username: username,
		password: password,
		logger:   logger,
	}
}

func (f *IMAPFetcher) dial() (*client.Client, error) {
	c, err := client.DialTLS(f.addr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial imap server: %w", err)
	}
	if err := c.Login(f.username, f.password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to login: %w", err)
	}
	return c, nil
}

// FetchRecent returns the raw source of up to limit most recent messages in
// the named mailbox
func (f *IMAPFetcher) FetchRecent(ctx context.Context, mailbox string, limit uint32) ([]RawMessage, error) {
	ctx, span := tracing.StartSpan(ctx, "IMAPFetcher.FetchRecent")
	defer span.End()

	c, err := f.dial()
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	mbox, err := c.Select(mailbox, true)
	if err != nil {
		return nil, fmt.Errorf("failed to select mailbox %q: %w", mailbox, err)
	}

	if mbox.Messages == 0 {
		return nil, nil
	}

	from := uint32(1)
	if mbox.Messages > limit {
		from = mbox.Messages - limit + 1
	}

	seqset := new(imap.SeqSet)
	seqset.AddRange(from, mbox.Messages)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchUid}

	messages := make(chan *imap.Message, 16)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	var results []RawMessage
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			f.logger.WithContext(ctx).WithField("uid", msg.Uid).Warn("message fetched without body section")
			continue
		}
		src, err := io.ReadAll(body)
		if err != nil {
			f.logger.WithContext(ctx).WithError(err).WithField("uid", msg.Uid).Error("failed to read message body")
			continue
		}
		results = append(results, RawMessage{UID: msg.Uid, Source: src})
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages from %q: %w", mailbox, err)
	}

	return results, nil
}

// SentMailbox returns the server's sent-mail folder. The \Sent special-use
// attribute wins; otherwise common folder names are tried.
func (f *IMAPFetcher) SentMailbox(ctx context.Context) (string, error) {
	_, span := tracing.StartSpan(ctx, "IMAPFetcher.SentMailbox")
	defer span.End()

	c, err := f.dial()
	if err != nil {
		return "", err
	}
	defer c.Logout()

	mailboxes := make(chan *imap.MailboxInfo, 16)
	done := make(chan error, 1)
	go func() {
		done <- c.List("", "*", mailboxes)
	}()

	var names []string
	var special string
	for m := range mailboxes {
		names = append(names, m.Name)
		for _, attr := range m.Attributes {
			if strings.EqualFold(attr, imap.SentAttr) {
				special = m.Name
			}
		}
	}

	if err := <-done; err != nil {
		return "", fmt.Errorf("failed to list mailboxes: %w", err)
	}

	if special != "" {
		return special, nil
	}

	for _, candidate := range []string{"Sent", "Sent Items", "Sent Messages", "[Gmail]/Sent Mail"} {
		for _, name := range names {
			if strings.EqualFold(name, candidate) {
				return name, nil
			}
		}
	}

	return "", fmt.Errorf("no sent mailbox found among %d mailboxes", len(names))
}
