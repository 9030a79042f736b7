package mailsync

import (
	"context"

	"github.com/Ramsey-B/clover/pkg/models"
)

// ThreadAssociator resolves which reimbursement requests a thread's earlier
// messages were linked to, via the message-to-reimbursement edges written
// during previous syncs
type ThreadAssociator struct {
	messages MessageStore
	edges    EdgeStore
}

// NewThreadAssociator creates a new thread associator
func NewThreadAssociator(messages MessageStore, edges EdgeStore) *ThreadAssociator {
	return &ThreadAssociator{
		messages: messages,
		edges:    edges,
	}
}

// RequestIDsForThread returns the distinct reimbursement ids linked to any
// message in the thread
func (a *ThreadAssociator) RequestIDsForThread(ctx context.Context, threadID string) ([]string, error) {
	msgs, err := a.messages.ListByThreadID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}

	msgIDs := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		msgIDs = append(msgIDs, msg.ID)
	}

	edgesByID, err := a.edges.QueryMany(ctx, models.EntityTypeMailMessage, msgIDs)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var ids []string
	for _, msg := range msgs {
		for _, edge := range edgesByID[msg.ID] {
			otherType, otherID, ok := edge.Other(models.EntityTypeMailMessage, msg.ID)
			if ok && otherType == models.EntityTypeReimbursement && !seen[otherID] {
				seen[otherID] = true
				ids = append(ids, otherID)
			}
		}
	}
	return ids, nil
}
