package models

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestBoundReplyContentShortPassesThrough(t *testing.T) {
	assert.Equal(t, "approved, thanks", BoundReplyContent("approved, thanks"))
}

func TestBoundReplyContentTruncatesAtLimit(t *testing.T) {
	long := strings.Repeat("x", 5000)
	bounded := BoundReplyContent(long)
	assert.Equal(t, MaxReplyContentLen, len(bounded))
}

func TestBoundReplyContentKeepsRunesWhole(t *testing.T) {
	long := strings.Repeat("é", 3000)
	bounded := BoundReplyContent(long)
	assert.Equal(t, MaxReplyContentLen, utf8.RuneCountInString(bounded))
	assert.True(t, utf8.ValidString(bounded))
	assert.Equal(t, strings.Repeat("é", MaxReplyContentLen), bounded)
}
