package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/clover/pkg/models"
)

func noopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type fakeAI struct {
	decision models.Decision
	err      error
	called   bool
}

func (f *fakeAI) Classify(ctx context.Context, settings *models.Settings, text string) (models.Decision, error) {
	f.called = true
	return f.decision, f.err
}

func testSettings() *models.Settings {
	return &models.Settings{
		ApprovalKeywords:  []string{"approved", "ok", "go ahead"},
		RejectionKeywords: []string{"rejected", "no", "denied"},
	}
}

func TestMatchKeywordsLongSubstring(t *testing.T) {
	assert.Equal(t, models.DecisionApproved, MatchKeywords("This is APPROVED by the board", []string{"approved"}, nil))
	assert.Equal(t, models.DecisionApproved, MatchKeywords("preapproved", []string{"approved"}, nil))
	assert.Equal(t, models.DecisionRejected, MatchKeywords("request denied", nil, []string{"denied"}))
}

func TestMatchKeywordsShortWordBoundary(t *testing.T) {
	assert.Equal(t, models.DecisionApproved, MatchKeywords("ok, go for it", []string{"ok"}, nil))
	assert.Equal(t, models.DecisionUnclear, MatchKeywords("still booking the flights", []string{"ok"}, nil))
	assert.Equal(t, models.DecisionUnclear, MatchKeywords("nothing decided yet", nil, []string{"no"}))
	assert.Equal(t, models.DecisionRejected, MatchKeywords("no, we cannot", nil, []string{"no"}))
}

func TestMatchKeywordsApprovalWinsTies(t *testing.T) {
	decision := MatchKeywords("approved but also rejected", []string{"approved"}, []string{"rejected"})
	assert.Equal(t, models.DecisionApproved, decision)
}

func TestMatchKeywordsPhrase(t *testing.T) {
	assert.Equal(t, models.DecisionApproved, MatchKeywords("sure, go ahead with it", []string{"go ahead"}, nil))
}

func TestMatchKeywordsIgnoresBlankEntries(t *testing.T) {
	assert.Equal(t, models.DecisionUnclear, MatchKeywords("anything at all", []string{"", "  "}, []string{""}))
}

func TestClassifyUsesAIWhenConfigured(t *testing.T) {
	ai := &fakeAI{decision: models.DecisionRejected}
	c := NewClassifier(ai, noopLogger())

	settings := testSettings()
	settings.AIAPIKey = "sk-test"
	settings.AIModel = "gpt-4o-mini"

	decision := c.Classify(context.Background(), settings, "approved")

	assert.True(t, ai.called)
	assert.Equal(t, models.DecisionRejected, decision)
}

func TestClassifySkipsAIWithoutAPIKey(t *testing.T) {
	ai := &fakeAI{decision: models.DecisionRejected}
	c := NewClassifier(ai, noopLogger())

	decision := c.Classify(context.Background(), testSettings(), "approved")

	assert.False(t, ai.called)
	assert.Equal(t, models.DecisionApproved, decision)
}

func TestClassifyFallsBackOnAIError(t *testing.T) {
	ai := &fakeAI{err: errors.New("timeout")}
	c := NewClassifier(ai, noopLogger())

	settings := testSettings()
	settings.AIAPIKey = "sk-test"
	settings.AIModel = "gpt-4o-mini"

	decision := c.Classify(context.Background(), settings, "request denied")
	assert.Equal(t, models.DecisionRejected, decision)
}

func TestClassifyFallsBackOnUnclearAI(t *testing.T) {
	ai := &fakeAI{decision: models.DecisionUnclear}
	c := NewClassifier(ai, noopLogger())

	settings := testSettings()
	settings.AIAPIKey = "sk-test"
	settings.AIModel = "gpt-4o-mini"

	decision := c.Classify(context.Background(), settings, "go ahead")
	assert.Equal(t, models.DecisionApproved, decision)
}

func TestClassifyNilAI(t *testing.T) {
	c := NewClassifier(nil, noopLogger())

	decision := c.Classify(context.Background(), testSettings(), "nothing conclusive here")
	assert.Equal(t, models.DecisionUnclear, decision)
}
