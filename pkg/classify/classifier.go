// Package classify decides approve/reject/unclear from free-text email
// replies, AI-backed first with a keyword fallback.
package classify

import (
	"context"
	"regexp"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// shortKeywordLength is the length below which keywords require word-boundary
// matching to avoid substring false positives ("ok" inside "booking")
const shortKeywordLength = 4

// AIClassifier is the AI classification boundary
type AIClassifier interface {
	Classify(ctx context.Context, settings *models.Settings, text string) (models.Decision, error)
}

// Classifier runs the two-stage classification. The settings snapshot is a
// parameter so callers load it per operation and tests can fix it.
type Classifier struct {
	ai     AIClassifier
	logger ectologger.Logger
}

// NewClassifier creates a new classifier. ai may be nil, disabling the AI stage.
func NewClassifier(ai AIClassifier, logger ectologger.Logger) *Classifier {
	return &Classifier{
		ai:     ai,
		logger: logger,
	}
}

// Classify returns the decision for a reply body. An AI timeout or error is
// treated as unclear and falls through to the keyword stage, never failing
// the pipeline.
func (c *Classifier) Classify(ctx context.Context, settings *models.Settings, text string) models.Decision {
	ctx, span := tracing.StartSpan(ctx, "Classifier.Classify")
	defer span.End()

	if c.ai != nil && settings.AIEnabled() {
		decision, err := c.ai.Classify(ctx, settings, text)
		if err != nil {
			c.logger.WithContext(ctx).WithError(err).Warn("AI classification failed, falling back to keywords")
		} else if decision != models.DecisionUnclear {
			metrics.ClassificationsTotal.WithLabelValues("ai", string(decision)).Inc()
			return decision
		}
	}

	decision := MatchKeywords(text, settings.ApprovalKeywords, settings.RejectionKeywords)
	metrics.ClassificationsTotal.WithLabelValues("keyword", string(decision)).Inc()
	return decision
}

// MatchKeywords classifies text against the configured keyword lists.
// The approval list is checked before the rejection list; first hit wins.
func MatchKeywords(text string, approval, rejection []string) models.Decision {
	lowered := strings.ToLower(text)

	if matchesAny(lowered, approval) {
		return models.DecisionApproved
	}
	if matchesAny(lowered, rejection) {
		return models.DecisionRejected
	}
	return models.DecisionUnclear
}

func matchesAny(lowered string, keywords []string) bool {
	for _, keyword := range keywords {
		keyword = strings.ToLower(strings.TrimSpace(keyword))
		if keyword == "" {
			continue
		}

		if len(keyword) < shortKeywordLength {
			pattern, err := regexp.Compile(`\b` + regexp.QuoteMeta(keyword) + `\b`)
			if err != nil {
				continue
			}
			if pattern.MatchString(lowered) {
				return true
			}
			continue
		}

		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
