package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/httpclient"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const systemPrompt = "You review treasurer replies to expense reimbursement requests. " +
	"Answer with exactly one word: approved, rejected, or unclear."

// OpenAIClassifier calls an OpenAI-compatible chat completions endpoint
type OpenAIClassifier struct {
	client  *httpclient.Client
	baseURL string
	timeout time.Duration
	logger  ectologger.Logger
}

// NewOpenAIClassifier creates a new AI classifier. The API key and model come
// from the settings snapshot at call time, not from construction.
func NewOpenAIClassifier(client *httpclient.Client, baseURL string, timeout time.Duration, logger ectologger.Logger) *OpenAIClassifier {
	return &OpenAIClassifier{
		client:  client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		timeout: timeout,
		logger:  logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Classify submits the reply text for classification. Any transport or
// protocol failure surfaces as an error; the caller degrades to keywords.
func (c *OpenAIClassifier) Classify(ctx context.Context, settings *models.Settings, text string) (models.Decision, error) {
	ctx, span := tracing.StartSpan(ctx, "OpenAIClassifier.Classify")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: settings.AIModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: text},
		},
		Temperature: 0,
		MaxTokens:   5,
	})
	if err != nil {
		return models.DecisionUnclear, fmt.Errorf("failed to build classification request: %w", err)
	}

	start := time.Now()
	resp, err := c.client.PostJSON(ctx, c.baseURL+"/chat/completions", map[string]string{
		"Authorization": "Bearer " + settings.AIAPIKey,
	}, body)
	metrics.AIRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return models.DecisionUnclear, fmt.Errorf("classification request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.DecisionUnclear, fmt.Errorf("classification request returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return models.DecisionUnclear, fmt.Errorf("failed to parse classification response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return models.DecisionUnclear, fmt.Errorf("classification response had no choices")
	}

	answer := strings.ToLower(strings.TrimSpace(parsed.Choices[0].Message.Content))
	switch {
	case strings.HasPrefix(answer, "approved"):
		return models.DecisionApproved, nil
	case strings.HasPrefix(answer, "rejected"):
		return models.DecisionRejected, nil
	default:
		return models.DecisionUnclear, nil
	}
}
