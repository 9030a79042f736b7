package models

// Settings is a point-in-time snapshot of the persisted service settings.
// Callers load one snapshot per operation and pass it down, so tests can
// substitute fixed configurations.
type Settings struct {
	ApprovalKeywords  []string `json:"approval_keywords"`
	RejectionKeywords []string `json:"rejection_keywords"`
	AIAPIKey          string   `json:"ai_api_key"`
	AIModel           string   `json:"ai_model"`
}

// AIEnabled reports whether the AI classification stage is configured.
// Absent configuration disables the feature, it is never an error.
func (s *Settings) AIEnabled() bool {
	return s.AIAPIKey != "" && s.AIModel != ""
}

// Decision is the outcome of classifying a reply
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
	DecisionUnclear  Decision = "unclear"
)

// UpdateKeywordsRequest is the request body for updating keyword lists
type UpdateKeywordsRequest struct {
	ApprovalKeywords  []string `json:"approval_keywords" validate:"required"`
	RejectionKeywords []string `json:"rejection_keywords" validate:"required"`
}

// KeywordsResponse is the API response for keyword settings
type KeywordsResponse struct {
	ApprovalKeywords  []string `json:"approval_keywords"`
	RejectionKeywords []string `json:"rejection_keywords"`
}
