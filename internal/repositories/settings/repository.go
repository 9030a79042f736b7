package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// Setting keys
const (
	KeyApprovalKeywords  = "approval_keywords"
	KeyRejectionKeywords = "rejection_keywords"
	KeyAIAPIKey          = "ai_api_key"
	KeyAIModel           = "ai_model"
)

// SettingsRepository defines the interface for persisted settings
type SettingsRepository interface {
	Load(ctx context.Context) (*models.Settings, error)
	UpdateKeywords(ctx context.Context, approval, rejection []string) error
}

// Repository implements SettingsRepository on a key/value jsonb table
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new settings repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

const tableName = "settings"

type settingRow struct {
	Key   string                          `db:"key"`
	Value database.JSONB[json.RawMessage] `db:"value"`
}

// Load reads all settings into a snapshot. Missing keys leave zero values;
// absent configuration means the dependent feature is disabled, not broken.
func (r *Repository) Load(ctx context.Context) (*models.Settings, error) {
	ctx, span := tracing.StartSpan(ctx, "SettingsRepository.Load")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("key", "value")
	sb.From(tableName)

	query, args := sb.Build()

	var rows []settingRow
	err := r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to load settings")
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	snapshot := &models.Settings{}
	for _, row := range rows {
		var unmarshalErr error
		switch row.Key {
		case KeyApprovalKeywords:
			unmarshalErr = json.Unmarshal(row.Value.Data, &snapshot.ApprovalKeywords)
		case KeyRejectionKeywords:
			unmarshalErr = json.Unmarshal(row.Value.Data, &snapshot.RejectionKeywords)
		case KeyAIAPIKey:
			unmarshalErr = json.Unmarshal(row.Value.Data, &snapshot.AIAPIKey)
		case KeyAIModel:
			unmarshalErr = json.Unmarshal(row.Value.Data, &snapshot.AIModel)
		}
		if unmarshalErr != nil {
			r.logger.WithContext(ctx).WithError(unmarshalErr).WithField("key", row.Key).Error("skipping malformed setting")
		}
	}

	return snapshot, nil
}

// UpdateKeywords upserts both keyword lists in one transaction so a partial
// update never leaves the lists out of step
func (r *Repository) UpdateKeywords(ctx context.Context, approval, rejection []string) error {
	ctx, span := tracing.StartSpan(ctx, "SettingsRepository.UpdateKeywords")
	defer span.End()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin settings transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for key, value := range map[string][]string{
		KeyApprovalKeywords:  approval,
		KeyRejectionKeywords: rejection,
	} {
		ib := database.NewInsertBuilder()
		ib.InsertInto(tableName)
		ib.Cols("key", "value", "updated_at")
		ib.Values(key, database.JSONB[[]string]{Data: value}, time.Now().UTC())
		ub := ib.OnConflict("key")
		ub.Set(
			ub.Assign("value", database.Excluded("value")),
			ub.Assign("updated_at", time.Now().UTC()),
		)

		query, args := ib.Build()

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithField("key", key).Error("failed to upsert setting")
			return fmt.Errorf("failed to upsert setting %s: %w", key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit settings transaction: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"approval_keywords":  len(approval),
		"rejection_keywords": len(rejection),
	}).Info("updated keyword settings")

	return nil
}
