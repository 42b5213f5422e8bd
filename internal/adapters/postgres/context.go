// internal/adapters/postgres/context.go
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"care-match-workers/internal/models"
)

const getContextQuery = `
	SELECT context
	FROM participant_dynamic_context
	WHERE participant_id = $1`

// ContextSource reads the participant's dynamic context document.
type ContextSource struct {
	db *sql.DB
}

func NewContextSource(db *sql.DB) *ContextSource {
	return &ContextSource{db: db}
}

// GetContext returns nil, nil when the participant has no context recorded.
func (c *ContextSource) GetContext(ctx context.Context, participantID string) (*models.DynamicRiskContext, error) {
	var raw []byte
	err := c.db.QueryRowContext(ctx, getContextQuery, participantID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load dynamic context %s: %w", participantID, err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var rc models.DynamicRiskContext
	if err := json.Unmarshal(raw, &rc); err != nil {
		return nil, fmt.Errorf("decode dynamic context %s: %w", participantID, err)
	}
	return &rc, nil
}
