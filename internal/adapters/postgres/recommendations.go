// internal/adapters/postgres/recommendations.go
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"care-match-workers/internal/models"

	"github.com/google/uuid"
)

const (
	deleteRecommendationsQuery = `DELETE FROM match_recommendations WHERE request_id = $1`

	insertRecommendationQuery = `
		INSERT INTO match_recommendations
		    (id, request_id, bucket, rank, organisation_id, worker_id,
		     score, confidence, scoring_mode, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
)

// RecommendationStore persists ranked recommendations. Every write replaces
// all rows of the request so a retried run leaves one copy.
type RecommendationStore struct {
	db    *sql.DB
	newID func() string
}

func NewRecommendationStore(db *sql.DB) *RecommendationStore {
	return &RecommendationStore{db: db, newID: uuid.NewString}
}

func (s *RecommendationStore) ReplaceForRequest(ctx context.Context, requestID string, rows []models.StoredRecommendation) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, deleteRecommendationsQuery, requestID); err != nil {
		return fmt.Errorf("delete previous recommendations: %w", err)
	}

	for _, row := range rows {
		rec := row.Recommendation
		var payload []byte
		if payload, err = json.Marshal(rec); err != nil {
			return fmt.Errorf("encode recommendation %s: %w", rec.OrganisationID, err)
		}

		_, err = tx.ExecContext(ctx, insertRecommendationQuery,
			s.newID(), requestID, string(row.Bucket), rec.Rank,
			rec.OrganisationID, nullString(rec.WorkerID),
			rec.Score, string(rec.Confidence), string(rec.ScoringMode), payload,
		)
		if err != nil {
			return fmt.Errorf("insert recommendation %s: %w", rec.OrganisationID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
