// internal/adapters/postgres/evidence.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

const countEvidenceQuery = `
	SELECT entity_type || ':' || entity_id AS ref, COUNT(*)
	FROM evidence_items
	WHERE entity_type || ':' || entity_id = ANY($1)
	GROUP BY 1`

// EvidenceCounter counts evidence items per "type:id" reference.
type EvidenceCounter struct {
	db *sql.DB
}

func NewEvidenceCounter(db *sql.DB) *EvidenceCounter {
	return &EvidenceCounter{db: db}
}

// CountEvidence omits references without evidence from the result.
func (e *EvidenceCounter) CountEvidence(ctx context.Context, refs []string) (map[string]int, error) {
	counts := make(map[string]int, len(refs))
	if len(refs) == 0 {
		return counts, nil
	}

	rows, err := e.db.QueryContext(ctx, countEvidenceQuery, pq.Array(refs))
	if err != nil {
		return nil, fmt.Errorf("count evidence: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ref string
		var n int
		if err := rows.Scan(&ref, &n); err != nil {
			return nil, fmt.Errorf("scan evidence count: %w", err)
		}
		counts[ref] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evidence counts: %w", err)
	}

	return counts, nil
}
