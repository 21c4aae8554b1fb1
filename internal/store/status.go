package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ElementStatus is one element's workflow status, with both identities
// attached: GlobalID is the durable key, SpeckleID the volatile one a
// viewer needs to highlight the element in the scene.
type ElementStatus struct {
	SpeckleID string `json:"speckle_id"`
	GlobalID  string `json:"global_id"`
	Status    string `json:"status"`
}

// ElementStatuses returns the statuses of every element synchronized
// for the given (stream, model) pair, ordered by global id.
//
// Returns an empty slice (not nil, not an error) when the pair has no
// synchronized data.
func (s *Store) ElementStatuses(ctx context.Context, streamID, modelID string) ([]ElementStatus, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.speckle_id, e.global_id, e.status
		FROM elements e
		JOIN models m ON e.model_id = m.id
		JOIN projects p ON m.project_id = p.id
		WHERE p.speckle_stream_id = ?
		  AND m.speckle_model_id = ?
		ORDER BY e.global_id ASC
	`, streamID, modelID)
	if err != nil {
		return nil, fmt.Errorf("query element statuses: %w", err)
	}
	defer rows.Close()

	statuses := []ElementStatus{}
	for rows.Next() {
		var st ElementStatus
		if err := rows.Scan(&st.SpeckleID, &st.GlobalID, &st.Status); err != nil {
			return nil, fmt.Errorf("scan element status: %w", err)
		}
		statuses = append(statuses, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate element statuses: %w", err)
	}

	return statuses, nil
}

// UpdateStatuses sets the workflow status on every element row whose
// durable id is in elementIDs, across all models and projects: a status
// set in one version view applies to the same logical element wherever
// it currently has rows. Each touched row gets a status_updated_at
// stamp in its properties.
//
// Returns the number of rows updated; zero matches is a valid outcome,
// not an error. Not scoped per model, so it can race with a concurrent
// sync's snapshot replacement - the update then touches zero rows.
func (s *Store) UpdateStatuses(ctx context.Context, elementIDs []string, status string) (int64, error) {
	if len(elementIDs) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(elementIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(elementIDs)+2)
	args = append(args, status, s.now().Format(time.RFC3339))
	for _, id := range elementIDs {
		args = append(args, id)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE elements
		SET status = ?,
		    properties = json_set(COALESCE(properties, '{}'), '$.status_updated_at', ?)
		WHERE global_id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return 0, fmt.Errorf("update statuses: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update statuses: rows affected: %w", err)
	}

	return count, nil
}
