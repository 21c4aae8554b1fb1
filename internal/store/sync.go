package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/structura-app/adapter/internal/extract"
)

// DefaultStatus is the workflow status assigned to newly synced
// elements that have no prior status to carry forward.
const DefaultStatus = "new"

// SyncResult summarizes one committed synchronization.
type SyncResult struct {
	ProjectID     int64 `json:"project_id"`
	ModelID       int64 `json:"model_id"`
	ElementsCount int   `json:"elements_count"`
}

// priorRow is the part of an element row that survives a resync.
type priorRow struct {
	status     string
	properties sql.NullString
}

// SyncModel persists one extracted element snapshot as a single atomic
// transaction:
//
//  1. Upsert the project keyed by stream id. The name is a placeholder
//     derived from the id on first insert and never overwritten after;
//     on conflict only updated_at is refreshed.
//  2. Upsert the model keyed by (project, model id). The model id is
//     the branch identity and stays fixed across versions; on conflict
//     the stored speckle_commit_id is refreshed to the new version, so
//     repeated syncs of the same branch update one row instead of
//     accumulating one row per version.
//  3. Replace the model's element set: existing rows are deleted and
//     the new snapshot inserted, so no stale row survives a removed
//     element. Workflow status and audit properties are carried
//     forward onto reinserted rows matching the same stable id.
//
// Any failure rolls back the entire transaction and propagates
// unchanged; prior state is left untouched. The operation is
// idempotent on identical input, so callers may simply retry.
func (s *Store) SyncModel(ctx context.Context, streamID, modelID, versionID string, elements []extract.Element) (SyncResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SyncResult{}, fmt.Errorf("sync model: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	now := s.now().Format(time.RFC3339)

	var projectID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO projects (speckle_stream_id, name, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(speckle_stream_id) DO UPDATE SET updated_at = excluded.updated_at
		RETURNING id
	`, streamID, "Project "+streamID, now).Scan(&projectID)
	if err != nil {
		return SyncResult{}, fmt.Errorf("sync model: upsert project: %w", err)
	}

	var modelDBID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO models (project_id, speckle_branch_name, speckle_commit_id, speckle_model_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(project_id, speckle_model_id) DO UPDATE SET speckle_commit_id = excluded.speckle_commit_id
		RETURNING id
	`, projectID, s.branch, versionID, modelID).Scan(&modelDBID)
	if err != nil {
		return SyncResult{}, fmt.Errorf("sync model: upsert model: %w", err)
	}

	prior, err := readPriorRows(ctx, tx, modelDBID)
	if err != nil {
		return SyncResult{}, fmt.Errorf("sync model: read prior rows: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM elements WHERE model_id = ?`, modelDBID); err != nil {
		return SyncResult{}, fmt.Errorf("sync model: delete elements: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO elements (model_id, speckle_id, global_id, name, type, status, properties)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return SyncResult{}, fmt.Errorf("sync model: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, el := range elements {
		status := DefaultStatus
		var carried sql.NullString
		if p, ok := prior[el.StableID]; ok {
			status = p.status
			carried = p.properties
		}

		properties, err := rowProperties(el, carried)
		if err != nil {
			return SyncResult{}, fmt.Errorf("sync model: element %s: %w", el.StableID, err)
		}

		if _, err := stmt.ExecContext(ctx,
			modelDBID,
			el.SpeckleID,
			el.StableID,
			el.Name,
			elementType(el),
			status,
			properties,
		); err != nil {
			return SyncResult{}, fmt.Errorf("sync model: insert element %s: %w", el.StableID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return SyncResult{}, fmt.Errorf("sync model: commit: %w", err)
	}

	return SyncResult{
		ProjectID:     projectID,
		ModelID:       modelDBID,
		ElementsCount: len(elements),
	}, nil
}

// readPriorRows loads the model's current (stable id -> status,
// properties) so a resync can carry workflow state forward across the
// snapshot replacement.
func readPriorRows(ctx context.Context, tx *sql.Tx, modelDBID int64) (map[string]priorRow, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT global_id, status, properties
		FROM elements
		WHERE model_id = ?
	`, modelDBID)
	if err != nil {
		return nil, fmt.Errorf("query elements: %w", err)
	}
	defer rows.Close()

	prior := make(map[string]priorRow)
	for rows.Next() {
		var globalID string
		var p priorRow
		if err := rows.Scan(&globalID, &p.status, &p.properties); err != nil {
			return nil, fmt.Errorf("scan element: %w", err)
		}
		prior[globalID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate elements: %w", err)
	}

	return prior, nil
}

// elementType returns the value stored in the elements.type column: the
// IFC classification when the element carries one, else the simple type
// tag.
func elementType(el extract.Element) string {
	if el.IFCType != "" {
		return el.IFCType
	}
	return el.SimpleType
}

// rowProperties builds the JSON properties column for one element row.
// Descriptive fields (simple type, identity provenance) are refreshed
// from the current extraction; audit keys carried from the prior row
// (such as status_updated_at) are preserved.
func rowProperties(el extract.Element, carried sql.NullString) (string, error) {
	props := make(map[string]any)

	if carried.Valid && carried.String != "" {
		if err := json.Unmarshal([]byte(carried.String), &props); err != nil {
			// A corrupt properties blob is dropped rather than failing
			// the whole sync; the row is rebuilt from the extraction.
			props = make(map[string]any)
		}
	}

	props["simple_type"] = el.SimpleType
	props["identity_source"] = string(el.Source)

	data, err := json.Marshal(props)
	if err != nil {
		return "", fmt.Errorf("marshal properties: %w", err)
	}
	return string(data), nil
}
