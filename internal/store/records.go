package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evdal/switchback/internal/deploytypes"
)

func createRecordsTable(db *DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS deployment_records (
    target TEXT PRIMARY KEY,                -- One record per target
    current_artifact TEXT NOT NULL,         -- What is live now
    previous_artifact TEXT,                 -- What to roll back to
    state TEXT NOT NULL,
    started_at TEXT NOT NULL,               -- RFC3339
    last_transition TEXT NOT NULL           -- RFC3339
);
`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create deployment_records table: %w", err)
	}
	return nil
}

// SaveRecord commits the record for its target in a single statement so a
// concurrent reader never observes state and current_artifact out of sync.
func (db *DB) SaveRecord(ctx context.Context, record *deploytypes.DeploymentRecord) error {
	query := `INSERT INTO deployment_records (target, current_artifact, previous_artifact, state, started_at, last_transition)
              VALUES (?, ?, ?, ?, ?, ?)
              ON CONFLICT(target) DO UPDATE SET
                  current_artifact = excluded.current_artifact,
                  previous_artifact = excluded.previous_artifact,
                  state = excluded.state,
                  started_at = excluded.started_at,
                  last_transition = excluded.last_transition`

	var previous sql.NullString
	if record.PreviousArtifact != "" {
		previous = sql.NullString{String: record.PreviousArtifact, Valid: true}
	}

	_, err := db.ExecContext(ctx, query,
		record.Target, record.CurrentArtifact, previous, string(record.State),
		record.StartedAt.UTC().Format(time.RFC3339Nano),
		record.LastTransition.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save deployment record for %s: %w", record.Target, err)
	}
	return nil
}

// GetRecord returns the record for a target, or nil if the target has
// never been deployed to.
func (db *DB) GetRecord(ctx context.Context, target string) (*deploytypes.DeploymentRecord, error) {
	query := `SELECT target, current_artifact, previous_artifact, state, started_at, last_transition
              FROM deployment_records WHERE target = ?`

	var record deploytypes.DeploymentRecord
	var previous sql.NullString
	var startedAt, lastTransition string
	var state string

	err := db.QueryRowContext(ctx, query, target).Scan(
		&record.Target, &record.CurrentArtifact, &previous, &state, &startedAt, &lastTransition)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deployment record for %s: %w", target, err)
	}

	record.State = deploytypes.State(state)
	if previous.Valid {
		record.PreviousArtifact = previous.String
	}
	if record.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return nil, fmt.Errorf("failed to parse started_at for %s: %w", target, err)
	}
	if record.LastTransition, err = time.Parse(time.RFC3339Nano, lastTransition); err != nil {
		return nil, fmt.Errorf("failed to parse last_transition for %s: %w", target, err)
	}

	return &record, nil
}

// ListRecords returns all deployment records ordered by target name.
func (db *DB) ListRecords(ctx context.Context) ([]deploytypes.DeploymentRecord, error) {
	query := `SELECT target, current_artifact, previous_artifact, state, started_at, last_transition
              FROM deployment_records ORDER BY target`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployment records: %w", err)
	}
	defer rows.Close()

	var records []deploytypes.DeploymentRecord
	for rows.Next() {
		var record deploytypes.DeploymentRecord
		var previous sql.NullString
		var startedAt, lastTransition, state string

		if err := rows.Scan(&record.Target, &record.CurrentArtifact, &previous, &state, &startedAt, &lastTransition); err != nil {
			return nil, fmt.Errorf("failed to scan deployment record: %w", err)
		}
		record.State = deploytypes.State(state)
		if previous.Valid {
			record.PreviousArtifact = previous.String
		}
		if record.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if record.LastTransition, err = time.Parse(time.RFC3339Nano, lastTransition); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
