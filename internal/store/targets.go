package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

func createTargetSpecsTable(db *DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS target_specs (
    target TEXT PRIMARY KEY,
    spec TEXT NOT NULL,                     -- JSON encoded TargetSpec
    updated_at TEXT NOT NULL                -- RFC3339
);
`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create target_specs table: %w", err)
	}
	return nil
}

// SaveTargetSpec stores the latest runtime spec for a target, replacing any
// previous version. The spec is kept opaque so the store has no dependency on
// config parsing.
func (db *DB) SaveTargetSpec(ctx context.Context, target string, spec json.RawMessage) error {
	if !json.Valid(spec) {
		return fmt.Errorf("spec for target '%s' is not valid JSON", target)
	}
	query := `INSERT INTO target_specs (target, spec, updated_at)
              VALUES (?, ?, ?)
              ON CONFLICT(target) DO UPDATE SET
                  spec = excluded.spec,
                  updated_at = excluded.updated_at`

	_, err := db.ExecContext(ctx, query, target, string(spec), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save spec for target '%s': %w", target, err)
	}
	return nil
}

// GetTargetSpec returns the stored spec for a target, or nil if no spec has
// been registered.
func (db *DB) GetTargetSpec(ctx context.Context, target string) (json.RawMessage, error) {
	query := `SELECT spec FROM target_specs WHERE target = ?`

	var raw string
	err := db.QueryRowContext(ctx, query, target).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get spec for target '%s': %w", target, err)
	}
	return json.RawMessage(raw), nil
}
