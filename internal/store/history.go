package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/evdal/switchback/internal/deploytypes"
)

func createDeploymentsTable(db *DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS deployments (
    id TEXT PRIMARY KEY,                    -- ULID, sortable by creation time
    target TEXT NOT NULL,
    artifact TEXT NOT NULL,
    state TEXT NOT NULL,                    -- terminal state of the request
    rolled_back_from TEXT,                  -- artifact this deployment reverted
    created_at TEXT NOT NULL                -- RFC3339
);

CREATE INDEX IF NOT EXISTS idx_deployments_target ON deployments(target);
CREATE INDEX IF NOT EXISTS idx_deployments_artifact ON deployments(artifact);
`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create deployments table: %w", err)
	}
	return nil
}

func (db *DB) SaveDeployment(ctx context.Context, deployment deploytypes.Deployment) error {
	query := `INSERT INTO deployments (id, target, artifact, state, rolled_back_from, created_at)
              VALUES (?, ?, ?, ?, ?, ?)`

	var rolledBackFrom sql.NullString
	if deployment.RolledBackFrom != "" {
		rolledBackFrom = sql.NullString{String: deployment.RolledBackFrom, Valid: true}
	}

	_, err := db.ExecContext(ctx, query,
		deployment.ID, deployment.Target, deployment.Artifact, string(deployment.State),
		rolledBackFrom, deployment.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save deployment %s: %w", deployment.ID, err)
	}
	return nil
}

func (db *DB) GetDeploymentHistory(ctx context.Context, target string, limit int) ([]deploytypes.Deployment, error) {
	query := `SELECT id, target, artifact, state, rolled_back_from, created_at
              FROM deployments
              WHERE target = ?
              ORDER BY id DESC
              LIMIT ?`

	rows, err := db.QueryContext(ctx, query, target, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get deployment history for %s: %w", target, err)
	}
	defer rows.Close()

	var deployments []deploytypes.Deployment
	for rows.Next() {
		var d deploytypes.Deployment
		var rolledBackFrom sql.NullString
		var state, createdAt string

		if err := rows.Scan(&d.ID, &d.Target, &d.Artifact, &state, &rolledBackFrom, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan deployment: %w", err)
		}
		d.State = deploytypes.State(state)
		if rolledBackFrom.Valid {
			d.RolledBackFrom = rolledBackFrom.String
		}
		if d.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at for %s: %w", d.ID, err)
		}
		deployments = append(deployments, d)
	}
	return deployments, rows.Err()
}

// PruneOldDeployments keeps the N most recent history rows for a target.
// ULIDs sort lexicographically by creation time, so ordering by id works.
func (db *DB) PruneOldDeployments(ctx context.Context, target string, keep int) error {
	query := `
        DELETE FROM deployments
        WHERE target = ?
        AND id NOT IN (
            SELECT id FROM deployments
            WHERE target = ?
            ORDER BY id DESC
            LIMIT ?
        )
    `
	_, err := db.ExecContext(ctx, query, target, target, keep)
	if err != nil {
		return fmt.Errorf("failed to prune old deployments: %w", err)
	}
	return nil
}
