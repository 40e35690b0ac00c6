package store

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/evdal/switchback/internal/secrets"
)

type Secret struct {
	Name           string    `json:"name"`
	EncryptedValue string    `json:"encrypted_value"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type SecretAPIResponse struct {
	Name        string `json:"name"`
	DigestValue string `json:"digest_value"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func (s Secret) ToAPIResponse() SecretAPIResponse {
	digest := md5.Sum([]byte(s.EncryptedValue))
	return SecretAPIResponse{
		Name:        s.Name,
		DigestValue: hex.EncodeToString(digest[:]),
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   s.UpdatedAt.Format(time.RFC3339),
	}
}

func createSecretsTable(db *DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS secrets (
    name TEXT PRIMARY KEY,                  -- User-defined secret name
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    encrypted_value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_secrets_updated_at ON secrets(updated_at);
`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create secrets table: %w", err)
	}
	return nil
}

// SetSecret upserts a secret, encrypting the value before it touches disk.
func (db *DB) SetSecret(ctx context.Context, name, value string) error {
	if name == "" {
		return fmt.Errorf("secret name cannot be empty")
	}
	if value == "" {
		return fmt.Errorf("secret value cannot be empty")
	}

	identity, err := secrets.GetAgeIdentity()
	if err != nil {
		return fmt.Errorf("failed to get encryption key: %w", err)
	}
	encryptedValue, err := secrets.Encrypt(value, identity.Recipient())
	if err != nil {
		return fmt.Errorf("failed to encrypt secret value: %w", err)
	}

	now := time.Now()
	query := `
        INSERT INTO secrets (name, created_at, updated_at, encrypted_value)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(name) DO UPDATE SET
            encrypted_value = excluded.encrypted_value,
            updated_at = excluded.updated_at
    `
	if _, err := db.ExecContext(ctx, query, name, now, now, encryptedValue); err != nil {
		return fmt.Errorf("failed to save secret: %w", err)
	}
	return nil
}

func (db *DB) GetSecretDecryptedValue(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("secret name cannot be empty")
	}

	var encryptedValue string
	query := `SELECT encrypted_value FROM secrets WHERE name = ?`
	err := db.QueryRowContext(ctx, query, name).Scan(&encryptedValue)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("secret '%s' not found", name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get secret: %w", err)
	}

	identity, err := secrets.GetAgeIdentity()
	if err != nil {
		return "", fmt.Errorf("failed to get encryption key: %w", err)
	}

	decryptedValue, err := secrets.Decrypt(encryptedValue, identity)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt secret '%s': %w", name, err)
	}
	return decryptedValue, nil
}

func (db *DB) GetSecretsList(ctx context.Context) ([]Secret, error) {
	query := `SELECT name, created_at, updated_at, encrypted_value FROM secrets ORDER BY updated_at DESC`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list secrets: %w", err)
	}
	defer rows.Close()

	var list []Secret
	for rows.Next() {
		var s Secret
		if err := rows.Scan(&s.Name, &s.CreatedAt, &s.UpdatedAt, &s.EncryptedValue); err != nil {
			return nil, fmt.Errorf("failed to scan secret: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (db *DB) DeleteSecret(ctx context.Context, name string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM secrets WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete secret: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("secret '%s' not found", name)
	}
	return nil
}
