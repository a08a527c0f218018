package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/IlyasAtabaev731/solvy-ledger/internal/storage"
)

// SaveCredential upserts a raw credential value. Callers that need secrecy wrap the storage
// with keyring.Sealed.
func (s *Storage) SaveCredential(ctx context.Context, key string, value []byte) error {
	const op = "storage.postgres.SaveCredential"

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, key, value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Credential(ctx context.Context, key string) ([]byte, error) {
	const op = "storage.postgres.Credential"

	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM credentials WHERE key = $1", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrCredentialNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return value, nil
}

// DeleteCredential removes key. A missing key is not an error.
func (s *Storage) DeleteCredential(ctx context.Context, key string) error {
	const op = "storage.postgres.DeleteCredential"

	if _, err := s.db.ExecContext(ctx, "DELETE FROM credentials WHERE key = $1", key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
