package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IlyasAtabaev731/solvy-ledger/internal/domain/models"
	"github.com/IlyasAtabaev731/solvy-ledger/internal/storage"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const (
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
)

type Storage struct {
	db     *sql.DB
	logger *slog.Logger
}

func New(dbUrl string, logger *slog.Logger) (*Storage, error) {
	db, err := sql.Open("postgres", dbUrl)
	if err != nil {
		return nil, fmt.Errorf("database connection error %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect database error %w", err)
	}

	return &Storage{db: db, logger: logger}, nil
}

func (s *Storage) Stop() error {
	return s.db.Close()
}

func (s *Storage) SaveUser(ctx context.Context, username string, passHash []byte, balance decimal.Decimal) (models.User, error) {
	const op = "storage.postgres.SaveUser"

	user := models.User{Username: username, PasswordHash: passHash, Balance: balance}

	err := s.db.QueryRowContext(ctx,
		"INSERT INTO users (username, password_hash, balance) VALUES ($1, $2, $3) RETURNING id, created_at",
		username, passHash, balance,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if pqCode(err) == codeUniqueViolation {
			return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserExists)
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (s *Storage) User(ctx context.Context, username string) (models.User, error) {
	const op = "storage.postgres.User"

	row := s.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, balance, created_at FROM users WHERE username = $1", username)

	user, err := scanUser(row)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (s *Storage) UserByID(ctx context.Context, id int64) (models.User, error) {
	const op = "storage.postgres.UserByID"

	row := s.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, balance, created_at FROM users WHERE id = $1", id)

	user, err := scanUser(row)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func scanUser(row *sql.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Balance, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, storage.ErrUserNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// SaveTransaction inserts a transaction. The id comes from the SERIAL sequence and created_at
// from the column default, so concurrent writers never share an id.
func (s *Storage) SaveTransaction(ctx context.Context, tx models.NewTransaction) (models.Transaction, error) {
	const op = "storage.postgres.SaveTransaction"

	stmt, err := s.db.PrepareContext(ctx,
		"INSERT INTO transactions(user_id, amount, type, status, description) VALUES($1, $2, $3, $4, $5) RETURNING id, created_at")
	if err != nil {
		return models.Transaction{}, fmt.Errorf("%s: %w", op, err)
	}
	defer s.closeStmt(stmt)

	res := models.Transaction{
		UserID:      tx.UserID,
		Amount:      tx.Amount,
		Type:        tx.Type,
		Status:      tx.Status,
		Description: tx.Description,
	}

	var description sql.NullString
	if tx.Description != nil {
		description = sql.NullString{String: *tx.Description, Valid: true}
	}

	err = stmt.QueryRowContext(ctx, tx.UserID, tx.Amount, string(tx.Type), string(tx.Status), description).
		Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		if pqCode(err) == codeForeignKeyViolation {
			return models.Transaction{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return models.Transaction{}, fmt.Errorf("%s: %w", op, err)
	}

	return res, nil
}

func (s *Storage) TransactionsByUser(ctx context.Context, userID int64) ([]models.Transaction, error) {
	const op = "storage.postgres.TransactionsByUser"

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, amount, type, status, description, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			s.logger.Error("Failed to close transactions rows", "error", err)
		}
	}(rows)

	transactions := make([]models.Transaction, 0)
	for rows.Next() {
		var (
			t           models.Transaction
			txType      string
			status      string
			description sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &txType, &status, &description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		t.Type = models.TransactionType(txType)
		t.Status = models.TransactionStatus(status)
		if description.Valid {
			d := description.String
			t.Description = &d
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return transactions, nil
}

func (s *Storage) closeStmt(stmt *sql.Stmt) {
	if err := stmt.Close(); err != nil {
		s.logger.Error("Failed to close statement", "error", err)
	}
}

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}
