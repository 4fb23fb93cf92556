package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bgmi-arena/arena-backend/models"
	"github.com/lib/pq"
)

var (
	ErrTransactionNotFound       = errors.New("transaction not found")
	ErrTransactionIDConflict     = errors.New("transaction id conflict")
	ErrTransactionPlayerInvalid  = errors.New("transaction references unknown player")
	ErrTransactionStatusConflict = errors.New("transaction is not in the expected status")
)

type TransactionRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tx *models.Transaction) error
	GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Transaction, error)
	// UpdateStatus moves a transaction from one status to another. The
	// expected current status is part of the WHERE clause, so a concurrent
	// or repeated transition fails with ErrTransactionStatusConflict instead
	// of silently rewriting history.
	UpdateStatus(ctx context.Context, exec SQLExecutor, id string, from, to models.TransactionStatus) error
	ListByPlayer(ctx context.Context, playerID string, limit int) ([]*models.Transaction, error)
}

type postgresTransactionRepository struct {
	db *sql.DB
}

func NewPostgresTransactionRepository(db *sql.DB) TransactionRepository {
	return &postgresTransactionRepository{db: db}
}

func (r *postgresTransactionRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTransactionRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Transaction) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO transactions (id, player_id, kind, amount, balance_after, status, proof_ref, reversal_of)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err := executor.QueryRowContext(ctx, query,
		t.ID, t.PlayerID, t.Kind, t.Amount, t.BalanceAfter, t.Status, t.ProofRef, t.ReversalOf,
	).Scan(&t.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				return ErrTransactionIDConflict
			case "23503":
				if pqErr.Constraint == "transactions_player_id_fkey" {
					return ErrTransactionPlayerInvalid
				}
			}
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *postgresTransactionRepository) GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Transaction, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, player_id, kind, amount, balance_after, status, proof_ref, reversal_of, created_at
		FROM transactions
		WHERE id = $1`

	t := &models.Transaction{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.PlayerID, &t.Kind, &t.Amount, &t.BalanceAfter, &t.Status, &t.ProofRef, &t.ReversalOf, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return t, nil
}

func (r *postgresTransactionRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id string, from, to models.TransactionStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE transactions SET status = $3 WHERE id = $1 AND status = $2`
	result, err := executor.ExecContext(ctx, query, id, from, to)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows for transaction status update: %w", err)
	}
	if rowsAffected == 0 {
		var exists bool
		if checkErr := executor.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1)`, id).Scan(&exists); checkErr != nil {
			return fmt.Errorf("failed to check transaction existence: %w", checkErr)
		}
		if !exists {
			return ErrTransactionNotFound
		}
		return ErrTransactionStatusConflict
	}
	return nil
}

func (r *postgresTransactionRepository) ListByPlayer(ctx context.Context, playerID string, limit int) ([]*models.Transaction, error) {
	query := `
		SELECT id, player_id, kind, amount, balance_after, status, proof_ref, reversal_of, created_at
		FROM transactions
		WHERE player_id = $1
		ORDER BY created_at DESC`
	args := []interface{}{playerID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for player %s: %w", playerID, err)
	}
	defer rows.Close()

	transactions := make([]*models.Transaction, 0)
	for rows.Next() {
		t := &models.Transaction{}
		if err := rows.Scan(
			&t.ID, &t.PlayerID, &t.Kind, &t.Amount, &t.BalanceAfter, &t.Status, &t.ProofRef, &t.ReversalOf, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return transactions, nil
}
