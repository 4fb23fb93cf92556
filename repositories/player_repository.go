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
	ErrPlayerNotFound      = errors.New("player not found")
	ErrPlayerEmailConflict = errors.New("player email conflict")
	ErrPlayerIDConflict    = errors.New("player id conflict")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

type PlayerRepository interface {
	Create(ctx context.Context, player *models.Player) error
	GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Player, error)
	GetByEmail(ctx context.Context, email string) (*models.Player, error)
	// ApplyBalanceDelta atomically adjusts the balance and returns the new
	// value. The WHERE clause refuses a delta that would drive the balance
	// negative, so the check and the write cannot interleave with another
	// request.
	ApplyBalanceDelta(ctx context.Context, exec SQLExecutor, id string, delta int64) (int64, error)
	Deactivate(ctx context.Context, id string) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPlayerRepository) Create(ctx context.Context, p *models.Player) error {
	query := `
		INSERT INTO players (id, display_name, email, password_hash, role, balance)
		VALUES ($1, $2, $3, $4, $5, 0)
		RETURNING balance, active, created_at`

	err := r.db.QueryRowContext(ctx, query,
		p.ID, p.DisplayName, p.Email, p.PasswordHash, p.Role,
	).Scan(&p.Balance, &p.Active, &p.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			switch pqErr.Constraint {
			case "players_email_key":
				return ErrPlayerEmailConflict
			case "players_pkey":
				return ErrPlayerIDConflict
			}
		}
		return fmt.Errorf("failed to create player: %w", err)
	}
	return nil
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Player, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, display_name, email, password_hash, role, balance, active, created_at
		FROM players
		WHERE id = $1`
	return r.scanOne(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresPlayerRepository) GetByEmail(ctx context.Context, email string) (*models.Player, error) {
	query := `
		SELECT id, display_name, email, password_hash, role, balance, active, created_at
		FROM players
		WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *postgresPlayerRepository) scanOne(row *sql.Row) (*models.Player, error) {
	p := &models.Player{}
	err := row.Scan(&p.ID, &p.DisplayName, &p.Email, &p.PasswordHash, &p.Role, &p.Balance, &p.Active, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to find player: %w", err)
	}
	return p, nil
}

func (r *postgresPlayerRepository) ApplyBalanceDelta(ctx context.Context, exec SQLExecutor, id string, delta int64) (int64, error) {
	executor := r.getExecutor(exec)
	query := `
		UPDATE players
		SET balance = balance + $2
		WHERE id = $1 AND balance + $2 >= 0
		RETURNING balance`

	var balance int64
	err := executor.QueryRowContext(ctx, query, id, delta).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to apply balance delta for player %s: %w", id, err)
	}

	// No row matched: either the player does not exist or the debit would
	// overdraw. Distinguish so callers can report a stable error code.
	var exists bool
	if checkErr := executor.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM players WHERE id = $1)`, id).Scan(&exists); checkErr != nil {
		return 0, fmt.Errorf("failed to check player existence: %w", checkErr)
	}
	if !exists {
		return 0, ErrPlayerNotFound
	}
	return 0, ErrInsufficientBalance
}

func (r *postgresPlayerRepository) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE players SET active = FALSE WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate player: %w", err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}
