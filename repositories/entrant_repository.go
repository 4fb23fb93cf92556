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
	ErrEntrantNotFound          = errors.New("entrant not found")
	ErrEntrantConflict          = errors.New("entrant conflict: player already registered for this tournament")
	ErrEntrantPlayerInvalid     = errors.New("entrant references unknown player")
	ErrEntrantTournamentInvalid = errors.New("entrant references unknown tournament")
)

type EntrantRepository interface {
	Create(ctx context.Context, exec SQLExecutor, e *models.Entrant) error
	FindByID(ctx context.Context, id int) (*models.Entrant, error)
	FindByPlayerAndTournament(ctx context.Context, exec SQLExecutor, playerID string, tournamentID int) (*models.Entrant, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Entrant, error)
	// ListByPlayer returns the player's registrations joined with the
	// tournament room credentials, for the "my matches" view.
	ListByPlayer(ctx context.Context, playerID string) ([]*models.Entrant, error)
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresEntrantRepository struct {
	db *sql.DB
}

func NewPostgresEntrantRepository(db *sql.DB) EntrantRepository {
	return &postgresEntrantRepository{db: db}
}

func (r *postgresEntrantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresEntrantRepository) Create(ctx context.Context, exec SQLExecutor, e *models.Entrant) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO entrants (tournament_id, player_id, in_game_name, in_game_id, debit_tx_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, joined_at`

	err := executor.QueryRowContext(ctx, query,
		e.TournamentID, e.PlayerID, e.InGameName, e.InGameID, e.DebitTxID,
	).Scan(&e.ID, &e.JoinedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "entrants_tournament_id_player_id_key" {
					return ErrEntrantConflict
				}
			case "23503":
				switch pqErr.Constraint {
				case "entrants_player_id_fkey":
					return ErrEntrantPlayerInvalid
				case "entrants_tournament_id_fkey":
					return ErrEntrantTournamentInvalid
				}
			}
		}
		return fmt.Errorf("failed to create entrant: %w", err)
	}
	return nil
}

func (r *postgresEntrantRepository) scanEntrant(rowScanner interface {
	Scan(dest ...interface{}) error
}, e *models.Entrant) error {
	return rowScanner.Scan(
		&e.ID, &e.TournamentID, &e.PlayerID, &e.InGameName, &e.InGameID, &e.DebitTxID, &e.JoinedAt,
	)
}

func (r *postgresEntrantRepository) FindByID(ctx context.Context, id int) (*models.Entrant, error) {
	query := `
		SELECT id, tournament_id, player_id, in_game_name, in_game_id, debit_tx_id, joined_at
		FROM entrants
		WHERE id = $1`
	return r.findOne(ctx, nil, query, id)
}

func (r *postgresEntrantRepository) FindByPlayerAndTournament(ctx context.Context, exec SQLExecutor, playerID string, tournamentID int) (*models.Entrant, error) {
	query := `
		SELECT id, tournament_id, player_id, in_game_name, in_game_id, debit_tx_id, joined_at
		FROM entrants
		WHERE player_id = $1 AND tournament_id = $2`
	return r.findOne(ctx, exec, query, playerID, tournamentID)
}

func (r *postgresEntrantRepository) findOne(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.Entrant, error) {
	executor := r.getExecutor(exec)
	e := &models.Entrant{}
	err := r.scanEntrant(executor.QueryRowContext(ctx, query, args...), e)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntrantNotFound
		}
		return nil, fmt.Errorf("failed to find entrant: %w", err)
	}
	return e, nil
}

func (r *postgresEntrantRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Entrant, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, player_id, in_game_name, in_game_id, debit_tx_id, joined_at
		FROM entrants
		WHERE tournament_id = $1
		ORDER BY joined_at ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entrants by tournament: %w", err)
	}
	defer rows.Close()

	entrants := make([]*models.Entrant, 0)
	for rows.Next() {
		e := &models.Entrant{}
		if err := r.scanEntrant(rows, e); err != nil {
			return nil, fmt.Errorf("failed to scan entrant row: %w", err)
		}
		entrants = append(entrants, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entrant rows: %w", err)
	}
	return entrants, nil
}

func (r *postgresEntrantRepository) ListByPlayer(ctx context.Context, playerID string) ([]*models.Entrant, error) {
	query := `
		SELECT e.id, e.tournament_id, e.player_id, e.in_game_name, e.in_game_id, e.debit_tx_id, e.joined_at,
		       t.room_id, t.room_password
		FROM entrants e
		JOIN tournaments t ON e.tournament_id = t.id
		WHERE e.player_id = $1
		ORDER BY t.starts_at ASC`

	rows, err := r.db.QueryContext(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entrants by player: %w", err)
	}
	defer rows.Close()

	entrants := make([]*models.Entrant, 0)
	for rows.Next() {
		e := &models.Entrant{}
		if err := rows.Scan(
			&e.ID, &e.TournamentID, &e.PlayerID, &e.InGameName, &e.InGameID, &e.DebitTxID, &e.JoinedAt,
			&e.RoomID, &e.RoomPassword,
		); err != nil {
			return nil, fmt.Errorf("failed to scan entrant row: %w", err)
		}
		entrants = append(entrants, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entrant rows: %w", err)
	}
	return entrants, nil
}

func (r *postgresEntrantRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM entrants WHERE id = $1`
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete entrant: %w", err)
	}
	return checkAffectedRows(result, ErrEntrantNotFound)
}
