package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bgmi-arena/arena-backend/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound        = errors.New("tournament not found")
	ErrTournamentClosedForEntry  = errors.New("tournament is closed for entry")
	ErrTournamentCapacityReached = errors.New("tournament capacity reached")
	ErrTournamentInUse           = errors.New("tournament is in use (entrants exist)")
)

type ListTournamentsFilter struct {
	Status *models.TournamentStatus
	Mode   *string
	Limit  int
	Offset int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	CapacityState(ctx context.Context, id int) (*models.CapacityState, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	SetRoom(ctx context.Context, id int, roomID, roomPassword string) error
	// ReserveSlot performs the atomic conditional increment that admits one
	// entrant: the capacity comparison and the increment are a single UPDATE,
	// so two concurrent reservations for the last slot cannot both succeed.
	ReserveSlot(ctx context.Context, exec SQLExecutor, id int) error
	ReleaseSlot(ctx context.Context, exec SQLExecutor, id int) error
	// CloseStarted closes every open or full tournament whose start time has
	// passed and returns the affected ids.
	CloseStarted(ctx context.Context, now time.Time) ([]int, error)
	Delete(ctx context.Context, id int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, name, mode, map, entry_fee, prize_pool, capacity, filled, status,
	rules, starts_at, room_id, room_password, created_at`

func scanTournament(row interface{ Scan(dest ...interface{}) error }, t *models.Tournament) error {
	return row.Scan(
		&t.ID, &t.Name, &t.Mode, &t.Map, &t.EntryFee, &t.PrizePool, &t.Capacity, &t.Filled, &t.Status,
		&t.Rules, &t.StartsAt, &t.RoomID, &t.RoomPassword, &t.CreatedAt,
	)
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (name, mode, map, entry_fee, prize_pool, capacity, status, rules, starts_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, filled, created_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Name, t.Mode, t.Map, t.EntryFee, t.PrizePool, t.Capacity, t.Status, t.Rules, t.StartsAt,
	).Scan(&t.ID, &t.Filled, &t.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create tournament: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	t := &models.Tournament{}
	if err := scanTournament(executor.QueryRowContext(ctx, query, id), t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to find tournament: %w", err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE 1=1`
	args := []interface{}{}
	argID := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	if filter.Mode != nil {
		query += fmt.Sprintf(" AND mode = $%d", argID)
		args = append(args, *filter.Mode)
		argID++
	}

	query += " ORDER BY starts_at ASC, created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if err := scanTournament(rows, &t); err != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", err)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tournament rows: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) CapacityState(ctx context.Context, id int) (*models.CapacityState, error) {
	query := `SELECT filled, capacity FROM tournaments WHERE id = $1`
	state := &models.CapacityState{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&state.Filled, &state.Capacity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get capacity state: %w", err)
	}
	return state, nil
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament status: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) SetRoom(ctx context.Context, id int, roomID, roomPassword string) error {
	query := `UPDATE tournaments SET room_id = $1, room_password = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, roomID, roomPassword, id)
	if err != nil {
		return fmt.Errorf("failed to set tournament room: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) ReserveSlot(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournaments
		SET filled = filled + 1,
		    status = CASE WHEN filled + 1 >= capacity THEN 'full' ELSE status END
		WHERE id = $1 AND status = 'open' AND filled < capacity`

	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to reserve tournament slot: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows for slot reservation: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	// The guarded UPDATE matched nothing; report why.
	var status models.TournamentStatus
	err = executor.QueryRowContext(ctx, `SELECT status FROM tournaments WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to inspect tournament after slot reservation: %w", err)
	}
	if status == models.StatusClosed {
		return ErrTournamentClosedForEntry
	}
	return ErrTournamentCapacityReached
}

func (r *postgresTournamentRepository) ReleaseSlot(ctx context.Context, exec SQLExecutor, id int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournaments
		SET filled = filled - 1,
		    status = CASE WHEN status = 'full' THEN 'open' ELSE status END
		WHERE id = $1 AND filled > 0`

	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to release tournament slot: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) CloseStarted(ctx context.Context, now time.Time) ([]int, error) {
	query := `
		UPDATE tournaments
		SET status = $1
		WHERE status IN ($2, $3) AND starts_at <= $4
		RETURNING id`

	rows, err := r.db.QueryContext(ctx, query, models.StatusClosed, models.StatusOpen, models.StatusFull, now)
	if err != nil {
		return nil, fmt.Errorf("failed to close started tournaments: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan closed tournament id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating closed tournament rows: %w", err)
	}
	return ids, nil
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM tournaments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrTournamentInUse
		}
		return fmt.Errorf("failed to delete tournament: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}
