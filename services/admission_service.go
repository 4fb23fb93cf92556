package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bgmi-arena/arena-backend/models"
	"github.com/bgmi-arena/arena-backend/repositories"
)

const (
	// Every join runs under a bounded deadline; on expiry the transaction is
	// rolled back like any other failure.
	joinTimeout = 5 * time.Second

	maxJoinAttempts  = 3
	joinRetryBackoff = 50 * time.Millisecond
)

// AdmissionService is the single entry point that admits a player into a
// tournament slot. For one join request it checks capacity, deducts the entry
// fee and records the entrant inside one storage transaction: either all
// three effects commit, or none do.
type AdmissionService struct {
	tx          repositories.TxRunner
	tournaments repositories.TournamentRepository
	entrants    repositories.EntrantRepository
	ledger      *LedgerService
	notifier    Notifier
	logger      *slog.Logger
}

func NewAdmissionService(
	tx repositories.TxRunner,
	tournaments repositories.TournamentRepository,
	entrants repositories.EntrantRepository,
	ledger *LedgerService,
	notifier Notifier,
	logger *slog.Logger,
) *AdmissionService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &AdmissionService{
		tx:          tx,
		tournaments: tournaments,
		entrants:    entrants,
		ledger:      ledger,
		notifier:    notifier,
		logger:      logger,
	}
}

type JoinInput struct {
	PlayerID     string
	TournamentID int
	InGameName   string
	InGameID     string
}

func (in JoinInput) validate() error {
	if strings.TrimSpace(in.PlayerID) == "" {
		return fmt.Errorf("%w: playerId is required", ErrValidationFailed)
	}
	if in.TournamentID <= 0 {
		return fmt.Errorf("%w: tournamentId is required", ErrValidationFailed)
	}
	if strings.TrimSpace(in.InGameName) == "" {
		return fmt.Errorf("%w: inGameName is required", ErrValidationFailed)
	}
	if strings.TrimSpace(in.InGameID) == "" {
		return fmt.Errorf("%w: inGameId is required", ErrValidationFailed)
	}
	return nil
}

// Join admits the player or fails with no partial effect.
//
// The capacity comparison and the slot increment are one guarded UPDATE, and
// the balance check and debit are one guarded UPDATE, both inside a single
// transaction, so two racing joins for the last slot are linearized by the
// storage layer: exactly one commits, the loser's debit never survives the
// rollback. Duplicate joins by the same player are stopped by the unique
// (tournament, player) constraint independent of the capacity logic.
func (s *AdmissionService) Join(ctx context.Context, input JoinInput) (*models.Entrant, int64, error) {
	if err := input.validate(); err != nil {
		return nil, 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()

	// Fast-fail reads before paying for a transaction. These are advisory;
	// the same conditions are re-enforced under the transaction below.
	tournament, err := s.tournaments.GetByID(ctx, nil, input.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, 0, ErrTournamentNotFound
		}
		return nil, 0, err
	}
	if tournament.Status == models.StatusClosed {
		return nil, 0, ErrTournamentClosed
	}
	if _, err := s.entrants.FindByPlayerAndTournament(ctx, nil, input.PlayerID, input.TournamentID); err == nil {
		return nil, 0, ErrAlreadyJoined
	} else if !errors.Is(err, repositories.ErrEntrantNotFound) {
		return nil, 0, err
	}
	if tournament.Filled >= tournament.Capacity {
		return nil, 0, ErrTournamentFull
	}

	var (
		entrant *models.Entrant
		balance int64
	)
	op := func(exec repositories.SQLExecutor) error {
		// Re-check the duplicate under the transaction; the insert below
		// still backs this with the unique constraint.
		if _, err := s.entrants.FindByPlayerAndTournament(ctx, exec, input.PlayerID, input.TournamentID); err == nil {
			return ErrAlreadyJoined
		} else if !errors.Is(err, repositories.ErrEntrantNotFound) {
			return err
		}

		if err := s.tournaments.ReserveSlot(ctx, exec, input.TournamentID); err != nil {
			switch {
			case errors.Is(err, repositories.ErrTournamentCapacityReached):
				return ErrTournamentFull
			case errors.Is(err, repositories.ErrTournamentClosedForEntry):
				return ErrTournamentClosed
			case errors.Is(err, repositories.ErrTournamentNotFound):
				return ErrTournamentNotFound
			default:
				return err
			}
		}

		var debitTxID *string
		if tournament.EntryFee > 0 {
			debit, err := s.ledger.Record(ctx, exec, input.PlayerID, models.KindEntryFee, tournament.EntryFee, nil)
			if err != nil {
				return err
			}
			debitTxID = &debit.ID
			balance = debit.BalanceAfter
		} else {
			b, err := s.ledger.Balance(ctx, exec, input.PlayerID)
			if err != nil {
				return err
			}
			balance = b
		}

		e := &models.Entrant{
			TournamentID: input.TournamentID,
			PlayerID:     input.PlayerID,
			InGameName:   strings.TrimSpace(input.InGameName),
			InGameID:     strings.TrimSpace(input.InGameID),
			DebitTxID:    debitTxID,
		}
		if err := s.entrants.Create(ctx, exec, e); err != nil {
			if errors.Is(err, repositories.ErrEntrantConflict) {
				return ErrAlreadyJoined
			}
			return err
		}
		entrant = e
		return nil
	}

	if err := s.runWithRetry(ctx, op); err != nil {
		return nil, 0, err
	}

	if state, err := s.tournaments.CapacityState(ctx, input.TournamentID); err == nil {
		s.notifier.Publish(input.TournamentID, EventSlotsUpdated, state)
	}

	s.logger.InfoContext(ctx, "player admitted to tournament",
		slog.String("player_id", input.PlayerID),
		slog.Int("tournament_id", input.TournamentID),
		slog.Int64("entry_fee", tournament.EntryFee),
	)
	return entrant, balance, nil
}

// runWithRetry retries the transactional unit on transient storage faults
// (serialization failures, deadlocks) with exponential backoff, then gives up
// with a retryable error. Business rejections are never retried.
func (s *AdmissionService) runWithRetry(ctx context.Context, op func(exec repositories.SQLExecutor) error) error {
	backoff := joinRetryBackoff
	for attempt := 1; ; attempt++ {
		err := s.tx.WithinTx(ctx, op)
		if err == nil || !repositories.IsRetryable(err) {
			return err
		}
		if attempt >= maxJoinAttempts {
			s.logger.WarnContext(ctx, "join aborted after repeated transient failures",
				slog.Int("attempts", attempt), slog.Any("error", err))
			return fmt.Errorf("%w: %v", ErrRetryable, err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrRetryable, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
