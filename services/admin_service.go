package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/bgmi-arena/arena-backend/models"
	"github.com/bgmi-arena/arena-backend/repositories"
)

// AdminService implements the administrative reversal flows: rejecting
// entrants, settling or rejecting deposits and withdrawals, room assignment
// and tournament cancellation. All reversal operations are idempotent so a
// double-clicked admin action is a no-op, not an error.
type AdminService struct {
	tx          repositories.TxRunner
	tournaments repositories.TournamentRepository
	entrants    repositories.EntrantRepository
	players     repositories.PlayerRepository
	ledger      *LedgerService
	notifier    Notifier
	logger      *slog.Logger
}

func NewAdminService(
	tx repositories.TxRunner,
	tournaments repositories.TournamentRepository,
	entrants repositories.EntrantRepository,
	players repositories.PlayerRepository,
	ledger *LedgerService,
	notifier Notifier,
	logger *slog.Logger,
) *AdminService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &AdminService{
		tx:          tx,
		tournaments: tournaments,
		entrants:    entrants,
		players:     players,
		ledger:      ledger,
		notifier:    notifier,
		logger:      logger,
	}
}

// RejectEntrant removes the entrant, frees the slot and reverses the linked
// entry-fee debit. A second call for the same entrant succeeds without doing
// anything.
func (s *AdminService) RejectEntrant(ctx context.Context, entrantID int) error {
	entrant, err := s.entrants.FindByID(ctx, entrantID)
	if err != nil {
		if errors.Is(err, repositories.ErrEntrantNotFound) {
			return nil
		}
		return err
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.entrants.Delete(ctx, exec, entrant.ID); err != nil {
			if errors.Is(err, repositories.ErrEntrantNotFound) {
				return nil // lost a race with another admin, nothing left to do
			}
			return err
		}
		if err := s.tournaments.ReleaseSlot(ctx, exec, entrant.TournamentID); err != nil {
			return err
		}
		if entrant.DebitTxID != nil {
			if _, err := s.ledger.Reverse(ctx, exec, *entrant.DebitTxID); err != nil && !errors.Is(err, ErrAlreadyReversed) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if state, stateErr := s.tournaments.CapacityState(ctx, entrant.TournamentID); stateErr == nil {
		s.notifier.Publish(entrant.TournamentID, EventSlotsUpdated, state)
	}
	s.logger.InfoContext(ctx, "entrant rejected",
		slog.Int("entrant_id", entrant.ID),
		slog.Int("tournament_id", entrant.TournamentID),
		slog.String("player_id", entrant.PlayerID),
	)
	return nil
}

// ApproveWithdrawal settles a pending withdrawal. The balance was already
// debited when the withdrawal was submitted.
func (s *AdminService) ApproveWithdrawal(ctx context.Context, transactionID string) error {
	return s.settle(ctx, transactionID, models.KindWithdrawal)
}

// RejectWithdrawal reverses a pending withdrawal debit back into the account.
func (s *AdminService) RejectWithdrawal(ctx context.Context, transactionID string) error {
	return s.reverseDebit(ctx, transactionID, models.KindWithdrawal)
}

// ApproveDeposit settles a pending deposit, applying its credit.
func (s *AdminService) ApproveDeposit(ctx context.Context, transactionID string) error {
	return s.settle(ctx, transactionID, models.KindDeposit)
}

// RejectDeposit discards a pending deposit; its credit was never applied.
func (s *AdminService) RejectDeposit(ctx context.Context, transactionID string) error {
	transaction, err := s.ledger.Get(ctx, transactionID)
	if err != nil {
		return err
	}
	if transaction.Kind != models.KindDeposit {
		return ErrNotReversible
	}
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.ledger.Discard(ctx, exec, transactionID)
	})
	if errors.Is(err, ErrAlreadyReversed) {
		return nil
	}
	return err
}

func (s *AdminService) settle(ctx context.Context, transactionID string, want models.TransactionKind) error {
	transaction, err := s.ledger.Get(ctx, transactionID)
	if err != nil {
		return err
	}
	if transaction.Kind != want {
		return ErrNotReversible
	}
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.ledger.Settle(ctx, exec, transactionID)
	})
	if errors.Is(err, ErrAlreadySettled) {
		return nil
	}
	return err
}

func (s *AdminService) reverseDebit(ctx context.Context, transactionID string, want models.TransactionKind) error {
	transaction, err := s.ledger.Get(ctx, transactionID)
	if err != nil {
		return err
	}
	if transaction.Kind != want {
		return ErrNotReversible
	}
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		_, reverseErr := s.ledger.Reverse(ctx, exec, transactionID)
		return reverseErr
	})
	if errors.Is(err, ErrAlreadyReversed) {
		return nil
	}
	return err
}

// SetRoom assigns the custom-room credentials joined players will use, and
// notifies any page currently watching the tournament.
func (s *AdminService) SetRoom(ctx context.Context, tournamentID int, roomID, roomPassword string) error {
	roomID = strings.TrimSpace(roomID)
	roomPassword = strings.TrimSpace(roomPassword)
	if roomID == "" || roomPassword == "" {
		return ErrValidationFailed
	}
	if err := s.tournaments.SetRoom(ctx, tournamentID, roomID, roomPassword); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return err
	}
	s.notifier.Publish(tournamentID, EventRoomAssigned, map[string]string{
		"room_id":       roomID,
		"room_password": roomPassword,
	})
	return nil
}

// CancelTournament closes the tournament and refunds every entrant.
func (s *AdminService) CancelTournament(ctx context.Context, tournamentID int) error {
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.tournaments.UpdateStatus(ctx, exec, tournamentID, models.StatusClosed); err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		entrants, err := s.entrants.ListByTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		for _, entrant := range entrants {
			if err := s.entrants.Delete(ctx, exec, entrant.ID); err != nil {
				return err
			}
			if err := s.tournaments.ReleaseSlot(ctx, exec, tournamentID); err != nil {
				return err
			}
			if entrant.DebitTxID != nil {
				if _, err := s.ledger.Reverse(ctx, exec, *entrant.DebitTxID); err != nil && !errors.Is(err, ErrAlreadyReversed) {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notifier.Publish(tournamentID, EventClosed, nil)
	s.logger.InfoContext(ctx, "tournament canceled and entrants refunded", slog.Int("tournament_id", tournamentID))
	return nil
}

// ListEntrants returns the registrations for a tournament.
func (s *AdminService) ListEntrants(ctx context.Context, tournamentID int) ([]*models.Entrant, error) {
	return s.entrants.ListByTournament(ctx, nil, tournamentID)
}

// DeactivatePlayer disables an account. Accounts are never deleted, so the
// ledger history stays intact.
func (s *AdminService) DeactivatePlayer(ctx context.Context, playerID string) error {
	err := s.players.Deactivate(ctx, playerID)
	if errors.Is(err, repositories.ErrPlayerNotFound) {
		return ErrPlayerNotFound
	}
	return err
}
