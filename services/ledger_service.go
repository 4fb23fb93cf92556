package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/bgmi-arena/arena-backend/models"
	"github.com/bgmi-arena/arena-backend/repositories"
	"github.com/google/uuid"
)

// LedgerService is the single writer of player balances. Every balance
// mutation appends an immutable transaction row carrying the resulting
// balance snapshot, inside the same database transaction as the balance
// update itself.
//
// Kind determines when the balance moves:
//
//	deposit     created pending, credit applied on Settle (admin approval)
//	withdrawal  optimistic debit applied immediately, created pending
//	entry_fee   debit applied immediately, created settled
//	refund      credit applied immediately, created settled (via Reverse)
type LedgerService struct {
	players      repositories.PlayerRepository
	transactions repositories.TransactionRepository
	tx           repositories.TxRunner
}

func NewLedgerService(
	players repositories.PlayerRepository,
	transactions repositories.TransactionRepository,
	tx repositories.TxRunner,
) *LedgerService {
	return &LedgerService{
		players:      players,
		transactions: transactions,
		tx:           tx,
	}
}

// Record appends a transaction for the player and applies its balance effect
// according to the kind. It must run inside a caller-provided executor when
// composed with other writes (the admission flow); pass nil exec to run the
// statements on the pool directly only for single-statement reads.
func (s *LedgerService) Record(
	ctx context.Context,
	exec repositories.SQLExecutor,
	playerID string,
	kind models.TransactionKind,
	amount int64,
	proofRef *string,
) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var balanceAfter int64
	switch kind {
	case models.KindDeposit:
		// Pending credit: no balance effect until an admin settles it.
		player, err := s.players.GetByID(ctx, exec, playerID)
		if err != nil {
			return nil, mapPlayerError(err)
		}
		balanceAfter = player.Balance
	case models.KindWithdrawal, models.KindEntryFee, models.KindRefund:
		newBalance, err := s.players.ApplyBalanceDelta(ctx, exec, playerID, kind.Delta(amount))
		if err != nil {
			return nil, mapPlayerError(err)
		}
		balanceAfter = newBalance
	default:
		return nil, fmt.Errorf("%w: unknown transaction kind %q", ErrValidationFailed, kind)
	}

	status := models.TxSettled
	if kind == models.KindDeposit || kind == models.KindWithdrawal {
		status = models.TxPending
	}

	transaction := &models.Transaction{
		ID:           uuid.NewString(),
		PlayerID:     playerID,
		Kind:         kind,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		Status:       status,
		ProofRef:     proofRef,
	}
	if err := s.transactions.Create(ctx, exec, transaction); err != nil {
		return nil, fmt.Errorf("failed to append ledger transaction: %w", err)
	}
	return transaction, nil
}

// Reverse undoes a previously applied debit by appending a compensating
// refund credit and marking the original reversed. Compensating entries are
// additive: a reversal never fails on balance grounds.
func (s *LedgerService) Reverse(ctx context.Context, exec repositories.SQLExecutor, transactionID string) (*models.Transaction, error) {
	original, err := s.transactions.GetByID(ctx, exec, transactionID)
	if err != nil {
		return nil, mapTransactionError(err)
	}
	if original.Status == models.TxReversed {
		return nil, ErrAlreadyReversed
	}
	if !original.Kind.IsDebit() {
		return nil, ErrNotReversible
	}

	if err := s.transactions.UpdateStatus(ctx, exec, transactionID, original.Status, models.TxReversed); err != nil {
		if errors.Is(err, repositories.ErrTransactionStatusConflict) {
			return nil, ErrAlreadyReversed
		}
		return nil, mapTransactionError(err)
	}

	newBalance, err := s.players.ApplyBalanceDelta(ctx, exec, original.PlayerID, original.Amount)
	if err != nil {
		return nil, mapPlayerError(err)
	}

	refund := &models.Transaction{
		ID:           uuid.NewString(),
		PlayerID:     original.PlayerID,
		Kind:         models.KindRefund,
		Amount:       original.Amount,
		BalanceAfter: newBalance,
		Status:       models.TxSettled,
		ReversalOf:   &original.ID,
	}
	if err := s.transactions.Create(ctx, exec, refund); err != nil {
		return nil, fmt.Errorf("failed to append refund transaction: %w", err)
	}
	return refund, nil
}

// Settle completes a pending transaction: a deposit finally credits the
// balance, a withdrawal simply becomes final (its debit was optimistic).
func (s *LedgerService) Settle(ctx context.Context, exec repositories.SQLExecutor, transactionID string) error {
	original, err := s.transactions.GetByID(ctx, exec, transactionID)
	if err != nil {
		return mapTransactionError(err)
	}
	switch original.Status {
	case models.TxSettled:
		return ErrAlreadySettled
	case models.TxReversed:
		return ErrAlreadyReversed
	}

	if err := s.transactions.UpdateStatus(ctx, exec, transactionID, models.TxPending, models.TxSettled); err != nil {
		if errors.Is(err, repositories.ErrTransactionStatusConflict) {
			return ErrAlreadySettled
		}
		return mapTransactionError(err)
	}

	if original.Kind == models.KindDeposit {
		if _, err := s.players.ApplyBalanceDelta(ctx, exec, original.PlayerID, original.Amount); err != nil {
			return mapPlayerError(err)
		}
	}
	return nil
}

// Discard marks a pending transaction reversed without any balance effect.
// Used for rejected deposits, whose credit was never applied.
func (s *LedgerService) Discard(ctx context.Context, exec repositories.SQLExecutor, transactionID string) error {
	err := s.transactions.UpdateStatus(ctx, exec, transactionID, models.TxPending, models.TxReversed)
	if errors.Is(err, repositories.ErrTransactionStatusConflict) {
		return ErrAlreadyReversed
	}
	return mapTransactionError(err)
}

func (s *LedgerService) Get(ctx context.Context, transactionID string) (*models.Transaction, error) {
	transaction, err := s.transactions.GetByID(ctx, nil, transactionID)
	if err != nil {
		return nil, mapTransactionError(err)
	}
	return transaction, nil
}

// Balance returns the latest committed balance for the player.
func (s *LedgerService) Balance(ctx context.Context, exec repositories.SQLExecutor, playerID string) (int64, error) {
	player, err := s.players.GetByID(ctx, exec, playerID)
	if err != nil {
		return 0, mapPlayerError(err)
	}
	return player.Balance, nil
}

// History returns the player's transactions, newest first.
func (s *LedgerService) History(ctx context.Context, playerID string, limit int) ([]*models.Transaction, error) {
	return s.transactions.ListByPlayer(ctx, playerID, limit)
}

func mapPlayerError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrPlayerNotFound):
		return ErrUnknownAccount
	case errors.Is(err, repositories.ErrInsufficientBalance):
		return ErrInsufficientFunds
	default:
		return err
	}
}

func mapTransactionError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrTransactionNotFound):
		return ErrTransactionNotFound
	default:
		return err
	}
}
