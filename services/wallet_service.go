package services

import (
	"context"
	"strings"

	"github.com/bgmi-arena/arena-backend/models"
	"github.com/bgmi-arena/arena-backend/repositories"
)

// WalletService exposes the deposit/withdraw flows on top of the ledger.
// Deposits wait for manual review; withdrawals debit optimistically and are
// refunded if an admin rejects them.
type WalletService struct {
	ledger *LedgerService
	tx     repositories.TxRunner
}

func NewWalletService(ledger *LedgerService, tx repositories.TxRunner) *WalletService {
	return &WalletService{ledger: ledger, tx: tx}
}

// Deposit records a pending credit referencing the submitted proof (UTR
// number or uploaded screenshot key). The balance moves only when an admin
// approves the deposit.
func (s *WalletService) Deposit(ctx context.Context, playerID string, amount int64, proofRef string) (*models.Transaction, error) {
	var ref *string
	if trimmed := strings.TrimSpace(proofRef); trimmed != "" {
		ref = &trimmed
	}

	var transaction *models.Transaction
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.ledger.Record(ctx, exec, playerID, models.KindDeposit, amount, ref)
		if err != nil {
			return err
		}
		transaction = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return transaction, nil
}

// Withdraw debits the balance immediately and leaves the transaction pending
// admin approval. Rejection reverses the debit via the refund handler.
func (s *WalletService) Withdraw(ctx context.Context, playerID string, amount int64) (*models.Transaction, error) {
	var transaction *models.Transaction
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.ledger.Record(ctx, exec, playerID, models.KindWithdrawal, amount, nil)
		if err != nil {
			return err
		}
		transaction = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return transaction, nil
}

func (s *WalletService) Balance(ctx context.Context, playerID string) (int64, error) {
	return s.ledger.Balance(ctx, nil, playerID)
}

func (s *WalletService) History(ctx context.Context, playerID string, limit int) ([]*models.Transaction, error) {
	return s.ledger.History(ctx, playerID, limit)
}
