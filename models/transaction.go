package models

import "time"

// TransactionKind classifies a balance-affecting event.
type TransactionKind string

const (
	KindDeposit    TransactionKind = "deposit"
	KindWithdrawal TransactionKind = "withdrawal"
	KindEntryFee   TransactionKind = "entry_fee"
	KindRefund     TransactionKind = "refund"
)

// IsDebit reports whether the kind reduces the player's balance.
func (k TransactionKind) IsDebit() bool {
	return k == KindWithdrawal || k == KindEntryFee
}

// Delta returns the signed balance effect for the given amount.
func (k TransactionKind) Delta(amount int64) int64 {
	if k.IsDebit() {
		return -amount
	}
	return amount
}

type TransactionStatus string

const (
	TxPending  TransactionStatus = "pending"
	TxSettled  TransactionStatus = "settled"
	TxReversed TransactionStatus = "reversed"
)

// Transaction is an immutable ledger record. Once settled or reversed the row
// never changes; reversals are expressed as compensating refund rows that
// reference the original via ReversalOf.
type Transaction struct {
	ID           string            `json:"id"`
	PlayerID     string            `json:"player_id"`
	Kind         TransactionKind   `json:"kind"`
	Amount       int64             `json:"amount"`
	BalanceAfter int64             `json:"balance_after"`
	Status       TransactionStatus `json:"status"`
	ProofRef     *string           `json:"proof_ref,omitempty"`
	ReversalOf   *string           `json:"reversal_of,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}
