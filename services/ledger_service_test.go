package services

import (
	"context"
	"testing"

	"github.com/bgmi-arena/arena-backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEntryFeeDebitsImmediately(t *testing.T) {
	f := newFixture()
	f.seedPlayer("p1", 300)

	tx, err := f.ledger.Record(context.Background(), nil, "p1", models.KindEntryFee, 100, nil)
	require.NoError(t, err)

	assert.Equal(t, models.TxSettled, tx.Status)
	assert.Equal(t, int64(200), tx.BalanceAfter)
	assert.Equal(t, int64(200), f.playerBalance("p1"))
}

func TestRecordRejectsOverdraft(t *testing.T) {
	f := newFixture()
	f.seedPlayer("p1", 50)

	_, err := f.ledger.Record(context.Background(), nil, "p1", models.KindEntryFee, 100, nil)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, int64(50), f.playerBalance("p1"))
	assert.Zero(t, f.transactionCount("p1"))
}

func TestRecordRejectsNonPositiveAmount(t *testing.T) {
	f := newFixture()
	f.seedPlayer("p1", 50)

	_, err := f.ledger.Record(context.Background(), nil, "p1", models.KindDeposit, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.ledger.Record(context.Background(), nil, "p1", models.KindDeposit, -10, nil)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestRecordUnknownPlayer(t *testing.T) {
	f := newFixture()

	_, err := f.ledger.Record(context.Background(), nil, "ghost", models.KindEntryFee, 100, nil)
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

func TestReverseRestoresBalanceExactly(t *testing.T) {
	f := newFixture()
	f.seedPlayer("p1", 300)

	debit, err := f.ledger.Record(context.Background(), nil, "p1", models.KindEntryFee, 120, nil)
	require.NoError(t, err)
	require.Equal(t, int64(180), f.playerBalance("p1"))

	refund, err := f.ledger.Reverse(context.Background(), nil, debit.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(300), f.playerBalance("p1"))
	assert.Equal(t, models.KindRefund, refund.Kind)
	assert.Equal(t, int64(120), refund.Amount)
	require.NotNil(t, refund.ReversalOf)
	assert.Equal(t, debit.ID, *refund.ReversalOf)

	original, err := f.ledger.Get(context.Background(), debit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TxReversed, original.Status)
}

func TestReverseTwiceFails(t *testing.T) {
	f := newFixture()
	f.seedPlayer("p1", 300)

	debit, err := f.ledger.Record(context.Background(), nil, "p1", models.KindEntryFee, 120, nil)
	require.NoError(t, err)

	_, err = f.ledger.Reverse(context.Background(), nil, debit.ID)
	require.NoError(t, err)

	_, err = f.ledger.Reverse(context.Background(), nil, debit.ID)
	assert.ErrorIs(t, err, ErrAlreadyReversed)
	assert.Equal(t, int64(300), f.playerBalance("p1"))
}

func TestReverseCreditNotAllowed(t *testing.T) {
	f := newFixture()
	f.seedPlayer("p1", 300)

	deposit, err := f.ledger.Record(context.Background(), nil, "p1", models.KindDeposit, 100, nil)
	require.NoError(t, err)

	_, err = f.ledger.Reverse(context.Background(), nil, deposit.ID)
	assert.ErrorIs(t, err, ErrNotReversible)
}

func TestDepositPendingUntilSettled(t *testing.T) {
	f := newFixture()
	f.seedPlayer("p1", 100)

	deposit, err := f.ledger.Record(context.Background(), nil, "p1", models.KindDeposit, 500, nil)
	require.NoError(t, err)
	assert.Equal(t, models.TxPending, deposit.Status)
	assert.Equal(t, int64(100), f.playerBalance("p1"), "pending deposit must not move the balance")

	require.NoError(t, f.ledger.Settle(context.Background(), nil, deposit.ID))
	assert.Equal(t, int64(600), f.playerBalance("p1"))

	assert.ErrorIs(t, f.ledger.Settle(context.Background(), nil, deposit.ID), ErrAlreadySettled)
	assert.Equal(t, int64(600), f.playerBalance("p1"), "settling twice must not double-credit")
}

func TestDiscardPendingDeposit(t *testing.T) {
	f := newFixture()
	f.seedPlayer("p1", 100)

	deposit, err := f.ledger.Record(context.Background(), nil, "p1", models.KindDeposit, 500, nil)
	require.NoError(t, err)

	require.NoError(t, f.ledger.Discard(context.Background(), nil, deposit.ID))
	assert.Equal(t, int64(100), f.playerBalance("p1"))

	assert.ErrorIs(t, f.ledger.Discard(context.Background(), nil, deposit.ID), ErrAlreadyReversed)
}

func TestWithdrawalDebitsOptimistically(t *testing.T) {
	f := newFixture()
	f.seedPlayer("p1", 400)

	withdrawal, err := f.ledger.Record(context.Background(), nil, "p1", models.KindWithdrawal, 150, nil)
	require.NoError(t, err)
	assert.Equal(t, models.TxPending, withdrawal.Status)
	assert.Equal(t, int64(250), f.playerBalance("p1"))

	// Approval finalizes without touching the balance again.
	require.NoError(t, f.ledger.Settle(context.Background(), nil, withdrawal.ID))
	assert.Equal(t, int64(250), f.playerBalance("p1"))
}

func TestHistoryNewestFirst(t *testing.T) {
	f := newFixture()
	f.seedPlayer("p1", 1000)

	first, err := f.ledger.Record(context.Background(), nil, "p1", models.KindEntryFee, 100, nil)
	require.NoError(t, err)
	second, err := f.ledger.Record(context.Background(), nil, "p1", models.KindEntryFee, 200, nil)
	require.NoError(t, err)

	history, err := f.ledger.History(context.Background(), "p1", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)
}
