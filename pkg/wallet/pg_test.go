package wallet

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/raspay/raspay-server/pkg/pgutil"
	pgmigrations "github.com/raspay/raspay-server/pkg/pgutil/migrations"
)

func setupStore(t *testing.T) Store {
	pgutil.RequireDockerAccess(t)

	db, cleanup := pgutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	err := pgmigrations.CreateSchema(context.Background(), db,
		(*WalletDao)(nil), (*TransactionDao)(nil))
	require.NoError(t, err)

	return NewStore(db)
}

func insertRow(t *testing.T, store Store, userID int64, txType TxType, amount string, status TxStatus) *Transaction {
	t.Helper()
	tx := &Transaction{
		UserID: userID,
		Type:   txType,
		Amount: decimal.RequireFromString(amount),
		Status: status,
	}
	require.NoError(t, store.InsertTransaction(context.Background(), nil, tx))
	require.NotZero(t, tx.ID)
	return tx
}

func TestWalletLifecycle(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.GetWallet(ctx, 1)
	assert.ErrorIs(t, err, ErrWalletNotFound)

	require.NoError(t, store.CreateWallet(ctx, nil, 1))

	w, err := store.GetWallet(ctx, 1)
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())

	balance, err := store.ApplyDelta(ctx, nil, 1, decimal.RequireFromString("25.50"))
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("25.50")))

	balance, err = store.ApplyDelta(ctx, nil, 1, decimal.RequireFromString("-10.00"))
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("15.50")))

	_, err = store.ApplyDelta(ctx, nil, 999, decimal.New(1, 0))
	assert.ErrorIs(t, err, ErrWalletNotFound)

	err = store.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		locked, err := store.LockWallet(ctx, tx, 1)
		if err != nil {
			return err
		}
		assert.True(t, locked.Balance.Equal(decimal.RequireFromString("15.50")))
		return nil
	})
	require.NoError(t, err)

	ids, err := store.ListWalletUserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
}

func TestLedgerSumCountsPendingWithdrawals(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateWallet(ctx, nil, 1))
	insertRow(t, store, 1, TxDeposit, "50.00", StatusSuccess)
	insertRow(t, store, 1, TxDeposit, "30.00", StatusPending)   // unpaid, not counted
	insertRow(t, store, 1, TxWithdraw, "-10.00", StatusPending) // debited up front, counted
	insertRow(t, store, 1, TxWithdraw, "-20.00", StatusFailed)
	insertRow(t, store, 1, TxGamePlay, "-5.00", StatusSuccess)
	insertRow(t, store, 2, TxDeposit, "999.00", StatusSuccess) // other user

	_, sum, err := store.GetWalletLedgerSum(ctx, 1)
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.RequireFromString("35.00")), "got %s", sum)
}

func TestTransactionStatusTransitions(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	tx := insertRow(t, store, 1, TxDeposit, "50.00", StatusPending)

	require.NoError(t, store.SetTransactionExternalID(ctx, nil, tx.ID, "ext-42"))

	got, err := store.GetTransactionByExternalID(ctx, TxDeposit, "ext-42")
	require.NoError(t, err)
	assert.Equal(t, tx.ID, got.ID)

	_, err = store.GetTransactionByExternalID(ctx, TxWithdraw, "ext-42")
	assert.ErrorIs(t, err, ErrTransactionNotFound, "lookup is scoped by type")

	flipped, err := store.TransitionStatus(ctx, nil, tx.ID, StatusSuccess, StatusPending)
	require.NoError(t, err)
	require.True(t, flipped)
	require.NoError(t, store.SetTransactionEndToEnd(ctx, nil, tx.ID, "E2E77"))

	got, err = store.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, got.Status)
	require.NotNil(t, got.EndToEndID)
	assert.Equal(t, "E2E77", *got.EndToEndID)
}

func TestTransitionStatusConditional(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	tx := insertRow(t, store, 1, TxDeposit, "50.00", StatusPending)

	flipped, err := store.TransitionStatus(ctx, nil, tx.ID, StatusSuccess, StatusPending)
	require.NoError(t, err)
	assert.True(t, flipped)

	// Second flip finds the row already settled.
	flipped, err = store.TransitionStatus(ctx, nil, tx.ID, StatusSuccess, StatusPending)
	require.NoError(t, err)
	assert.False(t, flipped)

	flipped, err = store.TransitionStatus(ctx, nil, tx.ID, StatusFailed, StatusPending, StatusApproved)
	require.NoError(t, err)
	assert.False(t, flipped, "a settled row never moves again")

	got, err := store.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, got.Status)

	flipped, err = store.TransitionStatus(ctx, nil, 9999, StatusFailed, StatusPending)
	require.NoError(t, err)
	assert.False(t, flipped)
}

func TestConcurrentSettlementsCreditOnce(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateWallet(ctx, nil, 1))
	tx := insertRow(t, store, 1, TxDeposit, "50.00", StatusPending)

	// Two deliveries of the same confirmation race: the wallet lock
	// serializes them and the conditional flip lets exactly one credit.
	settle := func() (bool, error) {
		var credited bool
		err := store.RunInTx(ctx, func(ctx context.Context, dbTx bun.Tx) error {
			if _, err := store.LockWallet(ctx, dbTx, 1); err != nil {
				return err
			}
			flipped, err := store.TransitionStatus(ctx, dbTx, tx.ID, StatusSuccess, StatusPending)
			if err != nil || !flipped {
				return err
			}
			credited = true
			_, err = store.ApplyDelta(ctx, dbTx, 1, tx.Amount)
			return err
		})
		return credited, err
	}

	type result struct {
		credited bool
		err      error
	}
	results := make(chan result, 2)
	for i := 0; i < 2; i++ {
		go func() {
			credited, err := settle()
			results <- result{credited, err}
		}()
	}

	credits := 0
	for i := 0; i < 2; i++ {
		r := <-results
		require.NoError(t, r.err)
		if r.credited {
			credits++
		}
	}
	assert.Equal(t, 1, credits, "exactly one settlement wins")

	w, err := store.GetWallet(ctx, 1)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(decimal.RequireFromString("50.00")), "got %s", w.Balance)
}

func TestGetWalletLedgerSum(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, _, err := store.GetWalletLedgerSum(ctx, 1)
	assert.ErrorIs(t, err, ErrWalletNotFound)

	require.NoError(t, store.CreateWallet(ctx, nil, 1))
	_, err = store.ApplyDelta(ctx, nil, 1, decimal.RequireFromString("40.00"))
	require.NoError(t, err)

	insertRow(t, store, 1, TxDeposit, "50.00", StatusSuccess)
	insertRow(t, store, 1, TxWithdraw, "-10.00", StatusPending)
	insertRow(t, store, 1, TxDeposit, "30.00", StatusPending) // unpaid, not counted
	insertRow(t, store, 2, TxDeposit, "999.00", StatusSuccess)

	balance, ledger, err := store.GetWalletLedgerSum(ctx, 1)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.RequireFromString("40.00")), "got %s", balance)
	assert.True(t, ledger.Equal(decimal.RequireFromString("40.00")), "got %s", ledger)
}

func TestListTransactionsNewestFirst(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	first := insertRow(t, store, 1, TxDeposit, "10.00", StatusSuccess)
	second := insertRow(t, store, 1, TxGamePlay, "-1.00", StatusSuccess)

	txs, err := store.ListTransactions(ctx, 1, 10, 0)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, second.ID, txs[0].ID)
	assert.Equal(t, first.ID, txs[1].ID)

	txs, err = store.ListTransactions(ctx, 1, 1, 1)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, first.ID, txs[0].ID)
}

func TestDeleteUserData(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateWallet(ctx, nil, 1))
	insertRow(t, store, 1, TxDeposit, "10.00", StatusSuccess)

	require.NoError(t, store.DeleteUserData(ctx, nil, 1))

	_, err := store.GetWallet(ctx, 1)
	assert.ErrorIs(t, err, ErrWalletNotFound)
	txs, err := store.ListTransactions(ctx, 1, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, txs)
}
