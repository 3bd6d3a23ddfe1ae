package reconciler

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/raspay/raspay-server/internal/metrics"
	"github.com/raspay/raspay-server/pkg/wallet"
)

type ledgerRow struct {
	balance decimal.Decimal
	ledger  decimal.Decimal
}

type mockWalletStore struct {
	wallet.Store

	rows  map[int64]ledgerRow
	reads int
}

func (m *mockWalletStore) ListWalletUserIDs(context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(m.rows))
	for id := range m.rows {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *mockWalletStore) GetWalletLedgerSum(_ context.Context, userID int64) (decimal.Decimal, decimal.Decimal, error) {
	m.reads++
	row, ok := m.rows[userID]
	if !ok {
		return decimal.Zero, decimal.Zero, wallet.ErrWalletNotFound
	}
	return row.balance, row.ledger, nil
}

func TestSweepReportsDrift(t *testing.T) {
	store := &mockWalletStore{rows: map[int64]ledgerRow{
		1: {balance: decimal.RequireFromString("50.00"), ledger: decimal.RequireFromString("50.00")},
		2: {balance: decimal.RequireFromString("80.00"), ledger: decimal.RequireFromString("75.00")},
		3: {balance: decimal.Zero, ledger: decimal.Zero},
	}}
	r := New(store, time.Minute, time.Minute, zap.NewNop())

	r.Sweep(context.Background())

	assert.Equal(t, 3, store.reads, "one combined read per wallet")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.WalletDrift))
}

func TestSweepCleanRun(t *testing.T) {
	store := &mockWalletStore{rows: map[int64]ledgerRow{
		1: {balance: decimal.RequireFromString("10.00"), ledger: decimal.RequireFromString("10.00")},
	}}
	r := New(store, time.Minute, time.Minute, zap.NewNop())

	r.Sweep(context.Background())

	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.WalletDrift))
}
