package affiliate

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/raspay/raspay-server/pkg/user"
	"github.com/raspay/raspay-server/pkg/userstore"
	"github.com/raspay/raspay-server/pkg/wallet"
)

type mockStore struct {
	Store

	affiliates map[int64]*Affiliate
	managers   map[int64]*Manager

	affiliateCommissions []*Commission
	managerCommissions   []*Commission
	processed            map[int64]bool
}

func (m *mockStore) GetAffiliate(_ context.Context, userID int64) (*Affiliate, error) {
	aff, ok := m.affiliates[userID]
	if !ok {
		return nil, ErrAffiliateNotFound
	}
	return aff, nil
}

func (m *mockStore) GetManager(_ context.Context, userID int64) (*Manager, error) {
	mgr, ok := m.managers[userID]
	if !ok {
		return nil, ErrManagerNotFound
	}
	return mgr, nil
}

func (m *mockStore) InsertAffiliateCommission(_ context.Context, _ bun.IDB, c *Commission) error {
	m.affiliateCommissions = append(m.affiliateCommissions, c)
	return nil
}

func (m *mockStore) InsertManagerCommission(_ context.Context, _ bun.IDB, c *Commission) error {
	m.managerCommissions = append(m.managerCommissions, c)
	return nil
}

func (m *mockStore) MarkEventProcessed(_ context.Context, _ bun.IDB, eventID int64, _ time.Time) error {
	m.processed[eventID] = true
	return nil
}

type mockUsers struct {
	userstore.Store
	users map[int64]*user.User
}

func (m *mockUsers) GetUser(_ context.Context, opts ...userstore.QueryOption) (*user.User, error) {
	var q userstore.QueryOptions
	for _, opt := range opts {
		opt(&q)
	}
	usr, ok := m.users[*q.ID]
	if !ok {
		return nil, userstore.ErrUserNotFound
	}
	return usr, nil
}

type mockWallets struct {
	wallet.Store
	balances map[int64]decimal.Decimal
	txs      []*wallet.Transaction
}

func (m *mockWallets) RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return fn(ctx, bun.Tx{})
}

func (m *mockWallets) ApplyDelta(_ context.Context, _ bun.IDB, userID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	m.balances[userID] = m.balances[userID].Add(delta)
	return m.balances[userID], nil
}

func (m *mockWallets) InsertTransaction(_ context.Context, _ bun.IDB, tx *wallet.Transaction) error {
	m.txs = append(m.txs, tx)
	return nil
}

type workerFixture struct {
	worker  *Worker
	store   *mockStore
	users   *mockUsers
	wallets *mockWallets
}

// newWorkerFixture wires player 1 to affiliate 10, managed by manager 20.
// Rates: 5% of deposits, 10% of net losses, manager cut 20%.
func newWorkerFixture() *workerFixture {
	managerID := int64(20)
	affiliateID := int64(10)
	f := &workerFixture{
		store: &mockStore{
			affiliates: map[int64]*Affiliate{
				10: {
					UserID:      10,
					Code:        "BEMVINDO",
					DepositRate: decimal.RequireFromString("5"),
					LossRate:    decimal.RequireFromString("10"),
					ManagerID:   &managerID,
				},
			},
			managers: map[int64]*Manager{
				20: {UserID: 20, CutRate: decimal.RequireFromString("20")},
			},
			processed: map[int64]bool{},
		},
		users: &mockUsers{users: map[int64]*user.User{
			1: {ID: 1, Kind: user.KindRegular, AffiliateID: &affiliateID},
			2: {ID: 2, Kind: user.KindRegular},
		}},
		wallets: &mockWallets{balances: map[int64]decimal.Decimal{}},
	}
	f.worker = NewWorker(f.store, f.users, f.wallets, time.Minute, 100, zap.NewNop())
	return f
}

func TestProcessDepositEvent(t *testing.T) {
	f := newWorkerFixture()
	ev := &Event{ID: 1, Kind: EventDeposit, UserID: 1, Amount: decimal.RequireFromString("200.00")}

	require.NoError(t, f.worker.ProcessEvent(context.Background(), ev))

	// Affiliate: 5% of 200 = 10. Manager: 20% of 10 = 2, on top.
	assert.True(t, f.wallets.balances[10].Equal(decimal.RequireFromString("10.00")))
	assert.True(t, f.wallets.balances[20].Equal(decimal.RequireFromString("2.00")))

	require.Len(t, f.store.affiliateCommissions, 1)
	require.Len(t, f.store.managerCommissions, 1)
	assert.True(t, f.store.managerCommissions[0].Base.Equal(decimal.RequireFromString("10.00")),
		"manager cut is computed on the affiliate commission, not the deposit")
	assert.True(t, f.store.processed[1])

	require.Len(t, f.wallets.txs, 2)
	assert.Equal(t, wallet.TxAffiliateCommission, f.wallets.txs[0].Type)
	assert.Equal(t, wallet.TxManagerCommission, f.wallets.txs[1].Type)
	assert.Equal(t, wallet.StatusSuccess, f.wallets.txs[0].Status)
}

func TestProcessGameEventNetLoss(t *testing.T) {
	f := newWorkerFixture()
	ev := &Event{
		ID:     2,
		Kind:   EventGame,
		UserID: 1,
		Game:   "raspe-da-fortuna",
		Amount: decimal.RequireFromString("10.00"),
		Prize:  decimal.RequireFromString("4.00"),
	}

	require.NoError(t, f.worker.ProcessEvent(context.Background(), ev))

	// 10% of the 6.00 net loss.
	assert.True(t, f.wallets.balances[10].Equal(decimal.RequireFromString("0.60")))
	assert.True(t, f.wallets.balances[20].Equal(decimal.RequireFromString("0.12")))
	assert.Equal(t, "raspe-da-fortuna", f.wallets.txs[0].Game)
}

func TestProcessGameEventNetWinClawsBack(t *testing.T) {
	f := newWorkerFixture()
	ev := &Event{
		ID:     3,
		Kind:   EventGame,
		UserID: 1,
		Game:   "raspe-da-alegria",
		Amount: decimal.RequireFromString("5.00"),
		Prize:  decimal.RequireFromString("25.00"),
	}

	require.NoError(t, f.worker.ProcessEvent(context.Background(), ev))

	// Net player win of 20.00 claws back 10% from the affiliate and the
	// manager's 20% share of it.
	assert.True(t, f.wallets.balances[10].Equal(decimal.RequireFromString("-2.00")))
	assert.True(t, f.wallets.balances[20].Equal(decimal.RequireFromString("-0.40")))
	assert.True(t, f.store.affiliateCommissions[0].Amount.IsNegative())
	assert.True(t, f.store.processed[3])
}

func TestProcessEventNoAffiliate(t *testing.T) {
	f := newWorkerFixture()
	ev := &Event{ID: 4, Kind: EventDeposit, UserID: 2, Amount: decimal.RequireFromString("100.00")}

	require.NoError(t, f.worker.ProcessEvent(context.Background(), ev))

	assert.True(t, f.store.processed[4], "events without a referrer still get marked processed")
	assert.Empty(t, f.store.affiliateCommissions)
	assert.Empty(t, f.wallets.txs)
}

func TestProcessEventDeletedPlayer(t *testing.T) {
	f := newWorkerFixture()
	ev := &Event{ID: 5, Kind: EventDeposit, UserID: 99, Amount: decimal.RequireFromString("100.00")}

	require.NoError(t, f.worker.ProcessEvent(context.Background(), ev))
	assert.True(t, f.store.processed[5])
	assert.Empty(t, f.wallets.txs)
}

func TestProcessEventDeletedManagerSkipsCut(t *testing.T) {
	f := newWorkerFixture()
	delete(f.store.managers, 20)
	ev := &Event{ID: 6, Kind: EventDeposit, UserID: 1, Amount: decimal.RequireFromString("200.00")}

	require.NoError(t, f.worker.ProcessEvent(context.Background(), ev))

	assert.True(t, f.wallets.balances[10].Equal(decimal.RequireFromString("10.00")))
	assert.Empty(t, f.store.managerCommissions)
	assert.True(t, f.store.processed[6])
}

func TestProcessEventZeroCommission(t *testing.T) {
	f := newWorkerFixture()
	// Break-even play: net loss of zero.
	ev := &Event{
		ID:     7,
		Kind:   EventGame,
		UserID: 1,
		Amount: decimal.RequireFromString("5.00"),
		Prize:  decimal.RequireFromString("5.00"),
	}

	require.NoError(t, f.worker.ProcessEvent(context.Background(), ev))
	assert.True(t, f.store.processed[7])
	assert.Empty(t, f.store.affiliateCommissions)
	assert.Empty(t, f.wallets.txs)
}
