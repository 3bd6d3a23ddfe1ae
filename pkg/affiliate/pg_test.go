package affiliate

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raspay/raspay-server/pkg/pgutil"
	pgmigrations "github.com/raspay/raspay-server/pkg/pgutil/migrations"
)

func setupStore(t *testing.T) Store {
	pgutil.RequireDockerAccess(t)

	db, cleanup := pgutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	err := pgmigrations.CreateSchema(context.Background(), db,
		(*AffiliateDao)(nil),
		(*ManagerDao)(nil),
		(*CommissionEventDao)(nil),
		(*AffiliateCommissionDao)(nil),
		(*ManagerCommissionDao)(nil))
	require.NoError(t, err)

	return NewStore(db)
}

func createAffiliate(t *testing.T, store Store, userID int64, code string) *Affiliate {
	t.Helper()
	aff := &Affiliate{
		UserID:      userID,
		Code:        code,
		DepositRate: decimal.RequireFromString("5"),
		LossRate:    decimal.RequireFromString("10"),
	}
	require.NoError(t, store.CreateAffiliate(context.Background(), nil, aff))
	return aff
}

func TestAffiliateLookup(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	createAffiliate(t, store, 10, "BEMVINDO")

	aff, err := store.GetAffiliate(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "BEMVINDO", aff.Code)
	assert.True(t, aff.TotalEarnings.IsZero())

	byCode, err := store.GetAffiliateByCode(ctx, "BEMVINDO")
	require.NoError(t, err)
	assert.EqualValues(t, 10, byCode.UserID)

	_, err = store.GetAffiliate(ctx, 99)
	assert.ErrorIs(t, err, ErrAffiliateNotFound)
	_, err = store.GetAffiliateByCode(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrAffiliateNotFound)
}

func TestListAffiliatesByManager(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	mgr := &Manager{UserID: 20, CutRate: decimal.RequireFromString("20")}
	require.NoError(t, store.CreateManager(ctx, nil, mgr))

	managed := &Affiliate{
		UserID:      10,
		Code:        "A",
		DepositRate: decimal.RequireFromString("5"),
		LossRate:    decimal.RequireFromString("10"),
		ManagerID:   &mgr.UserID,
	}
	require.NoError(t, store.CreateAffiliate(ctx, nil, managed))
	createAffiliate(t, store, 11, "B")

	all, err := store.ListAffiliates(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := store.ListAffiliates(ctx, &mgr.UserID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.EqualValues(t, 10, mine[0].UserID)
}

func TestOutboxLifecycle(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordGameEvent(ctx, nil, 1, "raspe-da-fortuna",
		decimal.RequireFromString("10.00"), decimal.RequireFromString("4.00")))
	require.NoError(t, store.RecordDepositEvent(ctx, nil, 2, decimal.RequireFromString("50.00")))

	events, err := store.ListUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventGame, events[0].Kind, "oldest first")
	assert.True(t, events[0].Prize.Equal(decimal.RequireFromString("4.00")))
	assert.Equal(t, EventDeposit, events[1].Kind)

	require.NoError(t, store.MarkEventProcessed(ctx, nil, events[0].ID, time.Now()))

	remaining, err := store.ListUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, events[1].ID, remaining[0].ID)

	assert.Error(t, store.MarkEventProcessed(ctx, nil, events[0].ID, time.Now()),
		"double processing must be rejected")
}

func TestCommissionsBumpEarnings(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	createAffiliate(t, store, 10, "A")
	mgr := &Manager{UserID: 20, CutRate: decimal.RequireFromString("20")}
	require.NoError(t, store.CreateManager(ctx, nil, mgr))

	c := &Commission{
		EarnerID: 10,
		SourceID: 1,
		EventID:  1,
		Kind:     EventDeposit,
		Base:     decimal.RequireFromString("200.00"),
		Rate:     decimal.RequireFromString("5"),
		Amount:   decimal.RequireFromString("10.00"),
	}
	require.NoError(t, store.InsertAffiliateCommission(ctx, nil, c))
	require.NotZero(t, c.ID)

	cut := &Commission{
		EarnerID: 20,
		SourceID: 1,
		EventID:  1,
		Kind:     EventDeposit,
		Base:     decimal.RequireFromString("10.00"),
		Rate:     decimal.RequireFromString("20"),
		Amount:   decimal.RequireFromString("2.00"),
	}
	require.NoError(t, store.InsertManagerCommission(ctx, nil, cut))

	aff, err := store.GetAffiliate(ctx, 10)
	require.NoError(t, err)
	assert.True(t, aff.TotalEarnings.Equal(decimal.RequireFromString("10.00")))

	got, err := store.GetManager(ctx, 20)
	require.NoError(t, err)
	assert.True(t, got.TotalEarnings.Equal(decimal.RequireFromString("2.00")))

	affComms, err := store.ListAffiliateCommissions(ctx, 10, 10)
	require.NoError(t, err)
	require.Len(t, affComms, 1)
	assert.True(t, affComms[0].Amount.Equal(decimal.RequireFromString("10.00")))

	mgrComms, err := store.ListManagerCommissions(ctx, 20, 10)
	require.NoError(t, err)
	require.Len(t, mgrComms, 1)
}

func TestAffiliateDeleteUserData(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	createAffiliate(t, store, 10, "A")
	require.NoError(t, store.RecordDepositEvent(ctx, nil, 10, decimal.RequireFromString("50.00")))
	require.NoError(t, store.InsertAffiliateCommission(ctx, nil, &Commission{
		EarnerID: 10, SourceID: 1, EventID: 1, Kind: EventDeposit,
		Base:   decimal.RequireFromString("50.00"),
		Rate:   decimal.RequireFromString("5"),
		Amount: decimal.RequireFromString("2.50"),
	}))

	require.NoError(t, store.DeleteUserData(ctx, nil, 10))

	_, err := store.GetAffiliate(ctx, 10)
	assert.ErrorIs(t, err, ErrAffiliateNotFound)

	events, err := store.ListUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)

	comms, err := store.ListAffiliateCommissions(ctx, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, comms)
}
