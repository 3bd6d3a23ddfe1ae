package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raspay/raspay-server/pkg/pgutil"
	pgmigrations "github.com/raspay/raspay-server/pkg/pgutil/migrations"
)

func setupSubscriptionStore(t *testing.T) SubscriptionStore {
	pgutil.RequireDockerAccess(t)

	db, cleanup := pgutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	require.NoError(t, pgmigrations.CreateSchema(context.Background(), db, (*PushSubscriptionDao)(nil)))
	return NewSubscriptionStore(db)
}

func TestSaveUpsertsByEndpoint(t *testing.T) {
	store := setupSubscriptionStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Subscription{
		UserID: 1, Endpoint: "https://push.example/abc", P256dh: "key1", Auth: "auth1",
	}))
	// Re-registering the same endpoint rotates the keys instead of
	// duplicating the row.
	require.NoError(t, store.Save(ctx, &Subscription{
		UserID: 2, Endpoint: "https://push.example/abc", P256dh: "key2", Auth: "auth2",
	}))

	subs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.EqualValues(t, 2, subs[0].UserID)
	assert.Equal(t, "key2", subs[0].P256dh)
}

func TestDeleteByEndpoint(t *testing.T) {
	store := setupSubscriptionStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Subscription{
		UserID: 1, Endpoint: "https://push.example/abc", P256dh: "k", Auth: "a",
	}))
	require.NoError(t, store.Save(ctx, &Subscription{
		UserID: 1, Endpoint: "https://push.example/def", P256dh: "k", Auth: "a",
	}))

	require.NoError(t, store.Delete(ctx, "https://push.example/abc"))

	subs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "https://push.example/def", subs[0].Endpoint)
}

func TestDeleteUserDataRemovesSubscriptions(t *testing.T) {
	store := setupSubscriptionStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Subscription{
		UserID: 1, Endpoint: "https://push.example/abc", P256dh: "k", Auth: "a",
	}))
	require.NoError(t, store.Save(ctx, &Subscription{
		UserID: 2, Endpoint: "https://push.example/def", P256dh: "k", Auth: "a",
	}))

	require.NoError(t, store.DeleteUserData(ctx, nil, 1))

	subs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.EqualValues(t, 2, subs[0].UserID)
}
