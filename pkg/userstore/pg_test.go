package userstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raspay/raspay-server/pkg/pgutil"
	pgmigrations "github.com/raspay/raspay-server/pkg/pgutil/migrations"
	"github.com/raspay/raspay-server/pkg/user"
)

func setupStore(t *testing.T) Store {
	pgutil.RequireDockerAccess(t)

	db, cleanup := pgutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	require.NoError(t, pgmigrations.CreateSchema(context.Background(), db, (*UserDao)(nil)))
	return NewStore(db)
}

func createUser(t *testing.T, store Store, n int) *user.User {
	t.Helper()
	usr := user.New(
		fmt.Sprintf("user%d@example.com", n),
		fmt.Sprintf("user%d", n),
		"$2a$10$hash")
	require.NoError(t, store.CreateUser(context.Background(), nil, usr))
	require.NotZero(t, usr.ID)
	return usr
}

func TestCreateAndGetUser(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	usr := createUser(t, store, 1)
	assert.Equal(t, user.KindRegular, usr.Kind)
	assert.False(t, usr.CreatedAt.IsZero())

	byID, err := store.GetUser(ctx, WithID(usr.ID))
	require.NoError(t, err)
	assert.Equal(t, usr.Email, byID.Email)

	byEmail, err := store.GetUser(ctx, WithEmail(usr.Email))
	require.NoError(t, err)
	assert.Equal(t, usr.ID, byEmail.ID)

	byUsername, err := store.GetUser(ctx, WithUsername(usr.Username))
	require.NoError(t, err)
	assert.Equal(t, usr.ID, byUsername.ID)

	_, err = store.GetUser(ctx, WithEmail("nope@example.com"))
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestTakenChecks(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	usr := createUser(t, store, 1)

	taken, err := store.EmailTaken(ctx, usr.Email)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = store.EmailTaken(ctx, "livre@example.com")
	require.NoError(t, err)
	assert.False(t, taken)

	taken, err = store.UsernameTaken(ctx, usr.Username)
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestReferralAttribution(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	aff := createUser(t, store, 1)

	referred := user.New("ref@example.com", "referred", "$2a$10$hash")
	referred.AffiliateID = &aff.ID
	require.NoError(t, store.CreateUser(ctx, nil, referred))
	createUser(t, store, 3) // unattributed

	refs, err := store.ListUsersByAffiliate(ctx, aff.ID)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, referred.ID, refs[0].ID)
	require.NotNil(t, refs[0].AffiliateID)
	assert.Equal(t, aff.ID, *refs[0].AffiliateID)
}

func TestCountUsersByKind(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	createUser(t, store, 1)
	createUser(t, store, 2)
	mgr := user.New("mgr@example.com", "mgr", "$2a$10$hash")
	mgr.Kind = user.KindManager
	require.NoError(t, store.CreateUser(ctx, nil, mgr))

	counts, err := store.CountUsersByKind(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[user.KindRegular])
	assert.Equal(t, 1, counts[user.KindManager])
}

func TestDeleteUser(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	usr := createUser(t, store, 1)
	require.NoError(t, store.DeleteUser(ctx, nil, usr.ID))

	_, err := store.GetUser(ctx, WithID(usr.ID))
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.ErrorIs(t, store.DeleteUser(ctx, nil, usr.ID), ErrUserNotFound)
}

func TestListUsersPagination(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		createUser(t, store, i)
	}

	users, err := store.ListUsers(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "user1", users[0].Username)

	users, err = store.ListUsers(ctx, 2, 4)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "user5", users[0].Username)
}
