package account

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/raspay/raspay-server/pkg/affiliate"
	apperrors "github.com/raspay/raspay-server/pkg/app/errors"
	"github.com/raspay/raspay-server/pkg/auth"
	"github.com/raspay/raspay-server/pkg/user"
	"github.com/raspay/raspay-server/pkg/userstore"
	"github.com/raspay/raspay-server/pkg/wallet"
)

type mockUserStore struct {
	userstore.Store

	users  map[int64]*user.User
	nextID int64
}

func (m *mockUserStore) CreateUser(_ context.Context, _ bun.IDB, usr *user.User) error {
	m.nextID++
	usr.ID = m.nextID
	m.users[usr.ID] = usr
	return nil
}

func (m *mockUserStore) GetUser(_ context.Context, opts ...userstore.QueryOption) (*user.User, error) {
	var q userstore.QueryOptions
	for _, opt := range opts {
		opt(&q)
	}
	for _, usr := range m.users {
		switch {
		case q.ID != nil && usr.ID == *q.ID:
			return usr, nil
		case q.Email != nil && usr.Email == *q.Email:
			return usr, nil
		case q.Username != nil && usr.Username == *q.Username:
			return usr, nil
		}
	}
	return nil, userstore.ErrUserNotFound
}

func (m *mockUserStore) EmailTaken(_ context.Context, email string) (bool, error) {
	for _, usr := range m.users {
		if usr.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserStore) UsernameTaken(_ context.Context, username string) (bool, error) {
	for _, usr := range m.users {
		if usr.Username == username {
			return true, nil
		}
	}
	return false, nil
}

type mockWalletStore struct {
	wallet.Store
	wallets map[int64]*wallet.Wallet
}

func (m *mockWalletStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return fn(ctx, bun.Tx{})
}

func (m *mockWalletStore) CreateWallet(_ context.Context, _ bun.IDB, userID int64) error {
	m.wallets[userID] = &wallet.Wallet{UserID: userID, Balance: decimal.Zero}
	return nil
}

func (m *mockWalletStore) GetWallet(_ context.Context, userID int64) (*wallet.Wallet, error) {
	w, ok := m.wallets[userID]
	if !ok {
		return nil, wallet.ErrWalletNotFound
	}
	return w, nil
}

type mockAffiliateStore struct {
	affiliate.Store
	byCode map[string]*affiliate.Affiliate
}

func (m *mockAffiliateStore) GetAffiliateByCode(_ context.Context, code string) (*affiliate.Affiliate, error) {
	aff, ok := m.byCode[code]
	if !ok {
		return nil, affiliate.ErrAffiliateNotFound
	}
	return aff, nil
}

func newService() (*Service, *mockUserStore, *mockWalletStore) {
	users := &mockUserStore{users: map[int64]*user.User{}}
	wallets := &mockWalletStore{wallets: map[int64]*wallet.Wallet{}}
	affiliates := &mockAffiliateStore{byCode: map[string]*affiliate.Affiliate{
		"BEMVINDO": {UserID: 10, Code: "BEMVINDO"},
	}}
	issuer := auth.NewTokenIssuer([]byte("test-secret"), "raspay", time.Hour)
	svc := NewService(users, wallets, affiliates, issuer, bcrypt.MinCost, zap.NewNop())
	return svc, users, wallets
}

func TestRegisterCreatesUserAndWallet(t *testing.T) {
	svc, users, wallets := newService()

	usr, token, err := svc.Register(context.Background(), "maria@example.com", "maria", "senha-forte", "")
	require.NoError(t, err)

	assert.NotEmpty(t, token)
	assert.Equal(t, user.KindRegular, usr.Kind)
	assert.Nil(t, usr.AffiliateID)
	assert.NotEqual(t, "senha-forte", usr.PasswordHash, "password must be hashed")

	require.Contains(t, users.users, usr.ID)
	require.Contains(t, wallets.wallets, usr.ID, "registration must create the wallet row")
}

func TestRegisterWithReferralCode(t *testing.T) {
	svc, _, _ := newService()

	usr, _, err := svc.Register(context.Background(), "maria@example.com", "maria", "senha-forte", "BEMVINDO")
	require.NoError(t, err)
	require.NotNil(t, usr.AffiliateID)
	assert.EqualValues(t, 10, *usr.AffiliateID)
}

func TestRegisterUnknownReferralCodeIsNotFatal(t *testing.T) {
	svc, _, _ := newService()

	usr, _, err := svc.Register(context.Background(), "maria@example.com", "maria", "senha-forte", "NAOEXISTE")
	require.NoError(t, err)
	assert.Nil(t, usr.AffiliateID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newService()
	_, _, err := svc.Register(context.Background(), "maria@example.com", "maria", "senha-forte", "")
	require.NoError(t, err)

	_, _, err = svc.Register(context.Background(), "maria@example.com", "maria2", "senha-forte", "")
	var svcErr *apperrors.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, apperrors.CategoryDataConflict, svcErr.Category)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _, _ := newService()
	_, _, err := svc.Register(context.Background(), "maria@example.com", "maria", "senha-forte", "")
	require.NoError(t, err)

	_, _, err = svc.Register(context.Background(), "outra@example.com", "maria", "senha-forte", "")
	var svcErr *apperrors.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, apperrors.CategoryDataConflict, svcErr.Category)
}

func TestLoginByEmailAndUsername(t *testing.T) {
	svc, _, _ := newService()
	_, _, err := svc.Register(context.Background(), "maria@example.com", "maria", "senha-forte", "")
	require.NoError(t, err)

	for _, login := range []string{"maria@example.com", "maria"} {
		usr, token, err := svc.Login(context.Background(), login, "senha-forte")
		require.NoError(t, err, "login %q", login)
		assert.Equal(t, "maria", usr.Username)
		assert.NotEmpty(t, token)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newService()
	_, _, err := svc.Register(context.Background(), "maria@example.com", "maria", "senha-forte", "")
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), "maria", "senha-errada")
	var svcErr *apperrors.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, apperrors.CategoryUnauthorized, svcErr.Category)
}

func TestLoginUnknownUser(t *testing.T) {
	svc, _, _ := newService()
	_, _, err := svc.Login(context.Background(), "ninguem", "senha")
	var svcErr *apperrors.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, apperrors.CategoryUnauthorized, svcErr.Category)
}

func TestProfile(t *testing.T) {
	svc, _, wallets := newService()
	usr, _, err := svc.Register(context.Background(), "maria@example.com", "maria", "senha-forte", "")
	require.NoError(t, err)
	wallets.wallets[usr.ID].Balance = decimal.RequireFromString("42.50")

	gotUser, gotWallet, err := svc.Profile(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.Equal(t, usr.ID, gotUser.ID)
	assert.True(t, gotWallet.Balance.Equal(decimal.RequireFromString("42.50")))
}

func TestProfileUnknownUser(t *testing.T) {
	svc, _, _ := newService()
	_, _, err := svc.Profile(context.Background(), 999)
	var svcErr *apperrors.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, apperrors.CategoryResourceNotFound, svcErr.Category)
}
