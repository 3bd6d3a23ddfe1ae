package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raspay/raspay-server/pkg/user"
)

func testIssuer(ttl time.Duration) *TokenIssuer {
	return NewTokenIssuer([]byte("test-secret"), "raspay", ttl)
}

func TestIssueVerifyRoundtrip(t *testing.T) {
	issuer := testIssuer(time.Hour)

	token, err := issuer.Issue(42, user.KindAffiliate)
	require.NoError(t, err)

	p, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.EqualValues(t, 42, p.UserID)
	assert.Equal(t, user.KindAffiliate, p.Kind)
	assert.False(t, p.IsAdmin())
}

func TestVerifyRejectsExpired(t *testing.T) {
	issuer := testIssuer(-time.Minute)

	token, err := issuer.Issue(1, user.KindRegular)
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := testIssuer(time.Hour).Issue(1, user.KindRegular)
	require.NoError(t, err)

	other := NewTokenIssuer([]byte("other-secret"), "raspay", time.Hour)
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	foreign := NewTokenIssuer([]byte("test-secret"), "someone-else", time.Hour)
	token, err := foreign.Issue(1, user.KindRegular)
	require.NoError(t, err)

	_, err = testIssuer(time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2hunter2", hash)

	assert.True(t, CheckPassword(hash, "hunter2hunter2"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func okHandler(t *testing.T, wantKind user.Kind) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, wantKind, p.Kind)
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireUser(t *testing.T) {
	issuer := testIssuer(time.Hour)
	mw := NewMiddleware(issuer, "raspay_token", "")
	handler := mw.RequireUser(okHandler(t, user.KindRegular))

	token, err := issuer.Issue(5, user.KindRegular)
	require.NoError(t, err)

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "raspay_token", Value: token})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireAdmin(t *testing.T) {
	issuer := testIssuer(time.Hour)
	mw := NewMiddleware(issuer, "raspay_token", "static-admin-token")
	handler := mw.RequireAdmin(okHandler(t, user.KindAdmin))

	t.Run("static token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Admin-Token", "static-admin-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong static token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Admin-Token", "guess")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin session token", func(t *testing.T) {
		token, err := issuer.Issue(1, user.KindAdmin)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("regular session token", func(t *testing.T) {
		token, err := issuer.Issue(2, user.KindRegular)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestRequireKind(t *testing.T) {
	handler := RequireKind(user.KindAffiliate, user.KindManager)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	t.Run("allowed kind", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx := WithPrincipal(req.Context(), &Principal{UserID: 1, Kind: user.KindManager})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req.WithContext(ctx))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("disallowed kind", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx := WithPrincipal(req.Context(), &Principal{UserID: 1, Kind: user.KindRegular})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req.WithContext(ctx))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("no principal", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
