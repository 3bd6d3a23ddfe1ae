package horsepay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, authCalls *atomic.Int32, handler http.HandlerFunc) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/token" {
			authCalls.Add(1)
			var req authRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "key", req.ClientKey)
			assert.Equal(t, "secret", req.ClientSecret)
			json.NewEncoder(w).Encode(authResponse{AccessToken: "tok-123", ExpiresIn: 3600})
			return
		}
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		handler(w, r)
	}))
}

func TestCreateDepositOrder(t *testing.T) {
	var authCalls atomic.Int32
	srv := newTestServer(t, &authCalls, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/neworder", r.URL.Path)
		var req depositRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "joao", req.PayerName)
		assert.InDelta(t, 50.0, req.Amount, 0.001)
		assert.Equal(t, "https://api.raspay.com.br/api/webhook/horsepay", req.CallbackURL)
		json.NewEncoder(w).Encode(map[string]any{
			"external_id": 9001,
			"copy_past":   "00020126pix-code",
			"payment":     "pending",
		})
	})
	defer srv.Close()

	client := NewClient("key", "secret", WithBaseURL(srv.URL))
	order, err := client.CreateDepositOrder(context.Background(), "joao",
		decimal.RequireFromString("50.00"), "https://api.raspay.com.br/api/webhook/horsepay")
	require.NoError(t, err)

	assert.EqualValues(t, 9001, order.ExternalID)
	assert.Equal(t, "00020126pix-code", order.CopyPast)
	assert.True(t, order.Amount.Equal(decimal.RequireFromString("50.00")))
}

func TestWithdraw(t *testing.T) {
	var authCalls atomic.Int32
	srv := newTestServer(t, &authCalls, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/withdraw", r.URL.Path)
		var req withdrawRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "11122233344", req.PixKey)
		assert.Equal(t, "cpf", req.PixType)
		json.NewEncoder(w).Encode(WithdrawResult{ExternalID: 777, Status: "processing"})
	})
	defer srv.Close()

	client := NewClient("key", "secret", WithBaseURL(srv.URL))
	result, err := client.Withdraw(context.Background(),
		decimal.RequireFromString("120.00"), "11122233344", "cpf", "")
	require.NoError(t, err)
	assert.EqualValues(t, 777, result.ExternalID)
	assert.Equal(t, "processing", result.Status)
}

func TestTokenIsCached(t *testing.T) {
	var authCalls atomic.Int32
	srv := newTestServer(t, &authCalls, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(WithdrawResult{ExternalID: 1})
	})
	defer srv.Close()

	client := NewClient("key", "secret", WithBaseURL(srv.URL))
	for i := 0; i < 3; i++ {
		_, err := client.Withdraw(context.Background(), decimal.New(10, 0), "k", "random", "")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, authCalls.Load(), "token must be reused across calls")
}

func TestAPIErrorSurfaced(t *testing.T) {
	var authCalls atomic.Int32
	srv := newTestServer(t, &authCalls, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"saldo insuficiente na conta"}`))
	})
	defer srv.Close()

	client := NewClient("key", "secret", WithBaseURL(srv.URL))
	_, err := client.Withdraw(context.Background(), decimal.New(10, 0), "k", "random", "")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "saldo insuficiente")
}

func TestAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient("bad", "creds", WithBaseURL(srv.URL))
	_, err := client.CreateDepositOrder(context.Background(), "x", decimal.New(1, 0), "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}
