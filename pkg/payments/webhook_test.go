package payments

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/raspay/raspay-server/pkg/wallet"
)

const webhookSecret = "test-webhook-secret"

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, h *WebhookHandler, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/horsepay", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Horsepay-Signature", signature)
	}
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture("0.00")
	h := NewWebhookHandler(f.svc, webhookSecret, zap.NewNop())

	body := []byte(`{"external_id":4000,"type":"deposit","status":"paid"}`)

	rec := postWebhook(t, h, body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "missing signature")

	rec = postWebhook(t, h, body, "deadbeef")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "wrong signature")

	// A signature computed over a different body must not verify.
	rec = postWebhook(t, h, body, sign([]byte(`{"external_id":1}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Empty(t, f.wallets.txs)
}

func TestWebhookConfirmsDeposit(t *testing.T) {
	f := newFixture("0.00")
	h := NewWebhookHandler(f.svc, webhookSecret, zap.NewNop())
	pendingDeposit(f, 1, "50.00", "4000")

	body := []byte(`{"external_id":4000,"type":"deposit","status":"paid","end_to_end_id":"E2E1"}`)
	rec := postWebhook(t, h, body, sign(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, f.wallets.balance.Equal(decimal.RequireFromString("50.00")))
	assert.Equal(t, wallet.StatusSuccess, f.wallets.txs[0].Status)
}

func TestWebhookFailsUnpaidDeposit(t *testing.T) {
	f := newFixture("0.00")
	h := NewWebhookHandler(f.svc, webhookSecret, zap.NewNop())
	pendingDeposit(f, 1, "50.00", "4000")

	body := []byte(`{"external_id":4000,"type":"order","status":"expired"}`)
	rec := postWebhook(t, h, body, sign(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, wallet.StatusFailed, f.wallets.txs[0].Status)
	assert.True(t, f.wallets.balance.IsZero())
}

func TestWebhookSettlesWithdrawal(t *testing.T) {
	f := newFixture("60.00")
	h := NewWebhookHandler(f.svc, webhookSecret, zap.NewNop())
	pendingWithdraw(f, 1, "40.00", "5000")

	body := []byte(`{"external_id":5000,"type":"withdraw","status":"completed","end_to_end_id":"E2E2"}`)
	rec := postWebhook(t, h, body, sign(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, wallet.StatusSuccess, f.wallets.txs[0].Status)
}

func TestWebhookUnknownType(t *testing.T) {
	f := newFixture("0.00")
	h := NewWebhookHandler(f.svc, webhookSecret, zap.NewNop())

	body := []byte(`{"external_id":1,"type":"chargeback","status":"paid"}`)
	rec := postWebhook(t, h, body, sign(body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookReplayIsIdempotent(t *testing.T) {
	f := newFixture("0.00")
	h := NewWebhookHandler(f.svc, webhookSecret, zap.NewNop())
	pendingDeposit(f, 1, "50.00", "4000")

	body := []byte(`{"external_id":4000,"type":"deposit","status":"paid"}`)
	require.Equal(t, http.StatusOK, postWebhook(t, h, body, sign(body)).Code)
	require.Equal(t, http.StatusOK, postWebhook(t, h, body, sign(body)).Code)

	assert.True(t, f.wallets.balance.Equal(decimal.RequireFromString("50.00")))
	assert.Len(t, f.recorder.deposits, 1)
}

func TestVerifySignatureRefusesEmptySecret(t *testing.T) {
	h := NewWebhookHandler(nil, "", zap.NewNop())
	body := []byte(`{}`)
	assert.False(t, h.verifySignature(body, sign(body)))
}
