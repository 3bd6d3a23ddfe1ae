package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/raspay/raspay-server/internal/metrics"
	apperrors "github.com/raspay/raspay-server/pkg/app/errors"
	apphttp "github.com/raspay/raspay-server/pkg/app/http"
)

const maxWebhookBody = 1 << 16

// WebhookHandler consumes HorsePay payment-status callbacks. Deliveries are
// authenticated with an HMAC-SHA256 signature over the raw body and are
// idempotent per external_id.
type WebhookHandler struct {
	svc    *Service
	secret []byte
	logger *zap.Logger
}

// NewWebhookHandler creates the webhook consumer.
func NewWebhookHandler(svc *Service, secret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{svc: svc, secret: []byte(secret), logger: logger}
}

// Routes returns the webhook route group.
func (h *WebhookHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/horsepay", apphttp.HandleError(h.handle))
	return r
}

type webhookPayload struct {
	ExternalID int64  `json:"external_id"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	EndToEndID string `json:"end_to_end_id"`
}

func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		return apperrors.BadRequestError(err, "Corpo da requisição inválido")
	}

	if !h.verifySignature(body, r.Header.Get("X-Horsepay-Signature")) {
		metrics.WebhookResults.WithLabelValues("unknown", "bad_signature").Inc()
		return apperrors.UnAuthorizedError(nil, "Assinatura inválida")
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return apperrors.BadRequestError(err, "Payload inválido")
	}

	externalID := strconv.FormatInt(payload.ExternalID, 10)
	h.logger.Info("horsepay webhook",
		zap.String("external_id", externalID),
		zap.String("type", payload.Type),
		zap.String("status", payload.Status))

	event := payload.Type + ":" + payload.Status
	if err := h.dispatch(r, &payload, externalID); err != nil {
		metrics.WebhookResults.WithLabelValues(event, "error").Inc()
		return err
	}
	metrics.WebhookResults.WithLabelValues(event, "ok").Inc()

	apphttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	return nil
}

func (h *WebhookHandler) dispatch(r *http.Request, payload *webhookPayload, externalID string) error {
	ctx := r.Context()
	paid := payload.Status == "paid" || payload.Status == "completed"

	switch payload.Type {
	case "deposit", "order":
		if paid {
			return h.svc.ConfirmDeposit(ctx, externalID, payload.EndToEndID)
		}
		return h.svc.FailDeposit(ctx, externalID)
	case "withdraw", "transfer":
		return h.svc.SettleWithdrawal(ctx, externalID, payload.EndToEndID, paid)
	default:
		return apperrors.BadRequestError(nil, "Tipo de evento desconhecido")
	}
}

func (h *WebhookHandler) verifySignature(body []byte, signature string) bool {
	if len(h.secret) == 0 || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
