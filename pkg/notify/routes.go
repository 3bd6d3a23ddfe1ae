package notify

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/raspay/raspay-server/pkg/app/errors"
	apphttp "github.com/raspay/raspay-server/pkg/app/http"
	"github.com/raspay/raspay-server/pkg/auth"
)

// Handler exposes the notification surface: the SSE stream and web-push
// registration. Mounted behind the admin middleware.
type Handler struct {
	hub      *Hub
	store    SubscriptionStore
	validate *validator.Validate
}

// NewHandler creates a new notifications HTTP handler.
func NewHandler(hub *Hub, store SubscriptionStore) *Handler {
	return &Handler{hub: hub, store: store, validate: validator.New()}
}

// Routes returns the notifications route group.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/stream", apphttp.HandleError(h.hub.StreamHandler))
	r.Post("/push/subscribe", apphttp.HandleError(h.subscribe))
	r.Delete("/push/subscribe", apphttp.HandleError(h.unsubscribe))
	return r
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
	Keys     struct {
		P256dh string `json:"p256dh" validate:"required"`
		Auth   string `json:"auth" validate:"required"`
	} `json:"keys"`
}

func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) error {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "Não autenticado")
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequestError(err, "Requisição inválida")
	}
	if err := h.validate.Struct(&req); err != nil {
		return apperrors.BadRequestError(err, "Inscrição push inválida")
	}

	err := h.store.Save(r.Context(), &Subscription{
		UserID:   principal.UserID,
		Endpoint: req.Endpoint,
		P256dh:   req.Keys.P256dh,
		Auth:     req.Keys.Auth,
	})
	if err != nil {
		return apperrors.GeneralError(err)
	}

	apphttp.WriteJSON(w, http.StatusCreated, map[string]string{"status": "subscribed"})
	return nil
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required"`
}

func (h *Handler) unsubscribe(w http.ResponseWriter, r *http.Request) error {
	var req unsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequestError(err, "Requisição inválida")
	}
	if err := h.validate.Struct(&req); err != nil {
		return apperrors.BadRequestError(err, "Inscrição push inválida")
	}

	if err := h.store.Delete(r.Context(), req.Endpoint); err != nil {
		return apperrors.GeneralError(err)
	}
	apphttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "unsubscribed"})
	return nil
}
