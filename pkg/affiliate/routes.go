package affiliate

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	apperrors "github.com/raspay/raspay-server/pkg/app/errors"
	apphttp "github.com/raspay/raspay-server/pkg/app/http"
	"github.com/raspay/raspay-server/pkg/auth"
	"github.com/raspay/raspay-server/pkg/user"
	"github.com/raspay/raspay-server/pkg/userstore"
)

// Handler exposes the affiliate dashboard API (self-service endpoints for
// affiliate and manager accounts).
type Handler struct {
	store Store
	users userstore.Store
}

// NewHandler creates a new affiliate HTTP handler.
func NewHandler(store Store, users userstore.Store) *Handler {
	return &Handler{store: store, users: users}
}

// Routes returns the affiliate route group.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/me", apphttp.HandleError(h.me))
	r.Get("/me/commissions", apphttp.HandleError(h.commissions))
	r.Get("/me/referrals", apphttp.HandleError(h.referrals))
	return r
}

type affiliateResponse struct {
	Code          string          `json:"code"`
	DepositRate   decimal.Decimal `json:"deposit_rate"`
	LossRate      decimal.Decimal `json:"loss_rate"`
	TotalEarnings decimal.Decimal `json:"total_earnings"`
	ReferralCount int             `json:"referral_count"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) error {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "Não autenticado")
	}

	aff, err := h.store.GetAffiliate(r.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, ErrAffiliateNotFound) {
			return apperrors.NotFoundError(err, "Conta de afiliado não encontrada")
		}
		return apperrors.GeneralError(err)
	}

	referred, err := h.users.ListUsersByAffiliate(r.Context(), aff.UserID)
	if err != nil {
		return apperrors.GeneralError(err)
	}

	apphttp.WriteJSON(w, http.StatusOK, affiliateResponse{
		Code:          aff.Code,
		DepositRate:   aff.DepositRate,
		LossRate:      aff.LossRate,
		TotalEarnings: aff.TotalEarnings,
		ReferralCount: len(referred),
		CreatedAt:     aff.CreatedAt,
	})
	return nil
}

type commissionResponse struct {
	Kind      EventKind       `json:"kind"`
	Base      decimal.Decimal `json:"base"`
	Rate      decimal.Decimal `json:"rate"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

func (h *Handler) commissions(w http.ResponseWriter, r *http.Request) error {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "Não autenticado")
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var (
		commissions []*Commission
		err         error
	)
	if principal.Kind == user.KindManager {
		commissions, err = h.store.ListManagerCommissions(r.Context(), principal.UserID, limit)
	} else {
		commissions, err = h.store.ListAffiliateCommissions(r.Context(), principal.UserID, limit)
	}
	if err != nil {
		return apperrors.GeneralError(err)
	}

	resp := make([]commissionResponse, len(commissions))
	for i, c := range commissions {
		resp[i] = commissionResponse{
			Kind:      c.Kind,
			Base:      c.Base,
			Rate:      c.Rate,
			Amount:    c.Amount,
			CreatedAt: c.CreatedAt,
		}
	}
	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}

type referralResponse struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) referrals(w http.ResponseWriter, r *http.Request) error {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "Não autenticado")
	}

	referred, err := h.users.ListUsersByAffiliate(r.Context(), principal.UserID)
	if err != nil {
		return apperrors.GeneralError(err)
	}

	resp := make([]referralResponse, len(referred))
	for i, u := range referred {
		resp[i] = referralResponse{Username: u.Username, CreatedAt: u.CreatedAt}
	}
	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}
