package admin

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	apperrors "github.com/raspay/raspay-server/pkg/app/errors"
	apphttp "github.com/raspay/raspay-server/pkg/app/http"
)

// Handler exposes the back-office API. Mounted behind the admin middleware.
type Handler struct {
	svc *Service
}

// NewHandler creates a new admin HTTP handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes returns the admin route group.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/stats", apphttp.HandleError(h.stats))
	r.Get("/users", apphttp.HandleError(h.users))
	r.Delete("/users/{id}", apphttp.HandleError(h.deleteUser))
	r.Get("/withdrawals", apphttp.HandleError(h.withdrawals))
	r.Post("/withdrawals/{id}/approve", apphttp.HandleError(h.approveWithdrawal))
	r.Post("/withdrawals/{id}/cancel", apphttp.HandleError(h.cancelWithdrawal))
	r.Get("/transactions/export", apphttp.HandleError(h.exportTransactions))
	r.Get("/vaults", apphttp.HandleError(h.vaults))
	r.Get("/vaults/prizes", apphttp.HandleError(h.vaultPrizes))
	r.Post("/vaults/{game}/adjust", apphttp.HandleError(h.adjustVault))
	return r
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) error {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, stats)
	return nil
}

func (h *Handler) users(w http.ResponseWriter, r *http.Request) error {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	users, err := h.svc.ListUsers(r.Context(), limit, offset)
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, users)
	return nil
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) error {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return apperrors.BadRequestError(err, "ID inválido")
	}
	if err := h.svc.DeleteUser(r.Context(), id); err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	return nil
}

func (h *Handler) withdrawals(w http.ResponseWriter, r *http.Request) error {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	txs, err := h.svc.PendingWithdrawals(r.Context(), limit)
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, txs)
	return nil
}

func (h *Handler) approveWithdrawal(w http.ResponseWriter, r *http.Request) error {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return apperrors.BadRequestError(err, "ID inválido")
	}
	if err := h.svc.ApproveWithdrawal(r.Context(), id); err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "approved"})
	return nil
}

func (h *Handler) cancelWithdrawal(w http.ResponseWriter, r *http.Request) error {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return apperrors.BadRequestError(err, "ID inválido")
	}
	if err := h.svc.CancelWithdrawal(r.Context(), id); err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
	return nil
}

// exportTransactions streams the ledger between ?from and ?to (RFC 3339
// dates, default last 30 days) as CSV.
func (h *Handler) exportTransactions(w http.ResponseWriter, r *http.Request) error {
	to := time.Now()
	from := to.AddDate(0, 0, -30)
	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return apperrors.BadRequestError(err, "Data inicial inválida")
		}
		from = parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return apperrors.BadRequestError(err, "Data final inválida")
		}
		to = parsed
	}

	txs, err := h.svc.TransactionsBetween(r.Context(), from, to)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "user_id", "type", "amount", "status", "reference", "game", "external_id", "created_at"})
	for _, tx := range txs {
		externalID := ""
		if tx.ExternalID != nil {
			externalID = *tx.ExternalID
		}
		_ = cw.Write([]string{
			strconv.FormatInt(tx.ID, 10),
			strconv.FormatInt(tx.UserID, 10),
			string(tx.Type),
			tx.Amount.StringFixed(2),
			string(tx.Status),
			tx.Reference,
			tx.Game,
			externalID,
			tx.CreatedAt.Format(time.RFC3339),
		})
	}
	cw.Flush()
	return cw.Error()
}

func (h *Handler) vaults(w http.ResponseWriter, r *http.Request) error {
	vaults, err := h.svc.Vaults(r.Context())
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, vaults)
	return nil
}

func (h *Handler) vaultPrizes(w http.ResponseWriter, r *http.Request) error {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	prizes, err := h.svc.VaultPrizes(r.Context(), r.URL.Query().Get("game"), limit)
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, prizes)
	return nil
}

type adjustVaultRequest struct {
	Delta decimal.Decimal `json:"delta"`
}

func (h *Handler) adjustVault(w http.ResponseWriter, r *http.Request) error {
	var req adjustVaultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequestError(err, "Requisição inválida")
	}
	if req.Delta.IsZero() {
		return apperrors.BadRequestError(nil, "Ajuste não pode ser zero")
	}

	v, err := h.svc.AdjustVault(r.Context(), chi.URLParam(r, "game"), req.Delta)
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, v)
	return nil
}
