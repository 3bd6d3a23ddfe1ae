package payments

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	apperrors "github.com/raspay/raspay-server/pkg/app/errors"
	apphttp "github.com/raspay/raspay-server/pkg/app/http"
	"github.com/raspay/raspay-server/pkg/auth"
	"github.com/raspay/raspay-server/pkg/wallet"
)

// Handler exposes the deposit/withdraw API.
type Handler struct {
	svc      *Service
	validate *validator.Validate
}

// NewHandler creates a new payments HTTP handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

// Routes returns the payments route group.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/deposit", apphttp.HandleError(h.deposit))
	r.Post("/withdraw", apphttp.HandleError(h.withdraw))
	r.Get("/transactions", apphttp.HandleError(h.transactions))
	return r
}

type depositRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

type depositResponse struct {
	TransactionID int64           `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        wallet.TxStatus `json:"status"`
	PixCode       string          `json:"pix_code"`
}

func (h *Handler) deposit(w http.ResponseWriter, r *http.Request) error {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "Não autenticado")
	}

	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequestError(err, "Requisição inválida")
	}
	if err := h.validate.Struct(&req); err != nil {
		return apperrors.BadRequestError(err, "Valor do depósito é obrigatório")
	}

	tx, pixCode, err := h.svc.Deposit(r.Context(), principal, req.Amount)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusCreated, depositResponse{
		TransactionID: tx.ID,
		Amount:        tx.Amount,
		Status:        tx.Status,
		PixCode:       pixCode,
	})
	return nil
}

type withdrawRequest struct {
	Amount  decimal.Decimal `json:"amount" validate:"required"`
	PixKey  string          `json:"pix_key" validate:"required"`
	PixType string          `json:"pix_type" validate:"required,oneof=cpf cnpj email phone random"`
}

type withdrawResponse struct {
	TransactionID int64           `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        wallet.TxStatus `json:"status"`
}

func (h *Handler) withdraw(w http.ResponseWriter, r *http.Request) error {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "Não autenticado")
	}

	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequestError(err, "Requisição inválida")
	}
	if err := h.validate.Struct(&req); err != nil {
		return apperrors.BadRequestError(err, "Dados do saque inválidos")
	}

	tx, err := h.svc.Withdraw(r.Context(), principal, req.Amount, req.PixKey, req.PixType)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusCreated, withdrawResponse{
		TransactionID: tx.ID,
		Amount:        tx.Amount.Abs(),
		Status:        tx.Status,
	})
	return nil
}

type transactionResponse struct {
	ID          int64           `json:"id"`
	Type        wallet.TxType   `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Status      wallet.TxStatus `json:"status"`
	Description string          `json:"description"`
	Game        string          `json:"game,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (h *Handler) transactions(w http.ResponseWriter, r *http.Request) error {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "Não autenticado")
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	txs, err := h.svc.History(r.Context(), principal.UserID, limit, offset)
	if err != nil {
		return err
	}

	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = transactionResponse{
			ID:          tx.ID,
			Type:        tx.Type,
			Amount:      tx.Amount,
			Status:      tx.Status,
			Description: tx.Description,
			Game:        tx.Game,
			CreatedAt:   tx.CreatedAt,
		}
	}
	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}
