package game

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	apperrors "github.com/raspay/raspay-server/pkg/app/errors"
	apphttp "github.com/raspay/raspay-server/pkg/app/http"
	"github.com/raspay/raspay-server/pkg/auth"
)

// Handler exposes the scratch-card API. All routes require an authenticated
// user; the server wiring applies the auth middleware before mounting.
type Handler struct {
	svc *Service
}

// NewHandler creates a new game HTTP handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes returns the game route group.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", apphttp.HandleError(h.list))
	r.Get("/rounds", apphttp.HandleError(h.history))
	r.Get("/{name}", apphttp.HandleError(h.get))
	r.Get("/{name}/vault", apphttp.HandleError(h.vault))
	r.Post("/{name}/play", apphttp.HandleError(h.play))
	return r
}

type gameResponse struct {
	Name     string          `json:"name"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	MaxPrize decimal.Decimal `json:"max_prize"`
}

func toGameResponse(g *Game) gameResponse {
	return gameResponse{
		Name:     g.Name,
		Title:    g.Title,
		Price:    g.Price,
		MaxPrize: g.MaxPrize(),
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) error {
	games := make([]gameResponse, 0, len(Names()))
	for _, name := range Names() {
		g, _ := Get(name)
		games = append(games, toGameResponse(g))
	}
	apphttp.WriteJSON(w, http.StatusOK, games)
	return nil
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) error {
	g, ok := Get(chi.URLParam(r, "name"))
	if !ok {
		return apperrors.NotFoundError(nil, "Jogo não encontrado")
	}
	apphttp.WriteJSON(w, http.StatusOK, toGameResponse(g))
	return nil
}

type vaultResponse struct {
	GameName         string          `json:"game_name"`
	Balance          decimal.Decimal `json:"balance"`
	TotalDistributed decimal.Decimal `json:"total_distributed"`
	GameCount        int64           `json:"game_count"`
	LastDistribution *time.Time      `json:"last_distribution,omitempty"`
}

func (h *Handler) vault(w http.ResponseWriter, r *http.Request) error {
	v, err := h.svc.VaultBalance(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		return err
	}
	apphttp.WriteJSON(w, http.StatusOK, vaultResponse{
		GameName:         v.GameName,
		Balance:          v.Balance,
		TotalDistributed: v.TotalDistributed,
		GameCount:        v.GameCount,
		LastDistribution: v.LastDistribution,
	})
	return nil
}

type playRequest struct {
	RoundID string `json:"round_id"`
}

type playResponse struct {
	RoundID    string           `json:"round_id"`
	Game       string           `json:"game"`
	Won        bool             `json:"won"`
	Prize      decimal.Decimal  `json:"prize"`
	VaultPrize *decimal.Decimal `json:"vault_prize,omitempty"`
	Balance    decimal.Decimal  `json:"balance"`
	Message    string           `json:"message,omitempty"`
}

func playMessage(round *Round) string {
	switch {
	case round.VaultPrize != nil:
		return "Parabéns! Você ganhou o prêmio do cofre!"
	case round.Won:
		return "Parabéns! Você ganhou!"
	default:
		return "Não foi dessa vez. Tente novamente!"
	}
}

func (h *Handler) play(w http.ResponseWriter, r *http.Request) error {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "Não autenticado")
	}

	var req playRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return apperrors.BadRequestError(err, "Requisição inválida")
		}
	}

	round, err := h.svc.Play(r.Context(), principal, chi.URLParam(r, "name"), req.RoundID)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, playResponse{
		RoundID:    round.RoundID,
		Game:       round.Game,
		Won:        round.Won,
		Prize:      round.Prize,
		VaultPrize: round.VaultPrize,
		Balance:    round.Balance,
		Message:    playMessage(round),
	})
	return nil
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) error {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "Não autenticado")
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rounds, err := h.svc.History(r.Context(), principal.UserID, limit)
	if err != nil {
		return err
	}

	resp := make([]playResponse, len(rounds))
	for i, round := range rounds {
		resp[i] = playResponse{
			RoundID:    round.RoundID,
			Game:       round.Game,
			Won:        round.Won,
			Prize:      round.Prize,
			VaultPrize: round.VaultPrize,
			Balance:    round.Balance,
		}
	}
	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}
