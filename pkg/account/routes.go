package account

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	apperrors "github.com/raspay/raspay-server/pkg/app/errors"
	apphttp "github.com/raspay/raspay-server/pkg/app/http"
	"github.com/raspay/raspay-server/pkg/auth"
	"github.com/raspay/raspay-server/pkg/user"
)

// Handler exposes the auth and profile API.
type Handler struct {
	svc          *Service
	validate     *validator.Validate
	cookieName   string
	cookieSecure bool
	tokenTTL     time.Duration
}

// NewHandler creates a new account HTTP handler.
func NewHandler(svc *Service, cookieName string, cookieSecure bool, tokenTTL time.Duration) *Handler {
	return &Handler{
		svc:          svc,
		validate:     validator.New(),
		cookieName:   cookieName,
		cookieSecure: cookieSecure,
		tokenTTL:     tokenTTL,
	}
}

// PublicRoutes returns the unauthenticated route group (register/login).
func (h *Handler) PublicRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", apphttp.HandleError(h.register))
	r.Post("/login", apphttp.HandleError(h.login))
	r.Post("/logout", apphttp.HandleError(h.logout))
	return r
}

// Routes returns the authenticated route group (profile).
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", apphttp.HandleError(h.me))
	return r
}

type registerRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Username     string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Password     string `json:"password" validate:"required,min=8,max=72"`
	ReferralCode string `json:"referral_code"`
}

type loginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID       int64     `json:"id"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
	Kind     user.Kind `json:"kind"`
}

type sessionResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

func toUserResponse(usr *user.User) userResponse {
	return userResponse{
		ID:       usr.ID,
		Email:    usr.Email,
		Username: usr.Username,
		Kind:     usr.Kind,
	}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) error {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequestError(err, "Requisição inválida")
	}
	if err := h.validate.Struct(&req); err != nil {
		return apperrors.BadRequestError(err, "Dados de cadastro inválidos")
	}

	usr, token, err := h.svc.Register(r.Context(), req.Email, req.Username, req.Password, req.ReferralCode)
	if err != nil {
		return err
	}

	h.setSessionCookie(w, token)
	apphttp.WriteJSON(w, http.StatusCreated, sessionResponse{User: toUserResponse(usr), Token: token})
	return nil
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) error {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequestError(err, "Requisição inválida")
	}
	if err := h.validate.Struct(&req); err != nil {
		return apperrors.BadRequestError(err, "Credenciais inválidas")
	}

	usr, token, err := h.svc.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		return err
	}

	h.setSessionCookie(w, token)
	apphttp.WriteJSON(w, http.StatusOK, sessionResponse{User: toUserResponse(usr), Token: token})
	return nil
}

func (h *Handler) logout(w http.ResponseWriter, _ *http.Request) error {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	apphttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	return nil
}

type profileResponse struct {
	userResponse
	Balance decimal.Decimal `json:"balance"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) error {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "Não autenticado")
	}

	usr, wlt, err := h.svc.Profile(r.Context(), principal.UserID)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, profileResponse{
		userResponse: toUserResponse(usr),
		Balance:      wlt.Balance,
	})
	return nil
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.tokenTTL),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
