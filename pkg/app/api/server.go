// Package api assembles the RasPay HTTP server: configuration, database,
// stores, domain services, background workers and the chi route tree.
package api

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/raspay/raspay-server/pkg/account"
	"github.com/raspay/raspay-server/pkg/admin"
	"github.com/raspay/raspay-server/pkg/affiliate"
	apphttp "github.com/raspay/raspay-server/pkg/app/http"
	"github.com/raspay/raspay-server/pkg/auth"
	"github.com/raspay/raspay-server/pkg/config"
	"github.com/raspay/raspay-server/pkg/game"
	"github.com/raspay/raspay-server/pkg/horsepay"
	"github.com/raspay/raspay-server/pkg/notify"
	"github.com/raspay/raspay-server/pkg/payments"
	"github.com/raspay/raspay-server/pkg/pgutil"
	"github.com/raspay/raspay-server/pkg/reconciler"
	"github.com/raspay/raspay-server/pkg/user"
	"github.com/raspay/raspay-server/pkg/userstore"
	"github.com/raspay/raspay-server/pkg/vault"
	"github.com/raspay/raspay-server/pkg/wallet"
)

// Server is the API application, implementing app.Runner.
type Server struct {
	cfg *config.Config
}

// NewServer creates the API application from loaded configuration.
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

// Run wires every component and serves until SIGINT/SIGTERM.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(s.cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := pgutil.ConnectDB(&s.cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = db.Close() }()

	jwtSecret, err := s.cfg.Auth.JWTSecret()
	if err != nil {
		return err
	}
	adminToken := s.cfg.Auth.AdminToken()
	hpKey, hpSecret, err := s.cfg.HorsePay.Credentials()
	if err != nil {
		return err
	}

	// Stores.
	users := userstore.NewStore(db)
	wallets := wallet.NewStore(db)
	vaults := vault.NewStore(db)
	rounds := game.NewRoundStore(db)
	affiliates := affiliate.NewStore(db)
	pushSubs := notify.NewSubscriptionStore(db)

	// Notifications.
	hub := notify.NewHub(db, logger.Named("notify"))
	if err := hub.Start(ctx); err != nil {
		return fmt.Errorf("failed to start notification hub: %w", err)
	}
	defer hub.Stop()

	var pushSender *notify.PushSender
	if s.cfg.Push.Enabled {
		vapidPublic, vapidPrivate, err := s.cfg.Push.VAPIDKeys()
		if err != nil {
			return err
		}
		pushSender = notify.NewPushSender(pushSubs, s.cfg.Push.SubscriberContact,
			vapidPublic, vapidPrivate, logger.Named("push"))
	}
	notifier := notify.NewNotifier(hub, pushSender, logger.Named("notify"))

	// Domain services.
	issuer := auth.NewTokenIssuer(jwtSecret, s.cfg.Auth.Issuer, s.cfg.Auth.TokenTTL)
	authMW := auth.NewMiddleware(issuer, s.cfg.Auth.CookieName, adminToken)

	gateway := horsepay.NewClient(hpKey, hpSecret,
		horsepay.WithBaseURL(s.cfg.HorsePay.BaseURL),
		horsepay.WithHTTPClient(&http.Client{Timeout: s.cfg.HorsePay.RequestTimeout}))

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	gameSvc := game.NewService(wallets, vaults, rounds, affiliates, notifier, rng, logger.Named("game"))
	paymentsSvc := payments.NewService(wallets, users, gateway, affiliates, notifier,
		s.cfg.HorsePay.CallbackURL, logger.Named("payments"))
	accountSvc := account.NewService(users, wallets, affiliates, issuer,
		s.cfg.Auth.BcryptCost, logger.Named("account"))
	adminSvc := admin.NewService(users, wallets, vaults, rounds, affiliates, pushSubs,
		paymentsSvc, logger.Named("admin"))

	// Background workers.
	commissionWorker := affiliate.NewWorker(affiliates, users, wallets,
		s.cfg.Commission.Interval, s.cfg.Commission.BatchSize, logger.Named("commission"))
	commissionWorker.Start(ctx)
	defer commissionWorker.Stop()

	rec := reconciler.New(wallets,
		s.cfg.Reconciliation.InitialTimeout, s.cfg.Reconciliation.Interval,
		logger.Named("reconciler"))
	rec.Start(ctx)
	defer rec.Stop()

	// Handlers.
	accountHandler := account.NewHandler(accountSvc, s.cfg.Auth.CookieName,
		s.cfg.Auth.CookieSecure, s.cfg.Auth.TokenTTL)
	gameHandler := game.NewHandler(gameSvc)
	paymentsHandler := payments.NewHandler(paymentsSvc)
	webhookHandler := payments.NewWebhookHandler(paymentsSvc,
		s.cfg.HorsePay.WebhookSecret(), logger.Named("webhook"))
	affiliateHandler := affiliate.NewHandler(affiliates, users)
	adminHandler := admin.NewHandler(adminSvc)
	notifyHandler := notify.NewHandler(hub, pushSubs)

	router := s.buildRouter(authMW, accountHandler, gameHandler, paymentsHandler,
		webhookHandler, affiliateHandler, adminHandler, notifyHandler)

	logger.Info("starting api server",
		zap.String("host", s.cfg.Server.Host),
		zap.Int("port", s.cfg.Server.Port))
	return apphttp.ServeAndWait(ctx, router, logger, &s.cfg.Server)
}

func (s *Server) buildRouter(
	authMW *auth.Middleware,
	accountHandler *account.Handler,
	gameHandler *game.Handler,
	paymentsHandler *payments.Handler,
	webhookHandler *payments.WebhookHandler,
	affiliateHandler *affiliate.Handler,
	adminHandler *admin.Handler,
	notifyHandler *notify.Handler,
) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		apphttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

			r.Mount("/auth", accountHandler.PublicRoutes())
			r.Mount("/webhook", webhookHandler.Routes())

			r.Group(func(r chi.Router) {
				r.Use(authMW.RequireUser)
				r.Mount("/me", accountHandler.Routes())
				r.Mount("/games", gameHandler.Routes())
				r.Mount("/payments", paymentsHandler.Routes())
			})

			r.Group(func(r chi.Router) {
				r.Use(authMW.RequireUser)
				r.Use(auth.RequireKind(user.KindAffiliate, user.KindManager))
				r.Mount("/affiliate", affiliateHandler.Routes())
			})

			r.Group(func(r chi.Router) {
				r.Use(authMW.RequireAdmin)
				r.Mount("/admin", adminHandler.Routes())
			})
		})

		// No request timeout here: the SSE stream stays open indefinitely.
		r.Group(func(r chi.Router) {
			r.Use(authMW.RequireAdmin)
			r.Mount("/admin/notifications", notifyHandler.Routes())
		})
	})

	return r
}
