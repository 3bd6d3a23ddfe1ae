package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/raspay/raspay-server/internal/metrics"
	apperrors "github.com/raspay/raspay-server/pkg/app/errors"
	"github.com/raspay/raspay-server/pkg/auth"
	"github.com/raspay/raspay-server/pkg/vault"
	"github.com/raspay/raspay-server/pkg/wallet"
)

// CommissionRecorder appends a revenue-share event inside the settlement
// transaction. The event is drained asynchronously by the commission worker.
type CommissionRecorder interface {
	RecordGameEvent(ctx context.Context, idb bun.IDB, userID int64, game string, wager, prize decimal.Decimal) error
}

// Notifier pushes a settlement event to the user after the transaction
// commits. Implementations must not block settlement.
type Notifier interface {
	NotifyVaultPrize(ctx context.Context, userID int64, game string, amount decimal.Decimal)
}

// Service settles scratch-card plays. Every play runs in a single database
// transaction: the wallet row is locked, the wager debited, the server-drawn
// prize credited, the cofre updated and a round row written.
type Service struct {
	wallets     wallet.Store
	vaults      vault.Store
	rounds      RoundStore
	commissions CommissionRecorder
	notifier    Notifier
	logger      *zap.Logger

	// rngMu guards rng; math/rand sources are not safe for concurrent use.
	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewService creates a settlement service. commissions and notifier may be
// nil, disabling the respective side effects.
func NewService(
	wallets wallet.Store,
	vaults vault.Store,
	rounds RoundStore,
	commissions CommissionRecorder,
	notifier Notifier,
	rng *rand.Rand,
	logger *zap.Logger,
) *Service {
	return &Service{
		wallets:     wallets,
		vaults:      vaults,
		rounds:      rounds,
		commissions: commissions,
		notifier:    notifier,
		rng:         rng,
		logger:      logger,
	}
}

// Play settles one scratch card for the authenticated user.
//
// When roundID is non-empty and a round with the same (user, roundID) was
// already settled, the stored result is returned unchanged instead of
// charging the user again.
func (s *Service) Play(ctx context.Context, principal *auth.Principal, gameName, roundID string) (*Round, error) {
	g, ok := Get(gameName)
	if !ok {
		return nil, apperrors.NotFoundError(fmt.Errorf("unknown game %q", gameName), "Jogo não encontrado")
	}

	if roundID == "" {
		roundID = uuid.NewString()
	} else {
		prev, err := s.rounds.GetRound(ctx, principal.UserID, roundID)
		if err == nil {
			return prev, nil
		}
		if !errors.Is(err, ErrRoundNotFound) {
			return nil, apperrors.GeneralError(err)
		}
	}

	round := &Round{
		UserID:  principal.UserID,
		Game:    g.Name,
		RoundID: roundID,
	}

	err := s.wallets.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		w, err := s.wallets.LockWallet(ctx, tx, principal.UserID)
		if err != nil {
			if errors.Is(err, wallet.ErrWalletNotFound) {
				return apperrors.NotFoundError(err, "Carteira não encontrada")
			}
			return err
		}
		if w.Balance.LessThan(g.Price) {
			return apperrors.UnprocessableError(
				fmt.Errorf("balance %s below price %s", w.Balance, g.Price), "Saldo insuficiente")
		}

		outcome := s.draw(func(rng *rand.Rand) Outcome { return g.Draw(rng) })
		round.Won = outcome.Won
		round.Prize = outcome.Prize

		entries := []*wallet.Transaction{{
			UserID:      principal.UserID,
			Type:        wallet.TxGamePlay,
			Amount:      g.Price.Neg(),
			Status:      wallet.StatusSuccess,
			Reference:   "play:" + roundID,
			Description: g.Title,
			Game:        g.Name,
		}}
		if outcome.Won {
			entries = append(entries, &wallet.Transaction{
				UserID:      principal.UserID,
				Type:        wallet.TxGamePrize,
				Amount:      outcome.Prize,
				Status:      wallet.StatusSuccess,
				Reference:   "prize:" + roundID,
				Description: g.Title,
				Game:        g.Name,
			})
		}

		houseNet := g.Price.Sub(outcome.Prize)
		v, err := s.vaults.Contribute(ctx, tx, g.Name, houseNet)
		if err != nil {
			return err
		}

		if principal.Kind.EligibleForVaultPrize() && s.rollVault(&g.Vault) {
			if amount, ok := s.pickVault(&g.Vault, v.Balance); ok {
				if _, err := s.vaults.Distribute(ctx, tx, g.Name, principal.UserID, amount, v.GameCount); err != nil {
					return err
				}
				entries = append(entries, &wallet.Transaction{
					UserID:      principal.UserID,
					Type:        wallet.TxVaultPrize,
					Amount:      amount,
					Status:      wallet.StatusSuccess,
					Reference:   "vault:" + roundID,
					Description: "Prêmio do cofre " + g.Title,
					Game:        g.Name,
				})
				round.VaultPrize = &amount
				v.Balance = v.Balance.Sub(amount)
			}
		}

		// One wallet update for the net result of the play; the individual
		// ledger rows carry the breakdown.
		net := decimal.Zero
		for _, entry := range entries {
			net = net.Add(entry.Amount)
			if err := s.wallets.InsertTransaction(ctx, tx, entry); err != nil {
				return err
			}
		}
		balance, err := s.wallets.ApplyDelta(ctx, tx, principal.UserID, net)
		if err != nil {
			return err
		}

		if s.commissions != nil {
			if err := s.commissions.RecordGameEvent(ctx, tx, principal.UserID, g.Name, g.Price, outcome.Prize); err != nil {
				return err
			}
		}

		round.Balance = balance
		if err := s.rounds.InsertRound(ctx, tx, round); err != nil {
			return err
		}

		s.observe(g.Name, round, v.Balance)
		return nil
	})
	if err != nil {
		// A concurrent request with the same round id won the insert race;
		// this settlement rolled back, so serve the stored result.
		if errors.Is(err, ErrRoundExists) {
			prev, prevErr := s.rounds.GetRound(ctx, principal.UserID, roundID)
			if prevErr != nil {
				return nil, apperrors.GeneralError(prevErr)
			}
			return prev, nil
		}
		var svcErr *apperrors.ServiceError
		if errors.As(err, &svcErr) {
			return nil, err
		}
		s.logger.Error("settlement failed",
			zap.String("game", gameName),
			zap.Int64("user_id", principal.UserID),
			zap.Error(err))
		return nil, apperrors.GeneralError(err)
	}

	if round.VaultPrize != nil && s.notifier != nil {
		s.notifier.NotifyVaultPrize(ctx, principal.UserID, g.Name, *round.VaultPrize)
	}

	return round, nil
}

// History returns the user's most recent settled rounds.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]*Round, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rounds, err := s.rounds.ListRounds(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	return rounds, nil
}

// VaultBalance returns the current cofre state for one game.
func (s *Service) VaultBalance(ctx context.Context, gameName string) (*vault.GameVault, error) {
	if _, ok := Get(gameName); !ok {
		return nil, apperrors.NotFoundError(fmt.Errorf("unknown game %q", gameName), "Jogo não encontrado")
	}
	v, err := s.vaults.GetVault(ctx, gameName)
	if err != nil {
		if errors.Is(err, vault.ErrVaultNotFound) {
			// No plays yet; report an empty cofre.
			return &vault.GameVault{GameName: gameName}, nil
		}
		return nil, apperrors.GeneralError(err)
	}
	return v, nil
}

func (s *Service) draw(fn func(*rand.Rand) Outcome) Outcome {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return fn(s.rng)
}

func (s *Service) rollVault(cfg *VaultConfig) bool {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return cfg.RollVaultChance(s.rng)
}

func (s *Service) pickVault(cfg *VaultConfig, balance decimal.Decimal) (decimal.Decimal, bool) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return cfg.PickVaultPrize(balance, s.rng)
}

func (s *Service) observe(gameName string, round *Round, vaultBalance decimal.Decimal) {
	result := "lose"
	if round.Won {
		result = "win"
	}
	metrics.GamePlays.WithLabelValues(gameName, result).Inc()
	if round.Won {
		prize, _ := round.Prize.Float64()
		metrics.GamePayouts.WithLabelValues(gameName, "prize").Add(prize)
	}
	if round.VaultPrize != nil {
		amount, _ := round.VaultPrize.Float64()
		metrics.GamePayouts.WithLabelValues(gameName, "vault").Add(amount)
	}
	balance, _ := vaultBalance.Float64()
	metrics.VaultBalance.WithLabelValues(gameName).Set(balance)
}
