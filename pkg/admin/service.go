// Package admin implements the back-office: platform stats, user
// management, withdrawal approval and cofre inspection.
package admin

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/raspay/raspay-server/pkg/affiliate"
	apperrors "github.com/raspay/raspay-server/pkg/app/errors"
	"github.com/raspay/raspay-server/pkg/game"
	"github.com/raspay/raspay-server/pkg/notify"
	"github.com/raspay/raspay-server/pkg/payments"
	"github.com/raspay/raspay-server/pkg/user"
	"github.com/raspay/raspay-server/pkg/userstore"
	"github.com/raspay/raspay-server/pkg/vault"
	"github.com/raspay/raspay-server/pkg/wallet"
)

// Stats is the back-office overview panel.
type Stats struct {
	UsersByKind    map[user.Kind]int
	TotalsByType   map[wallet.TxType]decimal.Decimal
	Vaults         []*vault.GameVault
	RoundsLast24h  int64
	PendingPayouts int
}

// Service implements back-office operations.
type Service struct {
	users      userstore.Store
	wallets    wallet.Store
	vaults     vault.Store
	rounds     game.RoundStore
	affiliates affiliate.Store
	pushSubs   notify.SubscriptionStore
	payouts    *payments.Service
	logger     *zap.Logger
}

// NewService creates an admin service.
func NewService(
	users userstore.Store,
	wallets wallet.Store,
	vaults vault.Store,
	rounds game.RoundStore,
	affiliates affiliate.Store,
	pushSubs notify.SubscriptionStore,
	payouts *payments.Service,
	logger *zap.Logger,
) *Service {
	return &Service{
		users:      users,
		wallets:    wallets,
		vaults:     vaults,
		rounds:     rounds,
		affiliates: affiliates,
		pushSubs:   pushSubs,
		payouts:    payouts,
		logger:     logger,
	}
}

// Stats assembles the overview panel.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	usersByKind, err := s.users.CountUsersByKind(ctx)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	totals, err := s.wallets.TotalsByType(ctx)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	vaults, err := s.vaults.ListVaults(ctx)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	roundCount, err := s.rounds.CountRoundsSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	pending, err := s.wallets.ListByTypeAndStatus(ctx, wallet.TxWithdraw, wallet.StatusPending, 1000)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}

	return &Stats{
		UsersByKind:    usersByKind,
		TotalsByType:   totals,
		Vaults:         vaults,
		RoundsLast24h:  roundCount,
		PendingPayouts: len(pending),
	}, nil
}

// ListUsers pages through all accounts.
func (s *Service) ListUsers(ctx context.Context, limit, offset int) ([]*user.User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	users, err := s.users.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	return users, nil
}

// DeleteUser removes an account and everything attached to it: wallet,
// ledger, rounds, vault prize records, referral rows and push
// subscriptions, all in one transaction.
func (s *Service) DeleteUser(ctx context.Context, userID int64) error {
	if _, err := s.users.GetUser(ctx, userstore.WithID(userID)); err != nil {
		if errors.Is(err, userstore.ErrUserNotFound) {
			return apperrors.NotFoundError(err, "Usuário não encontrado")
		}
		return apperrors.GeneralError(err)
	}

	err := s.wallets.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := s.rounds.DeleteUserData(ctx, tx, userID); err != nil {
			return err
		}
		if err := s.vaults.DeleteUserData(ctx, tx, userID); err != nil {
			return err
		}
		if err := s.affiliates.DeleteUserData(ctx, tx, userID); err != nil {
			return err
		}
		if err := s.pushSubs.DeleteUserData(ctx, tx, userID); err != nil {
			return err
		}
		if err := s.wallets.DeleteUserData(ctx, tx, userID); err != nil {
			return err
		}
		return s.users.DeleteUser(ctx, tx, userID)
	})
	if err != nil {
		return apperrors.GeneralError(err)
	}

	s.logger.Info("user deleted", zap.Int64("user_id", userID))
	return nil
}

// PendingWithdrawals lists withdrawals awaiting approval.
func (s *Service) PendingWithdrawals(ctx context.Context, limit int) ([]*wallet.Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	txs, err := s.wallets.ListByTypeAndStatus(ctx, wallet.TxWithdraw, wallet.StatusPending, limit)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	return txs, nil
}

// ApproveWithdrawal marks a pending withdrawal approved and sends it to the
// payment processor. A processor failure reverts the debit.
func (s *Service) ApproveWithdrawal(ctx context.Context, txID int64) error {
	tx, err := s.wallets.GetTransaction(ctx, txID)
	if err != nil {
		if errors.Is(err, wallet.ErrTransactionNotFound) {
			return apperrors.NotFoundError(err, "Transação não encontrada")
		}
		return apperrors.GeneralError(err)
	}
	if tx.Type != wallet.TxWithdraw {
		return apperrors.UnprocessableError(
			errors.New("transaction not awaiting approval"), "Saque não está pendente")
	}

	// Conditional flip so two concurrent approvals cannot both dispatch a
	// transfer; the loser sees the row already approved.
	approved, err := s.wallets.TransitionStatus(ctx, nil, tx.ID, wallet.StatusApproved, wallet.StatusPending)
	if err != nil {
		return apperrors.GeneralError(err)
	}
	if !approved {
		return apperrors.UnprocessableError(
			errors.New("transaction not awaiting approval"), "Saque não está pendente")
	}
	tx.Status = wallet.StatusApproved
	return s.payouts.Dispatch(ctx, tx)
}

// CancelWithdrawal cancels a pending withdrawal and returns the money.
func (s *Service) CancelWithdrawal(ctx context.Context, txID int64) error {
	err := s.wallets.RunInTx(ctx, func(ctx context.Context, dbTx bun.Tx) error {
		tx, err := s.wallets.GetTransaction(ctx, txID)
		if err != nil {
			return err
		}
		if tx.Type != wallet.TxWithdraw {
			return apperrors.UnprocessableError(
				errors.New("transaction not awaiting approval"), "Saque não está pendente")
		}
		if _, err := s.wallets.LockWallet(ctx, dbTx, tx.UserID); err != nil {
			return err
		}
		cancelled, err := s.wallets.TransitionStatus(ctx, dbTx, tx.ID, wallet.StatusCancelled, wallet.StatusPending)
		if err != nil {
			return err
		}
		if !cancelled {
			return apperrors.UnprocessableError(
				errors.New("transaction not awaiting approval"), "Saque não está pendente")
		}
		_, err = s.wallets.ApplyDelta(ctx, dbTx, tx.UserID, tx.Amount.Neg())
		return err
	})
	if err != nil {
		var svcErr *apperrors.ServiceError
		if errors.As(err, &svcErr) {
			return err
		}
		if errors.Is(err, wallet.ErrTransactionNotFound) {
			return apperrors.NotFoundError(err, "Transação não encontrada")
		}
		return apperrors.GeneralError(err)
	}
	return nil
}

// TransactionsBetween returns the ledger rows in [from, to) for export.
func (s *Service) TransactionsBetween(ctx context.Context, from, to time.Time) ([]*wallet.Transaction, error) {
	txs, err := s.wallets.ListTransactionsBetween(ctx, from, to)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	return txs, nil
}

// Vaults returns all cofre rows.
func (s *Service) Vaults(ctx context.Context) ([]*vault.GameVault, error) {
	vaults, err := s.vaults.ListVaults(ctx)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	return vaults, nil
}

// VaultPrizes returns recent cofre payouts, optionally for one game.
func (s *Service) VaultPrizes(ctx context.Context, gameName string, limit int) ([]*vault.Prize, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	prizes, err := s.vaults.ListPrizes(ctx, gameName, limit)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	return prizes, nil
}

// AdjustVault applies a manual correction to a game's cofre balance.
func (s *Service) AdjustVault(ctx context.Context, gameName string, delta decimal.Decimal) (*vault.GameVault, error) {
	if _, ok := game.Get(gameName); !ok {
		return nil, apperrors.NotFoundError(errors.New("unknown game"), "Jogo não encontrado")
	}
	v, err := s.vaults.AdjustBalance(ctx, gameName, delta)
	if err != nil {
		if errors.Is(err, vault.ErrVaultNotFound) {
			return nil, apperrors.NotFoundError(err, "Cofre não encontrado")
		}
		return nil, apperrors.GeneralError(err)
	}
	s.logger.Info("vault adjusted",
		zap.String("game", gameName),
		zap.String("delta", delta.String()))
	return v, nil
}
