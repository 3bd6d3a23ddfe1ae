// Package account implements registration, login and profile retrieval.
package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/raspay/raspay-server/pkg/affiliate"
	apperrors "github.com/raspay/raspay-server/pkg/app/errors"
	"github.com/raspay/raspay-server/pkg/auth"
	"github.com/raspay/raspay-server/pkg/user"
	"github.com/raspay/raspay-server/pkg/userstore"
	"github.com/raspay/raspay-server/pkg/wallet"
)

// Service implements the account lifecycle. Registration creates the user
// and their wallet in one transaction so no account ever exists without a
// balance row.
type Service struct {
	users      userstore.Store
	wallets    wallet.Store
	affiliates affiliate.Store
	issuer     *auth.TokenIssuer
	bcryptCost int
	logger     *zap.Logger
}

// NewService creates an account service. affiliates may be nil, disabling
// referral attribution.
func NewService(
	users userstore.Store,
	wallets wallet.Store,
	affiliates affiliate.Store,
	issuer *auth.TokenIssuer,
	bcryptCost int,
	logger *zap.Logger,
) *Service {
	return &Service{
		users:      users,
		wallets:    wallets,
		affiliates: affiliates,
		issuer:     issuer,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register creates an account, optionally attributed to the affiliate whose
// referral code was supplied, and returns the user with a session token.
func (s *Service) Register(ctx context.Context, email, username, password, referralCode string) (*user.User, string, error) {
	if taken, err := s.users.EmailTaken(ctx, email); err != nil {
		return nil, "", apperrors.GeneralError(err)
	} else if taken {
		return nil, "", apperrors.ConflictError(nil, "E-mail já cadastrado")
	}
	if taken, err := s.users.UsernameTaken(ctx, username); err != nil {
		return nil, "", apperrors.GeneralError(err)
	} else if taken {
		return nil, "", apperrors.ConflictError(nil, "Nome de usuário já em uso")
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", apperrors.GeneralError(err)
	}

	usr := user.New(email, username, hash)
	if referralCode != "" && s.affiliates != nil {
		aff, err := s.affiliates.GetAffiliateByCode(ctx, referralCode)
		switch {
		case errors.Is(err, affiliate.ErrAffiliateNotFound):
			// Bad code is not fatal; the account is simply unattributed.
			s.logger.Info("unknown referral code", zap.String("code", referralCode))
		case err != nil:
			return nil, "", apperrors.GeneralError(err)
		default:
			usr.AffiliateID = &aff.UserID
		}
	}

	err = s.wallets.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := s.users.CreateUser(ctx, tx, usr); err != nil {
			return err
		}
		return s.wallets.CreateWallet(ctx, tx, usr.ID)
	})
	if err != nil {
		return nil, "", apperrors.GeneralError(err)
	}

	token, err := s.issuer.Issue(usr.ID, usr.Kind)
	if err != nil {
		return nil, "", apperrors.GeneralError(err)
	}
	return usr, token, nil
}

// Login verifies the credentials and returns the user with a session token.
// login may be the email or the username.
func (s *Service) Login(ctx context.Context, login, password string) (*user.User, string, error) {
	usr, err := s.users.GetUser(ctx, userstore.WithEmail(login))
	if errors.Is(err, userstore.ErrUserNotFound) {
		usr, err = s.users.GetUser(ctx, userstore.WithUsername(login))
	}
	if err != nil {
		if errors.Is(err, userstore.ErrUserNotFound) {
			return nil, "", apperrors.UnAuthorizedError(err, "Credenciais inválidas")
		}
		return nil, "", apperrors.GeneralError(err)
	}

	if !auth.CheckPassword(usr.PasswordHash, password) {
		return nil, "", apperrors.UnAuthorizedError(
			fmt.Errorf("bad password for user %d", usr.ID), "Credenciais inválidas")
	}

	token, err := s.issuer.Issue(usr.ID, usr.Kind)
	if err != nil {
		return nil, "", apperrors.GeneralError(err)
	}
	return usr, token, nil
}

// Profile returns the user and their wallet.
func (s *Service) Profile(ctx context.Context, userID int64) (*user.User, *wallet.Wallet, error) {
	usr, err := s.users.GetUser(ctx, userstore.WithID(userID))
	if err != nil {
		if errors.Is(err, userstore.ErrUserNotFound) {
			return nil, nil, apperrors.NotFoundError(err, "Usuário não encontrado")
		}
		return nil, nil, apperrors.GeneralError(err)
	}
	w, err := s.wallets.GetWallet(ctx, userID)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound) {
			return nil, nil, apperrors.NotFoundError(err, "Carteira não encontrada")
		}
		return nil, nil, apperrors.GeneralError(err)
	}
	return usr, w, nil
}
