// Package user holds the platform user domain model.
package user

import "time"

// Kind classifies a platform account.
type Kind string

const (
	KindRegular   Kind = "regular"
	KindBlogger   Kind = "blogger"
	KindAffiliate Kind = "affiliate"
	KindManager   Kind = "manager"
	KindAdmin     Kind = "admin"
)

// Valid reports whether k is a known account kind.
func (k Kind) Valid() bool {
	switch k {
	case KindRegular, KindBlogger, KindAffiliate, KindManager, KindAdmin:
		return true
	}
	return false
}

// EligibleForVaultPrize reports whether accounts of this kind may win cofre
// payouts. Only regular players are eligible; house accounts (bloggers,
// affiliates, managers, admins) contribute but never draw.
func (k Kind) EligibleForVaultPrize() bool {
	return k == KindRegular
}

// User represents a registered RasPay account.
type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	Kind         Kind
	// AffiliateID points to the affiliate that referred this user, if any.
	AffiliateID *int64
	CreatedAt   time.Time
}

// New creates a regular user with the given credentials.
func New(email, username, passwordHash string) *User {
	return &User{
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		Kind:         KindRegular,
	}
}
