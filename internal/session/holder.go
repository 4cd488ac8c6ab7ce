// Package session owns the sign-in lifecycle: it binds provider-confirmed
// identities to sessions and keeps them fresh against the identity
// provider.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leajer/leajer/internal/identity"
	"github.com/leajer/leajer/internal/rbac"
	"github.com/leajer/leajer/internal/shared"
)

// Provider is the slice of the identity client the holder depends on.
type Provider interface {
	SignUp(ctx context.Context, input identity.SignUpInput) error
	SignIn(ctx context.Context, email, password string) (identity.SignInResult, error)
	ConfirmSignUp(ctx context.Context, email, code string) error
	ResendCode(ctx context.Context, email string) error
	SignOut(ctx context.Context, bearer string) error
	CurrentUser(ctx context.Context, bearer string) (identity.User, error)
	CurrentSession(ctx context.Context, session string) (identity.Tokens, error)
	UserRole(ctx context.Context, email string) (string, error)
}

// Holder performs sign-in/sign-out against the provider and answers
// permission queries for the bound session.
type Holder struct {
	provider        Provider
	logger          *slog.Logger
	revalidateEvery time.Duration
	now             func() time.Time
}

// NewHolder constructs a Holder. revalidateEvery bounds how long a session
// may go without being reconfirmed against the provider.
func NewHolder(provider Provider, logger *slog.Logger, revalidateEvery time.Duration) *Holder {
	return &Holder{
		provider:        provider,
		logger:          logger,
		revalidateEvery: revalidateEvery,
		now:             time.Now,
	}
}

// SignIn authenticates the credentials with the provider, resolves the
// authoritative role from group membership and binds the identity to the
// session. Any client-supplied role hint is discarded here.
func (h *Holder) SignIn(ctx context.Context, sess *shared.Session, email, password string) (shared.Identity, error) {
	result, err := h.provider.SignIn(ctx, email, password)
	if err != nil {
		return shared.Identity{}, err
	}

	tokens, err := h.provider.CurrentSession(ctx, result.Session)
	if err != nil {
		return shared.Identity{}, err
	}

	user, err := h.provider.CurrentUser(ctx, tokens.AccessToken)
	if err != nil {
		return shared.Identity{}, err
	}

	roleName, err := h.provider.UserRole(ctx, user.Email)
	if err != nil {
		return shared.Identity{}, err
	}
	role, ok := rbac.ParseRole(roleName)
	if !ok {
		if h.logger != nil {
			h.logger.Warn("provider returned unknown role", slog.String("email", user.Email), slog.String("role", roleName))
		}
		return shared.Identity{}, fmt.Errorf("%w: unresolved role", shared.ErrInvalidCredentials)
	}

	ident := shared.Identity{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   string(role),
	}
	sess.SetIdentity(ident, tokens.AccessToken, h.now())
	return ident, nil
}

// SignOut clears the session identity unconditionally. The provider
// sign-out is best-effort: a failed remote call never keeps a user
// signed in locally.
func (h *Holder) SignOut(ctx context.Context, sess *shared.Session) {
	if sess == nil {
		return
	}
	if bearer := sess.Bearer(); bearer != "" {
		if err := h.provider.SignOut(ctx, bearer); err != nil && h.logger != nil {
			h.logger.Warn("provider sign-out failed", slog.Any("error", err))
		}
	}
	sess.ClearIdentity()
}

// SignUp registers an account with the provider.
func (h *Holder) SignUp(ctx context.Context, input identity.SignUpInput) error {
	return h.provider.SignUp(ctx, input)
}

// ConfirmSignUp submits the verification code for a pending account.
func (h *Holder) ConfirmSignUp(ctx context.Context, email, code string) error {
	return h.provider.ConfirmSignUp(ctx, email, code)
}

// ResendCode requests a fresh verification code.
func (h *Holder) ResendCode(ctx context.Context, email string) error {
	return h.provider.ResendCode(ctx, email)
}

// CurrentPermissions returns the permission set for the session's role.
// Anonymous sessions, and sessions carrying a role the table does not
// know, hold nothing.
func (h *Holder) CurrentPermissions(sess *shared.Session) []rbac.Permission {
	role, ok := currentRole(sess)
	if !ok {
		return []rbac.Permission{}
	}
	return rbac.PermissionsFor(role)
}

// EnsureFresh reconfirms the session identity against the provider once
// the revalidation interval (or the bearer token's own expiry, whichever
// comes first) has passed. A failed reconfirmation clears the identity
// and reports the session as expired.
func (h *Holder) EnsureFresh(ctx context.Context, sess *shared.Session) error {
	if sess == nil || sess.Identity() == nil {
		return nil
	}

	now := h.now()
	deadline := sess.RevalidatedAt().Add(h.revalidateEvery)
	if claims, err := identity.DecodeToken(sess.Bearer()); err == nil {
		if exp := claims.ExpiresAt(); !exp.IsZero() && exp.Before(deadline) {
			deadline = exp
		}
	}
	if now.Before(deadline) {
		return nil
	}

	if _, err := h.provider.CurrentUser(ctx, sess.Bearer()); err != nil {
		if h.logger != nil {
			h.logger.Info("session revalidation failed", slog.Any("error", err))
		}
		sess.ClearIdentity()
		return fmt.Errorf("%w: revalidation failed", shared.ErrSessionExpired)
	}
	sess.MarkRevalidated(now)
	return nil
}

func currentRole(sess *shared.Session) (rbac.Role, bool) {
	if sess == nil {
		return "", false
	}
	ident := sess.Identity()
	if ident == nil {
		return "", false
	}
	return rbac.ParseRole(ident.Role)
}
