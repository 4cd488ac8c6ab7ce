package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leajer/leajer/internal/identity"
	"github.com/leajer/leajer/internal/rbac"
	"github.com/leajer/leajer/internal/session"
	"github.com/leajer/leajer/internal/shared"
)

type fakeProvider struct {
	role            string
	signInErr       error
	currentUserErr  error
	currentUserHits int
	signOutHits     int
	signOutErr      error
	lastSignUp      identity.SignUpInput
}

func (f *fakeProvider) SignUp(ctx context.Context, input identity.SignUpInput) error {
	f.lastSignUp = input
	return nil
}

func (f *fakeProvider) SignIn(ctx context.Context, email, password string) (identity.SignInResult, error) {
	if f.signInErr != nil {
		return identity.SignInResult{}, f.signInErr
	}
	return identity.SignInResult{IsSignedIn: true, Session: "provider-session"}, nil
}

func (f *fakeProvider) ConfirmSignUp(ctx context.Context, email, code string) error { return nil }
func (f *fakeProvider) ResendCode(ctx context.Context, email string) error          { return nil }

func (f *fakeProvider) SignOut(ctx context.Context, bearer string) error {
	f.signOutHits++
	return f.signOutErr
}

func (f *fakeProvider) CurrentUser(ctx context.Context, bearer string) (identity.User, error) {
	f.currentUserHits++
	if f.currentUserErr != nil {
		return identity.User{}, f.currentUserErr
	}
	return identity.User{ID: "u-1", Name: "Owner Name", Email: "owner@leajer.test"}, nil
}

func (f *fakeProvider) CurrentSession(ctx context.Context, sess string) (identity.Tokens, error) {
	return identity.Tokens{AccessToken: "access-token"}, nil
}

func (f *fakeProvider) UserRole(ctx context.Context, email string) (string, error) {
	return f.role, nil
}

func TestSignInResolvesRoleFromProvider(t *testing.T) {
	provider := &fakeProvider{role: "owner"}
	holder := session.NewHolder(provider, nil, time.Minute)
	sess := &shared.Session{}

	ident, err := holder.SignIn(context.Background(), sess, "owner@leajer.test", "pw")
	require.NoError(t, err)
	require.Equal(t, "owner", ident.Role)
	require.NotNil(t, sess.Identity())
	require.Equal(t, "access-token", sess.Bearer())

	perms := holder.CurrentPermissions(sess)
	require.Contains(t, perms, rbac.PermDeleteRequest)
	require.Contains(t, perms, rbac.PermExportRequests)
}

func TestSignInUnknownRoleFailsClosed(t *testing.T) {
	provider := &fakeProvider{role: "superadmin"}
	holder := session.NewHolder(provider, nil, time.Minute)
	sess := &shared.Session{}

	_, err := holder.SignIn(context.Background(), sess, "x@leajer.test", "pw")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	require.Nil(t, sess.Identity())
}

func TestSignInBadCredentials(t *testing.T) {
	provider := &fakeProvider{signInErr: shared.ErrInvalidCredentials}
	holder := session.NewHolder(provider, nil, time.Minute)

	_, err := holder.SignIn(context.Background(), &shared.Session{}, "x@leajer.test", "pw")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestSignInProviderDown(t *testing.T) {
	provider := &fakeProvider{signInErr: shared.ErrProviderUnavailable}
	holder := session.NewHolder(provider, nil, time.Minute)

	_, err := holder.SignIn(context.Background(), &shared.Session{}, "x@leajer.test", "pw")
	require.ErrorIs(t, err, shared.ErrProviderUnavailable)
	require.NotErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestCurrentPermissionsAnonymous(t *testing.T) {
	holder := session.NewHolder(&fakeProvider{}, nil, time.Minute)
	require.Empty(t, holder.CurrentPermissions(nil))
	require.Empty(t, holder.CurrentPermissions(&shared.Session{}))
}

func TestSignOutClearsLocalStateEvenWhenProviderFails(t *testing.T) {
	provider := &fakeProvider{role: "salesperson", signOutErr: errors.New("boom")}
	holder := session.NewHolder(provider, nil, time.Minute)
	sess := &shared.Session{}
	_, err := holder.SignIn(context.Background(), sess, "s@leajer.test", "pw")
	require.NoError(t, err)

	holder.SignOut(context.Background(), sess)
	require.Equal(t, 1, provider.signOutHits)
	require.Nil(t, sess.Identity())
	require.Empty(t, sess.Bearer())
}

func TestEnsureFreshSkipsWithinInterval(t *testing.T) {
	provider := &fakeProvider{role: "owner"}
	holder := session.NewHolder(provider, nil, time.Hour)
	sess := &shared.Session{}
	_, err := holder.SignIn(context.Background(), sess, "o@leajer.test", "pw")
	require.NoError(t, err)
	provider.currentUserHits = 0

	require.NoError(t, holder.EnsureFresh(context.Background(), sess))
	require.Zero(t, provider.currentUserHits)
}

func TestEnsureFreshRevalidates(t *testing.T) {
	provider := &fakeProvider{role: "owner"}
	holder := session.NewHolder(provider, nil, 0)
	sess := &shared.Session{}
	_, err := holder.SignIn(context.Background(), sess, "o@leajer.test", "pw")
	require.NoError(t, err)
	provider.currentUserHits = 0

	require.NoError(t, holder.EnsureFresh(context.Background(), sess))
	require.Equal(t, 1, provider.currentUserHits)
	require.NotNil(t, sess.Identity())
}

func TestEnsureFreshExpiresSession(t *testing.T) {
	provider := &fakeProvider{role: "owner"}
	holder := session.NewHolder(provider, nil, 0)
	sess := &shared.Session{}
	_, err := holder.SignIn(context.Background(), sess, "o@leajer.test", "pw")
	require.NoError(t, err)

	provider.currentUserErr = shared.ErrSessionExpired
	err = holder.EnsureFresh(context.Background(), sess)
	require.ErrorIs(t, err, shared.ErrSessionExpired)
	require.True(t, shared.IsAuthentication(err))
	require.Nil(t, sess.Identity())
}

func TestEnsureFreshAnonymousIsNoop(t *testing.T) {
	provider := &fakeProvider{}
	holder := session.NewHolder(provider, nil, 0)
	require.NoError(t, holder.EnsureFresh(context.Background(), &shared.Session{}))
	require.Zero(t, provider.currentUserHits)
}
