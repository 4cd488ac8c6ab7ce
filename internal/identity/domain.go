// Package identity is the HTTP client for the external identity provider.
// The provider is the sole authority for credentials and role membership;
// this package never derives a role from client input.
package identity

import "time"

// User is the provider's view of an account.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SignUpInput carries a registration request. Role selects the provider
// group the account is placed in; self-service sign-up is restricted to
// salesperson by the caller.
type SignUpInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// SignInResult is the outcome of a credential check. Session is an opaque
// provider handle used to fetch tokens.
type SignInResult struct {
	IsSignedIn bool   `json:"isSignedIn"`
	Session    string `json:"session"`
}

// Tokens are the provider-issued credentials for a signed-in user.
type Tokens struct {
	AccessToken string    `json:"accessToken"`
	IDToken     string    `json:"idToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}
