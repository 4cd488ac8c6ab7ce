package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/leajer/leajer/internal/shared"
)

// Client talks to the identity provider's REST API. All failures collapse
// into the shared authentication taxonomy: bad credentials vs provider
// unavailable, distinguishable via errors.Is.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient constructs a Client. apiKey authorizes server-to-server
// queries such as role lookup.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// SignUp registers a new account with the provider.
func (c *Client) SignUp(ctx context.Context, input SignUpInput) error {
	return c.do(ctx, http.MethodPost, "/signup", "", input, nil)
}

// SignIn validates credentials. A 401 from the provider means bad
// credentials; anything else that fails means the provider is unavailable.
func (c *Client) SignIn(ctx context.Context, email, password string) (SignInResult, error) {
	var result SignInResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/signin", "", body, &result); err != nil {
		return SignInResult{}, err
	}
	if !result.IsSignedIn {
		return SignInResult{}, shared.ErrInvalidCredentials
	}
	return result, nil
}

// ConfirmSignUp submits the e-mailed verification code.
func (c *Client) ConfirmSignUp(ctx context.Context, email, code string) error {
	body := map[string]string{"email": email, "code": code}
	return c.do(ctx, http.MethodPost, "/confirm", "", body, nil)
}

// ResendCode asks the provider to send a fresh verification code.
func (c *Client) ResendCode(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, "/resend", "", body, nil)
}

// SignOut invalidates the bearer credential with the provider.
func (c *Client) SignOut(ctx context.Context, bearer string) error {
	return c.do(ctx, http.MethodPost, "/signout", bearer, nil, nil)
}

// CurrentUser fetches the account bound to the bearer credential. Used
// both after sign-in and for periodic session revalidation.
func (c *Client) CurrentUser(ctx context.Context, bearer string) (User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/me", bearer, nil, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// CurrentSession exchanges the opaque sign-in session for tokens.
func (c *Client) CurrentSession(ctx context.Context, session string) (Tokens, error) {
	var tokens Tokens
	if err := c.do(ctx, http.MethodGet, "/session", session, nil, &tokens); err != nil {
		return Tokens{}, err
	}
	return tokens, nil
}

// UserRole resolves the account's role from provider group membership.
// This is the authoritative source; client-supplied role hints are only
// a display default until this call completes.
func (c *Client) UserRole(ctx context.Context, email string) (string, error) {
	var result struct {
		Role string `json:"role"`
	}
	path := "/role?email=" + url.QueryEscape(email)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &result); err != nil {
		return "", err
	}
	return result.Role, nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("identity: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("identity: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("identity provider unreachable", slog.String("path", path), slog.Any("error", err))
		}
		return fmt.Errorf("%w: %v", shared.ErrProviderUnavailable, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if bearer != "" {
			return shared.ErrSessionExpired
		}
		return shared.ErrInvalidCredentials
	default:
		return fmt.Errorf("%w: %s returned %d", shared.ErrProviderUnavailable, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode %s: %v", shared.ErrProviderUnavailable, path, err)
		}
	}
	return nil
}
