package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotstat/internal/models"
	"github.com/desertthunder/spotstat/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// Scope is the fixed scope string requested during authorization.
const Scope = "user-top-read user-read-recently-played user-read-private user-read-email"

const refreshKey = "refresh"

// Credentials identify this application to the provider. Immutable after construction.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
}

// DefaultScopes returns [Scope] split into individual scopes.
func DefaultScopes() []string {
	return strings.Fields(Scope)
}

// Endpoints locates the provider's OAuth endpoints.
type Endpoints struct {
	AuthURL  string
	TokenURL string
}

// SpotifyEndpoints are the production accounts service endpoints.
var SpotifyEndpoints = Endpoints{
	AuthURL:  "https://accounts.spotify.com/authorize",
	TokenURL: "https://accounts.spotify.com/api/token",
}

// TokenPair is the provider's token response as relayed to callers.
//
// When the provider's JSON body is available it is marshaled verbatim, so fields
// without a struct counterpart reach the caller unchanged.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`

	raw json.RawMessage
}

// MarshalJSON implements [json.Marshaler].
func (p TokenPair) MarshalJSON() ([]byte, error) {
	if len(p.raw) > 0 {
		return p.raw, nil
	}
	type plain TokenPair
	return json.Marshal(plain(p))
}

// TokenStatus is a snapshot of the token state. It never carries token values.
type TokenStatus struct {
	HasAccessToken  bool       `json:"hasAccessToken"`
	HasRefreshToken bool       `json:"hasRefreshToken"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	RefreshedAt     *time.Time `json:"refreshedAt,omitempty"`
}

// EventRecorder stores token lifecycle events.
type EventRecorder interface {
	Record(event *models.TokenEvent) error
}

// TokenManagerOpts configures a [TokenManager].
type TokenManagerOpts struct {
	Credentials  Credentials
	Endpoints    Endpoints // defaults to [SpotifyEndpoints]
	RefreshToken string    // seed refresh token, may be empty
	HTTPClient   *http.Client
	Logger       *log.Logger
	Events       EventRecorder // optional
}

// TokenManager owns the access/refresh token pair and performs the OAuth grants.
//
// All refreshes run through a single [singleflight.Group] key, so concurrent
// triggers share one request to the token endpoint.
type TokenManager struct {
	config     *oauth2.Config
	httpClient *http.Client
	logger     *log.Logger
	events     EventRecorder
	group      singleflight.Group
	grantMu    sync.Mutex // one grant at a time, exchange or refresh

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiry       time.Time
	refreshedAt  time.Time
}

// NewTokenManager creates a [TokenManager] seeded with opts.RefreshToken.
func NewTokenManager(opts TokenManagerOpts) *TokenManager {
	endpoints := opts.Endpoints
	if endpoints.AuthURL == "" {
		endpoints.AuthURL = SpotifyEndpoints.AuthURL
	}
	if endpoints.TokenURL == "" {
		endpoints.TokenURL = SpotifyEndpoints.TokenURL
	}

	scopes := opts.Credentials.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	return &TokenManager{
		config: &oauth2.Config{
			ClientID:     opts.Credentials.ClientID,
			ClientSecret: opts.Credentials.ClientSecret,
			RedirectURL:  opts.Credentials.RedirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   endpoints.AuthURL,
				TokenURL:  endpoints.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient:   httpClient,
		logger:       logger,
		events:       opts.Events,
		refreshToken: opts.RefreshToken,
	}
}

// AuthorizationURL returns the provider's authorize URL with client_id, response_type=code,
// redirect_uri and the fixed scope string.
func (m *TokenManager) AuthorizationURL() string {
	return m.config.AuthCodeURL("")
}

// ExchangeCode trades an authorization code for a token pair and installs it.
//
// A blank code fails with [shared.ErrPrecondition] without contacting the provider.
func (m *TokenManager) ExchangeCode(ctx context.Context, code string) (*TokenPair, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code is required", shared.ErrPrecondition)
	}

	m.grantMu.Lock()
	defer m.grantMu.Unlock()

	capture := &responseCapture{base: m.httpClient.Transport}
	client := &http.Client{Transport: capture, Timeout: m.httpClient.Timeout}

	tok, err := m.config.Exchange(context.WithValue(ctx, oauth2.HTTPClient, client), code)
	if err != nil {
		authErr := newUpstreamAuthError("exchange", err)
		m.logger.Error("authorization code exchange failed", "status", authErr.StatusCode, "error", err)
		m.record(models.NewTokenEvent(models.EventExchange, models.OutcomeFailure).
			WithStatus(authErr.StatusCode, err.Error()))
		return nil, authErr
	}

	rotated := m.install(tok, "")
	m.logger.Info("authorization code exchanged", "token", shared.RedactToken(tok.AccessToken), "expiry", tok.Expiry)
	m.record(models.NewTokenEvent(models.EventExchange, models.OutcomeSuccess).
		WithStatus(http.StatusOK, "").
		WithRotation(rotated))

	return newTokenPair(tok, capture.body), nil
}

// RefreshAccessToken runs the refresh-token grant with the held refresh token.
//
// On failure the held tokens are left as they were. Calls made while a refresh
// is in flight wait for and share its result.
func (m *TokenManager) RefreshAccessToken(ctx context.Context) error {
	_, err, _ := m.group.Do(refreshKey, func() (any, error) {
		return nil, m.grantRefresh(ctx, models.EventRefresh)
	})
	return err
}

// Renew refreshes the access token unless it has already changed since stale was handed out.
//
// Pass an empty stale value to refresh only when no access token is held.
func (m *TokenManager) Renew(ctx context.Context, stale string) error {
	_, err, _ := m.group.Do(refreshKey, func() (any, error) {
		if current, ok := m.AccessToken(); ok && current != stale {
			m.logger.Debug("token already renewed", "token", shared.RedactToken(current))
			return nil, nil
		}
		return nil, m.grantRefresh(ctx, models.EventRefresh)
	})
	return err
}

// Bootstrap performs the startup refresh with the seeded refresh token.
func (m *TokenManager) Bootstrap(ctx context.Context) error {
	_, err, _ := m.group.Do(refreshKey, func() (any, error) {
		return nil, m.grantRefresh(ctx, models.EventBootstrap)
	})
	return err
}

// AccessToken returns the current access token and whether one is held.
func (m *TokenManager) AccessToken() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accessToken, m.accessToken != ""
}

// Status returns a snapshot of the token state.
func (m *TokenManager) Status() TokenStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := TokenStatus{
		HasAccessToken:  m.accessToken != "",
		HasRefreshToken: m.refreshToken != "",
	}
	if !m.expiry.IsZero() {
		expiry := m.expiry
		status.ExpiresAt = &expiry
	}
	if !m.refreshedAt.IsZero() {
		refreshedAt := m.refreshedAt
		status.RefreshedAt = &refreshedAt
	}
	return status
}

// grantRefresh must only be called from inside the singleflight group.
func (m *TokenManager) grantRefresh(ctx context.Context, kind models.EventKind) error {
	m.grantMu.Lock()
	defer m.grantMu.Unlock()

	m.mu.RLock()
	refreshToken := m.refreshToken
	m.mu.RUnlock()

	if refreshToken == "" {
		err := &UpstreamAuthError{Op: "refresh", Err: shared.ErrNoRefreshToken}
		m.logger.Warn("cannot refresh access token", "error", err)
		m.record(models.NewTokenEvent(kind, models.OutcomeFailure).WithStatus(0, shared.ErrNoRefreshToken.Error()))
		return err
	}

	// The flight is shared, so one caller's cancellation must not fail the others.
	ctx = context.WithoutCancel(ctx)

	src := m.config.TokenSource(m.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		authErr := newUpstreamAuthError("refresh", err)
		m.logger.Error("access token refresh failed", "kind", kind, "status", authErr.StatusCode, "error", err)
		m.record(models.NewTokenEvent(kind, models.OutcomeFailure).WithStatus(authErr.StatusCode, err.Error()))
		return authErr
	}

	rotated := m.install(tok, refreshToken)
	m.logger.Info("access token refreshed",
		"kind", kind,
		"token", shared.RedactToken(tok.AccessToken),
		"rotated", rotated,
		"expiry", tok.Expiry)
	m.record(models.NewTokenEvent(kind, models.OutcomeSuccess).
		WithStatus(http.StatusOK, "").
		WithRotation(rotated))

	return nil
}

// install stores tok and reports whether the held refresh token changed.
//
// sent is the refresh token the grant was made with. The oauth2 package echoes it
// back when the provider omits refresh_token, so only a different value is adopted.
func (m *TokenManager) install(tok *oauth2.Token, sent string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	rotated := false
	if tok.RefreshToken != "" && tok.RefreshToken != sent {
		rotated = tok.RefreshToken != m.refreshToken
		m.refreshToken = tok.RefreshToken
	}
	m.accessToken = tok.AccessToken
	m.expiry = tok.Expiry
	m.refreshedAt = time.Now().UTC()

	return rotated
}

func (m *TokenManager) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}

func (m *TokenManager) record(event *models.TokenEvent) {
	if m.events == nil {
		return
	}
	if err := m.events.Record(event); err != nil {
		m.logger.Warn("failed to record token event", "kind", event.Kind(), "error", err)
	}
}

// newTokenPair relays tok. body is the raw token endpoint response and is kept when it is a JSON object.
func newTokenPair(tok *oauth2.Token, body []byte) *TokenPair {
	pair := &TokenPair{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		ExpiresIn:    tok.ExpiresIn,
		RefreshToken: tok.RefreshToken,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		pair.Scope = scope
	}
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed) {
		pair.raw = json.RawMessage(trimmed)
	}
	return pair
}

// responseCapture keeps a copy of the last response body it carried.
type responseCapture struct {
	base http.RoundTripper
	body []byte
}

// RoundTrip implements [http.RoundTripper].
func (c *responseCapture) RoundTrip(req *http.Request) (*http.Response, error) {
	base := c.base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	c.body = body
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}
