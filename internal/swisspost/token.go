package swisspost

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/address-validator/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// OAuthConfig client-credentials settings
type OAuthConfig struct {
	TokenURL        string
	ClientID        string
	ClientSecret    string
	Scope           string
	Timeout         time.Duration
	RefreshMargin   time.Duration // never serve a token with less validity left
	DefaultLifetime time.Duration // used when expires_in is absent
}

// Token bearer token và thời điểm hết hạn
type Token struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Usable reports whether at least margin of validity remains at now.
func (t Token) Usable(now time.Time, margin time.Duration) bool {
	return t.Value != "" && !now.Add(margin).After(t.ExpiresAt)
}

// TokenCache owns the client-credentials exchange and caches the bearer
// token until it is close to expiry. Concurrent refreshes collapse into one
// exchange. An optional shared store lets several processes reuse a token.
type TokenCache struct {
	cfg     OAuthConfig
	client  *http.Client
	shared  TokenStore
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu      sync.RWMutex
	current Token
	flight  singleflight.Group
}

// NewTokenCache returns ErrConfig when client id or secret is missing.
// shared may be nil.
func NewTokenCache(cfg OAuthConfig, shared TokenStore, httpClient *http.Client, logger *zap.Logger, m *metrics.Metrics) (*TokenCache, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, ErrConfig
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RefreshMargin <= 0 {
		cfg.RefreshMargin = 30 * time.Second
	}
	if cfg.DefaultLifetime <= 0 {
		cfg.DefaultLifetime = 300 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &TokenCache{
		cfg:     cfg,
		client:  httpClient,
		shared:  shared,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}, nil
}

// Token returns a bearer token with at least RefreshMargin validity left,
// exchanging credentials when needed.
func (tc *TokenCache) Token(ctx context.Context) (string, error) {
	if tok, ok := tc.local(); ok {
		return tok.Value, nil
	}

	v, err, shared := tc.flight.Do("token", func() (interface{}, error) {
		// a flight that just finished may already have stored one
		if tok, ok := tc.local(); ok {
			return tok, nil
		}
		if tok, ok := tc.loadShared(ctx); ok {
			tc.setLocal(tok)
			return tok, nil
		}

		// one caller cancelling must not fail the others waiting on this flight
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tc.cfg.Timeout)
		defer cancel()

		tok, err := tc.Exchange(fetchCtx)
		if err != nil {
			return nil, err
		}
		tc.setLocal(tok)
		tc.saveShared(ctx, tok)
		return tok, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		tc.logger.Debug("Token refresh shared between callers")
	}
	return v.(Token).Value, nil
}

// Exchange performs one client-credentials grant without touching the cache.
func (tc *TokenCache) Exchange(ctx context.Context) (Token, error) {
	if tc.cfg.ClientID == "" || tc.cfg.ClientSecret == "" {
		return Token{}, fmt.Errorf("%w: client id/secret missing", ErrAuth)
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {tc.cfg.ClientID},
		"client_secret": {tc.cfg.ClientSecret},
		"scope":         {tc.cfg.Scope},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tc.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("%w: build token request: %v", ErrAuth, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := tc.client.Do(req)
	if err != nil {
		tc.metrics.IncrementTokenExchange("network_error")
		return Token{}, fmt.Errorf("%w: token exchange: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		tc.metrics.IncrementTokenExchange("network_error")
		return Token{}, fmt.Errorf("%w: read token response: %w", ErrNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		tc.metrics.IncrementTokenExchange("rejected")
		tc.logger.Error("OAuth token exchange rejected", zap.Int("status", resp.StatusCode))
		return Token{}, fmt.Errorf("%w: status %d: %s", ErrAuth, resp.StatusCode, truncate(string(body), 200))
	}

	var payload struct {
		AccessToken string  `json:"access_token"`
		ExpiresIn   float64 `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.AccessToken == "" {
		tc.metrics.IncrementTokenExchange("malformed")
		return Token{}, fmt.Errorf("%w: %w: no access_token in token response", ErrAuth, ErrMalformedResponse)
	}

	lifetime := tc.cfg.DefaultLifetime
	if payload.ExpiresIn > 0 {
		lifetime = time.Duration(payload.ExpiresIn * float64(time.Second))
	}

	tc.metrics.IncrementTokenExchange("ok")
	tc.logger.Info("OAuth token refreshed", zap.Duration("lifetime", lifetime))
	return Token{Value: payload.AccessToken, ExpiresAt: tc.now().Add(lifetime)}, nil
}

func (tc *TokenCache) local() (Token, bool) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	if tc.current.Usable(tc.now(), tc.cfg.RefreshMargin) {
		return tc.current, true
	}
	return Token{}, false
}

func (tc *TokenCache) setLocal(tok Token) {
	tc.mu.Lock()
	tc.current = tok
	tc.mu.Unlock()
}

func (tc *TokenCache) loadShared(ctx context.Context) (Token, bool) {
	if tc.shared == nil {
		return Token{}, false
	}
	tok, found, err := tc.shared.Load(ctx)
	if err != nil {
		tc.logger.Warn("Shared token store unavailable, exchanging locally", zap.Error(err))
		return Token{}, false
	}
	if !found || !tok.Usable(tc.now(), tc.cfg.RefreshMargin) {
		return Token{}, false
	}
	return tok, true
}

func (tc *TokenCache) saveShared(ctx context.Context, tok Token) {
	if tc.shared == nil {
		return
	}
	if err := tc.shared.Save(context.WithoutCancel(ctx), tok); err != nil {
		tc.logger.Warn("Could not publish token to shared store", zap.Error(err))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
