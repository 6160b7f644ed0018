package banking

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/recorrente/recorrente/internal/config"
	"github.com/recorrente/recorrente/internal/domain/bankaccount"
	ierr "github.com/recorrente/recorrente/internal/errors"
	"github.com/recorrente/recorrente/internal/httpclient"
	"github.com/recorrente/recorrente/internal/logger"
)

const tokenCacheCleanupInterval = 10 * time.Minute

// TokenManager caches short-lived bearer tokens per bank account
// credential and regenerates them through the provider's mutual-TLS
// client-credentials exchange. Tokens are cached for the lifetime the
// provider declares minus a safety skew; concurrent jobs may race a
// refresh, which is tolerated because the provider reissues tokens
// idempotently.
type TokenManager struct {
	cfg    *config.Configuration
	repo   bankaccount.Repository
	cache  *gocache.Cache
	logger *logger.Logger

	// newClient is swapped in tests to avoid real TLS dials
	newClient func(cert tls.Certificate, timeout time.Duration) httpclient.Client
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(cfg *config.Configuration, repo bankaccount.Repository, logger *logger.Logger) *TokenManager {
	return &TokenManager{
		cfg:       cfg,
		repo:      repo,
		cache:     gocache.New(gocache.NoExpiration, tokenCacheCleanupInterval),
		logger:    logger,
		newClient: httpclient.NewMTLSClient,
	}
}

// GetToken returns a bearer token for the credential, serving from the
// cache while the provider-declared lifetime has not elapsed and
// exchanging credentials otherwise
func (m *TokenManager) GetToken(ctx context.Context, cred *bankaccount.Credential) (string, error) {
	if token, ok := m.cache.Get(cred.ID); ok {
		return token.(string), nil
	}

	// a token persisted by a previous run may still be fresh
	if token, ok := m.persistedFreshToken(cred); ok {
		m.cache.Set(cred.ID, token, m.remainingLifetime(cred))
		return token, nil
	}

	return m.Refresh(ctx, cred)
}

// Refresh forces a new client-credentials exchange regardless of cache
// state. Used directly by the single 401 retry path.
func (m *TokenManager) Refresh(ctx context.Context, cred *bankaccount.Credential) (string, error) {
	if err := cred.Validate(); err != nil {
		return "", err
	}

	cert, err := tls.X509KeyPair([]byte(cred.CertificatePEM), []byte(cred.PrivateKeyPEM))
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Bank account certificate or key material is invalid").
			WithReportableDetails(map[string]any{
				"bank_account_id": cred.ID,
			}).
			Mark(ierr.ErrConfiguration)
	}

	form := url.Values{}
	form.Set("client_id", cred.ClientID)
	form.Set("client_secret", cred.ClientSecret)
	form.Set("grant_type", "client_credentials")
	if m.cfg.Bank.Scope != "" {
		form.Set("scope", m.cfg.Bank.Scope)
	}

	client := m.newClient(cert, m.cfg.Bank.Timeout)
	resp, err := client.Send(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    m.cfg.Bank.TokenURL,
		Headers: map[string]string{
			"Content-Type": "application/x-www-form-urlencoded",
		},
		Body: []byte(form.Encode()),
	})
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Token exchange with the banking API failed").
			WithReportableDetails(map[string]any{
				"bank_account_id": cred.ID,
			}).
			Mark(ierr.ErrProvider)
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(resp.Body, &tokenResp); err != nil {
		return "", ierr.WithError(err).
			WithHint("Token response could not be decoded").
			Mark(ierr.ErrProvider)
	}
	if tokenResp.AccessToken == "" {
		return "", ierr.NewError("empty access token").
			WithHint("The banking API returned no access token").
			Mark(ierr.ErrProvider)
	}

	now := time.Now().UTC()
	ttl := m.cacheTTL(tokenResp.ExpiresIn)
	m.cache.Set(cred.ID, tokenResp.AccessToken, ttl)

	// keep the credential record in sync so other processes can reuse
	// the token; a persistence failure only costs an extra exchange
	if err := m.repo.UpdateToken(ctx, cred.ID, tokenResp.AccessToken, now, tokenResp.ExpiresIn); err != nil {
		m.logger.Warnw("failed to persist refreshed token",
			"bank_account_id", cred.ID,
			"error", err)
	}

	cred.Token = &tokenResp.AccessToken
	cred.TokenIssuedAt = &now
	if tokenResp.ExpiresIn > 0 {
		expiresIn := tokenResp.ExpiresIn
		cred.TokenExpiresIn = &expiresIn
	}

	m.logger.Debugw("issued new bearer token",
		"bank_account_id", cred.ID,
		"expires_in", tokenResp.ExpiresIn)

	return tokenResp.AccessToken, nil
}

// Invalidate drops the cached token for a credential
func (m *TokenManager) Invalidate(credID string) {
	m.cache.Delete(credID)
}

func (m *TokenManager) cacheTTL(expiresIn int) time.Duration {
	if expiresIn <= 0 {
		return m.cfg.Bank.FallbackTokenTTL
	}
	ttl := time.Duration(expiresIn)*time.Second - m.cfg.Bank.TokenExpirySkew
	if ttl <= 0 {
		ttl = time.Duration(expiresIn) * time.Second
	}
	return ttl
}

func (m *TokenManager) persistedFreshToken(cred *bankaccount.Credential) (string, bool) {
	if cred.Token == nil || *cred.Token == "" || cred.TokenIssuedAt == nil {
		return "", false
	}
	if m.remainingLifetime(cred) <= 0 {
		return "", false
	}
	return *cred.Token, true
}

func (m *TokenManager) remainingLifetime(cred *bankaccount.Credential) time.Duration {
	if cred.TokenIssuedAt == nil {
		return 0
	}

	lifetime := m.cfg.Bank.FallbackTokenTTL
	if cred.TokenExpiresIn != nil && *cred.TokenExpiresIn > 0 {
		lifetime = time.Duration(*cred.TokenExpiresIn)*time.Second - m.cfg.Bank.TokenExpirySkew
	}

	return time.Until(cred.TokenIssuedAt.Add(lifetime))
}
