package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainoauth "github.com/eharris128/mycontentbuddy/internal/domain/oauth"
)

// ProviderClient encapsulates the outbound token-endpoint call so the OAuth
// service can be exercised against a test double.
type ProviderClient interface {
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*domainoauth.Token, error)
}

// ExchangeConfig carries the credentials and endpoint for the code exchange.
type ExchangeConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// HTTPProviderClient is the default HTTP implementation against Twitter's
// token endpoint.
type HTTPProviderClient struct {
	cfg        ExchangeConfig
	httpClient *http.Client
}

// NewHTTPProviderClient constructs the default ProviderClient.
func NewHTTPProviderClient(cfg ExchangeConfig, client *http.Client) *HTTPProviderClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPProviderClient{cfg: cfg, httpClient: client}
}

// ExchangeCode performs the authorization-code + PKCE exchange. Confidential
// Twitter clients authenticate with Basic auth on this endpoint.
func (c *HTTPProviderClient) ExchangeCode(ctx context.Context, code, codeVerifier string) (*domainoauth.Token, error) {
	if strings.TrimSpace(c.cfg.TokenURL) == "" {
		return nil, fmt.Errorf("token url missing")
	}
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", c.cfg.RedirectURI)
	data.Set("client_id", c.cfg.ClientID)
	data.Set("code_verifier", codeVerifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.cfg.ClientSecret != "" {
		req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("token exchange failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var token domainoauth.Token
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}
	return &token, nil
}
