package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	oauthadapter "github.com/eharris128/mycontentbuddy/internal/adapter/oauth"
	"github.com/eharris128/mycontentbuddy/internal/config"
	domainoauth "github.com/eharris128/mycontentbuddy/internal/domain/oauth"
	"github.com/eharris128/mycontentbuddy/internal/store"
)

// OAuthService drives the PKCE authorization-code flow against Twitter and
// the sync-token handoff that moves the resulting token into a session.
type OAuthService interface {
	StartAuthorization(ctx context.Context, redirectPath string) (string, error)
	HandleCallback(ctx context.Context, code, state string) (*domainoauth.Token, string, error)
	CreateHandoff(ctx context.Context, token *domainoauth.Token) (string, error)
	ConsumeHandoff(ctx context.Context, syncToken string) (*domainoauth.Token, error)
}

const (
	statePrefix = "oauth:state:"
	syncPrefix  = "oauth:sync:"
)

// scopes is the fixed scope list: read/write tweets, read the user, and
// offline access for the (unused, see DESIGN.md) refresh token.
var scopes = []string{"tweet.read", "tweet.write", "users.read", "offline.access"}

type oauthService struct {
	cfg        config.Config
	stateStore store.Store
	provider   oauthadapter.ProviderClient
	logger     *zap.Logger
	now        func() time.Time
}

// NewOAuthService wires the OAuth service implementation.
func NewOAuthService(cfg config.Config, stateStore store.Store, provider oauthadapter.ProviderClient, logger *zap.Logger) OAuthService {
	if logger == nil {
		logger = zap.L()
	}
	return &oauthService{
		cfg:        cfg,
		stateStore: stateStore,
		provider:   provider,
		logger:     logger,
		now:        time.Now,
	}
}

// StartAuthorization generates the state and PKCE pair, persists them, and
// returns the provider authorization URL to redirect the browser to.
func (s *oauthService) StartAuthorization(ctx context.Context, redirectPath string) (string, error) {
	if !s.cfg.OAuthConfigured() {
		return "", domainoauth.ErrConfigIncomplete
	}

	state, err := secureRandomString(32)
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	codeVerifier, err := secureRandomString(64)
	if err != nil {
		return "", fmt.Errorf("generate pkce verifier: %w", err)
	}

	authURL, err := url.Parse(s.cfg.TwitterAuthURL)
	if err != nil {
		return "", fmt.Errorf("parse auth url: %w", err)
	}
	params := authURL.Query()
	params.Set("response_type", "code")
	params.Set("client_id", s.cfg.TwitterClientID)
	params.Set("redirect_uri", s.cfg.TwitterRedirectURI)
	params.Set("scope", strings.Join(scopes, " "))
	params.Set("state", state)
	params.Set("code_challenge", pkceChallenge(codeVerifier))
	params.Set("code_challenge_method", "S256")
	authURL.RawQuery = params.Encode()

	payload, err := json.Marshal(domainoauth.AuthorizationState{
		State:        state,
		CodeVerifier: codeVerifier,
		RedirectPath: normalizeRedirectPath(redirectPath),
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("encode state: %w", err)
	}
	// The state pair MUST be store-backed; if the store is down the flow
	// fails here and the user simply restarts login.
	if err := s.stateStore.Set(ctx, statePrefix+state, payload, s.cfg.StateTTL); err != nil {
		return "", fmt.Errorf("persist state: %w", err)
	}

	return authURL.String(), nil
}

// HandleCallback validates the callback and exchanges the code for a token.
// The state entry is deleted on lookup, before any network call, so a
// replayed callback can never complete a second exchange.
func (s *oauthService) HandleCallback(ctx context.Context, code, state string) (*domainoauth.Token, string, error) {
	if strings.TrimSpace(code) == "" || strings.TrimSpace(state) == "" {
		return nil, "", domainoauth.ErrInvalidCallback
	}

	stateKey := statePrefix + state
	raw, err := s.stateStore.Get(ctx, stateKey)
	if err != nil {
		// Fail closed: without the verifier there is nothing safe to do.
		s.logger.Warn("state store unavailable during callback", zap.Error(err))
		return nil, "", domainoauth.ErrUnknownState
	}
	if raw == nil {
		return nil, "", domainoauth.ErrUnknownState
	}
	// Single use, regardless of the exchange outcome.
	if err := s.stateStore.Delete(ctx, stateKey); err != nil {
		s.logger.Warn("failed to delete oauth state", zap.Error(err))
	}

	var authState domainoauth.AuthorizationState
	if err := json.Unmarshal(raw, &authState); err != nil {
		return nil, "", domainoauth.ErrUnknownState
	}

	token, err := s.provider.ExchangeCode(ctx, code, authState.CodeVerifier)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domainoauth.ErrTokenExchangeFailed, err)
	}
	return token, authState.RedirectPath, nil
}

// CreateHandoff parks the token behind a single-use sync token that can
// travel in a redirect URL across the callback/SPA origin boundary.
func (s *oauthService) CreateHandoff(ctx context.Context, token *domainoauth.Token) (string, error) {
	if token == nil || token.AccessToken == "" {
		return "", fmt.Errorf("handoff requires a token")
	}
	syncToken, err := secureRandomString(32)
	if err != nil {
		return "", fmt.Errorf("generate sync token: %w", err)
	}
	payload, err := json.Marshal(domainoauth.SyncHandoff{Token: *token, IssuedAt: s.now().UTC()})
	if err != nil {
		return "", fmt.Errorf("encode handoff: %w", err)
	}
	if err := s.stateStore.Set(ctx, syncPrefix+syncToken, payload, s.cfg.SyncTokenTTL); err != nil {
		return "", fmt.Errorf("persist handoff: %w", err)
	}
	return syncToken, nil
}

// ConsumeHandoff redeems a sync token exactly once.
func (s *oauthService) ConsumeHandoff(ctx context.Context, syncToken string) (*domainoauth.Token, error) {
	if strings.TrimSpace(syncToken) == "" {
		return nil, domainoauth.ErrUnknownSyncToken
	}
	key := syncPrefix + syncToken
	raw, err := s.stateStore.Get(ctx, key)
	if err != nil {
		s.logger.Warn("sync store unavailable", zap.Error(err))
		return nil, domainoauth.ErrUnknownSyncToken
	}
	if raw == nil {
		return nil, domainoauth.ErrUnknownSyncToken
	}

	var handoff domainoauth.SyncHandoff
	if err := json.Unmarshal(raw, &handoff); err != nil {
		s.deleteHandoff(ctx, key)
		return nil, domainoauth.ErrUnknownSyncToken
	}
	if s.now().Sub(handoff.IssuedAt) > s.cfg.SyncTokenTTL {
		s.deleteHandoff(ctx, key)
		return nil, domainoauth.ErrExpiredSyncToken
	}

	s.deleteHandoff(ctx, key)
	token := handoff.Token
	return &token, nil
}

func (s *oauthService) deleteHandoff(ctx context.Context, key string) {
	if err := s.stateStore.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete sync handoff", zap.Error(err))
	}
}

func normalizeRedirectPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || !strings.HasPrefix(path, "/") {
		return "/"
	}
	return path
}

func secureRandomString(size int) (string, error) {
	if size <= 0 {
		size = 32
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func pkceChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
