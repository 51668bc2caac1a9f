package session

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	domainoauth "github.com/eharris128/mycontentbuddy/internal/domain/oauth"
	"github.com/eharris128/mycontentbuddy/internal/store"
)

const cookieName = "mcb_session"

const keyPrefix = "session:"

// Session is the durable per-browser state. One-to-one with a cookie; holds
// the OAuth token once materialized, plus the Twitter user id once the first
// profile fetch discovered it.
type Session struct {
	ID            string             `json:"id"`
	Token         *domainoauth.Token `json:"token,omitempty"`
	TwitterUserID string             `json:"twitter_user_id,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// Authenticated reports whether the session holds a usable token.
func (s *Session) Authenticated() bool {
	return s != nil && s.Token != nil && s.Token.AccessToken != ""
}

// Manager keeps sessions server-side in the shared store; the browser cookie
// carries only the signed session id, so logout is a server-side delete.
type Manager struct {
	store  store.Store
	secret []byte
	ttl    time.Duration
}

// NewManager constructs a Manager signing cookies with secret.
func NewManager(st store.Store, secret string, ttl time.Duration) *Manager {
	return &Manager{store: st, secret: []byte(secret), ttl: ttl}
}

// Load resolves the session referenced by the request cookie. A missing,
// tampered, or expired cookie reads as no session; only a store failure is
// an error.
func (m *Manager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return nil, nil
	}
	id, ok := m.verifyCookieValue(cookie.Value)
	if !ok {
		return nil, nil
	}
	raw, err := m.store.Get(ctx, keyPrefix+id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, nil
	}
	return &sess, nil
}

// Ensure returns the request's session, creating and binding a fresh one
// when none exists.
func (m *Manager) Ensure(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Session, error) {
	sess, err := m.Load(ctx, r)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		return sess, nil
	}

	id, err := randomID()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	sess = &Session{ID: id, CreatedAt: time.Now().UTC()}
	if err := m.Save(ctx, sess); err != nil {
		return nil, err
	}
	m.setCookie(w, r, id)
	return sess, nil
}

// Save persists the session with the configured TTL.
func (m *Manager) Save(ctx context.Context, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, keyPrefix+sess.ID, raw, m.ttl); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// Destroy invalidates the session server-side and clears the cookie. The
// store delete is the part that matters; the cookie clear is a courtesy.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if sess != nil {
		if err := m.store.Delete(ctx, keyPrefix+sess.ID); err != nil {
			return fmt.Errorf("destroy session: %w", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *Manager) setCookie(w http.ResponseWriter, r *http.Request, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id + "|" + m.sign(id),
		Path:     "/",
		Expires:  time.Now().Add(m.ttl),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) verifyCookieValue(value string) (string, bool) {
	parts := strings.Split(value, "|")
	if len(parts) != 2 {
		return "", false
	}
	id, sig := parts[0], parts[1]
	if !hmac.Equal([]byte(sig), []byte(m.sign(id))) {
		return "", false
	}
	return id, true
}

func (m *Manager) sign(message string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(message))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func randomID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
