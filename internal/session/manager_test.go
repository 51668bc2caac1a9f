package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainoauth "github.com/eharris128/mycontentbuddy/internal/domain/oauth"
	"github.com/eharris128/mycontentbuddy/internal/store"
)

func newTestManager() *Manager {
	return NewManager(store.NewMemory(), "test-secret", 24*time.Hour)
}

func requestWithCookies(t *testing.T, rec *httptest.ResponseRecorder) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestManager_EnsureRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	rec := httptest.NewRecorder()
	created, err := m.Ensure(ctx, rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.False(t, created.Authenticated())

	loaded, err := m.Load(ctx, requestWithCookies(t, rec))
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, created.ID, loaded.ID)
}

func TestManager_TokenSurvivesSave(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	rec := httptest.NewRecorder()
	sess, err := m.Ensure(ctx, rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	sess.Token = &domainoauth.Token{AccessToken: "at", RefreshToken: "rt", TokenType: "bearer"}
	require.NoError(t, m.Save(ctx, sess))

	loaded, err := m.Load(ctx, requestWithCookies(t, rec))
	require.NoError(t, err)
	require.True(t, loaded.Authenticated())
	require.Equal(t, "at", loaded.Token.AccessToken)
}

func TestManager_TamperedCookieIgnored(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	rec := httptest.NewRecorder()
	sess, err := m.Ensure(ctx, rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "mcb_session", Value: sess.ID + "|forged-signature"})
	loaded, err := m.Load(ctx, req)
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestManager_DestroyIsServerSide(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	rec := httptest.NewRecorder()
	sess, err := m.Ensure(ctx, rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	require.NoError(t, m.Destroy(ctx, httptest.NewRecorder(), sess))

	// The old cookie still verifies, but the server-side record is gone.
	loaded, err := m.Load(ctx, requestWithCookies(t, rec))
	require.NoError(t, err)
	require.Nil(t, loaded)
}
