package oauth

import "time"

// Token is the access/refresh pair issued by the provider's token endpoint.
// It lives inside a session and is never persisted anywhere else.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
}

// AuthorizationState is the state/verifier tuple persisted while the browser
// is away at the provider. Single-use: the callback deletes it on lookup,
// whatever the exchange outcome.
type AuthorizationState struct {
	State        string    `json:"state"`
	CodeVerifier string    `json:"code_verifier"`
	RedirectPath string    `json:"redirect_path"`
	CreatedAt    time.Time `json:"created_at"`
}

// SyncHandoff carries a freshly exchanged token across the origin boundary
// between the callback and the SPA's session cookie. Single-use, short-lived.
type SyncHandoff struct {
	Token    Token     `json:"token"`
	IssuedAt time.Time `json:"issued_at"`
}
