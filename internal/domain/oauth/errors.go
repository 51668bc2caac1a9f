package oauth

import "errors"

var (
	// ErrConfigIncomplete signals missing Twitter app credentials; it disables
	// the OAuth routes without taking down the process.
	ErrConfigIncomplete = errors.New("oauth: client configuration incomplete")
	// ErrInvalidCallback indicates a callback missing its code or state.
	ErrInvalidCallback = errors.New("oauth: invalid callback")
	// ErrUnknownState indicates the state has no stored verifier: expired,
	// replayed, or never issued.
	ErrUnknownState = errors.New("oauth: unknown state")
	// ErrTokenExchangeFailed indicates the provider rejected the code exchange.
	ErrTokenExchangeFailed = errors.New("oauth: token exchange failed")
	// ErrUnknownSyncToken indicates a sync token that was never issued or was
	// already consumed.
	ErrUnknownSyncToken = errors.New("oauth: unknown sync token")
	// ErrExpiredSyncToken indicates a sync token past its handoff window.
	ErrExpiredSyncToken = errors.New("oauth: expired sync token")
	// ErrUnauthenticated indicates the session carries no token.
	ErrUnauthenticated = errors.New("oauth: unauthenticated")
)
