package domain

import "slices"

// Principal is the caller identified by a validated bearer token.
type Principal struct {
	ID     string
	Scopes []string
}

// HasScope reports whether the principal has the given scope.
func (p Principal) HasScope(s string) bool {
	return slices.Contains(p.Scopes, s)
}

// TokenPair is returned by the token minting tool.
type TokenPair struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}
