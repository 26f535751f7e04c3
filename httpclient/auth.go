package httpclient

import "net/http"

// AuthConfig adds credentials to every request.
type AuthConfig struct {
	// Token is sent as "Authorization: Bearer <token>" when set.
	Token string
	// Header and Key send an API key in a custom header.
	Header string
	Key    string
}

func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Token: token}
}

func APIKeyAuth(header, key string) *AuthConfig {
	return &AuthConfig{Header: header, Key: key}
}

func (a *AuthConfig) apply(req *http.Request) {
	if a == nil {
		return
	}
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}
	if a.Header != "" && a.Key != "" {
		req.Header.Set(a.Header, a.Key)
	}
}
