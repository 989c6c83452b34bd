package ident

import (
	"encoding/base64"
	"strings"
)

// AuthScheme is the credential scheme accepted on the command line.
type AuthScheme string

const (
	SchemeBasic  AuthScheme = "basic"
	SchemeBearer AuthScheme = "bearer"
	SchemeToken  AuthScheme = "token"
)

// AuthToken is a parsed "scheme:secret" credential.
type AuthToken struct {
	Scheme AuthScheme
	Secret string
}

// ParseAuthToken splits s on its first colon.
// It returns ok == false if there is no colon, the secret is empty or the
// scheme is not one of basic, bearer or token. Everything after the first
// colon is the secret.
func ParseAuthToken(s string) (AuthToken, bool) {
	scheme, secret, found := strings.Cut(s, ":")
	if !found || secret == "" {
		return AuthToken{}, false
	}
	switch AuthScheme(scheme) {
	case SchemeBasic, SchemeBearer, SchemeToken:
	default:
		return AuthToken{}, false
	}
	return AuthToken{Scheme: AuthScheme(scheme), Secret: secret}, true
}

// Authorization renders the value of the Authorization request header.
// Basic secrets are "user:password" pairs and are base64 encoded.
func (t AuthToken) Authorization() string {
	switch t.Scheme {
	case SchemeBasic:
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(t.Secret))
	case SchemeBearer:
		return "Bearer " + t.Secret
	default:
		return "token " + t.Secret
	}
}
