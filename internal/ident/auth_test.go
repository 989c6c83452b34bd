package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAuthTokenValid(t *testing.T) {
	tests := []struct {
		input  string
		scheme AuthScheme
		secret string
	}{
		{"basic:user:password", SchemeBasic, "user:password"},
		{"bearer:abc123", SchemeBearer, "abc123"},
		{"token:ghp_x", SchemeToken, "ghp_x"},
		{"token:a:b:c::", SchemeToken, "a:b:c::"},
		{"basic: spaced secret ", SchemeBasic, " spaced secret "},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok, ok := ParseAuthToken(tt.input)
			assert.True(t, ok)
			assert.Equal(t, tt.scheme, tok.Scheme)
			assert.Equal(t, tt.secret, tok.Secret)
		})
	}
}

func TestParseAuthTokenInvalid(t *testing.T) {
	inputs := []string{
		"",
		"bearer",
		"bearer:",
		"basic:",
		"nocolon",
		"Bearer:abc",
		"digest:abc",
		":abc",
		" basic:abc",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, ok := ParseAuthToken(in)
				assert.False(t, ok)
			})
		})
	}
}

func TestAuthorizationHeader(t *testing.T) {
	basic, _ := ParseAuthToken("basic:user:pass")
	assert.Equal(t, "Basic dXNlcjpwYXNz", basic.Authorization())

	bearer, _ := ParseAuthToken("bearer:abc")
	assert.Equal(t, "Bearer abc", bearer.Authorization())

	token, _ := ParseAuthToken("token:xyz")
	assert.Equal(t, "token xyz", token.Authorization())
}
