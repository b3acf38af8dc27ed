package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gitlabClientID = "backoffice"

// fakeGitLab serves discovery, keys and a token endpoint that accepts one code.
func fakeGitLab(t *testing.T, claims jwt.MapClaims) *httptest.Server {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"issuer":                                srv.URL,
			"authorization_endpoint":                srv.URL + "/oauth/authorize",
			"token_endpoint":                        srv.URL + "/oauth/token",
			"jwks_uri":                              srv.URL + "/oauth/discovery/keys",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	mux.HandleFunc("/oauth/discovery/keys", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"keys": []map[string]string{{
			"kty": "RSA",
			"alg": "RS256",
			"use": "sig",
			"kid": "k1",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	})
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		full := jwt.MapClaims{
			"iss": srv.URL,
			"aud": gitlabClientID,
			"exp": time.Now().Add(time.Hour).Unix(),
			"iat": time.Now().Unix(),
		}
		for k, v := range claims {
			full[k] = v
		}
		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, full)
		tok.Header["kid"] = "k1"
		raw, err := tok.SignedString(key)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{
			"access_token": "access",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     raw,
		})
	})
	return srv
}

func TestGitLab_ExchangeVerifiesIDToken(t *testing.T) {
	srv := fakeGitLab(t, jwt.MapClaims{
		"sub":                "17",
		"preferred_username": "erin",
		"name":               "Erin",
		"email":              "erin@example.com",
	})
	g := NewGitLab(srv.URL+"/", gitlabClientID, "secret", "https://backoffice.example.com/admin/login/gitlab/callback")

	u, err := g.AuthCodeURL(context.Background(), "state-1")
	require.NoError(t, err)
	parsed, err := url.Parse(u)
	require.NoError(t, err)
	assert.Equal(t, "/oauth/authorize", parsed.Path)
	assert.Equal(t, "state-1", parsed.Query().Get("state"))
	assert.Equal(t, gitlabClientID, parsed.Query().Get("client_id"))
	assert.Contains(t, parsed.Query().Get("scope"), "openid")

	ident, err := g.Exchange(context.Background(), "good-code")
	require.NoError(t, err)
	assert.Equal(t, GitLabIdentity{Subject: "17", Username: "erin", Name: "Erin", Email: "erin@example.com"}, *ident)

	_, err = g.Exchange(context.Background(), "bad-code")
	require.Error(t, err)
}

func TestGitLab_RejectsForeignAudience(t *testing.T) {
	srv := fakeGitLab(t, jwt.MapClaims{"sub": "17", "aud": "someone-else"})
	g := NewGitLab(srv.URL, gitlabClientID, "secret", "https://backoffice.example.com/cb")

	_, err := g.Exchange(context.Background(), "good-code")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verify id_token")
}

func TestGitLab_DiscoveryFailureLeavesProviderUnset(t *testing.T) {
	g := NewGitLab("http://127.0.0.1:1", gitlabClientID, "secret", "https://backoffice.example.com/cb")
	_, err := g.AuthCodeURL(context.Background(), "s")
	require.Error(t, err)
	assert.Nil(t, g.verifier)
}
