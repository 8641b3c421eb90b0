package test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/2beens/portfoliocms/internal/auth"
	"github.com/2beens/portfoliocms/internal/misc"
)

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func signIn(ctx context.Context, t *testing.T, client *http.Client, endpoint, email, password string) *http.Response {
	body, err := json.Marshal(signInRequest{Email: email, Password: password})
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint+"/api/auth/sign-in", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

// doLogin signs the admin in and returns the session token.
func doLogin(ctx context.Context, t *testing.T, client *http.Client, endpoint, email, password string) string {
	resp := signIn(ctx, t, client, endpoint, email, password)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var session misc.SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	require.NotEmpty(t, session.Token)

	return session.Token
}

func authorized(req *http.Request, token string) *http.Request {
	req.Header.Set(auth.TokenHeader, token)
	return req
}
