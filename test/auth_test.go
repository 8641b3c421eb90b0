//go:build integration_test || all_tests

package test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/2beens/portfoliocms/internal/misc"
)

func (s *IntegrationTestSuite) TestAuth_SignInSessionSignOut() {
	ctx := context.Background()
	t := s.T()

	resp := signIn(ctx, t, s.httpClient, serverEndpoint, testEmail, "wrong-password")
	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Require().NoError(resp.Body.Close())
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Contains(string(body), misc.MsgWrongCredentials)

	token := doLogin(ctx, t, s.httpClient, serverEndpoint, testEmail, testPassword)

	req, err := http.NewRequestWithContext(ctx, "GET", serverEndpoint+"/api/auth/session", nil)
	s.Require().NoError(err)
	resp, err = s.httpClient.Do(authorized(req, token))
	s.Require().NoError(err)
	var session misc.SessionResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&session))
	s.Require().NoError(resp.Body.Close())
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(testEmail, session.Email)
	s.False(session.Recovery)

	req, err = http.NewRequestWithContext(ctx, "GET", serverEndpoint+"/api/admin/stats", nil)
	s.Require().NoError(err)
	resp, err = s.httpClient.Do(authorized(req, token))
	s.Require().NoError(err)
	s.Require().NoError(resp.Body.Close())
	s.Equal(http.StatusOK, resp.StatusCode)

	req, err = http.NewRequestWithContext(ctx, "POST", serverEndpoint+"/api/auth/sign-out", nil)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	resp, err = s.httpClient.Do(authorized(req, token))
	s.Require().NoError(err)
	s.Require().NoError(resp.Body.Close())
	s.Equal(http.StatusOK, resp.StatusCode)

	// the checker cache is evicted on sign out
	req, err = http.NewRequestWithContext(ctx, "GET", serverEndpoint+"/api/admin/stats", nil)
	s.Require().NoError(err)
	resp, err = s.httpClient.Do(authorized(req, token))
	s.Require().NoError(err)
	s.Require().NoError(resp.Body.Close())
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestAuth_AdminPageRedirectsToLogin() {
	resp, err := s.httpClient.Get(serverEndpoint + "/admin/new")
	s.Require().NoError(err)
	s.Require().NoError(resp.Body.Close())

	s.Equal(http.StatusFound, resp.StatusCode)
	s.Equal("/login?redirectedFrom=%2Fadmin%2Fnew", resp.Header.Get("Location"))
}
