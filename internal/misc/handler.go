package misc

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/2beens/portfoliocms/internal/auth"
	"github.com/2beens/portfoliocms/internal/middleware"
	"github.com/2beens/portfoliocms/internal/telemetry/metrics"
	"github.com/2beens/portfoliocms/internal/telemetry/tracing"
	"github.com/2beens/portfoliocms/pkg"
)

const (
	MsgResetEmailSent   = "Check your email for the password reset link"
	MsgPasswordUpdated  = "Password updated successfully"
	MsgWrongCredentials = "Invalid login credentials"

	authCallbackPath  = "/auth/callback"
	defaultAfterLogin = "/admin"
)

type credentialsRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	RedirectedFrom string `json:"redirectedFrom"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type updatePasswordRequest struct {
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
}

type SessionResponse struct {
	Token     string    `json:"token,omitempty"`
	Email     string    `json:"email"`
	Recovery  bool      `json:"recovery"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Handler struct {
	versionInfo    string
	siteURL        string
	secureCookies  bool
	sessionTTL     time.Duration
	authService    *auth.Service
	metricsManager *metrics.Manager
	// ability to inject the clock (for unit testing)
	now func() time.Time
}

func NewHandler(
	versionInfo string,
	siteURL string,
	secureCookies bool,
	authService *auth.Service,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		versionInfo:    versionInfo,
		siteURL:        strings.TrimSuffix(siteURL, "/"),
		secureCookies:  secureCookies,
		sessionTTL:     auth.DefaultTTL,
		authService:    authService,
		metricsManager: metricsManager,
		now:            time.Now,
	}
}

func (handler *Handler) SetupRoutes(
	mainRouter *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	allowedPerMin int,
	allowedOrigins []string,
) {
	mainRouter.HandleFunc("/api/myip", handler.handleGetMyIp).Methods("GET").Name("myip")
	mainRouter.HandleFunc("/api/version", handler.handleGetVersionInfo).Methods("GET").Name("version")

	authSubrouter := mainRouter.PathPrefix("/api/auth").Subrouter()
	authSubrouter.
		HandleFunc("/sign-in", handler.handleSignIn).
		Methods("POST", "OPTIONS").Name("sign-in")
	authSubrouter.
		HandleFunc("/sign-out", handler.handleSignOut).
		Methods("POST", "OPTIONS").Name("sign-out")
	authSubrouter.
		HandleFunc("/session", handler.handleSession).
		Methods("GET", "OPTIONS").Name("session")
	authSubrouter.
		HandleFunc("/reset-password", handler.handleResetPassword).
		Methods("POST", "OPTIONS").Name("reset-password")
	authSubrouter.
		HandleFunc("/update-password", handler.handleUpdatePassword).
		Methods("POST", "OPTIONS").Name("update-password")

	// rate limit the auth endpoints to prevent abuse
	authSubrouter.Use(middleware.RateLimit(rateLimiter, "auth", allowedPerMin, handler.metricsManager))
	authSubrouter.Use(middleware.Cors(allowedOrigins))
}

func (handler *Handler) handleGetMyIp(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.myip")
	defer span.End()

	ip, err := pkg.ReadUserIP(r)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		http.Error(w, "failed to get user IP address", http.StatusInternalServerError)
		return
	}

	span.SetAttributes(attribute.String("user.ip", ip))
	pkg.WriteTextResponseOK(w, ip)
}

func (handler *Handler) handleGetVersionInfo(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, handler.versionInfo)
}

func (handler *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.signIn")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var req credentialsRequest
	isForm, err := decodeRequest(r, &req, func(form url.Values) {
		req = credentialsRequest{
			Email:          form.Get("email"),
			Password:       form.Get("password"),
			RedirectedFrom: form.Get("redirectedFrom"),
		}
	})
	if err != nil {
		log.Errorf("sign in, decode request: %s", err)
		http.Error(w, "sign in failed", http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		handler.fail(w, r, isForm, "/login", "Email and password are required", http.StatusBadRequest)
		return
	}

	session, err := handler.authService.SignIn(ctx, req.Email, req.Password, handler.now())
	if err != nil {
		if errors.Is(err, auth.ErrWrongCredentials) {
			log.Tracef("failed sign in attempt for: %s", req.Email)
			handler.countLogin("failure")
			handler.fail(w, r, isForm, "/login", MsgWrongCredentials, http.StatusBadRequest)
			return
		}
		log.Errorf("sign in failed: %s", err)
		handler.countLogin("error")
		http.Error(w, "sign in failed", http.StatusInternalServerError)
		return
	}

	handler.countLogin("success")
	auth.SetSessionCookie(w, session, handler.sessionTTL, handler.secureCookies)
	log.Trace("new sign in success")

	if isForm {
		http.Redirect(w, r, SafeRedirectPath(req.RedirectedFrom, defaultAfterLogin), http.StatusSeeOther)
		return
	}
	pkg.WriteJSON(w, handler.sessionResponse(session, true), http.StatusOK)
}

func (handler *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.signOut")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	token := auth.TokenFromRequest(r)
	if token == "" {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	auth.ClearSessionCookie(w, handler.secureCookies)
	if err := handler.authService.SignOut(ctx, token); err != nil {
		log.Tracef("[failed sign out] => %s: %s", r.URL.Path, err)
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	if !isJSON(r) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	pkg.WriteTextResponseOK(w, "signed-out")
}

func (handler *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.session")
	defer span.End()

	session, err := handler.authService.GetSession(ctx, auth.TokenFromRequest(r))
	if err != nil {
		if !errors.Is(err, auth.ErrSessionNotFound) && !errors.Is(err, auth.ErrSessionExpired) {
			log.Errorf("get session: %s", err)
		}
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	pkg.WriteJSON(w, handler.sessionResponse(session, false), http.StatusOK)
}

func (handler *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.resetPassword")
	defer span.End()

	var req resetRequest
	isForm, err := decodeRequest(r, &req, func(form url.Values) {
		req = resetRequest{Email: form.Get("email")}
	})
	if err != nil {
		http.Error(w, "reset password failed", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		handler.fail(w, r, isForm, "/login", "Email is required", http.StatusBadRequest)
		return
	}

	redirectTo := handler.siteURL + authCallbackPath
	if err := handler.authService.RequestPasswordReset(ctx, req.Email, redirectTo); err != nil {
		log.Errorf("request password reset: %s", err)
		handler.fail(w, r, isForm, "/login", "Failed to send the password reset email", http.StatusInternalServerError)
		return
	}

	if isForm {
		http.Redirect(w, r, "/login?message="+url.QueryEscape(MsgResetEmailSent), http.StatusSeeOther)
		return
	}
	pkg.WriteTextResponseOK(w, MsgResetEmailSent)
}

func (handler *Handler) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.updatePassword")
	defer span.End()

	var req updatePasswordRequest
	isForm, err := decodeRequest(r, &req, func(form url.Values) {
		req = updatePasswordRequest{
			Password: form.Get("password"),
			Confirm:  form.Get("confirm"),
		}
	})
	if err != nil {
		http.Error(w, "update password failed", http.StatusBadRequest)
		return
	}

	err = handler.authService.UpdatePassword(ctx, auth.TokenFromRequest(r), req.Password, req.Confirm)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrPasswordsDoNotMatch), errors.Is(err, auth.ErrPasswordTooShort):
		handler.fail(w, r, isForm, "/reset-password", err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, auth.ErrSessionNotFound), errors.Is(err, auth.ErrSessionExpired):
		handler.fail(w, r, isForm, "/login", "Your session has expired, please sign in again", http.StatusUnauthorized)
		return
	default:
		log.Errorf("update password: %s", err)
		http.Error(w, "update password failed", http.StatusInternalServerError)
		return
	}

	if isForm {
		http.Redirect(w, r, defaultAfterLogin, http.StatusSeeOther)
		return
	}
	pkg.WriteTextResponseOK(w, MsgPasswordUpdated)
}

func (handler *Handler) sessionResponse(session *auth.Session, withToken bool) SessionResponse {
	resp := SessionResponse{
		Email:     session.Email,
		Recovery:  session.Recovery,
		ExpiresAt: session.ExpiresAt(handler.sessionTTL).UTC(),
	}
	if withToken {
		resp.Token = session.Token
	}
	return resp
}

// fail answers form posts with a redirect back to the page carrying the message, and API
// calls with a plain error.
func (handler *Handler) fail(w http.ResponseWriter, r *http.Request, isForm bool, page, message string, statusCode int) {
	if !isForm {
		http.Error(w, message, statusCode)
		return
	}
	http.Redirect(w, r, page+"?error="+url.QueryEscape(message), http.StatusSeeOther)
}

func (handler *Handler) countLogin(result string) {
	if handler.metricsManager != nil {
		handler.metricsManager.CounterLogins.WithLabelValues(result).Inc()
	}
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func decodeRequest(r *http.Request, jsonDst any, fromForm func(form url.Values)) (bool, error) {
	if isJSON(r) {
		return false, json.NewDecoder(r.Body).Decode(jsonDst)
	}
	if err := r.ParseForm(); err != nil {
		return true, err
	}
	fromForm(r.Form)
	return true, nil
}

// SafeRedirectPath returns target when it is a local absolute path, fallback otherwise.
func SafeRedirectPath(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return fallback
	}
	return target
}
