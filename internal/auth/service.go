package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/portfoliocms/internal/mailer"
	"github.com/2beens/portfoliocms/internal/telemetry/tracing"
	"github.com/2beens/portfoliocms/pkg"
)

type Service struct {
	admin       *Admin
	redisClient *redis.Client
	ttl         time.Duration
	mailer      mailer.Mailer

	// ability to inject random string generator func for tokens (for unit and dev testing)
	RandStringFunc   func(s int) (string, error)
	HashPasswordFunc func(password string) (string, error)

	listenersMutex sync.RWMutex
	listeners      map[int]func(SessionChange)
	nextListenerID int
}

func NewAuthService(
	admin *Admin,
	ttl time.Duration,
	redisClient *redis.Client,
	mailer mailer.Mailer,
) *Service {
	return &Service{
		admin:            admin,
		ttl:              ttl,
		redisClient:      redisClient,
		mailer:           mailer,
		RandStringFunc:   pkg.GenerateRandomString,
		HashPasswordFunc: pkg.HashPassword,
		listeners:        map[int]func(SessionChange){},
	}
}

// OnSessionChange registers fn for session events. Listeners run synchronously, in no
// particular order. The returned func removes the listener.
func (as *Service) OnSessionChange(fn func(SessionChange)) (unsubscribe func()) {
	as.listenersMutex.Lock()
	id := as.nextListenerID
	as.nextListenerID++
	as.listeners[id] = fn
	as.listenersMutex.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			as.listenersMutex.Lock()
			delete(as.listeners, id)
			as.listenersMutex.Unlock()
		})
	}
}

func (as *Service) notify(event SessionEvent, token string) {
	as.listenersMutex.RLock()
	listeners := make([]func(SessionChange), 0, len(as.listeners))
	for _, l := range as.listeners {
		listeners = append(listeners, l)
	}
	as.listenersMutex.RUnlock()

	change := SessionChange{Event: event, Token: token}
	for _, l := range listeners {
		l(change)
	}
}

func (as *Service) SignIn(ctx context.Context, email, password string, createdAt time.Time) (*Session, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "authService.SignIn")
	defer span.End()

	if !strings.EqualFold(strings.TrimSpace(email), as.admin.Email) {
		return nil, ErrWrongCredentials
	}

	hash, err := as.passwordHash(ctx)
	if err != nil {
		return nil, err
	}
	if !pkg.CheckPasswordHash(password, hash) {
		return nil, ErrWrongCredentials
	}

	session, err := as.createSession(ctx, createdAt, false)
	if err != nil {
		return nil, err
	}

	as.notify(SessionSignedIn, session.Token)
	return session, nil
}

func (as *Service) passwordHash(ctx context.Context) (string, error) {
	hash, err := as.redisClient.Get(ctx, passwordHashKey).Result()
	if errors.Is(err, redis.Nil) {
		return as.admin.PasswordHash, nil
	}
	if err != nil {
		return "", fmt.Errorf("get password hash: %w", err)
	}
	return hash, nil
}

func (as *Service) createSession(ctx context.Context, createdAt time.Time, recovery bool) (*Session, error) {
	token, err := as.RandStringFunc(35)
	if err != nil {
		return nil, err
	}

	sessionKey := sessionKeyPrefix + token
	if err := as.redisClient.Set(ctx, sessionKey, sessionValue(createdAt, recovery), 0).Err(); err != nil {
		return nil, err
	}

	// add token to list of sessions
	if err := as.redisClient.SAdd(ctx, tokensSetKey, token).Err(); err != nil {
		return nil, err
	}

	return &Session{
		Token:     token,
		Email:     as.admin.Email,
		CreatedAt: time.Unix(createdAt.Unix(), 0),
		Recovery:  recovery,
	}, nil
}

// GetSession returns the live session for token. An expired session is removed and
// reported as ErrSessionExpired.
func (as *Service) GetSession(ctx context.Context, token string) (*Session, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "authService.GetSession")
	defer span.End()

	if token == "" {
		return nil, ErrSessionNotFound
	}

	value, err := as.redisClient.Get(ctx, sessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	createdAt, recovery, err := parseSessionValue(value)
	if err != nil {
		return nil, err
	}

	if time.Since(createdAt) > as.ttl {
		if err := as.removeSession(ctx, token); err != nil {
			log.Errorf("auth service, remove expired session: %s", err)
		}
		as.notify(SessionExpired, token)
		return nil, ErrSessionExpired
	}

	return &Session{
		Token:     token,
		Email:     as.admin.Email,
		CreatedAt: createdAt,
		Recovery:  recovery,
	}, nil
}

func (as *Service) SignOut(ctx context.Context, token string) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "authService.SignOut")
	defer span.End()

	deleted, err := as.redisClient.Del(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		return err
	}

	// remove token from the list of sessions
	if err := as.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
		return err
	}

	if deleted == 0 {
		return ErrSessionNotFound
	}

	as.notify(SessionSignedOut, token)
	return nil
}

// RequestPasswordReset mails a one hour recovery link to the admin. Unknown addresses are
// accepted silently.
func (as *Service) RequestPasswordReset(ctx context.Context, email, redirectTo string) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "authService.RequestPasswordReset")
	defer span.End()

	if !strings.EqualFold(strings.TrimSpace(email), as.admin.Email) {
		log.Warnf("password reset requested for unknown email [%s]", email)
		return nil
	}

	code, err := as.RandStringFunc(32)
	if err != nil {
		return err
	}

	link, err := resetLink(redirectTo, code)
	if err != nil {
		return err
	}

	if err := as.redisClient.Set(ctx, resetCodePrefix+code, as.admin.Email, ResetCodeTTL).Err(); err != nil {
		return fmt.Errorf("store reset code: %w", err)
	}

	return as.mailer.SendPasswordReset(ctx, as.admin.Email, link)
}

func resetLink(redirectTo, code string) (string, error) {
	u, err := url.Parse(redirectTo)
	if err != nil {
		return "", fmt.Errorf("parse redirect url: %w", err)
	}
	q := u.Query()
	q.Set("type", "recovery")
	q.Set("code", code)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ExchangeCode trades a reset code for a recovery session. Codes are single use.
func (as *Service) ExchangeCode(ctx context.Context, code string, createdAt time.Time) (*Session, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "authService.ExchangeCode")
	defer span.End()

	if code == "" {
		return nil, ErrInvalidResetCode
	}

	codeKey := resetCodePrefix + code
	if err := as.redisClient.Get(ctx, codeKey).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrInvalidResetCode
		}
		return nil, err
	}
	if err := as.redisClient.Del(ctx, codeKey).Err(); err != nil {
		return nil, err
	}

	session, err := as.createSession(ctx, createdAt, true)
	if err != nil {
		return nil, err
	}

	as.notify(SessionPasswordRecovery, session.Token)
	return session, nil
}

func ValidateNewPassword(password, confirm string) error {
	if password != confirm {
		return ErrPasswordsDoNotMatch
	}
	if len(password) < MinPasswordLen {
		return ErrPasswordTooShort
	}
	return nil
}

// UpdatePassword sets a new admin password for the holder of a live session. A recovery
// session becomes a regular one.
func (as *Service) UpdatePassword(ctx context.Context, token, password, confirm string) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "authService.UpdatePassword")
	defer span.End()

	if err := ValidateNewPassword(password, confirm); err != nil {
		return err
	}

	session, err := as.GetSession(ctx, token)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Bool("recovery", session.Recovery))

	hash, err := as.HashPasswordFunc(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := as.redisClient.Set(ctx, passwordHashKey, hash, 0).Err(); err != nil {
		return fmt.Errorf("store password hash: %w", err)
	}

	if session.Recovery {
		if err := as.redisClient.Set(ctx, sessionKeyPrefix+token, sessionValue(session.CreatedAt, false), 0).Err(); err != nil {
			return err
		}
	}

	as.notify(SessionPasswordUpdated, token)
	return nil
}

func (as *Service) removeSession(ctx context.Context, token string) error {
	if err := as.redisClient.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return err
	}
	return as.redisClient.SRem(ctx, tokensSetKey, token).Err()
}

// ScanAndClean will run through all sessions, check the TTL, and clean them if old
func (as *Service) ScanAndClean(ctx context.Context) {
	sessionTokens, err := as.redisClient.SMembers(ctx, tokensSetKey).Result()
	if err != nil {
		log.Errorf("!!! auth service, scan and clean, get sessions: %s", err)
		return
	}

	if len(sessionTokens) == 0 {
		log.Debugln("=> auth service, scan and clean abort, no sessions")
		return
	}

	log.Infof("=> auth service, scan and clean [%d sessions] start ...", len(sessionTokens))
	var toRemove []string
	for _, token := range sessionTokens {
		value, err := as.redisClient.Get(ctx, sessionKeyPrefix+token).Result()
		if errors.Is(err, redis.Nil) {
			// dangling set member
			toRemove = append(toRemove, token)
			continue
		}
		if err != nil {
			log.Errorf("=> auth service, scan and clean token %s: %s", token, err)
			continue
		}

		createdAt, _, err := parseSessionValue(value)
		if err != nil {
			log.Errorf("=> auth service, scan and clean token %s: %s", token, err)
			continue
		}

		if time.Since(createdAt) > as.ttl {
			log.Debugf("=>\twill clean the session with token: %s", token)
			toRemove = append(toRemove, token)
		}
	}

	for _, token := range toRemove {
		if err := as.removeSession(ctx, token); err != nil {
			log.Errorf("=> auth service, clean token %s: %s", token, err)
			continue
		}
		as.notify(SessionExpired, token)
	}
}
