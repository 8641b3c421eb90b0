package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultTTL       = 24 * 7 * time.Hour
	ResetCodeTTL     = time.Hour
	MinPasswordLen   = 6
	sessionKeyPrefix = "portfolio-session||"
	tokensSetKey     = "portfolio-sessions"
	resetCodePrefix  = "portfolio-reset-code||"
	// a password set through the reset flow overrides the configured hash
	passwordHashKey = "portfolio-admin-password-hash"

	recoverySuffix = "|recovery"
)

var (
	ErrWrongCredentials    = errors.New("invalid login credentials")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionExpired      = errors.New("session expired")
	ErrInvalidResetCode    = errors.New("invalid or expired reset code")
	ErrPasswordsDoNotMatch = errors.New("Passwords do not match")
	ErrPasswordTooShort    = fmt.Errorf("Password must be at least %d characters", MinPasswordLen)
)

type Admin struct {
	Email        string
	PasswordHash string
}

type Session struct {
	Token     string
	Email     string
	CreatedAt time.Time
	// Recovery sessions come from a password reset link.
	Recovery bool
}

func (s *Session) ExpiresAt(ttl time.Duration) time.Time {
	return s.CreatedAt.Add(ttl)
}

type SessionEvent string

const (
	SessionSignedIn         SessionEvent = "SIGNED_IN"
	SessionSignedOut        SessionEvent = "SIGNED_OUT"
	SessionExpired          SessionEvent = "EXPIRED"
	SessionPasswordRecovery SessionEvent = "PASSWORD_RECOVERY"
	SessionPasswordUpdated  SessionEvent = "PASSWORD_UPDATED"
)

type SessionChange struct {
	Event SessionEvent
	Token string
}

func sessionValue(createdAt time.Time, recovery bool) string {
	v := strconv.FormatInt(createdAt.Unix(), 10)
	if recovery {
		v += recoverySuffix
	}
	return v
}

func parseSessionValue(v string) (time.Time, bool, error) {
	recovery := strings.HasSuffix(v, recoverySuffix)
	createdAtUnix, err := strconv.ParseInt(strings.TrimSuffix(v, recoverySuffix), 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse session value [%s]: %w", v, err)
	}
	return time.Unix(createdAtUnix, 0), recovery, nil
}
