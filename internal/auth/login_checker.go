package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/coocood/freecache"
	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const (
	checkerCacheSize = 1024 * 1024
	checkerCacheTTL  = 5 * time.Minute
)

// LoginChecker answers whether a token belongs to a live session. Positive answers are
// cached in memory for a few minutes.
type LoginChecker struct {
	ttl         time.Duration
	redisClient *redis.Client
	cache       *freecache.Cache
}

func NewLoginChecker(ttl time.Duration, redisClient *redis.Client) *LoginChecker {
	return &LoginChecker{
		ttl:         ttl,
		redisClient: redisClient,
		cache:       freecache.NewCache(checkerCacheSize),
	}
}

func (lc *LoginChecker) IsLogged(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	if cached, err := lc.cache.Get([]byte(token)); err == nil {
		createdAtUnix, err := strconv.ParseInt(string(cached), 10, 64)
		if err == nil && time.Since(time.Unix(createdAtUnix, 0)) <= lc.ttl {
			return true, nil
		}
		lc.Forget(token)
	}

	value, err := lc.redisClient.Get(ctx, sessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	createdAt, _, err := parseSessionValue(value)
	if err != nil {
		return false, err
	}

	remaining := lc.ttl - time.Since(createdAt)
	if remaining <= 0 {
		return false, nil
	}

	expire := checkerCacheTTL
	if remaining < expire {
		expire = remaining
	}
	if err := lc.cache.Set(
		[]byte(token),
		[]byte(strconv.FormatInt(createdAt.Unix(), 10)),
		int(expire.Seconds()),
	); err != nil {
		log.Warnf("login checker, cache session: %s", err)
	}

	return true, nil
}

func (lc *LoginChecker) Forget(token string) {
	lc.cache.Del([]byte(token))
}

// Watch evicts cached sessions whenever the service signs one out, expires it or
// updates the password under it.
func (lc *LoginChecker) Watch(service *Service) (unsubscribe func()) {
	return service.OnSessionChange(func(change SessionChange) {
		switch change.Event {
		case SessionSignedOut, SessionExpired, SessionPasswordUpdated:
			lc.Forget(change.Token)
		}
	})
}
