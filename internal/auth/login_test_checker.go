package auth

import (
	"context"
	"sync"
)

type LoginTestChecker struct {
	mutex          sync.RWMutex
	LoggedSessions map[string]bool
}

func NewLoginTestChecker() *LoginTestChecker {
	return &LoginTestChecker{
		LoggedSessions: map[string]bool{},
	}
}

func (c *LoginTestChecker) Login(token string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.LoggedSessions[token] = true
}

func (c *LoginTestChecker) IsLogged(_ context.Context, token string) (bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.LoggedSessions[token], nil
}
