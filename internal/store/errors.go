package store

import "errors"

var (
	ErrNoCustomerWaiting  = errors.New("no customer waiting")
	ErrNothingCalled      = errors.New("nothing called yet")
	ErrDailyLimitReached  = errors.New("daily ticket limit reached")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session not found")
)
