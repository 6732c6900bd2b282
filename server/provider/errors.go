package provider

import "errors"

var (
	// ErrNoProvider indicates that every configured backend is unavailable
	ErrNoProvider = errors.New("no provider available")
)
