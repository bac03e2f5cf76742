package cache

import (
	"errors"
	"net/url"
	"strings"
)

// ErrStorageFull is returned by a Backend when the medium rejects a write
// because it is out of capacity.
var ErrStorageFull = errors.New("cache storage full")

// Backend is the durable key/value medium behind a Store.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Get returns the raw value for key; ok is false when the key is absent.
	Get(key string) (value []byte, ok bool, err error)
	// Put stores value under key, replacing any previous value.
	Put(key string, value []byte) error
	// Delete removes keys. Missing keys are ignored.
	Delete(keys ...string) error
	// Keys lists stored keys starting with prefix ("" lists everything).
	Keys(prefix string) ([]string, error)
	Close() error
}

// ScopeKey builds the backend key for a logical key owned by identity.
func ScopeKey(identity, key string) string {
	return scopePrefix(identity) + key
}

// ParseScopeKey splits a backend key into identity and logical key.
func ParseScopeKey(scoped string) (identity, key string, ok bool) {
	escaped, key, found := strings.Cut(scoped, ":")
	if !found || escaped == "" {
		return "", "", false
	}
	identity, err := url.QueryUnescape(escaped)
	if err != nil {
		return "", "", false
	}
	return identity, key, true
}

func scopePrefix(identity string) string {
	return url.QueryEscape(identity) + ":"
}
