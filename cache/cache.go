// Package cache memoizes raw engine responses. Entries never expire; they
// are dropped only by an explicit Clear of their scope.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"time"
)

// Entry is a cached response body and when it was fetched.
type Entry struct {
	Body      []byte    `json:"body"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Cache stores entries per scope (engine identity). Get and Put are atomic
// per key; Clear is idempotent and affects only its scope.
type Cache interface {
	Get(scope, key string) (Entry, bool, error)
	Put(scope, key string, e Entry) error
	Clear(scope string) error
}

// Key digests an engine name, target URL and parameter set. url.Values
// encodes with sorted keys, so equal parameter sets give equal keys.
func Key(engine, target string, params url.Values) string {
	h := sha256.New()
	h.Write([]byte(engine))
	h.Write([]byte{0})
	h.Write([]byte(target))
	h.Write([]byte{0})
	h.Write([]byte(params.Encode()))
	return hex.EncodeToString(h.Sum(nil))
}
