package cache

import (
	"context"
	"fmt"
	"os"

	"github.com/lyndonlyu/tokenscope/internal/fetch"
	"github.com/rs/zerolog"
)

// Location is the local checkout a run analyses.
type Location struct {
	Path      string
	Key       string // cache key; empty for ephemeral locations
	Ephemeral bool   // deleted by Release
	CacheHit  bool   // served from the cache without fetching
}

// Release deletes an ephemeral checkout. Cached locations are left in place.
// It is safe to call more than once and on a nil Location.
func (l *Location) Release() error {
	if l == nil || !l.Ephemeral || l.Path == "" {
		return nil
	}
	path := l.Path
	l.Path = ""
	return os.RemoveAll(path)
}

// Resolver turns a locator into a local checkout, going through Store when
// caching is requested.
type Resolver struct {
	Fetcher fetch.Fetcher
	Store   *Store // nil, or a Store without a Dir, disables caching
	TempDir string // parent for ephemeral checkouts; "" means os.TempDir
	Logger  zerolog.Logger
}

// NewResolver returns a Resolver that fetches with f and caches in store.
func NewResolver(f fetch.Fetcher, store *Store, logger zerolog.Logger) *Resolver {
	return &Resolver{Fetcher: f, Store: store, Logger: logger}
}

// Resolve returns a checkout of locator. Without useCache (or without a
// usable Store) the repository is fetched into a fresh temporary directory that the
// caller must Release. With useCache an existing entry is returned as is;
// otherwise the repository is fetched, copied into the store and the
// temporary copy removed. Fetch errors are returned unchanged in meaning and
// never retried.
func (r *Resolver) Resolve(ctx context.Context, locator string, useCache bool) (*Location, error) {
	caching := useCache && r.Store != nil && r.Store.Dir != ""
	if useCache && !caching {
		r.Logger.Debug().Msg("No cache directory configured, fetching into a temporary directory")
	}

	var key string
	if caching {
		key = Digest(locator)
		if r.Store.Exists(key) {
			path := r.Store.Path(key)
			if err := r.Store.Touch(key); err != nil {
				r.Logger.Debug().Err(err).Str("path", path).Msg("could not refresh cache entry time")
			}
			r.Logger.Info().Str("path", path).Msg("Using cached repository")
			return &Location{Path: path, Key: key, CacheHit: true}, nil
		}
	}

	tmp, err := os.MkdirTemp(r.TempDir, "tokenscope-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	if err := r.Fetcher.Fetch(ctx, locator, tmp); err != nil {
		os.RemoveAll(tmp)
		return nil, err
	}

	if !caching {
		return &Location{Path: tmp, Ephemeral: true}, nil
	}

	path, err := r.Store.Put(key, tmp)
	os.RemoveAll(tmp)
	if err != nil {
		return nil, err
	}
	r.Logger.Info().Str("path", path).Msg("Cached repository")
	return &Location{Path: path, Key: key}, nil
}
