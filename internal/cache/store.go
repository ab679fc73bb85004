// Package cache keeps fetched repositories on disk, addressed by a digest of
// their locator, and resolves a locator to a local checkout.
//
// The layout is {dir}/{digest}/ holding a full working tree. An entry's
// presence is its own index: nothing else is recorded about it. Digests are
// 64-bit xxhash values, so two distinct locators can in principle share an
// entry; at the scale of a personal cache that risk is accepted.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/lyndonlyu/tokenscope/internal/filelock"
	"github.com/otiai10/copy"
)

// DefaultLockTimeout bounds how long Put waits for another process that is
// populating the same entry.
const DefaultLockTimeout = 5 * time.Minute

const (
	locksDir      = ".locks"
	stagingPrefix = ".staging-"
)

// ErrNotFound is returned for operations on an entry that does not exist.
var ErrNotFound = errors.New("cache entry not found")

// Digest returns the cache key for locator: 16 lowercase hex characters.
func Digest(locator string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(locator))
}

// Entry describes one cached checkout.
type Entry struct {
	Key     string
	Path    string
	ModTime time.Time
	Size    int64
}

// Store maps digests to checkout directories under Dir.
type Store struct {
	Dir         string
	LockTimeout time.Duration
}

// NewStore returns a Store rooted at dir. The directory is created lazily.
func NewStore(dir string) *Store {
	return &Store{Dir: dir, LockTimeout: DefaultLockTimeout}
}

// Path returns where the entry for key lives, whether or not it exists.
func (s *Store) Path(key string) string {
	return filepath.Join(s.Dir, key)
}

// Exists reports whether a populated entry exists for key.
func (s *Store) Exists(key string) bool {
	info, err := os.Stat(s.Path(key))
	return err == nil && info.IsDir()
}

// Touch marks the entry as recently used so age-based pruning keeps it.
func (s *Store) Touch(key string) error {
	now := time.Now()
	if err := os.Chtimes(s.Path(key), now, now); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Put copies the tree at src into the entry for key and returns the entry
// path. The copy is staged next to the entry and renamed into place, so a
// partially copied tree is never visible. If another process populated the
// entry while Put waited for the lock, the existing entry is kept.
func (s *Store) Put(key, src string) (string, error) {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}

	timeout := s.LockTimeout
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	lock, err := filelock.Acquire(filepath.Join(s.Dir, locksDir, key+".lock"), timeout)
	if err != nil {
		return "", fmt.Errorf("lock cache entry %s: %w", key, err)
	}
	defer lock.Release()

	dest := s.Path(key)
	if s.Exists(key) {
		return dest, nil
	}

	staging, err := os.MkdirTemp(s.Dir, stagingPrefix+key+"-")
	if err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	if err := copyTree(src, staging); err != nil {
		os.RemoveAll(staging)
		return "", fmt.Errorf("copy into cache: %w", err)
	}
	if err := os.Rename(staging, dest); err != nil {
		os.RemoveAll(staging)
		return "", fmt.Errorf("publish cache entry: %w", err)
	}
	return dest, nil
}

// Remove deletes the entry for key.
func (s *Store) Remove(key string) error {
	if !s.Exists(key) {
		return ErrNotFound
	}
	return os.RemoveAll(s.Path(key))
}

// List returns all entries, most recently used first. A missing cache
// directory yields an empty list.
func (s *Store) List() ([]Entry, error) {
	dirents, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	for _, d := range dirents {
		name := d.Name()
		if !d.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(s.Dir, name)
		entries = append(entries, Entry{
			Key:     name,
			Path:    path,
			ModTime: info.ModTime(),
			Size:    dirSize(path),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ModTime.After(entries[j].ModTime)
	})
	return entries, nil
}

// copyTree copies directories, regular files and symlinks (as links) from
// src into the existing directory dst, preserving permission bits. Sockets,
// devices and pipes have no place in a checkout and are skipped.
func copyTree(src, dst string) error {
	return copy.Copy(src, dst, copy.Options{
		OnSymlink: func(string) copy.SymlinkAction {
			return copy.Shallow
		},
		Skip: func(info os.FileInfo, _, _ string) (bool, error) {
			mode := info.Mode()
			return !(mode.IsDir() || mode.IsRegular() || mode&os.ModeSymlink != 0), nil
		},
		PermissionControl: copy.PerservePermission,
	})
}

func dirSize(path string) int64 {
	var size int64
	filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}
