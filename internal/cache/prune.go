package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lyndonlyu/tokenscope/internal/filelock"
)

// Policy defines retention rules for cached checkouts.
type Policy struct {
	MaxAgeDays int  // delete entries unused for more than N days; 0 disables
	MaxEntries int  // keep at most N most recently used entries; 0 disables
	DryRun     bool // report without deleting
}

// PruneResult tracks what was cleaned up.
type PruneResult struct {
	Removed    []string
	BytesFreed int64
}

// DefaultPolicy returns the default retention policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAgeDays: 30,
		MaxEntries: 50,
	}
}

// Prune removes entries that fall outside policy, plus staging directories
// left behind by interrupted runs. Entries currently locked by another
// process are skipped.
func (s *Store) Prune(policy Policy) (*PruneResult, error) {
	result := &PruneResult{}

	entries, err := s.List()
	if err != nil {
		return result, fmt.Errorf("list cache: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -policy.MaxAgeDays)

	for i, e := range entries {
		keep := true
		if policy.MaxEntries > 0 && i >= policy.MaxEntries {
			keep = false
		}
		if policy.MaxAgeDays > 0 && e.ModTime.Before(cutoff) {
			keep = false
		}
		if keep {
			continue
		}

		if !policy.DryRun {
			lock, err := filelock.TryAcquire(filepath.Join(s.Dir, locksDir, e.Key+".lock"))
			if err != nil {
				continue
			}
			err = os.RemoveAll(e.Path)
			lock.Release()
			if err != nil {
				return result, fmt.Errorf("remove %s: %w", e.Key, err)
			}
		}
		result.Removed = append(result.Removed, e.Key)
		result.BytesFreed += e.Size
	}

	if err := s.cleanStaging(policy, result); err != nil {
		return result, fmt.Errorf("staging cleanup: %w", err)
	}
	return result, nil
}

func (s *Store) cleanStaging(policy Policy, result *PruneResult) error {
	dirents, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, d := range dirents {
		name := d.Name()
		if !d.IsDir() || !strings.HasPrefix(name, stagingPrefix) {
			continue
		}
		// staging-<key>-<random>: only abandoned if nobody holds the key's lock.
		key := strings.TrimPrefix(name, stagingPrefix)
		if i := strings.LastIndex(key, "-"); i > 0 {
			key = key[:i]
		}
		lockPath := filepath.Join(s.Dir, locksDir, key+".lock")
		if _, err := os.Stat(lockPath + ".meta"); err == nil && !filelock.IsStale(lockPath) {
			continue
		}

		path := filepath.Join(s.Dir, name)
		size := dirSize(path)
		if !policy.DryRun {
			if err := os.RemoveAll(path); err != nil {
				return err
			}
		}
		result.BytesFreed += size
	}
	return nil
}
