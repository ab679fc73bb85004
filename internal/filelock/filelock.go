// Package filelock provides flock-based exclusive locks for cache entries.
//
// A lock is a plain file next to the entry it protects. The holder's PID and
// acquisition time are written to a sibling .meta file so a blocked process can
// report who owns the lock, and so stale locks left behind by crashed runs can
// be detected.
package filelock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// LockVersion is the current version of the lock metadata format.
const LockVersion = 1

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("lock is held by another process")

// Lock represents an acquired file lock.
type Lock struct {
	Path string
	file *os.File
}

// Meta is the on-disk metadata written alongside a lock file.
type Meta struct {
	PID       int    `json:"pid"`
	Timestamp string `json:"timestamp"`
	Version   int    `json:"lock_version"`
}

// TryAcquire takes an exclusive, non-blocking lock on lockPath. It returns an
// error wrapping ErrLocked when another process holds it.
func TryAcquire(lockPath string) (*Lock, error) {
	return acquire(lockPath, syscall.LOCK_EX|syscall.LOCK_NB)
}

// Acquire takes an exclusive lock on lockPath, polling until it is free or
// timeout elapses.
func Acquire(lockPath string, timeout time.Duration) (*Lock, error) {
	deadline := time.Now().Add(timeout)
	for {
		lock, err := TryAcquire(lockPath)
		if err == nil || !errors.Is(err, ErrLocked) {
			return lock, err
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// Release removes the flock, closes the file and deletes the .meta file.
// Releasing a nil or already released lock is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}

	fd := int(l.file.Fd())
	if err := syscall.Flock(fd, syscall.LOCK_UN); err != nil {
		return fmt.Errorf("flock LOCK_UN: %w", err)
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close lock file: %w", err)
	}
	l.file = nil

	// Best-effort removal of meta file.
	_ = os.Remove(l.Path + ".meta")
	return nil
}

// IsStale checks whether the lock at lockPath is stale by reading its .meta
// file and testing whether the recorded PID is still alive.
func IsStale(lockPath string) bool {
	meta, err := ReadMeta(lockPath)
	if err != nil {
		return true
	}

	proc, err := os.FindProcess(meta.PID)
	if err != nil {
		return true
	}

	// Signal 0 checks process existence without actually sending a signal.
	return proc.Signal(syscall.Signal(0)) != nil
}

// ReadMeta reads and parses the .meta JSON file associated with lockPath.
func ReadMeta(lockPath string) (Meta, error) {
	data, err := os.ReadFile(lockPath + ".meta")
	if err != nil {
		return Meta{}, fmt.Errorf("read meta: %w", err)
	}

	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, fmt.Errorf("unmarshal meta: %w", err)
	}
	return meta, nil
}

func acquire(lockPath string, how int) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return nil, fmt.Errorf("mkdir for lock: %w", err)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	fd := int(f.Fd())
	if err := syscall.Flock(fd, how); err != nil {
		f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			holderPID := 0
			if meta, metaErr := ReadMeta(lockPath); metaErr == nil {
				holderPID = meta.PID
			}
			return nil, fmt.Errorf("%w (holder PID: %d)", ErrLocked, holderPID)
		}
		return nil, fmt.Errorf("flock: %w", err)
	}

	meta := Meta{
		PID:       os.Getpid(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   LockVersion,
	}
	metaData, err := json.Marshal(meta)
	if err != nil {
		syscall.Flock(fd, syscall.LOCK_UN)
		f.Close()
		return nil, fmt.Errorf("marshal meta: %w", err)
	}
	if err := os.WriteFile(lockPath+".meta", metaData, 0644); err != nil {
		syscall.Flock(fd, syscall.LOCK_UN)
		f.Close()
		return nil, fmt.Errorf("write meta: %w", err)
	}

	return &Lock{Path: lockPath, file: f}, nil
}
