// Package fetch materializes a remote repository into a local directory.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-git/go-git/v5"
)

// ErrEmptyLocator is returned when Fetch is called without a locator.
var ErrEmptyLocator = errors.New("empty repository locator")

// Fetcher copies the repository identified by locator into dest.
// dest must be an empty or non-existent directory.
type Fetcher interface {
	Fetch(ctx context.Context, locator, dest string) error
}

// Git clones repositories with go-git. Any URL or local path accepted by
// go-git's transports is a valid locator.
type Git struct {
	// Progress receives clone progress messages; nil discards them.
	Progress io.Writer
}

// Fetch clones the default branch of locator, with full history, into dest.
func (g Git) Fetch(ctx context.Context, locator, dest string) error {
	if locator == "" {
		return ErrEmptyLocator
	}
	_, err := git.PlainCloneContext(ctx, dest, false, &git.CloneOptions{
		URL:      locator,
		Progress: g.Progress,
	})
	if err != nil {
		return fmt.Errorf("clone %s: %w", locator, err)
	}
	return nil
}
