// Package scan walks a checkout and accounts tokens per eligible file.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/lyndonlyu/tokenscope/internal/classify"
	"github.com/lyndonlyu/tokenscope/internal/tokens"
	"github.com/rs/zerolog"
)

// GitDir is the version-control metadata directory pruned by default.
const GitDir = ".git"

var (
	// ErrNotDirectory is returned when the scan root is not a directory.
	ErrNotDirectory = errors.New("scan root is not a directory")
	// ErrSubpathEscapes is returned for a subpath that leaves the root.
	ErrSubpathEscapes = errors.New("subpath escapes repository root")
)

// Options selects what a scan counts.
type Options struct {
	IncludeReadmeLicense bool
	IncludeGit           bool
	Subpath              string           // restrict the walk to this directory under root
	Pattern              classify.Matcher // overrides the default eligibility rules when set
}

// Scanner accounts tokens for a directory tree.
type Scanner struct {
	Counter tokens.Counter
	Logger  zerolog.Logger
}

// New returns a Scanner counting with c and logging per-file progress to logger.
func New(c tokens.Counter, logger zerolog.Logger) *Scanner {
	return &Scanner{Counter: c, Logger: logger}
}

// Scan walks root (or root/opts.Subpath) in lexical order. Every file is
// listed in AllFiles; eligible files are read, decoded leniently and counted.
// A file that cannot be read or counted is recorded as Failed and the walk
// continues. Only problems with the scan root itself, and cancellation of ctx,
// are returned as errors.
func (s *Scanner) Scan(ctx context.Context, root string, opts Options) (*Result, error) {
	scanRoot, err := effectiveRoot(root, opts.Subpath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(scanRoot)
	if err != nil {
		return nil, fmt.Errorf("scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, scanRoot)
	}

	res := &Result{Root: root, Subpath: opts.Subpath}

	err = filepath.WalkDir(scanRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if walkErr != nil {
			if path == scanRoot {
				return walkErr
			}
			s.Logger.Warn().Err(walkErr).Str("path", rel).Msg("Error reading directory")
			return nil
		}

		if d.IsDir() {
			if !opts.IncludeGit && hasGitSegment(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			if target, err := os.Stat(path); err == nil && target.IsDir() {
				return nil
			}
		}

		res.AllFiles = append(res.AllFiles, rel)
		res.Outcomes = append(res.Outcomes, s.account(res, path, rel, d, opts))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", scanRoot, err)
	}
	// A cancel during the last file leaves WalkDir nothing more to visit.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Scanner) account(res *Result, path, rel string, d fs.DirEntry, opts Options) FileOutcome {
	if !classify.IsEligible(rel, opts.IncludeReadmeLicense, opts.Pattern) {
		s.Logger.Debug().Str("path", rel).Msg("Skipped unsupported file")
		return FileOutcome{Path: rel, Status: Unsupported}
	}

	text, err := readText(path, d)
	if err != nil {
		s.Logger.Warn().Err(err).Str("path", rel).Msg("Error processing file")
		return FileOutcome{Path: rel, Status: Failed, Reason: err.Error()}
	}

	n, err := s.Counter.Count(text)
	if err != nil {
		s.Logger.Warn().Err(err).Str("path", rel).Msg("Error processing file")
		return FileOutcome{Path: rel, Status: Failed, Reason: err.Error()}
	}
	res.Total += n
	res.Files = append(res.Files, FileRecord{Path: rel, Tokens: n})
	s.Logger.Debug().Str("path", rel).Int("tokens", n).Msg("Processed file")
	return FileOutcome{Path: rel, Status: Counted, Tokens: n}
}

// readText returns the file's content with invalid UTF-8 sequences dropped.
func readText(path string, d fs.DirEntry) (string, error) {
	mode := d.Type()
	if mode&fs.ModeSymlink == 0 && !mode.IsRegular() {
		return "", fmt.Errorf("not a regular file (%s)", mode)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(data), ""), nil
}

func effectiveRoot(root, subpath string) (string, error) {
	if subpath == "" {
		return root, nil
	}
	clean := filepath.Clean(filepath.FromSlash(subpath))
	if !filepath.IsLocal(clean) {
		return "", fmt.Errorf("%w: %s", ErrSubpathEscapes, subpath)
	}
	return filepath.Join(root, clean), nil
}

func hasGitSegment(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if seg == GitDir {
			return true
		}
	}
	return false
}
