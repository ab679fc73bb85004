// Package classify decides which files have their content counted.
package classify

import (
	"fmt"
	"path"
	"strings"

	"github.com/dlclark/regexp2"
)

// extensions is the fixed allow-list of source, text, markup and script
// suffixes. It is deliberately not configurable.
var extensions = []string{
	".py", ".js", ".java", ".cpp", ".h", ".cs", ".rb", ".go", ".rs", ".ts",
	".md", ".txt", ".html", ".css", ".json", ".xml", ".yaml", ".yml",
	".sh", ".bat", ".ps1",
}

// bareNames are extensionless files counted when README/LICENSE inclusion is on.
var bareNames = []string{"README", "LICENSE"}

// Matcher reports whether a filename matches an override pattern.
type Matcher interface {
	MatchString(name string) bool
}

// Pattern is an override pattern compiled with Perl/Python-style syntax.
// It matches anywhere in the name, like a regex search.
type Pattern struct {
	expr string
	re   *regexp2.Regexp
}

// CompilePattern compiles expr. A malformed expression is reported here,
// before any work that depends on it starts.
func CompilePattern(expr string) (*Pattern, error) {
	re, err := regexp2.Compile(expr, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("invalid match pattern %q: %w", expr, err)
	}
	return &Pattern{expr: expr, re: re}, nil
}

// MatchString reports whether the pattern occurs in name. Evaluation errors
// (only possible on match timeouts) count as no match.
func (p *Pattern) MatchString(name string) bool {
	ok, err := p.re.MatchString(name)
	return err == nil && ok
}

// String returns the source expression.
func (p *Pattern) String() string {
	return p.expr
}

// IsEligible reports whether the file at name should be counted. name is a
// slash-separated path relative to the repository root, or a bare filename.
//
// With a pattern, the pattern alone decides, searched anywhere in name.
// Otherwise the base name must end in one of the allow-listed extensions
// (case-insensitively), or, when includeReadmeLicense is set, be exactly
// README or LICENSE in any case.
func IsEligible(name string, includeReadmeLicense bool, pattern Matcher) bool {
	if pattern != nil {
		return pattern.MatchString(name)
	}

	base := path.Base(name)
	lower := strings.ToLower(base)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}

	if includeReadmeLicense {
		upper := strings.ToUpper(base)
		for _, bare := range bareNames {
			if upper == bare {
				return true
			}
		}
	}
	return false
}

// Extensions returns a copy of the allow-listed extensions.
func Extensions() []string {
	out := make([]string, len(extensions))
	copy(out, extensions)
	return out
}
