package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// EmptyMessage is printed when no eligible content was found.
const EmptyMessage = "No tokens found in the repository. The repository might be empty or contain only unsupported file types."

// FormatHuman returns the plain-text report.
func FormatHuman(r *Report) string {
	var b strings.Builder

	b.WriteString("\nAll files found in the repository")
	if r.Subpath != "" {
		b.WriteString(" (filtered by path)")
	}
	if r.Pattern != "" {
		b.WriteString(" (filtered by pattern)")
	}
	b.WriteString(":\n")
	for _, f := range r.AllFiles {
		b.WriteString(f + "\n")
	}

	if r.Empty() {
		b.WriteString("\n" + EmptyMessage + "\n")
		return b.String()
	}

	fmt.Fprintf(&b, "\nAnalyzing repository: %s\n", r.RepoPath)
	if r.Subpath != "" {
		fmt.Fprintf(&b, "Analyzing path: %s\n", r.Subpath)
	}
	if r.Pattern != "" {
		fmt.Fprintf(&b, "Matching files with pattern: %s\n", r.Pattern)
	}
	fmt.Fprintf(&b, "Total tokens in repository: %d\n", r.Total)

	b.WriteString("\nToken distribution by file:\n")
	for _, f := range r.Top {
		fmt.Fprintf(&b, "%s: %d tokens\n", f.Path, f.Tokens)
	}

	if len(r.Failed) > 0 {
		b.WriteString("\nFiles that could not be read:\n")
		for _, f := range r.Failed {
			fmt.Fprintf(&b, "%s: %s\n", f.Path, f.Reason)
		}
	}

	b.WriteString("\nLLM Recommendations:\n")
	for _, rec := range r.Recommendations {
		fmt.Fprintf(&b, "%s (Context: %d): %.2f%% coverage\n", rec.Name, rec.Context, rec.Coverage)
	}

	if r.Optimal != nil {
		fmt.Fprintf(&b, "\nOptimal LLM: %s\n", r.Optimal.Name)
	}
	return b.String()
}

// FormatJSON returns the report as an indented JSON document.
func FormatJSON(r *Report) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}

// FormatMarkdown returns the report as markdown, suitable for terminal
// rendering or pasting into an issue.
func FormatMarkdown(r *Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Token report: %s\n\n", r.Locator)
	if r.Subpath != "" {
		fmt.Fprintf(&b, "- Path: `%s`\n", r.Subpath)
	}
	if r.Pattern != "" {
		fmt.Fprintf(&b, "- Pattern: `%s`\n", r.Pattern)
	}
	fmt.Fprintf(&b, "- Files found: %d\n", len(r.AllFiles))

	if r.Empty() {
		b.WriteString("\n" + EmptyMessage + "\n")
		return b.String()
	}
	fmt.Fprintf(&b, "- Total tokens: **%s**\n", humanize.Comma(int64(r.Total)))

	b.WriteString("\n## Largest files\n\n| File | Tokens |\n|---|---:|\n")
	for _, f := range r.Top {
		fmt.Fprintf(&b, "| `%s` | %s |\n", f.Path, humanize.Comma(int64(f.Tokens)))
	}

	b.WriteString("\n## Models\n\n| Model | Context | Coverage |\n|---|---:|---:|\n")
	for _, rec := range r.Recommendations {
		fmt.Fprintf(&b, "| %s | %s | %.2f%% |\n", rec.Name, humanize.Comma(int64(rec.Context)), rec.Coverage)
	}

	if r.Optimal != nil {
		fmt.Fprintf(&b, "\n**Optimal LLM:** %s\n", r.Optimal.Name)
	}
	if len(r.Failed) > 0 {
		fmt.Fprintf(&b, "\n_%d file(s) could not be read._\n", len(r.Failed))
	}
	return b.String()
}
