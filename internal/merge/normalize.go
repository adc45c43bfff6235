package merge

import (
	"fmt"
	"strings"
	"time"
)

// Accepted input forms for the run_date column. The source flips
// between ISO dates and UK-style dates across exports; the first
// format is tried, then the second.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
}

// CanonicalDateLayout is the output representation, matching the
// downstream convention.
const CanonicalDateLayout = "02/01/2006"

// DateDiagnostic records one row whose run_date survived neither
// accepted format. The row itself is retained with an empty date; the
// diagnostic exists for operator review.
type DateDiagnostic struct {
	File string
	Row  int // 1-based data row within the file
	Raw  string
}

// RuneCodes renders the raw string as code points, exposing invisible
// Unicode artifacts (zero-width spaces, non-breaking spaces) that a
// plain print would hide.
func (d DateDiagnostic) RuneCodes() string {
	var sb strings.Builder
	for i, r := range d.Raw {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%U", r)
	}
	return sb.String()
}

// NormalizeDate strips invisible characters, trims, and parses the
// result against the accepted formats.
func NormalizeDate(raw string) (time.Time, bool) {
	return parseDate(strings.TrimSpace(stripInvisible(raw)))
}

// parseDate tries each accepted layout in order, no cleanup applied.
func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// stripInvisible removes the Unicode artifacts commonly smuggled in by
// copy-pasted exports. Non-breaking spaces become ordinary spaces so a
// following trim can take them off the ends.
func stripInvisible(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\u200B', '\u200C', '\u200D', '\u2060', '\uFEFF':
			return -1
		case '\u00A0', '\u202F':
			return ' '
		default:
			return r
		}
	}, s)
}
