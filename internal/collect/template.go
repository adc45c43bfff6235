package collect

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// URL templates carry either a single {date} placeholder, resolved as
// YYYYMMDD, or all three of {yyyy}, {mm} and {dd}.
const (
	placeholderDate  = "{date}"
	placeholderYear  = "{yyyy}"
	placeholderMonth = "{mm}"
	placeholderDay   = "{dd}"
)

var placeholderPattern = regexp.MustCompile(`\{[a-z]+\}`)

// ResolveTemplate substitutes the given date into a URL template.
// Exactly one placeholder style must be present and fully consumed,
// else a TemplateError is returned.
func ResolveTemplate(template string, d time.Time) (string, error) {
	var url string
	switch {
	case strings.Contains(template, placeholderDate):
		url = strings.ReplaceAll(template, placeholderDate, d.Format("20060102"))
	case strings.Contains(template, placeholderYear) ||
		strings.Contains(template, placeholderMonth) ||
		strings.Contains(template, placeholderDay):
		if !strings.Contains(template, placeholderYear) ||
			!strings.Contains(template, placeholderMonth) ||
			!strings.Contains(template, placeholderDay) {
			return "", &TemplateError{Template: template,
				Reason: "separate-field style requires all of {yyyy}, {mm} and {dd}"}
		}
		url = strings.ReplaceAll(template, placeholderYear, d.Format("2006"))
		url = strings.ReplaceAll(url, placeholderMonth, d.Format("01"))
		url = strings.ReplaceAll(url, placeholderDay, d.Format("02"))
	default:
		return "", &TemplateError{Template: template,
			Reason: "no {date} or {yyyy}/{mm}/{dd} placeholder found"}
	}

	if left := placeholderPattern.FindString(url); left != "" {
		return "", &TemplateError{Template: template,
			Reason: fmt.Sprintf("unresolved placeholder %s", left)}
	}
	return url, nil
}

// FallbackFilename is the canonical per-date name used when the URL
// path does not yield one.
func FallbackFilename(d time.Time) string {
	return fmt.Sprintf("data_%s.csv", d.Format("20060102"))
}

// FallbackFilenameFor is the source-specific variant carrying a
// location code, e.g. data_RDG_20240601.csv.
func FallbackFilenameFor(code string, d time.Time) string {
	if code == "" {
		return FallbackFilename(d)
	}
	return fmt.Sprintf("data_%s_%s.csv", code, d.Format("20060102"))
}
