package collect

import "fmt"

// TemplateError reports a malformed URL template. Fatal for the whole
// run: no date can be resolved against a broken template.
type TemplateError struct {
	Template string
	Reason   string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("invalid URL template %q: %s", e.Template, e.Reason)
}

// NotFoundError reports an HTTP 404 for one date's URL. Permanent:
// never retried, the date is skipped.
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found (404): %s", e.URL)
}

// RetryExhaustedError reports transient failures that survived every
// retry attempt for one date.
type RetryExhaustedError struct {
	URL      string
	Attempts int
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("failed to download %s after %d attempts", e.URL, e.Attempts)
}

// DownloadInitiationError reports a browser flow that could not
// complete the download handshake. Diagnostic artifacts are saved
// before this is returned.
type DownloadInitiationError struct {
	URL    string
	Reason string
}

func (e *DownloadInitiationError) Error() string {
	return fmt.Sprintf("download initiation failed for %s: %s", e.URL, e.Reason)
}

// NoDataCollectedError reports a run in which zero dates succeeded.
type NoDataCollectedError struct{}

func (e *NoDataCollectedError) Error() string {
	return "no files were downloaded; cannot create merged CSV"
}
