package collect

import "context"

// Credentials are optional login details for sources behind a form.
type Credentials struct {
	Username string
	Password string
}

// Set reports whether any login should be attempted.
func (c Credentials) Set() bool {
	return c.Username != "" || c.Password != ""
}

// Fetcher retrieves one date's file into destDir and returns the saved
// path. fallbackName is used when the URL path yields no filename.
//
// Implementations: HTTPFetcher for plain downloads, BrowserFetcher for
// sources that require clicking through a page.
type Fetcher interface {
	Fetch(ctx context.Context, url, destDir, fallbackName string) (string, error)
}
