// Command fetchworker performs a single-date browser fetch in an
// isolated process, so a wedged browser can never take down a whole
// collection run. On success the saved file path is the last line of
// stdout; on failure a structured ERROR line goes to stderr and the
// exit code is 2.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/traindata-collector/internal/collect"
	"github.com/traindata-collector/internal/common/config"
	"github.com/traindata-collector/internal/common/logger"
)

func main() {
	_ = godotenv.Load()

	var (
		urlTemplate = flag.String("url-template", "", "URL template ({date} or {yyyy}/{mm}/{dd})")
		dateArg     = flag.String("date", "", "Date to fetch, YYYY-MM-DD or YYYYMMDD")
		destDir     = flag.String("dest-dir", "", "Directory to save the downloaded file")
		username    = flag.String("username", "", "Username for sources behind a login form")
		password    = flag.String("password", "", "Password for the login form")
	)
	flag.Parse()

	if *urlTemplate == "" || *dateArg == "" || *destDir == "" {
		fmt.Fprintln(os.Stderr, "ERROR: UsageError --url-template, --date and --dest-dir are required")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		workerFail(fmt.Errorf("loading configuration: %w", err))
	}

	d, err := collect.ParseDate(*dateArg)
	if err != nil {
		workerFail(err)
	}

	url, err := collect.ResolveTemplate(*urlTemplate, d)
	if err != nil {
		workerFail(err)
	}

	log := logger.NewWithLevel(
		logger.ParseLogLevel(cfg.Logging.Level),
		logger.ConsoleWriter(),
	)

	creds := collect.Credentials{Username: *username, Password: *password}
	fetcher := collect.NewBrowserFetcher(cfg.Browser, creds, log)

	path, err := fetcher.Fetch(context.Background(), url, *destDir, collect.FallbackFilename(d))
	if err != nil {
		workerFail(err)
	}

	// Contract with the parent process: the saved path is the final
	// stdout line.
	fmt.Println(path)
}

func workerFail(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %s %s\n", errKind(err), err)
	os.Exit(2)
}

func errKind(err error) string {
	var tmpl *collect.TemplateError
	var notFound *collect.NotFoundError
	var initiation *collect.DownloadInitiationError
	switch {
	case errors.As(err, &tmpl):
		return "TemplateError"
	case errors.As(err, &notFound):
		return "NotFoundError"
	case errors.As(err, &initiation):
		return "DownloadInitiationError"
	default:
		return "RuntimeError"
	}
}
