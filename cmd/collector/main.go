package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/traindata-collector/internal/collect"
	"github.com/traindata-collector/internal/common/config"
	"github.com/traindata-collector/internal/common/logger"
	"github.com/traindata-collector/internal/common/notify"
)

func main() {
	// Load .env if present; plain environment variables work too
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fail(fmt.Errorf("loading configuration: %w", err))
	}

	var (
		destDir    = flag.String("dest-dir", cfg.Collector.DestDir, "Directory to save downloaded daily CSVs")
		username   = flag.String("username", "", "Username for sources behind a login form")
		password   = flag.String("password", "", "Password (prompted when a username is given without one)")
		useBrowser = flag.Bool("use-browser", false, "Drive a headless browser instead of plain HTTP")
	)
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 4 {
		usage()
		os.Exit(1)
	}

	start, err := collect.ParseDate(flag.Arg(0))
	if err != nil {
		fail(err)
	}
	end, err := collect.ParseDate(flag.Arg(1))
	if err != nil {
		fail(err)
	}
	dateRange, err := collect.NewDateRange(start, end)
	if err != nil {
		fail(err)
	}
	urlTemplate := flag.Arg(2)
	outputFile := flag.Arg(3)

	creds := collect.Credentials{Username: *username, Password: *password}
	if creds.Username != "" && creds.Password == "" {
		creds.Password, err = promptPassword()
		if err != nil {
			fail(fmt.Errorf("reading password: %w", err))
		}
	}

	log := logger.NewWithLevel(
		logger.ParseLogLevel(cfg.Logging.Level),
		logger.ConsoleWriter(),
		logger.FileWriter(cfg.Logging.FilePath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Warn("Shutdown signal received, cancelling run")
		cancel()
	}()

	var fetcher collect.Fetcher
	if *useBrowser {
		fetcher = collect.NewBrowserFetcher(cfg.Browser, creds, log)
	} else {
		fetcher = collect.NewHTTPFetcher(cfg.Collector.Retries, cfg.Collector.Timeout, creds, log)
	}

	collector := collect.NewCollector(fetcher, log)
	req := collect.Request{
		Range:      dateRange,
		Template:   urlTemplate,
		OutputFile: outputFile,
		DestDir:    *destDir,
	}

	log.Info("Starting collection run",
		"start", dateRange.Start.Format("2006-01-02"),
		"end", dateRange.End.Format("2006-01-02"),
		"days", dateRange.Days(),
		"use_browser", *useBrowser)

	output, records, err := collector.Collect(ctx, req)
	if err != nil {
		runName := fmt.Sprintf("%s..%s", dateRange.Start.Format("2006-01-02"), dateRange.End.Format("2006-01-02"))
		notifier := notify.NewClient(cfg.Notify.WebhookURL)
		if nerr := notifier.SendRunFailure(runName, err, records); nerr != nil {
			log.Warn("Failure notification not delivered", "error", nerr)
		}
		fail(err)
	}

	if _, err := collect.PruneRawFiles(*destDir, cfg.Collector.RetentionDays, log); err != nil {
		log.Warn("Retention sweep failed", "error", err)
	}

	fmt.Println(output)
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: collector [flags] <start_date> <end_date> <url_template> <output>")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Dates are YYYY-MM-DD or YYYYMMDD, range inclusive.")
	fmt.Fprintln(os.Stderr, "The URL template uses {date} for YYYYMMDD, or {yyyy}/{mm}/{dd}.")
	fmt.Fprintln(os.Stderr, "Example: collector 2024-06-01 2024-06-30 https://example.org/data_{date}.csv merged.csv")
	fmt.Fprintln(os.Stderr)
	flag.PrintDefaults()
}

func fail(err error) {
	fmt.Printf("Error: %s\n", err)
	os.Exit(2)
}
