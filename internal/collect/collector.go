package collect

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/traindata-collector/internal/common/logger"
	"github.com/traindata-collector/pkg/models"
)

// Request describes one collection run.
type Request struct {
	Range      DateRange
	Template   string
	OutputFile string
	DestDir    string
}

// Collector walks a date range, fetches each day's file through the
// configured Fetcher, and concatenates the successes into one CSV.
// A failed date is logged and skipped; it never aborts the run.
type Collector struct {
	fetcher Fetcher
	logger  logger.Logger
}

func NewCollector(fetcher Fetcher, logger logger.Logger) *Collector {
	return &Collector{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Collect downloads every date in the range and merges the successes
// into req.OutputFile, first file's header kept, later headers dropped.
// Returns NoDataCollectedError without creating the output file when
// zero dates succeed.
func (c *Collector) Collect(ctx context.Context, req Request) (string, []models.DownloadRecord, error) {
	// A broken template fails every date identically; reject it before
	// touching the network.
	if _, err := ResolveTemplate(req.Template, req.Range.Start); err != nil {
		return "", nil, err
	}

	var records []models.DownloadRecord
	var downloaded []string

	for _, d := range req.Range.Dates() {
		if ctx.Err() != nil {
			return "", records, ctx.Err()
		}

		url, err := ResolveTemplate(req.Template, d)
		if err != nil {
			return "", records, err
		}

		rec := models.DownloadRecord{Date: d, URL: url}

		path, err := c.fetcher.Fetch(ctx, url, req.DestDir, FallbackFilename(d))
		if err != nil {
			rec.Outcome, rec.Message = classify(err)
			records = append(records, rec)
			c.logger.Warn("Skipping date",
				"date", d.Format("2006-01-02"),
				"outcome", string(rec.Outcome),
				"error", err)
			continue
		}

		rec.Outcome = models.OutcomeSuccess
		rec.Path = path
		records = append(records, rec)
		downloaded = append(downloaded, path)
		c.logger.Info("Downloaded",
			"date", d.Format("2006-01-02"),
			"path", path)
	}

	if len(downloaded) == 0 {
		return "", records, &NoDataCollectedError{}
	}

	if err := concatFiles(req.OutputFile, downloaded); err != nil {
		return "", records, fmt.Errorf("merging downloaded files: %w", err)
	}

	c.logger.Info("Collection run complete",
		"files_merged", len(downloaded),
		"dates_skipped", len(records)-len(downloaded),
		"output", req.OutputFile)
	return req.OutputFile, records, nil
}

func classify(err error) (models.OutcomeKind, string) {
	var notFound *NotFoundError
	var exhausted *RetryExhaustedError
	switch {
	case errors.As(err, &notFound):
		return models.OutcomeSkippedNotFound, ""
	case errors.As(err, &exhausted):
		return models.OutcomeSkippedExhausted, ""
	default:
		return models.OutcomeSkippedOtherError, err.Error()
	}
}

// concatFiles writes outputFile from scratch: all lines of the first
// input, then every input after it with its header line dropped.
// Assumes all inputs share an identical header.
func concatFiles(outputFile string, inputs []string) error {
	if dir := filepath.Dir(outputFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	out, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	for i, input := range inputs {
		if err := appendFile(w, input, i > 0); err != nil {
			return fmt.Errorf("appending %s: %w", input, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing output: %w", err)
	}
	return nil
}

func appendFile(w *bufio.Writer, input string, skipHeader bool) error {
	in, err := os.Open(input)
	if err != nil {
		return err
	}
	defer in.Close()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	first := true
	for scanner.Scan() {
		if first && skipHeader {
			first = false
			continue
		}
		first = false
		if _, err := w.WriteString(scanner.Text()); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return scanner.Err()
}
