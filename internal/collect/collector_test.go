package collect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/traindata-collector/internal/common/logger"
	"github.com/traindata-collector/pkg/models"
)

// fakeFetcher writes a one-row CSV per date and fails the configured
// URLs.
type fakeFetcher struct {
	failWith map[string]error // keyed by URL substring
	calls    int
}

func (f *fakeFetcher) Fetch(ctx context.Context, url, destDir, fallbackName string) (string, error) {
	f.calls++
	for substr, err := range f.failWith {
		if strings.Contains(url, substr) {
			return "", err
		}
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(destDir, fallbackName)
	content := fmt.Sprintf("run_date,gbtt_dep\n%s,0930\n", strings.TrimSuffix(strings.TrimPrefix(fallbackName, "data_"), ".csv"))
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func mustRange(t *testing.T, start, end time.Time) DateRange {
	t.Helper()
	r, err := NewDateRange(start, end)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestCollectSkipsFailedDate(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{failWith: map[string]error{
		"20240602": &RetryExhaustedError{URL: "x", Attempts: 3},
	}}
	c := NewCollector(fetcher, logger.New(io.Discard))

	output := filepath.Join(dir, "merged.csv")
	got, records, err := c.Collect(context.Background(), Request{
		Range:      mustRange(t, date(2024, 6, 1), date(2024, 6, 3)),
		Template:   "https://example.org/data_{date}.csv",
		OutputFile: output,
		DestDir:    filepath.Join(dir, "raw"),
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != output {
		t.Errorf("Expected output path %s, got %s", output, got)
	}

	body, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(body), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 1 header + 2 data rows, got %d lines: %q", len(lines), lines)
	}
	if lines[0] != "run_date,gbtt_dep" {
		t.Errorf("Expected single header line first, got %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "20240601") || !strings.HasPrefix(lines[2], "20240603") {
		t.Errorf("Expected day 1 and day 3 rows in order, got %q", lines[1:])
	}

	if len(records) != 3 {
		t.Fatalf("Expected 3 download records, got %d", len(records))
	}
	counts := models.CountOutcomes(records)
	if counts[models.OutcomeSuccess] != 2 || counts[models.OutcomeSkippedExhausted] != 1 {
		t.Errorf("Unexpected outcome tally: %v", counts)
	}
}

func TestCollectNoDataCollected(t *testing.T) {
	dir := t.TempDir()
	fetcher := &fakeFetcher{failWith: map[string]error{
		"data_": &NotFoundError{URL: "x"},
	}}
	c := NewCollector(fetcher, logger.New(io.Discard))

	output := filepath.Join(dir, "merged.csv")
	_, records, err := c.Collect(context.Background(), Request{
		Range:      mustRange(t, date(2024, 6, 1), date(2024, 6, 2)),
		Template:   "https://example.org/data_{date}.csv",
		OutputFile: output,
		DestDir:    filepath.Join(dir, "raw"),
	})

	var noData *NoDataCollectedError
	if !errors.As(err, &noData) {
		t.Fatalf("Expected NoDataCollectedError, got %v", err)
	}
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Error("Expected no output file to be created")
	}
	if len(records) != 2 {
		t.Errorf("Expected a record per attempted date, got %d", len(records))
	}
}

func TestCollectBadTemplateAbortsBeforeFetching(t *testing.T) {
	fetcher := &fakeFetcher{}
	c := NewCollector(fetcher, logger.New(io.Discard))

	_, _, err := c.Collect(context.Background(), Request{
		Range:      mustRange(t, date(2024, 6, 1), date(2024, 6, 3)),
		Template:   "https://example.org/static.csv",
		OutputFile: filepath.Join(t.TempDir(), "merged.csv"),
		DestDir:    t.TempDir(),
	})

	var tmplErr *TemplateError
	if !errors.As(err, &tmplErr) {
		t.Fatalf("Expected TemplateError, got %v", err)
	}
	if fetcher.calls != 0 {
		t.Errorf("Expected no fetches for a broken template, got %d", fetcher.calls)
	}
}

func TestPruneRawFiles(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "data_20240101.csv")
	recent := filepath.Join(dir, "data_20240601.csv")
	other := filepath.Join(dir, "merged.csv")
	for _, p := range []string{old, recent, other} {
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	stale := time.Now().AddDate(0, 0, -30)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatal(err)
	}

	removed, err := PruneRawFiles(dir, 7, logger.New(io.Discard))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 file removed, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("Expected old raw file to be pruned")
	}
	for _, p := range []string{recent, other} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("Expected %s to survive the sweep", p)
		}
	}

	// retention disabled
	removed, err = PruneRawFiles(dir, 0, logger.New(io.Discard))
	if err != nil || removed != 0 {
		t.Errorf("Expected disabled sweep to remove nothing, got %d, %v", removed, err)
	}
}
