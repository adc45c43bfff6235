package merge

import (
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/traindata-collector/internal/common/logger"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testMerger() *Merger {
	return NewMerger(logger.New(io.Discard))
}

func TestMergeNormalizesAndSorts(t *testing.T) {
	dir := t.TempDir()
	// ISO dates in one export, UK-style in the other
	writeFile(t, dir, "export_a.csv",
		"stp_indicator,run_date,gbtt_dep,gbtt_arr\n"+
			"P,2024-06-01,0930,0935\n"+
			"P,2024-06-02,0700,0705\n")
	writeFile(t, dir, "export_b.csv",
		"stp_indicator,run_date,gbtt_dep,gbtt_arr\n"+
			"P,01/06/2024,0830,0835\n")

	output := filepath.Join(dir, "merged.csv")
	result, err := testMerger().Merge(Options{
		Pattern:    filepath.Join(dir, "export_*.csv"),
		OutputFile: output,
		HeaderSkip: 0,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Files != 2 || result.Rows != 3 {
		t.Errorf("Expected 2 files and 3 rows, got %d and %d", result.Files, result.Rows)
	}
	if len(result.Diagnostics) != 0 {
		t.Errorf("Expected no diagnostics, got %v", result.Diagnostics)
	}

	// both 1 June rows normalize to the same value and sort together,
	// ahead of the 2 June row
	dates := result.Frame.Col("run_date").Records()
	want := []string{"01/06/2024", "01/06/2024", "02/06/2024"}
	if !reflect.DeepEqual(dates, want) {
		t.Errorf("Expected dates %v, got %v", want, dates)
	}
	deps := result.Frame.Col("gbtt_dep").Records()
	if !reflect.DeepEqual(deps, []string{"0830", "0930", "0700"}) {
		t.Errorf("Expected departures sorted within each date, got %v", deps)
	}

	body, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(body), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected header + 3 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "stp_indicator") {
		t.Errorf("Unexpected header line: %q", lines[0])
	}
}

func TestMergeSortTieBreaks(t *testing.T) {
	dir := t.TempDir()
	// shuffled so that ordering any column on its own gives the wrong
	// result; only (run_date, gbtt_dep, gbtt_arr) together is right
	writeFile(t, dir, "export.csv",
		"stp_indicator,run_date,gbtt_dep,gbtt_arr\n"+
			"P,02/06/2024,0700,0800\n"+
			"P,01/06/2024,0900,0910\n"+
			"P,01/06/2024,0700,0720\n"+
			"P,01/06/2024,0700,0705\n")

	result, err := testMerger().Merge(Options{
		Pattern:    filepath.Join(dir, "export.csv"),
		OutputFile: filepath.Join(dir, "merged.csv"),
		HeaderSkip: 0,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	dates := result.Frame.Col("run_date").Records()
	deps := result.Frame.Col("gbtt_dep").Records()
	arrs := result.Frame.Col("gbtt_arr").Records()
	wantDates := []string{"01/06/2024", "01/06/2024", "01/06/2024", "02/06/2024"}
	wantDeps := []string{"0700", "0700", "0900", "0700"}
	wantArrs := []string{"0705", "0720", "0910", "0800"}
	if !reflect.DeepEqual(dates, wantDates) {
		t.Errorf("Expected dates %v, got %v", wantDates, dates)
	}
	if !reflect.DeepEqual(deps, wantDeps) {
		t.Errorf("Expected departures %v, got %v", wantDeps, deps)
	}
	if !reflect.DeepEqual(arrs, wantArrs) {
		t.Errorf("Expected arrivals %v, got %v", wantArrs, arrs)
	}
}

func TestMergeRetainsUnparseableDates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "export.csv",
		"stp_indicator,run_date,gbtt_dep,gbtt_arr\n"+
			"P,2024-06-01,0930,0935\n"+
			"P,not a date,1000,1005\n")

	result, err := testMerger().Merge(Options{
		Pattern:    filepath.Join(dir, "export.csv"),
		OutputFile: filepath.Join(dir, "merged.csv"),
		HeaderSkip: 0,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Rows != 2 {
		t.Fatalf("Expected both rows retained, got %d", result.Rows)
	}
	if len(result.Diagnostics) != 1 {
		t.Fatalf("Expected 1 diagnostic, got %d", len(result.Diagnostics))
	}
	d := result.Diagnostics[0]
	if d.Raw != "not a date" || d.Row != 2 {
		t.Errorf("Unexpected diagnostic: %+v", d)
	}

	// the unparseable row keeps an empty date rather than vanishing
	dates := result.Frame.Col("run_date").Records()
	empty := 0
	for _, s := range dates {
		if s == "" {
			empty++
		}
	}
	if empty != 1 {
		t.Errorf("Expected exactly one empty date, got %v", dates)
	}
}

func TestMergeHeaderSkip(t *testing.T) {
	dir := t.TempDir()
	junk := "Service Data Export\nGenerated 2024-06-05\n"
	content := junk +
		"stp_indicator,run_date,gbtt_dep,gbtt_arr\n" +
		"P,2024-06-01,0930,0935\n"
	writeFile(t, dir, "export.csv", content)

	// explicit skip
	result, err := testMerger().Merge(Options{
		Pattern:    filepath.Join(dir, "export.csv"),
		OutputFile: filepath.Join(dir, "merged_explicit.csv"),
		HeaderSkip: 2,
	})
	if err != nil {
		t.Fatalf("Unexpected error with explicit skip: %v", err)
	}
	if result.Rows != 1 {
		t.Errorf("Expected 1 row with explicit skip, got %d", result.Rows)
	}

	// auto-detection finds the header by its first column
	result, err = testMerger().Merge(Options{
		Pattern:    filepath.Join(dir, "export.csv"),
		OutputFile: filepath.Join(dir, "merged_auto.csv"),
		HeaderSkip: -1,
	})
	if err != nil {
		t.Fatalf("Unexpected error with auto-detect: %v", err)
	}
	if result.Rows != 1 {
		t.Errorf("Expected 1 row with auto-detect, got %d", result.Rows)
	}
}

func TestMergeNoMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	if _, err := testMerger().Merge(Options{
		Pattern:    filepath.Join(dir, "nothing_*.csv"),
		OutputFile: filepath.Join(dir, "merged.csv"),
	}); err == nil {
		t.Error("Expected error for a pattern matching no files")
	}
}

func TestDetectHeaderSkip(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  int
	}{
		{"no junk", []string{"stp_indicator,run_date", "P,2024-06-01"}, 0},
		{"two junk rows", []string{"Export", "", "stp_indicator,run_date"}, 2},
		{"bom before header", []string{"\uFEFFstp_indicator,run_date"}, 0},
		{"marker absent", []string{"a,b", "c,d"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectHeaderSkip(tt.lines); got != tt.want {
				t.Errorf("detectHeaderSkip = %d, want %d", got, tt.want)
			}
		})
	}
}
