package merge

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/traindata-collector/internal/common/logger"
	"github.com/traindata-collector/pkg/models"
)

// sortKeyCol is a temporary composite key: YYYYMMDD date, departure
// and arrival joined with "|". DD/MM/YYYY does not sort
// chronologically as a string, and gota's Arrange orders each sort
// column independently when given several, so the whole ordering is
// folded into one column.
const sortKeyCol = "merge_sort_key"

// Options describe one merge run.
type Options struct {
	Pattern    string
	OutputFile string
	// HeaderSkip is the number of junk rows before the header line,
	// -1 to detect by scanning for the known first header column.
	HeaderSkip int
}

// Result summarizes a merge run.
type Result struct {
	Files       int
	Rows        int
	Frame       dataframe.DataFrame
	Diagnostics []DateDiagnostic
}

// Merger reads every file matching a glob pattern, normalizes the
// run_date column, sorts by (run_date, gbtt_dep, gbtt_arr) and writes
// one consolidated CSV. The dataset is rebuilt from scratch each run.
type Merger struct {
	logger logger.Logger
}

func NewMerger(logger logger.Logger) *Merger {
	return &Merger{logger: logger}
}

func (m *Merger) Merge(opts Options) (*Result, error) {
	files, err := filepath.Glob(opts.Pattern)
	if err != nil {
		return nil, fmt.Errorf("bad glob pattern %q: %w", opts.Pattern, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files match pattern %q", opts.Pattern)
	}
	sort.Strings(files)
	m.logger.Info("Merging files", "count", len(files), "pattern", opts.Pattern)

	var merged dataframe.DataFrame
	var diags []DateDiagnostic
	first := true

	for _, file := range files {
		df, err := m.readTable(file, opts.HeaderSkip)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}

		df, fileDiags := m.normalizeFrame(df, file)
		diags = append(diags, fileDiags...)

		if first {
			merged = df
			first = false
		} else {
			merged = merged.RBind(df)
			if merged.Err != nil {
				return nil, fmt.Errorf("concatenating %s: %w", file, merged.Err)
			}
		}
	}

	merged = merged.Arrange(dataframe.Sort(sortKeyCol))
	if merged.Err != nil {
		return nil, fmt.Errorf("sorting merged dataset: %w", merged.Err)
	}
	merged = merged.Drop(sortKeyCol)
	if merged.Err != nil {
		return nil, fmt.Errorf("dropping sort key: %w", merged.Err)
	}

	for _, d := range diags {
		m.logger.Warn("Unparseable run_date, row retained with empty date",
			"file", d.File,
			"row", d.Row,
			"raw", d.Raw,
			"runes", d.RuneCodes())
	}

	if err := m.writeCSV(merged, opts.OutputFile); err != nil {
		return nil, err
	}

	m.logger.Info("Merge complete",
		"files", len(files),
		"rows", merged.Nrow(),
		"unparseable_dates", len(diags),
		"output", opts.OutputFile)

	return &Result{
		Files:       len(files),
		Rows:        merged.Nrow(),
		Frame:       merged,
		Diagnostics: diags,
	}, nil
}

// readTable loads one export file into a dataframe, skipping the junk
// rows the export tool emits above the header. All columns are kept as
// strings: hhmm times would otherwise lose their leading zeros to type
// inference.
func (m *Merger) readTable(file string, headerSkip int) (dataframe.DataFrame, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	lines := strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n")
	skip := headerSkip
	if skip < 0 {
		skip = detectHeaderSkip(lines)
	}
	if skip >= len(lines) {
		return dataframe.DataFrame{}, fmt.Errorf("header skip %d leaves no rows", skip)
	}

	df := dataframe.ReadCSV(
		strings.NewReader(strings.Join(lines[skip:], "\n")),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, df.Err
	}
	m.logger.Debug("Read file", "file", file, "rows", df.Nrow(), "header_skip", skip)
	return df, nil
}

// detectHeaderSkip scans the leading lines for the known first header
// column. The number of junk rows above the header varies with the
// export tool's version, so it cannot be a constant.
func detectHeaderSkip(lines []string) int {
	marker := models.Columns[0] + ","
	limit := len(lines)
	if limit > 10 {
		limit = 10
	}
	for i := 0; i < limit; i++ {
		if strings.HasPrefix(stripInvisible(lines[i]), marker) {
			return i
		}
	}
	return 0
}

// normalizeFrame rewrites run_date to the canonical DD/MM/YYYY form
// and attaches the composite sort key column. Unparseable dates become
// empty strings and are reported, never dropped; their key starts with
// an empty date part, so they sort ahead of every dated row.
func (m *Merger) normalizeFrame(df dataframe.DataFrame, file string) (dataframe.DataFrame, []DateDiagnostic) {
	raw := df.Col("run_date").Records()
	deps := df.Col("gbtt_dep").Records()
	arrs := df.Col("gbtt_arr").Records()
	canonical := make([]string, len(raw))
	keys := make([]string, len(raw))
	var diags []DateDiagnostic

	for i, s := range raw {
		dateKey := ""
		t, ok := NormalizeDate(s)
		if !ok {
			diags = append(diags, DateDiagnostic{File: file, Row: i + 1, Raw: s})
		} else {
			canonical[i] = t.Format(CanonicalDateLayout)
			dateKey = t.Format("20060102")
		}
		keys[i] = dateKey + "|" + deps[i] + "|" + arrs[i]
	}

	df = df.Mutate(series.New(canonical, series.String, "run_date"))
	df = df.Mutate(series.New(keys, series.String, sortKeyCol))
	return df, diags
}

func (m *Merger) writeCSV(df dataframe.DataFrame, outputFile string) error {
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

	if err := df.WriteCSV(out); err != nil {
		return fmt.Errorf("writing merged CSV: %w", err)
	}
	return nil
}
