package merge

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-gota/gota/dataframe"

	"github.com/traindata-collector/internal/common/db"
	"github.com/traindata-collector/pkg/models"
)

// Importer loads a merged dataset into Postgres, batching rows into
// multi-row INSERTs inside a single transaction.
type Importer struct {
	db        *db.DB
	batchSize int
}

func NewImporter(database *db.DB) *Importer {
	return &Importer{
		db:        database,
		batchSize: 1000,
	}
}

// Import writes every row of the merged frame into
// traindata.service_observations tagged with a fresh import-run ID.
// Returns the number of rows inserted.
func (i *Importer) Import(ctx context.Context, frame dataframe.DataFrame, pattern string, fileCount int) (int, error) {
	runs := db.NewRunRecorder(i.db)
	runID, err := runs.CreateRun(ctx, pattern, fileCount)
	if err != nil {
		return 0, err
	}

	tx, err := i.db.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	batch := newBatchInserter(tx, runID, i.batchSize)

	records := frame.Records()
	if len(records) < 1 {
		return 0, fmt.Errorf("merged frame has no header")
	}
	header := records[0]

	count := 0
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for idx, col := range header {
			if idx < len(rec) {
				row[col] = rec[idx]
			}
		}
		if err := batch.Add(models.ServiceRowFromRecord(row)); err != nil {
			return 0, fmt.Errorf("inserting row %d: %w", count+1, err)
		}
		count++
	}

	if err := batch.Flush(); err != nil {
		return 0, fmt.Errorf("flushing final batch: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing import: %w", err)
	}

	if err := runs.FinalizeRun(ctx, runID, count); err != nil {
		return count, err
	}

	i.db.Logger().Info("Imported merged dataset",
		"run_id", runID,
		"rows", count)
	return count, nil
}

// one observation is run_id plus the 26 export columns
const observationFieldCount = 27

type batchInserter struct {
	tx         *sql.Tx
	runID      int
	values     []interface{}
	valueCount int
	batchSize  int
}

func newBatchInserter(tx *sql.Tx, runID, batchSize int) *batchInserter {
	return &batchInserter{
		tx:        tx,
		runID:     runID,
		values:    make([]interface{}, 0, batchSize*observationFieldCount),
		batchSize: batchSize,
	}
}

func (b *batchInserter) Add(row *models.ServiceRow) error {
	b.values = append(b.values,
		b.runID,
		nullString(row.STPIndicator),
		nullString(row.TransportType),
		nullString(row.ScheduleUID),
		nullString(row.RunDate),
		nullString(row.TrainIdentity),
		nullString(row.ThisTiploc),
		nullString(row.ThisCRS),
		nullString(row.OriginTiploc),
		nullString(row.OriginDescription),
		nullString(row.DestinationTiploc),
		nullString(row.DestinationDescription),
		nullString(row.GBTTArr),
		nullString(row.GBTTDep),
		nullString(row.WTTArr),
		nullString(row.WTTDep),
		nullString(row.WTTPass),
		nullString(row.ActualArr),
		nullInt(row.ActualArrDelayMins),
		nullString(row.ActualDep),
		nullInt(row.ActualDepDelayMins),
		nullString(row.ActualPass),
		nullInt(row.ActualPassDelayMins),
		nullString(row.Platform),
		nullString(row.PlatformActual),
		nullString(row.LeadClass),
		nullString(row.NumVehicles),
	)
	b.valueCount++

	if b.valueCount >= b.batchSize {
		return b.Flush()
	}
	return nil
}

func (b *batchInserter) Flush() error {
	if b.valueCount == 0 {
		return nil
	}

	query := b.buildInsertQuery()
	if _, err := b.tx.Exec(query, b.values...); err != nil {
		return fmt.Errorf("executing batch insert: %w", err)
	}

	// Reset
	b.values = b.values[:0]
	b.valueCount = 0

	return nil
}

func (b *batchInserter) buildInsertQuery() string {
	columns := append([]string{"run_id"}, models.Columns...)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("INSERT INTO traindata.service_observations (%s) VALUES ",
		strings.Join(columns, ", ")))

	for i := 0; i < b.valueCount; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := 0; j < observationFieldCount; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("$%d", i*observationFieldCount+j+1))
		}
		sb.WriteString(")")
	}

	sb.WriteString(" ON CONFLICT DO NOTHING")
	return sb.String()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}
