package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/traindata-collector/internal/common/config"
	"github.com/traindata-collector/internal/common/db"
	"github.com/traindata-collector/internal/common/logger"
	"github.com/traindata-collector/internal/merge"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fail(fmt.Errorf("loading configuration: %w", err))
	}

	var (
		headerSkip = flag.Int("header-skip", cfg.Merge.HeaderSkip, "Junk rows above the header line, -1 to auto-detect")
		importDB   = flag.Bool("import-db", false, "Also load the merged dataset into Postgres")
	)
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 2 {
		usage()
		os.Exit(1)
	}
	pattern := flag.Arg(0)
	outputFile := flag.Arg(1)

	log := logger.NewWithLevel(
		logger.ParseLogLevel(cfg.Logging.Level),
		logger.ConsoleWriter(),
		logger.FileWriter(cfg.Logging.FilePath),
	)

	merger := merge.NewMerger(log)
	result, err := merger.Merge(merge.Options{
		Pattern:    pattern,
		OutputFile: outputFile,
		HeaderSkip: *headerSkip,
	})
	if err != nil {
		fail(err)
	}

	if *importDB {
		database, err := db.New(cfg.Database.ConnectionString(), log)
		if err != nil {
			fail(fmt.Errorf("connecting to database: %w", err))
		}
		defer database.Close()

		ctx := context.Background()
		importer := merge.NewImporter(database)
		rows, err := importer.Import(ctx, result.Frame, pattern, result.Files)
		if err != nil {
			fail(fmt.Errorf("importing merged dataset: %w", err))
		}

		// confirm the completed run landed before reporting success
		runID, err := db.NewRunRecorder(database).LatestRun(ctx)
		if err != nil {
			fail(fmt.Errorf("verifying import run: %w", err))
		}
		log.Info("Import complete", "run_id", runID, "rows", rows)
	}

	fmt.Println(outputFile)
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: merger [flags] <pattern> <output>")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Example: merger 'data/raw/location_gb-nr_RDNGSTN_*.csv' data/RDG_ALL.csv")
	fmt.Fprintln(os.Stderr)
	flag.PrintDefaults()
}

func fail(err error) {
	fmt.Printf("Error: %s\n", err)
	os.Exit(2)
}
