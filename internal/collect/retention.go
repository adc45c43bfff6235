package collect

import (
	"os"
	"path/filepath"
	"time"

	"github.com/traindata-collector/internal/common/logger"
)

// PruneRawFiles removes per-date raw CSVs older than retentionDays
// from destDir. Only files matching the canonical data_*.csv pattern
// are considered; merged outputs and debug artifacts are left alone.
//
// A retentionDays of zero or less disables the sweep.
func PruneRawFiles(destDir string, retentionDays int, log logger.Logger) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	matches, err := filepath.Glob(filepath.Join(destDir, "data_*.csv"))
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			log.Warn("Failed to prune raw file", "path", path, "error", err)
			continue
		}
		removed++
		log.Debug("Pruned raw file", "path", path)
	}

	if removed > 0 {
		log.Info("Raw file retention sweep complete",
			"removed", removed,
			"retention_days", retentionDays)
	}
	return removed, nil
}
