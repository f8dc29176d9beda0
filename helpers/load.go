package helpers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/spektr-org/meditrack/engine"
	"github.com/spektr-org/meditrack/logger"
	"github.com/spektr-org/meditrack/schema"
)

// ============================================================================
// LOAD — file → normalized engine.Dataset
// ============================================================================

// Supported input formats.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// LoadError reports a source that could not be read as tabular data.
// The loader still returns a valid empty Dataset alongside it.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// DetectFormat maps a file extension to a format. Unknown extensions read
// as CSV.
func DetectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".pq":
		return FormatParquet
	}
	return FormatCSV
}

// Load reads and normalizes the file at path, detecting its format.
func Load(path string) (*engine.Dataset, error) {
	return LoadFormat(path, "")
}

// LoadFormat reads and normalizes the file at path. An empty format is
// detected from the extension.
//
// On failure the returned Dataset is empty (zero rows, derived columns
// present) and the error is a *LoadError.
func LoadFormat(path, format string) (*engine.Dataset, error) {
	if format == "" {
		format = DetectFormat(path)
	}
	log := logger.WithFields(logrus.Fields{"path": path, "format": format})

	raw, err := readRaw(path, format)
	if err != nil {
		loadErr := &LoadError{Path: path, Err: err}
		log.WithError(err).Warn("Failed to load dataset, continuing with empty data")
		return stamp(schema.Normalize(schema.RawTable{}), path), loadErr
	}

	ds := stamp(schema.Normalize(raw), path)
	log.WithFields(logrus.Fields{
		"load_id": ds.LoadID,
		"rows":    ds.Len(),
		"columns": len(ds.ColumnNames()),
	}).Info("Dataset loaded")
	return ds, nil
}

func readRaw(path, format string) (schema.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return schema.RawTable{}, err
	}
	defer f.Close()

	switch format {
	case FormatCSV:
		return ReadCSV(f)
	case FormatParquet:
		stat, err := f.Stat()
		if err != nil {
			return schema.RawTable{}, err
		}
		return ReadParquet(f, stat.Size())
	}
	return schema.RawTable{}, fmt.Errorf("unsupported format %q", format)
}

func stamp(ds *engine.Dataset, path string) *engine.Dataset {
	ds.LoadID = uuid.NewString()
	ds.Source = path
	return ds
}
