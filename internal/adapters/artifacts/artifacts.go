// Package artifacts writes datasets as columnar files plus a JSON manifest
// and checks the dashboard's file and column contract.
package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/okian/pvnet/internal/domain/model"
	"github.com/okian/pvnet/internal/domain/pipeline"
	"github.com/okian/pvnet/internal/domain/split"
)

// ManifestFile is the dataset manifest written next to the split files.
const ManifestFile = "dataset.json"

// DashboardColumns are looked up by the dashboard on event tables.
// action_value_dashboard and minute_bucket are added by the scoring step.
var DashboardColumns = []string{
	"start_x", "start_y", "end_x", "end_y",
	"action_value_dashboard", "minute_bucket",
	"team_name", "player_name", "match_id",
}

// SplitFile returns the file name holding a split's rows.
func SplitFile(s split.Name) string {
	return string(s) + "_events.parquet"
}

// Files lists every artifact Write produces.
func Files() []string {
	out := make([]string, 0, len(split.Names)+1)
	for _, s := range split.Names {
		out = append(out, SplitFile(s))
	}
	return append(out, ManifestFile)
}

// Manifest describes a written dataset.
type Manifest struct {
	CreatedAt      time.Time             `json:"created_at"`
	K              int                   `json:"k_future_events"`
	Seed           int64                 `json:"random_seed"`
	Fractions      split.Fractions       `json:"fractions"`
	FeatureColumns []string              `json:"feature_columns"`
	LabelColumns   []string              `json:"label_columns"`
	Files          map[split.Name]string `json:"files"`
	Assignment     map[string]split.Name `json:"assignment"`
	Summary        pipeline.Summary      `json:"summary"`
}

// Write stores each split of ds as parquet under dir, then the manifest.
func Write(dir string, ds *pipeline.Dataset) (Manifest, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Manifest{}, fmt.Errorf("create %s: %w", dir, err)
	}

	m := Manifest{
		CreatedAt:      time.Now().UTC(),
		K:              ds.K,
		Seed:           ds.Seed,
		Fractions:      ds.Fractions,
		FeatureColumns: model.FeatureColumns,
		LabelColumns:   model.LabelColumns,
		Files:          make(map[split.Name]string, len(split.Names)),
		Assignment:     ds.Splits.Assignment,
		Summary:        ds.Summary,
	}
	for _, s := range split.Names {
		name := SplitFile(s)
		rows := FromLabeled(ds.Splits.Rows(s), s)
		if err := parquet.WriteFile(filepath.Join(dir, name), rows); err != nil {
			return Manifest{}, fmt.Errorf("write %s: %w", name, err)
		}
		m.Files[s] = name
	}

	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return Manifest{}, fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), b, 0o644); err != nil {
		return Manifest{}, fmt.Errorf("write manifest: %w", err)
	}
	return m, nil
}

// Read loads the rows of one split from dir.
func Read(dir string, s split.Name) ([]Row, error) {
	if !slices.Contains(split.Names, s) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSplit, s)
	}
	rows, err := parquet.ReadFile[Row](filepath.Join(dir, SplitFile(s)))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", SplitFile(s), err)
	}
	return rows, nil
}

// ReadManifest loads the manifest from dir.
func ReadManifest(dir string) (Manifest, error) {
	var m Manifest
	b, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return m, fmt.Errorf("read manifest: %w", err)
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

// MissingArtifacts returns the names under dir that do not exist, in order.
func MissingArtifacts(dir string, names []string) []string {
	var missing []string
	for _, n := range names {
		if _, err := os.Stat(filepath.Join(dir, n)); errors.Is(err, os.ErrNotExist) {
			missing = append(missing, n)
		}
	}
	return missing
}

// Columns returns the top-level column names of a parquet file.
func Columns(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}
	fields := pf.Schema().Fields()
	out := make([]string, len(fields))
	for i, field := range fields {
		out[i] = field.Name()
	}
	return out, nil
}

// RowColumns returns the column names of Row.
func RowColumns() []string {
	fields := parquet.SchemaOf(Row{}).Fields()
	out := make([]string, len(fields))
	for i, field := range fields {
		out[i] = field.Name()
	}
	return out
}

// MissingColumns returns the required columns absent from have, in required order.
func MissingColumns(have, required []string) []string {
	var missing []string
	for _, c := range required {
		if !slices.Contains(have, c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// CheckColumns verifies that the parquet file at path carries every required column.
func CheckColumns(path string, required []string) error {
	have, err := Columns(path)
	if err != nil {
		return err
	}
	if missing := MissingColumns(have, required); len(missing) > 0 {
		return fmt.Errorf("%w: %s: %v", ErrMissingColumns, filepath.Base(path), missing)
	}
	return nil
}
