// Package source reads raw event logs from disk.
package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/pvnet/internal/domain/dedupe"
	"github.com/okian/pvnet/internal/domain/model"
	"github.com/okian/pvnet/pkg/metrics"
)

// Source loads a raw event log.
type Source interface {
	Load(ctx context.Context) ([]model.RawEvent, error)
}

// FileSource reads flat records from a JSON array (.json) or JSON Lines
// (.jsonl, .ndjson) file.
type FileSource struct {
	path string
}

// NewFileSource returns a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Load reads and decodes the file. Records repeating an earlier id are dropped.
func (s *FileSource) Load(ctx context.Context) ([]model.RawEvent, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	var events []model.RawEvent
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".json":
		if err := json.NewDecoder(bufio.NewReader(f)).Decode(&events); err != nil {
			return nil, fmt.Errorf("decode %s: %w", s.path, err)
		}
	case ".jsonl", ".ndjson":
		events, err = decodeLines(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", s.path, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, s.path)
	}
	return Unique(ctx, events), nil
}

func decodeLines(ctx context.Context, f *os.File) ([]model.RawEvent, error) {
	var events []model.RawEvent
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		b := sc.Bytes()
		if len(bytes.TrimSpace(b)) == 0 {
			continue
		}
		var ev model.RawEvent
		if err := json.Unmarshal(b, &ev); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		events = append(events, ev)
	}
	return events, sc.Err()
}

// Unique drops records whose id was already seen, keeping the first delivery.
// Records without an id are kept.
func Unique(ctx context.Context, events []model.RawEvent) []model.RawEvent {
	seen := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
	out := make([]model.RawEvent, 0, len(events))
	for _, ev := range events {
		id := model.DisplayName(ev["id"])
		if id != "" && seen.SeenAndRecord(ctx, id) {
			metrics.RecordEventDuplicate()
			continue
		}
		out = append(out, ev)
	}
	metrics.RecordEventsIngested(len(out))
	return out
}
