package source

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/pvnet/internal/domain/model"
)

// WriteFile writes events in the format FileSource reads for path's extension.
func WriteFile(path string, events []model.RawEvent) (err error) {
	lines := false
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
	case ".jsonl", ".ndjson":
		lines = true
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	if lines {
		for i, ev := range events {
			if err := enc.Encode(ev); err != nil {
				return fmt.Errorf("encode event %d: %w", i, err)
			}
		}
	} else {
		if events == nil {
			events = []model.RawEvent{}
		}
		if err := enc.Encode(events); err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
	}
	return w.Flush()
}
