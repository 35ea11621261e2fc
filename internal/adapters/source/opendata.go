package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/okian/pvnet/internal/domain/model"
	"github.com/okian/pvnet/pkg/logger"
)

const defaultReadConcurrency = 8

// OpenDataSource reads one competition season from a StatsBomb open-data
// checkout laid out as matches/{competition}/{season}.json and
// events/{match_id}.json.
type OpenDataSource struct {
	root               string
	competitionID      int
	seasonID           int
	includeFreezeFrame bool
	concurrency        int
	logger             logger.Logger
}

// OpenDataOption configures an OpenDataSource.
type OpenDataOption func(*OpenDataSource)

// WithFreezeFrame keeps freeze_frame columns, which are dropped by default.
func WithFreezeFrame(include bool) OpenDataOption {
	return func(s *OpenDataSource) {
		s.includeFreezeFrame = include
	}
}

// WithReadConcurrency reads up to n match files at once.
func WithReadConcurrency(n int) OpenDataOption {
	return func(s *OpenDataSource) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) OpenDataOption {
	return func(s *OpenDataSource) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewOpenDataSource returns a source for one competition season under root.
func NewOpenDataSource(root string, competitionID, seasonID int, opts ...OpenDataOption) *OpenDataSource {
	s := &OpenDataSource{
		root:          root,
		competitionID: competitionID,
		seasonID:      seasonID,
		concurrency:   defaultReadConcurrency,
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type matchInfo struct {
	MatchID json.Number `json:"match_id"`
}

// Load reads every match of the season, flattens its events and stamps
// match_id, competition_id and season_id on each of them.
func (s *OpenDataSource) Load(ctx context.Context) ([]model.RawEvent, error) {
	matchesPath := filepath.Join(s.root, "matches", strconv.Itoa(s.competitionID), strconv.Itoa(s.seasonID)+".json")
	var matches []matchInfo
	if err := readJSON(matchesPath, &matches); err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %d/%d", ErrMatchNotListed, s.competitionID, s.seasonID)
	}

	perMatch := make([][]model.RawEvent, len(matches))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.concurrency)
	for i, m := range matches {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			events, err := s.loadMatch(m.MatchID)
			if err != nil {
				return err
			}
			perMatch[i] = events
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var all []model.RawEvent
	for _, events := range perMatch {
		all = append(all, events...)
	}
	s.logger.Info(ctx, "open data loaded",
		logger.Int("competition_id", s.competitionID),
		logger.Int("season_id", s.seasonID),
		logger.Int("matches", len(matches)),
		logger.Int("events", len(all)),
	)
	return Unique(ctx, all), nil
}

func (s *OpenDataSource) loadMatch(id json.Number) ([]model.RawEvent, error) {
	matchID, err := id.Int64()
	if err != nil {
		return nil, fmt.Errorf("match id %q: %w", id, err)
	}
	var raw []map[string]any
	if err := readJSON(filepath.Join(s.root, "events", id.String()+".json"), &raw); err != nil {
		return nil, err
	}
	out := make([]model.RawEvent, len(raw))
	for i, r := range raw {
		ev := Flatten(r, s.includeFreezeFrame)
		ev["match_id"] = float64(matchID)
		ev["competition_id"] = float64(s.competitionID)
		ev["season_id"] = float64(s.seasonID)
		out[i] = ev
	}
	return out, nil
}

func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Flatten turns a nested event object into flat columns. Attribute objects
// such as pass or shot become prefixed columns (pass.end_location ->
// pass_end_location); {id, name} reference objects become their name.
// Columns mentioning freeze_frame are dropped unless keepFreezeFrame is set.
func Flatten(ev map[string]any, keepFreezeFrame bool) model.RawEvent {
	out := make(model.RawEvent, len(ev))
	flattenInto(out, "", ev, keepFreezeFrame)
	return out
}

func flattenInto(out model.RawEvent, prefix string, obj map[string]any, keepFreezeFrame bool) {
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "_" + k
		}
		if !keepFreezeFrame && strings.Contains(key, "freeze_frame") {
			continue
		}
		nested, ok := v.(map[string]any)
		if !ok {
			out[key] = v
			continue
		}
		if name, ok := referenceName(nested); ok {
			out[key] = name
			continue
		}
		flattenInto(out, key, nested, keepFreezeFrame)
	}
}

// referenceName returns the name of an {id, name} object.
func referenceName(obj map[string]any) (string, bool) {
	name, ok := obj["name"].(string)
	if !ok {
		return "", false
	}
	for k := range obj {
		if k != "id" && k != "name" {
			return "", false
		}
	}
	return name, true
}
