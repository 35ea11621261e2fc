// Package synth generates deterministic synthetic match event streams in the
// open-data event shape, for demos and tests.
package synth

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/okian/pvnet/internal/domain/model"
)

// Type ids as they appear in the open-data event vocabulary.
const (
	typeIDPass    = 30
	typeIDCarry   = 43
	typeIDDribble = 14
	typeIDShot    = 16
)

const (
	halfSeconds  = 45 * 60
	goalMouthLow = 36.0
	goalMouthTop = 44.0
)

var teams = []string{
	"Arsenal WFC", "Chelsea FCW", "Manchester City WFC", "Everton LFC",
	"Reading WFC", "Brighton & Hove Albion WFC", "Bristol City WFC", "West Ham United LFC",
}

var missOutcomes = []string{"Saved", "Off T", "Blocked", "Wayward", "Post"}

// Config controls the shape of generated matches.
type Config struct {
	Matches             int
	PossessionsPerMatch int
	// MaxActions bounds the on-ball actions before a possession ends.
	MaxActions int
	// ShotRate is the chance that a possession which is not lost ends in a shot.
	ShotRate float64
	// GoalRate is the chance that a shot is scored.
	GoalRate float64
	// TurnoverRate is the chance that a pass is incomplete and ends the possession.
	TurnoverRate float64
	// MalformedRate is the chance that an action has no start location.
	MalformedRate float64

	Seed          int64
	CompetitionID int
	SeasonID      int
	FirstMatchID  int
}

// DefaultConfig returns a small league-like configuration.
func DefaultConfig() Config {
	return Config{
		Matches:             10,
		PossessionsPerMatch: 120,
		MaxActions:          12,
		ShotRate:            0.25,
		GoalRate:            0.12,
		TurnoverRate:        0.12,
		MalformedRate:       0.01,
		Seed:                42,
		CompetitionID:       37,
		SeasonID:            90,
		FirstMatchID:        3_764_230,
	}
}

// Validate checks counts and rates.
func (c Config) Validate() error {
	switch {
	case c.Matches < 0:
		return &model.ConfigurationError{Field: "matches", Reason: fmt.Sprintf("must be >= 0, got %d", c.Matches)}
	case c.PossessionsPerMatch < 1:
		return &model.ConfigurationError{Field: "possessions_per_match", Reason: fmt.Sprintf("must be >= 1, got %d", c.PossessionsPerMatch)}
	case c.MaxActions < 1:
		return &model.ConfigurationError{Field: "max_actions", Reason: fmt.Sprintf("must be >= 1, got %d", c.MaxActions)}
	}
	for name, r := range map[string]float64{
		"shot_rate":      c.ShotRate,
		"goal_rate":      c.GoalRate,
		"turnover_rate":  c.TurnoverRate,
		"malformed_rate": c.MalformedRate,
	} {
		if r < 0 || r > 1 {
			return &model.ConfigurationError{Field: name, Reason: fmt.Sprintf("must be in [0, 1], got %v", r)}
		}
	}
	return nil
}

// Generate returns the events of cfg.Matches matches, match by match in temporal order.
func Generate(ctx context.Context, cfg Config) ([]model.RawEvent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
	var out []model.RawEvent
	for m := 0; m < cfg.Matches; m++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generate match %d: %w", m, err)
		}
		out = append(out, g.match(cfg.FirstMatchID+m)...)
	}
	return out, nil
}

type generator struct {
	cfg Config
	rng *rand.Rand

	// per-match state
	matchID int
	index   int
	clock   int
	period  int
	events  []model.RawEvent
}

func (g *generator) match(matchID int) []model.RawEvent {
	g.matchID, g.index, g.clock, g.period = matchID, 0, 0, 1
	g.events = nil

	home := g.rng.Intn(len(teams))
	away := (home + 1 + g.rng.Intn(len(teams)-1)) % len(teams)
	half := g.cfg.PossessionsPerMatch / 2

	for p := 1; p <= g.cfg.PossessionsPerMatch; p++ {
		if p == half+1 && half > 0 {
			g.period, g.clock = 2, halfSeconds
		}
		team := home
		if p%2 == 0 {
			team = away
		}
		g.possession(p, team)
	}
	return g.events
}

// possession emits actions moving the ball upfield until it is lost, shot,
// or the action budget runs out.
func (g *generator) possession(p, team int) {
	x := 10 + g.rng.Float64()*50
	y := 5 + g.rng.Float64()*70
	n := 1 + g.rng.Intn(g.cfg.MaxActions)

	for a := 0; a < n; a++ {
		nx := clamp(x+g.rng.Float64()*18-3, 0, model.PitchLength)
		ny := clamp(y+g.rng.NormFloat64()*8, 0, model.PitchWidth)
		ev := g.event(p, team)

		switch r := g.rng.Float64(); {
		case r < 0.5:
			g.setType(ev, typeIDPass, model.TypePass)
			ev["pass_end_location"] = []any{nx, ny}
			if g.rng.Float64() < g.cfg.TurnoverRate {
				ev["pass_outcome"] = "Incomplete"
				g.emit(ev, x, y)
				return
			}
		case r < 0.85:
			g.setType(ev, typeIDCarry, model.TypeCarry)
			ev["carry_end_location"] = []any{nx, ny}
		default:
			g.setType(ev, typeIDDribble, model.TypeDribble)
			nx, ny = x, y
			if g.rng.Float64() < 0.3 {
				ev["dribble_outcome"] = "Incomplete"
			}
		}
		g.emit(ev, x, y)
		x, y = nx, ny
	}

	if g.rng.Float64() >= g.cfg.ShotRate {
		return
	}
	ev := g.event(p, team)
	g.setType(ev, typeIDShot, model.TypeShot)
	ev["shot_end_location"] = []any{model.PitchLength, goalMouthLow + g.rng.Float64()*(goalMouthTop-goalMouthLow), g.rng.Float64() * 2.5}
	if g.rng.Float64() < g.cfg.GoalRate {
		ev["shot_outcome"] = "Goal"
	} else {
		ev["shot_outcome"] = missOutcomes[g.rng.Intn(len(missOutcomes))]
	}
	g.emit(ev, x, y)
}

func (g *generator) event(p, team int) model.RawEvent {
	g.index++
	g.clock += 1 + g.rng.Intn(6)
	id, _ := uuid.NewRandomFromReader(g.rng)
	name := teams[team]
	return model.RawEvent{
		"id":              id.String(),
		"index":           float64(g.index),
		"period":          float64(g.period),
		"minute":          float64(g.clock / 60),
		"second":          float64(g.clock % 60),
		"timestamp":       timestamp(g.clock, g.period),
		"possession":      float64(p),
		"match_id":        float64(g.matchID),
		"competition_id":  float64(g.cfg.CompetitionID),
		"season_id":       float64(g.cfg.SeasonID),
		"team":            name,
		"possession_team": name,
		"player":          fmt.Sprintf("%s #%d", name, 1+g.rng.Intn(11)),
	}
}

func (g *generator) setType(ev model.RawEvent, id int, name string) {
	ev["type"] = map[string]any{"id": float64(id), "name": name}
}

func (g *generator) emit(ev model.RawEvent, x, y float64) {
	if g.rng.Float64() >= g.cfg.MalformedRate {
		ev["location"] = []any{x, y}
	}
	g.events = append(g.events, ev)
}

func timestamp(clock, period int) string {
	if period == 2 {
		clock -= halfSeconds
	}
	return fmt.Sprintf("00:%02d:%02d.000", clock/60, clock%60)
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
