// Package cleaning normalizes a raw event log into cleaned, temporally ordered events.
//
// The ordering produced here is a precondition for every windowed computation
// downstream; later stages never re-sort.
package cleaning

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/okian/pvnet/internal/domain/model"
)

// NeededColumns are guaranteed on every cleaned event. Absent ones are unset.
var NeededColumns = []string{
	"competition_id", "season_id",
	"match_id", "period", "minute", "second", "timestamp",
	"possession", "possession_team", "team", "player",
	"type", "location", "pass_end_location", "carry_end_location",
	"shot_end_location", "pass_outcome", "dribble_outcome",
	"shot_outcome", "index",
}

// Scheme is the temporal ordering key used within a match.
type Scheme string

const (
	// SchemeIndex orders by (match_id, period, index).
	SchemeIndex Scheme = "index"
	// SchemeClock orders by (match_id, period, minute, second).
	SchemeClock Scheme = "clock"
)

// Result is the cleaned table with the ordering scheme that produced it.
type Result struct {
	Events []model.Event
	Scheme Scheme
}

// Clean converts raw records into cleaned events sorted in match-local temporal order.
//
// When every record carries an index the index scheme is used; if any record
// lacks it the clock scheme applies to the whole input. Ties keep input order.
// A match_id column absent from every record is a SchemaError; an empty input is not.
func Clean(raw []model.RawEvent) (Result, error) {
	if len(raw) > 0 && !anyHas(raw, "match_id") {
		return Result{}, &model.SchemaError{Column: "match_id"}
	}

	events := make([]model.Event, len(raw))
	allIndexed := len(raw) > 0
	for i, r := range raw {
		events[i] = normalize(i, r)
		if events[i].Index == nil {
			allIndexed = false
		}
	}

	scheme := SchemeClock
	if allIndexed {
		scheme = SchemeIndex
	}
	slices.SortStableFunc(events, compareFor(scheme))
	return Result{Events: events, Scheme: scheme}, nil
}

func anyHas(raw []model.RawEvent, column string) bool {
	for _, r := range raw {
		if r.Has(column) {
			return true
		}
	}
	return false
}

func normalize(row int, r model.RawEvent) model.Event {
	ev := model.Event{
		Row:              row,
		ID:               model.DisplayName(r["id"]),
		CompetitionID:    model.OptionalString(r["competition_id"]),
		SeasonID:         model.OptionalString(r["season_id"]),
		MatchID:          model.OptionalString(r["match_id"]),
		Period:           model.OptionalInt(r["period"]),
		Minute:           model.OptionalFloat(r["minute"]),
		Second:           model.OptionalFloat(r["second"]),
		Timestamp:        model.OptionalString(r["timestamp"]),
		Index:            model.OptionalInt(r["index"]),
		Possession:       model.OptionalString(r["possession"]),
		Type:             r["type"],
		Team:             r["team"],
		PossessionTeam:   r["possession_team"],
		Player:           r["player"],
		Location:         r["location"],
		PassEndLocation:  r["pass_end_location"],
		CarryEndLocation: r["carry_end_location"],
		ShotEndLocation:  r["shot_end_location"],
		PassOutcome:      model.OptionalString(r["pass_outcome"]),
		DribbleOutcome:   model.OptionalString(r["dribble_outcome"]),
		ShotOutcome:      model.OptionalString(r["shot_outcome"]),
	}
	ev.TypeName = model.DisplayName(ev.Type)
	ev.TeamName = model.DisplayName(ev.Team)
	ev.PossessionTeamName = model.DisplayName(ev.PossessionTeam)
	ev.PlayerName = model.DisplayName(ev.Player)
	return ev
}

func compareFor(scheme Scheme) func(a, b model.Event) int {
	return func(a, b model.Event) int {
		if c := compareMatch(a.MatchID, b.MatchID); c != 0 {
			return c
		}
		if c := compareNil(a.Period, b.Period); c != 0 {
			return c
		}
		if scheme == SchemeIndex {
			return compareNil(a.Index, b.Index)
		}
		if c := compareNil(a.Minute, b.Minute); c != 0 {
			return c
		}
		return compareNil(a.Second, b.Second)
	}
}

// compareNil orders set values ascending and unset values last.
func compareNil[T cmp.Ordered](a, b *T) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return cmp.Compare(*a, *b)
}

// compareMatch orders match ids numerically when both are integers, else lexically.
func compareMatch(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return CompareMatchIDs(*a, *b)
}

// CompareMatchIDs orders match identifiers, numerically when both parse as integers.
func CompareMatchIDs(a, b string) int {
	x, errA := strconv.ParseInt(strings.TrimSpace(a), 10, 64)
	y, errB := strconv.ParseInt(strings.TrimSpace(b), 10, 64)
	switch {
	case errA == nil && errB == nil:
		return cmp.Compare(x, y)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	}
	return strings.Compare(a, b)
}
