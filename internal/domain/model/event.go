// Package model contains domain models passed between pipeline stages.
package model

import "strconv"

// Event type names that carry meaning for features and labels.
const (
	TypePass    = "Pass"
	TypeCarry   = "Carry"
	TypeDribble = "Dribble"
	TypeShot    = "Shot"

	OutcomeGoal = "Goal"
)

// RawEvent is one record of a raw event log keyed by column name.
// Values are whatever the source decoded: numbers, strings, lists, nested objects or nil.
type RawEvent map[string]any

// Has reports whether the column key is present on the record, even if its value is nil.
func (r RawEvent) Has(column string) bool {
	_, ok := r[column]
	return ok
}

// Event is a cleaned on-ball action. Pointer fields are nil when the column
// was absent or unset on the raw record.
type Event struct {
	// Row is the position of the record in the raw input, kept for stable tie-breaks.
	Row int

	ID            string
	CompetitionID *string
	SeasonID      *string
	MatchID       *string
	Period        *int
	Minute        *float64
	Second        *float64
	Timestamp     *string
	Index         *int
	// Possession is the stringified possession identifier, unique within a match.
	Possession    *string

	// Raw identifier values as delivered by the source.
	Type           any
	Team           any
	PossessionTeam any
	Player         any

	// Display columns derived by stringification of the raw identifiers.
	TypeName           string
	TeamName           string
	PossessionTeamName string
	PlayerName         string

	Location         any
	PassEndLocation  any
	CarryEndLocation any
	ShotEndLocation  any

	PassOutcome    *string
	DribbleOutcome *string
	ShotOutcome    *string
}

// MatchKey returns the match identifier and whether it is set.
func (e Event) MatchKey() (string, bool) {
	if e.MatchID == nil {
		return "", false
	}
	return *e.MatchID, true
}

// PossessionKey identifies a possession inside one match.
type PossessionKey struct {
	MatchID    string
	Possession string
}

// PossessionKey returns the (match_id, possession) group of the event.
// The second result is false when either component is unset.
func (e Event) PossessionKey() (PossessionKey, bool) {
	if e.MatchID == nil || e.Possession == nil {
		return PossessionKey{}, false
	}
	return PossessionKey{MatchID: *e.MatchID, Possession: *e.Possession}, true
}

// PossessionNumber returns the possession identifier as an integer, or nil
// when it is unset or not numeric.
func (e Event) PossessionNumber() *int {
	if e.Possession == nil {
		return nil
	}
	n, err := strconv.Atoi(*e.Possession)
	if err != nil {
		return nil
	}
	return &n
}

// IsShot reports whether the event is a Shot.
func (e Event) IsShot() bool { return e.TypeName == TypeShot }

// IsGoal reports whether the event is a Shot whose outcome is Goal.
func (e Event) IsGoal() bool {
	return e.IsShot() && e.ShotOutcome != nil && *e.ShotOutcome == OutcomeGoal
}
