package model

import "fmt"

// Day identifies one of the two event days.  Values are the calendar
// dates used as partition keys in the record store.
type Day string

const (
	Day1 Day = "2025-11-01"
	Day2 Day = "2025-11-02"
)

// Valid reports whether d is one of the two event days.
func (d Day) Valid() bool { return d == Day1 || d == Day2 }

// Lane is an ordered eligibility-filtered view of waiting reservations.
type Lane uint8

const (
	LaneStandard     Lane = iota // advance + walk-in parties, FIFO with priority jump
	LanePriorityTime             // time-slot parties ordered by scheduled time
)

// Category is the letter prefixed to every reservation ID.  It fixes the
// event day, the lane, whether a scheduled time is required, and whether
// the party booked in advance (advance parties ride odd-numbered groups,
// walk-ins even-numbered ones).
type Category byte

// CategorySpec describes one row of the category table.
type CategorySpec struct {
	Day          Day
	Lane         Lane
	RequiresTime bool
	Advance      bool
}

// categories is the authoritative category table.  Two standard
// categories and one time-slot category per day.
var categories = map[Category]CategorySpec{
	'A': {Day: Day1, Lane: LaneStandard, Advance: true},
	'C': {Day: Day1, Lane: LaneStandard},
	'X': {Day: Day1, Lane: LanePriorityTime, RequiresTime: true},
	'B': {Day: Day2, Lane: LaneStandard, Advance: true},
	'D': {Day: Day2, Lane: LaneStandard},
	'Y': {Day: Day2, Lane: LanePriorityTime, RequiresTime: true},
}

// LookupCategory returns the spec for a category letter.  Unknown letters
// return an error rather than a zero spec so that malformed IDs are
// rejected before any write.
func LookupCategory(c Category) (CategorySpec, error) {
	spec, ok := categories[c]
	if !ok {
		return CategorySpec{}, fmt.Errorf("unknown reservation category %q", string(c))
	}
	return spec, nil
}

// Categories returns every known category letter.  Order is unspecified.
func Categories() []Category {
	out := make([]Category, 0, len(categories))
	for c := range categories {
		out = append(out, c)
	}
	return out
}

// ValidateCategoryTable sanity-checks the table at startup: every day must
// have at least one standard and one time-slot category, and time-slot
// categories must require a scheduled time.  It exists so that an edit to
// the table cannot silently strand a lane.
func ValidateCategoryTable() error {
	type laneSet struct{ standard, timed bool }
	byDay := map[Day]*laneSet{Day1: {}, Day2: {}}
	for c, spec := range categories {
		if !spec.Day.Valid() {
			return fmt.Errorf("category %q maps to invalid day %q", string(c), spec.Day)
		}
		set := byDay[spec.Day]
		switch spec.Lane {
		case LaneStandard:
			if spec.RequiresTime {
				return fmt.Errorf("standard category %q must not require a time slot", string(c))
			}
			set.standard = true
		case LanePriorityTime:
			if !spec.RequiresTime {
				return fmt.Errorf("time-slot category %q must require a time slot", string(c))
			}
			set.timed = true
		default:
			return fmt.Errorf("category %q maps to unknown lane %d", string(c), spec.Lane)
		}
	}
	for day, set := range byDay {
		if !set.standard || !set.timed {
			return fmt.Errorf("day %s is missing a category for one of its lanes", day)
		}
	}
	return nil
}
