// Package timewindow decides whether an instant falls inside an optional
// start/end window. All comparisons are normalized to a fixed reference
// timezone so that a promotion scheduled to end "Sunday midnight" ends at
// Pacific midnight no matter where the serving instance runs.
package timewindow

import "time"

// ReferenceZone is the timezone all window comparisons are performed in.
const ReferenceZone = "America/Los_Angeles"

var refLoc *time.Location

func init() {
	loc, err := time.LoadLocation(ReferenceZone)
	if err != nil {
		// tzdata missing; UTC keeps comparisons consistent if wrong.
		loc = time.UTC
	}
	refLoc = loc
}

// SetZone overrides the reference timezone, for deployments whose admin
// surface schedules in a different zone. Called once at startup, before
// any window checks run.
func SetZone(name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return err
	}
	refLoc = loc
	return nil
}

// normalize returns t expressed in the reference zone.
func normalize(t time.Time) time.Time {
	return t.In(refLoc)
}

// StartsAfter reports whether the window's start is still in the future at
// now. A nil start is always past its start.
func StartsAfter(start *time.Time, now time.Time) bool {
	if start == nil {
		return false
	}
	return normalize(*start).After(normalize(now))
}

// EndsBefore reports whether the window's end has already passed at now.
// A nil end never expires.
func EndsBefore(end *time.Time, now time.Time) bool {
	if end == nil {
		return false
	}
	return normalize(*end).Before(normalize(now))
}

// Contains reports whether now falls inside [start, end]. Either bound may
// be nil, meaning unbounded on that side.
func Contains(start, end *time.Time, now time.Time) bool {
	return !StartsAfter(start, now) && !EndsBefore(end, now)
}
