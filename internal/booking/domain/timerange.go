package domain

import "time"

// TimeRange is a half-open interval [Start, End) in UTC.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange builds a range, normalizing both instants to UTC.
// The range must be non-empty.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	start = start.UTC()
	end = end.UTC()
	if !end.After(start) {
		return TimeRange{}, ErrInvalidRange
	}
	return TimeRange{Start: start, End: end}, nil
}

// Overlaps reports whether two half-open ranges share any instant.
// Touching endpoints do not overlap.
func (t TimeRange) Overlaps(other TimeRange) bool {
	return t.Start.Before(other.End) && t.End.After(other.Start)
}

// Contains reports whether an instant falls inside the range.
// The start is included, the end is not.
func (t TimeRange) Contains(instant time.Time) bool {
	return !instant.Before(t.Start) && instant.Before(t.End)
}

// ContainsRange reports whether other lies entirely inside t.
func (t TimeRange) ContainsRange(other TimeRange) bool {
	return !other.Start.Before(t.Start) && !other.End.After(t.End)
}

// Duration returns the length of the range.
func (t TimeRange) Duration() time.Duration {
	return t.End.Sub(t.Start)
}

// Intersect returns the overlapping part of two ranges, if any.
func (t TimeRange) Intersect(other TimeRange) (TimeRange, bool) {
	start := t.Start
	if other.Start.After(start) {
		start = other.Start
	}
	end := t.End
	if other.End.Before(end) {
		end = other.End
	}
	if !end.After(start) {
		return TimeRange{}, false
	}
	return TimeRange{Start: start, End: end}, true
}
