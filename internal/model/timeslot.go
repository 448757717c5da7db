package model

import "time"

// TimeSlot is the half-open interval [Start, End).
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewTimeSlot(start time.Time, d time.Duration) TimeSlot {
	return TimeSlot{Start: start, End: start.Add(d)}
}

// Overlaps reports whether a and b share any instant. Back-to-back slots do not overlap.
func Overlaps(a, b TimeSlot) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

func (s TimeSlot) Overlaps(other TimeSlot) bool {
	return Overlaps(s, other)
}

// Contains reports whether other lies entirely within s.
func (s TimeSlot) Contains(other TimeSlot) bool {
	return !other.Start.Before(s.Start) && !other.End.After(s.End)
}

func (s TimeSlot) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

func (s TimeSlot) IsValid() bool {
	return s.Start.Before(s.End)
}
