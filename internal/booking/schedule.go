package booking

import (
	"encoding/json"
	"fmt"
	"time"
)

// SlotGranularityMinutes is the fixed spacing between candidate slot start
// times. It is independent of any service's duration: a 60-minute service is
// still offered at every 30-minute mark, exactly as the clinic runs today.
const SlotGranularityMinutes = 30

// TimeOfDay is minutes since midnight. It orders, compares, and hashes
// cheaply, which OccupiedSlots relies on for its set keys.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM" (24-hour).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// SlotTimes expands an open interval into the ordered candidate start times
// start, start+g, start+2g, ... strictly below end. A degenerate interval
// (start >= end) yields nil rather than an error.
func SlotTimes(start, end TimeOfDay, granularityMinutes int) []TimeOfDay {
	if granularityMinutes <= 0 || start >= end {
		return nil
	}

	var slots []TimeOfDay
	for t := start; t < end; t += TimeOfDay(granularityMinutes) {
		slots = append(slots, t)
	}
	return slots
}
