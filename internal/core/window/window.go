package window

import (
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidStep marks step strings that cannot be parsed.
var ErrInvalidStep = errors.New("invalid window step")

// Unit is a calendar unit a sweep steps back by.
type Unit int

const (
	Day Unit = iota
	Week
	Month
	Year
)

func (u Unit) String() string {
	switch u {
	case Day:
		return "d"
	case Week:
		return "w"
	case Month:
		return "mo"
	case Year:
		return "y"
	default:
		return "unknown"
	}
}

// Step is a calendar-aware stride: "one month" is a calendar month, not 30 days.
type Step struct {
	Unit  Unit
	Count int
}

// Back returns t moved one step into the past.
func (s Step) Back(t time.Time) time.Time {
	n := -s.Count
	switch s.Unit {
	case Year:
		return t.AddDate(n, 0, 0)
	case Month:
		return t.AddDate(0, n, 0)
	case Week:
		return t.AddDate(0, 0, 7*n)
	default:
		return t.AddDate(0, 0, n)
	}
}

// Label renders the step the way ParseStep accepts it, e.g. "1mo".
// Used as the granularity label in logs and metrics.
func (s Step) Label() string {
	return strconv.Itoa(s.Count) + s.Unit.String()
}

// ParseStep parses "<n><unit>" where unit is one of y, mo, w, d.
func ParseStep(s string) (Step, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Step{}, fmt.Errorf("%w: step must not be empty", ErrInvalidStep)
	}

	// "mo" has to be checked before the single-letter suffixes.
	suffixes := []struct {
		suffix string
		unit   Unit
	}{
		{"mo", Month},
		{"y", Year},
		{"w", Week},
		{"d", Day},
	}
	for _, sfx := range suffixes {
		if !strings.HasSuffix(s, sfx.suffix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(s, sfx.suffix))
		if err != nil {
			return Step{}, fmt.Errorf("%w %q: %v", ErrInvalidStep, s, err)
		}
		if n <= 0 {
			return Step{}, fmt.Errorf("%w: step must be positive, got %q", ErrInvalidStep, s)
		}
		return Step{Unit: sfx.unit, Count: n}, nil
	}
	return Step{}, fmt.Errorf("%w %q: unknown unit (use y, mo, w or d)", ErrInvalidStep, s)
}

// TimeWindow is one fetch unit. Start is the newer bound, End the older one,
// and the window covers the half-open range [End, Start).
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls in [End, Start).
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.End) && t.Before(w.Start)
}

// Overlaps reports whether the window intersects the closed range [from, to].
func (w TimeWindow) Overlaps(from, to time.Time) bool {
	return !w.End.After(to) && !w.Start.Before(from)
}

func (w TimeWindow) String() string {
	return fmt.Sprintf("[%s, %s)", w.End.Format(time.RFC3339), w.Start.Format(time.RFC3339))
}

// Generate yields consecutive windows walking backwards from ref, one step each,
// while the cursor has not crossed lowerBound. A zero lowerBound yields exactly
// one window [ref, ref - step]. The sequence is a pure function of its inputs
// and can be ranged over any number of times.
func Generate(ref time.Time, step Step, lowerBound time.Time) iter.Seq[TimeWindow] {
	return func(yield func(TimeWindow) bool) {
		if step.Count <= 0 {
			return
		}
		if lowerBound.IsZero() {
			yield(TimeWindow{Start: ref, End: step.Back(ref)})
			return
		}

		cursor := ref
		for !cursor.Before(lowerBound) {
			next := step.Back(cursor)
			if !yield(TimeWindow{Start: cursor, End: next}) {
				return
			}
			cursor = next
		}
	}
}
