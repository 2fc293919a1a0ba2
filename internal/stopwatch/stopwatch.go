// Package stopwatch records elapsed time between named checkpoints.
package stopwatch

import (
	"fmt"
	"time"
)

// Lap is the time spent since the previous mark and since the start.
type Lap struct {
	Label   string
	Elapsed time.Duration
	Total   time.Duration
}

// String renders the lap as "(+1.234s|t:5.678s) label", switching to
// minutes and hours once a span passes them.
func (l Lap) String() string {
	e := l.Elapsed.Seconds()
	t := l.Total.Seconds()

	switch {
	case e > 3600:
		return fmt.Sprintf("(+%.2fh|t:%.2fh) %s", e/3600, t/3600, l.Label)
	case e > 60:
		if t > 3600 {
			return fmt.Sprintf("(+%.2fm|t:%.2fh) %s", e/60, t/3600, l.Label)
		}
		return fmt.Sprintf("(+%.2fm|t:%.2fm) %s", e/60, t/60, l.Label)
	case t > 3600:
		return fmt.Sprintf("(+%.3fs|t:%.2fh) %s", e, t/3600, l.Label)
	case t > 60:
		return fmt.Sprintf("(+%.3fs|t:%.2fm) %s", e, t/60, l.Label)
	default:
		return fmt.Sprintf("(+%.3fs|t:%.3fs) %s", e, t, l.Label)
	}
}

type Stopwatch struct {
	now   func() time.Time
	start time.Time
	last  time.Time
	laps  []Lap
}

func New() *Stopwatch {
	return NewWithClock(time.Now)
}

// NewWithClock starts a stopwatch reading time from now.
func NewWithClock(now func() time.Time) *Stopwatch {
	t := now()
	return &Stopwatch{now: now, start: t, last: t}
}

// Mark closes the current lap under label and starts the next one.
func (s *Stopwatch) Mark(label string) Lap {
	t := s.now()
	lap := Lap{
		Label:   label,
		Elapsed: t.Sub(s.last),
		Total:   t.Sub(s.start),
	}
	s.last = t
	s.laps = append(s.laps, lap)
	return lap
}

func (s *Stopwatch) Laps() []Lap {
	return append([]Lap(nil), s.laps...)
}
