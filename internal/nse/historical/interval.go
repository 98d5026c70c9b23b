package historical

import (
	"errors"
	"fmt"
)

// ErrInvalidInterval is returned for unknown interval tokens in strict mode.
var ErrInvalidInterval = errors.New("invalid interval")

// Interval is a user-facing bar interval token such as "15m" or "1d".
type Interval string

const (
	Minute1         Interval = "1m"
	Minute3         Interval = "3m"
	Minute5         Interval = "5m"
	Minute10        Interval = "10m"
	Minute15        Interval = "15m"
	Minute30        Interval = "30m"
	Hour1           Interval = "1h"
	Day1            Interval = "1d"
	Week1           Interval = "1w"
	Month1          Interval = "1M"
	DefaultInterval          = Day1
)

// Unit is the chart period letter the charting endpoint expects.
type Unit string

const (
	Intraday Unit = "I"
	Daily    Unit = "D"
	Weekly   Unit = "W"
	Monthly  Unit = "M"
)

func (u Unit) String() string {
	switch u {
	case Intraday:
		return "intraday"
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	}
	return string(u)
}

// Granularity is the (count, unit) pair describing a bar period.
type Granularity struct {
	Count int
	Unit  Unit
}

func (g Granularity) String() string {
	return fmt.Sprintf("%d %s", g.Count, g.Unit)
}

var timeframes = []Interval{Minute1, Minute3, Minute5, Minute10, Minute15, Minute30, Hour1, Day1, Week1, Month1}

var granularities = map[Interval]Granularity{
	Minute1:  {1, Intraday},
	Minute3:  {3, Intraday},
	Minute5:  {5, Intraday},
	Minute10: {10, Intraday},
	Minute15: {15, Intraday},
	Minute30: {30, Intraday},
	Hour1:    {60, Intraday},
	Day1:     {1, Daily},
	Week1:    {1, Weekly},
	Month1:   {1, Monthly},
}

// Timeframes returns the supported interval tokens.
func Timeframes() []Interval {
	return append([]Interval(nil), timeframes...)
}

// LookupInterval maps an interval token to its granularity. ok is false for
// unknown tokens, in which case the daily granularity is returned.
func LookupInterval(iv Interval) (g Granularity, ok bool) {
	g, ok = granularities[iv]
	if !ok {
		return granularities[DefaultInterval], false
	}
	return g, true
}

// StrictLookupInterval is LookupInterval failing with ErrInvalidInterval.
func StrictLookupInterval(iv Interval) (Granularity, error) {
	g, ok := granularities[iv]
	if !ok {
		return Granularity{}, fmt.Errorf("%w: %q, supported: %v", ErrInvalidInterval, iv, timeframes)
	}
	return g, nil
}
