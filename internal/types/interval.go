package types

import (
	"fmt"
	"time"
)

// Interval identifies a candlestick aggregation granularity.
type Interval string

const (
	IntervalOneMinute      Interval = "1m"
	IntervalThreeMinutes   Interval = "3m"
	IntervalFiveMinutes    Interval = "5m"
	IntervalFifteenMinutes Interval = "15m"
	IntervalThirtyMinutes  Interval = "30m"
	IntervalOneHour        Interval = "1h"
	IntervalTwoHours       Interval = "2h"
	IntervalFourHours      Interval = "4h"
	IntervalSixHours       Interval = "6h"
	IntervalEightHours     Interval = "8h"
	IntervalTwelveHours    Interval = "12h"
	IntervalOneDay         Interval = "1d"
	IntervalThreeDays      Interval = "3d"
	IntervalOneWeek        Interval = "1w"
)

// AllIntervals lists every supported interval, finest first.
var AllIntervals = []Interval{
	IntervalOneMinute,
	IntervalThreeMinutes,
	IntervalFiveMinutes,
	IntervalFifteenMinutes,
	IntervalThirtyMinutes,
	IntervalOneHour,
	IntervalTwoHours,
	IntervalFourHours,
	IntervalSixHours,
	IntervalEightHours,
	IntervalTwelveHours,
	IntervalOneDay,
	IntervalThreeDays,
	IntervalOneWeek,
}

// Duration returns the wall-clock length of one candle of this interval.
func (i Interval) Duration() time.Duration {
	switch i {
	case IntervalOneMinute:
		return time.Minute
	case IntervalThreeMinutes:
		return 3 * time.Minute
	case IntervalFiveMinutes:
		return 5 * time.Minute
	case IntervalFifteenMinutes:
		return 15 * time.Minute
	case IntervalThirtyMinutes:
		return 30 * time.Minute
	case IntervalOneHour:
		return time.Hour
	case IntervalTwoHours:
		return 2 * time.Hour
	case IntervalFourHours:
		return 4 * time.Hour
	case IntervalSixHours:
		return 6 * time.Hour
	case IntervalEightHours:
		return 8 * time.Hour
	case IntervalTwelveHours:
		return 12 * time.Hour
	case IntervalOneDay:
		return 24 * time.Hour
	case IntervalThreeDays:
		return 72 * time.Hour
	case IntervalOneWeek:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// Valid reports whether the interval is one of the supported values.
func (i Interval) Valid() bool {
	return i.Duration() > 0
}

// Finer reports whether i has a smaller candle duration than other.
func (i Interval) Finer(other Interval) bool {
	return i.Duration() < other.Duration()
}

// ParseInterval converts a string such as "5m" or "1d" into an Interval.
func ParseInterval(s string) (Interval, error) {
	interval := Interval(s)
	if !interval.Valid() {
		return "", fmt.Errorf("unknown interval %q", s)
	}

	return interval, nil
}
