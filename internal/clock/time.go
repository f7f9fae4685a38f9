// Package clock models a time of day on a repeating 24-hour ring.
//
// A Time carries no date. Arithmetic is modular on a base of 86400 seconds, so
// 24:00:00 and 00:00:00 are the same point and subtracting past midnight wraps
// into the previous day's evening.
package clock

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	// DaySeconds is the length of the ring.
	DaySeconds = 24 * 60 * 60

	// Day is the ring length as a duration.
	Day = DaySeconds * time.Second
)

// Time is an hour:minute:second reading. Fields are always in range for
// values produced by this package.
type Time struct {
	Hour   int `yaml:"hour" json:"hour"`
	Minute int `yaml:"minute" json:"minute"`
	Second int `yaml:"second" json:"second"`
}

var _ cron.Schedule = Time{}

// New returns the time h:m:s, normalizing out-of-range parts.
func New(h, m, s int) Time { return Normalize(h, m, s) }

// Normalize carries seconds into minutes and minutes into hours, then wraps
// hours modulo 24. Negative parts borrow from the next larger unit.
func Normalize(h, m, s int) Time {
	return FromSeconds(h*3600 + m*60 + s)
}

// FromSeconds maps an elapsed-seconds count onto the ring.
func FromSeconds(n int) Time {
	n %= DaySeconds
	if n < 0 {
		n += DaySeconds
	}
	return Time{Hour: n / 3600, Minute: n % 3600 / 60, Second: n % 60}
}

// Of returns the time of day of t in t's location.
func Of(t time.Time) Time {
	h, m, s := t.Clock()
	return Time{Hour: h, Minute: m, Second: s}
}

// Valid reports whether every field is in range.
func (t Time) Valid() bool {
	return t.Hour >= 0 && t.Hour < 24 &&
		t.Minute >= 0 && t.Minute < 60 &&
		t.Second >= 0 && t.Second < 60
}

// Seconds returns the offset of t from midnight.
func (t Time) Seconds() int { return t.Hour*3600 + t.Minute*60 + t.Second }

// Add returns t+o on the ring.
func (t Time) Add(o Time) Time { return FromSeconds(t.Seconds() + o.Seconds()) }

// Sub returns t-o on the ring. If o is later than t the result wraps through
// midnight: 00:00:30 - 00:01:30 = 23:59:00.
func (t Time) Sub(o Time) Time { return FromSeconds(t.Seconds() - o.Seconds()) }

// Compare orders by hour, then minute, then second.
func (t Time) Compare(o Time) int {
	switch a, b := t.Seconds(), o.Seconds(); {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (t Time) Before(o Time) bool { return t.Compare(o) < 0 }
func (t Time) After(o Time) bool  { return t.Compare(o) > 0 }

// Next returns the first instant strictly after now whose time of day is t,
// in now's location.
func (t Time) Next(now time.Time) time.Time {
	return now.Add(DurationUntil(t, now))
}

func (t Time) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// DurationUntil is the forward wait from now to the next occurrence of target.
// The result is in (0, Day]: when now's time of day is exactly target the
// next occurrence is a full day away, never zero.
func DurationUntil(target Time, now time.Time) time.Duration {
	h, m, s := now.Clock()
	offset := time.Duration(h*3600+m*60+s)*time.Second + time.Duration(now.Nanosecond())
	d := time.Duration(target.Seconds())*time.Second - offset
	if d <= 0 {
		d += Day
	}
	return d
}

// Parse reads "HH:MM" or "HH:MM:SS". Parts must already be in range.
func Parse(raw string) (Time, error) {
	s := strings.TrimSpace(raw)
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return Time{}, fmt.Errorf("invalid time %q, expected HH:MM[:SS]", raw)
	}
	limits := [3]int{24, 60, 60}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n >= limits[i] {
			return Time{}, fmt.Errorf("invalid %s in %q", [3]string{"hour", "minute", "second"}[i], raw)
		}
		v[i] = n
	}
	return Time{Hour: v[0], Minute: v[1], Second: v[2]}, nil
}
