package prayertimes

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Prayer names one of the five daily prayers.
type Prayer string

const (
	Fajr    Prayer = "Fajr"
	Dhuhr   Prayer = "Dhuhr"
	Asr     Prayer = "Asr"
	Maghrib Prayer = "Maghrib"
	Isha    Prayer = "Isha"
)

// Prayers lists the daily prayers in order.
var Prayers = []Prayer{Fajr, Dhuhr, Asr, Maghrib, Isha}

// Timings holds the local wall-clock time of each prayer as "HH:MM".
// Aladhan may append a zone abbreviation, e.g. "05:12 (EET)".
type Timings struct {
	Fajr    string `json:"Fajr"`
	Dhuhr   string `json:"Dhuhr"`
	Asr     string `json:"Asr"`
	Maghrib string `json:"Maghrib"`
	Isha    string `json:"Isha"`
}

// Time returns the raw time of p.
func (t Timings) Time(p Prayer) string {
	switch p {
	case Fajr:
		return t.Fajr
	case Dhuhr:
		return t.Dhuhr
	case Asr:
		return t.Asr
	case Maghrib:
		return t.Maghrib
	case Isha:
		return t.Isha
	}
	return ""
}

func (t Timings) validate() error {
	for _, p := range Prayers {
		if _, _, err := parseClock(t.Time(p)); err != nil {
			return fmt.Errorf("prayertimes: %s: %w", p, err)
		}
	}
	return nil
}

// Next is the upcoming prayer relative to some instant.
type Next struct {
	Prayer Prayer
	At     time.Time
	Until  time.Duration
}

// Due reports whether the prayer starts within the current minute or the
// next one.
func (n Next) Due() bool {
	return n.Until < 2*time.Minute
}

// NextPrayer returns the first prayer at or after now. Times already past
// today roll over to the same time tomorrow. Times are read in now's
// location.
func NextPrayer(t Timings, now time.Time) (Next, error) {
	var next Next
	for i, p := range Prayers {
		h, m, err := parseClock(t.Time(p))
		if err != nil {
			return Next{}, fmt.Errorf("prayertimes: %s: %w", p, err)
		}
		at := time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, now.Location())
		if at.Before(now) {
			at = at.AddDate(0, 0, 1)
		}
		if i == 0 || at.Before(next.At) {
			next = Next{Prayer: p, At: at}
		}
	}
	next.Until = next.At.Sub(now)
	return next, nil
}

// FormatUntil renders d as whole hours and minutes, e.g. "2h 5m".
func FormatUntil(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int(d / time.Minute)
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// parseClock reads the leading "HH:MM" of s.
func parseClock(s string) (int, int, error) {
	clock, _, _ := strings.Cut(strings.TrimSpace(s), " ")
	hh, mm, ok := strings.Cut(clock, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid time %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid time %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid time %q", s)
	}
	return h, m, nil
}

// Schedule is a day's timings together with the next prayer.
type Schedule struct {
	Timings  Timings   `json:"timings"`
	Timezone string    `json:"timezone,omitempty"`
	Next     Prayer    `json:"next"`
	NextAt   time.Time `json:"next_at"`
	Until    string    `json:"until"`
	Due      bool      `json:"due"`
}

// NewSchedule works out the next prayer of day as seen at now, in the
// location's own time zone.
func NewSchedule(day Day, now time.Time) (Schedule, error) {
	next, err := NextPrayer(day.Timings, now.In(day.Zone()))
	if err != nil {
		return Schedule{}, err
	}
	return Schedule{
		Timings:  day.Timings,
		Timezone: day.Timezone,
		Next:     next.Prayer,
		NextAt:   next.At,
		Until:    FormatUntil(next.Until),
		Due:      next.Due(),
	}, nil
}
