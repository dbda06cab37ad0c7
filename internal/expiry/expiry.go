// Package expiry turns free-text time cues in promo copy ("ends Sunday", "thru 11/30",
// "limited time") into a concrete expiration time.
package expiry

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultLimitedTimeWindow is how long an undated "limited time" promo is assumed to run
const DefaultLimitedTimeWindow = 3 * 24 * time.Hour

var (
	explicitDate = regexp.MustCompile(`(?i)\b(?:ends?|through|thru|until|till|expires?)\s*:?\s+(?:on\s+)?(?:(?:sun|mon|tue|wed|thu|fri|sat)[a-z]*\.?,?\s+)?(\d{1,2})/(\d{1,2})(?:/(\d{4}|\d{2}))?\b`)
	endsWeekday  = regexp.MustCompile(`(?i)\bends?\s+(?:on\s+)?(sunday|monday|tuesday|wednesday|thursday|friday|saturday|sun|mon|tues|tue|wed|thurs|thur|thu|fri|sat)\b`)
	endsToday    = regexp.MustCompile(`(?i)\btoday\s+only\b|\bends?\s+(?:today|tonight)\b`)
	endsTomorrow = regexp.MustCompile(`(?i)\bends?\s+tomorrow\b|\btomorrow\s+only\b`)
	thisWeekend  = regexp.MustCompile(`(?i)\bthis\s+weekend\b|\bweekend\s+only\b`)
	limitedTime  = regexp.MustCompile(`(?i)\blimited[\s-]time\b`)
)

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Inferencer applies the expiration rules in order; the first match wins
type Inferencer struct {
	LimitedTimeWindow time.Duration
}

// New creates an inferencer. A non-positive window uses DefaultLimitedTimeWindow.
func New(limitedTimeWindow time.Duration) *Inferencer {
	if limitedTimeWindow <= 0 {
		limitedTimeWindow = DefaultLimitedTimeWindow
	}
	return &Inferencer{LimitedTimeWindow: limitedTimeWindow}
}

// Infer returns the expiration implied by text relative to now. ok is false when the copy
// carries no recognizable time cue; such a promo is open-ended.
func (i *Inferencer) Infer(text string, now time.Time) (expires time.Time, ok bool) {
	if text == "" {
		return time.Time{}, false
	}

	if t, ok := explicitDeadline(text, now); ok {
		return t, true
	}

	if m := endsWeekday.FindStringSubmatch(text); m != nil {
		target := weekdays[strings.ToLower(m[1])[:3]]
		days := (int(target) - int(now.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return endOfDay(now.AddDate(0, 0, days)), true
	}

	if endsToday.MatchString(text) {
		return endOfDay(now), true
	}
	if endsTomorrow.MatchString(text) {
		return endOfDay(now.AddDate(0, 0, 1)), true
	}
	if thisWeekend.MatchString(text) {
		days := (7 - int(now.Weekday())) % 7
		return endOfDay(now.AddDate(0, 0, days)), true
	}
	if limitedTime.MatchString(text) {
		return now.Add(i.LimitedTimeWindow), true
	}
	return time.Time{}, false
}

// explicitDeadline handles "ends 11/30", "thru 12/01/25" and friends
func explicitDeadline(text string, now time.Time) (time.Time, bool) {
	for _, m := range explicitDate.FindAllStringSubmatch(text, -1) {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year := now.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
			if year < 100 {
				year += 2000
			}
		}

		date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
		// time.Date normalizes 02/31 into March; treat that as no match
		if month < 1 || month > 12 || date.Month() != time.Month(month) || date.Day() != day {
			continue
		}

		deadline := endOfDay(date)
		if m[3] == "" && deadline.Before(now) && time.Month(month) < now.Month() {
			deadline = deadline.AddDate(1, 0, 0)
		}
		return deadline, true
	}
	return time.Time{}, false
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}
