// Package agenda partitions, sorts and groups calendar events for display.
// It is a pure in-process data-shaping layer: callers fetch accepted events
// from the repository and run them through Classify, the sort helpers and
// GroupByMonthThenDay to build the public calendar payload.
package agenda

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agendaville/backend/internal/models"
)

// isoDateLayout is the authoritative sortable date format. Lexicographic
// comparison on this fixed-width zero-padded form is date-correct.
const isoDateLayout = "2006-01-02"

// Classify partitions events into upcoming and past relative to now. The
// reference day is now truncated to a calendar date in now's location, so
// callers control the timezone and tests can pin a fixed instant.
//
// An event with no date is never upcoming: legacy entries without a
// validated date always land in past. Relative input order is preserved in
// both outputs.
func Classify(events []models.Event, now time.Time) (upcoming, past []models.Event) {
	today := now.Format(isoDateLayout)
	for _, e := range events {
		if e.Date != "" && e.Date >= today {
			upcoming = append(upcoming, e)
		} else {
			past = append(past, e)
		}
	}
	return upcoming, past
}

// SortPast orders past events most recent first. The sort is stable; events
// sharing a date keep their relative input order, and events without a date
// compare lowest and therefore sort last.
func SortPast(past []models.Event) {
	sort.SliceStable(past, func(i, j int) bool {
		return past[i].Date > past[j].Date
	})
}

// SortUpcoming orders upcoming events ascending by date, then by the
// human-readable datetime string. Listing queries already request this
// order; this is a defensive re-sort for callers that assemble events from
// several queries.
func SortUpcoming(upcoming []models.Event) {
	sort.SliceStable(upcoming, func(i, j int) bool {
		if upcoming[i].Date != upcoming[j].Date {
			return upcoming[i].Date < upcoming[j].Date
		}
		return upcoming[i].Datetime < upcoming[j].Datetime
	})
}

// DayGroup is one calendar day bucket, labeled like "21 mai 2025".
type DayGroup struct {
	Label  string         `json:"label"`
	Events []models.Event `json:"events"`
}

// MonthGroup is one calendar month bucket, labeled like "Mai 2025".
type MonthGroup struct {
	Label string     `json:"label"`
	Days  []DayGroup `json:"days"`
}

// GroupByMonthThenDay builds the two-level month/day hierarchy used by the
// calendar views. Bucket order follows the iteration order of the input, not
// a chronological order of its own: chronological presentation depends
// entirely on the input already being sorted (ascending for upcoming,
// SortPast for past). Within a day, events keep their input order.
//
// Events without a date are silently excluded. They contribute to counts
// upstream but render nowhere; this is deliberate, observed product
// behavior, not an oversight to fix with a fallback bucket.
func GroupByMonthThenDay(events []models.Event) []MonthGroup {
	var groups []MonthGroup
	monthIdx := make(map[string]int)
	dayIdx := make(map[string]int)

	for _, e := range events {
		if e.Date == "" {
			continue
		}
		year, month, day, ok := splitISODate(e.Date)
		if !ok {
			continue
		}
		monthLabel := monthNames[month-1] + " " + year
		dayLabel := day + " " + strings.ToLower(monthNames[month-1]) + " " + year

		mi, seen := monthIdx[monthLabel]
		if !seen {
			mi = len(groups)
			monthIdx[monthLabel] = mi
			groups = append(groups, MonthGroup{Label: monthLabel})
		}
		dayKey := monthLabel + "\x00" + dayLabel
		di, seen := dayIdx[dayKey]
		if !seen {
			di = len(groups[mi].Days)
			dayIdx[dayKey] = di
			groups[mi].Days = append(groups[mi].Days, DayGroup{Label: dayLabel})
		}
		groups[mi].Days[di].Events = append(groups[mi].Days[di].Events, e)
	}
	return groups
}

// splitISODate breaks a YYYY-MM-DD string into components. The month must be
// 1..12 so the name tables can be indexed; anything else is unlabelable and
// reported as not ok.
func splitISODate(date string) (year string, month int, day string, ok bool) {
	parts := strings.SplitN(date, "-", 3)
	if len(parts) != 3 {
		return "", 0, "", false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 1 || m > 12 {
		return "", 0, "", false
	}
	return parts[0], m, parts[2], true
}

// DayOfWeek returns the French weekday name for an ISO date, or the empty
// string when the date does not parse. Display use only.
func DayOfWeek(dateISO string) string {
	t, err := time.Parse(isoDateLayout, dateISO)
	if err != nil {
		return ""
	}
	return weekdayNames[int(t.Weekday())]
}

// WeekdayColor returns the card border color for an ISO date. The color is a
// deterministic function of the weekday, a visual categorization only.
func WeekdayColor(dateISO string) string {
	t, err := time.Parse(isoDateLayout, dateISO)
	if err != nil {
		return defaultColor
	}
	return weekdayColors[int(t.Weekday())]
}

// monthNames stores the capitalized forms; day labels lowercase them.
var monthNames = [12]string{
	"Janvier", "Février", "Mars", "Avril", "Mai", "Juin",
	"Juillet", "Août", "Septembre", "Octobre", "Novembre", "Décembre",
}

// weekdayNames is indexed by time.Weekday (0 = Sunday).
var weekdayNames = [7]string{
	"dimanche", "lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi",
}

const defaultColor = "#9ca3af"

var weekdayColors = [7]string{
	"#ef4444", // dimanche
	"#f59e0b", // lundi
	"#84cc16", // mardi
	"#10b981", // mercredi
	"#06b6d4", // jeudi
	"#8b5cf6", // vendredi
	"#ec4899", // samedi
}
