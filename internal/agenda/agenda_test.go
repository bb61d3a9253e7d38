package agenda

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agendaville/backend/internal/models"
)

func ev(name, date string) models.Event {
	return models.Event{Name: name, Date: date}
}

func names(events []models.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Name)
	}
	return out
}

func TestClassify_SplitsAroundToday(t *testing.T) {
	now := time.Date(2025, 5, 21, 15, 0, 0, 0, time.UTC)
	events := []models.Event{
		ev("yesterday", "2025-05-20"),
		ev("today", "2025-05-21"),
		ev("tomorrow", "2025-05-22"),
		ev("undated", ""),
	}

	upcoming, past := Classify(events, now)

	assert.Equal(t, []string{"today", "tomorrow"}, names(upcoming))
	assert.Equal(t, []string{"yesterday", "undated"}, names(past))
}

func TestClassify_UndatedNeverUpcoming(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	upcoming, past := Classify([]models.Event{ev("legacy", "")}, now)

	assert.Empty(t, upcoming)
	require.Len(t, past, 1)
	assert.Equal(t, "legacy", past[0].Name)
}

func TestClassify_EmptyInput(t *testing.T) {
	upcoming, past := Classify(nil, time.Now())
	assert.Empty(t, upcoming)
	assert.Empty(t, past)
}

func TestClassify_UsesNowLocation(t *testing.T) {
	// 2025-05-21 23:30 UTC is already 2025-05-22 in UTC+2.
	paris := time.FixedZone("UTC+2", 2*3600)
	now := time.Date(2025, 5, 21, 23, 30, 0, 0, time.UTC).In(paris)

	upcoming, _ := Classify([]models.Event{ev("edge", "2025-05-21")}, now)
	assert.Empty(t, upcoming, "2025-05-21 is past once local today is 2025-05-22")
}

func TestSortPast_DescendingNullsLast(t *testing.T) {
	past := []models.Event{
		ev("old", "2024-01-10"),
		ev("undated", ""),
		ev("recent", "2025-05-20"),
	}
	SortPast(past)
	assert.Equal(t, []string{"recent", "old", "undated"}, names(past))
}

func TestSortPast_Stable(t *testing.T) {
	past := []models.Event{
		ev("a", "2025-03-01"),
		ev("b", "2025-03-01"),
		ev("c", "2025-03-01"),
	}
	SortPast(past)
	assert.Equal(t, []string{"a", "b", "c"}, names(past))
}

func TestSortUpcoming_DateThenDatetime(t *testing.T) {
	upcoming := []models.Event{
		{Name: "late", Date: "2025-06-01", Datetime: "dimanche 1 juin 2025 à 20h00"},
		{Name: "early", Date: "2025-06-01", Datetime: "dimanche 1 juin 2025 à 10h00"},
		{Name: "first", Date: "2025-05-30", Datetime: "vendredi 30 mai 2025 à 18h00"},
	}
	SortUpcoming(upcoming)
	assert.Equal(t, []string{"first", "early", "late"}, names(upcoming))
}

func TestClassifyAndSortScenario(t *testing.T) {
	// Spec scenario: three events evaluated on 2025-05-21.
	now := time.Date(2025, 5, 21, 9, 0, 0, 0, time.UTC)
	events := []models.Event{
		ev("before", "2025-05-20"),
		ev("undated", ""),
		ev("far", "2099-01-01"),
	}

	upcoming, past := Classify(events, now)
	SortPast(past)

	assert.Equal(t, []string{"far"}, names(upcoming))
	assert.Equal(t, []string{"before", "undated"}, names(past))
}

func TestGroupByMonthThenDay_LabelsAndOrder(t *testing.T) {
	events := []models.Event{
		ev("A", "2025-05-21"),
		ev("B", "2025-05-21"),
		ev("C", "2025-06-01"),
	}

	groups := GroupByMonthThenDay(events)

	require.Len(t, groups, 2)
	assert.Equal(t, "Mai 2025", groups[0].Label)
	assert.Equal(t, "Juin 2025", groups[1].Label)

	require.Len(t, groups[0].Days, 1)
	assert.Equal(t, "21 mai 2025", groups[0].Days[0].Label)
	assert.Equal(t, []string{"A", "B"}, names(groups[0].Days[0].Events))

	require.Len(t, groups[1].Days, 1)
	assert.Equal(t, "01 juin 2025", groups[1].Days[0].Label)
	assert.Equal(t, []string{"C"}, names(groups[1].Days[0].Events))
}

func TestGroupByMonthThenDay_DropsUndated(t *testing.T) {
	groups := GroupByMonthThenDay([]models.Event{
		ev("kept", "2025-05-21"),
		ev("dropped", ""),
	})

	require.Len(t, groups, 1)
	require.Len(t, groups[0].Days, 1)
	assert.Equal(t, []string{"kept"}, names(groups[0].Days[0].Events))
}

func TestGroupByMonthThenDay_PreservesInputOrder(t *testing.T) {
	// Descending input (past section): buckets must follow input order, not
	// re-sort chronologically.
	events := []models.Event{
		ev("newer", "2025-06-10"),
		ev("older", "2025-05-02"),
	}
	groups := GroupByMonthThenDay(events)

	require.Len(t, groups, 2)
	assert.Equal(t, "Juin 2025", groups[0].Label)
	assert.Equal(t, "Mai 2025", groups[1].Label)
	assert.Equal(t, "02 mai 2025", groups[1].Days[0].Label)
}

func TestGroupByMonthThenDay_EveryEventInExactlyOneBucket(t *testing.T) {
	events := []models.Event{
		ev("a", "2025-01-05"),
		ev("b", "2025-01-05"),
		ev("c", "2025-01-06"),
		ev("d", "2025-02-01"),
	}
	groups := GroupByMonthThenDay(events)

	total := 0
	for _, m := range groups {
		for _, d := range m.Days {
			total += len(d.Events)
		}
	}
	assert.Equal(t, len(events), total)
}

func TestDayOfWeek(t *testing.T) {
	// 2025-05-21 is a Wednesday.
	assert.Equal(t, "mercredi", DayOfWeek("2025-05-21"))
	// 2025-05-25 is a Sunday.
	assert.Equal(t, "dimanche", DayOfWeek("2025-05-25"))
	assert.Equal(t, "", DayOfWeek("not-a-date"))
}

func TestWeekdayColor_Deterministic(t *testing.T) {
	assert.Equal(t, WeekdayColor("2025-05-21"), WeekdayColor("2025-05-28"))
	assert.NotEqual(t, WeekdayColor("2025-05-21"), WeekdayColor("2025-05-22"))
	assert.Equal(t, defaultColor, WeekdayColor("garbage"))
}
