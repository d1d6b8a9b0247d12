package billing

import (
	"fmt"
	"time"

	"dorm-billing-backend/internal/model"
)

// MaxPeriodDays bounds the length of a single billing period.
const MaxPeriodDays = 366

// Period is an inclusive range of calendar dates. Start and End are kept at
// midnight UTC; only their year, month and day are meaningful.
type Period struct {
	Start time.Time
	End   time.Time
}

// Date returns midnight UTC of the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(model.DateLayout, s)
}

// FormatDate formats a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(model.DateLayout)
}

// ParsePeriod builds a Period from two YYYY-MM-DD strings.
func ParsePeriod(start, end string) (Period, error) {
	s, err := ParseDate(start)
	if err != nil {
		return Period{}, invalid("startDate", "must be a YYYY-MM-DD date")
	}
	e, err := ParseDate(end)
	if err != nil {
		return Period{}, invalid("endDate", "must be a YYYY-MM-DD date")
	}
	p := Period{Start: s, End: e}
	return p, p.Validate()
}

// Validate checks that the period does not end before it starts and spans
// at most MaxPeriodDays days.
func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return invalid("period", "start and end dates are required")
	}
	if p.End.Before(p.Start) {
		return invalid("endDate", "end date must not be before start date")
	}
	if p.End.After(p.Start.AddDate(0, 0, MaxPeriodDays-1)) {
		return invalid("endDate", fmt.Sprintf("billing period must not exceed %d days", MaxPeriodDays))
	}
	return nil
}

// Days is the number of calendar days in the period, both ends included.
// Counted on Unix seconds so distant bounds cannot overflow a Duration.
func (p Period) Days() int {
	return int((p.End.Unix()-p.Start.Unix())/86400) + 1
}

// Contains reports whether the calendar day d falls within the period.
func (p Period) Contains(d time.Time) bool {
	d = DateOf(d)
	return !d.Before(p.Start) && !d.After(p.End)
}

// Dates lists every day of the period in order.
func (p Period) Dates() []time.Time {
	days := make([]time.Time, 0, p.Days())
	for d := p.Start; !d.After(p.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// StartString and EndString are the YYYY-MM-DD forms of the bounds.
func (p Period) StartString() string { return FormatDate(p.Start) }
func (p Period) EndString() string   { return FormatDate(p.End) }

func (p Period) String() string {
	return fmt.Sprintf("%s..%s", p.StartString(), p.EndString())
}

// CurrentPeriod returns the billing period containing today when periods
// start on cutoverDay and end the day before the next cut-over. A cut-over
// day of 1 yields calendar months.
func CurrentPeriod(today time.Time, cutoverDay int) Period {
	today = DateOf(today)
	start := Date(today.Year(), today.Month(), cutoverDay)
	if today.Before(start) {
		start = start.AddDate(0, -1, 0)
	}
	return periodStartingAt(start)
}

// Next returns the period that begins the day after p ends.
func (p Period) Next(cutoverDay int) Period {
	start := p.End.AddDate(0, 0, 1)
	if start.Day() != cutoverDay {
		// A manually overridden period may end off-cycle; the suggestion
		// runs to the next regular cut-over.
		nextCut := Date(start.Year(), start.Month(), cutoverDay)
		if !nextCut.After(start) {
			nextCut = nextCut.AddDate(0, 1, 0)
		}
		return Period{Start: start, End: nextCut.AddDate(0, 0, -1)}
	}
	return periodStartingAt(start)
}

// PeriodEndingIn returns the regular billing period whose end date falls in
// the given YYYY-MM month.
func PeriodEndingIn(month string, cutoverDay int) (Period, error) {
	m, err := time.Parse(model.MonthLayout, month)
	if err != nil {
		return Period{}, invalid("month", "must be a YYYY-MM month")
	}
	if cutoverDay == 1 {
		return periodStartingAt(Date(m.Year(), m.Month(), 1)), nil
	}
	end := Date(m.Year(), m.Month(), cutoverDay-1)
	return periodStartingAt(end.AddDate(0, -1, 1)), nil
}

// MonthLabel formats the month of t as YYYY-MM.
func MonthLabel(t time.Time) string {
	return t.Format(model.MonthLayout)
}

func periodStartingAt(start time.Time) Period {
	return Period{Start: start, End: start.AddDate(0, 1, -1)}
}
