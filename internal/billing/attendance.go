package billing

import (
	"sort"

	"dorm-billing-backend/internal/model"
)

// DaysStayed counts the distinct dates within p on which the occupant's
// attendance record is marked present. Days without a record count as
// absent. Filtering is by the literal date range, so periods that cross a
// calendar month boundary are counted correctly.
func DaysStayed(occupantID string, p Period, records []model.AttendanceRecord) int {
	present := make(map[string]bool)
	for _, r := range records {
		if r.OccupantID != occupantID {
			continue
		}
		d, err := ParseDate(r.Date)
		if err != nil || !p.Contains(d) {
			continue
		}
		if r.Present {
			present[r.Date] = true
		}
	}
	return len(present)
}

// CalendarDay is one day of an occupant's attendance within a period.
type CalendarDay struct {
	Date    string `json:"date"`
	Present bool   `json:"present"`
	Note    string `json:"note,omitempty"`
}

// AttendanceCalendar expands p into one entry per day for the occupant,
// filling days without a record as absent.
func AttendanceCalendar(occupantID string, p Period, records []model.AttendanceRecord) []CalendarDay {
	byDate := make(map[string]model.AttendanceRecord)
	for _, r := range records {
		if r.OccupantID == occupantID {
			byDate[r.Date] = r
		}
	}

	days := p.Dates()
	out := make([]CalendarDay, 0, len(days))
	for _, d := range days {
		key := FormatDate(d)
		r := byDate[key]
		out = append(out, CalendarDay{Date: key, Present: r.Present, Note: r.Note})
	}
	return out
}

// Notes returns the non-empty notes the occupant recorded within p, by date.
func Notes(occupantID string, p Period, records []model.AttendanceRecord) []string {
	var dated []model.AttendanceRecord
	for _, r := range records {
		if r.OccupantID != occupantID || r.Note == "" {
			continue
		}
		if d, err := ParseDate(r.Date); err == nil && p.Contains(d) {
			dated = append(dated, r)
		}
	}
	sort.Slice(dated, func(i, j int) bool { return dated[i].Date < dated[j].Date })

	notes := make([]string, len(dated))
	for i, r := range dated {
		notes[i] = r.Note
	}
	return notes
}
