package core

import (
	"fmt"
	"strings"
	"time"
)

// now is stubbed in tests.
var now = time.Now

var acceptedDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"2 January 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// NormalizeDate parses a date in any accepted format and returns it as
// YYYY-MM-DD. Future dates are clamped to today: the remote ledger rejects
// postings dated ahead of the period, and extracted documents occasionally
// carry due dates where the issue date should be.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return now().Format("2006-01-02"), nil
	}
	for _, layout := range acceptedDateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if today := now(); t.After(today) {
			return today.Format("2006-01-02"), nil
		}
		return t.Format("2006-01-02"), nil
	}
	return "", &ValidationError{Field: "date", Message: fmt.Sprintf("unrecognized date %q", s)}
}

// ParsePayrollPeriod turns a payroll period label into the period's last day.
// Accepted forms: "202506 - JUNE", "202506", "June 2025", "2025-06".
func ParsePayrollPeriod(period string) (string, error) {
	period = strings.TrimSpace(period)
	if period == "" {
		return "", &ValidationError{Field: "period", Message: "payroll period is required"}
	}

	// "202506 - JUNE" keeps only the numeric part.
	if idx := strings.Index(period, " - "); idx > 0 {
		period = strings.TrimSpace(period[:idx])
	}

	for _, layout := range []string{"200601", "2006-01", "January 2006", "Jan 2006"} {
		t, err := time.Parse(layout, period)
		if err != nil {
			continue
		}
		return monthEnd(t).Format("2006-01-02"), nil
	}
	return "", &ValidationError{Field: "period", Message: fmt.Sprintf("unrecognized payroll period %q", period)}
}

func monthEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
}
