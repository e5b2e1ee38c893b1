// Package types implements special types for the treasury backend.
package types

import (
	"fmt"
	"time"
)

// Period is a reporting period: one calendar month of a specific year.
// It is the key every Report is filed under and the window the
// reconciliation service compares on.
type Period struct {
	Year  int        `json:"year" form:"year" example:"2026"`
	Month time.Month `json:"month" form:"month" example:"7"` // 1 to 12
}

// NewPeriod returns a new Period.
func NewPeriod(year int, month time.Month) Period {
	return Period{Year: year, Month: month}
}

// PeriodOf returns the Period a time instant falls into, in that time's location.
func PeriodOf(t time.Time) Period {
	year, month, _ := t.Date()
	return Period{Year: year, Month: month}
}

// ParsePeriod parses a "YYYY-MM" string and returns the Period it represents.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, err
	}

	return PeriodOf(t), nil
}

// String returns the period formatted as YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// IsZero reports if the period is the zero value.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Valid reports whether the period has a plausible year and a month
// between January and December.
func (p Period) Valid() bool {
	return p.Year >= 1 && p.Month >= time.January && p.Month <= time.December
}

// Start returns the first instant of the period in UTC.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first instant of the following period in UTC.
// The period covers [Start, End).
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

// Previous returns the period one month earlier.
func (p Period) Previous() Period {
	return PeriodOf(p.Start().AddDate(0, -1, 0))
}

// Next returns the period one month later.
func (p Period) Next() Period {
	return PeriodOf(p.End())
}

// Before reports whether the period p is before q.
func (p Period) Before(q Period) bool {
	return p.Start().Before(q.Start())
}

// After reports whether the period p is after q.
func (p Period) After(q Period) bool {
	return p.Start().After(q.Start())
}

// Equal reports whether p and q represent the same month.
func (p Period) Equal(q Period) bool {
	return p.Year == q.Year && p.Month == q.Month
}

// Contains reports whether the time instant is in the period.
func (p Period) Contains(t time.Time) bool {
	return t.Year() == p.Year && t.Month() == p.Month
}
