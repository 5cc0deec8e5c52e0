// Package period implements the calendar math of the monthly billing cycle.
package period

import "time"

// GraceDays is the window after a due date during which a payment is late
// but not yet blocking.
const GraceDays = 2

// YearMonth identifies one billing period.
type YearMonth struct {
	Year  int
	Month int
}

// MonthEnd returns the last calendar day of the month. Day zero of the next
// month normalizes to it, which handles leap years without a table.
func MonthEnd(year, month int) time.Time {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC)
}

// GraceDate returns the grace deadline for a period: month end plus GraceDays.
func GraceDate(year, month int) time.Time {
	return MonthEnd(year, month).AddDate(0, 0, GraceDays)
}

// CycleMonths enumerates the periods an "ensure" pass guarantees for a
// reference date: the previous month only when it falls in the same year,
// then the reference month through December. In January the previous month
// belongs to the prior year and is excluded.
func CycleMonths(reference time.Time) []YearMonth {
	year := reference.Year()
	month := int(reference.Month())

	months := make([]YearMonth, 0, 13)
	if month > 1 {
		months = append(months, YearMonth{Year: year, Month: month - 1})
	}
	for m := month; m <= 12; m++ {
		months = append(months, YearMonth{Year: year, Month: m})
	}
	return months
}

// Previous rolls back one month, wrapping December into the prior year.
func Previous(year, month int) (int, int) {
	if month == 1 {
		return year - 1, 12
	}
	return year, month - 1
}

// CanRegister reports whether a payment for (year, month) may be manually
// marked paid on the given day. Current and earlier months always may;
// future months unlock on the last day of their immediately preceding month.
func CanRegister(year, month int, today time.Time) bool {
	currentKey := today.Year()*100 + int(today.Month())
	paymentKey := year*100 + month
	if paymentKey <= currentKey {
		return true
	}

	prevYear, prevMonth := Previous(year, month)
	release := MonthEnd(prevYear, prevMonth)
	return !today.Before(release)
}
