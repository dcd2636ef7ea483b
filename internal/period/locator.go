// Package period locates pay periods and decides which expenses fall inside them.
package period

import (
	"fmt"

	"paycalc/internal/core"
)

// Direction selects the neighbouring period.
type Direction string

const (
	Next     Direction = "next"
	Previous Direction = "previous"
)

// ParseDirection accepts "next"/"previous" (and "prev").
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "next":
		return Next, nil
	case "previous", "prev":
		return Previous, nil
	}
	return "", fmt.Errorf("unknown direction: %q", s)
}

func stepDays(f core.PayFrequency) int {
	if f == core.PayWeekly {
		return 7
	}
	return 14
}

// floorDiv divides rounding toward negative infinity, so dates before the
// anchor land in the period that contains them.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// LocateCurrentStart returns the start date of the period containing today.
//
// Weekly and bi-weekly periods are anchored to info.StartDate. Monthly periods
// always start on the 1st, whatever the anchor's day of month. Semi-monthly
// periods start on the 1st or the 16th. Unknown frequencies return today.
func LocateCurrentStart(info core.PayInfo, today core.Date) core.Date {
	switch info.PayFrequency {
	case core.PayWeekly, core.PayBiWeekly:
		step := stepDays(info.PayFrequency)
		elapsed := today.DaysSince(info.StartDate)
		periods := floorDiv(elapsed, step)
		start := info.StartDate.AddDays(periods * step)
		if start.After(today) {
			start = info.StartDate.AddDays((periods - 1) * step)
		}
		return start
	case core.PayMonthly:
		return today.FirstOfMonth()
	case core.PaySemiMonthly:
		if today.Day() <= 15 {
			return today.FirstOfMonth()
		}
		return today.WithDay(16)
	default:
		return today
	}
}

// End returns the last day (inclusive) of the period starting at start.
func End(start core.Date, f core.PayFrequency) core.Date {
	switch f {
	case core.PayBiWeekly:
		return start.AddDays(13)
	case core.PayWeekly:
		return start.AddDays(6)
	case core.PayMonthly:
		return start.LastOfMonth()
	case core.PaySemiMonthly:
		if start.Day() <= 15 {
			return start.WithDay(15)
		}
		return start.LastOfMonth()
	default:
		return start.AddDays(13)
	}
}

// Shift moves a period start one period forward or backward.
//
// Semi-monthly is asymmetric: next goes 1st..15th -> 16th and 16th.. -> 1st of
// the following month, while previous goes 16th.. -> 15th of the same month
// and 1st..15th -> 16th of the previous month.
func Shift(start core.Date, f core.PayFrequency, dir Direction) (core.Date, error) {
	sign := 1
	switch dir {
	case Next:
	case Previous:
		sign = -1
	default:
		return core.Date{}, fmt.Errorf("unknown direction: %q", dir)
	}

	switch f {
	case core.PayWeekly:
		return start.AddDays(7 * sign), nil
	case core.PayBiWeekly:
		return start.AddDays(14 * sign), nil
	case core.PayMonthly:
		return start.AddMonths(sign), nil
	case core.PaySemiMonthly:
		day := start.Day()
		if dir == Next {
			if day <= 15 {
				return start.WithDay(16), nil
			}
			return core.NewDate(start.Year(), start.Month()+1, 1), nil
		}
		if day > 15 {
			return start.WithDay(15), nil
		}
		return core.NewDate(start.Year(), start.Month()-1, 16), nil
	default:
		return core.Date{}, fmt.Errorf("unknown pay frequency: %q", f)
	}
}

// New builds an unsaved period record for start.
func New(userUID string, info core.PayInfo, start core.Date) core.PayPeriod {
	return core.PayPeriod{
		ID:        start.String(),
		UserUID:   userUID,
		PayInfoID: info.ID,
		StartDate: start,
		EndDate:   End(start, info.PayFrequency),
		Year:      start.Year(),
		IsActive:  true,
	}
}

// Label renders a period for display, e.g. "Jan 15 - Jan 28, 2024".
func Label(p *core.PayPeriod) string {
	if p == nil {
		return "No Period Selected"
	}
	return fmt.Sprintf("%s - %s", p.StartDate.Time.Format("Jan 2"), p.EndDate.Time.Format("Jan 2, 2006"))
}
