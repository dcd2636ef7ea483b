// Package recurrence computes next occurrences of recurring due dates.
//
// Each expense frequency has its own Stepper that advances a date by exactly
// one interval. One-time expenses have no stepper: they never move.
package recurrence

import (
	"fmt"
	"sync"

	"paycalc/internal/core"
)

// Stepper advances a date by one interval of its frequency.
// Implementations must always return a date strictly after d.
type Stepper interface {
	Step(d core.Date) core.Date
}

// MonthlyStepper adds one calendar month. Day overflow rolls into the
// following month (Jan 31 -> Mar 2 in 2024) and later steps compound from
// the rolled date.
type MonthlyStepper struct{}

func (MonthlyStepper) Step(d core.Date) core.Date { return d.AddMonths(1) }

// DayStepper adds a fixed number of days.
type DayStepper struct {
	Days int
}

func (s DayStepper) Step(d core.Date) core.Date { return d.AddDays(s.Days) }

var (
	mu       sync.RWMutex
	steppers = map[core.ExpenseFrequency]Stepper{
		core.Monthly:     MonthlyStepper{},
		core.BiWeekly:    DayStepper{Days: 14},
		core.Every30Days: DayStepper{Days: 30},
	}
)

// GetStepper returns the stepper for a recurring frequency.
func GetStepper(f core.ExpenseFrequency) (Stepper, error) {
	mu.RLock()
	defer mu.RUnlock()
	s, ok := steppers[f]
	if !ok {
		return nil, fmt.Errorf("no stepper for frequency: %q", f)
	}
	return s, nil
}

// RegisterStepper installs a stepper for a new frequency.
func RegisterStepper(f core.ExpenseFrequency, s Stepper) {
	mu.Lock()
	defer mu.Unlock()
	steppers[f] = s
}

// NextOccurrence returns the earliest date reachable from origin by whole
// steps of f that is on or after reference. When origin is already on or
// after reference it is returned as is, so the result is not always in the
// future. One-time expenses and unknown frequencies return origin.
func NextOccurrence(origin core.Date, f core.ExpenseFrequency, reference core.Date) core.Date {
	if !f.IsRecurring() {
		return origin
	}
	s, err := GetStepper(f)
	if err != nil {
		return origin
	}
	next := origin
	for next.Before(reference) {
		stepped := s.Step(next)
		if !stepped.After(next) {
			// A stepper that does not advance would never terminate.
			return next
		}
		next = stepped
	}
	return next
}
