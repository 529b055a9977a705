package engine

import (
	"fmt"
	"time"

	"mercator-hq/carepath/pkg/logic/ast"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
)

// elapsed returns the number of whole units between from and to, with
// to >= from. Years and months follow the calendar, so a patient born on
// 2000-03-15 is 15 from 2015-03-15 onwards and 14 the day before.
func elapsed(from, to time.Time, unit ast.TimeUnit) (int64, error) {
	switch unit {
	case ast.UnitYears:
		years := to.Year() - from.Year()
		if from.AddDate(years, 0, 0).After(to) {
			years--
		}
		return int64(years), nil

	case ast.UnitMonths:
		months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
		if from.AddDate(0, months, 0).After(to) {
			months--
		}
		return int64(months), nil

	case ast.UnitWeeks:
		return int64(to.Sub(from) / week), nil
	case ast.UnitDays:
		return int64(to.Sub(from) / day), nil
	case ast.UnitHours:
		return int64(to.Sub(from) / time.Hour), nil
	case ast.UnitMinutes:
		return int64(to.Sub(from) / time.Minute), nil
	case ast.UnitSeconds:
		return int64(to.Sub(from) / time.Second), nil

	default:
		return 0, fmt.Errorf("%w: unknown time unit %q", ErrInvalidOperator, unit)
	}
}

// startOfYear returns midnight on January 1st of year in the location of ref.
func startOfYear(year int, ref time.Time) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, ref.Location())
}
