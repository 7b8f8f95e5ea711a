package model

import (
	"errors"
	"fmt"
	"sort"
)

var ErrInvalidLapTable = errors.New("invalid lap table")

// ValidateLapTable checks the per driver lap numbering (contiguous from 1,
// no duplicates) and that positions are only present on completed laps.
func ValidateLapTable(laps []Lap) error {
	byDriver := map[string][]int{}
	var errs []error
	for _, l := range laps {
		byDriver[l.Driver] = append(byDriver[l.Driver], l.LapNumber)
		if l.Position.IsValue() && l.LapTime.IsNull() {
			errs = append(errs, fmt.Errorf("%w: %s lap %d has a position but no lap time",
				ErrInvalidLapTable, l.Driver, l.LapNumber))
		}
	}
	drivers := make([]string, 0, len(byDriver))
	for d := range byDriver {
		drivers = append(drivers, d)
	}
	sort.Strings(drivers)
	for _, d := range drivers {
		nums := byDriver[d]
		sort.Ints(nums)
		for i, n := range nums {
			if n != i+1 {
				errs = append(errs, fmt.Errorf("%w: %s expected lap %d, got %d",
					ErrInvalidLapTable, d, i+1, n))
				break
			}
		}
	}
	return errors.Join(errs...)
}
