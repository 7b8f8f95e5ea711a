package selector

import (
	"errors"
	"fmt"
)

var (
	ErrNoLapsFound    = errors.New("no laps found")
	ErrNoCompletedLap = errors.New("no completed lap")
	ErrLapNotFound    = errors.New("lap not found")
)

type NoLapsFoundError struct {
	Driver string
}

func (e *NoLapsFoundError) Error() string {
	return fmt.Sprintf("no laps found for driver %s", e.Driver)
}

func (e *NoLapsFoundError) Is(target error) bool { return target == ErrNoLapsFound }

type NoCompletedLapError struct {
	Driver string
}

func (e *NoCompletedLapError) Error() string {
	return fmt.Sprintf("driver %s has no completed lap", e.Driver)
}

func (e *NoCompletedLapError) Is(target error) bool { return target == ErrNoCompletedLap }

type LapNotFoundError struct {
	Driver string
	Lap    int
}

func (e *LapNotFoundError) Error() string {
	return fmt.Sprintf("lap %d not found for driver %s", e.Lap, e.Driver)
}

func (e *LapNotFoundError) Is(target error) bool { return target == ErrLapNotFound }

// IsSelectionError reports whether err means a selection found no matching rows.
func IsSelectionError(err error) bool {
	return errors.Is(err, ErrNoLapsFound) ||
		errors.Is(err, ErrNoCompletedLap) ||
		errors.Is(err, ErrLapNotFound)
}
