package chart

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mpapenbr/racedash/pkg/model"
)

var ErrUnknownCompound = errors.New("unknown compound")

type UnknownCompoundError struct {
	Compound string
}

func (e *UnknownCompoundError) Error() string {
	return fmt.Sprintf("unknown tyre compound %q", e.Compound)
}

func (e *UnknownCompoundError) Is(target error) bool { return target == ErrUnknownCompound }

var compoundColors = map[string]string{
	model.Soft:   "#E74C3C",
	model.Medium: "#F39C12",
	model.Hard:   "#ECF0F1",
}

// CompoundColor returns the palette color of a dry compound. The lookup
// ignores case, anything but soft, medium and hard is an error.
func CompoundColor(compound string) (name, color string, err error) {
	for k, v := range compoundColors {
		if strings.EqualFold(k, strings.TrimSpace(compound)) {
			return k, v, nil
		}
	}
	return "", "", &UnknownCompoundError{Compound: compound}
}
