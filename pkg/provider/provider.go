// Package provider defines how historical session data enters racedash.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/mpapenbr/racedash/pkg/model"
)

type Provider interface {
	Load(ctx context.Context, key model.SessionKey) (*model.Session, error)
}

type ProviderFunc func(ctx context.Context, key model.SessionKey) (*model.Session, error)

func (f ProviderFunc) Load(ctx context.Context, key model.SessionKey) (*model.Session, error) {
	return f(ctx, key)
}

// DataLoadError is returned for every failure to load a session, be it an
// unreachable source, a missing dataset or malformed data.
type DataLoadError struct {
	Key model.SessionKey
	Err error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("failed to load session %s: %v", e.Key, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

// NewDataLoadError wraps err unless it already is a DataLoadError.
func NewDataLoadError(key model.SessionKey, err error) error {
	if err == nil {
		return nil
	}
	var dle *DataLoadError
	if errors.As(err, &dle) {
		return err
	}
	return &DataLoadError{Key: key, Err: err}
}

func IsDataLoadError(err error) bool {
	var dle *DataLoadError
	return errors.As(err, &dle)
}
