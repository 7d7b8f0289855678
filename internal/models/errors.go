package models

import (
	"errors"
	"fmt"
)

var (
	// ErrVersionNotFound is returned when a version is missing from the library.
	ErrVersionNotFound = errors.New("version not found")
	// ErrInvalidCorpus is returned when version data does not have the expected shape.
	ErrInvalidCorpus = errors.New("invalid bible data")
	// ErrStaleLoad is returned when a newer load superseded this one.
	ErrStaleLoad = errors.New("load superseded by a newer request")
)

// LoadError records which version and which stage of loading failed.
type LoadError struct {
	Version string
	Stage   string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s: %v", e.Version, e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
