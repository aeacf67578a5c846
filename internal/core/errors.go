package core

import (
	"errors"
)

var (
	// ErrConnection is returned when the inbox or store cannot be reached or authenticated
	ErrConnection = errors.New("connection error")
	// ErrNotFound is returned when a referenced RFP, vendor or proposal set is absent
	ErrNotFound = errors.New("not found")
	// ErrExtraction is returned when the generator response is missing or unparseable
	ErrExtraction = errors.New("extraction error")
	// ErrValidation is returned when a required input is missing or malformed
	ErrValidation = errors.New("validation error")
	// ErrPersistence is returned when a store write fails
	ErrPersistence = errors.New("persistence error")
	// ErrConflict is returned when a write would give two vendors the same email
	ErrConflict = errors.New("conflict")
	// ErrPollInProgress is returned when another inbox poll holds the poll lock
	ErrPollInProgress = errors.New("inbox poll already in progress")
)

// ErrorChain flattens the wrapped error chain into readable lines
func ErrorChain(err error) []string {
	var chain []string
	for err != nil {
		chain = append(chain, err.Error())
		switch e := err.(type) {
		case interface{ Unwrap() []error }:
			errs := e.Unwrap()
			if len(errs) == 0 {
				return chain
			}
			err = errs[len(errs)-1]
		default:
			err = errors.Unwrap(err)
		}
	}
	return chain
}
