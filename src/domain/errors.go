package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("entity not found")

	ErrCreation = errors.New("entity creation failed")

	ErrNotImplemented = errors.New("operation not implemented")

	ErrAdapter = errors.New("storage adapter failure")

	ErrNoAdapter = errors.New("no storage adapter registered")

	ErrUnavailableServer = errors.New("Oops, something unexpected happened. Please try again later.")
)

// NotFoundError is returned by FindOrFail style lookups.
type NotFoundError struct {
	ClassName string
	ID        string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.ClassName, e.ID, ErrNotFound.Error())
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// CreationError means a before-create hook refused the entity. Nothing was persisted.
type CreationError struct {
	ClassName string
	Err       error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.ClassName, ErrCreation.Error(), e.Err)
}

func (e *CreationError) Unwrap() error {
	return e.Err
}

func (e *CreationError) Is(target error) bool {
	return target == ErrCreation
}

type AdapterError struct {
	Op  string
	Err error
}

func NewAdapterError(op string, err error) *AdapterError {
	return &AdapterError{Op: op, Err: err}
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s - %s: %v", e.Op, ErrAdapter.Error(), e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

func (e *AdapterError) Is(target error) bool {
	return target == ErrAdapter
}
