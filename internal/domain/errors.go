package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrCapacity     = errors.New("insufficient capacity")
	ErrInvalidState = errors.New("invalid state transition")
	ErrNotFound     = errors.New("not found")
	ErrNoRatePlan   = errors.New("no applicable rate plan")
)

// ValidationError is a caller-fixable input problem.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// CapacityError names the first date in a requested range that could not
// satisfy the requested quantity.
type CapacityError struct {
	Date      Date
	Requested int
	Remaining int
	Shortfall int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("insufficient capacity on %s: requested %d, remaining %d, shortfall %d",
		e.Date, e.Requested, e.Remaining, e.Shortfall)
}

func (e *CapacityError) Is(target error) bool { return target == ErrCapacity }

type InvalidStateError struct {
	BookingID string
	Current   BookingStatus
	Attempted Transition
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("booking %s: cannot %s from %s", e.BookingID, e.Attempted, e.Current)
}

func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

type NoRatePlanError struct {
	PropertyID string
	RoomTypeID string
	Nights     int
}

func (e *NoRatePlanError) Error() string {
	return fmt.Sprintf("no active rate plan for room type %s admits a %d-night stay", e.RoomTypeID, e.Nights)
}

func (e *NoRatePlanError) Is(target error) bool { return target == ErrNoRatePlan }
