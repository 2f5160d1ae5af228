package domain

import "errors"

var (
	// ErrVisitNotFound is returned when no visit matches the requested id.
	ErrVisitNotFound = errors.New("visit not found")
	// ErrNoFieldsProvided is returned when an update patch is empty.
	ErrNoFieldsProvided = errors.New("no fields provided for update")
	// ErrNoExecutivesAvailable is returned when the legacy executive-id
	// fallback has no active executive to substitute.
	ErrNoExecutivesAvailable = errors.New("no active executives available")
	// ErrVisitorDataInvalid is returned when required visitor fields are
	// missing or malformed.
	ErrVisitorDataInvalid = errors.New("visitor name and phone are required")
)
