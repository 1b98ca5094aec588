package apperr

import (
	"github.com/juju/errors"
)

// Kind classifies failures surfaced by the collaboration core.
type Kind string

const (
	KindValidation Kind = "validation"
	KindForbidden  Kind = "forbidden"
	KindNotFound   Kind = "not_found"
	KindStorage    Kind = "storage"
	KindDelivery   Kind = "delivery"
)

// Error types without a juju/errors counterpart.
const (
	StorageFailure  = errors.ConstError("storage failure")
	DeliveryFailure = errors.ConstError("delivery failure")
)

// Validation reports malformed or missing input.
func Validation(format string, args ...any) error {
	return errors.WithType(errors.Errorf(format, args...), errors.NotValid)
}

// Forbidden reports a permission or friendship-gate failure.
func Forbidden(format string, args ...any) error {
	return errors.WithType(errors.Errorf(format, args...), errors.Forbidden)
}

// NotFound reports a missing room, message, friendship or notification.
func NotFound(format string, args ...any) error {
	return errors.WithType(errors.Errorf(format, args...), errors.NotFound)
}

// Storage wraps a backend failure. Callers keep their input for a manual retry.
func Storage(op string, err error) error {
	return errors.WithType(errors.Annotate(err, op), StorageFailure)
}

// DeliveryWarning wraps a best-effort side channel failure. It is logged, never returned.
func DeliveryWarning(op string, err error) error {
	return errors.WithType(errors.Annotate(err, op), DeliveryFailure)
}

// KindOf returns the kind of err, or "" for errors outside the taxonomy.
// Backend failures win over any kind carried by their cause.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, StorageFailure):
		return KindStorage
	case errors.Is(err, DeliveryFailure):
		return KindDelivery
	case errors.Is(err, errors.NotValid):
		return KindValidation
	case errors.Is(err, errors.Forbidden):
		return KindForbidden
	case errors.Is(err, errors.NotFound):
		return KindNotFound
	}
	return ""
}

// Is reports whether err belongs to kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
