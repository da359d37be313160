// Package errors provides the status-code taxonomy of the OS services layer
// as Go errors. All error types support errors.Is and errors.As, and every
// error converts back to an interpreter status with ToStatus.
package errors

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/reglet-dev/acpica-osl/domain/entities"
)

// StatusCoder is implemented by errors that carry an interpreter status.
// New error types only need to implement this interface to be translated
// by ToStatus.
type StatusCoder interface {
	error
	StatusCode() entities.Status
}

// Sentinel errors, one per non-OK status.
var (
	ErrGeneric        = &sentinel{entities.StatusError, "generic failure"}
	ErrNoMemory       = &sentinel{entities.StatusNoMemory, "out of memory"}
	ErrNotFound       = &sentinel{entities.StatusNotFound, "not found"}
	ErrNotExist       = &sentinel{entities.StatusNotExist, "does not exist"}
	ErrAlreadyExists  = &sentinel{entities.StatusAlreadyExists, "already exists"}
	ErrNotImplemented = &sentinel{entities.StatusNotImplemented, "not implemented"}
	ErrUnsupported    = &sentinel{entities.StatusSupport, "unsupported"}
	ErrLimit          = &sentinel{entities.StatusLimit, "limit exceeded"}
	ErrTimeout        = &sentinel{entities.StatusTime, "timeout"}
	ErrNotAcquired    = &sentinel{entities.StatusNotAcquired, "not acquired"}
	ErrNotConfigured  = &sentinel{entities.StatusNotConfigured, "not configured"}
	ErrAccessDenied   = &sentinel{entities.StatusAccess, "access denied"}
	ErrBadParameter   = &sentinel{entities.StatusBadParameter, "bad parameter"}
)

var sentinels = map[entities.Status]*sentinel{
	entities.StatusError:          ErrGeneric,
	entities.StatusNoMemory:       ErrNoMemory,
	entities.StatusNotFound:       ErrNotFound,
	entities.StatusNotExist:       ErrNotExist,
	entities.StatusAlreadyExists:  ErrAlreadyExists,
	entities.StatusNotImplemented: ErrNotImplemented,
	entities.StatusSupport:        ErrUnsupported,
	entities.StatusLimit:          ErrLimit,
	entities.StatusTime:           ErrTimeout,
	entities.StatusNotAcquired:    ErrNotAcquired,
	entities.StatusNotConfigured:  ErrNotConfigured,
	entities.StatusAccess:         ErrAccessDenied,
	entities.StatusBadParameter:   ErrBadParameter,
}

type sentinel struct {
	status entities.Status
	msg    string
}

func (s *sentinel) Error() string {
	return s.msg
}

func (s *sentinel) StatusCode() entities.Status {
	return s.status
}

// StatusError is an operation failure with an interpreter status.
type StatusError struct {
	Err    error
	Op     string
	Status entities.Status
}

func (e *StatusError) Error() string {
	msg := e.Status.String()
	if s, ok := sentinels[e.Status]; ok {
		msg = s.msg
	}
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", msg, e.Err)
	default:
		return msg
	}
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error of the same status.
func (e *StatusError) Is(target error) bool {
	s, ok := target.(*sentinel)
	return ok && s.status == e.Status
}

// StatusCode implements StatusCoder.
func (e *StatusError) StatusCode() entities.Status {
	return e.Status
}

// New returns a StatusError for op. A StatusOK status is a programming
// error and is recorded as StatusError.
func New(op string, status entities.Status) error {
	return Wrap(op, status, nil)
}

// Wrap returns a StatusError for op that wraps err.
func Wrap(op string, status entities.Status, err error) error {
	if status == entities.StatusOK {
		status = entities.StatusError
	}
	return &StatusError{Op: op, Status: status, Err: err}
}

// FromStatus returns the sentinel error for status, or nil for StatusOK.
// Statuses outside the taxonomy yield a StatusError carrying the raw value.
func FromStatus(status entities.Status) error {
	if status == entities.StatusOK {
		return nil
	}
	if s, ok := sentinels[status]; ok {
		return s
	}
	return &StatusError{Status: status}
}

// ToStatus translates err into an interpreter status. A non-nil error never
// translates to StatusOK.
func ToStatus(err error) entities.Status {
	if err == nil {
		return entities.StatusOK
	}

	var sc StatusCoder
	if stdErrors.As(err, &sc) {
		if status := sc.StatusCode(); status != entities.StatusOK {
			return status
		}
		return entities.StatusError
	}

	if stdErrors.Is(err, context.DeadlineExceeded) {
		return entities.StatusTime
	}

	return entities.StatusError
}

// Is is a convenience wrapper around the standard errors.Is.
func Is(err, target error) bool {
	return stdErrors.Is(err, target)
}

// As is a convenience wrapper around the standard errors.As.
func As(err error, target any) bool {
	return stdErrors.As(err, target)
}
