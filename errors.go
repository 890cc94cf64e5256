package keel

import (
	"github.com/pkg/errors"
)

// Errors reported by restructuring operations. They are wrapped with
// context; match them with errors.Is. Allocation failures are returned as
// produced by the memory resource.
var (
	// ErrTypeMismatch: inputs of a multi-source operation do not share a
	// type or shape.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrOutOfBounds: an index, range or boundary lies outside its column.
	ErrOutOfBounds = errors.New("out of bounds")

	// ErrUnsupportedType: the element type cannot be handled by the
	// operation.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrInvalidArgument: a control input is malformed.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrViewExpired: a view was used after its owning column was released.
	ErrViewExpired = errors.New("view used after its owner was released")

	// ErrKernelFault: a kernel lane failed at runtime, for example an
	// unchecked index outside its column.
	ErrKernelFault = errors.New("kernel fault")
)

func typeMismatch(format string, args ...interface{}) error {
	return errors.Wrapf(ErrTypeMismatch, format, args...)
}

func outOfBounds(format string, args ...interface{}) error {
	return errors.Wrapf(ErrOutOfBounds, format, args...)
}

func unsupported(format string, args ...interface{}) error {
	return errors.Wrapf(ErrUnsupportedType, format, args...)
}

func invalidArgument(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

func withColumn(err error, i int) error {
	return errors.Wrapf(err, "column %d", i)
}

func withTable(err error, i int) error {
	return errors.Wrapf(err, "table %d", i)
}
