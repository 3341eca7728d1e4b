package value

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes failures reported by the binding core.
type ErrorCode string

const (
	// ErrCodeUnboundName indicates a read or assign of a name that was never declared.
	ErrCodeUnboundName ErrorCode = "UNBOUND_NAME"

	// ErrCodeOutOfRange indicates an indexed access outside the sequence bounds.
	ErrCodeOutOfRange ErrorCode = "OUT_OF_RANGE"

	// ErrCodeWrongKind indicates an operation applied to the wrong shape,
	// e.g. append on a record or a field write through a primitive binding.
	ErrCodeWrongKind ErrorCode = "WRONG_KIND"

	// ErrCodeInvalidHandle indicates a handle unknown to the store or already reclaimed.
	ErrCodeInvalidHandle ErrorCode = "INVALID_HANDLE"

	// ErrCodeDuplicateBinding indicates a second declaration of a name in one scope.
	ErrCodeDuplicateBinding ErrorCode = "DUPLICATE_BINDING"

	// ErrCodeConstantAssignment indicates an assign to a constant binding.
	ErrCodeConstantAssignment ErrorCode = "CONSTANT_ASSIGNMENT"

	// ErrCodeInvalidName indicates an empty binding name.
	ErrCodeInvalidName ErrorCode = "INVALID_NAME"

	// ErrCodeScopeUnderflow indicates an attempt to pop the global scope.
	ErrCodeScopeUnderflow ErrorCode = "SCOPE_UNDERFLOW"
)

// KnownCodes lists every ErrorCode in declaration order.
var KnownCodes = []ErrorCode{
	ErrCodeUnboundName,
	ErrCodeOutOfRange,
	ErrCodeWrongKind,
	ErrCodeInvalidHandle,
	ErrCodeDuplicateBinding,
	ErrCodeConstantAssignment,
	ErrCodeInvalidName,
	ErrCodeScopeUnderflow,
}

// ParseErrorCode validates s as a known code.
func ParseErrorCode(s string) (ErrorCode, error) {
	for _, c := range KnownCodes {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown error code %q", s)
}

// Error is the single error type returned by the value, heap, and env packages.
//
// Every failure is local and atomic: the operation that returned an Error
// performed no mutation. Structured fields are populated where they apply.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Op names the failing operation ("append", "set_index", "read", ...).
	Op string

	// Name is the binding involved, if any.
	Name string

	// Handle is the aggregate involved, if any.
	Handle Handle

	// Index is the offending sequence index (OUT_OF_RANGE only).
	Index int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %s (name=%s)", e.Code, e.Message, e.Name)
	}
	if e.Handle != 0 {
		return fmt.Sprintf("%s: %s (handle=#%d)", e.Code, e.Message, uint64(e.Handle))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}

// IsUnboundName returns true if err is an UNBOUND_NAME error.
func IsUnboundName(err error) bool { return CodeOf(err) == ErrCodeUnboundName }

// IsOutOfRange returns true if err is an OUT_OF_RANGE error.
func IsOutOfRange(err error) bool { return CodeOf(err) == ErrCodeOutOfRange }

// IsWrongKind returns true if err is a WRONG_KIND error.
func IsWrongKind(err error) bool { return CodeOf(err) == ErrCodeWrongKind }

// IsInvalidHandle returns true if err is an INVALID_HANDLE error.
func IsInvalidHandle(err error) bool { return CodeOf(err) == ErrCodeInvalidHandle }

// NewUnboundNameError creates an Error for a name absent from the scope chain.
func NewUnboundNameError(op, name string) *Error {
	return &Error{
		Code:    ErrCodeUnboundName,
		Message: fmt.Sprintf("%s of undeclared name", op),
		Op:      op,
		Name:    name,
	}
}

// NewOutOfRangeError creates an Error for an index outside [0, length).
func NewOutOfRangeError(op string, h Handle, index, length int) *Error {
	return &Error{
		Code:    ErrCodeOutOfRange,
		Message: fmt.Sprintf("index %d outside sequence of length %d", index, length),
		Op:      op,
		Handle:  h,
		Index:   index,
	}
}

// NewWrongKindError creates an Error for an operation on the wrong shape.
func NewWrongKindError(op string, h Handle, got string) *Error {
	return &Error{
		Code:    ErrCodeWrongKind,
		Message: fmt.Sprintf("%s not supported on %s", op, got),
		Op:      op,
		Handle:  h,
	}
}

// NewInvalidHandleError creates an Error for a handle the store does not hold.
func NewInvalidHandleError(op string, h Handle) *Error {
	return &Error{
		Code:    ErrCodeInvalidHandle,
		Message: "handle does not designate a live aggregate",
		Op:      op,
		Handle:  h,
	}
}
