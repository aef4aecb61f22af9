package asn

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated is returned when the buffer ends in the middle of a field.
	ErrTruncated = errors.New("asn: truncated")

	// ErrTagMismatch is returned when a BER header does not carry the
	// expected tag. The decoder is rewound so another branch can be tried.
	ErrTagMismatch = errors.New("asn: tag mismatch")

	// ErrConstraintViolation is returned when a decoded length or value is
	// outside its bounds or above a decode limit.
	ErrConstraintViolation = errors.New("asn: constraint violation")

	// ErrUnimplemented is returned for encodings this package does not
	// support: REAL contents and indefinite BER lengths.
	ErrUnimplemented = errors.New("asn: unimplemented")

	// ErrUnsupportedLength is returned for PER length determinants that
	// would need fragmentation.
	ErrUnsupportedLength = errors.New("asn: unsupported length")

	// ErrInvalidEncoding is returned for malformed contents, such as a
	// non-minimal sub-identifier or a bad unused-bits octet.
	ErrInvalidEncoding = errors.New("asn: invalid encoding")

	// ErrLogic is returned when a value tree breaks an invariant, for
	// example encoding a CHOICE with nothing selected.
	ErrLogic = errors.New("asn: logic error")
)

// DecodeError wraps a decode failure with the byte offset it happened at.
type DecodeError struct {
	Offset  int
	Message string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("asn: %s at offset %d: %v", e.Message, e.Offset, e.Err)
	}
	return fmt.Sprintf("asn: %s at offset %d", e.Message, e.Offset)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func NewDecodeError(offset int, message string, err error) *DecodeError {
	return &DecodeError{Offset: offset, Message: message, Err: err}
}

// TagMismatchError describes which tag was expected and which was found.
type TagMismatchError struct {
	Offset   int
	Expected Tag
	Actual   Tag
}

func (e *TagMismatchError) Error() string {
	return fmt.Sprintf("asn: tag mismatch at offset %d: expected %s, got %s",
		e.Offset, e.Expected, e.Actual)
}

func (e *TagMismatchError) Is(target error) bool {
	return target == ErrTagMismatch
}

func NewTagMismatchError(offset int, expected, actual Tag) *TagMismatchError {
	return &TagMismatchError{Offset: offset, Expected: expected, Actual: actual}
}
