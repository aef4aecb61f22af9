package asn

import "fmt"

const (
	DefaultMaxArraySize   = 128
	DefaultMaxStringSize  = 16384
	DefaultMaxMessageSize = 1 << 20
)

// Limits bounds what a decoder will allocate on behalf of length fields
// read from the wire. Every decoder is built with its own Limits.
type Limits struct {
	MaxArraySize   uint64
	MaxStringSize  uint64
	MaxMessageSize uint64
}

func DefaultLimits() Limits {
	return Limits{
		MaxArraySize:   DefaultMaxArraySize,
		MaxStringSize:  DefaultMaxStringSize,
		MaxMessageSize: DefaultMaxMessageSize,
	}
}

// CheckArraySize rejects element counts above MaxArraySize.
func (l Limits) CheckArraySize(n uint64) error {
	if l.MaxArraySize > 0 && n > l.MaxArraySize {
		return fmt.Errorf("%w: array size %d exceeds maximum %d",
			ErrConstraintViolation, n, l.MaxArraySize)
	}
	return nil
}

// CheckStringSize rejects string lengths above MaxStringSize.
func (l Limits) CheckStringSize(n uint64) error {
	if l.MaxStringSize > 0 && n > l.MaxStringSize {
		return fmt.Errorf("%w: string size %d exceeds maximum %d",
			ErrConstraintViolation, n, l.MaxStringSize)
	}
	return nil
}

// CheckMessageSize rejects frames and TLVs above MaxMessageSize.
func (l Limits) CheckMessageSize(n uint64) error {
	if l.MaxMessageSize > 0 && n > l.MaxMessageSize {
		return fmt.Errorf("%w: message size %d exceeds maximum %d",
			ErrConstraintViolation, n, l.MaxMessageSize)
	}
	return nil
}
