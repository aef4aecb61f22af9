package ber

import (
	"fmt"
	"math/bits"

	"github.com/thebagchi/asner/lib/asn"
)

// 8.19.4 The numerical value of the first subidentifier is derived from the values
// of the first two object identifier components by the formula (X*40) + Y.

// ObjectIdentifierContent returns the contents octets for arcs.
func ObjectIdentifierContent(arcs []uint64) ([]byte, error) {
	if err := validateArcs(arcs); err != nil {
		return nil, err
	}
	first := arcs[0]*40 + arcs[1]
	if arcs[0] == 2 && arcs[1] > (^uint64(0))-80 {
		return nil, fmt.Errorf("ber: object identifier arc %d overflows: %w", arcs[1], asn.ErrConstraintViolation)
	}
	size := base128Length(first)
	for _, arc := range arcs[2:] {
		size += base128Length(arc)
	}
	out := make([]byte, 0, size)
	out = appendBase128(out, first)
	for _, arc := range arcs[2:] {
		out = appendBase128(out, arc)
	}
	return out, nil
}

// ParseObjectIdentifierContent splits contents octets back into arcs.
func ParseObjectIdentifierContent(data []byte) ([]uint64, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("ber: empty object identifier: %w", asn.ErrInvalidEncoding)
	}
	arcs := make([]uint64, 0, len(data)+1)
	for offset := 0; offset < len(data); {
		value, n, err := readBase128(data[offset:])
		if err != nil {
			return nil, asn.NewDecodeError(offset, "object identifier", err)
		}
		if len(arcs) == 0 {
			switch {
			case value < 40:
				arcs = append(arcs, 0, value)
			case value < 80:
				arcs = append(arcs, 1, value-40)
			default:
				arcs = append(arcs, 2, value-80)
			}
		} else {
			arcs = append(arcs, value)
		}
		offset += n
	}
	return arcs, nil
}

func validateArcs(arcs []uint64) error {
	if len(arcs) < 2 {
		return fmt.Errorf("ber: object identifier needs two arcs, got %d: %w", len(arcs), asn.ErrConstraintViolation)
	}
	if arcs[0] > 2 {
		return fmt.Errorf("ber: object identifier first arc %d: %w", arcs[0], asn.ErrConstraintViolation)
	}
	if arcs[0] < 2 && arcs[1] > 39 {
		return fmt.Errorf("ber: object identifier second arc %d under %d: %w", arcs[1], arcs[0], asn.ErrConstraintViolation)
	}
	return nil
}

func appendBase128(out []byte, value uint64) []byte {
	n := base128Length(value)
	for i := n - 1; i >= 0; i-- {
		b := byte(value>>(uint(i)*7)) & 0x7F
		if i > 0 {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

// readBase128 reads one base-128 number and returns it with the number of
// octets used. A leading 0x80 octet is not minimal and is rejected.
func readBase128(data []byte) (uint64, int, error) {
	var value uint64
	for i, b := range data {
		if i == 0 && b == 0x80 {
			return 0, 0, asn.ErrInvalidEncoding
		}
		if bits.LeadingZeros64(value) < 7 {
			return 0, 0, asn.ErrInvalidEncoding
		}
		value = value<<7 | uint64(b&0x7F)
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, asn.ErrTruncated
}
