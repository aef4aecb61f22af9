// Package per implements the bit-level primitives of the ITU-T X.691
// Packed Encoding Rules, ALIGNED and UNALIGNED variants.
//
// Encoder and Decoder follow the clause structure of X.691: constrained,
// semi-constrained, unconstrained and normally small whole numbers, length
// determinants, and the framing of the primitive types. Schema-driven
// composition lives in the value package.
//
// Unbounded length determinants cover the one-octet form (below 128) and
// the full two-octet form (128 to 16383, X.691 11.9.3.7), so lengths from
// 8K up to 16383 are encoded rather than refused. Lengths that would need
// fragmentation (16K and above) are rejected with asn.ErrUnsupportedLength.
package per

import (
	"fmt"

	"github.com/thebagchi/asner/lib/asn"
)

func lengthError(n uint64) error {
	return fmt.Errorf("%w: length %d needs fragmentation", asn.ErrUnsupportedLength, n)
}

func boundsError(what string, n uint64, lb, ub *uint64) error {
	lower, upper := "0", "MAX"
	if lb != nil {
		lower = fmt.Sprint(*lb)
	}
	if ub != nil {
		upper = fmt.Sprint(*ub)
	}
	return fmt.Errorf("%w: %s %d outside %s..%s", asn.ErrConstraintViolation, what, n, lower, upper)
}
