package per

const (
	// MAX_CONSTRAINED_LENGTH is the upper bound below which a length
	// determinant is encoded as a constrained whole number.
	// ITU-T X.691 Section 11.9.3.3 / 11.9.4.1
	MAX_CONSTRAINED_LENGTH = 65536 // 64K

	// ONE_OCTET_LENGTH is the first length that no longer fits the
	// single-octet determinant form. ITU-T X.691 Section 11.9.3.6
	ONE_OCTET_LENGTH = 128

	// FRAGMENT_SIZE is the first length that would need fragmentation.
	// Lengths at or above it are rejected with asn.ErrUnsupportedLength.
	// ITU-T X.691 Section 11.9.3.8
	FRAGMENT_SIZE = 16384 // 16K

	// NORMALLY_SMALL_LIMIT bounds the 6-bit normally small form.
	// ITU-T X.691 Section 11.6
	NORMALLY_SMALL_LIMIT = 64
)
