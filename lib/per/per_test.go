package per

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestNonNegativeBinaryInteger checks the 11.3 minimum octet width.
func TestNonNegativeBinaryInteger(t *testing.T) {
	test := func(value uint64, nbits, octets int) {
		t.Helper()
		require.Equal(t, nbits, BitsNonNegativeBinaryInteger(value), "bits(%d)", value)
		require.Equal(t, octets, OctetsNonNegativeBinaryIntegerLength(value), "octets(%d)", value)
	}
	test(0, 1, 1)
	test(1, 1, 1)
	test(0x7F, 7, 1)
	test(0xFF, 8, 1)
	test(0x100, 9, 2)
	test(0xFFFF, 16, 2)
	test(0x10000, 17, 3)
	test(0xFFFFFFFF, 32, 4)
	test(0x100000000, 33, 5)
	test(math.MaxUint64, 64, 8)
}

// TestTwosComplementBinaryInteger checks the 11.4 minimum octet width:
// the leading nine bits are never all zero or all one.
func TestTwosComplementBinaryInteger(t *testing.T) {
	test := func(value int64, nbits, octets int) {
		t.Helper()
		require.Equal(t, nbits, BitsTwosComplementBinaryInteger(value), "bits(%d)", value)
		require.Equal(t, octets, OctetsTwosComplementBinaryInteger(value), "octets(%d)", value)
	}
	test(0, 1, 1)
	test(1, 2, 1)
	test(127, 8, 1)
	test(128, 9, 2)
	test(32767, 16, 2)
	test(32768, 17, 3)
	test(math.MaxInt32, 32, 4)
	test(math.MaxInt32+1, 33, 5)
	test(math.MaxInt64, 64, 8)
	test(-1, 1, 1)
	test(-128, 8, 1)
	test(-129, 9, 2)
	test(-32768, 16, 2)
	test(-32769, 17, 3)
	test(math.MinInt64, 64, 8)
}

func TestBitsForRange(t *testing.T) {
	test := func(lb, ub int64, expected uint8) {
		t.Helper()
		require.Equal(t, expected, BitsForRange(rangeOf(lb, ub)), "[%d, %d]", lb, ub)
	}
	test(5, 5, 0)
	test(0, 1, 1)
	test(0, 2, 2)
	test(0, 3, 2)
	test(0, 4, 3)
	test(0, 255, 8)
	test(-128, 127, 8)
	test(0, 256, 9)
	test(0, 65535, 16)
	test(math.MinInt64, math.MaxInt64, 64)
}
