package per

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thebagchi/asner/lib/asn"
)

func newDecoder(data []byte, aligned bool) *Decoder {
	return NewDecoder(data, aligned, asn.DefaultLimits())
}

func TestReadBool(t *testing.T) {
	decoder := newDecoder([]byte{0xA0}, true)
	for _, expected := range []bool{true, false, true, false} {
		value, err := decoder.DecodeBoolean()
		require.NoError(t, err)
		require.Equal(t, expected, value)
	}
}

func TestReadInteger(t *testing.T) {
	type bounds struct {
		lb, ub     *int64
		extensible bool
	}
	test := func(b bounds, values ...int64) {
		for _, aligned := range []bool{false, true} {
			name := strings.ToUpper(fmt.Sprintf("INTEGER_LB_%s_UB_%s_ALIGNED_%v_EXTENSIBLE_%v",
				dref(b.lb), dref(b.ub), aligned, b.extensible))
			t.Run(name, func(t *testing.T) {
				encoder := NewEncoder(aligned)
				for _, value := range values {
					require.NoError(t, encoder.EncodeInteger(value, b.lb, b.ub, b.extensible))
				}
				decoder := newDecoder(encoder.CompleteEncoding(), aligned)
				for _, value := range values {
					actual, err := decoder.DecodeInteger(b.lb, b.ub, b.extensible)
					require.NoError(t, err)
					require.Equal(t, value, actual)
				}
			})
		}
	}
	test(bounds{ptr[int64](0), ptr[int64](7), false}, 0, 7, 3)
	test(bounds{ptr[int64](-5), ptr[int64](250), false}, -5, 250, 0)
	test(bounds{ptr[int64](0), ptr[int64](255), false}, 0, 255, 128)
	test(bounds{ptr[int64](0), ptr[int64](65535), false}, 0, 65535, 300)
	test(bounds{ptr[int64](256), ptr[int64](1234567), false}, 256, 1234567, 70000)
	test(bounds{ptr[int64](asn.NoLowerBound), ptr[int64](asn.NoUpperBound), false},
		asn.NoLowerBound, asn.NoUpperBound, -1, 0)
	test(bounds{ptr[int64](10), nil, false}, 10, 11, 1 << 40)
	test(bounds{nil, nil, false}, 0, -1, 127, 128, -128, -129, asn.NoLowerBound, asn.NoUpperBound)
	test(bounds{ptr[int64](0), ptr[int64](7), true}, 0, 7, 8, -1, 1000)
	test(bounds{ptr[int64](42), ptr[int64](42), false}, 42)
}

func TestReadConstrainedWholeNumberClamps(t *testing.T) {
	// 3 bits for 0..5; 7 lies above the upper bound.
	decoder := newDecoder([]byte{0xE0}, false)
	value, err := decoder.DecodeConstrainedWholeNumber(0, 5)
	require.NoError(t, err)
	require.Equal(t, int64(5), value)
}

func TestReadOctetString(t *testing.T) {
	test := func(value []byte, lb, ub *uint64, extensible bool) {
		for _, aligned := range []bool{false, true} {
			name := strings.ToUpper(fmt.Sprintf("OCTETSTRING_LEN_%d_LB_%s_UB_%s_ALIGNED_%v_EXTENSIBLE_%v",
				len(value), dref(lb), dref(ub), aligned, extensible))
			t.Run(name, func(t *testing.T) {
				encoder := NewEncoder(aligned)
				require.NoError(t, encoder.EncodeSingleBit(true))
				require.NoError(t, encoder.EncodeOctetString(value, lb, ub, extensible))
				require.NoError(t, encoder.EncodeSingleBit(true))

				decoder := newDecoder(encoder.CompleteEncoding(), aligned)
				_, err := decoder.DecodeSingleBit()
				require.NoError(t, err)
				actual, err := decoder.DecodeOctetString(lb, ub, extensible)
				require.NoError(t, err)
				require.Equal(t, value, actual)
				bit, err := decoder.DecodeSingleBit()
				require.NoError(t, err)
				require.True(t, bit)
			})
		}
	}
	test([]byte{}, nil, nil, false)
	test([]byte("hello"), nil, nil, false)
	test(bytes.Repeat([]byte{0x5A}, 300), nil, nil, false)
	test([]byte{0x01}, ptr[uint64](1), ptr[uint64](1), false)
	test([]byte{0x01, 0x02}, ptr[uint64](2), ptr[uint64](2), false)
	test([]byte{0x01, 0x02, 0x03}, ptr[uint64](3), ptr[uint64](3), false)
	test([]byte{0x01, 0x02, 0x03}, ptr[uint64](0), ptr[uint64](8), false)
	test([]byte{0x01, 0x02, 0x03}, ptr[uint64](0), ptr[uint64](2), true)
	test([]byte{0x01}, ptr[uint64](0), ptr[uint64](2), true)
}

func TestReadBitString(t *testing.T) {
	test := func(data []byte, count uint64, lb, ub *uint64, extensible bool) {
		for _, aligned := range []bool{false, true} {
			name := strings.ToUpper(fmt.Sprintf("BITSTRING_BITS_%d_LB_%s_UB_%s_ALIGNED_%v_EXTENSIBLE_%v",
				count, dref(lb), dref(ub), aligned, extensible))
			t.Run(name, func(t *testing.T) {
				encoder := NewEncoder(aligned)
				require.NoError(t, encoder.EncodeBitString(data, count, lb, ub, extensible))
				decoder := newDecoder(encoder.CompleteEncoding(), aligned)
				actual, n, err := decoder.DecodeBitString(lb, ub, extensible)
				require.NoError(t, err)
				require.Equal(t, count, n)
				require.Equal(t, data, actual)
			})
		}
	}
	test([]byte{}, 0, nil, nil, false)
	test([]byte{0xA0}, 3, ptr[uint64](3), ptr[uint64](3), false)
	test([]byte{0xFF, 0x80}, 9, ptr[uint64](9), ptr[uint64](9), false)
	test([]byte{0xDE, 0xAD, 0xBE, 0xE0}, 27, ptr[uint64](27), ptr[uint64](27), false)
	test([]byte{0xDE, 0xAD, 0xBE, 0xE0}, 27, nil, nil, false)
	test([]byte{0xC0}, 2, ptr[uint64](0), ptr[uint64](8), false)
	test([]byte{0xC0, 0x00}, 12, ptr[uint64](0), ptr[uint64](8), true)
}

func TestReadLength(t *testing.T) {
	test := func(data []byte, expected uint64) {
		t.Run(fmt.Sprintf("%X", data), func(t *testing.T) {
			n, err := newDecoder(data, false).DecodeUnconstrainedLength()
			require.NoError(t, err)
			require.Equal(t, expected, n)
		})
	}
	test([]byte{0x00}, 0)
	test([]byte{0x7F}, 127)
	test([]byte{0x80, 0x80}, 128)
	test([]byte{0xA0, 0x00}, 8192)
	test([]byte{0xBF, 0xFF}, 16383)

	_, err := newDecoder([]byte{0xC1}, false).DecodeUnconstrainedLength()
	require.ErrorIs(t, err, asn.ErrUnsupportedLength)

	n, err := newDecoder([]byte{0x04}, false).DecodeNormallySmallLength()
	require.NoError(t, err)
	require.Equal(t, uint64(3), n)

	// An upper bound of 64K or more falls back to the unbounded form, checked
	// against the bounds after decoding.
	_, err = newDecoder([]byte{0x0B}, true).DecodeLengthDeterminant(ptr[uint64](0), ptr[uint64](70000))
	require.NoError(t, err)
	_, err = newDecoder([]byte{0x81, 0x00}, true).DecodeLengthDeterminant(ptr[uint64](0), ptr[uint64](70000))
	require.NoError(t, err)
	_, err = newDecoder([]byte{0x0B}, true).DecodeLengthDeterminant(ptr[uint64](12), ptr[uint64](70000))
	require.ErrorIs(t, err, asn.ErrConstraintViolation)
}

func TestReadNormallySmall(t *testing.T) {
	for _, aligned := range []bool{false, true} {
		encoder := NewEncoder(aligned)
		values := []uint64{0, 63, 64, 1000, 1 << 33}
		for _, v := range values {
			require.NoError(t, encoder.EncodeNormallySmallNonNegativeWholeNumber(v))
		}
		decoder := newDecoder(encoder.CompleteEncoding(), aligned)
		for _, v := range values {
			actual, err := decoder.DecodeNormallySmallNonNegativeWholeNumber()
			require.NoError(t, err)
			require.Equal(t, v, actual)
		}
	}
}

func TestReadEnumerated(t *testing.T) {
	for _, aligned := range []bool{false, true} {
		encoder := NewEncoder(aligned)
		require.NoError(t, encoder.EncodeEnumerated(2, 3, false))
		require.NoError(t, encoder.EncodeEnumerated(1, 3, true))
		require.NoError(t, encoder.EncodeEnumerated(5, 3, true))
		decoder := newDecoder(encoder.CompleteEncoding(), aligned)
		for _, c := range []struct {
			value      uint64
			extensible bool
		}{{2, false}, {1, true}, {5, true}} {
			actual, err := decoder.DecodeEnumerated(3, c.extensible)
			require.NoError(t, err)
			require.Equal(t, c.value, actual)
		}
	}
}

func TestReadCharacterString(t *testing.T) {
	test := func(codes []uint32, nbits uint8, lb, ub *uint64) {
		for _, aligned := range []bool{false, true} {
			t.Run(fmt.Sprintf("BITS_%d_UB_%s_ALIGNED_%v", nbits, dref(ub), aligned), func(t *testing.T) {
				encoder := NewEncoder(aligned)
				require.NoError(t, encoder.EncodeSingleBit(false))
				require.NoError(t, encoder.EncodeCharacterString(codes, nbits, lb, ub, false))
				decoder := newDecoder(encoder.CompleteEncoding(), aligned)
				_, err := decoder.DecodeSingleBit()
				require.NoError(t, err)
				actual, err := decoder.DecodeCharacterString(nbits, lb, ub, false)
				require.NoError(t, err)
				require.Equal(t, codes, actual)
			})
		}
	}
	test([]uint32{1, 2, 3}, 4, ptr[uint64](0), nil)
	test([]uint32{'x', 'y'}, 8, ptr[uint64](0), nil)
	test([]uint32{0x41, 0x7E}, 7, ptr[uint64](2), ptr[uint64](2))
	test([]uint32{0x263A, 0x0041}, 16, ptr[uint64](0), ptr[uint64](4))
	test([]uint32{}, 7, ptr[uint64](0), ptr[uint64](4))
}

func TestReadOpenType(t *testing.T) {
	for _, aligned := range []bool{false, true} {
		encoder := NewEncoder(aligned)
		require.NoError(t, encoder.EncodeSingleBit(true))
		require.NoError(t, encoder.EncodeOpenType(func(sub *Encoder) error {
			return sub.EncodeInteger(1000, ptr[int64](0), ptr[int64](4095), false)
		}))
		decoder := newDecoder(encoder.CompleteEncoding(), aligned)
		_, err := decoder.DecodeSingleBit()
		require.NoError(t, err)
		var value int64
		require.NoError(t, decoder.DecodeOpenType(func(sub *Decoder) error {
			value, err = sub.DecodeInteger(ptr[int64](0), ptr[int64](4095), false)
			return err
		}))
		require.Equal(t, int64(1000), value)
		require.True(t, decoder.IsAtEnd())
	}
}

func TestReadExtensionBitmap(t *testing.T) {
	present := []bool{true, false, false, true, true}
	encoder := NewEncoder(false)
	require.NoError(t, encoder.EncodeExtensionBitmap(present))
	actual, err := newDecoder(encoder.CompleteEncoding(), false).DecodeExtensionBitmap()
	require.NoError(t, err)
	require.Equal(t, present, actual)
}

func TestHostileLengths(t *testing.T) {
	limits := asn.Limits{MaxArraySize: 16, MaxStringSize: 100, MaxMessageSize: 1000}

	// 200 octets declared, limit 100.
	decoder := NewDecoder([]byte{0x80, 0xC8}, true, limits)
	_, err := decoder.DecodeOctetString(nil, nil, false)
	require.ErrorIs(t, err, asn.ErrConstraintViolation)

	// 256 elements declared, limit 16.
	decoder = NewDecoder([]byte{0x81, 0x00}, true, limits)
	_, err = decoder.DecodeArraySize(ptr[uint64](0), nil, false)
	require.ErrorIs(t, err, asn.ErrConstraintViolation)

	// Bitmap of 65 bits, limit 16.
	decoder = NewDecoder([]byte{0x80, 0x41}, true, limits)
	_, err = decoder.DecodeExtensionBitmap()
	require.ErrorIs(t, err, asn.ErrConstraintViolation)

	// Length within limits but larger than the input.
	decoder = NewDecoder([]byte{0x05, 0xAB}, true, limits)
	_, err = decoder.DecodeOctetString(nil, nil, false)
	require.ErrorIs(t, err, asn.ErrTruncated)

	// Open type larger than MaxMessageSize.
	decoder = NewDecoder([]byte{0x9F, 0xFF}, true, limits)
	_, err = decoder.DecodeOpenTypeRaw()
	require.ErrorIs(t, err, asn.ErrConstraintViolation)
}

func TestChannel(t *testing.T) {
	var buf bytes.Buffer
	encoder := NewEncoder(true)
	require.NoError(t, encoder.EncodeInteger(99, ptr[int64](0), ptr[int64](1000), false))
	require.NoError(t, encoder.WriteToChannel(&buf))

	decoder, err := ReadFromChannel(&buf, true, asn.DefaultLimits())
	require.NoError(t, err)
	value, err := decoder.DecodeInteger(ptr[int64](0), ptr[int64](1000), false)
	require.NoError(t, err)
	require.Equal(t, int64(99), value)
}
