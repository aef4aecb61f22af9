package per

import (
	"errors"
	"io"
	"math/bits"

	"github.com/rs/zerolog"

	"github.com/thebagchi/asner/lib/bitbuffer"
	"github.com/thebagchi/asner/lib/tpkt"
)

// Encoder represents a PER encoder for bit-level encoding
type Encoder struct {
	codec   *bitbuffer.Codec
	aligned bool
}

// NewEncoder creates a new PER encoder
// aligned: true for APER (Aligned PER), false for UPER (Unaligned PER)
func NewEncoder(aligned bool) *Encoder {
	return &Encoder{
		codec:   bitbuffer.CreateWriter(),
		aligned: aligned,
	}
}

// Aligned reports the variant this encoder writes.
func (e *Encoder) Aligned() bool {
	return e.aligned
}

// SetLogger routes bit-level trace output to logger.
func (e *Encoder) SetLogger(logger zerolog.Logger) {
	e.codec.SetLogger(logger)
}

// Bytes returns the encoded bytes. A partial final octet is zero padded.
func (e *Encoder) Bytes() []byte {
	return e.codec.Bytes()
}

// NumWritten returns the number of bits written so far.
func (e *Encoder) NumWritten() uint64 {
	return e.codec.NumWritten()
}

// 10.1.3 If the field-list is empty the encoding of the outermost value
// shall be a single octet of zeros; otherwise it is padded to an octet.
func (e *Encoder) CompleteEncoding() []byte {
	_ = e.codec.Align()
	if e.codec.NumWritten() == 0 {
		_ = e.codec.WriteByte(0x00)
	}
	return e.codec.Bytes()
}

// WriteToChannel completes the encoding and writes it as one TPKT frame.
func (e *Encoder) WriteToChannel(w io.Writer) error {
	return tpkt.WriteFrame(w, e.CompleteEncoding())
}

// Align pads with zero bits up to the next octet boundary in both variants.
func (e *Encoder) Align() error {
	return e.codec.Align()
}

// alignIfAligned pads only in the ALIGNED variant.
func (e *Encoder) alignIfAligned() error {
	if e.aligned {
		return e.codec.Align()
	}
	return nil
}

// EncodeSingleBit appends one bit.
func (e *Encoder) EncodeSingleBit(bit bool) error {
	return e.codec.WriteBit(bit)
}

// EncodeMultiBit appends the low nbits of value, most significant first.
// nbits=0 appends nothing.
func (e *Encoder) EncodeMultiBit(value uint64, nbits uint8) error {
	if nbits == 0 {
		return nil
	}
	return e.codec.Write(nbits, value)
}

// EncodeBlock aligns to an octet boundary and appends data.
func (e *Encoder) EncodeBlock(data []byte) error {
	return e.codec.WriteBlock(data)
}

// EncodeBits appends the first count bits of data, MSB-first, without
// alignment.
func (e *Encoder) EncodeBits(data []byte, count uint64) error {
	if uint64(len(data))*8 < count {
		return errors.New("per: bit count exceeds data")
	}
	full := int(count / 8)
	if err := e.codec.WriteBytes(data[:full]); err != nil {
		return err
	}
	if rest := uint8(count % 8); rest > 0 {
		return e.codec.Write(rest, uint64(data[full]>>(8-rest)))
	}
	return nil
}

// 11.3 Encoding as a non-negative-binary-integer
// |- 11.3.6 A minimum octet non-negative-binary-integer encoding of the whole number has a
// |  |  field which is a multiple of eight bits and also satisfies the condition that the
// |  |  leading eight bits of the field shall not all be zero unless the field is precisely
// |  |  eight bits long.

func BitsNonNegativeBinaryInteger(value uint64) int {
	if value == 0 {
		return 1
	}
	return bits.Len64(value)
}

func OctetsNonNegativeBinaryIntegerLength(value uint64) int {
	bits := BitsNonNegativeBinaryInteger(value)
	return (bits + 7) >> 3
}

// 11.4 Encoding as a 2's-complement-binary-integer
// |- 11.4.6 A minimum octet 2's-complement-binary-integer encoding of the whole number has a
// |  |  field-width that is a multiple of eight bits and also satisfies the condition that the
// |  |  leading nine bits of the field shall not all be zero and shall not all be ones.

func BitsTwosComplementBinaryInteger(value int64) int {
	if value == 0 {
		return 1
	}
	if value > 0 {
		return bits.Len64(uint64(value)) + 1
	}
	return bits.Len64(uint64(^value)) + 1
}

func OctetsTwosComplementBinaryInteger(value int64) int {
	bits := BitsTwosComplementBinaryInteger(value)
	return (bits + 7) >> 3
}

// BitsForRange returns the bit-field width that holds every value of a
// range of the given size; size 0 stands for 2^64.
func BitsForRange(size uint64) uint8 {
	if size == 0 {
		return 64
	}
	return uint8(bits.Len64(size - 1))
}

// rangeOf returns ub-lb+1 with 2^64 wrapping to 0.
func rangeOf(lb, ub int64) uint64 {
	return uint64(ub) - uint64(lb) + 1
}

// 11.5 Encoding of a constrained whole number
// |- 11.5.4 If "range" has the value 1, then the result of the encoding shall be an empty
// |  |  bit-field (no bits).
// |- 11.5.6 In the case of the UNALIGNED variant the value ("n" - "lb") shall be encoded as a
// |  |  non-negative-binary-integer in a bit-field as specified in 11.3 with the minimum
// |  |  number of bits necessary to represent the range.
// |- 11.5.7 In the case of the ALIGNED variant the encoding depends on whether:
// |  |  a) "range" is less than or equal to 255 (the bit-field case);
// |  |  b) "range" is exactly 256 (the one-octet case);
// |  |  c) "range" is greater than 256 and less than or equal to 64K (the two-octet case);
// |  |  d) "range" is greater than 64K (the indefinite length case).
//
// n is clamped onto [lb, ub] first.

func (e *Encoder) EncodeConstrainedWholeNumber(lb, ub, n int64) error {
	if lb == ub {
		return nil
	}
	n = min(max(n, lb), ub)
	var (
		size  = rangeOf(lb, ub)
		nbits = BitsForRange(size)
		value = uint64(n) - uint64(lb)
	)
	if !e.aligned || (size != 0 && size <= 0xFF) {
		return e.codec.Write(nbits, value)
	}
	// 11.5.7.2 / 11.5.7.3
	if size != 0 && size <= 0x10000 {
		if err := e.codec.Align(); err != nil {
			return err
		}
		if size == 0x100 {
			return e.codec.Write(8, value)
		}
		return e.codec.Write(16, value)
	}
	// 11.5.7.4 and 13.2.6 a): octet count as a constrained length in
	// [1, octets needed for the range], then the octet-aligned value.
	var (
		octets   = uint64(OctetsNonNegativeBinaryIntegerLength(value))
		lbOctets = uint64(1)
		ubOctets = uint64(nbits+7) / 8
	)
	if err := e.EncodeLengthDeterminant(octets, &lbOctets, &ubOctets); err != nil {
		return err
	}
	if err := e.codec.Align(); err != nil {
		return err
	}
	return e.codec.Write(uint8(octets*8), value)
}

// 11.6 Encoding of a normally small non-negative whole number
// |- 11.6.1 If the non-negative whole number, "n", is less than or equal to 63, then a
// |  |  single-bit bit-field shall be appended to the field-list with the bit set to 0, and
// |  |  "n" shall be encoded as a non-negative-binary-integer into a 6-bit bit-field.
// |- 11.6.2 If "n" is greater than or equal to 64, a single-bit bit-field with the bit set to 1
// |  |  shall be appended to the field-list.
// |  |  The value "n" shall then be encoded as a semi-constrained whole number with "lb" equal to
// |  |  0 and the procedures of 11.9 shall be invoked to add it to the field-list preceded by a
// |  |  length determinant.

func (e *Encoder) EncodeNormallySmallNonNegativeWholeNumber(n uint64) error {
	if n < NORMALLY_SMALL_LIMIT {
		if err := e.codec.Write(1, 0); err != nil {
			return err
		}
		return e.codec.Write(6, n)
	}
	if err := e.codec.Write(1, 1); err != nil {
		return err
	}
	return e.encodeSemiConstrained(n)
}

// 11.7 Encoding of a semi-constrained whole number
// |- 11.7.4 (The indefinite length case.) The value ("n" - "lb") shall be encoded as a
// |  |  non-negative-binary-integer in a bit-field (octet-aligned in the ALIGNED variant) with
// |  |  the minimum number of octets as specified in 11.3.

func (e *Encoder) EncodeSemiConstrainedWholeNumber(lb, n int64) error {
	n = max(n, lb)
	return e.encodeSemiConstrained(uint64(n) - uint64(lb))
}

func (e *Encoder) encodeSemiConstrained(value uint64) error {
	octets := OctetsNonNegativeBinaryIntegerLength(value)
	if err := e.EncodeLengthDeterminant(uint64(octets), nil, nil); err != nil {
		return err
	}
	return e.codec.Write(uint8(octets*8), value)
}

// 11.8 Encoding of an unconstrained whole number
// |- 11.8.3 (The indefinite length case.) The value "n" shall be encoded as a
// |  |  2's-complement-binary-integer in a bit-field (octet-aligned in the ALIGNED variant)
// |  |  with the minimum number of octets as specified in 11.4.

func (e *Encoder) EncodeUnconstrainedWholeNumber(n int64) error {
	octets := OctetsTwosComplementBinaryInteger(n)
	if err := e.EncodeLengthDeterminant(uint64(octets), nil, nil); err != nil {
		return err
	}
	return e.codec.Write(uint8(octets*8), uint64(n))
}

// 11.9 General rules for encoding a length determinant
// |- NOTE 2 - In the case of the ALIGNED variant if the length count is bounded above by an
// |  |  upper bound that is less than 64K, then the constrained whole number encoding is used
// |  |  for the length. Otherwise the length is encoded into an octet-aligned bit-field:
// |  |  a) ("n" less than 128) a single octet containing "n" with bit 8 set to zero;
// |  |  b) ("n" less than 16K) two octets containing "n" with bit 8 of the first octet set to 1
// |  |     and bit 7 set to zero;
// |  |  c) (large "n") fragmentation, which this encoder does not produce.
//
// The unbounded form is octet-aligned in both variants. A fixed length
// (lb == ub) encodes to nothing.

func (e *Encoder) EncodeLengthDeterminant(n uint64, lb *uint64, ub *uint64) error {
	if ub != nil && *ub < MAX_CONSTRAINED_LENGTH {
		lower := uint64(0)
		if lb != nil {
			lower = *lb
		}
		return e.EncodeConstrainedWholeNumber(int64(lower), int64(*ub), int64(n))
	}
	return e.EncodeUnconstrainedLength(n)
}

func (e *Encoder) EncodeUnconstrainedLength(n uint64) error {
	if n >= FRAGMENT_SIZE {
		return lengthError(n)
	}
	if err := e.codec.Align(); err != nil {
		return err
	}
	if n < ONE_OCTET_LENGTH {
		return e.codec.Write(8, n)
	}
	return e.codec.Write(16, 0x8000|n)
}

// 11.9.3.4 Normally small length, used for the extension addition bitmap:
// 0 followed by n-1 in six bits when 1 <= n <= 64, else 1 and an
// unconstrained length.

func (e *Encoder) EncodeNormallySmallLength(n uint64) error {
	if n >= 1 && n <= NORMALLY_SMALL_LIMIT {
		if err := e.codec.Write(1, 0); err != nil {
			return err
		}
		return e.codec.Write(6, n-1)
	}
	if err := e.codec.Write(1, 1); err != nil {
		return err
	}
	return e.EncodeUnconstrainedLength(n)
}

// EncodeConstrainedLength writes the extension bit of an extensible size
// constraint, then the length determinant. A length outside an extensible
// constraint is written unconstrained.
func (e *Encoder) EncodeConstrainedLength(n uint64, lb *uint64, ub *uint64, extensible bool) error {
	if extensible {
		outside := (lb != nil && n < *lb) || (ub != nil && n > *ub)
		if err := e.codec.WriteBit(outside); err != nil {
			return err
		}
		if outside {
			return e.EncodeUnconstrainedLength(n)
		}
	}
	if lb != nil && ub != nil && *lb == *ub {
		return nil
	}
	return e.EncodeLengthDeterminant(n, lb, ub)
}

// 18.7 / 18.8 Extension addition presence bitmap: a normally small length
// followed by one bit per extension addition.

func (e *Encoder) EncodeExtensionBitmap(present []bool) error {
	if err := e.EncodeNormallySmallLength(uint64(len(present))); err != nil {
		return err
	}
	for _, bit := range present {
		if err := e.codec.WriteBit(bit); err != nil {
			return err
		}
	}
	return nil
}

// 11.2 Open type fields
// |- 11.2.1 ... the value shall be encoded as specified for the type, producing a complete
// |  |  encoding (at least one octet), which is then added to the field-list as an octet
// |  |  string preceded by an unconstrained length determinant.

func (e *Encoder) EncodeOpenType(fn func(*Encoder) error) error {
	sub := NewEncoder(e.aligned)
	if err := fn(sub); err != nil {
		return err
	}
	return e.EncodeOpenTypeRaw(sub.CompleteEncoding())
}

// EncodeOpenTypeRaw writes an already complete open type encoding.
func (e *Encoder) EncodeOpenTypeRaw(data []byte) error {
	if len(data) == 0 {
		data = []byte{0x00}
	}
	if err := e.EncodeUnconstrainedLength(uint64(len(data))); err != nil {
		return err
	}
	return e.codec.WriteBlock(data)
}

// 12 Encoding the boolean type
// |- 12.1 The bit shall be set to 1 for TRUE and 0 for FALSE.

func (e *Encoder) EncodeBoolean(value bool) error {
	return e.codec.WriteBit(value)
}

// 13 Encoding the integer type
// |- 13.1 If an extension marker is present in the constraint specification of the integer
// |  |  type, then a single bit shall be added to the field-list in a bit-field of length one.
// |  |  The bit shall be set to 1 if the value is not within the range of the extension root,
// |  |  and zero otherwise. In the former case, the value shall be added to the field-list as
// |  |  an unconstrained integer value.
// |- 13.2.1 If PER-visible constraints restrict the integer value to a single value, then
// |  |  there shall be no addition to the field-list.
// |- 13.2.5 If PER-visible constraints restrict the type with finite lower and upper bounds,
// |  |  the value is a constrained whole number; with only a lower bound it is a
// |  |  semi-constrained whole number; otherwise it is an unconstrained whole number.

func (e *Encoder) EncodeInteger(value int64, lb *int64, ub *int64, extensible bool) error {
	if extensible {
		extended := (lb != nil && value < *lb) || (ub != nil && value > *ub)
		if err := e.codec.WriteBit(extended); err != nil {
			return err
		}
		if extended {
			return e.EncodeUnconstrainedWholeNumber(value)
		}
	}

	switch {
	case lb != nil && ub != nil:
		return e.EncodeConstrainedWholeNumber(*lb, *ub, value)
	case lb != nil:
		return e.EncodeSemiConstrainedWholeNumber(*lb, value)
	default:
		return e.EncodeUnconstrainedWholeNumber(value)
	}
}

// 14 Encoding the enumerated type
// |- 14.2 If the extension marker is absent in the definition of the enumerated type, then
// |  |  the enumeration index shall be encoded as a constrained integer with lower bound 0
// |  |  and upper bound the largest enumeration index.
// |- 14.3 If the extension marker is present, then a single bit shall be added, set to 1 if
// |  |  the value is not within the extension root. In that case the value is added as a
// |  |  normally small non-negative whole number whose value is the index of the additional
// |  |  enumeration.
//
// count is the number of root enumerations.

func (e *Encoder) EncodeEnumerated(value uint64, count uint64, extensible bool) error {
	if extensible {
		if value >= count {
			if err := e.codec.Write(1, 1); err != nil {
				return err
			}
			return e.EncodeNormallySmallNonNegativeWholeNumber(value - count)
		}
		if err := e.codec.Write(1, 0); err != nil {
			return err
		}
	}
	if count == 0 {
		return nil
	}
	return e.EncodeConstrainedWholeNumber(0, int64(count-1), int64(value))
}

// 16 Encoding the bitstring type
// |- 16.9 If the bitstring is constrained to be of fixed length less than or equal to
// |  |  sixteen bits, it shall not be octet-aligned.
// |- 16.10 If the bitstring is constrained to be of fixed length greater than sixteen bits
// |  |  but less than 64K bits, it shall be octet-aligned.
// |- 16.11 Otherwise the bits are preceded by a length determinant.
//
// Contents longer than sixteen bits always start on an octet boundary;
// shorter contents after a length determinant are aligned in the ALIGNED
// variant only.

func (e *Encoder) EncodeBitString(data []byte, count uint64, lb *uint64, ub *uint64, extensible bool) error {
	fixed := lb != nil && ub != nil && *lb == *ub && *ub < MAX_CONSTRAINED_LENGTH
	if extensible {
		outside := (lb != nil && count < *lb) || (ub != nil && count > *ub)
		if err := e.codec.WriteBit(outside); err != nil {
			return err
		}
		if outside {
			fixed = false
			lb, ub = nil, nil
		}
	}
	if fixed {
		count = *ub
		if count == 0 {
			return nil
		}
		if count > 16 {
			if err := e.codec.Align(); err != nil {
				return err
			}
		}
		return e.EncodeBits(data, count)
	}

	if err := e.EncodeLengthDeterminant(count, lb, ub); err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	if count > 16 || e.aligned {
		if err := e.codec.Align(); err != nil {
			return err
		}
	}
	return e.EncodeBits(data, count)
}

// 17 Encoding the octetstring type
// |- 17.6 If the octet string is constrained to be of fixed length less than or equal to
// |  |  two octets, it shall not be octet-aligned.
// |- 17.7 If the octet string is constrained to be of fixed length greater than two octets
// |  |  but less than 64K, it shall be octet-aligned.
// |- 17.8 Otherwise the octets are preceded by a length determinant.

func (e *Encoder) EncodeOctetString(value []byte, lb *uint64, ub *uint64, extensible bool) error {
	count := uint64(len(value))
	fixed := lb != nil && ub != nil && *lb == *ub && *ub < MAX_CONSTRAINED_LENGTH
	if extensible {
		outside := (lb != nil && count < *lb) || (ub != nil && count > *ub)
		if err := e.codec.WriteBit(outside); err != nil {
			return err
		}
		if outside {
			fixed = false
			lb, ub = nil, nil
		}
	}
	if fixed {
		switch {
		case count == 0:
			return nil
		case count <= 2:
			return e.codec.WriteBytes(value)
		default:
			return e.codec.WriteBlock(value)
		}
	}

	if err := e.EncodeLengthDeterminant(count, lb, ub); err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	return e.codec.WriteBlock(value)
}

// 30 Encoding the restricted character string types
// |- 30.5.7 Each character is encoded in "b" bits, where "b" is the number of bits per
// |  |  character determined from the effective permitted alphabet.
//
// codes holds the per-character values already mapped through the
// permitted alphabet. Strings that may exceed sixteen bits are aligned in
// the ALIGNED variant; eight-bit characters are then written as a block.

func (e *Encoder) EncodeCharacterString(codes []uint32, nbits uint8, lb *uint64, ub *uint64, extensible bool) error {
	count := uint64(len(codes))
	if err := e.EncodeConstrainedLength(count, lb, ub, extensible); err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	if ub == nil || *ub*uint64(nbits) > 16 {
		if nbits == 8 {
			block := make([]byte, len(codes))
			for i, code := range codes {
				block[i] = byte(code)
			}
			return e.codec.WriteBlock(block)
		}
		if err := e.alignIfAligned(); err != nil {
			return err
		}
	}
	for _, code := range codes {
		if err := e.codec.Write(nbits, uint64(code)); err != nil {
			return err
		}
	}
	return nil
}

// EncodeNull appends nothing.
func (e *Encoder) EncodeNull() error {
	return nil
}
