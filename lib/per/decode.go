package per

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/thebagchi/asner/lib/asn"
	"github.com/thebagchi/asner/lib/bitbuffer"
	"github.com/thebagchi/asner/lib/tpkt"
)

// Decoder represents a PER decoder
type Decoder struct {
	codec   *bitbuffer.Codec
	aligned bool
	limits  asn.Limits
	logger  zerolog.Logger
}

// NewDecoder creates a new PER decoder from encoded data
// aligned: true for APER, false for UPER
// limits: bounds applied to every length read from data
func NewDecoder(data []byte, aligned bool, limits asn.Limits) *Decoder {
	return &Decoder{
		codec:   bitbuffer.CreateReader(data),
		aligned: aligned,
		limits:  limits,
		logger:  zerolog.Nop(),
	}
}

// ReadFromChannel reads one TPKT frame from r and returns a decoder over
// its payload.
func ReadFromChannel(r io.Reader, aligned bool, limits asn.Limits) (*Decoder, error) {
	payload, err := tpkt.ReadFrame(r, limits)
	if err != nil {
		return nil, err
	}
	return NewDecoder(payload, aligned, limits), nil
}

func (d *Decoder) Aligned() bool           { return d.aligned }
func (d *Decoder) Limits() asn.Limits      { return d.limits }
func (d *Decoder) Logger() *zerolog.Logger { return &d.logger }

// SetLogger sets the logger used by value decoding and bit-level tracing.
func (d *Decoder) SetLogger(logger zerolog.Logger) {
	d.logger = logger
	d.codec.SetLogger(logger)
}

// Position returns the index of the byte holding the cursor.
func (d *Decoder) Position() int {
	return d.codec.Position()
}

// SetPosition moves the cursor to the start of byte pos.
func (d *Decoder) SetPosition(pos int) {
	d.codec.SetPosition(pos)
}

// BitsRemaining returns the number of unread bits.
func (d *Decoder) BitsRemaining() uint64 {
	return d.codec.BitsRemaining()
}

// IsAtEnd reports whether the input is exhausted.
func (d *Decoder) IsAtEnd() bool {
	return d.codec.IsAtEnd()
}

// Align skips to the next octet boundary in both variants.
func (d *Decoder) Align() error {
	return d.codec.Advance()
}

func (d *Decoder) alignIfAligned() error {
	if d.aligned {
		return d.codec.Advance()
	}
	return nil
}

// DecodeSingleBit reads one bit.
func (d *Decoder) DecodeSingleBit() (bool, error) {
	return d.codec.ReadBit()
}

// DecodeMultiBit reads an nbits wide unsigned field. nbits=0 reads nothing.
func (d *Decoder) DecodeMultiBit(nbits uint8) (uint64, error) {
	return d.codec.Read(nbits)
}

// DecodeBlock aligns to an octet boundary and reads n octets. n is
// checked against the remaining input before allocation.
func (d *Decoder) DecodeBlock(n uint64) ([]byte, error) {
	if err := d.codec.Advance(); err != nil {
		return nil, err
	}
	if n*8 > d.codec.BitsRemaining() {
		return nil, asn.ErrTruncated
	}
	return d.codec.ReadBytes(int(n))
}

// DecodeBits reads count bits into a left-aligned buffer of
// ceil(count/8) bytes. Trailing bits of the last byte are zero.
func (d *Decoder) DecodeBits(count uint64) ([]byte, error) {
	if count > d.codec.BitsRemaining() {
		return nil, asn.ErrTruncated
	}
	full := int(count / 8)
	data, err := d.codec.ReadBytes(full)
	if err != nil {
		return nil, err
	}
	if rest := uint8(count % 8); rest > 0 {
		v, err := d.codec.Read(rest)
		if err != nil {
			return nil, err
		}
		data = append(data, byte(v<<(8-rest)))
	}
	return data, nil
}

// DecodeConstrainedWholeNumber decodes a constrained whole number
// with lower bound lb and upper bound ub. A decoded value above ub is
// clamped to ub.
func (d *Decoder) DecodeConstrainedWholeNumber(lb, ub int64) (int64, error) {
	if lb == ub {
		return lb, nil
	}
	var (
		size  = rangeOf(lb, ub)
		nbits = BitsForRange(size)
		value uint64
		err   error
	)
	switch {
	case !d.aligned || (size != 0 && size <= 0xFF):
		value, err = d.codec.Read(nbits)
	case size != 0 && size <= 0x10000:
		if err = d.codec.Advance(); err != nil {
			return 0, err
		}
		if size == 0x100 {
			value, err = d.codec.Read(8)
		} else {
			value, err = d.codec.Read(16)
		}
	default:
		lbOctets, ubOctets := uint64(1), uint64(nbits+7)/8
		var octets uint64
		octets, err = d.DecodeLengthDeterminant(&lbOctets, &ubOctets)
		if err != nil {
			return 0, err
		}
		if err = d.codec.Advance(); err != nil {
			return 0, err
		}
		value, err = d.codec.Read(uint8(octets * 8))
	}
	if err != nil {
		return 0, err
	}
	if size != 0 && value >= size {
		return ub, nil
	}
	return int64(uint64(lb) + value), nil
}

// DecodeNormallySmallNonNegativeWholeNumber decodes 11.6.
func (d *Decoder) DecodeNormallySmallNonNegativeWholeNumber() (uint64, error) {
	bit, err := d.codec.Read(1)
	if err != nil {
		return 0, err
	}
	if bit == 0 {
		return d.codec.Read(6)
	}
	return d.decodeSemiConstrained()
}

// DecodeSemiConstrainedWholeNumber decodes 11.7 and returns n, not n-lb.
func (d *Decoder) DecodeSemiConstrainedWholeNumber(lb int64) (int64, error) {
	value, err := d.decodeSemiConstrained()
	if err != nil {
		return 0, err
	}
	return int64(uint64(lb) + value), nil
}

func (d *Decoder) decodeSemiConstrained() (uint64, error) {
	octets, err := d.DecodeUnconstrainedLength()
	if err != nil {
		return 0, err
	}
	if octets < 1 || octets > 8 {
		return 0, fmt.Errorf("%w: %d octet whole number", asn.ErrInvalidEncoding, octets)
	}
	return d.codec.Read(uint8(octets * 8))
}

// DecodeUnconstrainedWholeNumber decodes an unconstrained whole number.
// The value is a 2's-complement-binary-integer in the minimum number of
// octets, sign extended to 64 bits.
func (d *Decoder) DecodeUnconstrainedWholeNumber() (int64, error) {
	octets, err := d.DecodeUnconstrainedLength()
	if err != nil {
		return 0, err
	}
	if octets < 1 || octets > 8 {
		return 0, fmt.Errorf("%w: %d octet whole number", asn.ErrInvalidEncoding, octets)
	}
	value, err := d.codec.Read(uint8(octets * 8))
	if err != nil {
		return 0, err
	}
	shift := 64 - octets*8
	return int64(value<<shift) >> shift, nil
}

// DecodeLengthDeterminant decodes a length determinant.
// If ub is provided and ub < MAX_CONSTRAINED_LENGTH, the length is decoded
// as a constrained whole number. Otherwise it is decoded as an
// unconstrained length and checked against lb and ub.
func (d *Decoder) DecodeLengthDeterminant(lb, ub *uint64) (uint64, error) {
	if ub != nil && *ub < MAX_CONSTRAINED_LENGTH {
		lower := uint64(0)
		if lb != nil {
			lower = *lb
		}
		value, err := d.DecodeConstrainedWholeNumber(int64(lower), int64(*ub))
		if err != nil {
			return 0, err
		}
		return uint64(value), nil
	}
	n, err := d.DecodeUnconstrainedLength()
	if err != nil {
		return 0, err
	}
	if (lb != nil && n < *lb) || (ub != nil && n > *ub) {
		return 0, boundsError("length", n, lb, ub)
	}
	return n, nil
}

// DecodeUnconstrainedLength decodes the octet-aligned one or two octet
// length forms. The fragmented form is rejected.
func (d *Decoder) DecodeUnconstrainedLength() (uint64, error) {
	if err := d.codec.Advance(); err != nil {
		return 0, err
	}
	first, err := d.codec.Read(8)
	if err != nil {
		return 0, err
	}
	if first&0x80 == 0 {
		return first, nil
	}
	if first&0xC0 == 0x80 {
		second, err := d.codec.Read(8)
		if err != nil {
			return 0, err
		}
		return (first&0x3F)<<8 | second, nil
	}
	return 0, lengthError(uint64(first&0x3F) * FRAGMENT_SIZE)
}

// DecodeNormallySmallLength decodes a normally small length (1-64 inline).
func (d *Decoder) DecodeNormallySmallLength() (uint64, error) {
	bit, err := d.codec.Read(1)
	if err != nil {
		return 0, err
	}
	if bit == 0 {
		value, err := d.codec.Read(6)
		if err != nil {
			return 0, err
		}
		return value + 1, nil
	}
	return d.DecodeUnconstrainedLength()
}

// DecodeConstrainedLength reads the extension bit of an extensible size
// constraint, then the length determinant. A fixed size (lb == ub) inside
// the root returns lb without reading anything further.
func (d *Decoder) DecodeConstrainedLength(lb, ub *uint64, extensible bool) (uint64, error) {
	if extensible {
		outside, err := d.codec.ReadBit()
		if err != nil {
			return 0, err
		}
		if outside {
			return d.DecodeUnconstrainedLength()
		}
	}
	if lb != nil && ub != nil && *lb == *ub {
		return *lb, nil
	}
	return d.DecodeLengthDeterminant(lb, ub)
}

// DecodeArraySize decodes the element count of a SEQUENCE OF / SET OF and
// rejects counts above the decoder's MaxArraySize.
func (d *Decoder) DecodeArraySize(lb, ub *uint64, extensible bool) (uint64, error) {
	n, err := d.DecodeConstrainedLength(lb, ub, extensible)
	if err != nil {
		return 0, err
	}
	if err := d.limits.CheckArraySize(n); err != nil {
		return 0, err
	}
	return n, nil
}

// DecodeExtensionBitmap decodes the extension addition presence bitmap.
func (d *Decoder) DecodeExtensionBitmap() ([]bool, error) {
	n, err := d.DecodeNormallySmallLength()
	if err != nil {
		return nil, err
	}
	if err := d.limits.CheckArraySize(n); err != nil {
		return nil, err
	}
	if n > d.codec.BitsRemaining() {
		return nil, asn.ErrTruncated
	}
	present := make([]bool, n)
	for i := range present {
		if present[i], err = d.codec.ReadBit(); err != nil {
			return nil, err
		}
	}
	return present, nil
}

// DecodeOpenTypeRaw reads an open type field and returns its contents.
func (d *Decoder) DecodeOpenTypeRaw() ([]byte, error) {
	n, err := d.DecodeUnconstrainedLength()
	if err != nil {
		return nil, err
	}
	if err := d.limits.CheckMessageSize(n); err != nil {
		return nil, err
	}
	return d.DecodeBlock(n)
}

// DecodeOpenType reads an open type field and runs fn on a decoder over
// its contents. Bytes fn leaves unread are skipped.
func (d *Decoder) DecodeOpenType(fn func(*Decoder) error) error {
	data, err := d.DecodeOpenTypeRaw()
	if err != nil {
		return err
	}
	sub := NewDecoder(data, d.aligned, d.limits)
	sub.SetLogger(d.logger)
	return fn(sub)
}

// DecodeBoolean decodes one bit.
func (d *Decoder) DecodeBoolean() (bool, error) {
	return d.codec.ReadBit()
}

// DecodeInteger decodes an INTEGER with optional bounds (see EncodeInteger).
func (d *Decoder) DecodeInteger(lb *int64, ub *int64, extensible bool) (int64, error) {
	if extensible {
		extended, err := d.codec.ReadBit()
		if err != nil {
			return 0, err
		}
		if extended {
			return d.DecodeUnconstrainedWholeNumber()
		}
	}
	switch {
	case lb != nil && ub != nil:
		return d.DecodeConstrainedWholeNumber(*lb, *ub)
	case lb != nil:
		return d.DecodeSemiConstrainedWholeNumber(*lb)
	default:
		return d.DecodeUnconstrainedWholeNumber()
	}
}

// DecodeEnumerated decodes an enumeration index; extension additions are
// returned as count + addition index.
func (d *Decoder) DecodeEnumerated(count uint64, extensible bool) (uint64, error) {
	if extensible {
		extended, err := d.codec.ReadBit()
		if err != nil {
			return 0, err
		}
		if extended {
			index, err := d.DecodeNormallySmallNonNegativeWholeNumber()
			if err != nil {
				return 0, err
			}
			return count + index, nil
		}
	}
	if count == 0 {
		return 0, nil
	}
	value, err := d.DecodeConstrainedWholeNumber(0, int64(count-1))
	return uint64(value), err
}

// DecodeBitString decodes a BIT STRING and returns its bytes and bit count.
func (d *Decoder) DecodeBitString(lb *uint64, ub *uint64, extensible bool) ([]byte, uint64, error) {
	fixed := lb != nil && ub != nil && *lb == *ub && *ub < MAX_CONSTRAINED_LENGTH
	if extensible {
		outside, err := d.codec.ReadBit()
		if err != nil {
			return nil, 0, err
		}
		if outside {
			fixed = false
			lb, ub = nil, nil
		}
	}
	if fixed {
		count := *ub
		if count == 0 {
			return []byte{}, 0, nil
		}
		if err := d.limits.CheckStringSize((count + 7) / 8); err != nil {
			return nil, 0, err
		}
		if count > 16 {
			if err := d.codec.Advance(); err != nil {
				return nil, 0, err
			}
		}
		data, err := d.DecodeBits(count)
		return data, count, err
	}

	count, err := d.DecodeLengthDeterminant(lb, ub)
	if err != nil {
		return nil, 0, err
	}
	if count == 0 {
		return []byte{}, 0, nil
	}
	if err := d.limits.CheckStringSize((count + 7) / 8); err != nil {
		return nil, 0, err
	}
	if count > 16 || d.aligned {
		if err := d.codec.Advance(); err != nil {
			return nil, 0, err
		}
	}
	data, err := d.DecodeBits(count)
	return data, count, err
}

// DecodeOctetString decodes an OCTET STRING.
func (d *Decoder) DecodeOctetString(lb *uint64, ub *uint64, extensible bool) ([]byte, error) {
	fixed := lb != nil && ub != nil && *lb == *ub && *ub < MAX_CONSTRAINED_LENGTH
	if extensible {
		outside, err := d.codec.ReadBit()
		if err != nil {
			return nil, err
		}
		if outside {
			fixed = false
			lb, ub = nil, nil
		}
	}
	if fixed {
		count := *ub
		if err := d.limits.CheckStringSize(count); err != nil {
			return nil, err
		}
		switch {
		case count == 0:
			return []byte{}, nil
		case count <= 2:
			return d.codec.ReadBytes(int(count))
		default:
			return d.DecodeBlock(count)
		}
	}

	count, err := d.DecodeLengthDeterminant(lb, ub)
	if err != nil {
		return nil, err
	}
	if err := d.limits.CheckStringSize(count); err != nil {
		return nil, err
	}
	if count == 0 {
		return []byte{}, nil
	}
	return d.DecodeBlock(count)
}

// DecodeCharacterString decodes the character codes written by
// EncodeCharacterString.
func (d *Decoder) DecodeCharacterString(nbits uint8, lb *uint64, ub *uint64, extensible bool) ([]uint32, error) {
	count, err := d.DecodeConstrainedLength(lb, ub, extensible)
	if err != nil {
		return nil, err
	}
	if err := d.limits.CheckStringSize(count); err != nil {
		return nil, err
	}
	if count == 0 {
		return []uint32{}, nil
	}
	if ub == nil || *ub*uint64(nbits) > 16 {
		if nbits == 8 {
			block, err := d.DecodeBlock(count)
			if err != nil {
				return nil, err
			}
			codes := make([]uint32, count)
			for i, b := range block {
				codes[i] = uint32(b)
			}
			return codes, nil
		}
		if err := d.alignIfAligned(); err != nil {
			return nil, err
		}
	}
	if count*uint64(nbits) > d.codec.BitsRemaining() {
		return nil, asn.ErrTruncated
	}
	codes := make([]uint32, count)
	for i := range codes {
		code, err := d.codec.Read(nbits)
		if err != nil {
			return nil, err
		}
		codes[i] = uint32(code)
	}
	return codes, nil
}

// DecodeNull reads nothing.
func (d *Decoder) DecodeNull() error {
	return nil
}
