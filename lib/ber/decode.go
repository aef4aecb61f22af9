package ber

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/thebagchi/asner/lib/asn"
	"github.com/thebagchi/asner/lib/bitbuffer"
)

// Header is a decoded identifier and length.
type Header struct {
	Tag         asn.Tag
	Constructed bool
	Length      int
	// Offset of the identifier octet and the number of header octets.
	Offset int
	Size   int
}

// End returns the offset just past the contents octets.
func (h Header) End() int {
	return h.Offset + h.Size + h.Length
}

func (h Header) String() string {
	form := "primitive"
	if h.Constructed {
		form = "constructed"
	}
	return fmt.Sprintf("%s %s length=%d", h.Tag, form, h.Length)
}

// Decoder reads BER octets from a byte slice.
type Decoder struct {
	codec  *bitbuffer.Codec
	limits asn.Limits
	logger zerolog.Logger
}

// NewDecoder creates a decoder over data. The data is not copied.
func NewDecoder(data []byte, limits asn.Limits) *Decoder {
	return &Decoder{
		codec:  bitbuffer.CreateReader(data),
		limits: limits,
		logger: zerolog.Nop(),
	}
}

func (d *Decoder) Limits() asn.Limits      { return d.limits }
func (d *Decoder) Logger() *zerolog.Logger { return &d.logger }

func (d *Decoder) SetLogger(logger zerolog.Logger) {
	d.logger = logger
	d.codec.SetLogger(logger)
}

func (d *Decoder) Position() int {
	return d.codec.Position()
}

// SetPosition moves the cursor to byte pos, which is how callers rewind
// after a failed branch.
func (d *Decoder) SetPosition(pos int) {
	d.codec.SetPosition(pos)
}

// Remaining returns the number of unread octets.
func (d *Decoder) Remaining() int {
	return int(d.codec.BitsRemaining() / 8)
}

func (d *Decoder) IsAtEnd() bool {
	return d.codec.IsAtEnd()
}

// DecodeHeader reads one identifier and length. On failure the cursor is
// left where it was.
func (d *Decoder) DecodeHeader() (Header, error) {
	start := d.Position()
	h, err := d.decodeHeader()
	if err != nil {
		d.SetPosition(start)
		return Header{}, err
	}
	return h, nil
}

// PeekHeader decodes the next header without consuming it.
func (d *Decoder) PeekHeader() (Header, error) {
	start := d.Position()
	h, err := d.decodeHeader()
	d.SetPosition(start)
	return h, err
}

// DecodeHeaderFor reads the next header and checks it carries tag. On a
// mismatch the cursor is rewound and a *asn.TagMismatchError is returned.
func (d *Decoder) DecodeHeaderFor(tag asn.Tag) (Header, error) {
	h, err := d.DecodeHeader()
	if err != nil {
		return Header{}, err
	}
	if h.Tag != tag {
		d.SetPosition(h.Offset)
		return Header{}, asn.NewTagMismatchError(h.Offset, tag, h.Tag)
	}
	return h, nil
}

func (d *Decoder) decodeHeader() (Header, error) {
	h := Header{Offset: d.Position()}
	lead, err := d.codec.ReadByte()
	if err != nil {
		return Header{}, asn.NewDecodeError(h.Offset, "identifier", err)
	}
	h.Tag.Class = asn.Class(lead & 0xC0)
	h.Constructed = lead&ConstructedBit != 0
	h.Tag.Number = uint32(lead & HighTagNumber)
	if h.Tag.Number == HighTagNumber {
		number, err := d.readTagNumber()
		if err != nil {
			return Header{}, asn.NewDecodeError(h.Offset, "tag number", err)
		}
		h.Tag.Number = number
	}
	if h.Length, err = d.readLength(); err != nil {
		return Header{}, asn.NewDecodeError(h.Offset, "length", err)
	}
	h.Size = d.Position() - h.Offset
	if h.Length > d.Remaining() {
		return Header{}, asn.NewDecodeError(h.Offset, fmt.Sprintf("length %d exceeds %d remaining", h.Length, d.Remaining()), asn.ErrTruncated)
	}
	if d.logger.GetLevel() <= zerolog.TraceLevel {
		d.logger.Trace().Int("offset", h.Offset).Stringer("header", h).Msg("ber header")
	}
	return h, nil
}

func (d *Decoder) readTagNumber() (uint32, error) {
	var value uint64
	for i := 0; ; i++ {
		b, err := d.codec.ReadByte()
		if err != nil {
			return 0, err
		}
		if i == 0 && b == 0x80 {
			return 0, asn.ErrInvalidEncoding
		}
		value = value<<7 | uint64(b&0x7F)
		if value > 0xFFFFFFFF {
			return 0, fmt.Errorf("tag number overflow: %w", asn.ErrInvalidEncoding)
		}
		if b&0x80 == 0 {
			return uint32(value), nil
		}
	}
}

// 8.1.3.6 For the indefinite form, the length octets indicate that the contents
// octets are terminated by end-of-contents octets, and shall consist of a single
// octet with bit 8 set to one and bits 7 to 1 set to zero.

func (d *Decoder) readLength() (int, error) {
	first, err := d.codec.ReadByte()
	if err != nil {
		return 0, err
	}
	if first&LongFormBit == 0 {
		return int(first), nil
	}
	n := int(first &^ LongFormBit)
	switch {
	case n == 0:
		return 0, fmt.Errorf("indefinite length: %w", asn.ErrUnimplemented)
	case n == 0x7F:
		return 0, fmt.Errorf("reserved length octet: %w", asn.ErrInvalidEncoding)
	case n > MaxLengthOctets:
		return 0, fmt.Errorf("%d length octets: %w", n, asn.ErrConstraintViolation)
	}
	length := 0
	for rangeIdx := 0; rangeIdx < n; rangeIdx++ {
		b, err := d.codec.ReadByte()
		if err != nil {
			return 0, err
		}
		length = length<<8 | int(b)
	}
	return length, nil
}

// DecodeRaw reads one complete TLV and returns a copy of its octets,
// header included, exactly as they appear in the input.
func (d *Decoder) DecodeRaw() (Header, []byte, error) {
	h, err := d.DecodeHeader()
	if err != nil {
		return Header{}, nil, err
	}
	raw := make([]byte, h.End()-h.Offset)
	copy(raw, d.codec.Buff[h.Offset:h.End()])
	d.SetPosition(h.End())
	return h, raw, nil
}

func (d *Decoder) DecodeByte() (byte, error) {
	return d.codec.ReadByte()
}

// DecodeBlock reads n contents octets.
func (d *Decoder) DecodeBlock(n int) ([]byte, error) {
	if n < 0 || n > d.Remaining() {
		return nil, asn.NewDecodeError(d.Position(), fmt.Sprintf("block of %d octets", n), asn.ErrTruncated)
	}
	return d.codec.ReadBlock(n)
}

// Skip moves past n octets.
func (d *Decoder) Skip(n int) error {
	if n < 0 || n > d.Remaining() {
		return asn.NewDecodeError(d.Position(), fmt.Sprintf("skip %d octets", n), asn.ErrTruncated)
	}
	d.SetPosition(d.Position() + n)
	return nil
}

// DecodeIntegerContent reads a two's complement integer of length octets.
func (d *Decoder) DecodeIntegerContent(length int) (int64, error) {
	if length < 1 || length > 8 {
		return 0, asn.NewDecodeError(d.Position(), fmt.Sprintf("integer of %d octets", length), asn.ErrInvalidEncoding)
	}
	data, err := d.DecodeBlock(length)
	if err != nil {
		return 0, err
	}
	var value int64
	if data[0]&0x80 != 0 {
		value = -1
	}
	for _, b := range data {
		value = value<<8 | int64(b)
	}
	return value, nil
}

// ReadFromChannel reads exactly one TLV from r and returns a decoder over
// it. The declared length is checked against limits before the contents are
// allocated.
func ReadFromChannel(r io.Reader, limits asn.Limits) (*Decoder, error) {
	var one [1]byte
	head := make([]byte, 0, 16)
	next := func() (byte, error) {
		if _, err := io.ReadFull(r, one[:]); err != nil {
			if len(head) > 0 && errors.Is(err, io.EOF) {
				return 0, fmt.Errorf("ber: read header: %w", asn.ErrTruncated)
			}
			return 0, err
		}
		head = append(head, one[0])
		return one[0], nil
	}

	lead, err := next()
	if err != nil {
		return nil, err
	}
	if lead&HighTagNumber == HighTagNumber {
		for {
			b, err := next()
			if err != nil {
				return nil, err
			}
			if b&0x80 == 0 {
				break
			}
			if len(head) > 6 {
				return nil, fmt.Errorf("ber: tag number overflow: %w", asn.ErrInvalidEncoding)
			}
		}
	}
	first, err := next()
	if err != nil {
		return nil, err
	}
	length := int(first)
	if first&LongFormBit != 0 {
		n := int(first &^ LongFormBit)
		switch {
		case n == 0:
			return nil, fmt.Errorf("ber: indefinite length: %w", asn.ErrUnimplemented)
		case n > MaxLengthOctets:
			return nil, fmt.Errorf("ber: %d length octets: %w", n, asn.ErrConstraintViolation)
		}
		length = 0
		for rangeIdx := 0; rangeIdx < n; rangeIdx++ {
			b, err := next()
			if err != nil {
				return nil, err
			}
			length = length<<8 | int(b)
		}
	}
	if err := limits.CheckMessageSize(uint64(len(head) + length)); err != nil {
		return nil, err
	}
	data := make([]byte, len(head)+length)
	copy(data, head)
	if _, err := io.ReadFull(r, data[len(head):]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("ber: read contents: %w", asn.ErrTruncated)
		}
		return nil, err
	}
	return NewDecoder(data, limits), nil
}
