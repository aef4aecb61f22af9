// Package ber implements the X.690 Basic Encoding Rules tag-length-value
// stream used by the value nodes.
package ber

import (
	"errors"
	"io"
	"math/bits"

	"github.com/rs/zerolog"

	"github.com/thebagchi/asner/lib/asn"
	"github.com/thebagchi/asner/lib/bitbuffer"
	"github.com/thebagchi/asner/lib/tpkt"
)

const (
	// Largest length accepted in the short form.
	MaxShortFormLength = 127
	// First identifier octet value announcing the high-tag-number form.
	HighTagNumber = 0x1F
	// Bit 6 of the identifier octet.
	ConstructedBit = 0x20
	// High bit of the first length octet.
	LongFormBit = 0x80
	// Number of length octets accepted in the long form.
	MaxLengthOctets = 4
)

var ErrNegativeLength = errors.New("ber: negative length")

// Encoder writes BER octets into a growable buffer.
type Encoder struct {
	codec *bitbuffer.Codec
}

func NewEncoder() *Encoder {
	return &Encoder{codec: bitbuffer.CreateWriter()}
}

// SetLogger routes octet-level trace output to logger.
func (e *Encoder) SetLogger(logger zerolog.Logger) {
	e.codec.SetLogger(logger)
}

// Bytes returns the encoded octets.
func (e *Encoder) Bytes() []byte {
	return e.codec.Bytes()
}

// Len returns the number of octets written.
func (e *Encoder) Len() int {
	return int(e.codec.NumWritten() / 8)
}

// Truncate discards every octet written after the first n.
func (e *Encoder) Truncate(n int) {
	e.codec.Truncate(n)
}

// WriteToChannel writes the encoding to w. BER is self delimiting so no
// framing is added.
func (e *Encoder) WriteToChannel(w io.Writer) error {
	data := e.Bytes()
	if len(data) == 0 {
		return nil
	}
	_, err := w.Write(data)
	return err
}

// WriteFramed writes the encoding to w inside one TPKT frame.
func (e *Encoder) WriteFramed(w io.Writer) error {
	return tpkt.WriteFrame(w, e.Bytes())
}

// 8.1.2 Identifier octets
// |- 8.1.2.3 For tags with a number ranging from zero to 30 (inclusive), the identifier
// |  octets shall comprise a single octet.
// |- 8.1.2.4 For tags with a number greater than or equal to 31, the identifier shall
// |  comprise a leading octet followed by one or more subsequent octets. Bits 7 to 1 of
// |  the subsequent octets encode the number, bit 8 is set to one unless it is the last.

func (e *Encoder) EncodeIdentifier(tag asn.Tag, constructed bool) error {
	lead := byte(tag.Class)
	if constructed {
		lead |= ConstructedBit
	}
	if tag.Number < HighTagNumber {
		return e.codec.WriteByte(lead | byte(tag.Number))
	}
	if err := e.codec.WriteByte(lead | HighTagNumber); err != nil {
		return err
	}
	return e.writeBase128(uint64(tag.Number))
}

func (e *Encoder) writeBase128(value uint64) error {
	var tmp [10]byte
	return e.codec.WriteBytes(appendBase128(tmp[:0], value))
}

// 8.1.3 Length octets
// |- 8.1.3.4 In the short form, the length octets shall consist of a single octet in
// |  which bit 8 is zero and bits 7 to 1 encode the number of octets in the contents.
// |- 8.1.3.5 In the long form, the initial octet carries the number of subsequent
// |  length octets with bit 8 set to one.

func (e *Encoder) EncodeLength(length int) error {
	if length < 0 {
		return ErrNegativeLength
	}
	if length <= MaxShortFormLength {
		return e.codec.WriteByte(byte(length))
	}
	n := LengthLength(length) - 1
	if err := e.codec.WriteByte(byte(LongFormBit | n)); err != nil {
		return err
	}
	for i := n - 1; i >= 0; i-- {
		if err := e.codec.WriteByte(byte(length >> (uint(i) * 8))); err != nil {
			return err
		}
	}
	return nil
}

// EncodeHeader writes the identifier and length octets of one TLV.
func (e *Encoder) EncodeHeader(tag asn.Tag, constructed bool, length int) error {
	if err := e.EncodeIdentifier(tag, constructed); err != nil {
		return err
	}
	return e.EncodeLength(length)
}

func (e *Encoder) EncodeByte(b byte) error {
	return e.codec.WriteByte(b)
}

func (e *Encoder) EncodeBlock(data []byte) error {
	return e.codec.WriteBlock(data)
}

// 8.3.2 If the contents octets of an integer value encoding consist of more than
// one octet, then the bits of the first octet and bit 8 of the second octet shall
// not all be ones and shall not all be zero.

func (e *Encoder) EncodeIntegerContent(value int64) error {
	n := IntegerLength(value)
	for i := n - 1; i >= 0; i-- {
		if err := e.codec.WriteByte(byte(value >> (uint(i) * 8))); err != nil {
			return err
		}
	}
	return nil
}

// EncodeObjectIdentifierContent writes the contents octets of an OBJECT
// IDENTIFIER with the given arcs.
func (e *Encoder) EncodeObjectIdentifierContent(arcs []uint64) error {
	content, err := ObjectIdentifierContent(arcs)
	if err != nil {
		return err
	}
	return e.codec.WriteBlock(content)
}

// IntegerLength returns the number of octets in the minimal two's
// complement form of value.
func IntegerLength(value int64) int {
	var n int
	if value < 0 {
		n = 64 - bits.LeadingZeros64(uint64(^value))
	} else {
		n = 64 - bits.LeadingZeros64(uint64(value))
	}
	// one sign bit
	return n/8 + 1
}

// IdentifierLength returns the number of identifier octets for tag.
func IdentifierLength(tag asn.Tag) int {
	if tag.Number < HighTagNumber {
		return 1
	}
	return 1 + base128Length(uint64(tag.Number))
}

// LengthLength returns the number of length octets for length.
func LengthLength(length int) int {
	if length <= MaxShortFormLength {
		return 1
	}
	return 1 + (bits.Len64(uint64(length))+7)/8
}

// HeaderLength returns the size of the identifier and length octets of a TLV
// carrying length content octets.
func HeaderLength(tag asn.Tag, length int) int {
	return IdentifierLength(tag) + LengthLength(length)
}

func base128Length(value uint64) int {
	if value == 0 {
		return 1
	}
	return (bits.Len64(value) + 6) / 7
}
