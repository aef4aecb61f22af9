package value

import (
	"bytes"
	"cmp"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/thebagchi/asner/lib/asn"
	"github.com/thebagchi/asner/lib/ber"
	"github.com/thebagchi/asner/lib/per"
)

// BitString is the BIT STRING type. The backing slice always holds
// (size+7)/8 bytes and bits past size are zero.
type BitString struct {
	base
	size uint64
	data []byte
}

func NewBitString(opts ...Option) *BitString {
	b := &BitString{base: newBase(asn.Universal(asn.TagBitString), opts)}
	b.SetSize(b.constraint.SizeLower())
	return b
}

func (b *BitString) Size() uint64 { return b.size }

// Bytes returns the backing bytes, most significant bit first.
func (b *BitString) Bytes() []byte { return b.data }

// SetSize resizes to n bits. New bits are zero.
func (b *BitString) SetSize(n uint64) {
	b.data = resizeBits(b.data, b.size, n)
	b.size = n
}

// SetValue copies the first n bits of data.
func (b *BitString) SetValue(data []byte, n uint64) {
	b.data = resizeBits(data, min(n, uint64(len(data))*8), n)
	b.size = n
}

// SetConstraint replaces the size constraint and resizes a fixed-size
// value onto it.
func (b *BitString) SetConstraint(c asn.Constraint) {
	b.constraint = c
	if !c.IsExtendable() {
		b.SetSize(c.ClampSize(b.size))
	}
}

// Bit reports bit i; bits past the end read as zero.
func (b *BitString) Bit(i uint64) bool {
	if i >= b.size {
		return false
	}
	return b.data[i/8]&(0x80>>(i%8)) != 0
}

// Set sets bit i, growing the string if needed.
func (b *BitString) Set(i uint64) {
	if i >= b.size {
		b.SetSize(i + 1)
	}
	b.data[i/8] |= 0x80 >> (i % 8)
}

// Clear clears bit i.
func (b *BitString) Clear(i uint64) {
	if i < b.size {
		b.data[i/8] &^= 0x80 >> (i % 8)
	}
}

// resizeBits returns a fresh slice of (n+7)/8 bytes holding the first
// min(have, n) bits of data.
func resizeBits(data []byte, have, n uint64) []byte {
	out := make([]byte, (n+7)/8)
	keep := min(have, n)
	copy(out, data[:min(uint64(len(data)), (keep+7)/8)])
	if rest := keep % 8; rest != 0 {
		out[keep/8] &= 0xFF << (8 - rest)
	}
	return out
}

// wire returns the bit count and bytes to encode, clamped onto a fixed
// size constraint.
func (b *BitString) wire() (uint64, []byte) {
	if b.constraint.IsExtendable() {
		return b.size, b.data
	}
	n := b.constraint.ClampSize(b.size)
	if n == b.size {
		return b.size, b.data
	}
	return n, resizeBits(b.data, b.size, n)
}

// 8.6.2 The contents octets for the primitive encoding shall contain an initial octet
// followed by zero, one or more subsequent octets. The initial octet shall encode, as
// an unsigned binary integer with bit 1 as the least significant bit, the number of
// unused bits in the final subsequent octet. The number shall be in the range zero to
// seven.

func (b *BitString) DataLength() int {
	n, _ := b.wire()
	return 1 + int((n+7)/8)
}

func (b *BitString) EncodeBER(e *ber.Encoder) error {
	n, data := b.wire()
	if err := e.EncodeByte(byte((8 - n%8) % 8)); err != nil {
		return err
	}
	return e.EncodeBlock(data)
}

func (b *BitString) DecodeBER(d *ber.Decoder, length int) error {
	if length < 1 {
		return asn.NewDecodeError(d.Position(), "empty BIT STRING", asn.ErrInvalidEncoding)
	}
	if err := d.Limits().CheckStringSize(uint64(length - 1)); err != nil {
		return err
	}
	unused, err := d.DecodeByte()
	if err != nil {
		return err
	}
	if unused > 7 || (length == 1 && unused != 0) {
		return asn.NewDecodeError(d.Position()-1, fmt.Sprintf("%d unused bits", unused), asn.ErrInvalidEncoding)
	}
	data, err := d.DecodeBlock(length - 1)
	if err != nil {
		return err
	}
	n := uint64(length-1)*8 - uint64(unused)
	b.data = resizeBits(data, n, n)
	b.size = n
	return nil
}

func (b *BitString) EncodePER(e *per.Encoder) error {
	n, data := b.wire()
	lb, ub := b.constraint.SizeBounds()
	return e.EncodeBitString(data, n, lb, ub, b.constraint.IsExtendable())
}

func (b *BitString) DecodePER(d *per.Decoder) error {
	lb, ub := b.constraint.SizeBounds()
	data, n, err := d.DecodeBitString(lb, ub, b.constraint.IsExtendable())
	if err != nil {
		return err
	}
	b.data = resizeBits(data, n, n)
	b.size = n
	return nil
}

func (b *BitString) Compare(other Value) int {
	if o, ok := other.(*BitString); ok {
		if c := cmp.Compare(b.size, o.size); c != 0 {
			return c
		}
		return bytes.Compare(b.data, o.data)
	}
	return kindOrder(b, other)
}

func (b *BitString) String() string {
	if b.size%8 == 0 {
		return "'" + strings.ToUpper(hex.EncodeToString(b.data)) + "'H"
	}
	var sb strings.Builder
	sb.WriteByte('\'')
	for i := uint64(0); i < b.size; i++ {
		if b.Bit(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	sb.WriteString("'B")
	return sb.String()
}

// OctetString is the OCTET STRING type.
type OctetString struct {
	base
	data []byte
}

func NewOctetString(opts ...Option) *OctetString {
	o := &OctetString{base: newBase(asn.Universal(asn.TagOctetString), opts)}
	o.data = make([]byte, o.constraint.SizeLower())
	return o
}

func (o *OctetString) Value() []byte { return o.data }

func (o *OctetString) SetValue(data []byte) {
	o.data = bytes.Clone(data)
	if o.data == nil {
		o.data = []byte{}
	}
}

func (o *OctetString) Len() int { return len(o.data) }

// SetConstraint replaces the size constraint, truncating or zero padding
// the value onto a fixed one.
func (o *OctetString) SetConstraint(c asn.Constraint) {
	o.constraint = c
	o.data = o.wire()
}

func (o *OctetString) wire() []byte {
	if o.constraint.IsExtendable() {
		return o.data
	}
	n := o.constraint.ClampSize(uint64(len(o.data)))
	if n == uint64(len(o.data)) {
		return o.data
	}
	out := make([]byte, n)
	copy(out, o.data)
	return out
}

func (o *OctetString) DataLength() int {
	return len(o.wire())
}

func (o *OctetString) EncodeBER(e *ber.Encoder) error {
	return e.EncodeBlock(o.wire())
}

func (o *OctetString) DecodeBER(d *ber.Decoder, length int) error {
	if err := d.Limits().CheckStringSize(uint64(length)); err != nil {
		return err
	}
	data, err := d.DecodeBlock(length)
	if err != nil {
		return err
	}
	o.data = data
	return nil
}

func (o *OctetString) EncodePER(e *per.Encoder) error {
	lb, ub := o.constraint.SizeBounds()
	return e.EncodeOctetString(o.wire(), lb, ub, o.constraint.IsExtendable())
}

func (o *OctetString) DecodePER(d *per.Decoder) error {
	lb, ub := o.constraint.SizeBounds()
	data, err := d.DecodeOctetString(lb, ub, o.constraint.IsExtendable())
	if err != nil {
		return err
	}
	o.data = data
	return nil
}

func (o *OctetString) Compare(other Value) int {
	if x, ok := other.(*OctetString); ok {
		return bytes.Compare(o.data, x.data)
	}
	return kindOrder(o, other)
}

func (o *OctetString) String() string {
	return "'" + strings.ToUpper(hex.EncodeToString(o.data)) + "'H"
}
