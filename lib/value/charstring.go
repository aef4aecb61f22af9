package value

import (
	"fmt"
	"math/bits"
	"slices"
	"strconv"
	"strings"

	"github.com/thebagchi/asner/lib/asn"
	"github.com/thebagchi/asner/lib/ber"
	"github.com/thebagchi/asner/lib/per"
)

// charset is a sorted list of permitted character codes.
type charset []uint32

func charsetOf(s string) charset {
	set := make(charset, 0, len(s))
	for _, r := range s {
		set = append(set, uint32(r))
	}
	slices.Sort(set)
	return slices.Compact(set)
}

func charsetRange(first, last uint32) charset {
	set := make(charset, 0, last-first+1)
	for c := first; c <= last; c++ {
		set = append(set, c)
	}
	return set
}

var (
	numericCharset   = charsetOf(" 0123456789")
	printableCharset = charsetOf("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789 '()+,-./:=?")
	visibleCharset   = charsetRange(0x20, 0x7E)
	ia5Charset       = charsetRange(0x00, 0x7F)
	generalCharset   = charsetRange(0x00, 0xFF)
)

func (s charset) contains(c uint32) bool {
	_, ok := slices.BinarySearch(s, c)
	return ok
}

func (s charset) index(c uint32) (uint32, bool) {
	i, ok := slices.BinarySearch(s, c)
	return uint32(i), ok
}

// 30.5.2 Let "N" be the number of characters in the effective permitted alphabet.
// Let "B" be the smallest integer such that 2 to the power B is greater than or
// equal to "N". Let "B2" be the smallest power of 2 that is greater than or equal to
// "B". Then in the ALIGNED variant, "b" shall be "B2", and in the UNALIGNED
// variant, "b" shall be "B".
// 30.5.4 If "ub" is less than or equal to 2 to the power b minus 1, the value of
// each character is used directly; otherwise the index of the character in the
// sorted alphabet is used.

// quantum returns the bits per character and whether characters are sent as
// their own value rather than as an index.
func (s charset) quantum(aligned bool) (uint8, bool) {
	n := uint8(1)
	if len(s) > 1 {
		n = uint8(bits.Len(uint(len(s) - 1)))
	}
	if aligned {
		n = uint8(1) << bits.Len8(n-1)
	}
	raw := n >= 32 || uint64(s[len(s)-1]) < uint64(1)<<n
	return n, raw
}

func (s charset) encodeCodes(chars []uint32, aligned bool) ([]uint32, uint8) {
	nbits, raw := s.quantum(aligned)
	codes := make([]uint32, len(chars))
	for i, c := range chars {
		if raw {
			codes[i] = c
		} else {
			codes[i], _ = s.index(c)
		}
	}
	return codes, nbits
}

func (s charset) decodeCodes(codes []uint32, aligned bool) ([]uint32, error) {
	_, raw := s.quantum(aligned)
	chars := make([]uint32, len(codes))
	for i, code := range codes {
		switch {
		case raw && s.contains(code):
			chars[i] = code
		case !raw && code < uint32(len(s)):
			chars[i] = s[code]
		default:
			return nil, fmt.Errorf("value: character code %d outside the permitted alphabet: %w", code, asn.ErrInvalidEncoding)
		}
	}
	return chars, nil
}

// CharString is a restricted character string with octet sized characters:
// NumericString, PrintableString, VisibleString, IA5String and
// GeneralString. The working set is the canonical set of the type narrowed
// by SetCharacterSet and is never empty.
type CharString struct {
	base
	canonical charset
	working   charset
	value     string
}

func newCharString(tag uint32, canonical charset, opts []Option) *CharString {
	c := &CharString{
		base:      newBase(asn.Universal(tag), opts),
		canonical: canonical,
		working:   canonical,
	}
	c.apply()
	return c
}

func NewNumericString(opts ...Option) *CharString {
	return newCharString(asn.TagNumericString, numericCharset, opts)
}

func NewPrintableString(opts ...Option) *CharString {
	return newCharString(asn.TagPrintableString, printableCharset, opts)
}

func NewVisibleString(opts ...Option) *CharString {
	return newCharString(asn.TagVisibleString, visibleCharset, opts)
}

func NewIA5String(opts ...Option) *CharString {
	return newCharString(asn.TagIA5String, ia5Charset, opts)
}

func NewGeneralString(opts ...Option) *CharString {
	return newCharString(asn.TagGeneralString, generalCharset, opts)
}

func (c *CharString) charString() *CharString { return c }

func (c *CharString) Value() string { return c.value }

// SetValue stores s after dropping characters outside the working set and
// fitting it to a fixed size constraint.
func (c *CharString) SetValue(s string) {
	c.value = s
	c.apply()
}

// SetCharacterSet narrows the working set to the characters of allowed
// that the type permits. The current value is refiltered.
func (c *CharString) SetCharacterSet(allowed string) error {
	working := slices.DeleteFunc(charsetOf(allowed), func(code uint32) bool {
		return !c.canonical.contains(code)
	})
	if len(working) == 0 {
		return fmt.Errorf("value: empty character set %q: %w", allowed, asn.ErrConstraintViolation)
	}
	c.working = working
	c.apply()
	return nil
}

// CharacterSet returns the working set.
func (c *CharString) CharacterSet() string {
	var sb strings.Builder
	for _, code := range c.working {
		sb.WriteByte(byte(code))
	}
	return sb.String()
}

// SetConstraint replaces the size constraint; the value is refitted.
func (c *CharString) SetConstraint(constraint asn.Constraint) {
	c.constraint = constraint
	c.apply()
}

func (c *CharString) apply() {
	out := make([]byte, 0, len(c.value))
	for i := 0; i < len(c.value); i++ {
		if c.working.contains(uint32(c.value[i])) {
			out = append(out, c.value[i])
		}
	}
	if !c.constraint.IsExtendable() {
		n := c.constraint.ClampSize(uint64(len(out)))
		for uint64(len(out)) < n {
			out = append(out, byte(c.working[0]))
		}
		out = out[:n]
	}
	c.value = string(out)
}

func (c *CharString) chars() []uint32 {
	chars := make([]uint32, len(c.value))
	for i := 0; i < len(c.value); i++ {
		chars[i] = uint32(c.value[i])
	}
	return chars
}

func (c *CharString) DataLength() int {
	return len(c.value)
}

func (c *CharString) EncodeBER(e *ber.Encoder) error {
	return e.EncodeBlock([]byte(c.value))
}

func (c *CharString) DecodeBER(d *ber.Decoder, length int) error {
	if err := d.Limits().CheckStringSize(uint64(length)); err != nil {
		return err
	}
	data, err := d.DecodeBlock(length)
	if err != nil {
		return err
	}
	for i, b := range data {
		if !c.working.contains(uint32(b)) {
			return asn.NewDecodeError(d.Position()-length+i, fmt.Sprintf("character %q", b), asn.ErrConstraintViolation)
		}
	}
	c.value = string(data)
	return nil
}

func (c *CharString) EncodePER(e *per.Encoder) error {
	codes, nbits := c.working.encodeCodes(c.chars(), e.Aligned())
	lb, ub := c.constraint.SizeBounds()
	return e.EncodeCharacterString(codes, nbits, lb, ub, c.constraint.IsExtendable())
}

func (c *CharString) DecodePER(d *per.Decoder) error {
	nbits, _ := c.working.quantum(d.Aligned())
	lb, ub := c.constraint.SizeBounds()
	codes, err := d.DecodeCharacterString(nbits, lb, ub, c.constraint.IsExtendable())
	if err != nil {
		return err
	}
	chars, err := c.working.decodeCodes(codes, d.Aligned())
	if err != nil {
		return err
	}
	out := make([]byte, len(chars))
	for i, ch := range chars {
		out[i] = byte(ch)
	}
	c.value = string(out)
	return nil
}

func (c *CharString) Compare(other Value) int {
	if o, ok := other.(interface{ charString() *CharString }); ok && o.charString().tag == c.tag {
		return strings.Compare(c.value, o.charString().value)
	}
	return kindOrder(c, other)
}

func (c *CharString) String() string {
	return strconv.Quote(c.value)
}
