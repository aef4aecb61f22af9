package value

import (
	"fmt"
	"math/bits"
	"slices"
	"strconv"
	"unicode/utf16"

	"github.com/thebagchi/asner/lib/asn"
	"github.com/thebagchi/asner/lib/ber"
	"github.com/thebagchi/asner/lib/per"
)

// BMPString holds 16-bit code units. The permitted alphabet is either an
// explicit table or the range first..last.
type BMPString struct {
	base
	first, last uint16
	table       charset
	units       []uint16
}

func NewBMPString(opts ...Option) *BMPString {
	s := &BMPString{
		base: newBase(asn.Universal(asn.TagBMPString), opts),
		last: 0xFFFF,
	}
	s.apply()
	return s
}

// SetCharacterSet restricts the alphabet to the runes of allowed. An empty
// table goes back to the range form.
func (s *BMPString) SetCharacterSet(allowed string) error {
	var table charset
	for _, r := range allowed {
		if r > 0xFFFF {
			return fmt.Errorf("value: rune %U outside the BMP: %w", r, asn.ErrConstraintViolation)
		}
		table = append(table, uint32(r))
	}
	slices.Sort(table)
	s.table = slices.Compact(table)
	s.apply()
	return nil
}

// SetCharacterRange restricts the alphabet to first..last.
func (s *BMPString) SetCharacterRange(first, last uint16) error {
	if first > last {
		return fmt.Errorf("value: character range %#x..%#x: %w", first, last, asn.ErrConstraintViolation)
	}
	s.first, s.last = first, last
	s.table = nil
	s.apply()
	return nil
}

// SetConstraint replaces the size constraint; the value is refitted.
func (s *BMPString) SetConstraint(c asn.Constraint) {
	s.constraint = c
	s.apply()
}

// SetValue stores the UTF-16 form of v, dropping characters outside the
// alphabet.
func (s *BMPString) SetValue(v string) {
	s.units = utf16.Encode([]rune(v))
	s.apply()
}

func (s *BMPString) Units() []uint16 { return s.units }

func (s *BMPString) Runes() []rune {
	return utf16.Decode(s.units)
}

func (s *BMPString) Value() string {
	return string(s.Runes())
}

func (s *BMPString) permits(u uint16) bool {
	if s.table != nil {
		return s.table.contains(uint32(u))
	}
	return u >= s.first && u <= s.last
}

func (s *BMPString) apply() {
	out := slices.DeleteFunc(s.units, func(u uint16) bool { return !s.permits(u) })
	if !s.constraint.IsExtendable() {
		n := s.constraint.ClampSize(uint64(len(out)))
		pad := s.first
		if s.table != nil {
			pad = uint16(s.table[0])
		}
		for uint64(len(out)) < n {
			out = append(out, pad)
		}
		out = out[:n]
	}
	s.units = out
}

// quantum follows the charset rule; a range alphabet indexes from first.
func (s *BMPString) quantum(aligned bool) (uint8, bool) {
	if s.table != nil {
		return s.table.quantum(aligned)
	}
	count := uint64(s.last-s.first) + 1
	n := uint8(1)
	if count > 1 {
		n = uint8(bits.Len64(count - 1))
	}
	if aligned {
		n = uint8(1) << bits.Len8(n-1)
	}
	return n, uint64(s.last) < uint64(1)<<n
}

func (s *BMPString) DataLength() int {
	return 2 * len(s.units)
}

func (s *BMPString) EncodeBER(e *ber.Encoder) error {
	out := make([]byte, 0, 2*len(s.units))
	for _, u := range s.units {
		out = append(out, byte(u>>8), byte(u))
	}
	return e.EncodeBlock(out)
}

func (s *BMPString) DecodeBER(d *ber.Decoder, length int) error {
	if length%2 != 0 {
		return asn.NewDecodeError(d.Position(), fmt.Sprintf("BMPString of %d octets", length), asn.ErrInvalidEncoding)
	}
	if err := d.Limits().CheckStringSize(uint64(length)); err != nil {
		return err
	}
	data, err := d.DecodeBlock(length)
	if err != nil {
		return err
	}
	units := make([]uint16, length/2)
	for i := range units {
		units[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
		if !s.permits(units[i]) {
			return asn.NewDecodeError(d.Position()-length+2*i, fmt.Sprintf("character %#04x", units[i]), asn.ErrConstraintViolation)
		}
	}
	s.units = units
	return nil
}

func (s *BMPString) EncodePER(e *per.Encoder) error {
	nbits, raw := s.quantum(e.Aligned())
	codes := make([]uint32, len(s.units))
	for i, u := range s.units {
		switch {
		case raw:
			codes[i] = uint32(u)
		case s.table != nil:
			codes[i], _ = s.table.index(uint32(u))
		default:
			codes[i] = uint32(u - s.first)
		}
	}
	lb, ub := s.constraint.SizeBounds()
	return e.EncodeCharacterString(codes, nbits, lb, ub, s.constraint.IsExtendable())
}

func (s *BMPString) DecodePER(d *per.Decoder) error {
	nbits, raw := s.quantum(d.Aligned())
	lb, ub := s.constraint.SizeBounds()
	codes, err := d.DecodeCharacterString(nbits, lb, ub, s.constraint.IsExtendable())
	if err != nil {
		return err
	}
	units := make([]uint16, len(codes))
	for i, code := range codes {
		switch {
		case raw:
			units[i] = uint16(code)
		case s.table != nil && code < uint32(len(s.table)):
			units[i] = uint16(s.table[code])
		case s.table == nil:
			units[i] = s.first + uint16(code)
		default:
			return fmt.Errorf("value: BMP character index %d: %w", code, asn.ErrInvalidEncoding)
		}
		if !s.permits(units[i]) {
			return fmt.Errorf("value: BMP character %#04x: %w", units[i], asn.ErrInvalidEncoding)
		}
	}
	s.units = units
	return nil
}

func (s *BMPString) Compare(other Value) int {
	if o, ok := other.(*BMPString); ok {
		return slices.Compare(s.units, o.units)
	}
	return kindOrder(s, other)
}

func (s *BMPString) String() string {
	return strconv.Quote(s.Value())
}
