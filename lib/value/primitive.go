package value

import (
	"cmp"
	"fmt"
	"strconv"

	"github.com/thebagchi/asner/lib/asn"
	"github.com/thebagchi/asner/lib/ber"
	"github.com/thebagchi/asner/lib/per"
)

// Null is the NULL type.
type Null struct {
	base
}

func NewNull(opts ...Option) *Null {
	return &Null{base: newBase(asn.Universal(asn.TagNull), opts)}
}

func (n *Null) DataLength() int                { return 0 }
func (n *Null) EncodeBER(e *ber.Encoder) error { return nil }
func (n *Null) EncodePER(e *per.Encoder) error { return e.EncodeNull() }
func (n *Null) DecodePER(d *per.Decoder) error { return d.DecodeNull() }
func (n *Null) String() string                 { return "NULL" }

func (n *Null) DecodeBER(d *ber.Decoder, length int) error {
	return checkLength(d, "NULL", length, 0)
}

func (n *Null) Compare(other Value) int {
	if _, ok := other.(*Null); ok {
		return 0
	}
	return kindOrder(n, other)
}

// Boolean is the BOOLEAN type.
type Boolean struct {
	base
	value bool
}

func NewBoolean(opts ...Option) *Boolean {
	return &Boolean{base: newBase(asn.Universal(asn.TagBoolean), opts)}
}

func (b *Boolean) Value() bool         { return b.value }
func (b *Boolean) SetValue(value bool) { b.value = value }
func (b *Boolean) DataLength() int     { return 1 }

// 8.2.2 If the boolean value is FALSE the octet shall be zero. If the boolean value
// is TRUE the octet shall have any non-zero value, as a sender's option.

func (b *Boolean) EncodeBER(e *ber.Encoder) error {
	if b.value {
		return e.EncodeByte(0xFF)
	}
	return e.EncodeByte(0x00)
}

func (b *Boolean) DecodeBER(d *ber.Decoder, length int) error {
	if err := checkLength(d, "BOOLEAN", length, 1); err != nil {
		return err
	}
	octet, err := d.DecodeByte()
	if err != nil {
		return err
	}
	b.value = octet != 0
	return nil
}

func (b *Boolean) EncodePER(e *per.Encoder) error {
	return e.EncodeBoolean(b.value)
}

func (b *Boolean) DecodePER(d *per.Decoder) (err error) {
	b.value, err = d.DecodeBoolean()
	return err
}

func (b *Boolean) Compare(other Value) int {
	if o, ok := other.(*Boolean); ok {
		return compareBool(b.value, o.value)
	}
	return kindOrder(b, other)
}

func (b *Boolean) String() string {
	if b.value {
		return "TRUE"
	}
	return "FALSE"
}

// Integer is the INTEGER type. A fixed constraint clamps the value on
// encode; an extendable one sends values outside the root unconstrained.
type Integer struct {
	base
	value int64
}

func NewInteger(opts ...Option) *Integer {
	return &Integer{base: newBase(asn.Universal(asn.TagInteger), opts)}
}

func (i *Integer) Value() int64         { return i.value }
func (i *Integer) SetValue(value int64) { i.value = value }

// SetConstraint replaces the value constraint.
func (i *Integer) SetConstraint(c asn.Constraint) {
	i.constraint = c
}

// IsUnsigned reports whether the constraint rules out negative values.
func (i *Integer) IsUnsigned() bool {
	return i.constraint.HasLower() && i.constraint.Lower >= 0
}

// encoded returns the value that goes on the wire.
func (i *Integer) encoded() int64 {
	if i.constraint.IsExtendable() {
		return i.value
	}
	return i.constraint.Clamp(i.value)
}

func (i *Integer) DataLength() int {
	return ber.IntegerLength(i.encoded())
}

func (i *Integer) EncodeBER(e *ber.Encoder) error {
	return e.EncodeIntegerContent(i.encoded())
}

func (i *Integer) DecodeBER(d *ber.Decoder, length int) (err error) {
	i.value, err = d.DecodeIntegerContent(length)
	return err
}

func (i *Integer) EncodePER(e *per.Encoder) error {
	lb, ub := i.constraint.Bounds()
	return e.EncodeInteger(i.encoded(), lb, ub, i.constraint.IsExtendable())
}

func (i *Integer) DecodePER(d *per.Decoder) (err error) {
	lb, ub := i.constraint.Bounds()
	i.value, err = d.DecodeInteger(lb, ub, i.constraint.IsExtendable())
	return err
}

func (i *Integer) Compare(other Value) int {
	if o, ok := other.(*Integer); ok {
		return cmp.Compare(i.value, o.value)
	}
	return kindOrder(i, other)
}

func (i *Integer) String() string {
	return strconv.FormatInt(i.value, 10)
}

// Enumeration is the ENUMERATED type. Ordinals 0..max form the root;
// larger ordinals are extension additions and need an extensible type.
type Enumeration struct {
	base
	value      uint64
	max        uint64
	extensible bool
	names      []string
}

// NewEnumeration creates an enumeration with root ordinals 0..last.
func NewEnumeration(last uint64, extensible bool, opts ...Option) *Enumeration {
	c := asn.Range(0, int64(last))
	if extensible {
		c = asn.ExtendableRange(0, int64(last))
	}
	return &Enumeration{
		base:       newBase(asn.Universal(asn.TagEnumerated), append([]Option{WithConstraint(c)}, opts...)),
		max:        last,
		extensible: extensible,
	}
}

func (n *Enumeration) Value() uint64         { return n.value }
func (n *Enumeration) SetValue(value uint64) { n.value = value }
func (n *Enumeration) Max() uint64           { return n.max }
func (n *Enumeration) IsExtensible() bool    { return n.extensible }

// SetNames attaches labels used by String. They never reach the wire.
func (n *Enumeration) SetNames(names ...string) {
	n.names = names
}

// Name returns the label of the current ordinal, or "" if it has none.
func (n *Enumeration) Name() string {
	if n.value < uint64(len(n.names)) {
		return n.names[n.value]
	}
	return ""
}

func (n *Enumeration) encoded() uint64 {
	if !n.extensible && n.value > n.max {
		return n.max
	}
	return n.value
}

func (n *Enumeration) DataLength() int {
	return ber.IntegerLength(int64(n.encoded()))
}

func (n *Enumeration) EncodeBER(e *ber.Encoder) error {
	return e.EncodeIntegerContent(int64(n.encoded()))
}

func (n *Enumeration) DecodeBER(d *ber.Decoder, length int) error {
	value, err := d.DecodeIntegerContent(length)
	if err != nil {
		return err
	}
	if value < 0 {
		return asn.NewDecodeError(d.Position(), fmt.Sprintf("negative enumeration %d", value), asn.ErrConstraintViolation)
	}
	n.value = uint64(value)
	return nil
}

func (n *Enumeration) EncodePER(e *per.Encoder) error {
	return e.EncodeEnumerated(n.encoded(), n.max+1, n.extensible)
}

func (n *Enumeration) DecodePER(d *per.Decoder) (err error) {
	n.value, err = d.DecodeEnumerated(n.max+1, n.extensible)
	return err
}

func (n *Enumeration) Compare(other Value) int {
	if o, ok := other.(*Enumeration); ok {
		return cmp.Compare(n.value, o.value)
	}
	return kindOrder(n, other)
}

func (n *Enumeration) String() string {
	if name := n.Name(); name != "" {
		return name
	}
	return strconv.FormatUint(n.value, 10)
}

// Real is the REAL type. It can hold a value but has no wire encoding.
type Real struct {
	base
	value float64
}

var errReal = fmt.Errorf("value: REAL encoding: %w", asn.ErrUnimplemented)

func NewReal(opts ...Option) *Real {
	return &Real{base: newBase(asn.Universal(asn.TagReal), opts)}
}

func (r *Real) Value() float64         { return r.value }
func (r *Real) SetValue(value float64) { r.value = value }
func (r *Real) DataLength() int        { return 0 }

func (r *Real) EncodeBER(e *ber.Encoder) error             { return errReal }
func (r *Real) DecodeBER(d *ber.Decoder, length int) error { return errReal }
func (r *Real) EncodePER(e *per.Encoder) error             { return errReal }
func (r *Real) DecodePER(d *per.Decoder) error             { return errReal }

func (r *Real) Compare(other Value) int {
	if o, ok := other.(*Real); ok {
		return cmp.Compare(r.value, o.value)
	}
	return kindOrder(r, other)
}

func (r *Real) String() string {
	return strconv.FormatFloat(r.value, 'g', -1, 64)
}
