package value

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/thebagchi/asner/lib/asn"
	"github.com/thebagchi/asner/lib/ber"
	"github.com/thebagchi/asner/lib/per"
)

// Unknown keeps the contents of an element no schema node claimed. It
// re-encodes to the same octets.
type Unknown struct {
	base
	constructed bool
	content     []byte
}

func NewUnknown(tag asn.Tag, constructed bool) *Unknown {
	return &Unknown{
		base:        base{tag: tag, constraint: asn.None()},
		constructed: constructed,
	}
}

func (u *Unknown) Constructed() bool { return u.constructed }
func (u *Unknown) Content() []byte   { return u.content }
func (u *Unknown) DataLength() int   { return len(u.content) }

func (u *Unknown) EncodeBER(e *ber.Encoder) error {
	return e.EncodeBlock(u.content)
}

func (u *Unknown) DecodeBER(d *ber.Decoder, length int) error {
	if err := d.Limits().CheckMessageSize(uint64(length)); err != nil {
		return err
	}
	content, err := d.DecodeBlock(length)
	if err != nil {
		return err
	}
	u.content = content
	return nil
}

// EncodePER writes the kept contents as an open type.
func (u *Unknown) EncodePER(e *per.Encoder) error {
	return e.EncodeOpenTypeRaw(u.content)
}

func (u *Unknown) DecodePER(d *per.Decoder) (err error) {
	u.content, err = d.DecodeOpenTypeRaw()
	return err
}

// Children decodes the contents of a constructed element into nodes chosen
// by DiscoverBER.
func (u *Unknown) Children(limits asn.Limits) ([]Value, error) {
	if !u.constructed {
		return nil, nil
	}
	d := ber.NewDecoder(u.content, limits)
	var children []Value
	for !d.IsAtEnd() {
		v, err := DecodeAnyBER(d)
		if err != nil {
			return children, err
		}
		if err := limits.CheckArraySize(uint64(len(children) + 1)); err != nil {
			return children, err
		}
		children = append(children, v)
	}
	return children, nil
}

func (u *Unknown) Compare(other Value) int {
	if o, ok := other.(*Unknown); ok {
		if c := compareTags(u.tag, o.tag); c != 0 {
			return c
		}
		return bytes.Compare(u.content, o.content)
	}
	return kindOrder(u, other)
}

func (u *Unknown) String() string {
	return fmt.Sprintf("%s %X", u.tag, u.content)
}

// DiscoverBER returns an empty node able to decode the element described
// by h. Universal primitive types map to their node; everything else is an
// Unknown.
func DiscoverBER(h ber.Header) Value {
	if h.Tag.Class == asn.ClassUniversal && !h.Constructed {
		switch h.Tag.Number {
		case asn.TagBoolean:
			return NewBoolean()
		case asn.TagInteger:
			return NewInteger()
		case asn.TagBitString:
			return NewBitString()
		case asn.TagOctetString:
			return NewOctetString()
		case asn.TagNull:
			return NewNull()
		case asn.TagObjectID:
			return NewObjectIdentifier()
		case asn.TagEnumerated:
			return NewEnumeration(0, true)
		case asn.TagNumericString:
			return NewNumericString()
		case asn.TagPrintableString:
			return NewPrintableString()
		case asn.TagIA5String:
			return NewIA5String()
		case asn.TagUTCTime:
			return NewUTCTime()
		case asn.TagGeneralizedTime:
			return NewGeneralizedTime()
		case asn.TagVisibleString:
			return NewVisibleString()
		case asn.TagGeneralString:
			return NewGeneralString()
		case asn.TagBMPString:
			return NewBMPString()
		}
	}
	return NewUnknown(h.Tag, h.Constructed)
}

// DecodeAnyBER decodes the next element without a schema.
func DecodeAnyBER(d *ber.Decoder) (Value, error) {
	h, err := d.PeekHeader()
	if err != nil {
		return nil, err
	}
	v := DiscoverBER(h)
	if err := ReadBER(d, v); err != nil {
		// contents a typed node rejects are still kept
		if _, ok := v.(*Unknown); ok {
			return nil, err
		}
		d.SetPosition(h.Offset)
		v = NewUnknown(h.Tag, h.Constructed)
		if err := ReadBER(d, v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Dump writes an indented tree of v, descending into constructed Unknown
// elements.
func Dump(v Value, limits asn.Limits) string {
	var sb strings.Builder
	dump(&sb, v, limits, 0)
	return sb.String()
}

func dump(sb *strings.Builder, v Value, limits asn.Limits, depth int) {
	indent := strings.Repeat("  ", depth)
	u, ok := v.(*Unknown)
	if !ok || !u.constructed {
		fmt.Fprintf(sb, "%s%s %s\n", indent, v.Tag(), v)
		return
	}
	fmt.Fprintf(sb, "%s%s {\n", indent, u.tag)
	children, err := u.Children(limits)
	for _, child := range children {
		dump(sb, child, limits, depth+1)
	}
	if err != nil {
		fmt.Fprintf(sb, "%s  <%v>\n", indent, err)
	}
	fmt.Fprintf(sb, "%s}\n", indent)
}
