package value

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/thebagchi/asner/lib/asn"
	"github.com/thebagchi/asner/lib/ber"
	"github.com/thebagchi/asner/lib/per"
)

// ObjectIdentifier is the OBJECT IDENTIFIER type.
type ObjectIdentifier struct {
	base
	arcs []uint64
}

func NewObjectIdentifier(opts ...Option) *ObjectIdentifier {
	return &ObjectIdentifier{base: newBase(asn.Universal(asn.TagObjectID), opts)}
}

func (o *ObjectIdentifier) Arcs() []uint64 {
	return slices.Clone(o.arcs)
}

func (o *ObjectIdentifier) SetArcs(arcs ...uint64) {
	o.arcs = slices.Clone(arcs)
}

// SetString parses the dotted form, for example "1.2.840.113549".
func (o *ObjectIdentifier) SetString(s string) error {
	parts := strings.Split(s, ".")
	arcs := make([]uint64, 0, len(parts))
	for _, part := range parts {
		arc, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return fmt.Errorf("value: object identifier %q: %w", s, err)
		}
		arcs = append(arcs, arc)
	}
	if _, err := ber.ObjectIdentifierContent(arcs); err != nil {
		return err
	}
	o.arcs = arcs
	return nil
}

func (o *ObjectIdentifier) DataLength() int {
	content, err := ber.ObjectIdentifierContent(o.arcs)
	if err != nil {
		return 0
	}
	return len(content)
}

func (o *ObjectIdentifier) EncodeBER(e *ber.Encoder) error {
	return e.EncodeObjectIdentifierContent(o.arcs)
}

func (o *ObjectIdentifier) DecodeBER(d *ber.Decoder, length int) error {
	if err := d.Limits().CheckStringSize(uint64(length)); err != nil {
		return err
	}
	content, err := d.DecodeBlock(length)
	if err != nil {
		return err
	}
	arcs, err := ber.ParseObjectIdentifierContent(content)
	if err != nil {
		return err
	}
	o.arcs = arcs
	return nil
}

// 24 Encoding the object identifier type
// |- 24.1 The encoding of an object identifier type shall be the complete contents
// |  octets of the basic encoding, preceded by an unconstrained length determinant.

func (o *ObjectIdentifier) EncodePER(e *per.Encoder) error {
	content, err := ber.ObjectIdentifierContent(o.arcs)
	if err != nil {
		return err
	}
	return e.EncodeOctetString(content, nil, nil, false)
}

func (o *ObjectIdentifier) DecodePER(d *per.Decoder) error {
	content, err := d.DecodeOctetString(nil, nil, false)
	if err != nil {
		return err
	}
	arcs, err := ber.ParseObjectIdentifierContent(content)
	if err != nil {
		return err
	}
	o.arcs = arcs
	return nil
}

func (o *ObjectIdentifier) Compare(other Value) int {
	if x, ok := other.(*ObjectIdentifier); ok {
		return slices.Compare(o.arcs, x.arcs)
	}
	return kindOrder(o, other)
}

func (o *ObjectIdentifier) String() string {
	parts := make([]string, len(o.arcs))
	for i, arc := range o.arcs {
		parts[i] = strconv.FormatUint(arc, 10)
	}
	return strings.Join(parts, ".")
}
