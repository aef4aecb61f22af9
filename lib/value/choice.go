package value

import (
	"bytes"
	"fmt"

	"github.com/thebagchi/asner/lib/asn"
	"github.com/thebagchi/asner/lib/ber"
	"github.com/thebagchi/asner/lib/per"
)

// Alternative describes one arm of a CHOICE. New must return a fresh node
// carrying Tag.
type Alternative struct {
	Name string
	Tag  asn.Tag
	New  func() Value
}

// Choice is the CHOICE type. At most one alternative is live; selecting
// another drops the previous node before the new one is created.
//
// A Choice built without WithTag is untagged: its BER encoding is the TLV of
// the live alternative. With WithTag it becomes an explicit tag around it.
type Choice struct {
	base
	alternatives []Alternative
	root         int
	extensible   bool

	index int
	value Value
	// open holds the PER open type contents of an extension addition this
	// schema does not know.
	open []byte
}

// NewChoice creates a choice over the root alternatives followed by the
// extension additions. Additions imply an extensible type.
func NewChoice(root, additions []Alternative, extensible bool, opts ...Option) *Choice {
	b := base{constraint: asn.None()}
	for _, opt := range opts {
		opt(&b)
	}
	alternatives := make([]Alternative, 0, len(root)+len(additions))
	alternatives = append(alternatives, root...)
	alternatives = append(alternatives, additions...)
	return &Choice{
		base:         b,
		alternatives: alternatives,
		root:         len(root),
		extensible:   extensible || len(additions) > 0,
		index:        -1,
	}
}

func (c *Choice) untagged() bool    { return c.tag == asn.Tag{} }
func (c *Choice) Constructed() bool { return !c.untagged() }

// Index returns the selected alternative, or -1 when nothing is selected.
func (c *Choice) Index() int { return c.index }

// Value returns the live node, or nil for no selection or an unknown
// extension.
func (c *Choice) Value() Value { return c.value }

// Name returns the name of the selected alternative.
func (c *Choice) Name() string {
	if c.index >= 0 && c.index < len(c.alternatives) {
		return c.alternatives[c.index].Name
	}
	return ""
}

// IsExtension reports whether the selection is an extension addition.
func (c *Choice) IsExtension() bool {
	return c.index >= c.root
}

// IsOpenType reports whether the selection is an extension addition this
// schema does not know; its encoding is kept as received.
func (c *Choice) IsOpenType() bool {
	return c.index >= len(c.alternatives)
}

// OpenType returns the kept PER open type contents.
func (c *Choice) OpenType() []byte { return c.open }

// Set selects alternative index and returns its fresh node.
func (c *Choice) Set(index int) (Value, error) {
	if index < 0 || index >= len(c.alternatives) {
		return nil, fmt.Errorf("value: choice index %d of %d: %w", index, len(c.alternatives), asn.ErrConstraintViolation)
	}
	c.reset()
	c.index = index
	c.value = c.alternatives[index].New()
	return c.value, nil
}

// Select selects the alternative called name.
func (c *Choice) Select(name string) (Value, error) {
	for i, alt := range c.alternatives {
		if alt.Name == name {
			return c.Set(i)
		}
	}
	return nil, fmt.Errorf("value: choice has no alternative %q: %w", name, asn.ErrConstraintViolation)
}

// SetTag selects the alternative carrying tag.
func (c *Choice) SetTag(tag asn.Tag) (Value, error) {
	for i, alt := range c.alternatives {
		if alt.Tag == tag {
			return c.Set(i)
		}
	}
	return nil, fmt.Errorf("value: choice has no alternative %s: %w", tag, asn.ErrTagMismatch)
}

// SetOpenType selects extension addition index, which this schema does not
// know, with its PER open type contents.
func (c *Choice) SetOpenType(index int, data []byte) error {
	if !c.extensible || index < len(c.alternatives) {
		return fmt.Errorf("value: choice open type index %d: %w", index, asn.ErrConstraintViolation)
	}
	c.reset()
	c.index = index
	c.open = data
	return nil
}

func (c *Choice) reset() {
	c.index = -1
	c.value = nil
	c.open = nil
}

func (c *Choice) DataLength() int {
	if c.value == nil {
		return 0
	}
	return ElementLength(c.value)
}

func (c *Choice) EncodeBER(e *ber.Encoder) error {
	if c.value == nil {
		return errNoSelection
	}
	return WriteBER(e, c.value)
}

// DecodeBER reads the TLV of one alternative. An unknown tag in an
// extensible choice is kept as an Unknown node.
func (c *Choice) DecodeBER(d *ber.Decoder, length int) error {
	h, err := d.PeekHeader()
	if err != nil {
		return err
	}
	if h.End()-h.Offset > length {
		return asn.NewDecodeError(h.Offset, "choice alternative overruns its container", asn.ErrInvalidEncoding)
	}
	if _, err := c.SetTag(h.Tag); err != nil {
		if !c.extensible {
			return asn.NewTagMismatchError(h.Offset, c.tag, h.Tag)
		}
		unknown := NewUnknown(h.Tag, h.Constructed)
		if err := ReadBER(d, unknown); err != nil {
			return err
		}
		c.reset()
		c.index = len(c.alternatives)
		c.value = unknown
		return nil
	}
	return ReadBER(d, c.value)
}

// 23 Encoding the choice type
// |- 23.5 If the choice type is extensible, a single bit shall be added to the
// |  |  field-list, set to 1 if the chosen alternative is an extension addition.
// |- 23.6 If there is only one alternative in the extension root, no index is encoded.
// |- 23.7 The index of a root alternative is a constrained whole number 0..n-1.
// |- 23.8 The index of an extension addition is a normally small non-negative whole
// |  |  number and the value is encoded as an open type field.

func (c *Choice) EncodePER(e *per.Encoder) error {
	if c.index < 0 {
		return errNoSelection
	}
	if c.extensible {
		if err := e.EncodeSingleBit(c.IsExtension()); err != nil {
			return err
		}
	}
	if !c.IsExtension() {
		if c.root > 1 {
			if err := e.EncodeConstrainedWholeNumber(0, int64(c.root-1), int64(c.index)); err != nil {
				return err
			}
		}
		return c.value.EncodePER(e)
	}
	if err := e.EncodeNormallySmallNonNegativeWholeNumber(uint64(c.index - c.root)); err != nil {
		return err
	}
	if c.open != nil {
		return e.EncodeOpenTypeRaw(c.open)
	}
	if _, ok := c.value.(*Unknown); ok {
		return fmt.Errorf("value: choice alternative %s has no PER index: %w", c.value.Tag(), asn.ErrLogic)
	}
	return e.EncodeOpenType(c.value.EncodePER)
}

func (c *Choice) DecodePER(d *per.Decoder) error {
	extension := false
	if c.extensible {
		bit, err := d.DecodeSingleBit()
		if err != nil {
			return err
		}
		extension = bit
	}
	if !extension {
		if c.root == 0 {
			return fmt.Errorf("value: choice has no root alternatives: %w", asn.ErrInvalidEncoding)
		}
		index := int64(0)
		if c.root > 1 {
			var err error
			if index, err = d.DecodeConstrainedWholeNumber(0, int64(c.root-1)); err != nil {
				return err
			}
		}
		v, err := c.Set(int(index))
		if err != nil {
			return err
		}
		return v.DecodePER(d)
	}
	n, err := d.DecodeNormallySmallNonNegativeWholeNumber()
	if err != nil {
		return err
	}
	if err := d.Limits().CheckArraySize(n); err != nil {
		return err
	}
	index := c.root + int(n)
	if index < len(c.alternatives) {
		v, err := c.Set(index)
		if err != nil {
			return err
		}
		return d.DecodeOpenType(v.DecodePER)
	}
	data, err := d.DecodeOpenTypeRaw()
	if err != nil {
		return err
	}
	d.Logger().Debug().Int("index", index).Int("length", len(data)).Msg("unknown choice extension kept as open type")
	return c.SetOpenType(index, data)
}

func (c *Choice) Compare(other Value) int {
	o, ok := other.(*Choice)
	if !ok {
		return kindOrder(c, other)
	}
	if c.index != o.index {
		if c.index < o.index {
			return -1
		}
		return 1
	}
	switch {
	case c.value != nil && o.value != nil:
		return c.value.Compare(o.value)
	case c.open != nil || o.open != nil:
		return bytes.Compare(c.open, o.open)
	case c.value == nil && o.value == nil:
		return 0
	case c.value == nil:
		return -1
	default:
		return 1
	}
}

func (c *Choice) String() string {
	switch {
	case c.index < 0:
		return "<none>"
	case c.value == nil:
		return fmt.Sprintf("[%d] open %X", c.index, c.open)
	case c.IsOpenType():
		return c.value.String()
	default:
		return c.Name() + " : " + c.value.String()
	}
}
