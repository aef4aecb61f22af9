// Package value holds the typed value nodes a schema is built from. Every
// node can encode and decode itself with the BER and PER streams.
package value

import (
	"cmp"
	"errors"
	"fmt"

	"github.com/thebagchi/asner/lib/asn"
	"github.com/thebagchi/asner/lib/ber"
	"github.com/thebagchi/asner/lib/per"
)

// Value is the capability set shared by all nodes.
type Value interface {
	Tag() asn.Tag
	Constraint() asn.Constraint
	Constructed() bool
	// DataLength returns the number of BER contents octets.
	DataLength() int
	// EncodeBER writes the contents octets. The header is written by
	// WriteBER.
	EncodeBER(e *ber.Encoder) error
	// DecodeBER reads length contents octets.
	DecodeBER(d *ber.Decoder, length int) error
	EncodePER(e *per.Encoder) error
	DecodePER(d *per.Decoder) error
	// Compare orders values of the same kind; values of different kinds
	// never compare equal.
	Compare(other Value) int
	String() string
}

// untagged is implemented by nodes that may contribute their own TLV
// instead of being wrapped in one, which is what an untagged CHOICE does.
type untagged interface {
	untagged() bool
}

func isUntagged(v Value) bool {
	u, ok := v.(untagged)
	return ok && u.untagged()
}

type base struct {
	tag        asn.Tag
	constraint asn.Constraint
}

func (b *base) Tag() asn.Tag               { return b.tag }
func (b *base) Constraint() asn.Constraint { return b.constraint }
func (b *base) Constructed() bool          { return false }

// Option overrides the defaults of a node at construction.
type Option func(*base)

// WithTag replaces the universal tag of a node, as an IMPLICIT tag does.
func WithTag(tag asn.Tag) Option {
	return func(b *base) {
		b.tag = tag
	}
}

// WithConstraint sets the value or size constraint of a node.
func WithConstraint(c asn.Constraint) Option {
	return func(b *base) {
		b.constraint = c
	}
}

func newBase(tag asn.Tag, opts []Option) base {
	b := base{tag: tag, constraint: asn.None()}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// ElementLength returns the size of the complete BER encoding of v.
func ElementLength(v Value) int {
	n := v.DataLength()
	if isUntagged(v) {
		return n
	}
	return ber.HeaderLength(v.Tag(), n) + n
}

// WriteBER writes v as a complete TLV. On error nothing of v is left in e.
func WriteBER(e *ber.Encoder, v Value) error {
	mark := e.Len()
	if !isUntagged(v) {
		if err := e.EncodeHeader(v.Tag(), v.Constructed(), v.DataLength()); err != nil {
			e.Truncate(mark)
			return err
		}
	}
	if err := v.EncodeBER(e); err != nil {
		e.Truncate(mark)
		return err
	}
	return nil
}

// ReadBER reads one TLV into v. If the next tag is not v's, the decoder is
// left where it was and the error matches asn.ErrTagMismatch.
func ReadBER(d *ber.Decoder, v Value) error {
	if isUntagged(v) {
		h, err := d.PeekHeader()
		if err != nil {
			return err
		}
		return v.DecodeBER(d, h.End()-d.Position())
	}
	h, err := d.DecodeHeaderFor(v.Tag())
	if err != nil {
		return err
	}
	if h.Constructed != v.Constructed() {
		d.SetPosition(h.Offset)
		if h.Constructed {
			return asn.NewDecodeError(h.Offset, "constructed "+h.Tag.String(), asn.ErrUnimplemented)
		}
		return asn.NewDecodeError(h.Offset, "primitive "+h.Tag.String(), asn.ErrInvalidEncoding)
	}
	end := d.Position() + h.Length
	if err := v.DecodeBER(d, h.Length); err != nil {
		return err
	}
	if d.Position() != end {
		return asn.NewDecodeError(h.Offset, fmt.Sprintf("%s left %d octets", h.Tag, end-d.Position()), asn.ErrInvalidEncoding)
	}
	return nil
}

// WritePER encodes v as the outermost value and returns the complete
// encoding.
func WritePER(aligned bool, v Value) ([]byte, error) {
	e := per.NewEncoder(aligned)
	if err := v.EncodePER(e); err != nil {
		return nil, err
	}
	return e.CompleteEncoding(), nil
}

// ReadPER decodes data into v.
func ReadPER(data []byte, aligned bool, limits asn.Limits, v Value) error {
	return v.DecodePER(per.NewDecoder(data, aligned, limits))
}

// Equal reports whether a and b hold the same value.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Compare(b) == 0
}

// kindOrder orders values of different kinds so that Compare stays total.
func kindOrder(a, b Value) int {
	if c := cmp.Compare(fmt.Sprintf("%T", a), fmt.Sprintf("%T", b)); c != 0 {
		return c
	}
	return compareTags(a.Tag(), b.Tag())
}

func compareTags(a, b asn.Tag) int {
	if c := cmp.Compare(a.Class, b.Class); c != 0 {
		return c
	}
	return cmp.Compare(a.Number, b.Number)
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// checkLength rejects a BER contents length that is not n.
func checkLength(d *ber.Decoder, what string, length, n int) error {
	if length != n {
		return asn.NewDecodeError(d.Position(), fmt.Sprintf("%s of %d octets", what, length), asn.ErrInvalidEncoding)
	}
	return nil
}

var errNoSelection = fmt.Errorf("value: choice has no selection: %w", asn.ErrLogic)

// isMismatchAt reports whether err is a tag mismatch found at offset,
// meaning nothing was consumed.
func isMismatchAt(err error, offset int) bool {
	var mismatch *asn.TagMismatchError
	return errors.As(err, &mismatch) && mismatch.Offset == offset
}
