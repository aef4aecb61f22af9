package value

import (
	"fmt"
	"strings"

	"github.com/thebagchi/asner/lib/asn"
	"github.com/thebagchi/asner/lib/ber"
	"github.com/thebagchi/asner/lib/per"
)

// Array is SEQUENCE OF / SET OF. The element constructor is called for
// every element added or decoded.
type Array struct {
	base
	newElem  func() Value
	elements []Value
}

func NewArray(newElem func() Value, opts ...Option) *Array {
	a := &Array{
		base:    newBase(asn.Universal(asn.TagSequence), opts),
		newElem: newElem,
	}
	a.SetSize(int(a.constraint.SizeLower()))
	return a
}

func (a *Array) Constructed() bool { return true }

func (a *Array) Len() int { return len(a.elements) }

func (a *Array) At(i int) Value { return a.elements[i] }

// SetSize grows or shrinks the array to n elements. New elements are
// fresh nodes.
func (a *Array) SetSize(n int) {
	if n < len(a.elements) {
		clear(a.elements[n:])
		a.elements = a.elements[:n]
		return
	}
	for len(a.elements) < n {
		a.elements = append(a.elements, a.newElem())
	}
}

// Append adds a fresh element and returns it.
func (a *Array) Append() Value {
	v := a.newElem()
	a.elements = append(a.elements, v)
	return v
}

// written returns the elements an encoding carries. Outside a
// non-extensible size constraint the run is cut short, or padded with
// fresh elements. The array itself is left as it is.
func (a *Array) written() []Value {
	if a.constraint.IsExtendable() {
		return a.elements
	}
	n := int(a.constraint.ClampSize(uint64(len(a.elements))))
	if n <= len(a.elements) {
		return a.elements[:n]
	}
	out := make([]Value, n)
	copy(out, a.elements)
	for i := len(a.elements); i < n; i++ {
		out[i] = a.newElem()
	}
	return out
}

// 20 Encoding the sequence-of type
// |- 20.6 The number of components is encoded as a constrained length determinant,
// |  |  omitted when the size is fixed, followed by the components in order.

func (a *Array) EncodePER(e *per.Encoder) error {
	elements := a.written()
	lb, ub := a.constraint.SizeBounds()
	if err := e.EncodeConstrainedLength(uint64(len(elements)), lb, ub, a.constraint.IsExtendable()); err != nil {
		return err
	}
	for i, v := range elements {
		if err := v.EncodePER(e); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	return nil
}

func (a *Array) DecodePER(d *per.Decoder) error {
	lb, ub := a.constraint.SizeBounds()
	n, err := d.DecodeArraySize(lb, ub, a.constraint.IsExtendable())
	if err != nil {
		return err
	}
	a.elements = nil
	for i := uint64(0); i < n; i++ {
		v := a.Append()
		if err := v.DecodePER(d); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	return nil
}

func (a *Array) DataLength() int {
	n := 0
	for _, v := range a.written() {
		n += ElementLength(v)
	}
	return n
}

func (a *Array) EncodeBER(e *ber.Encoder) error {
	for i, v := range a.written() {
		if err := WriteBER(e, v); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	return nil
}

func (a *Array) DecodeBER(d *ber.Decoder, length int) error {
	end := d.Position() + length
	a.elements = nil
	for d.Position() < end {
		if err := d.Limits().CheckArraySize(uint64(len(a.elements) + 1)); err != nil {
			return err
		}
		v := a.Append()
		if err := ReadBER(d, v); err != nil {
			return fmt.Errorf("[%d]: %w", len(a.elements)-1, err)
		}
	}
	return nil
}

func (a *Array) Compare(other Value) int {
	o, ok := other.(*Array)
	if !ok {
		return kindOrder(a, other)
	}
	for i := 0; i < min(len(a.elements), len(o.elements)); i++ {
		if c := a.elements[i].Compare(o.elements[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a.elements) < len(o.elements):
		return -1
	case len(a.elements) > len(o.elements):
		return 1
	}
	return 0
}

func (a *Array) String() string {
	parts := make([]string, len(a.elements))
	for i, v := range a.elements {
		parts[i] = v.String()
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}
