package asn

import (
	"fmt"
	"math"
)

// ConstraintKind tells the codecs how a bound is applied.
type ConstraintKind uint8

const (
	// Unconstrained values carry no bounds.
	Unconstrained ConstraintKind = iota
	// FixedConstraint bounds are part of the type; nothing outside them is
	// ever encoded.
	FixedConstraint
	// ExtendableConstraint bounds are preceded on the PER wire by one bit
	// telling whether the value lies inside them.
	ExtendableConstraint
)

func (k ConstraintKind) String() string {
	switch k {
	case Unconstrained:
		return "Unconstrained"
	case FixedConstraint:
		return "Fixed"
	case ExtendableConstraint:
		return "Extendable"
	}
	return fmt.Sprintf("ConstraintKind(%d)", uint8(k))
}

const (
	// NoLowerBound marks a MIN lower bound.
	NoLowerBound int64 = math.MinInt64
	// NoUpperBound marks a MAX upper bound.
	NoUpperBound int64 = math.MaxInt64
)

// Constraint is a value range or a size range, depending on the node that
// owns it.
type Constraint struct {
	Kind  ConstraintKind
	Lower int64
	Upper int64
}

// None returns the unconstrained constraint.
func None() Constraint {
	return Constraint{Kind: Unconstrained, Lower: NoLowerBound, Upper: NoUpperBound}
}

// Range returns a fixed constraint lower..upper. Pass NoUpperBound for a
// semi-constrained range.
func Range(lower, upper int64) Constraint {
	return Constraint{Kind: FixedConstraint, Lower: lower, Upper: upper}
}

// ExtendableRange returns lower..upper with an extension marker.
func ExtendableRange(lower, upper int64) Constraint {
	return Constraint{Kind: ExtendableConstraint, Lower: lower, Upper: upper}
}

// Size returns a fixed size constraint; a negative lower bound is raised
// to zero.
func Size(lower, upper int64) Constraint {
	return Range(max(lower, 0), upper)
}

// FixedSize returns SIZE(n).
func FixedSize(n int64) Constraint {
	return Size(n, n)
}

func (c Constraint) IsConstrained() bool { return c.Kind != Unconstrained }
func (c Constraint) IsExtendable() bool  { return c.Kind == ExtendableConstraint }

// HasLower reports whether a finite lower bound applies.
func (c Constraint) HasLower() bool {
	return c.Kind != Unconstrained && c.Lower != NoLowerBound
}

// HasUpper reports whether a finite upper bound applies.
func (c Constraint) HasUpper() bool {
	return c.Kind != Unconstrained && c.Upper != NoUpperBound
}

// IsSingleValue reports whether the constraint admits exactly one value.
func (c Constraint) IsSingleValue() bool {
	return c.HasLower() && c.HasUpper() && c.Lower == c.Upper
}

// Contains reports whether v lies within the bounds.
func (c Constraint) Contains(v int64) bool {
	if c.HasLower() && v < c.Lower {
		return false
	}
	if c.HasUpper() && v > c.Upper {
		return false
	}
	return true
}

// Clamp moves v onto the nearest bound when it lies outside them.
func (c Constraint) Clamp(v int64) int64 {
	if c.HasLower() && v < c.Lower {
		return c.Lower
	}
	if c.HasUpper() && v > c.Upper {
		return c.Upper
	}
	return v
}

// Validate checks lower <= upper.
func (c Constraint) Validate() error {
	if c.Kind == Unconstrained {
		return nil
	}
	if c.Lower > c.Upper {
		return fmt.Errorf("%w: lower bound %d above upper bound %d",
			ErrConstraintViolation, c.Lower, c.Upper)
	}
	return nil
}

// SizeLower returns the lower size bound, zero when none applies.
func (c Constraint) SizeLower() uint64 {
	if !c.HasLower() || c.Lower < 0 {
		return 0
	}
	return uint64(c.Lower)
}

// SizeUpper returns the upper size bound and whether one applies.
func (c Constraint) SizeUpper() (uint64, bool) {
	if !c.HasUpper() || c.Upper < 0 {
		return 0, false
	}
	return uint64(c.Upper), true
}

// Bounds returns the value bounds in the optional-pointer form used by the
// PER primitives; a nil pointer means no bound.
func (c Constraint) Bounds() (lb, ub *int64) {
	if c.HasLower() {
		lower := c.Lower
		lb = &lower
	}
	if c.HasUpper() {
		upper := c.Upper
		ub = &upper
	}
	return lb, ub
}

// SizeBounds is Bounds for size constraints. The lower bound is always
// present and defaults to zero.
func (c Constraint) SizeBounds() (lb, ub *uint64) {
	lower := c.SizeLower()
	lb = &lower
	if upper, ok := c.SizeUpper(); ok {
		ub = &upper
	}
	return lb, ub
}

// ClampSize moves a length onto the size bounds.
func (c Constraint) ClampSize(n uint64) uint64 {
	if lb := c.SizeLower(); n < lb {
		return lb
	}
	if ub, ok := c.SizeUpper(); ok && n > ub {
		return ub
	}
	return n
}

func (c Constraint) String() string {
	if c.Kind == Unconstrained {
		return "()"
	}
	lower, upper := "MIN", "MAX"
	if c.HasLower() {
		lower = fmt.Sprint(c.Lower)
	}
	if c.HasUpper() {
		upper = fmt.Sprint(c.Upper)
	}
	if c.IsExtendable() {
		return fmt.Sprintf("(%s..%s, ...)", lower, upper)
	}
	return fmt.Sprintf("(%s..%s)", lower, upper)
}
