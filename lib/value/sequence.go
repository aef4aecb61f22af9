package value

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/thebagchi/asner/lib/asn"
	"github.com/thebagchi/asner/lib/ber"
	"github.com/thebagchi/asner/lib/per"
)

// Field is one component of a SEQUENCE or SET. Extension additions are
// always optional.
type Field struct {
	Name      string
	Value     Value
	Optional  bool
	Extension bool
}

// UnknownExtension is an extension addition newer than this schema. Index
// is its position in the extension bitmap; Data is the PER open type
// contents or, after a BER decode, the complete TLV.
type UnknownExtension struct {
	Index int
	Data  []byte
}

// Sequence is the SEQUENCE and SET type.
//
// Root fields come first in the field list, extension additions after them
// in definition order. The optional bitmap has one entry per optional root
// field and never changes size.
type Sequence struct {
	base
	fields     []Field
	extensible bool
	set        bool

	present   []bool
	optionals []int // field indices, in bitmap order
	additions []int // field indices, in extension bitmap order

	unknown []UnknownExtension
	// extCount is the extension bitmap length last decoded, so a newer
	// encoding is written back with the same bitmap.
	extCount int

	// decode state
	hasExtensions bool
	extBitmap     []bool
}

func NewSequence(fields []Field, extensible bool, opts ...Option) *Sequence {
	return newSequence(asn.TagSequence, fields, extensible, opts)
}

// NewSet creates a SET. Its PER encoding uses the field order given, which
// must be the canonical tag order.
func NewSet(fields []Field, extensible bool, opts ...Option) *Sequence {
	s := newSequence(asn.TagSet, fields, extensible, opts)
	s.set = true
	return s
}

func newSequence(tag uint32, fields []Field, extensible bool, opts []Option) *Sequence {
	s := &Sequence{
		base:       newBase(asn.Universal(tag), opts),
		fields:     fields,
		extensible: extensible,
		present:    make([]bool, len(fields)),
	}
	for i, f := range fields {
		switch {
		case f.Extension:
			s.extensible = true
			s.additions = append(s.additions, i)
		case f.Optional:
			s.optionals = append(s.optionals, i)
		default:
			s.present[i] = true
		}
	}
	return s
}

func (s *Sequence) Constructed() bool { return true }

func (s *Sequence) NumFields() int { return len(s.fields) }

// Field returns the node of field i.
func (s *Sequence) Field(i int) Value {
	return s.fields[i].Value
}

// FieldByName returns the node of the named field, or nil.
func (s *Sequence) FieldByName(name string) Value {
	for _, f := range s.fields {
		if f.Name == name {
			return f.Value
		}
	}
	return nil
}

func (s *Sequence) isOptional(i int) bool {
	return s.fields[i].Optional || s.fields[i].Extension
}

// HasOptionalField reports whether field i is present. Mandatory fields
// are always present.
func (s *Sequence) HasOptionalField(i int) bool {
	return s.present[i]
}

// IncludeOptionalField marks optional field i present.
func (s *Sequence) IncludeOptionalField(i int) {
	s.present[i] = true
}

// RemoveOptionalField marks optional field i absent. Mandatory fields
// cannot be removed.
func (s *Sequence) RemoveOptionalField(i int) {
	if s.isOptional(i) {
		s.present[i] = false
	}
}

// UnknownExtensions returns the extension additions kept from the last
// decode.
func (s *Sequence) UnknownExtensions() []UnknownExtension {
	return s.unknown
}

// extensionCount returns the length of the extension bitmap to write.
func (s *Sequence) extensionCount() int {
	n := max(len(s.additions), s.extCount)
	for _, u := range s.unknown {
		n = max(n, u.Index+1)
	}
	return n
}

// extensionBitmap returns the presence bits for count extension slots.
func (s *Sequence) extensionBitmap(count int) []bool {
	bitmap := make([]bool, count)
	for slot, i := range s.additions {
		bitmap[slot] = s.present[i]
	}
	for _, u := range s.unknown {
		bitmap[u.Index] = true
	}
	return bitmap
}

func (s *Sequence) anyExtension() bool {
	for _, i := range s.additions {
		if s.present[i] {
			return true
		}
	}
	return len(s.unknown) > 0
}

func (s *Sequence) reset() {
	s.unknown = nil
	s.extCount = 0
	s.hasExtensions = false
	s.extBitmap = nil
	for i := range s.fields {
		s.present[i] = !s.isOptional(i)
	}
}

// PreambleEncodePER writes the extension bit and the optional bitmap.
func (s *Sequence) PreambleEncodePER(e *per.Encoder) error {
	if s.extensible {
		if err := e.EncodeSingleBit(s.anyExtension()); err != nil {
			return err
		}
	}
	for _, i := range s.optionals {
		if err := e.EncodeSingleBit(s.present[i]); err != nil {
			return err
		}
	}
	return nil
}

// 18 Encoding the sequence type
// |- 18.1 If the sequence type has an extension marker, a single bit shall first be
// |  |  added, set to 1 if any extension addition is present.
// |- 18.2 A bit-map of one bit per OPTIONAL or DEFAULT component in the root follows.
// |- 18.7 The root components are encoded in order.
// |- 18.8 If the extension bit is set, the extension addition presence bitmap is added
// |  |  as a normally small length followed by one bit per addition.
// |- 18.9 Each present extension addition is encoded as an open type field.

func (s *Sequence) EncodePER(e *per.Encoder) error {
	if err := s.PreambleEncodePER(e); err != nil {
		return err
	}
	for i, f := range s.fields {
		if f.Extension || !s.present[i] {
			continue
		}
		if err := f.Value.EncodePER(e); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	if !s.extensible || !s.anyExtension() {
		return nil
	}
	count := s.extensionCount()
	bitmap := s.extensionBitmap(count)
	if err := e.EncodeExtensionBitmap(bitmap); err != nil {
		return err
	}
	unknown := make(map[int][]byte, len(s.unknown))
	for _, u := range s.unknown {
		unknown[u.Index] = u.Data
	}
	for slot, set := range bitmap {
		if !set {
			continue
		}
		if slot < len(s.additions) {
			f := s.fields[s.additions[slot]]
			if err := e.EncodeOpenType(f.Value.EncodePER); err != nil {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
			continue
		}
		if err := e.EncodeOpenTypeRaw(unknown[slot]); err != nil {
			return err
		}
	}
	return nil
}

// PreambleDecodePER reads the extension bit and the optional bitmap and
// clears any state from an earlier decode.
func (s *Sequence) PreambleDecodePER(d *per.Decoder) error {
	s.reset()
	if s.extensible {
		bit, err := d.DecodeSingleBit()
		if err != nil {
			return err
		}
		s.hasExtensions = bit
	}
	for _, i := range s.optionals {
		bit, err := d.DecodeSingleBit()
		if err != nil {
			return err
		}
		s.present[i] = bit
	}
	return nil
}

func (s *Sequence) loadExtensionBitmap(d *per.Decoder) error {
	if s.extBitmap != nil || !s.hasExtensions {
		return nil
	}
	bitmap, err := d.DecodeExtensionBitmap()
	if err != nil {
		return err
	}
	s.extBitmap = bitmap
	s.extCount = len(bitmap)
	return nil
}

// KnownExtensionDecodePER decodes extension addition slot when its bit is
// set. The extension bitmap is read on first use.
func (s *Sequence) KnownExtensionDecodePER(d *per.Decoder, slot int) error {
	if err := s.loadExtensionBitmap(d); err != nil {
		return err
	}
	if slot >= len(s.extBitmap) || !s.extBitmap[slot] {
		return nil
	}
	if slot >= len(s.additions) {
		return fmt.Errorf("%w: extension slot %d of %d known", asn.ErrLogic, slot, len(s.additions))
	}
	i := s.additions[slot]
	f := s.fields[i]
	if err := d.DecodeOpenType(f.Value.DecodePER); err != nil {
		return fmt.Errorf("%s: %w", f.Name, err)
	}
	s.present[i] = true
	return nil
}

// UnknownExtensionsDecodePER keeps every set extension slot past the known
// additions.
func (s *Sequence) UnknownExtensionsDecodePER(d *per.Decoder) error {
	if err := s.loadExtensionBitmap(d); err != nil {
		return err
	}
	for slot := len(s.additions); slot < len(s.extBitmap); slot++ {
		if !s.extBitmap[slot] {
			continue
		}
		data, err := d.DecodeOpenTypeRaw()
		if err != nil {
			return err
		}
		d.Logger().Debug().Int("slot", slot).Int("length", len(data)).Msg("unknown extension addition kept")
		s.unknown = append(s.unknown, UnknownExtension{Index: slot, Data: data})
	}
	return nil
}

func (s *Sequence) DecodePER(d *per.Decoder) error {
	if err := s.PreambleDecodePER(d); err != nil {
		return err
	}
	for i, f := range s.fields {
		if f.Extension || !s.present[i] {
			continue
		}
		if err := f.Value.DecodePER(d); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	if !s.hasExtensions {
		return nil
	}
	for slot := range s.additions {
		if err := s.KnownExtensionDecodePER(d, slot); err != nil {
			return err
		}
	}
	return s.UnknownExtensionsDecodePER(d)
}

func (s *Sequence) DataLength() int {
	n := 0
	for i, f := range s.fields {
		if s.present[i] {
			n += ElementLength(f.Value)
		}
	}
	for _, u := range s.unknown {
		n += len(u.Data)
	}
	return n
}

// EncodeBER writes root fields, then extension additions, then kept
// unknown elements, reproducing the order they were received in.
func (s *Sequence) EncodeBER(e *ber.Encoder) error {
	for _, i := range s.berOrder() {
		f := s.fields[i]
		if !s.present[i] {
			continue
		}
		if err := WriteBER(e, f.Value); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	for _, u := range s.unknown {
		if err := e.EncodeBlock(u.Data); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sequence) berOrder() []int {
	order := make([]int, 0, len(s.fields))
	for i, f := range s.fields {
		if !f.Extension {
			order = append(order, i)
		}
	}
	return append(order, s.additions...)
}

func (s *Sequence) DecodeBER(d *ber.Decoder, length int) error {
	s.reset()
	end := d.Position() + length
	if s.set {
		return s.decodeSetBER(d, end)
	}
	for i, f := range s.fields {
		if f.Extension {
			continue
		}
		if err := s.decodeFieldBER(d, end, i); err != nil {
			return err
		}
	}
	if err := s.KnownExtensionDecodeBER(d, end); err != nil {
		return err
	}
	return s.UnknownExtensionsDecodeBER(d, end)
}

// decodeFieldBER decodes field i if the next element is its. An optional
// field whose tag does not match is absent.
func (s *Sequence) decodeFieldBER(d *ber.Decoder, end, i int) error {
	f := s.fields[i]
	optional := s.isOptional(i)
	if d.Position() >= end {
		if optional {
			s.present[i] = false
			return nil
		}
		return asn.NewDecodeError(d.Position(), "missing field "+f.Name, asn.ErrTruncated)
	}
	start := d.Position()
	err := ReadBER(d, f.Value)
	switch {
	case err == nil:
		s.present[i] = true
		d.Logger().Debug().Str("field", f.Name).Int("offset", start).Msg("decoded")
		return nil
	case optional && isMismatchAt(err, start):
		s.present[i] = false
		return nil
	default:
		return fmt.Errorf("%s: %w", f.Name, err)
	}
}

// KnownExtensionDecodeBER decodes the extension additions this schema
// knows, in order.
func (s *Sequence) KnownExtensionDecodeBER(d *ber.Decoder, end int) error {
	for _, i := range s.additions {
		if err := s.decodeFieldBER(d, end, i); err != nil {
			return err
		}
	}
	return nil
}

// UnknownExtensionsDecodeBER keeps whatever elements remain before end.
// A type without an extension marker rejects them.
func (s *Sequence) UnknownExtensionsDecodeBER(d *ber.Decoder, end int) error {
	for d.Position() < end {
		if err := s.keepUnknownBER(d); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sequence) keepUnknownBER(d *ber.Decoder) error {
	h, raw, err := d.DecodeRaw()
	if err != nil {
		return err
	}
	if !s.extensible {
		return asn.NewDecodeError(h.Offset, "unexpected element "+h.Tag.String(), asn.ErrInvalidEncoding)
	}
	if err := d.Limits().CheckArraySize(uint64(len(s.unknown) + 1)); err != nil {
		return err
	}
	d.Logger().Debug().Stringer("tag", h.Tag).Int("offset", h.Offset).Msg("unknown element kept")
	s.unknown = append(s.unknown, UnknownExtension{Index: len(s.additions) + len(s.unknown), Data: raw})
	return nil
}

// decodeSetBER accepts the fields of a SET in any order.
func (s *Sequence) decodeSetBER(d *ber.Decoder, end int) error {
	for i := range s.present {
		s.present[i] = false
	}
	for d.Position() < end {
		start := d.Position()
		matched := false
		for i, f := range s.fields {
			if s.present[i] {
				continue
			}
			err := ReadBER(d, f.Value)
			if err == nil {
				s.present[i] = true
				matched = true
				break
			}
			if !isMismatchAt(err, start) {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
		}
		if !matched {
			if err := s.keepUnknownBER(d); err != nil {
				return err
			}
		}
	}
	for i, f := range s.fields {
		if !s.present[i] && !s.isOptional(i) {
			return asn.NewDecodeError(end, "missing field "+f.Name, asn.ErrInvalidEncoding)
		}
	}
	return nil
}

func (s *Sequence) Compare(other Value) int {
	o, ok := other.(*Sequence)
	if !ok || len(o.fields) != len(s.fields) {
		return kindOrder(s, other)
	}
	for i := range s.fields {
		if c := compareBool(s.present[i], o.present[i]); c != 0 {
			return c
		}
		if !s.present[i] {
			continue
		}
		if c := s.fields[i].Value.Compare(o.fields[i].Value); c != 0 {
			return c
		}
	}
	if len(s.unknown) != len(o.unknown) {
		if len(s.unknown) < len(o.unknown) {
			return -1
		}
		return 1
	}
	for i := range s.unknown {
		if c := bytes.Compare(s.unknown[i].Data, o.unknown[i].Data); c != 0 {
			return c
		}
	}
	return 0
}

func (s *Sequence) String() string {
	parts := make([]string, 0, len(s.fields))
	for i, f := range s.fields {
		if s.present[i] {
			parts = append(parts, f.Name+" "+f.Value.String())
		}
	}
	if len(s.unknown) > 0 {
		parts = append(parts, fmt.Sprintf("... %d unknown", len(s.unknown)))
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}
