// Package asn holds the pieces shared by the BER and PER codecs: tags,
// constraints, decode limits and the error taxonomy.
package asn

import "fmt"

// Class is the two-bit tag class, stored in its identifier-octet position.
type Class uint8

const (
	ClassUniversal       Class = 0x00
	ClassApplication     Class = 0x40
	ClassContextSpecific Class = 0x80
	ClassPrivate         Class = 0xC0
)

func (c Class) String() string {
	switch c {
	case ClassUniversal:
		return "UNIVERSAL"
	case ClassApplication:
		return "APPLICATION"
	case ClassContextSpecific:
		return "CONTEXT"
	case ClassPrivate:
		return "PRIVATE"
	}
	return fmt.Sprintf("Class(0x%02X)", uint8(c))
}

// Universal tag numbers, X.680 Table 1.
const (
	TagBoolean         uint32 = 1
	TagInteger         uint32 = 2
	TagBitString       uint32 = 3
	TagOctetString     uint32 = 4
	TagNull            uint32 = 5
	TagObjectID        uint32 = 6
	TagReal            uint32 = 9
	TagEnumerated      uint32 = 10
	TagSequence        uint32 = 16
	TagSet             uint32 = 17
	TagNumericString   uint32 = 18
	TagPrintableString uint32 = 19
	TagIA5String       uint32 = 22
	TagUTCTime         uint32 = 23
	TagGeneralizedTime uint32 = 24
	TagVisibleString   uint32 = 26
	TagGeneralString   uint32 = 27
	TagBMPString       uint32 = 30
)

// Tag identifies a value on the BER wire.
type Tag struct {
	Class  Class
	Number uint32
}

func Universal(number uint32) Tag   { return Tag{Class: ClassUniversal, Number: number} }
func Application(number uint32) Tag { return Tag{Class: ClassApplication, Number: number} }
func Context(number uint32) Tag     { return Tag{Class: ClassContextSpecific, Number: number} }
func Private(number uint32) Tag     { return Tag{Class: ClassPrivate, Number: number} }

// IsUniversal reports whether the tag is in the universal class.
func (t Tag) IsUniversal() bool {
	return t.Class == ClassUniversal
}

func (t Tag) String() string {
	return fmt.Sprintf("[%s %d]", t.Class, t.Number)
}
