package ber

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thebagchi/asner/lib/asn"
)

func TestEncodeHeader(t *testing.T) {
	test := func(tag asn.Tag, constructed bool, length int, expected []byte) {
		t.Helper()
		e := NewEncoder()
		require.NoError(t, e.EncodeHeader(tag, constructed, length))
		require.Equal(t, expected, e.Bytes())
		require.Equal(t, len(expected), HeaderLength(tag, length))
		require.Equal(t, len(expected), e.Len())
	}
	test(asn.Universal(asn.TagInteger), false, 1, []byte{0x02, 0x01})
	test(asn.Universal(asn.TagSequence), true, 0, []byte{0x30, 0x00})
	test(asn.Context(0), true, 3, []byte{0xA0, 0x03})
	test(asn.Application(30), false, 127, []byte{0x5E, 0x7F})
	test(asn.Context(31), false, 128, []byte{0x9F, 0x1F, 0x81, 0x80})
	test(asn.Private(201), true, 256, []byte{0xFF, 0x81, 0x49, 0x82, 0x01, 0x00})
	test(asn.Context(16384), false, 70000, []byte{0x9F, 0x81, 0x80, 0x00, 0x83, 0x01, 0x11, 0x70})

	e := NewEncoder()
	require.ErrorIs(t, e.EncodeLength(-1), ErrNegativeLength)
}

func TestDecodeHeader(t *testing.T) {
	test := func(data []byte, tag asn.Tag, constructed bool, length int) {
		t.Helper()
		d := NewDecoder(data, asn.DefaultLimits())
		h, err := d.DecodeHeader()
		require.NoError(t, err)
		require.Equal(t, tag, h.Tag)
		require.Equal(t, constructed, h.Constructed)
		require.Equal(t, length, h.Length)
		require.Equal(t, 0, h.Offset)
		require.Equal(t, len(data)-length, h.Size)
		require.Equal(t, len(data), h.End())
	}
	test([]byte{0x02, 0x01, 0x05}, asn.Universal(asn.TagInteger), false, 1)
	test([]byte{0x30, 0x00}, asn.Universal(asn.TagSequence), true, 0)
	test([]byte{0x9F, 0x1F, 0x01, 0xAA}, asn.Context(31), false, 1)
	test(append([]byte{0x04, 0x81, 0x80}, make([]byte, 128)...), asn.Universal(asn.TagOctetString), false, 128)
}

func TestDecodeHeaderErrors(t *testing.T) {
	test := func(data []byte, target error) {
		t.Helper()
		d := NewDecoder(data, asn.DefaultLimits())
		_, err := d.DecodeHeader()
		require.ErrorIs(t, err, target)
		require.Equal(t, 0, d.Position())
	}
	test(nil, asn.ErrTruncated)
	test([]byte{0x02}, asn.ErrTruncated)
	test([]byte{0x02, 0x05, 0x01}, asn.ErrTruncated)
	test([]byte{0x30, 0x80, 0x00, 0x00}, asn.ErrUnimplemented)
	test([]byte{0x04, 0xFF}, asn.ErrInvalidEncoding)
	test([]byte{0x04, 0x85, 0x01, 0x00, 0x00, 0x00, 0x00}, asn.ErrConstraintViolation)
	test([]byte{0x9F, 0x80, 0x01, 0x00}, asn.ErrInvalidEncoding)
	test([]byte{0x9F, 0xFF, 0xFF, 0xFF, 0xFF, 0x7F, 0x00}, asn.ErrInvalidEncoding)
	test([]byte{0x9F, 0x81}, asn.ErrTruncated)
}

func TestDecodeHeaderFor(t *testing.T) {
	d := NewDecoder([]byte{0x01, 0x01, 0xFF}, asn.DefaultLimits())

	_, err := d.DecodeHeaderFor(asn.Universal(asn.TagInteger))
	require.ErrorIs(t, err, asn.ErrTagMismatch)
	var mismatch *asn.TagMismatchError
	require.True(t, errors.As(err, &mismatch))
	require.Equal(t, asn.Universal(asn.TagInteger), mismatch.Expected)
	require.Equal(t, asn.Universal(asn.TagBoolean), mismatch.Actual)
	require.Equal(t, 0, d.Position())

	peek, err := d.PeekHeader()
	require.NoError(t, err)
	require.Equal(t, asn.Universal(asn.TagBoolean), peek.Tag)
	require.Equal(t, 0, d.Position())

	h, err := d.DecodeHeaderFor(asn.Universal(asn.TagBoolean))
	require.NoError(t, err)
	require.Equal(t, 1, h.Length)
	b, err := d.DecodeByte()
	require.NoError(t, err)
	require.Equal(t, byte(0xFF), b)
	require.True(t, d.IsAtEnd())
}

func TestIntegerContent(t *testing.T) {
	test := func(value int64, expected []byte) {
		t.Helper()
		require.Equal(t, len(expected), IntegerLength(value))
		e := NewEncoder()
		require.NoError(t, e.EncodeIntegerContent(value))
		require.Equal(t, expected, e.Bytes())

		d := NewDecoder(expected, asn.DefaultLimits())
		decoded, err := d.DecodeIntegerContent(len(expected))
		require.NoError(t, err)
		require.Equal(t, value, decoded)
	}
	test(0, []byte{0x00})
	test(127, []byte{0x7F})
	test(128, []byte{0x00, 0x80})
	test(256, []byte{0x01, 0x00})
	test(-1, []byte{0xFF})
	test(-128, []byte{0x80})
	test(-129, []byte{0xFF, 0x7F})
	test(1<<63-1, []byte{0x7F, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	test(-1<<63, []byte{0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00})

	d := NewDecoder(make([]byte, 9), asn.DefaultLimits())
	_, err := d.DecodeIntegerContent(9)
	require.ErrorIs(t, err, asn.ErrInvalidEncoding)
	_, err = d.DecodeIntegerContent(0)
	require.ErrorIs(t, err, asn.ErrInvalidEncoding)
}

func TestObjectIdentifier(t *testing.T) {
	test := func(arcs []uint64, expected []byte) {
		t.Helper()
		content, err := ObjectIdentifierContent(arcs)
		require.NoError(t, err)
		require.Equal(t, expected, content)
		parsed, err := ParseObjectIdentifierContent(content)
		require.NoError(t, err)
		require.Equal(t, arcs, parsed)
	}
	test([]uint64{2, 100, 3}, []byte{0x81, 0x34, 0x03})
	test([]uint64{1, 2, 840, 113549}, []byte{0x2A, 0x86, 0x48, 0x86, 0xF7, 0x0D})
	test([]uint64{0, 39}, []byte{0x27})
	test([]uint64{1, 0}, []byte{0x28})
	test([]uint64{2, 0}, []byte{0x50})
	test([]uint64{2, 999, 0}, []byte{0x88, 0x37, 0x00})

	bad := func(arcs []uint64) {
		t.Helper()
		_, err := ObjectIdentifierContent(arcs)
		require.ErrorIs(t, err, asn.ErrConstraintViolation)
	}
	bad(nil)
	bad([]uint64{1})
	bad([]uint64{3, 1})
	bad([]uint64{0, 40})

	_, err := ParseObjectIdentifierContent(nil)
	require.ErrorIs(t, err, asn.ErrInvalidEncoding)
	_, err = ParseObjectIdentifierContent([]byte{0x2A, 0x80, 0x01})
	require.ErrorIs(t, err, asn.ErrInvalidEncoding)
	_, err = ParseObjectIdentifierContent([]byte{0x2A, 0x86})
	require.ErrorIs(t, err, asn.ErrTruncated)

	e := NewEncoder()
	require.NoError(t, e.EncodeObjectIdentifierContent([]uint64{2, 100, 3}))
	require.Equal(t, []byte{0x81, 0x34, 0x03}, e.Bytes())
}

func TestSkipAndBlock(t *testing.T) {
	d := NewDecoder([]byte{1, 2, 3, 4}, asn.DefaultLimits())
	require.NoError(t, d.Skip(1))
	block, err := d.DecodeBlock(2)
	require.NoError(t, err)
	require.Equal(t, []byte{2, 3}, block)
	require.Equal(t, 1, d.Remaining())
	_, err = d.DecodeBlock(2)
	require.ErrorIs(t, err, asn.ErrTruncated)
	require.ErrorIs(t, d.Skip(5), asn.ErrTruncated)
	d.SetPosition(0)
	require.Equal(t, 4, d.Remaining())
}

func TestChannel(t *testing.T) {
	e := NewEncoder()
	require.NoError(t, e.EncodeHeader(asn.Universal(asn.TagOctetString), false, 3))
	require.NoError(t, e.EncodeBlock([]byte("abc")))

	var stream bytes.Buffer
	require.NoError(t, e.WriteToChannel(&stream))
	require.NoError(t, e.WriteToChannel(&stream))

	for rangeIdx := 0; rangeIdx < 2; rangeIdx++ {
		d, err := ReadFromChannel(&stream, asn.DefaultLimits())
		require.NoError(t, err)
		h, err := d.DecodeHeaderFor(asn.Universal(asn.TagOctetString))
		require.NoError(t, err)
		content, err := d.DecodeBlock(h.Length)
		require.NoError(t, err)
		require.Equal(t, []byte("abc"), content)
	}
	_, err := ReadFromChannel(&stream, asn.DefaultLimits())
	require.ErrorIs(t, err, io.EOF)

	test := func(data []byte, limits asn.Limits, target error) {
		t.Helper()
		_, err := ReadFromChannel(bytes.NewReader(data), limits)
		require.ErrorIs(t, err, target)
	}
	test([]byte{0x04}, asn.DefaultLimits(), asn.ErrTruncated)
	test([]byte{0x04, 0x05, 0x01}, asn.DefaultLimits(), asn.ErrTruncated)
	test([]byte{0x30, 0x80}, asn.DefaultLimits(), asn.ErrUnimplemented)
	test([]byte{0x04, 0x84, 0x7F, 0xFF, 0xFF, 0xFF}, asn.DefaultLimits(), asn.ErrConstraintViolation)
	test([]byte{0x04, 0x81, 0xC8}, asn.Limits{MaxMessageSize: 100}, asn.ErrConstraintViolation)

	var framed bytes.Buffer
	require.NoError(t, e.WriteFramed(&framed))
	require.Equal(t, []byte{0x03, 0x00, 0x00, 0x09, 0x04, 0x03, 'a', 'b', 'c'}, framed.Bytes())
}

func TestDecodeRaw(t *testing.T) {
	data := []byte{0x30, 0x03, 0x02, 0x01, 0x07, 0x81, 0x81, 0x01, 0xAA}
	d := NewDecoder(data, asn.DefaultLimits())
	h, raw, err := d.DecodeRaw()
	require.NoError(t, err)
	require.True(t, h.Constructed)
	require.Equal(t, data[:5], raw)

	// a non-minimal long form length is kept as it was read
	h, raw, err = d.DecodeRaw()
	require.NoError(t, err)
	require.Equal(t, asn.Context(1), h.Tag)
	require.Equal(t, data[5:], raw)
	require.True(t, d.IsAtEnd())
}
