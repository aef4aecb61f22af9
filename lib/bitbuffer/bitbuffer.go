// Package bitbuffer provides the bit cursor shared by the BER and PER codecs.
//
// # Overview
//
// A Codec is a growable byte store with a byte offset (the next byte to be
// read or written) and a bit offset (the bits still free in that byte, 8
// when the cursor sits on a byte boundary). Bits are packed MSB-first, as
// X.691 requires.
//
// # Key Features
//
//   - Fast paths for byte-aligned operations using encoding/binary.BigEndian
//   - Slow paths for general bit-packing/unpacking
//   - Amortized buffer growth; new bytes are always zero
//   - Counters for total bits written/read
//   - Byte-granular rewind for readers (Position/SetPosition)
//   - Reads past the end fail with asn.ErrTruncated and leave the cursor
//     where it was
//
// # Thread Safety
//
// Codec is NOT thread-safe. Each goroutine should use its own Codec.
package bitbuffer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/thebagchi/asner/lib/asn"
)

const (
	// BITS_PER_BYTE is the number of bits in a byte
	BITS_PER_BYTE = 8

	// TMP_ARRAY_SIZE is the size of temporary arrays used for binary operations
	TMP_ARRAY_SIZE = 8
)

// InitialBufferSize is the initial capacity for the buffer in CreateWriter.
var InitialBufferSize = 64

var errBitCount = errors.New("bitbuffer: bit count must be between 1 and 64")

// Codec manages a bit stream for encoding and decoding.
// Fields:
//
//	Buff: bytes written so far (writer) or the input (reader)
//	byteOffset: index of the byte the cursor is in
//	bitOffset: bits still available in that byte (1-8)
//	  - bitOffset=8: byte boundary, nothing consumed from Buff[byteOffset]
//	  - bitOffset=1-7: partial byte
//	written: total number of bits written
//	read: total number of bits read
type Codec struct {
	Buff       []byte
	byteOffset int
	bitOffset  uint8
	written    uint64
	read       uint64
	logger     zerolog.Logger
	trace      bool
}

// CreateWriter creates a new Codec for writing.
func CreateWriter() *Codec {
	return &Codec{
		Buff:      make([]byte, 0, InitialBufferSize),
		bitOffset: BITS_PER_BYTE,
		logger:    zerolog.Nop(),
	}
}

// CreateReader creates a new Codec for reading from existing data.
// The data is not copied.
func CreateReader(data []byte) *Codec {
	return &Codec{
		Buff:      data,
		bitOffset: BITS_PER_BYTE,
		logger:    zerolog.Nop(),
	}
}

// SetLogger attaches a logger. Trace output is produced only when the
// logger is at trace level.
func (c *Codec) SetLogger(logger zerolog.Logger) {
	c.logger = logger
	c.trace = logger.GetLevel() <= zerolog.TraceLevel
}

// Trace logs the codec state around an operation.
// Parameters:
//   - event: "ENTER" or "EXIT" to mark function entry/exit
//   - function: name of the calling function (e.g., "Write", "Read")
//   - arguments: optional additional debug info (e.g., "bits=8 value=42")
func (c *Codec) Trace(event, function, arguments string) {
	if !c.trace {
		return
	}
	c.logger.Trace().
		Str("event", event).
		Str("function", function).
		Int("len", len(c.Buff)).
		Int("byte", c.byteOffset).
		Uint8("bit", c.bitOffset).
		Uint64("written", c.written).
		Uint64("read", c.read).
		Msg(arguments)
}

// Len returns the number of bytes in the buffer, counting a partially
// written final byte.
func (c *Codec) Len() int {
	return len(c.Buff)
}

// Cap returns the capacity of the underlying buffer.
func (c *Codec) Cap() int {
	return cap(c.Buff)
}

// NumWritten returns the total number of bits written, padding included.
func (c *Codec) NumWritten() uint64 {
	return c.written
}

// NumRead returns the total number of bits read or skipped.
func (c *Codec) NumRead() uint64 {
	return c.read
}

// Bytes returns the encoded data. A partial final byte is included with
// its unused low bits set to zero.
func (c *Codec) Bytes() []byte {
	if c.written == 0 {
		return nil
	}
	return c.Buff
}

// IsAligned reports whether the cursor sits on a byte boundary.
func (c *Codec) IsAligned() bool {
	return c.bitOffset == BITS_PER_BYTE
}

// Position returns the index of the byte holding the cursor.
func (c *Codec) Position() int {
	return c.byteOffset
}

// SetPosition moves a reader to the start of byte pos. Positions past the
// end are clamped to the end.
func (c *Codec) SetPosition(pos int) {
	pos = min(max(pos, 0), len(c.Buff))
	c.byteOffset = pos
	c.bitOffset = BITS_PER_BYTE
	c.read = uint64(pos) * BITS_PER_BYTE
}

// BitsRemaining returns the number of unread bits.
func (c *Codec) BitsRemaining() uint64 {
	if c.byteOffset >= len(c.Buff) {
		return 0
	}
	return uint64(len(c.Buff)-c.byteOffset-1)*BITS_PER_BYTE + uint64(c.bitOffset)
}

// IsAtEnd reports whether every bit has been consumed.
func (c *Codec) IsAtEnd() bool {
	return c.BitsRemaining() == 0
}

// Reset empties a writer and keeps its capacity.
func (c *Codec) Reset() {
	c.Buff = c.Buff[:0]
	c.byteOffset = 0
	c.bitOffset = BITS_PER_BYTE
	c.written = 0
	c.read = 0
}

// Truncate drops everything a writer produced after the first n bytes and
// leaves the cursor byte-aligned at n.
func (c *Codec) Truncate(n int) {
	n = min(max(n, 0), len(c.Buff))
	c.Buff = c.Buff[:n]
	c.byteOffset = n
	c.bitOffset = BITS_PER_BYTE
	c.written = uint64(n) * BITS_PER_BYTE
}

// String implements the fmt.Stringer interface for Codec.
func (c *Codec) String() string {
	return fmt.Sprintf("Codec{Buff: len=%d, byte: %d, bit: %d, written: %d, read: %d}",
		len(c.Buff), c.byteOffset, c.bitOffset, c.written, c.read)
}

// grow makes sure the buffer holds at least n bytes, zeroing anything new.
// Capacity doubles, so growth is O(1) amortized.
func (c *Codec) grow(n int) {
	if n <= len(c.Buff) {
		return
	}
	if c.trace {
		c.Trace("ENTER", "grow", fmt.Sprintf("n=%d", n))
		defer c.Trace("EXIT", "grow", "")
	}
	if cap(c.Buff) < n {
		capacity := max(cap(c.Buff)*2, n)
		c.Buff = slices.Grow(c.Buff, capacity-len(c.Buff))
	}
	old := len(c.Buff)
	c.Buff = c.Buff[:n]
	clear(c.Buff[old:])
}

// Write writes the least significant num bits of value (1 <= num <= 64),
// most significant bit first.
//
// Fast path: one BigEndian store when the cursor is byte-aligned.
// Slow path: byte-by-byte packing when it is mid-byte.
func (c *Codec) Write(num uint8, value uint64) error {
	if c.trace {
		c.Trace("ENTER", "Write", fmt.Sprintf("bits=%d value=%d", num, value))
		defer c.Trace("EXIT", "Write", "")
	}
	if num == 0 || num > 64 {
		return errBitCount
	}
	if num < 64 {
		value &= (1 << num) - 1
	}

	if c.bitOffset == BITS_PER_BYTE {
		var (
			nbytes    = (int(num) + 7) >> 3
			remainder = num & 7
			tmp       [TMP_ARRAY_SIZE]byte
		)
		binary.BigEndian.PutUint64(tmp[:], value<<(64-uint(num)))
		c.grow(c.byteOffset + nbytes)
		copy(c.Buff[c.byteOffset:], tmp[:nbytes])
		c.byteOffset += int(num >> 3)
		if remainder != 0 {
			c.bitOffset = BITS_PER_BYTE - remainder
		}
		c.written += uint64(num)
		return nil
	}

	pending := num
	for pending > 0 {
		if c.bitOffset == BITS_PER_BYTE {
			c.grow(c.byteOffset + 1)
		}
		var (
			nbits = min(pending, c.bitOffset)
			rest  = pending - nbits
			chunk = uint8(value>>rest) & uint8((1<<nbits)-1)
			shift = c.bitOffset - nbits
		)
		c.Buff[c.byteOffset] |= chunk << shift
		c.bitOffset -= nbits
		if c.bitOffset == 0 {
			c.byteOffset++
			c.bitOffset = BITS_PER_BYTE
		}
		pending = rest
	}
	c.written += uint64(num)
	return nil
}

// Read reads the next num bits (0 <= num <= 64), most significant bit
// first. num=0 returns 0 without touching the cursor.
func (c *Codec) Read(num uint8) (uint64, error) {
	if c.trace {
		c.Trace("ENTER", "Read", fmt.Sprintf("num=%d", num))
		defer c.Trace("EXIT", "Read", "")
	}
	if num == 0 {
		return 0, nil
	}
	if num > 64 {
		return 0, errBitCount
	}
	if c.BitsRemaining() < uint64(num) {
		return 0, asn.ErrTruncated
	}

	if c.bitOffset == BITS_PER_BYTE {
		var (
			nbytes    = (int(num) + 7) >> 3
			remainder = num & 7
			tmp       [TMP_ARRAY_SIZE]byte
		)
		copy(tmp[:nbytes], c.Buff[c.byteOffset:c.byteOffset+nbytes])
		result := binary.BigEndian.Uint64(tmp[:]) >> (64 - uint(num))
		c.byteOffset += int(num >> 3)
		if remainder != 0 {
			c.bitOffset = BITS_PER_BYTE - remainder
		}
		c.read += uint64(num)
		return result, nil
	}

	var (
		result  uint64
		pending = num
	)
	for pending > 0 {
		var (
			reading = min(pending, c.bitOffset)
			shift   = c.bitOffset - reading
			bits    = uint64(c.Buff[c.byteOffset]>>shift) & ((1 << reading) - 1)
		)
		result = (result << reading) | bits
		c.bitOffset -= reading
		if c.bitOffset == 0 {
			c.byteOffset++
			c.bitOffset = BITS_PER_BYTE
		}
		pending -= reading
	}
	c.read += uint64(num)
	return result, nil
}

// WriteBit writes a single bit.
func (c *Codec) WriteBit(bit bool) error {
	if bit {
		return c.Write(1, 1)
	}
	return c.Write(1, 0)
}

// ReadBit reads a single bit.
func (c *Codec) ReadBit() (bool, error) {
	v, err := c.Read(1)
	return v == 1, err
}

// WriteByte writes eight bits from the current bit offset.
func (c *Codec) WriteByte(b byte) error {
	return c.Write(8, uint64(b))
}

// ReadByte reads eight bits from the current bit offset.
func (c *Codec) ReadByte() (byte, error) {
	v, err := c.Read(8)
	return byte(v), err
}

// WriteBytes writes full octets continuing from the current bit offset.
// It does NOT align first; use WriteBlock for that.
func (c *Codec) WriteBytes(data []byte) error {
	if c.trace {
		c.Trace("ENTER", "WriteBytes", fmt.Sprintf("len(data)=%d", len(data)))
		defer c.Trace("EXIT", "WriteBytes", "")
	}
	if len(data) == 0 {
		return nil
	}
	if c.bitOffset == BITS_PER_BYTE {
		c.grow(c.byteOffset + len(data))
		copy(c.Buff[c.byteOffset:], data)
		c.byteOffset += len(data)
		c.written += uint64(len(data)) * BITS_PER_BYTE
		return nil
	}
	for _, b := range data {
		if err := c.Write(8, uint64(b)); err != nil {
			return err
		}
	}
	return nil
}

// ReadBytes reads exactly n octets continuing from the current bit offset.
// The remaining input is checked before anything is allocated.
func (c *Codec) ReadBytes(n int) ([]byte, error) {
	if c.trace {
		c.Trace("ENTER", "ReadBytes", fmt.Sprintf("n=%d", n))
		defer c.Trace("EXIT", "ReadBytes", "")
	}
	if n < 0 {
		return nil, errors.New("bitbuffer: negative byte count")
	}
	if n == 0 {
		return []byte{}, nil
	}
	if c.BitsRemaining() < uint64(n)*BITS_PER_BYTE {
		return nil, asn.ErrTruncated
	}
	result := make([]byte, n)
	if c.bitOffset == BITS_PER_BYTE {
		copy(result, c.Buff[c.byteOffset:c.byteOffset+n])
		c.byteOffset += n
		c.read += uint64(n) * BITS_PER_BYTE
		return result, nil
	}
	for i := range result {
		val, err := c.Read(8)
		if err != nil {
			return nil, err
		}
		result[i] = uint8(val)
	}
	return result, nil
}

// WriteBlock aligns to a byte boundary and writes data.
func (c *Codec) WriteBlock(data []byte) error {
	if err := c.Align(); err != nil {
		return err
	}
	return c.WriteBytes(data)
}

// ReadBlock skips to a byte boundary and reads n bytes.
func (c *Codec) ReadBlock(n int) ([]byte, error) {
	if err := c.Advance(); err != nil {
		return nil, err
	}
	return c.ReadBytes(n)
}

// Align pads the current byte with zero bits so the next write starts on a
// byte boundary. It is a no-op when already aligned.
func (c *Codec) Align() error {
	if c.trace {
		c.Trace("ENTER", "Align", "")
		defer c.Trace("EXIT", "Align", "")
	}
	if c.bitOffset < BITS_PER_BYTE {
		c.written += uint64(c.bitOffset)
		c.byteOffset++
		c.bitOffset = BITS_PER_BYTE
	}
	return nil
}

// Advance skips the unread bits of the current byte. It is the read
// counterpart of Align.
func (c *Codec) Advance() error {
	if c.trace {
		c.Trace("ENTER", "Advance", "")
		defer c.Trace("EXIT", "Advance", "")
	}
	if c.bitOffset < BITS_PER_BYTE {
		c.read += uint64(c.bitOffset)
		c.byteOffset++
		c.bitOffset = BITS_PER_BYTE
	}
	return nil
}
