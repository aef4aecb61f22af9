package bitbuffer

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thebagchi/asner/lib/asn"
)

func TestBitBuffer(t *testing.T) {
	w := CreateWriter()
	require.Zero(t, w.NumWritten())
	require.True(t, w.IsAligned())

	for rangeIdx := 0; rangeIdx < 16; rangeIdx++ {
		require.NoError(t, w.Write(1, 0))
	}
	require.Equal(t, uint64(16), w.NumWritten())
	require.True(t, w.IsAligned())

	require.NoError(t, w.WriteBytes([]byte{0x00}))
	require.Equal(t, uint64(24), w.NumWritten())

	// Aligned already, nothing happens.
	require.NoError(t, w.Align())
	require.Equal(t, uint64(24), w.NumWritten())

	require.NoError(t, w.Write(1, 1))
	require.Equal(t, 4, w.Len())
	require.NoError(t, w.Align())
	require.Equal(t, uint64(32), w.NumWritten())
	require.Equal(t, []byte{0x00, 0x00, 0x00, 0x80}, w.Bytes())
}

func TestWriteReadBits(t *testing.T) {
	bits := make([]uint8, 64)
	for i := range bits {
		bits[i] = uint8(i + 1)
	}

	test := func(value func(bit uint8) uint64, description string) {
		t.Run(description, func(t *testing.T) {
			w := CreateWriter()
			for _, bit := range bits {
				require.NoError(t, w.Write(bit, value(bit)), "write %d bits", bit)
			}
			r := CreateReader(w.Bytes())
			for _, bit := range bits {
				actual, err := r.Read(bit)
				require.NoError(t, err, "read %d bits", bit)
				require.Equal(t, value(bit), actual, "read %d bits", bit)
			}
			assert.Equal(t, uint64(2080), w.NumWritten())
			assert.Equal(t, uint64(2080), r.NumRead())
			assert.True(t, r.IsAtEnd())
		})
	}
	test(func(bit uint8) uint64 { return uint64(bit) }, "value equals width")
	test(func(uint8) uint64 { return 0 }, "zero")
	test(func(bit uint8) uint64 {
		if bit == 64 {
			return ^uint64(0)
		}
		return (1 << bit) - 1
	}, "all ones")
}

func TestWriteMasksHighBits(t *testing.T) {
	w := CreateWriter()
	require.NoError(t, w.Write(4, 0xFF))
	require.NoError(t, w.Write(4, 0x00))
	assert.Equal(t, []byte{0xF0}, w.Bytes())
}

func TestWriteInvalidCount(t *testing.T) {
	w := CreateWriter()
	require.Error(t, w.Write(0, 1))
	require.Error(t, w.Write(65, 1))
	_, err := CreateReader([]byte{0}).Read(65)
	require.Error(t, err)
}

func TestUnalignedBytes(t *testing.T) {
	w := CreateWriter()
	require.NoError(t, w.Write(3, 0b101))
	require.NoError(t, w.WriteBytes([]byte{0xFF, 0x01}))
	require.NoError(t, w.Align())
	require.Equal(t, []byte{0b10111111, 0b11100000, 0b00100000}, w.Bytes())

	r := CreateReader(w.Bytes())
	v, err := r.Read(3)
	require.NoError(t, err)
	require.Equal(t, uint64(0b101), v)
	data, err := r.ReadBytes(2)
	require.NoError(t, err)
	require.Equal(t, []byte{0xFF, 0x01}, data)
}

func TestBlocksAlign(t *testing.T) {
	w := CreateWriter()
	require.NoError(t, w.WriteBit(true))
	require.NoError(t, w.WriteBlock([]byte{0xAB, 0xCD}))
	require.Equal(t, []byte{0x80, 0xAB, 0xCD}, w.Bytes())
	require.Equal(t, uint64(24), w.NumWritten())

	r := CreateReader(w.Bytes())
	bit, err := r.ReadBit()
	require.NoError(t, err)
	require.True(t, bit)
	data, err := r.ReadBlock(2)
	require.NoError(t, err)
	require.Equal(t, []byte{0xAB, 0xCD}, data)
	require.True(t, r.IsAtEnd())
}

func TestReadPastEnd(t *testing.T) {
	r := CreateReader([]byte{0xA5})
	_, err := r.Read(4)
	require.NoError(t, err)
	require.Equal(t, uint64(4), r.BitsRemaining())

	_, err = r.Read(5)
	require.ErrorIs(t, err, asn.ErrTruncated)
	// Cursor unchanged after the failure.
	require.Equal(t, uint64(4), r.BitsRemaining())

	_, err = r.ReadBytes(1)
	require.ErrorIs(t, err, asn.ErrTruncated)
	_, err = r.ReadBlock(1)
	require.ErrorIs(t, err, asn.ErrTruncated)

	_, err = CreateReader(nil).ReadByte()
	require.ErrorIs(t, err, asn.ErrTruncated)
}

func TestPosition(t *testing.T) {
	r := CreateReader([]byte{0x01, 0x02, 0x03})
	b, err := r.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(0x01), b)
	mark := r.Position()

	_, err = r.Read(12)
	require.NoError(t, err)
	r.SetPosition(mark)
	b, err = r.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(0x02), b)

	r.SetPosition(100)
	require.True(t, r.IsAtEnd())
}

func TestTruncate(t *testing.T) {
	w := CreateWriter()
	require.NoError(t, w.WriteByte(0xAB))
	require.NoError(t, w.Write(1, 1))
	require.Equal(t, 2, w.Len())

	w.Truncate(1)
	require.True(t, w.IsAligned())
	require.Equal(t, uint64(8), w.NumWritten())
	require.NoError(t, w.WriteByte(0xCD))
	require.Equal(t, []byte{0xAB, 0xCD}, w.Bytes())

	w.Truncate(0)
	require.Nil(t, w.Bytes())
	require.Zero(t, w.Len())
}

func TestGrowZeroes(t *testing.T) {
	w := CreateWriter()
	require.NoError(t, w.WriteBytes(bytes.Repeat([]byte{0xFF}, 4)))
	w.Reset()
	require.NoError(t, w.Write(1, 1))
	require.NoError(t, w.Align())
	// Stale bytes from before Reset never leak into the output.
	require.Equal(t, []byte{0x80}, w.Bytes())

	w = CreateWriter()
	for rangeIdx := 0; rangeIdx < InitialBufferSize*3; rangeIdx++ {
		require.NoError(t, w.Write(5, 0))
	}
	require.NoError(t, w.Align())
	for _, b := range w.Bytes() {
		require.Zero(t, b)
	}
}

func TestTrace(t *testing.T) {
	level := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	defer zerolog.SetGlobalLevel(level)

	var out bytes.Buffer
	w := CreateWriter()
	w.SetLogger(zerolog.New(&out).Level(zerolog.TraceLevel))
	require.NoError(t, w.Write(3, 5))
	assert.Contains(t, out.String(), `"function":"Write"`)

	out.Reset()
	w.SetLogger(zerolog.New(&out).Level(zerolog.InfoLevel))
	require.NoError(t, w.Write(3, 5))
	assert.Empty(t, out.String())
}
