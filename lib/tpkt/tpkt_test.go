package tpkt

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thebagchi/asner/lib/asn"
	"github.com/thebagchi/asner/lib/compress"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte{0x30, 0x03, 0x02, 0x01, 0x07}))
	require.Equal(t, []byte{0x03, 0x00, 0x00, 0x09}, buf.Bytes()[:4])

	payload, err := ReadFrame(&buf, asn.DefaultLimits())
	require.NoError(t, err)
	require.Equal(t, []byte{0x30, 0x03, 0x02, 0x01, 0x07}, payload)

	_, err = ReadFrame(&buf, asn.DefaultLimits())
	require.ErrorIs(t, err, io.EOF)
}

func TestEmptyFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, nil))
	payload, err := ReadFrame(&buf, asn.DefaultLimits())
	require.NoError(t, err)
	require.Empty(t, payload)
}

func TestMalformedFrames(t *testing.T) {
	test := func(data []byte, target error, description string) {
		t.Run(description, func(t *testing.T) {
			_, err := ReadFrame(bytes.NewReader(data), asn.DefaultLimits())
			require.ErrorIs(t, err, target)
		})
	}
	test([]byte{0x03, 0x00}, ErrShortHeader, "short header")
	test([]byte{0x02, 0x00, 0x00, 0x05, 0x00}, ErrBadVersion, "bad version")
	test([]byte{0x03, 0x00, 0x00, 0x03}, ErrLengthTooSmall, "length below header")
	test([]byte{0x03, 0x00, 0x00, 0x08, 0x01}, asn.ErrTruncated, "truncated payload")
}

func TestFrameLimits(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, make([]byte, 100)))
	_, err := ReadFrame(&buf, asn.Limits{MaxMessageSize: 50})
	require.ErrorIs(t, err, asn.ErrConstraintViolation)

	require.ErrorIs(t, WriteFrame(&buf, make([]byte, MaxPayload+1)), ErrPayloadTooLarge)
}

func TestConn(t *testing.T) {
	test := func(kind compress.Type) {
		t.Run(kind.String(), func(t *testing.T) {
			var buf bytes.Buffer
			conn, err := NewConn(&buf, WithLimits(asn.DefaultLimits()), WithCompression(kind))
			require.NoError(t, err)

			pdu := bytes.Repeat([]byte{0xA0, 0x01, 0x02}, 100)
			require.NoError(t, conn.Send(pdu))
			require.NoError(t, conn.Send([]byte{0x05, 0x00}))

			got, err := conn.Receive()
			require.NoError(t, err)
			require.Equal(t, pdu, got)
			got, err = conn.Receive()
			require.NoError(t, err)
			require.Equal(t, []byte{0x05, 0x00}, got)
		})
	}
	test(compress.None)
	test(compress.Zstd)
	test(compress.S2)
	test(compress.LZ4)
}
