package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thebagchi/asner/lib/asn"
)

func TestCodecRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte{0x30, 0x0A, 0x02, 0x01, 0x05, 0x04, 0x05, 'h', 'e', 'l', 'l', 'o'}, 64)

	test := func(kind Type) {
		t.Run(kind.String(), func(t *testing.T) {
			codec, err := CreateCodec(kind, 0)
			require.NoError(t, err)

			compressed, err := codec.Compress(payload)
			require.NoError(t, err)
			if kind != None {
				require.Less(t, len(compressed), len(payload))
			}

			decompressed, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.Equal(t, payload, decompressed)
		})
	}
	test(None)
	test(Zstd)
	test(S2)
	test(LZ4)
}

func TestDecompressLimit(t *testing.T) {
	payload := make([]byte, 4096)

	test := func(kind Type) {
		t.Run(kind.String(), func(t *testing.T) {
			writer, err := CreateCodec(kind, 0)
			require.NoError(t, err)
			compressed, err := writer.Compress(payload)
			require.NoError(t, err)

			reader, err := CreateCodec(kind, 1024)
			require.NoError(t, err)
			_, err = reader.Decompress(compressed)
			require.Error(t, err)
		})
	}
	test(S2)
	test(LZ4)
	test(Zstd)

	// S2 reads the decoded size up front.
	writer, _ := CreateCodec(S2, 0)
	compressed, _ := writer.Compress(payload)
	reader, _ := CreateCodec(S2, 1024)
	_, err := reader.Decompress(compressed)
	require.ErrorIs(t, err, asn.ErrConstraintViolation)
}

func TestParseType(t *testing.T) {
	test := func(name string, expected Type) {
		t.Run(name, func(t *testing.T) {
			kind, err := ParseType(name)
			require.NoError(t, err)
			require.Equal(t, expected, kind)
		})
	}
	test("", None)
	test("none", None)
	test("ZSTD", Zstd)
	test("s2", S2)
	test(" lz4 ", LZ4)

	_, err := ParseType("brotli")
	require.Error(t, err)
	_, err = CreateCodec(Type(9), 0)
	require.Error(t, err)
}
