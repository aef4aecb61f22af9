package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/thebagchi/asner/lib/compress"
	"github.com/thebagchi/asner/lib/config"
	"github.com/thebagchi/asner/lib/tpkt"
)

var pdu = []byte{0x30, 0x06, 0x02, 0x01, 0x05, 0x01, 0x01, 0xFF}

func TestDump(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, dump(&out, pdu, config.Default(), zerolog.Nop()))
	require.Contains(t, out.String(), "[UNIVERSAL 16] {")
	require.Contains(t, out.String(), "[UNIVERSAL 2] 5")
	require.Equal(t, 1, strings.Count(out.String(), "fingerprint "))
}

func TestDumpFramed(t *testing.T) {
	test := func(compression string) {
		t.Helper()
		cfg := config.Default()
		cfg.Transport.TPKT = true
		cfg.Transport.Compression = compression
		kind, err := cfg.CompressionType()
		require.NoError(t, err)

		var framed bytes.Buffer
		conn, err := tpkt.NewConn(&framed, tpkt.WithCompression(kind))
		require.NoError(t, err)
		require.NoError(t, conn.Send(pdu))

		var out bytes.Buffer
		require.NoError(t, dump(&out, framed.Bytes(), cfg, zerolog.Nop()))
		require.Contains(t, out.String(), "[UNIVERSAL 1] TRUE")
	}
	test(compress.None.String())
	test("zstd")
	test("s2")
	test("lz4")
}

func TestDumpRules(t *testing.T) {
	cfg := config.Default()
	cfg.Codec.Rules = "uper"
	require.Error(t, dump(&bytes.Buffer{}, pdu, cfg, zerolog.Nop()))
}
