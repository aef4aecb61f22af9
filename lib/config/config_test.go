package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thebagchi/asner/lib/asn"
	"github.com/thebagchi/asner/lib/compress"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "asner.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, asn.DefaultLimits(), cfg.DecodeLimits())
	kind, err := cfg.CompressionType()
	require.NoError(t, err)
	require.Equal(t, compress.None, kind)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[codec]
rules = " UPER "

[limits]
max_array_size = 16

[transport]
tpkt = true
compression = "zstd"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "uper", cfg.Codec.Rules)
	require.Equal(t, uint64(16), cfg.Limits.MaxArraySize)
	require.Equal(t, uint64(asn.DefaultMaxStringSize), cfg.Limits.MaxStringSize)
	require.True(t, cfg.Transport.TPKT)
	require.Equal(t, "info", cfg.Log.Level)
	kind, err := cfg.CompressionType()
	require.NoError(t, err)
	require.Equal(t, compress.Zstd, kind)
}

func TestLoadErrors(t *testing.T) {
	test := func(body string) {
		t.Helper()
		_, err := Load(writeConfig(t, body))
		require.Error(t, err)
	}
	test("[codec]\nrules = \"xer\"\n")
	test("[limits]\nmax_array_size = 0\n")
	test("[limits]\nmax_string_size = 4096\nmax_message_size = 1024\n")
	test("[transport]\ncompression = \"brotli\"\n")
	test("[log]\nlevel = \"loud\"\n")
	test("[codec]\nrule = \"ber\"\n")
	test("not toml")

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvLogLevel, "Debug")
	t.Setenv(EnvRules, "aper")
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "aper", cfg.Codec.Rules)

	t.Setenv(EnvRules, "der")
	cfg = Default()
	require.Error(t, cfg.ApplyEnv())
}
