package asner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thebagchi/asner/lib/asn"
	"github.com/thebagchi/asner/lib/value"
)

func newMessage() *value.Sequence {
	return value.NewSequence([]value.Field{
		{Name: "version", Value: value.NewInteger(value.WithConstraint(asn.Range(0, 7)))},
		{Name: "name", Value: value.NewIA5String(value.WithConstraint(asn.Size(1, 32)))},
		{Name: "oid", Value: value.NewObjectIdentifier(), Optional: true},
	}, true)
}

func TestParseRules(t *testing.T) {
	test := func(name string, expected Rules) {
		t.Helper()
		rules, err := ParseRules(name)
		require.NoError(t, err)
		require.Equal(t, expected, rules)
		require.Equal(t, rules.String(), expected.String())
	}
	test("ber", BER)
	test("APER", APER)
	test(" uper ", UPER)
	_, err := ParseRules("xer")
	require.Error(t, err)
}

func TestMarshal(t *testing.T) {
	m := newMessage()
	m.Field(0).(*value.Integer).SetValue(3)
	m.Field(1).(*value.CharString).SetValue("probe")
	m.IncludeOptionalField(2)
	require.NoError(t, m.Field(2).(*value.ObjectIdentifier).SetString("2.100.3"))

	for _, rules := range []Rules{BER, APER, UPER} {
		data, err := Marshal(m, rules)
		require.NoError(t, err)
		out := newMessage()
		require.NoError(t, Unmarshal(data, rules, asn.DefaultLimits(), out))
		require.True(t, value.Equal(m, out), "%s: %s != %s", rules, m, out)
	}

	data, err := Marshal(m, BER)
	require.NoError(t, err)
	err = Unmarshal(append(data, 0x05, 0x00), BER, asn.DefaultLimits(), newMessage())
	require.ErrorIs(t, err, asn.ErrInvalidEncoding)

	_, err = Marshal(m, Rules(9))
	require.ErrorIs(t, err, asn.ErrLogic)
}

func TestFingerprint(t *testing.T) {
	a := newMessage()
	a.Field(1).(*value.CharString).SetValue("x")
	b := newMessage()
	b.Field(1).(*value.CharString).SetValue("x")

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fb, err := Fingerprint(b)
	require.NoError(t, err)
	require.Equal(t, fa, fb)

	b.Field(1).(*value.CharString).SetValue("y")
	fb, err = Fingerprint(b)
	require.NoError(t, err)
	require.NotEqual(t, fa, fb)
}

func TestParse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pdu.hex")
	body := "# header\n30 06 02 01 05\n  01 01 ff # flag\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	data, err := Parse(path)
	require.NoError(t, err)
	require.Equal(t, []byte{0x30, 0x06, 0x02, 0x01, 0x05, 0x01, 0x01, 0xFF}, data)

	require.NoError(t, os.WriteFile(path, []byte("30 0"), 0o600))
	_, err = Parse(path)
	require.Error(t, err)

	_, err = Parse(filepath.Join(t.TempDir(), "missing.hex"))
	require.Error(t, err)
}
