// Package asner encodes and decodes value trees built from lib/value with
// BER or PER.
package asner

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/thebagchi/asner/lib/asn"
	"github.com/thebagchi/asner/lib/ber"
	"github.com/thebagchi/asner/lib/value"
)

// Rules selects the encoding.
type Rules uint8

const (
	BER Rules = iota
	APER
	UPER
)

func (r Rules) String() string {
	switch r {
	case BER:
		return "ber"
	case APER:
		return "aper"
	case UPER:
		return "uper"
	}
	return fmt.Sprintf("Rules(%d)", uint8(r))
}

func ParseRules(name string) (Rules, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ber":
		return BER, nil
	case "aper":
		return APER, nil
	case "uper":
		return UPER, nil
	}
	return 0, fmt.Errorf("asner: unknown rules %q", name)
}

// Marshal returns the complete encoding of v.
func Marshal(v value.Value, rules Rules) ([]byte, error) {
	switch rules {
	case BER:
		e := ber.NewEncoder()
		if err := value.WriteBER(e, v); nil != err {
			return nil, err
		}
		return e.Bytes(), nil
	case APER, UPER:
		return value.WritePER(rules == APER, v)
	}
	return nil, fmt.Errorf("asner: %s: %w", rules, asn.ErrLogic)
}

// Unmarshal decodes data into v. BER input must hold exactly one element.
func Unmarshal(data []byte, rules Rules, limits asn.Limits, v value.Value) error {
	switch rules {
	case BER:
		d := ber.NewDecoder(data, limits)
		if err := value.ReadBER(d, v); nil != err {
			return err
		}
		if !d.IsAtEnd() {
			return asn.NewDecodeError(d.Position(), fmt.Sprintf("%d trailing octets", d.Remaining()), asn.ErrInvalidEncoding)
		}
		return nil
	case APER, UPER:
		return value.ReadPER(data, rules == APER, limits, v)
	}
	return fmt.Errorf("asner: %s: %w", rules, asn.ErrLogic)
}

// Fingerprint returns the xxHash64 of the BER encoding of v. Values that
// compare equal have the same fingerprint.
func Fingerprint(v value.Value) (uint64, error) {
	data, err := Marshal(v, BER)
	if nil != err {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}

// Parse reads a hex dump. Whitespace is ignored and '#' starts a comment
// running to the end of the line.
func Parse(filename string) ([]byte, error) {
	file, err := os.Open(filename)
	if nil != err {
		return nil, err
	}
	defer file.Close()

	var sb strings.Builder
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line, _, _ := strings.Cut(scanner.Text(), "#")
		for _, field := range strings.Fields(line) {
			sb.WriteString(field)
		}
	}
	if err := scanner.Err(); nil != err {
		return nil, err
	}
	data, err := hex.DecodeString(sb.String())
	if nil != err {
		return nil, fmt.Errorf("asner: %s: %w", filename, err)
	}
	return data, nil
}
