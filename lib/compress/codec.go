// Package compress provides the payload codecs a tpkt.Conn can apply to
// encoded PDUs before framing them.
//
// Every decompressor is built with an output limit so a hostile peer
// cannot expand a small frame into an unbounded allocation.
package compress

import (
	"fmt"
	"strings"

	"github.com/thebagchi/asner/lib/asn"
)

// Type identifies a compression algorithm.
type Type uint8

const (
	None Type = 0x1
	Zstd Type = 0x2
	S2   Type = 0x3
	LZ4  Type = 0x4
)

func (t Type) String() string {
	switch t {
	case None:
		return "None"
	case Zstd:
		return "Zstd"
	case S2:
		return "S2"
	case LZ4:
		return "LZ4"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// ParseType maps a configuration name to a Type. The empty string is None.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return None, nil
	case "zstd":
		return Zstd, nil
	case "s2":
		return S2, nil
	case "lz4":
		return LZ4, nil
	default:
		return 0, fmt.Errorf("compress: unknown type %q", name)
	}
}

// Compressor compresses one payload. The returned slice is owned by the
// caller.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor reverses Compressor. Output larger than the codec's limit
// is rejected with asn.ErrConstraintViolation.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions.
type Codec interface {
	Compressor
	Decompressor
}

// CreateCodec returns the codec for t. limit bounds decompressed output;
// zero means asn.DefaultMaxMessageSize.
func CreateCodec(t Type, limit uint64) (Codec, error) {
	if limit == 0 {
		limit = asn.DefaultMaxMessageSize
	}
	switch t {
	case None:
		return NewNoOpCompressor(), nil
	case Zstd:
		return NewZstdCompressor(limit)
	case S2:
		return NewS2Compressor(limit), nil
	case LZ4:
		return NewLZ4Compressor(limit), nil
	default:
		return nil, fmt.Errorf("compress: invalid type %s", t)
	}
}

func tooLarge(n, limit uint64) error {
	return fmt.Errorf("%w: decompressed size %d exceeds %d", asn.ErrConstraintViolation, n, limit)
}
