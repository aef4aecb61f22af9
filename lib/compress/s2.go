package compress

import "github.com/klauspost/compress/s2"

type S2Compressor struct {
	limit uint64
}

var _ Codec = (*S2Compressor)(nil)

func NewS2Compressor(limit uint64) S2Compressor {
	return S2Compressor{limit: limit}
}

func (c S2Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return s2.Encode(nil, data), nil
}

// Decompress checks the size recorded in the block header before
// allocating.
func (c S2Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	n, err := s2.DecodedLen(data)
	if err != nil {
		return nil, err
	}
	if uint64(n) > c.limit {
		return nil, tooLarge(uint64(n), c.limit)
	}
	return s2.Decode(nil, data)
}
