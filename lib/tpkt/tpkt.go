// Package tpkt implements RFC 1006 framing: a four byte header (version 3,
// a reserved byte, and the big-endian length of the whole packet) in
// front of each encoded PDU.
package tpkt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/thebagchi/asner/lib/asn"
)

// Version is the only TPKT version in use.
const Version uint8 = 3

const (
	HeaderLen   = 4
	MaxFrameLen = 0xFFFF
	MaxPayload  = MaxFrameLen - HeaderLen
)

var (
	ErrShortHeader     = errors.New("tpkt: short header")
	ErrBadVersion      = errors.New("tpkt: unsupported version")
	ErrLengthTooSmall  = errors.New("tpkt: length smaller than header")
	ErrPayloadTooLarge = errors.New("tpkt: payload too large")
)

// Header is the fixed RFC 1006 header. Length counts the header itself.
type Header struct {
	Version  uint8
	Reserved uint8
	Length   uint16
}

// PayloadLen returns the number of bytes following the header.
func (h Header) PayloadLen() int {
	return int(h.Length) - HeaderLen
}

func EncodeHeader(payloadLen int) ([]byte, error) {
	if payloadLen < 0 || payloadLen > MaxPayload {
		return nil, ErrPayloadTooLarge
	}
	buf := make([]byte, HeaderLen)
	buf[0] = Version
	binary.BigEndian.PutUint16(buf[2:4], uint16(payloadLen+HeaderLen))
	return buf, nil
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) != HeaderLen {
		return Header{}, fmt.Errorf("tpkt: invalid header length: %d", len(b))
	}
	h := Header{
		Version:  b[0],
		Reserved: b[1],
		Length:   binary.BigEndian.Uint16(b[2:4]),
	}
	if h.Version != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrBadVersion, h.Version)
	}
	if h.Length < HeaderLen {
		return Header{}, ErrLengthTooSmall
	}
	return h, nil
}

// ReadFrame reads one frame and returns its payload. The payload length is
// checked against limits before it is allocated.
func ReadFrame(r io.Reader, limits asn.Limits) ([]byte, error) {
	var fixed [HeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortHeader
		}
		return nil, err
	}
	h, err := DecodeHeader(fixed[:])
	if err != nil {
		return nil, err
	}
	n := h.PayloadLen()
	if err := limits.CheckMessageSize(uint64(n)); err != nil {
		return nil, err
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("tpkt: read payload: %w", asn.ErrTruncated)
		}
		return nil, err
	}
	return payload, nil
}

// WriteFrame writes payload as one frame.
func WriteFrame(w io.Writer, payload []byte) error {
	header, err := EncodeHeader(len(payload))
	if err != nil {
		return err
	}
	if _, err := w.Write(header); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return err
		}
	}
	return nil
}
