package tpkt

import (
	"fmt"
	"io"
	"sync"

	"github.com/thebagchi/asner/lib/asn"
	"github.com/thebagchi/asner/lib/compress"
)

// Conn sends and receives framed PDUs over a byte stream, optionally
// compressing each payload. Send and Receive may be used from different
// goroutines; concurrent calls in the same direction are serialized.
type Conn struct {
	rw     io.ReadWriter
	limits asn.Limits
	codec  compress.Codec

	rmu sync.Mutex
	wmu sync.Mutex
}

type Option func(*Conn) error

// WithLimits sets the decode limits applied to incoming frames.
func WithLimits(limits asn.Limits) Option {
	return func(c *Conn) error {
		c.limits = limits
		return nil
	}
}

// WithCompression compresses every payload with kind. Both peers must
// agree on it.
func WithCompression(kind compress.Type) Option {
	return func(c *Conn) error {
		codec, err := compress.CreateCodec(kind, c.limits.MaxMessageSize)
		if err != nil {
			return err
		}
		c.codec = codec
		return nil
	}
}

// NewConn wraps rw. Options are applied in order, so WithLimits should
// come before WithCompression.
func NewConn(rw io.ReadWriter, opts ...Option) (*Conn, error) {
	c := &Conn{
		rw:     rw,
		limits: asn.DefaultLimits(),
		codec:  compress.NewNoOpCompressor(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Send writes one PDU.
func (c *Conn) Send(pdu []byte) error {
	payload, err := c.codec.Compress(pdu)
	if err != nil {
		return fmt.Errorf("tpkt: compress: %w", err)
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return WriteFrame(c.rw, payload)
}

// Receive reads one PDU.
func (c *Conn) Receive() ([]byte, error) {
	c.rmu.Lock()
	payload, err := ReadFrame(c.rw, c.limits)
	c.rmu.Unlock()
	if err != nil {
		return nil, err
	}
	pdu, err := c.codec.Decompress(payload)
	if err != nil {
		return nil, fmt.Errorf("tpkt: decompress: %w", err)
	}
	return pdu, nil
}
