// Package wire implements the RFC 8446 §3 TLS presentation-language
// encoding used for every MLS struct that crosses the session boundary
// (RFC 9420 §3 borrows this encoding verbatim). There is no maintained
// third-party Go package for this specific wire format — it is narrow
// enough, and specific enough to MLS/TLS, that every known Go MLS
// implementation (including the archived cisco/go-mls) hand-rolls its
// own codec the same way the original Rust client pulls in a dedicated
// tls_codec crate rather than a general serialization library.
package wire

import (
	"encoding/binary"
	"fmt"
)

// Encoder accumulates TLS-encoded bytes.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder { return &Encoder{} }

// Bytes returns the accumulated wire bytes.
func (e *Encoder) Bytes() []byte { return e.buf }

// U8 appends a single byte.
func (e *Encoder) U8(v uint8) { e.buf = append(e.buf, v) }

// U16 appends a big-endian uint16.
func (e *Encoder) U16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

// U32 appends a big-endian uint32.
func (e *Encoder) U32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

// U64 appends a big-endian uint64.
func (e *Encoder) U64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	e.buf = append(e.buf, b[:]...)
}

// VarBytes appends a length-prefixed opaque vector, RFC 8446 <0..2^32-1>
// style: a u32 length followed by the raw bytes. MLS itself uses a
// variable-width length encoding (a la QUIC varints); we fix the width
// at 4 bytes throughout since nothing in this module needs to squeeze
// wire size, and a fixed width keeps the decoder trivially unambiguous.
func (e *Encoder) VarBytes(b []byte) {
	e.U32(uint32(len(b)))
	e.buf = append(e.buf, b...)
}

// VarBytesSlice appends a length-prefixed vector of opaque vectors.
func (e *Encoder) VarBytesSlice(items [][]byte) {
	e.U32(uint32(len(items)))
	for _, item := range items {
		e.VarBytes(item)
	}
}

// Decoder consumes TLS-encoded bytes sequentially.
type Decoder struct {
	buf []byte
	off int
}

// NewDecoder wraps b for sequential decoding.
func NewDecoder(b []byte) *Decoder { return &Decoder{buf: b} }

// Remaining reports how many bytes are left unconsumed.
func (d *Decoder) Remaining() int { return len(d.buf) - d.off }

func (d *Decoder) need(n int) error {
	if d.Remaining() < n {
		return fmt.Errorf("truncated: need %d bytes, have %d", n, d.Remaining())
	}
	return nil
}

// U8 reads a single byte.
func (d *Decoder) U8() (uint8, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	v := d.buf[d.off]
	d.off++
	return v, nil
}

// U16 reads a big-endian uint16.
func (d *Decoder) U16() (uint16, error) {
	if err := d.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(d.buf[d.off:])
	d.off += 2
	return v, nil
}

// U32 reads a big-endian uint32.
func (d *Decoder) U32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return v, nil
}

// U64 reads a big-endian uint64.
func (d *Decoder) U64() (uint64, error) {
	if err := d.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(d.buf[d.off:])
	d.off += 8
	return v, nil
}

// VarBytes reads a u32-length-prefixed opaque vector.
func (d *Decoder) VarBytes() ([]byte, error) {
	n, err := d.U32()
	if err != nil {
		return nil, err
	}
	if err := d.need(int(n)); err != nil {
		return nil, err
	}
	v := d.buf[d.off : d.off+int(n)]
	d.off += int(n)
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// VarBytesSlice reads a length-prefixed vector of opaque vectors.
func (d *Decoder) VarBytesSlice() ([][]byte, error) {
	n, err := d.U32()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, 0, n)
	for i := uint32(0); i < n; i++ {
		item, err := d.VarBytes()
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
