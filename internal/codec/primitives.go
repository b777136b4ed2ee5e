package codec

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// reader decodes Borsh primitives and records the first failure as a DecodeError.
type reader struct {
	dec    *bin.Decoder
	size   int
	base   int // offset of the decoder's first byte within the whole payload
	layout *Layout
	err    error
}

func newReader(layout *Layout, payload []byte, base int) *reader {
	return &reader{
		dec:    bin.NewBorshDecoder(payload),
		size:   len(payload),
		base:   base,
		layout: layout,
	}
}

func (r *reader) offset() int {
	return r.base + r.size - r.dec.Remaining()
}

func (r *reader) remaining() int {
	return r.dec.Remaining()
}

func (r *reader) fail(field string, offset int, err error) {
	if r.err != nil {
		return
	}
	r.err = &DecodeError{
		Layout:        r.layout.Name,
		Discriminator: r.layout.Discriminator,
		Field:         field,
		Offset:        offset,
		Err:           err,
	}
}

func (r *reader) u64(field string) uint64 {
	if r.err != nil {
		return 0
	}
	off := r.offset()
	v, err := r.dec.ReadUint64(bin.LE)
	if err != nil {
		r.fail(field, off, err)
		return 0
	}
	return v
}

func (r *reader) i64(field string) int64 {
	if r.err != nil {
		return 0
	}
	off := r.offset()
	v, err := r.dec.ReadInt64(bin.LE)
	if err != nil {
		r.fail(field, off, err)
		return 0
	}
	return v
}

func (r *reader) boolean(field string) bool {
	if r.err != nil {
		return false
	}
	off := r.offset()
	b, err := r.dec.ReadUint8()
	if err != nil {
		r.fail(field, off, err)
		return false
	}
	if b > 1 {
		r.fail(field, off, fmt.Errorf("invalid bool byte %d", b))
		return false
	}
	return b == 1
}

func (r *reader) pubkey(field string) solana.PublicKey {
	if r.err != nil {
		return solana.PublicKey{}
	}
	off := r.offset()
	b, err := r.dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		r.fail(field, off, err)
		return solana.PublicKey{}
	}
	return solana.PublicKeyFromBytes(b)
}

// str reads a u32 length-prefixed UTF-8 string.
func (r *reader) str(field string) string {
	if r.err != nil {
		return ""
	}
	off := r.offset()
	n, err := r.dec.ReadUint32(bin.LE)
	if err != nil {
		r.fail(field, off, err)
		return ""
	}
	if int64(n) > int64(r.dec.Remaining()) {
		r.fail(field, off, fmt.Errorf("string length %d exceeds remaining %d bytes", n, r.dec.Remaining()))
		return ""
	}
	b, err := r.dec.ReadNBytes(int(n))
	if err != nil {
		r.fail(field, off, err)
		return ""
	}
	return string(b)
}

// writer encodes Borsh primitives, keeping the first error.
type writer struct {
	buf bytes.Buffer
	enc *bin.Encoder
	err error
}

func newWriter(prefix ...Discriminator) *writer {
	w := &writer{}
	w.enc = bin.NewBorshEncoder(&w.buf)
	for _, d := range prefix {
		w.buf.Write(d[:])
	}
	return w
}

func (w *writer) u64(v uint64) {
	if w.err == nil {
		w.err = w.enc.WriteUint64(v, bin.LE)
	}
}

func (w *writer) i64(v int64) {
	if w.err == nil {
		w.err = w.enc.WriteInt64(v, bin.LE)
	}
}

func (w *writer) boolean(v bool) {
	if w.err == nil {
		w.err = w.enc.WriteBool(v)
	}
}

func (w *writer) pubkey(v solana.PublicKey) {
	if w.err == nil {
		w.err = w.enc.WriteBytes(v[:], false)
	}
}

func (w *writer) str(v string) {
	if w.err != nil {
		return
	}
	if w.err = w.enc.WriteUint32(uint32(len(v)), bin.LE); w.err == nil {
		w.err = w.enc.WriteBytes([]byte(v), false)
	}
}

func (w *writer) bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf.Bytes(), nil
}
