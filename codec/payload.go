package codec

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Writer appends fixed-width fields to a byte buffer. Writes into the
// underlying bytes.Buffer cannot fail, so the methods chain without errors.
type Writer struct {
	buf *bytes.Buffer
	enc *bin.Encoder
}

func NewWriter() *Writer {
	buf := new(bytes.Buffer)
	return &Writer{buf: buf, enc: bin.NewBinEncoder(buf)}
}

// NewPayload starts an instruction payload with its opcode byte.
func NewPayload(opcode uint8) *Writer {
	return NewWriter().U8(opcode)
}

func (w *Writer) U8(v uint8) *Writer {
	_ = w.enc.WriteUint8(v)
	return w
}

func (w *Writer) U64(v uint64) *Writer {
	_ = w.enc.WriteUint64(v, bin.LE)
	return w
}

// LegacyF64 writes a float into a slot kept only for layout compatibility.
func (w *Writer) LegacyF64(v float64) *Writer {
	_ = w.enc.WriteFloat64(v, bin.LE)
	return w
}

// Raw writes b verbatim.
func (w *Writer) Raw(b []byte) *Writer {
	_ = w.enc.WriteBytes(b, false)
	return w
}

func (w *Writer) Key(k solana.PublicKey) *Writer {
	return w.Raw(k[:])
}

// Bytes returns a copy of the bytes written so far.
func (w *Writer) Bytes() []byte {
	out := make([]byte, w.buf.Len())
	copy(out, w.buf.Bytes())
	return out
}
