package linelog

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"io/ioutil"

	"github.com/pkg/errors"

	"go.linehist.dev/core/codecs"
)

// Persisted logs open with a fixed magic, a format version, and the Codec of
// the remaining stream. The compressed stream holds the big-endian encoded
// edit operations followed by a CRC-32C of those encoded bytes.
var logMagic = [4]byte{'L', 'L', 'O', 'G'}

const logVersion byte = 0x01

var (
	ErrBadMagic         = errors.New("not a linelog (bad magic)")
	ErrBadVersion       = errors.New("unsupported linelog version")
	ErrChecksumMismatch = errors.New("checksum mismatch")

	crcTable = crc32.MakeTable(crc32.Castagnoli)
)

// WriteTo encodes the Log to |w| using the Snappy codec.
// Log implements io.WriterTo.
func (l *Log) WriteTo(w io.Writer) (int64, error) { return l.writeTo(w, codecs.Snappy) }

// writeTo encodes the Log to |w| with |codec|.
func (l *Log) writeTo(w io.Writer, codec codecs.Codec) (int64, error) {
	var cw = &countingWriter{w: w}

	var header = []byte{logMagic[0], logMagic[1], logMagic[2], logMagic[3],
		logVersion, byte(codec)}
	if _, err := cw.Write(header); err != nil {
		return cw.n, errors.WithMessage(err, "writing header")
	}

	var payload bytes.Buffer
	writeI32(&payload, int32(len(l.ops)))
	for _, op := range l.ops {
		writeI32(&payload, op.Rev)
		writeI32(&payload, op.A1)
		writeI32(&payload, op.A2)
		writeI32(&payload, int32(len(op.Lines)))
		for _, ln := range op.Lines {
			writeI32(&payload, ln.Rev)
			writeI32(&payload, ln.Index)
		}
	}
	var sum = crc32.Checksum(payload.Bytes(), crcTable)

	var zw, err = codecs.NewCodecWriter(cw, codec)
	if err != nil {
		return cw.n, err
	}
	if _, err = zw.Write(payload.Bytes()); err != nil {
		return cw.n, errors.WithMessage(err, "writing ops")
	}
	var crc [4]byte
	binary.BigEndian.PutUint32(crc[:], sum)
	if _, err = zw.Write(crc[:]); err != nil {
		return cw.n, errors.WithMessage(err, "writing checksum")
	}
	return cw.n, errors.WithMessage(zw.Close(), "flushing codec")
}

// ReadFrom replaces the Log's contents with an encoding previously produced
// by WriteTo, replaying the decoded operations to rebuild its state.
// Log implements io.ReaderFrom.
func (l *Log) ReadFrom(r io.Reader) (int64, error) {
	var cr = &countingReader{r: r}

	var header [6]byte
	if _, err := io.ReadFull(cr, header[:]); err != nil {
		return cr.n, errors.WithMessage(err, "reading header")
	}
	if !bytes.Equal(header[:4], logMagic[:]) {
		return cr.n, ErrBadMagic
	} else if header[4] != logVersion {
		return cr.n, errors.WithMessagef(ErrBadVersion, "version %#x", header[4])
	}
	var codec = codecs.Codec(header[5])
	if err := codec.Validate(); err != nil {
		return cr.n, err
	}

	var zr, err = codecs.NewCodecReader(cr, codec)
	if err != nil {
		return cr.n, err
	}
	b, err := ioutil.ReadAll(zr)
	if err != nil {
		return cr.n, errors.WithMessage(err, "reading ops")
	} else if err = zr.Close(); err != nil {
		return cr.n, errors.WithMessage(err, "closing codec")
	} else if len(b) < 4 {
		return cr.n, errors.New("truncated linelog")
	}

	var payload, sum = b[:len(b)-4], binary.BigEndian.Uint32(b[len(b)-4:])
	if crc32.Checksum(payload, crcTable) != sum {
		return cr.n, ErrChecksumMismatch
	}

	var dec = decoder{b: payload}
	var nOps = dec.i32()
	var ops = make([]editOp, 0, nOps)

	for i := int32(0); i != nOps; i++ {
		var op = editOp{Rev: dec.i32(), A1: dec.i32(), A2: dec.i32()}
		var nLines = dec.i32()
		op.Lines = make([]Line, 0, nLines)
		for j := int32(0); j != nLines; j++ {
			op.Lines = append(op.Lines, Line{Rev: dec.i32(), Index: dec.i32()})
		}
		ops = append(ops, op)
	}
	if dec.err != nil {
		return cr.n, errors.WithMessage(dec.err, "decoding ops")
	}

	// Replay ops in order to rebuild the current annotation and max revision.
	var next = new(Log)
	for _, op := range ops {
		if err = next.ReplaceVec(op.Rev, op.A1, op.A2, op.Lines); err != nil {
			return cr.n, errors.WithMessage(err, "replaying op")
		}
	}
	*l = *next
	return cr.n, nil
}

func writeI32(b *bytes.Buffer, v int32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(v))
	b.Write(tmp[:])
}

type decoder struct {
	b   []byte
	err error
}

func (d *decoder) i32() int32 {
	if d.err != nil {
		return 0
	} else if len(d.b) < 4 {
		d.err = io.ErrUnexpectedEOF
		return 0
	}
	var v = int32(binary.BigEndian.Uint32(d.b[:4]))
	d.b = d.b[4:]
	return v
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	var n, err = c.w.Write(p)
	c.n += int64(n)
	return n, err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	var n, err = c.r.Read(p)
	c.n += int64(n)
	return n, err
}
