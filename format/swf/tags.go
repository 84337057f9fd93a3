package swf

import (
	"github.com/tyrese/avmux/av/avio"
	"github.com/tyrese/avmux/utils/bits"
)

const (
	TagEnd          = 0
	TagShowFrame    = 1
	TagDefineShape  = 2
	TagFreeChar     = 3
	TagPlaceObject  = 4
	TagRemoveObject = 5
	TagStreamHead   = 18
	TagStreamBlock  = 19
	TagJPEG2        = 21

	// shape record flags
	flagMoveTo   = 0x01
	flagSetFill0 = 0x02

	fracBits = 16
)

// putTag writes a record header and its body. Bodies of 63 bytes or more,
// and tags that players expect in long form, use the 32 bit length.
func putTag(w *avio.Writer, code int, body []byte, long bool) {
	if long || len(body) >= 0x3f {
		w.WriteU16LE(uint16(code<<6 | 0x3f))
		w.WriteU32LE(uint32(len(body)))
	} else {
		w.WriteU16LE(uint16(code<<6 | len(body)))
	}
	w.Write(body)
}

func putSigned(p *bits.Packer, n int, v int) {
	p.PutBits64(n, uint64(int64(v)))
}

// rect is a RECT record; coordinates are in twips.
func rect(xmin, xmax, ymin, ymax int) []byte {
	p := bits.NewPacker()
	n := bits.SignedBits(0, xmin, xmax, ymin, ymax)
	p.PutBits(5, uint32(n))
	putSigned(p, n, xmin)
	putSigned(p, n, xmax)
	putSigned(p, n, ymin)
	putSigned(p, n, ymax)
	p.Flush()
	return p.Bytes()
}

// matrix is a MATRIX record with 16.16 scale and rotate terms.
func matrix(a, b, c, d, tx, ty int) []byte {
	p := bits.NewPacker()

	p.PutBits(1, 1)
	n := bits.SignedBits(1, a, d)
	p.PutBits(5, uint32(n))
	putSigned(p, n, a)
	putSigned(p, n, d)

	p.PutBits(1, 1)
	n = bits.SignedBits(1, c, b)
	p.PutBits(5, uint32(n))
	putSigned(p, n, c)
	putSigned(p, n, b)

	n = bits.SignedBits(1, tx, ty)
	p.PutBits(5, uint32(n))
	putSigned(p, n, tx)
	putSigned(p, n, ty)

	p.Flush()
	return p.Bytes()
}

// lineEdge appends a straight edge record.
func lineEdge(p *bits.Packer, dx, dy int) {
	p.PutBits(1, 1)
	p.PutBits(1, 1)
	n := bits.SignedBits(2, dx, dy)
	p.PutBits(4, uint32(n-2))
	switch {
	case dx == 0:
		p.PutBits(1, 0)
		p.PutBits(1, 1)
		putSigned(p, n, dy)
	case dy == 0:
		p.PutBits(1, 0)
		p.PutBits(1, 0)
		putSigned(p, n, dx)
	default:
		p.PutBits(1, 1)
		putSigned(p, n, dx)
		putSigned(p, n, dy)
	}
}

// defineShape is a rectangle of the given size filled with the clipped
// bitmap bitmapID.
func defineShape(shapeID, bitmapID uint16, width, height int) []byte {
	w, buf := avio.NewMemWriter()
	w.WriteU16LE(shapeID)
	w.Write(rect(0, width, 0, height))
	// one clipped bitmap fill style
	w.WriteU8(1)
	w.WriteU8(0x41)
	w.WriteU16LE(bitmapID)
	w.Write(matrix(1<<fracBits, 0, 0, 1<<fracBits, 0, 0))
	// no line style
	w.WriteU8(0)

	p := bits.NewPacker()
	p.PutBits(4, 1)
	p.PutBits(4, 0)
	p.PutBits(1, 0)
	p.PutBits(5, flagMoveTo|flagSetFill0)
	p.PutBits(5, 1)
	p.PutBits(1, 0)
	p.PutBits(1, 0)
	p.PutBits(1, 1)
	lineEdge(p, width, 0)
	lineEdge(p, 0, height)
	lineEdge(p, -width, 0)
	lineEdge(p, 0, -height)
	p.PutBits(1, 0)
	p.PutBits(5, 0)
	p.Flush()
	w.Write(p.Bytes())

	w.Flush()
	return buf.Bytes()
}
