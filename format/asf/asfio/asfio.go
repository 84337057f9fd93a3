// Package asfio holds the ASF object identifiers and low level record
// helpers shared by the muxer and its tests.
package asfio

import (
	"unicode/utf16"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/tyrese/avmux/utils/bits/pio"
)

// GUID is a 16 byte identifier in Microsoft binary layout: the first three
// groups little endian, the last eight bytes as is.
type GUID [16]byte

// FromUUID converts a RFC 4122 (big endian) uuid to the binary layout.
func FromUUID(u uuid.UUID) (g GUID) {
	g[0], g[1], g[2], g[3] = u[3], u[2], u[1], u[0]
	g[4], g[5] = u[5], u[4]
	g[6], g[7] = u[7], u[6]
	copy(g[8:], u[8:])
	return
}

func (self GUID) UUID() (u uuid.UUID) {
	u[0], u[1], u[2], u[3] = self[3], self[2], self[1], self[0]
	u[4], u[5] = self[5], self[4]
	u[6], u[7] = self[7], self[6]
	copy(u[8:], self[8:])
	return
}

func (self GUID) String() string {
	return self.UUID().String()
}

func MustParseGUID(s string) GUID {
	return FromUUID(uuid.MustParse(s))
}

// NewFileID returns a random file identifier.
func NewFileID() GUID {
	return FromUUID(uuid.New())
}

var (
	HeaderObject             = MustParseGUID("75B22630-668E-11CF-A6D9-00AA0062CE6C")
	DataObject               = MustParseGUID("75B22636-668E-11CF-A6D9-00AA0062CE6C")
	SimpleIndexObject        = MustParseGUID("33000890-E5B1-11CF-89F4-00A0C90349CB")
	FilePropertiesObject     = MustParseGUID("8CABDCA1-A947-11CF-8EE4-00C00C205365")
	StreamPropertiesObject   = MustParseGUID("B7DC0791-A9B7-11CF-8EE6-00C00C205365")
	HeaderExtensionObject    = MustParseGUID("5FBF03B5-A92E-11CF-8EE3-00C00C205365")
	HeaderExtensionReserved  = MustParseGUID("ABD3D211-A9BA-11CF-8EE6-00C00C205365")
	CodecListObject          = MustParseGUID("86D15240-311D-11D0-A3A4-00A0C90348F6")
	CodecListReserved        = MustParseGUID("86D15241-311D-11D0-A3A4-00A0C90348F6")
	ContentDescriptionObject = MustParseGUID("75B22633-668E-11CF-A6D9-00AA0062CE6C")
	AudioMedia               = MustParseGUID("F8699E40-5B4D-11CF-A8FD-00805F5C442B")
	VideoMedia               = MustParseGUID("BC19EFC0-5B4D-11CF-A8FD-00805F5C442B")
	NoErrorCorrection        = MustParseGUID("20FB5700-5B55-11CF-A8FD-00805F5C442B")
	AudioSpread              = MustParseGUID("BFC3CD50-618F-11CF-8BB2-00AA00B4E220")
)

const (
	ObjectHeaderSize = 24
	DataHeaderSize   = 50
	ChunkHeaderSize  = 12
)

// Streamed chunk types.
const (
	ChunkHeader = 0x4824
	ChunkData   = 0x4424
	ChunkEnd    = 0x4524
)

// Str16 encodes s as NUL terminated UTF-16LE.
func Str16(s string) []byte {
	u := utf16.Encode([]rune(s))
	b := make([]byte, 2*len(u)+2)
	for i, c := range u {
		pio.PutU16LE(b[2*i:], c)
	}
	return b
}

// ParseStr16 decodes NUL terminated or plain UTF-16LE.
func ParseStr16(b []byte) string {
	u := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		c := pio.U16LE(b[i:])
		if c == 0 {
			break
		}
		u = append(u, c)
	}
	return string(utf16.Decode(u))
}

// Object is a top level object found by ParseObjects.
type Object struct {
	GUID   GUID
	Offset int
	Size   int
}

// Body returns the object bytes after the 24 byte object header.
func (self Object) Body(b []byte) []byte {
	return b[self.Offset+ObjectHeaderSize : self.Offset+self.Size]
}

// ParseObjects walks a sequence of objects in b. Data objects are assumed to
// run to the declared size.
func ParseObjects(b []byte) (objs []Object, err error) {
	off := 0
	for off < len(b) {
		if len(b)-off < ObjectHeaderSize {
			err = errors.Errorf("asfio: truncated object header at %d", off)
			return
		}
		var o Object
		copy(o.GUID[:], b[off:])
		o.Offset = off
		o.Size = int(pio.U64LE(b[off+16:]))
		if o.Size < ObjectHeaderSize || o.Size > len(b)-off {
			err = errors.Errorf("asfio: object %v at %d has bad size %d", o.GUID, off, o.Size)
			return
		}
		objs = append(objs, o)
		off += o.Size
	}
	return
}

// Chunk is a streamed mode record header.
type Chunk struct {
	Type   uint16
	Length int
	Seq    uint32
	Flags  uint16
}

// PutChunk encodes a chunk header for a payload of n bytes.
func PutChunk(b []byte, typ uint16, n int, seq uint32, flags uint16) {
	pio.PutU16LE(b[0:], typ)
	pio.PutU16LE(b[2:], uint16(n+8))
	pio.PutU32LE(b[4:], seq)
	pio.PutU16LE(b[8:], flags)
	pio.PutU16LE(b[10:], uint16(n+8))
}

// ParseChunk decodes a chunk header and returns its payload size.
func ParseChunk(b []byte) (c Chunk, n int, err error) {
	if len(b) < ChunkHeaderSize {
		err = errors.New("asfio: truncated chunk header")
		return
	}
	c.Type = pio.U16LE(b[0:])
	c.Length = int(pio.U16LE(b[2:]))
	c.Seq = pio.U32LE(b[4:])
	c.Flags = pio.U16LE(b[8:])
	if c.Length != int(pio.U16LE(b[10:])) || c.Length < 8 {
		err = errors.Errorf("asfio: chunk length mismatch %d", c.Length)
		return
	}
	n = c.Length - 8
	return
}
