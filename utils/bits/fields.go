package bits

// Field is one entry of a bit-packed record.
type Field struct {
	Width int
	Value uint64
}

// Fields describes a record as a list of (width, value) pairs, most significant first.
type Fields []Field

func (self Fields) Bits() (n int) {
	for _, f := range self {
		n += f.Width
	}
	return
}

func (self Fields) PackTo(p *Packer) {
	for _, f := range self {
		p.PutBits64(f.Width, f.Value&mask(f.Width))
	}
}

// Marshal packs the record and pads it to a whole byte.
func (self Fields) Marshal() []byte {
	p := NewPacker()
	self.PackTo(p)
	p.Flush()
	return p.Bytes()
}

func mask(n int) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(n) - 1
}

// SignedBits is the number of bits needed to store v as a two's complement field,
// never less than min.
func SignedBits(min int, vals ...int) int {
	n := min
	for _, v := range vals {
		if v == 0 {
			continue
		}
		if v < 0 {
			v = -v
		}
		k := 1
		for v != 0 {
			k++
			v >>= 1
		}
		if k > n {
			n = k
		}
	}
	return n
}
