package pio

// Vec is a byte queue made of caller owned slices. Slicing never copies.
type Vec [][]byte

func (self Vec) Len() (n int) {
	for _, b := range self {
		n += len(b)
	}
	return
}

// Slice returns the bytes in [s, e). e < 0 means up to the end.
func (self Vec) Slice(s int, e int) (out Vec) {
	if s < 0 {
		s = 0
	}
	if e >= 0 && e < s {
		panic("pio: Vec.Slice start > end")
	}

	off := 0
	for _, b := range self {
		lo, hi := off, off+len(b)
		off = hi
		if hi <= s {
			continue
		}
		if e >= 0 && lo >= e {
			break
		}
		from := 0
		if s > lo {
			from = s - lo
		}
		to := len(b)
		if e >= 0 && e < hi {
			to = e - lo
		}
		if to > from {
			out = append(out, b[from:to])
		}
	}
	if s > off || e > off {
		panic("pio: Vec.Slice out of range")
	}
	return
}

// Drop removes the first n bytes.
func (self Vec) Drop(n int) Vec {
	return self.Slice(n, -1)
}

// CopyTo copies the queue into b and returns the number of bytes copied.
func (self Vec) CopyTo(b []byte) (n int) {
	for _, v := range self {
		n += copy(b[n:], v)
		if n == len(b) {
			break
		}
	}
	return
}
