package lzw

// codeReader accumulates compressed bytes least-significant bit first and
// hands back fixed-width codes. Unlike a reader over a whole buffer it
// never looks ahead: bytes are pushed one at a time as sub-blocks arrive,
// and any bits short of a full code stay in datum until the next push.
type codeReader struct {
	datum uint32 // pending bits, oldest in the low end
	nBits uint   // number of valid bits in datum
}

// push appends one input byte above the pending bits.
func (r *codeReader) push(b byte) {
	r.datum |= uint32(b) << r.nBits
	r.nBits += 8
}

// next pops a code of the given width. ok is false when fewer than width
// bits are pending; the reader is left unchanged in that case.
func (r *codeReader) next(width uint) (code int, ok bool) {
	if r.nBits < width || width > MaxCodeBits {
		return 0, false
	}
	code = int(r.datum & bitMask[width])
	r.datum >>= width
	r.nBits -= width
	return code, true
}

// reset drops all pending bits.
func (r *codeReader) reset() {
	r.datum = 0
	r.nBits = 0
}

// bitMask maps a code width (0..12) to 2^n - 1.
var bitMask = [MaxCodeBits + 1]uint32{
	0x000, // 0
	0x001, // 1
	0x003, // 2
	0x007, // 3
	0x00f, // 4
	0x01f, // 5
	0x03f, // 6
	0x07f, // 7
	0x0ff, // 8
	0x1ff, // 9
	0x3ff, // 10
	0x7ff, // 11
	0xfff, // 12
}
