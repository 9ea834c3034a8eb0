// Package pool recycles the two kinds of byte buffers a GIF decode churns
// through: LZW row buffers (a few KiB each) and canvas-sized pixel
// buffers. Buffers are grouped into power-of-two size classes so a
// returned buffer can serve any later request of the same class.
package pool

import (
	"math/bits"
	"sync"
)

const (
	// minClassBits is the smallest pooled class (4 KiB). Every LZW row
	// buffer is at least 4096 bytes, so nothing smaller is worth pooling.
	minClassBits = 12
	// maxClassBits is the largest pooled class (64 MiB). Larger canvases
	// are allocated and dropped directly.
	maxClassBits = 26

	numClasses = maxClassBits - minClassBits + 1
)

var classes [numClasses]sync.Pool

// class returns the size-class index for size and whether it is pooled.
func class(size int) (int, bool) {
	if size <= 1<<minClassBits {
		return 0, true
	}
	b := bits.Len(uint(size - 1))
	if b > maxClassBits {
		return 0, false
	}
	return b - minClassBits, true
}

// classSize returns the capacity of buffers in class c.
func classSize(c int) int {
	return 1 << (c + minClassBits)
}

// Get returns a byte slice of length size. Its contents are unspecified;
// use GetZeroed when the caller relies on a cleared buffer.
func Get(size int) []byte {
	c, ok := class(size)
	if !ok {
		return make([]byte, size)
	}
	if bp, _ := classes[c].Get().(*[]byte); bp != nil {
		return (*bp)[:size]
	}
	return make([]byte, size, classSize(c))
}

// GetZeroed returns a cleared byte slice of length size.
func GetZeroed(size int) []byte {
	b := Get(size)
	clear(b)
	return b
}

// Put hands b back for reuse. Slices that did not come from Get (their
// capacity is not exactly a class size) are dropped.
func Put(b []byte) {
	c, ok := class(cap(b))
	if !ok || cap(b) != classSize(c) {
		return
	}
	b = b[:cap(b)]
	classes[c].Put(&b)
}
