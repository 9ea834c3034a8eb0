// Package lzw implements the resumable variable-width LZW decompressor used
// for GIF image data.
//
// A Context is fed one data sub-block at a time and may be suspended
// between any two sub-blocks (and therefore in the middle of a code, or a
// row) until more input arrives. Every time a full row of colour indices
// is available it is handed to a RowWriter along with its destination row
// number, which accounts for the four-pass interlace order.
package lzw

import (
	"errors"

	"github.com/deepteams/gif/internal/pool"
)

const (
	// MaxCodeBits is the widest code GIF permits.
	MaxCodeBits = 12
	// MaxDictionaryEntries is the size of the code table.
	MaxDictionaryEntries = 1 << MaxCodeBits
)

var (
	ErrCodeSize     = errors.New("gif: invalid LZW minimum code size")
	ErrInvalidCode  = errors.New("gif: invalid LZW code")
	ErrRowRejected  = errors.New("gif: row writer rejected decoded row")
	ErrInvalidFrame = errors.New("gif: invalid frame dimensions")
)

// RowWriter receives decoded rows. row holds exactly one row of colour
// table indices for the frame and is only valid for the duration of the
// call. repeatCount is greater than one when the row should also fill the
// rows below it (progressive interlace display), and writeTransparentPixels
// asks the writer to store transparent pixels instead of skipping them.
// Returning false aborts decoding.
type RowWriter interface {
	HaveDecodedRow(frameIndex int, row []byte, rowNumber, repeatCount int, writeTransparentPixels bool) bool
}

// RowWriterFunc adapts a function to the RowWriter interface.
type RowWriterFunc func(frameIndex int, row []byte, rowNumber, repeatCount int, writeTransparentPixels bool) bool

// HaveDecodedRow calls f.
func (f RowWriterFunc) HaveDecodedRow(frameIndex int, row []byte, rowNumber, repeatCount int, writeTransparentPixels bool) bool {
	return f(frameIndex, row, rowNumber, repeatCount, writeTransparentPixels)
}

// Geometry describes the frame whose data a Context decodes.
type Geometry struct {
	FrameIndex int
	Width      int
	Height     int
	// DataSize is the LZW minimum code size from the image data block.
	DataSize   int
	Interlaced bool
	// ProgressiveDisplay enables row duplication for early interlace
	// passes, so a partially received frame shows a coarse full image.
	ProgressiveDisplay bool
}

// Context holds the decompression state of one frame.
type Context struct {
	geom   Geometry
	writer RowWriter

	bits      codeReader
	codeSize  uint
	codeMask  int
	clearCode int
	avail     int
	oldCode   int
	firstChar byte

	prefix       [MaxDictionaryEntries]uint16
	suffix       [MaxDictionaryEntries]byte
	suffixLength [MaxDictionaryEntries]uint16

	rowBuffer     []byte
	rowPos        int
	rowsRemaining int
	rowsOutput    int
	pass          int
	row           int

	halted bool
}

// NewContext prepares a Context for the frame described by g. It fails
// when the minimum code size leaves no room for the code table to grow
// or the frame has no area.
func NewContext(g Geometry, w RowWriter) (*Context, error) {
	// The first code is one bit wider than the data size, so the data size
	// must stay strictly below the maximum code width.
	if g.DataSize < 0 || g.DataSize >= MaxCodeBits {
		return nil, ErrCodeSize
	}
	if g.Width <= 0 || g.Height <= 0 {
		return nil, ErrInvalidFrame
	}
	c := &Context{
		geom:          g,
		writer:        w,
		clearCode:     1 << g.DataSize,
		oldCode:       -1,
		codeSize:      uint(g.DataSize + 1),
		rowsRemaining: g.Height,
	}
	c.avail = c.clearCode + 2
	c.codeMask = 1<<c.codeSize - 1
	if g.Interlaced {
		c.pass = 1
	}
	// A row may be up to width-1 bytes short when the longest possible
	// string (one full dictionary entry) is appended.
	c.rowBuffer = pool.Get(g.Width - 1 + MaxDictionaryEntries)

	// Initialising every literal up front keeps bad data from reading
	// undefined table entries.
	for i := 0; i < c.clearCode; i++ {
		c.suffix[i] = byte(i)
		c.suffixLength[i] = 1
	}
	return c, nil
}

// HasRemainingRows reports whether the Context still expects data.
func (c *Context) HasRemainingRows() bool {
	return c.rowsRemaining > 0 && !c.halted
}

// Halted reports whether decoding stopped on malformed data.
func (c *Context) Halted() bool { return c.halted }

// RowsOutput returns the number of rows handed to the RowWriter.
func (c *Context) RowsOutput() int { return c.rowsOutput }

// Release returns the row buffer to the pool. The Context must not be
// used afterwards.
func (c *Context) Release() {
	if c.rowBuffer != nil {
		pool.Put(c.rowBuffer)
		c.rowBuffer = nil
	}
	c.halted = true
}

// Decode consumes one data sub-block.
//
// Malformed codes halt the Context instead of failing: rows already
// written stay, and no further rows are produced. The anomaly is only
// reported (as ErrInvalidCode) when it hits the first frame before any
// row has been written, since then nothing of the image is usable.
func (c *Context) Decode(block []byte) error {
	if !c.HasRemainingRows() {
		return nil
	}
	width := c.geom.Width
	for _, b := range block {
		c.bits.push(b)
		for {
			code, ok := c.bits.next(c.codeSize)
			if !ok {
				break
			}

			if code == c.clearCode {
				c.codeSize = uint(c.geom.DataSize + 1)
				c.codeMask = 1<<c.codeSize - 1
				c.avail = c.clearCode + 2
				c.oldCode = -1
				continue
			}

			if code == c.clearCode+1 {
				// End of information is only legal after the last row.
				if c.rowsRemaining == 0 {
					return nil
				}
				return c.halt()
			}

			tempCode := code
			var codeLength int
			switch {
			case code < c.avail:
				codeLength = int(c.suffixLength[code])
				c.rowPos += codeLength
			case code == c.avail && c.oldCode != -1:
				// KwKwK: the code being defined right now.
				codeLength = int(c.suffixLength[c.oldCode]) + 1
				c.rowPos += codeLength
				c.rowPos--
				c.rowBuffer[c.rowPos] = c.firstChar
				code = c.oldCode
			default:
				return c.halt()
			}

			// Strings are written back to front, walking the prefix chain.
			for code >= c.clearCode {
				c.rowPos--
				c.rowBuffer[c.rowPos] = c.suffix[code]
				code = int(c.prefix[code])
			}
			c.rowPos--
			c.firstChar = c.suffix[code]
			c.rowBuffer[c.rowPos] = c.firstChar

			if c.avail < MaxDictionaryEntries && c.oldCode != -1 {
				c.prefix[c.avail] = uint16(c.oldCode)
				c.suffix[c.avail] = c.firstChar
				c.suffixLength[c.avail] = c.suffixLength[c.oldCode] + 1
				c.avail++
				if c.avail&c.codeMask == 0 && c.avail < MaxDictionaryEntries {
					c.codeSize++
					c.codeMask += c.avail
				}
			}
			c.oldCode = tempCode
			c.rowPos += codeLength

			begin := 0
			for ; begin+width <= c.rowPos; begin += width {
				if !c.outputRow(c.rowBuffer[begin : begin+width]) {
					c.halted = true
					return ErrRowRejected
				}
				c.rowsRemaining--
				if c.rowsRemaining == 0 {
					// Anything past the last row is ignored.
					return nil
				}
			}
			if begin != 0 {
				n := copy(c.rowBuffer, c.rowBuffer[begin:c.rowPos])
				c.rowPos = n
			}
		}
	}
	return nil
}

func (c *Context) halt() error {
	c.halted = true
	c.bits.reset()
	if c.geom.FrameIndex == 0 && c.rowsOutput == 0 {
		return ErrInvalidCode
	}
	return nil
}

// outputRow hands row to the writer and advances to the next destination
// row in (possibly interlaced) order.
func (c *Context) outputRow(row []byte) bool {
	g := &c.geom
	start, end := c.row, c.row

	progressive := g.ProgressiveDisplay && g.Interlaced
	if progressive && c.pass < 4 {
		// Haeberli-style display: early passes fill the gap below each
		// row, shifted up so the image does not appear to crawl down.
		var dup, shift int
		switch c.pass {
		case 1:
			dup, shift = 7, 3
		case 2:
			dup, shift = 3, 1
		case 3:
			dup, shift = 1, 0
		}
		start -= shift
		end = start + dup

		// Extend to the bottom edge when the shift left it uncovered.
		if (g.Height-1)-end <= shift {
			end = g.Height - 1
		}
		if start < 0 {
			start = 0
		}
		if end >= g.Height {
			end = g.Height - 1
		}
	}

	// Too much image data.
	if start >= g.Height {
		return true
	}

	if !c.writer.HaveDecodedRow(g.FrameIndex, row, start, end-start+1, progressive && c.pass > 1) {
		return false
	}
	c.rowsOutput++

	if !g.Interlaced {
		c.row++
		return true
	}
	for {
		switch c.pass {
		case 1:
			c.row += 8
			if c.row >= g.Height {
				c.pass++
				c.row = 4
			}
		case 2:
			c.row += 8
			if c.row >= g.Height {
				c.pass++
				c.row = 2
			}
		case 3:
			c.row += 4
			if c.row >= g.Height {
				c.pass++
				c.row = 1
			}
		case 4:
			c.row += 2
			if c.row >= g.Height {
				c.pass++
				c.row = 0
			}
		}
		if c.row <= g.Height-1 {
			return true
		}
	}
}
