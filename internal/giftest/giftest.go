// Package giftest builds GIF streams block by block for tests, including
// the malformed and unusual layouts real encoders produce.
package giftest

import (
	"bytes"
	"compress/lzw"
	"encoding/binary"
)

// Builder accumulates a GIF stream. Methods return the Builder so blocks
// can be chained.
type Builder struct {
	buf bytes.Buffer
}

// New returns an empty Builder.
func New() *Builder { return &Builder{} }

// Bytes returns the stream built so far.
func (b *Builder) Bytes() []byte { return bytes.Clone(b.buf.Bytes()) }

// Len returns the number of bytes written so far.
func (b *Builder) Len() int { return b.buf.Len() }

// Raw appends p unchanged.
func (b *Builder) Raw(p ...byte) *Builder {
	b.buf.Write(p)
	return b
}

// Header writes the signature ("87a" or "89a") and the logical screen
// descriptor. palette holds RGB triples; nil leaves out the global colour
// table.
func (b *Builder) Header(version string, width, height int, palette []byte) *Builder {
	b.buf.WriteString("GIF" + version)
	b.le16(width)
	b.le16(height)
	var packed byte
	if palette != nil {
		packed = 0x80 | tableBits(palette)
	}
	b.buf.WriteByte(packed)
	b.buf.WriteByte(0) // background
	b.buf.WriteByte(0) // aspect
	if palette != nil {
		b.table(palette)
	}
	return b
}

// Control writes a graphic control extension. transparent < 0 leaves the
// transparency flag clear. delay is in hundredths of a second.
func (b *Builder) Control(disposal, delay, transparent int) *Builder {
	packed := byte(disposal&0x07) << 2
	index := byte(0)
	if transparent >= 0 {
		packed |= 0x01
		index = byte(transparent)
	}
	b.buf.Write([]byte{0x21, 0xF9, 4, packed})
	b.le16(delay)
	b.buf.Write([]byte{index, 0})
	return b
}

// Netscape writes a NETSCAPE2.0 application extension with a loop count
// sub-block.
func (b *Builder) Netscape(loops int) *Builder {
	b.buf.Write([]byte{0x21, 0xFF, 11})
	b.buf.WriteString("NETSCAPE2.0")
	b.buf.Write([]byte{3, 1})
	b.le16(loops)
	b.buf.WriteByte(0)
	return b
}

// Application writes an application extension with the given identifier
// and payload sub-blocks.
func (b *Builder) Application(id string, payload []byte) *Builder {
	b.buf.Write([]byte{0x21, 0xFF, byte(len(id))})
	b.buf.WriteString(id)
	b.subBlocks(payload)
	return b
}

// Comment writes a comment extension.
func (b *Builder) Comment(text string) *Builder {
	b.buf.Write([]byte{0x21, 0xFE})
	b.subBlocks([]byte(text))
	return b
}

// PlainText writes a plain text extension with a 12 byte header and text.
func (b *Builder) PlainText(text string) *Builder {
	b.buf.Write([]byte{0x21, 0x01, 12})
	b.buf.Write(make([]byte, 12))
	b.subBlocks([]byte(text))
	return b
}

// Image describes an image descriptor.
type Image struct {
	X, Y, Width, Height int
	Interlaced          bool
	// Palette holds RGB triples for a local colour table, nil for none.
	Palette []byte
	// CodeSize is the LZW minimum code size. Zero means 8.
	CodeSize int
}

// Descriptor writes only the image descriptor and local colour table.
func (b *Builder) Descriptor(im Image) *Builder {
	b.buf.WriteByte(0x2C)
	b.le16(im.X)
	b.le16(im.Y)
	b.le16(im.Width)
	b.le16(im.Height)
	var packed byte
	if im.Interlaced {
		packed |= 0x40
	}
	if im.Palette != nil {
		packed |= 0x80 | tableBits(im.Palette)
	}
	b.buf.WriteByte(packed)
	if im.Palette != nil {
		b.table(im.Palette)
	}
	return b
}

// Frame writes a full image: descriptor, colour table and LZW data for
// pixels, given top to bottom. Interlaced images are stored in interlace
// order.
func (b *Builder) Frame(im Image, pixels []byte) *Builder {
	b.Descriptor(im)
	codeSize := codeSizeOf(im)
	b.buf.WriteByte(byte(codeSize))
	rows := pixels
	if im.Interlaced {
		rows = Interlace(pixels, im.Width, im.Height)
	}
	b.subBlocks(Compress(rows, codeSize))
	return b
}

// Data writes a code size byte and data split into sub-blocks,
// terminator included.
func (b *Builder) Data(codeSize int, data []byte) *Builder {
	b.buf.WriteByte(byte(codeSize))
	b.subBlocks(data)
	return b
}

// Trailer writes the stream trailer.
func (b *Builder) Trailer() *Builder {
	b.buf.WriteByte(0x3B)
	return b
}

// Compress LZW-encodes pixels the way GIF stores them. codeSize must be
// between 2 and 8.
func Compress(pixels []byte, codeSize int) []byte {
	var out bytes.Buffer
	w := lzw.NewWriter(&out, lzw.LSB, codeSize)
	w.Write(pixels)
	w.Close()
	return out.Bytes()
}

// Interlace reorders rows of a width x height image into GIF's four-pass
// storage order.
func Interlace(pixels []byte, width, height int) []byte {
	out := make([]byte, 0, len(pixels))
	for _, p := range [][2]int{{0, 8}, {4, 8}, {2, 4}, {1, 2}} {
		for y := p[0]; y < height; y += p[1] {
			out = append(out, pixels[y*width:(y+1)*width]...)
		}
	}
	return out
}

// Palette returns n distinct RGB triples. Entry i is (i, 255-i, i*7).
func Palette(n int) []byte {
	p := make([]byte, 0, 3*n)
	for i := 0; i < n; i++ {
		p = append(p, byte(i), byte(255-i), byte(i*7))
	}
	return p
}

func (b *Builder) subBlocks(data []byte) {
	for len(data) > 0 {
		n := min(len(data), 255)
		b.buf.WriteByte(byte(n))
		b.buf.Write(data[:n])
		data = data[n:]
	}
	b.buf.WriteByte(0)
}

// table writes palette padded to the power of two its size field names.
func (b *Builder) table(palette []byte) {
	n := 2 << tableBits(palette)
	b.buf.Write(palette)
	b.buf.Write(make([]byte, 3*n-len(palette)))
}

func (b *Builder) le16(v int) {
	b.buf.Write(binary.LittleEndian.AppendUint16(nil, uint16(v)))
}

func tableBits(palette []byte) byte {
	entries := len(palette) / 3
	var bits byte
	for 2<<bits < entries && bits < 7 {
		bits++
	}
	return bits
}

func codeSizeOf(im Image) int {
	if im.CodeSize == 0 {
		return 8
	}
	return im.CodeSize
}
