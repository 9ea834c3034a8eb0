package gif

import (
	"github.com/deepteams/gif/animation"
	"github.com/deepteams/gif/internal/container"
)

// haveDecodedRow paints one row of colour indices of frame frameIndex into
// its buffer at frame row rowNumber, repeated over repeatCount rows. Rows
// are clipped to the canvas. It returns false only when the frame buffer
// cannot be set up, which also fails the decoder.
func (d *Decoder) haveDecodedRow(frameIndex int, row []byte, rowNumber, repeatCount int, writeTransparentPixels bool) bool {
	fc := d.reader.FrameContext(frameIndex)

	// Coordinates are relative to the frame's origin, and the frame may
	// hang off the canvas.
	xBegin := fc.XOffset
	yBegin := fc.YOffset + rowNumber
	xEnd := min(fc.XOffset+len(row), d.width)
	yEnd := min(fc.YOffset+rowNumber+repeatCount, d.height)
	if len(row) == 0 || xEnd <= xBegin || yEnd <= yBegin {
		return true
	}

	cm := d.colorMap(fc)
	if !cm.Defined() {
		return true
	}

	buf := d.frames[frameIndex]
	if buf.Status() == animation.FrameEmpty && !d.initFrameBuffer(frameIndex) {
		return false
	}

	entries := cm.Len()
	for x := xBegin; x < xEnd; x++ {
		v := row[x-fc.XOffset]
		if (!fc.IsTransparent || v != fc.TransparentIndex) && int(v) < entries {
			r, g, b := cm.RGB(int(v))
			buf.SetRGBA(x, yBegin, r, g, b, 255)
			continue
		}
		d.sawAlpha[frameIndex] = true
		// Writing transparency over a seeded or cleared buffer would be
		// wrong or pointless, except over earlier interlace passes of
		// this same frame.
		if writeTransparentPixels {
			buf.SetRGBA(x, yBegin, 0, 0, 0, 0)
		}
	}

	if repeatCount > 1 {
		buf.CopyRowNTimes(xBegin, xEnd, yBegin, yEnd)
	}
	return true
}

// colorMap returns the table fc's pixels index: its own if it has one,
// the global table otherwise. The result may be undefined.
func (d *Decoder) colorMap(fc *container.FrameContext) *container.ColorMap {
	if fc.LocalColorMap.Defined() {
		return &fc.LocalColorMap
	}
	return d.reader.GlobalColorMap()
}
