package gif

import (
	"image"

	"github.com/deepteams/gif/animation"
)

// findRequiredPreviousFrame returns the frame whose final pixels frame i
// starts from, or animation.NotFound when it starts from a transparent
// canvas.
func (d *Decoder) findRequiredPreviousFrame(i int) int {
	if i == 0 {
		return animation.NotFound
	}
	prev := d.frames[i-1]
	switch prev.DisposalMethod {
	case animation.DisposeOverwritePrevious:
		// prev is undone before frame i, leaving what prev started from.
		return prev.RequiredPreviousFrameIndex
	case animation.DisposeOverwriteBgcolor:
		// prev's rect is cleared. If that clears the whole canvas, or the
		// rest of it was never drawn, nothing of the past remains.
		if d.canvas().In(prev.OriginalFrameRect) || prev.RequiredPreviousFrameIndex == animation.NotFound {
			return animation.NotFound
		}
		return i - 1
	default:
		return i - 1
	}
}

// initFrameBuffer gives frame i its starting pixels: a transparent canvas,
// or a copy of its required previous frame with that frame's disposal
// applied. The frame becomes partial.
func (d *Decoder) initFrameBuffer(i int) bool {
	buf := d.frames[i]
	if req := buf.RequiredPreviousFrameIndex; req == animation.NotFound {
		if err := buf.SetSize(d.width, d.height); err != nil {
			return d.setFailed(err)
		}
	} else {
		prev := d.frames[req]
		if !buf.CopyBitmapData(prev) {
			return d.setFailed(ErrMissingPrevFrame)
		}
		if prev.DisposalMethod == animation.DisposeOverwriteBgcolor {
			// Only the previous frame's own area is cleared.
			r := prev.OriginalFrameRect
			buf.ZeroFillRect(r)
			if !r.Empty() {
				buf.HasAlpha = true
			}
		}
	}
	buf.SetStatus(animation.FramePartial)
	d.sawAlpha[i] = false
	return true
}

// frameComplete is called once all of frame i's data has been decoded. It
// marks the frame complete and works out whether it is fully opaque.
func (d *Decoder) frameComplete(i int) bool {
	buf := d.frames[i]
	// Frames with no image data never reach haveDecodedRow.
	if buf.Status() == animation.FrameEmpty && !d.initFrameBuffer(i) {
		return false
	}
	buf.SetStatus(animation.FrameComplete)
	buf.Short = d.reader.FrameContext(i).IsShort()

	// A frame without a colour table drew nothing. A short one left rows
	// with their starting pixels, so neither can be proven opaque.
	if d.sawAlpha[i] || buf.Short || !d.colorMap(d.reader.FrameContext(i)).Defined() {
		return true
	}

	if d.canvas().In(buf.OriginalFrameRect) {
		// Every pixel was drawn opaque: the frame needs nothing before it.
		// A restored frame keeps its index, which the next frame starts
		// from once this one is undone.
		buf.HasAlpha = false
		if buf.DisposalMethod != animation.DisposeOverwritePrevious {
			buf.RequiredPreviousFrameIndex = animation.NotFound
		}
		return true
	}
	req := buf.RequiredPreviousFrameIndex
	if req == animation.NotFound {
		return true
	}
	// The copied start state already carried over the alpha of a kept
	// previous frame. A cleared one that had no alpha leaves none if this
	// frame covers the cleared area. Only one frame back is considered.
	prev := d.frames[req]
	if prev.DisposalMethod == animation.DisposeOverwriteBgcolor && !prev.HasAlpha &&
		prev.OriginalFrameRect.In(buf.OriginalFrameRect) {
		buf.HasAlpha = false
	}
	return true
}

func (d *Decoder) canvas() image.Rectangle {
	return image.Rect(0, 0, d.width, d.height)
}
