// Package animation provides the frame buffer and playback types for
// animated GIF images.
//
// A Frame is one fully composited canvas-sized image together with the
// timing and disposal metadata needed to build the frame after it. The
// decoder in the parent package fills frames in; this package deals with
// pixel storage and playback only.
package animation

import (
	"errors"
	"image"
	"time"

	"github.com/deepteams/gif/internal/pool"
)

// Status is the decode state of a frame buffer.
type Status int

const (
	// FrameEmpty frames hold no pixels.
	FrameEmpty Status = iota
	// FramePartial frames are being decoded; rows not yet received are
	// transparent or show the frame underneath.
	FramePartial
	// FrameComplete frames are fully decoded.
	FrameComplete
)

func (s Status) String() string {
	switch s {
	case FrameEmpty:
		return "empty"
	case FramePartial:
		return "partial"
	case FrameComplete:
		return "complete"
	}
	return "unknown"
}

// DisposeMethod says what happens to a frame's area before the next frame
// is drawn. The values match those stored in GIF files.
type DisposeMethod int

const (
	// DisposeNotSpecified behaves like DisposeKeep.
	DisposeNotSpecified DisposeMethod = 0
	// DisposeKeep leaves the frame in place.
	DisposeKeep DisposeMethod = 1
	// DisposeOverwriteBgcolor clears the frame's area to transparent.
	DisposeOverwriteBgcolor DisposeMethod = 2
	// DisposeOverwritePrevious restores what was under the frame.
	DisposeOverwritePrevious DisposeMethod = 3
)

func (d DisposeMethod) String() string {
	switch d {
	case DisposeNotSpecified:
		return "unspecified"
	case DisposeKeep:
		return "keep"
	case DisposeOverwriteBgcolor:
		return "background"
	case DisposeOverwritePrevious:
		return "previous"
	}
	return "unknown"
}

// NotFound is the RequiredPreviousFrameIndex of a frame that is drawn
// onto a transparent canvas.
const NotFound = -1

var ErrCanvasSize = errors.New("animation: invalid canvas dimensions")

// Frame is one composited canvas-sized image of an animation.
//
// Pixel storage is allocated by SetSize or CopyBitmapData and released by
// ClearPixelData; the metadata fields survive clearing so the frame can be
// decoded again later.
type Frame struct {
	// Duration is how long the frame is shown.
	Duration time.Duration

	// DisposalMethod applies after the frame has been shown.
	DisposalMethod DisposeMethod

	// HasAlpha is false only when every pixel is known to be opaque.
	HasAlpha bool

	// RequiredPreviousFrameIndex is the frame whose pixels this frame is
	// drawn on top of, or NotFound.
	RequiredPreviousFrameIndex int

	// Short is set on a complete frame whose image data stopped before
	// its last row. The rows not drawn keep their starting pixels.
	Short bool

	// PremultiplyAlpha selects the colour model returned by Image.
	PremultiplyAlpha bool

	// OriginalFrameRect is the area of the canvas the GIF image
	// descriptor covers, clipped to the canvas.
	OriginalFrameRect image.Rectangle

	status Status
	pix    *image.NRGBA
}

// NewFrame returns an empty frame with no previous frame requirement.
func NewFrame() *Frame {
	return &Frame{RequiredPreviousFrameIndex: NotFound, HasAlpha: true}
}

// Status returns the decode state.
func (f *Frame) Status() Status { return f.status }

// SetStatus changes the decode state.
func (f *Frame) SetStatus(s Status) { f.status = s }

// HasPixels reports whether pixel storage is allocated.
func (f *Frame) HasPixels() bool { return f.pix != nil }

// Bounds returns the size of the pixel storage, or an empty rectangle.
func (f *Frame) Bounds() image.Rectangle {
	if f.pix == nil {
		return image.Rectangle{}
	}
	return f.pix.Rect
}

// Bytes returns the number of bytes of pixel storage held.
func (f *Frame) Bytes() int {
	if f.pix == nil {
		return 0
	}
	return len(f.pix.Pix)
}

// SetSize allocates fully transparent storage for a width x height
// canvas, replacing any previous pixels.
func (f *Frame) SetSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return ErrCanvasSize
	}
	f.releasePixels()
	f.pix = &image.NRGBA{
		Pix:    pool.GetZeroed(4 * width * height),
		Stride: 4 * width,
		Rect:   image.Rect(0, 0, width, height),
	}
	f.HasAlpha = true
	return nil
}

// CopyBitmapData replaces this frame's pixels with a copy of src's.
// It reports false when src holds no pixels.
func (f *Frame) CopyBitmapData(src *Frame) bool {
	if src == f {
		return f.pix != nil
	}
	if src.pix == nil {
		return false
	}
	f.releasePixels()
	buf := pool.Get(len(src.pix.Pix))
	copy(buf, src.pix.Pix)
	f.pix = &image.NRGBA{Pix: buf, Stride: src.pix.Stride, Rect: src.pix.Rect}
	f.HasAlpha = src.HasAlpha
	return true
}

// SetRGBA stores one pixel. Out of bounds writes are dropped.
func (f *Frame) SetRGBA(x, y int, r, g, b, a uint8) {
	if f.pix == nil || !(image.Point{x, y}.In(f.pix.Rect)) {
		return
	}
	i := f.pix.PixOffset(x, y)
	if a == 0 && f.PremultiplyAlpha {
		r, g, b = 0, 0, 0
	}
	s := f.pix.Pix[i : i+4 : i+4]
	s[0], s[1], s[2], s[3] = r, g, b, a
}

// ZeroFillRect makes every pixel of r transparent black.
func (f *Frame) ZeroFillRect(r image.Rectangle) {
	if f.pix == nil {
		return
	}
	r = r.Intersect(f.pix.Rect)
	if r.Empty() {
		return
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := f.pix.Pix[f.pix.PixOffset(r.Min.X, y):f.pix.PixOffset(r.Max.X, y)]
		clear(row)
	}
}

// CopyRowNTimes copies the pixels [xBegin, xEnd) of row yBegin into the
// same columns of rows yBegin+1 through yEnd-1.
func (f *Frame) CopyRowNTimes(xBegin, xEnd, yBegin, yEnd int) {
	if f.pix == nil {
		return
	}
	r := image.Rect(xBegin, yBegin, xEnd, yEnd).Intersect(f.pix.Rect)
	if r.Empty() || r.Min.Y != yBegin {
		return
	}
	src := f.pix.Pix[f.pix.PixOffset(r.Min.X, yBegin):f.pix.PixOffset(r.Max.X, yBegin)]
	for y := yBegin + 1; y < r.Max.Y; y++ {
		copy(f.pix.Pix[f.pix.PixOffset(r.Min.X, y):], src)
	}
}

// ClearPixelData releases pixel storage and returns the frame to
// FrameEmpty. Metadata is kept.
func (f *Frame) ClearPixelData() {
	f.releasePixels()
	f.status = FrameEmpty
}

// Image returns the frame's pixels, or nil when none are held. The result
// shares storage with the frame and is invalidated by ClearPixelData.
//
// With PremultiplyAlpha set the pixels are returned as *image.RGBA. GIF
// pixels are either opaque or transparent black, so both views hold the
// same bytes.
func (f *Frame) Image() image.Image {
	if f.pix == nil {
		return nil
	}
	if f.PremultiplyAlpha {
		return &image.RGBA{Pix: f.pix.Pix, Stride: f.pix.Stride, Rect: f.pix.Rect}
	}
	return f.pix
}

// NRGBA returns a copy of the frame's pixels.
func (f *Frame) NRGBA() *image.NRGBA {
	if f.pix == nil {
		return nil
	}
	dst := image.NewNRGBA(f.pix.Rect)
	copy(dst.Pix, f.pix.Pix)
	return dst
}

func (f *Frame) releasePixels() {
	if f.pix != nil {
		pool.Put(f.pix.Pix)
		f.pix = nil
	}
}
