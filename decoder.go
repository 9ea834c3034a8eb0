package gif

import (
	"errors"
	"image"
	"time"

	"github.com/deepteams/gif/animation"
	"github.com/deepteams/gif/internal/container"
	"github.com/deepteams/gif/internal/lzw"
)

// Repetition counts returned by RepetitionCount.
const (
	LoopInfinite = animation.LoopInfinite
	LoopOnce     = animation.LoopOnce
)

// DefaultMaxPixels is the largest canvas area decoded by default.
const DefaultMaxPixels = 1 << 28

// Errors reported by Decoder.Err.
var (
	ErrTooLarge           = errors.New("gif: canvas too large")
	ErrTruncated          = container.ErrTruncated
	ErrMissingPrevFrame   = errors.New("gif: required previous frame has no pixels")
	ErrInvalidSignature   = container.ErrInvalidSignature
	ErrInvalidExtension   = container.ErrInvalidExtension
	ErrInvalidImage       = container.ErrInvalidImage
	ErrInvalidLZW         = lzw.ErrInvalidCode
	ErrInvalidLZWCodeSize = lzw.ErrCodeSize
)

// Instrumentation receives a callback around every on-demand frame
// decode. Hosts use it for tracing.
type Instrumentation interface {
	WillDecodeImage(format string)
	DidDecodeImage()
}

// Options configures a Decoder.
type Options struct {
	// PremultiplyAlpha makes frame images *image.RGBA instead of
	// *image.NRGBA.
	PremultiplyAlpha bool

	// MaxPixels bounds the canvas area. Larger images fail with
	// ErrTooLarge. Zero means DefaultMaxPixels.
	MaxPixels int

	// Instrumentation, if set, is told about every frame decode.
	Instrumentation Instrumentation
}

// DefaultOptions returns the options used when NewDecoder is given nil.
func DefaultOptions() *Options {
	return &Options{MaxPixels: DefaultMaxPixels}
}

// Decoder decodes a GIF whose bytes may arrive over time.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	opts Options

	data            []byte
	allDataReceived bool
	reader          *container.Parser

	sizeAvailable bool
	width         int
	height        int

	frames []*animation.Frame
	// sawAlpha records, per frame, whether a transparent pixel was
	// produced since the frame's buffer was initialised.
	sawAlpha []bool

	repetitionCount int
	err             error
}

// NewDecoder returns a Decoder with no data. opts may be nil.
func NewDecoder(opts *Options) *Decoder {
	if opts == nil {
		opts = DefaultOptions()
	}
	d := &Decoder{opts: *opts, repetitionCount: LoopOnce}
	if d.opts.MaxPixels <= 0 {
		d.opts.MaxPixels = DefaultMaxPixels
	}
	return d
}

// SetData hands the decoder all bytes received so far. Each call must
// pass a buffer that starts with the bytes of the previous one. Parsing
// progress is kept. allDataReceived marks data as the whole file, which
// lets the decoder tell a truncated file from one still arriving.
//
// SetData does nothing once the decoder has failed.
func (d *Decoder) SetData(data []byte, allDataReceived bool) {
	if d.Failed() {
		return
	}
	d.data = data
	d.allDataReceived = allDataReceived
	if d.reader != nil {
		d.reader.SetData(data)
	}
}

// IsAllDataReceived reports the flag given to the last SetData.
func (d *Decoder) IsAllDataReceived() bool { return d.allDataReceived }

// Failed reports whether decoding has stopped on an error.
func (d *Decoder) Failed() bool { return d.err != nil }

// Err returns the error that made the decoder fail, or nil.
func (d *Decoder) Err() error { return d.err }

// IsSizeAvailable reports whether the canvas size is known, parsing as far
// as needed to find out.
func (d *Decoder) IsSizeAvailable() bool {
	if !d.sizeAvailable {
		d.parse(container.SizeQuery)
	}
	return d.sizeAvailable
}

// Size returns the canvas size. It is only meaningful once
// IsSizeAvailable has returned true.
func (d *Decoder) Size() (width, height int) {
	return d.width, d.height
}

// FrameCount parses as much data as is available and returns the number
// of frames found. The count never decreases.
func (d *Decoder) FrameCount() int {
	d.parse(container.FrameCountQuery)
	return len(d.frames)
}

// RepetitionCount returns the number of times the animation should play:
// LoopOnce until a loop count extension has been seen (or when the image
// has no frames or decoding failed), LoopInfinite for a count of zero.
func (d *Decoder) RepetitionCount() int {
	// The loop count may arrive anywhere in the stream. Once seen it is
	// kept, even if a later reader would not see it again.
	switch {
	case d.Failed() || (d.reader != nil && d.reader.ImagesCount() == 0):
		d.repetitionCount = LoopOnce
	case d.reader != nil && d.reader.LoopCount() != container.LoopCountNotSeen:
		d.repetitionCount = d.reader.LoopCount()
	}
	return d.repetitionCount
}

// FrameBufferAtIndex returns frame i, decoding whatever data has arrived
// for it (and for the frames it is drawn on) first. It returns nil when
// i is not below FrameCount. The frame stays owned by the decoder and its
// pixels may change on the next call that decodes.
func (d *Decoder) FrameBufferAtIndex(i int) *animation.Frame {
	if i < 0 || i >= d.FrameCount() {
		return nil
	}
	frame := d.frames[i]
	if frame.Status() != animation.FrameComplete {
		if in := d.opts.Instrumentation; in != nil {
			in.WillDecodeImage("GIF")
			defer in.DidDecodeImage()
		}
		d.decode(i)
	}
	return frame
}

// FrameIsCompleteAtIndex reports whether all data of frame i has been
// received. It does not decode.
func (d *Decoder) FrameIsCompleteAtIndex(i int) bool {
	fc := d.frameContext(i)
	return fc != nil && fc.IsComplete()
}

// FrameDurationAtIndex returns how long frame i is shown. It does not
// decode.
func (d *Decoder) FrameDurationAtIndex(i int) time.Duration {
	fc := d.frameContext(i)
	if fc == nil || !fc.IsHeaderDefined() {
		return 0
	}
	return time.Duration(fc.DelayTime) * time.Millisecond
}

// Comments returns the text of every comment extension parsed so far.
func (d *Decoder) Comments() []string {
	if d.reader == nil {
		return nil
	}
	raw := d.reader.Comments()
	out := make([]string, len(raw))
	for i, c := range raw {
		out[i] = string(c)
	}
	return out
}

// ClearFrameBuffer releases the pixels of frame i. The frame is decoded
// again from the start the next time it is requested.
func (d *Decoder) ClearFrameBuffer(i int) {
	if i < 0 || i >= len(d.frames) {
		return
	}
	frame := d.frames[i]
	if d.reader != nil && frame.Status() == animation.FramePartial {
		// The reader's LZW state for the frame must start over too.
		d.reader.ClearDecodeState(i)
	}
	frame.ClearPixelData()
}

// ClearCacheExceptFrame releases the pixels of every frame but keep and
// returns the number of bytes freed. Nothing is freed for images with at
// most one frame.
func (d *Decoder) ClearCacheExceptFrame(keep int) int {
	if len(d.frames) <= 1 {
		return 0
	}
	cleared := 0
	for i, frame := range d.frames {
		if i == keep {
			continue
		}
		cleared += frame.Bytes()
		d.ClearFrameBuffer(i)
	}
	return cleared
}

func (d *Decoder) frameContext(i int) *container.FrameContext {
	if d.reader == nil || i < 0 || i >= d.reader.ImagesCount() {
		return nil
	}
	return d.reader.FrameContext(i)
}

// setFailed records err as the reason for failure and drops the reader.
// It always returns false.
func (d *Decoder) setFailed(err error) bool {
	if d.err == nil {
		d.err = err
	}
	if d.reader != nil {
		d.reader.Release()
		d.reader = nil
	}
	return false
}

func (d *Decoder) parse(query container.Query) {
	if d.Failed() {
		return
	}
	if d.reader == nil {
		d.reader = container.NewParser()
		d.reader.SetData(d.data)
	}
	if err := d.reader.Parse(query); err != nil {
		d.setFailed(err)
		return
	}
	if !d.updateSize() {
		return
	}

	canvas := image.Rect(0, 0, d.width, d.height)
	for i := len(d.frames); i < d.reader.ImagesCount(); i++ {
		fc := d.reader.FrameContext(i)
		frame := animation.NewFrame()
		frame.PremultiplyAlpha = d.opts.PremultiplyAlpha
		frame.Duration = time.Duration(fc.DelayTime) * time.Millisecond
		frame.DisposalMethod = animation.DisposeMethod(fc.DisposalMethod)
		frame.OriginalFrameRect = image.Rect(fc.XOffset, fc.YOffset, fc.XOffset+fc.Width, fc.YOffset+fc.Height).Intersect(canvas)
		d.frames = append(d.frames, frame)
		d.sawAlpha = append(d.sawAlpha, false)
		// The previous frame's rect and disposal must already be set.
		frame.RequiredPreviousFrameIndex = d.findRequiredPreviousFrame(i)
	}
}

// updateSize copies the screen size from the reader once it is known. The
// first image descriptor may still change it.
func (d *Decoder) updateSize() bool {
	if !d.reader.IsScreenSizeDefined() {
		return true
	}
	w, h := d.reader.ScreenSize()
	if d.sizeAvailable && w == d.width && h == d.height {
		return true
	}
	if int64(w)*int64(h) > int64(d.opts.MaxPixels) {
		return d.setFailed(ErrTooLarge)
	}
	d.width, d.height = w, h
	d.sizeAvailable = true
	return true
}

// decode brings frame i as far as the data allows, decoding first the
// incomplete frames it is drawn on top of.
func (d *Decoder) decode(i int) {
	d.parse(container.FrameCountQuery)
	if d.Failed() {
		return
	}

	chain := []int{i}
	for prev := d.frames[i].RequiredPreviousFrameIndex; prev != animation.NotFound &&
		d.frames[prev].Status() != animation.FrameComplete; prev = d.frames[prev].RequiredPreviousFrameIndex {
		chain = append(chain, prev)
	}

	reader := d.reader
	rows := lzw.RowWriterFunc(d.haveDecodedRow)
	for k := len(chain) - 1; k >= 0; k-- {
		idx := chain[k]
		frameDecoded, err := reader.Decode(idx, rows)
		if err != nil {
			d.setFailed(err)
			return
		}
		if d.Failed() {
			return
		}
		if frameDecoded && !d.frameComplete(idx) {
			return
		}
		// More data is needed to continue.
		if d.frames[idx].Status() != animation.FrameComplete {
			break
		}
	}

	// Everything has arrived, the last frame was asked for, and the
	// trailer is still missing: the file is truncated.
	if i >= len(d.frames)-1 && d.allDataReceived && d.reader != nil && !d.reader.ParseCompleted() {
		d.setFailed(ErrTruncated)
	}
}

var _ animation.Source = (*Decoder)(nil)
