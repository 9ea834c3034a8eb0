package gif

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"time"

	"github.com/deepteams/gif/animation"
)

// The format shares its name and magic string with image/gif. image.Decode
// uses the first decoder registered for a prefix, so in a binary that also
// links image/gif the one initialised first wins. Call Decode and
// DecodeConfig directly to be sure of getting this package's decoder.
func init() {
	image.RegisterFormat("gif", "GIF8?a", Decode, DecodeConfig)
}

var ErrNoFrames = errors.New("gif: no image frames found")

// Features describes a GIF file's properties.
type Features struct {
	Width           int
	Height          int
	Version         string // "87a" or "89a"
	HasAnimation    bool
	HasTransparency bool // some frame declares a transparent index
	Interlaced      bool // the first frame is interlaced
	LoopCount       int  // LoopInfinite, LoopOnce or a play count
	FrameCount      int
	Duration        time.Duration // sum of all frame delays
	Comments        []string
}

// readAll reads all data from r. If r implements Len() int (e.g.
// *bytes.Reader), a single exact-sized allocation is used instead of
// the repeated doublings that io.ReadAll performs.
func readAll(r io.Reader) ([]byte, error) {
	if lr, ok := r.(interface{ Len() int }); ok {
		n := lr.Len()
		if n > 0 {
			data := make([]byte, n)
			_, err := io.ReadFull(r, data)
			return data, err
		}
	}
	return io.ReadAll(r)
}

func newDecoderFor(r io.Reader, opts *Options) (*Decoder, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, fmt.Errorf("gif: reading data: %w", err)
	}
	d := NewDecoder(opts)
	d.SetData(data, true)
	if !d.IsSizeAvailable() {
		if d.Failed() {
			return nil, d.Err()
		}
		return nil, ErrTruncated
	}
	return d, nil
}

// Decode reads a GIF image from r and returns its first frame as an
// *image.NRGBA. A first frame that decoded completely is returned even if
// the file is damaged after it.
func Decode(r io.Reader) (image.Image, error) {
	d, err := newDecoderFor(r, nil)
	if err != nil {
		return nil, err
	}
	if d.FrameCount() == 0 {
		if d.Failed() {
			return nil, d.Err()
		}
		return nil, ErrNoFrames
	}
	f := d.FrameBufferAtIndex(0)
	if f.Status() != animation.FrameComplete {
		if d.Failed() {
			return nil, fmt.Errorf("gif: decoding frame 0: %w", d.Err())
		}
		return nil, ErrTruncated
	}
	return f.Image(), nil
}

// DecodeConfig returns the color model and dimensions of a GIF image
// without decoding any frame.
func DecodeConfig(r io.Reader) (image.Config, error) {
	d, err := newDecoderFor(r, nil)
	if err != nil {
		return image.Config{}, err
	}
	w, h := d.Size()
	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      w,
		Height:     h,
	}, nil
}

// GetFeatures reads GIF features without decoding pixel data.
func GetFeatures(r io.Reader) (*Features, error) {
	d, err := newDecoderFor(r, nil)
	if err != nil {
		return nil, err
	}
	n := d.FrameCount()
	if d.Failed() {
		return nil, d.Err()
	}

	w, h := d.Size()
	f := &Features{
		Width:        w,
		Height:       h,
		Version:      fmt.Sprintf("%da", d.reader.Version()),
		HasAnimation: n > 1,
		LoopCount:    d.RepetitionCount(),
		FrameCount:   n,
		Comments:     d.Comments(),
	}
	for i := 0; i < n; i++ {
		fc := d.frameContext(i)
		f.HasTransparency = f.HasTransparency || fc.IsTransparent
		f.Duration += d.FrameDurationAtIndex(i)
	}
	if n > 0 {
		f.Interlaced = d.frameContext(0).Interlaced
	}
	return f, nil
}

// DecodeAll reads a GIF image from r and returns every frame, composited
// onto the canvas. If the file turns out to be damaged the frames decoded
// before the damage are returned along with the error.
func DecodeAll(r io.Reader) (*animation.Animation, error) {
	d, err := newDecoderFor(r, nil)
	if err != nil {
		return nil, err
	}
	w, h := d.Size()
	n := d.FrameCount()
	anim := &animation.Animation{
		CanvasWidth:  w,
		CanvasHeight: h,
		LoopCount:    d.RepetitionCount(),
		Comments:     d.Comments(),
	}
	for i := 0; i < n; i++ {
		f := d.FrameBufferAtIndex(i)
		if f.Status() != animation.FrameComplete {
			break
		}
		anim.Frames = append(anim.Frames, f)
	}

	switch {
	case d.Failed():
		return anim, fmt.Errorf("gif: decoding frame %d: %w", len(anim.Frames), d.Err())
	case len(anim.Frames) == 0:
		return anim, ErrNoFrames
	case len(anim.Frames) < n:
		return anim, ErrTruncated
	}
	return anim, nil
}
