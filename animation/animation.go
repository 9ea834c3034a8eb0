package animation

import (
	"errors"
	"image"
	"time"
)

// Repetition counts as reported by a Source.
const (
	// LoopInfinite repeats the animation forever.
	LoopInfinite = 0
	// LoopOnce plays the animation a single time.
	LoopOnce = 1
)

var (
	ErrNoFrames      = errors.New("animation: no frames")
	ErrFrameNotReady = errors.New("animation: frame not fully decoded")
)

// Animation holds all frames of a fully decoded GIF.
type Animation struct {
	// Frames holds the composited frames in display order.
	Frames []*Frame

	// LoopCount is the number of times to play the animation.
	// LoopInfinite means forever.
	LoopCount int

	// CanvasWidth is the canvas width in pixels.
	CanvasWidth int

	// CanvasHeight is the canvas height in pixels.
	CanvasHeight int

	// Comments holds the text of the file's comment extensions.
	Comments []string
}

// TotalDuration returns the sum of all frame durations.
func (a *Animation) TotalDuration() time.Duration {
	var total time.Duration
	for _, f := range a.Frames {
		total += f.Duration
	}
	return total
}

// FrameCount returns len(a.Frames).
func (a *Animation) FrameCount() int { return len(a.Frames) }

// FrameBufferAtIndex returns frame i, or nil if i is out of range.
func (a *Animation) FrameBufferAtIndex(i int) *Frame {
	if i < 0 || i >= len(a.Frames) {
		return nil
	}
	return a.Frames[i]
}

// FrameDurationAtIndex returns the duration of frame i.
func (a *Animation) FrameDurationAtIndex(i int) time.Duration {
	if f := a.FrameBufferAtIndex(i); f != nil {
		return f.Duration
	}
	return 0
}

// RepetitionCount returns a.LoopCount.
func (a *Animation) RepetitionCount() int { return a.LoopCount }

// Source supplies frames to a Player. *gif.Decoder and *Animation both
// implement it.
type Source interface {
	FrameCount() int
	FrameBufferAtIndex(i int) *Frame
	FrameDurationAtIndex(i int) time.Duration
	RepetitionCount() int
}

// PlayerOptions configures a Player.
type PlayerOptions struct {
	// ClampShortDurations shows frames whose duration is 10ms or less for
	// 100ms, the way web browsers do. Many GIFs in the wild rely on it.
	ClampShortDurations bool
}

const (
	shortDurationThreshold = 10 * time.Millisecond
	clampedDuration        = 100 * time.Millisecond
)

// Player steps through the frames of a Source in display order, honouring
// its repetition count. The Source may still be receiving data: a frame
// that is not complete yet stops playback with ErrFrameNotReady until it
// is.
type Player struct {
	src   Source
	opts  PlayerOptions
	pos   int
	plays int
}

// NewPlayer creates a Player for src. opts may be nil.
func NewPlayer(src Source, opts *PlayerOptions) *Player {
	p := &Player{src: src}
	if opts != nil {
		p.opts = *opts
	}
	return p
}

// HasNext reports whether another frame is due.
func (p *Player) HasNext() bool {
	n := p.src.FrameCount()
	if n == 0 {
		return false
	}
	if p.pos < n {
		return true
	}
	// A still image is shown once whatever its loop count says.
	if n == 1 {
		return false
	}
	rep := p.src.RepetitionCount()
	if rep == LoopInfinite {
		return true
	}
	return p.plays+1 < rep
}

// NextFrame returns the next frame and how long to show it. The image
// shares storage with the Source's frame buffer.
func (p *Player) NextFrame() (image.Image, time.Duration, error) {
	if !p.HasNext() {
		return nil, 0, ErrNoFrames
	}
	if p.pos >= p.src.FrameCount() {
		p.pos = 0
		p.plays++
	}
	f := p.src.FrameBufferAtIndex(p.pos)
	if f == nil || f.Status() != FrameComplete {
		return nil, 0, ErrFrameNotReady
	}
	d := p.src.FrameDurationAtIndex(p.pos)
	if p.opts.ClampShortDurations && d <= shortDurationThreshold {
		d = clampedDuration
	}
	p.pos++
	return f.Image(), d, nil
}

// Position returns the index of the frame NextFrame will return and the
// number of completed plays.
func (p *Player) Position() (frame, plays int) {
	return p.pos, p.plays
}

// Reset rewinds to the first frame of the first play.
func (p *Player) Reset() {
	p.pos = 0
	p.plays = 0
}
