package container

import "github.com/deepteams/gif/internal/lzw"

// dataBlock locates one LZW data sub-block inside the input buffer.
type dataBlock struct {
	pos  int
	size int
}

// FrameContext holds everything parsed about one frame. A context is
// created by a graphic control extension or an image descriptor, whichever
// comes first, and only counts as a frame once its descriptor is parsed.
type FrameContext struct {
	FrameID int

	XOffset int
	YOffset int
	Width   int
	Height  int

	IsTransparent    bool
	TransparentIndex byte
	DisposalMethod   int
	DelayTime        int // milliseconds

	Interlaced         bool
	ProgressiveDisplay bool

	LocalColorMap ColorMap

	dataSize          int
	isDataSizeDefined bool
	isHeaderDefined   bool
	isComplete        bool
	isShort           bool

	blocks       []dataBlock
	currentBlock int
	lzw          *lzw.Context
}

func newFrameContext(id int) *FrameContext {
	return &FrameContext{FrameID: id}
}

// IsHeaderDefined reports whether the image descriptor has been parsed.
func (f *FrameContext) IsHeaderDefined() bool { return f.isHeaderDefined }

// IsComplete reports whether all of the frame's compressed data has been
// received (its block terminator was parsed).
func (f *FrameContext) IsComplete() bool { return f.isComplete }

// IsShort reports whether the frame's data ended, or turned malformed,
// before every row was decoded. It is only set once the frame has been
// decoded to completion; the missing rows keep their starting pixels.
func (f *FrameContext) IsShort() bool { return f.isShort }

// DataSize returns the LZW minimum code size, or -1 before it arrives.
func (f *FrameContext) DataSize() int {
	if !f.isDataSizeDefined {
		return -1
	}
	return f.dataSize
}

// BlockCount returns the number of data sub-blocks seen so far.
func (f *FrameContext) BlockCount() int { return len(f.blocks) }

func (f *FrameContext) setDataSize(n int) {
	f.dataSize = n
	f.isDataSizeDefined = true
}

func (f *FrameContext) addDataBlock(pos, size int) {
	f.blocks = append(f.blocks, dataBlock{pos: pos, size: size})
}

// decode feeds every received sub-block not yet consumed to the frame's
// LZW context. frameDecoded is true once the frame is data complete and
// all of it has been decoded.
func (f *FrameContext) decode(data []byte, w lzw.RowWriter) (frameDecoded bool, err error) {
	if f.lzw == nil {
		// Wait until the descriptor and code size are both known.
		if !f.isDataSizeDefined || !f.isHeaderDefined {
			return false, nil
		}
		ctx, err := lzw.NewContext(lzw.Geometry{
			FrameIndex:         f.FrameID,
			Width:              f.Width,
			Height:             f.Height,
			DataSize:           f.dataSize,
			Interlaced:         f.Interlaced,
			ProgressiveDisplay: f.ProgressiveDisplay,
		}, w)
		if err != nil {
			return false, err
		}
		f.lzw = ctx
		f.currentBlock = 0
	}

	// Some files carry blocks past the last row; those are not decoded.
	for f.currentBlock < len(f.blocks) && f.lzw.HasRemainingRows() {
		b := f.blocks[f.currentBlock]
		if b.pos+b.size > len(data) {
			return false, ErrTruncated
		}
		if err := f.lzw.Decode(data[b.pos : b.pos+b.size]); err != nil {
			return false, err
		}
		f.currentBlock++
	}

	// A data complete frame has had every block decoded by the loop
	// above, or stopped early on extra or malformed data. Either way
	// nothing more will come for it.
	if f.isComplete {
		if f.lzw != nil {
			f.isShort = f.lzw.Halted() || f.lzw.HasRemainingRows()
		}
		f.clearDecodeState()
		return true, nil
	}
	return false, nil
}

func (f *FrameContext) clearDecodeState() {
	if f.lzw != nil {
		f.lzw.Release()
		f.lzw = nil
	}
}
