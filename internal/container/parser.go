package container

import (
	"bytes"
	"fmt"

	"github.com/deepteams/gif/internal/lzw"
)

// state names what the next bytesToConsume bytes of input are.
type state int

const (
	stateType state = iota
	stateGlobalHeader
	stateGlobalColormap
	stateImageStart
	stateImageHeader
	stateImageColormap
	stateLZWStart
	stateLZW
	stateSubBlock
	stateExtension
	stateControlExtension
	stateConsumeBlock
	stateSkipBlock
	stateDone
	stateCommentExtension
	stateConsumeComment
	stateApplicationExtension
	stateNetscapeExtensionBlock
	stateConsumeNetscapeExtension
)

var (
	sigGIF87a = []byte("GIF87a")
	sigGIF89a = []byte("GIF89a")

	appNetscape = []byte("NETSCAPE2.0")
	appAnimExts = []byte("ANIMEXTS1.0")
)

// Parser walks the block structure of a GIF stream. It owns no copy of the
// input: SetData hands it the current buffer, which must only ever grow by
// appending.
type Parser struct {
	data []byte

	state          state
	bytesRead      int
	bytesToConsume int

	version         int
	screenWidth     int
	screenHeight    int
	screenDefined   bool
	backgroundIndex byte
	globalMapSize   int
	globalColorMap  ColorMap
	loopCount       int

	// screenFromFirstImage is set once the first image descriptor has
	// replaced the screen size, so a rewound re-parse repeats it.
	screenFromFirstImage bool

	frames []*FrameContext

	comments       [][]byte
	currentComment []byte

	parseCompleted bool
}

// NewParser returns a Parser positioned at the start of a stream.
func NewParser() *Parser {
	return &Parser{
		state:          stateType,
		bytesToConsume: SignatureSize,
		loopCount:      LoopCountNotSeen,
	}
}

// SetData replaces the input buffer. data must start with the bytes given
// to earlier calls.
func (p *Parser) SetData(data []byte) {
	p.data = data
}

// Version returns 87 or 89 once the signature is parsed, 0 before.
func (p *Parser) Version() int { return p.version }

// IsScreenSizeDefined reports whether the logical screen descriptor has
// been parsed.
func (p *Parser) IsScreenSizeDefined() bool { return p.screenDefined }

// ScreenSize returns the logical screen size, including any adjustment made
// by the first image descriptor.
func (p *Parser) ScreenSize() (width, height int) {
	return p.screenWidth, p.screenHeight
}

// BackgroundIndex returns the background colour index of the screen
// descriptor.
func (p *Parser) BackgroundIndex() byte { return p.backgroundIndex }

// GlobalColorMap returns the global colour table. It is undefined until
// fully received.
func (p *Parser) GlobalColorMap() *ColorMap { return &p.globalColorMap }

// LoopCount returns the raw Netscape loop count (0 means forever), or
// LoopCountNotSeen.
func (p *Parser) LoopCount() int { return p.loopCount }

// ParseCompleted reports whether the trailer (or data that cannot start a
// block) has been reached.
func (p *Parser) ParseCompleted() bool { return p.parseCompleted }

// Comments returns the payloads of all fully parsed comment extensions.
func (p *Parser) Comments() [][]byte { return p.comments }

// ImagesCount returns the number of frames whose image descriptor has been
// seen. A graphic control extension waiting for its descriptor does not
// count.
func (p *Parser) ImagesCount() int {
	if len(p.frames) == 0 {
		return 0
	}
	if !p.frames[len(p.frames)-1].isHeaderDefined {
		return len(p.frames) - 1
	}
	return len(p.frames)
}

// FrameContext returns frame i, or nil if i is out of range.
func (p *Parser) FrameContext(i int) *FrameContext {
	if i < 0 || i >= len(p.frames) {
		return nil
	}
	return p.frames[i]
}

// Decode feeds frame i's unconsumed data sub-blocks to its LZW context.
// frameDecoded is true once the frame's data is complete and decoded; the
// LZW context is released at that point.
func (p *Parser) Decode(i int, w lzw.RowWriter) (frameDecoded bool, err error) {
	f := p.FrameContext(i)
	if f == nil {
		return false, fmt.Errorf("gif: frame %d out of range", i)
	}
	return f.decode(p.data, w)
}

// ClearDecodeState drops frame i's LZW context. The next Decode starts the
// frame over from its first data sub-block.
func (p *Parser) ClearDecodeState(i int) {
	if f := p.FrameContext(i); f != nil {
		f.clearDecodeState()
	}
}

// Release returns all pooled decode buffers.
func (p *Parser) Release() {
	for _, f := range p.frames {
		f.clearDecodeState()
	}
}

// Parse consumes as much input as is available. With SizeQuery it stops
// before the first image descriptor, once the screen size is final.
// Running out of data is not an error; structural errors are.
func (p *Parser) Parse(query Query) error {
	if p.parseCompleted {
		return nil
	}
	for p.bytesRead+p.bytesToConsume <= len(p.data) {
		pos := p.bytesRead
		cur := p.data[pos : pos+p.bytesToConsume]
		p.bytesRead += p.bytesToConsume

		switch p.state {
		case stateLZW:
			p.lastFrame().addDataBlock(pos, len(cur))
			p.getN(1, stateSubBlock)

		case stateLZWStart:
			p.lastFrame().setDataSize(int(cur[0]))
			p.getN(1, stateSubBlock)

		case stateType:
			switch {
			case bytes.Equal(cur, sigGIF89a):
				p.version = 89
			case bytes.Equal(cur, sigGIF87a):
				p.version = 87
			default:
				return ErrInvalidSignature
			}
			p.getN(ScreenDescriptorSize, stateGlobalHeader)

		case stateGlobalHeader:
			p.screenWidth = ReadLE16(cur[0:])
			p.screenHeight = ReadLE16(cur[2:])
			p.screenDefined = true
			p.backgroundIndex = cur[5]
			if cur[4]&flagColorTable != 0 {
				p.globalMapSize = 2 << (cur[4] & maskColorTableSize)
				p.getN(BytesPerColorMapEntry*p.globalMapSize, stateGlobalColormap)
				break
			}
			p.getN(1, stateImageStart)

		case stateGlobalColormap:
			p.globalColorMap = newColorMap(cur)
			p.getN(1, stateImageStart)

		case stateImageStart:
			switch cur[0] {
			case ExtensionIntroducer:
				p.getN(2, stateExtension)
			case ImageSeparator:
				p.getN(ImageDescriptorSize, stateImageHeader)
			default:
				// The trailer, or bytes that cannot start a block. Either
				// way whatever was parsed so far is shown.
				p.getN(0, stateDone)
			}

		case stateExtension:
			n := int(cur[1])
			next := stateSkipBlock
			switch cur[0] {
			case LabelGraphicControl:
				next = stateControlExtension
				// The block is read as 4 bytes whatever it claims. Longer
				// blocks are fine; the rest is skipped.
				n = max(n, minControlLength)
			case LabelApplication:
				next = stateApplicationExtension
			case LabelComment:
				next = stateConsumeComment
			case LabelPlainText:
				// Skipped.
			}
			if n > 0 {
				p.getN(n, next)
			} else {
				p.getN(1, stateImageStart)
			}

		case stateConsumeBlock:
			if cur[0] == 0 {
				p.getN(1, stateImageStart)
			} else {
				p.getN(int(cur[0]), stateSkipBlock)
			}

		case stateSkipBlock:
			p.getN(1, stateConsumeBlock)

		case stateControlExtension:
			p.addFrameIfNecessary()
			f := p.lastFrame()
			f.IsTransparent = cur[0]&flagTransparent != 0
			if f.IsTransparent {
				f.TransparentIndex = cur[3]
			}
			switch d := int(cur[0]>>shiftDisposal) & maskDisposal; d {
			case DisposeNotSpecified, DisposeKeep, DisposeOverwriteBgcolor, DisposeOverwritePrevious:
				f.DisposalMethod = d
			case disposeOverwritePreviousAlt:
				f.DisposalMethod = DisposeOverwritePrevious
			default:
				f.DisposalMethod = DisposeNotSpecified
			}
			f.DelayTime = ReadLE16(cur[1:]) * 10
			p.getN(1, stateConsumeBlock)

		case stateCommentExtension:
			if cur[0] != 0 {
				p.getN(int(cur[0]), stateConsumeComment)
			} else {
				p.comments = append(p.comments, p.currentComment)
				p.currentComment = nil
				p.getN(1, stateImageStart)
			}

		case stateConsumeComment:
			p.currentComment = append(p.currentComment, cur...)
			p.getN(1, stateCommentExtension)

		case stateApplicationExtension:
			if bytes.Equal(cur, appNetscape) || bytes.Equal(cur, appAnimExts) {
				p.getN(1, stateNetscapeExtensionBlock)
			} else {
				p.getN(1, stateConsumeBlock)
			}

		case stateNetscapeExtensionBlock:
			if cur[0] != 0 {
				// The sub-block is read as 3 bytes at least.
				p.getN(max(int(cur[0]), netscapeSubBlockSize), stateConsumeNetscapeExtension)
			} else {
				p.getN(1, stateImageStart)
			}

		case stateConsumeNetscapeExtension:
			switch cur[0] & 0x07 {
			case netscapeLoopSubBlock:
				p.loopCount = ReadLE16(cur[1:])
			case netscapeBufferingSubBlock:
				// Buffering hint; streaming makes it moot.
			default:
				return fmt.Errorf("%w: netscape sub-block %d", ErrInvalidExtension, cur[0]&0x07)
			}
			p.getN(1, stateNetscapeExtensionBlock)

		case stateImageHeader:
			if done, err := p.parseImageHeader(cur, pos, query); done || err != nil {
				return err
			}

		case stateImageColormap:
			p.lastFrame().LocalColorMap = newColorMap(cur)
			p.getN(1, stateLZWStart)

		case stateSubBlock:
			if n := int(cur[0]); n > 0 {
				p.getN(n, stateLZW)
			} else {
				// Frames short of LZW data still end here and count as
				// complete; the rows they lack stay transparent.
				p.lastFrame().isComplete = true
				p.getN(1, stateImageStart)
			}

		case stateDone:
			p.parseCompleted = true
			return nil

		default:
			return fmt.Errorf("gif: parser in unknown state %d", p.state)
		}
	}
	return nil
}

// parseImageHeader handles a 9-byte image descriptor at pos. done is true
// when a size query stops here.
func (p *Parser) parseImageHeader(cur []byte, pos int, query Query) (done bool, err error) {
	xOffset := ReadLE16(cur[0:])
	yOffset := ReadLE16(cur[2:])
	width := ReadLE16(cur[4:])
	height := ReadLE16(cur[6:])

	// Broken encoders write a screen smaller than the first image, or a
	// meaningless one in GIF87a files (which are assumed not to animate).
	if p.currentFrameIsFirstFrame() &&
		(p.screenFromFirstImage || p.screenHeight < height || p.screenWidth < width || p.version == 87) {
		p.screenWidth = width
		p.screenHeight = height
		p.screenFromFirstImage = true
		xOffset, yOffset = 0, 0
	}

	if width == 0 || height == 0 {
		width, height = p.screenWidth, p.screenHeight
		if width == 0 || height == 0 {
			return false, ErrInvalidImage
		}
	}

	if query == SizeQuery {
		// Rewind so the descriptor is parsed again when frames are wanted.
		p.bytesRead = pos
		return true, nil
	}

	p.addFrameIfNecessary()
	f := p.lastFrame()
	f.XOffset = xOffset
	f.YOffset = yOffset
	f.Width = width
	f.Height = height
	f.Interlaced = cur[8]&flagInterlace != 0
	// Progressive display paints over the rows below; only the first
	// frame has nothing underneath worth keeping.
	f.ProgressiveDisplay = p.currentFrameIsFirstFrame()
	f.isHeaderDefined = true

	if cur[8]&flagColorTable != 0 {
		n := 2 << (cur[8] & maskColorTableSize)
		p.getN(BytesPerColorMapEntry*n, stateImageColormap)
		return false, nil
	}
	p.getN(1, stateLZWStart)
	return false, nil
}

func (p *Parser) getN(n int, s state) {
	p.bytesToConsume = n
	p.state = s
}

func (p *Parser) lastFrame() *FrameContext {
	return p.frames[len(p.frames)-1]
}

// addFrameIfNecessary starts a new frame context unless the last one is
// still being filled in.
func (p *Parser) addFrameIfNecessary() {
	if len(p.frames) == 0 || p.lastFrame().isComplete {
		p.frames = append(p.frames, newFrameContext(len(p.frames)))
	}
}

func (p *Parser) currentFrameIsFirstFrame() bool {
	return len(p.frames) == 0 || (len(p.frames) == 1 && !p.frames[0].isComplete)
}
