// Package container parses the block structure of a GIF byte stream:
// signature, logical screen descriptor, colour tables, extensions, image
// descriptors and the positions of compressed image data.
//
// Parsing is incremental. The input buffer may grow between calls and the
// parser resumes exactly where it stopped; running out of bytes is never
// an error.
package container

import (
	"encoding/binary"
	"errors"
)

// Block introducers.
const (
	ExtensionIntroducer = 0x21 // '!'
	ImageSeparator      = 0x2C // ','
	Trailer             = 0x3B // ';'
)

// Extension labels.
const (
	LabelPlainText      = 0x01
	LabelGraphicControl = 0xF9
	LabelComment        = 0xFE
	LabelApplication    = 0xFF
)

// Logical screen descriptor and image descriptor packed fields.
const (
	flagColorTable     = 0x80
	flagInterlace      = 0x40
	maskColorTableSize = 0x07
)

// Graphic control extension packed fields.
const (
	flagTransparent  = 0x01
	shiftDisposal    = 2
	maskDisposal     = 0x07
	minControlLength = 4
)

// Structure sizes.
const (
	SignatureSize         = 6
	ScreenDescriptorSize  = 7
	ImageDescriptorSize   = 9
	BytesPerColorMapEntry = 3
	appIdentifierSize     = 11
	netscapeSubBlockSize  = 3
)

// Disposal method values as they appear in the graphic control extension.
const (
	DisposeNotSpecified      = 0
	DisposeKeep              = 1
	DisposeOverwriteBgcolor  = 2
	DisposeOverwritePrevious = 3
	// Some encoders set the third bit of the field instead of writing 3.
	disposeOverwritePreviousAlt = 4
)

// Netscape application extension sub-block ids.
const (
	netscapeLoopSubBlock      = 1
	netscapeBufferingSubBlock = 2
)

// LoopCountNotSeen is reported by LoopCount until a Netscape loop
// extension has been parsed.
const LoopCountNotSeen = -1

// Query selects how far Parse scans.
type Query int

const (
	// SizeQuery stops once the screen size is settled.
	SizeQuery Query = iota
	// FrameCountQuery scans as far as the data allows.
	FrameCountQuery
)

// Common errors.
var (
	ErrInvalidSignature = errors.New("gif: invalid signature")
	ErrInvalidExtension = errors.New("gif: invalid extension block")
	ErrInvalidImage     = errors.New("gif: invalid image dimensions")
	ErrTruncated        = errors.New("gif: truncated data")
)

// ReadLE16 reads a little-endian uint16 from data.
func ReadLE16(data []byte) int {
	return int(binary.LittleEndian.Uint16(data))
}
