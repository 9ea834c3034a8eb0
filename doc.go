// Package gif provides a pure Go, incremental decoder for GIF images,
// including animated GIFs.
//
// Unlike image/gif, the Decoder accepts its input a piece at a time: a
// caller receiving a GIF over the network hands the bytes received so far
// to SetData and may immediately ask for the image size, the number of
// frames discovered and any frame buffer. Frames that are only partly
// received are returned partly drawn, and decoding resumes where it left
// off when more data arrives.
//
// Every frame is returned fully composited onto the canvas: the disposal
// method of the frames before it has already been applied, so the frame
// can be shown as is.
//
// The package supports:
//   - GIF87a and GIF89a
//   - Interlaced images, drawn progressively on the first frame
//   - Transparency and all disposal methods
//   - The NETSCAPE2.0 and ANIMEXTS1.0 loop count extensions
//   - Streaming input with deterministic truncation detection
//
// Importing the package registers it with image.Decode under the name
// "gif". A program that also imports image/gif gets whichever of the two
// was initialised first from image.Decode.
//
// Basic usage for decoding the first frame:
//
//	img, err := gif.Decode(reader)
//
// Incremental decoding:
//
//	dec := gif.NewDecoder(nil)
//	dec.SetData(received, false)
//	if dec.IsSizeAvailable() {
//		w, h := dec.Size()
//		...
//	}
//	for i := 0; i < dec.FrameCount(); i++ {
//		frame := dec.FrameBufferAtIndex(i)
//		...
//	}
package gif
