// Command gifdec inspects and decodes GIF images from the command line.
//
// Usage:
//
//	gifdec info [options] <input.gif>     Display GIF metadata
//	gifdec dec [options] <input.gif>      GIF → PNG (one frame or all of them)
//	gifdec stream [options] <input.gif>   Decode while feeding the file in chunks
//
// Use "-" as input to read from stdin.
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	xdraw "golang.org/x/image/draw"

	"github.com/deepteams/gif"
	"github.com/deepteams/gif/animation"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// cli carries the streams a command reads and writes.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
	keyColor  = color.New(color.FgCyan)
)

// run executes the command line args and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr}
	if len(args) < 1 {
		c.printUsage()
		return 1
	}

	var err error
	switch args[0] {
	case "dec":
		err = c.runDec(args[1:])
	case "info":
		err = c.runInfo(args[1:])
	case "stream":
		err = c.runStream(args[1:])
	case "-h", "-help", "--help", "help":
		c.printUsage()
		return 0
	default:
		fmt.Fprintf(stderr, "gifdec: unknown command %q\n\n", args[0])
		c.printUsage()
		return 1
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		errColor.Fprintf(stderr, "gifdec: %v\n", err)
		return 1
	}
	return 0
}

func (c *cli) printUsage() {
	fmt.Fprintf(c.stderr, `Usage:
  gifdec info [options] <input.gif>     Display GIF metadata
  gifdec dec [options] <input.gif>      Decode GIF frames to PNG
  gifdec stream [options] <input.gif>   Decode while feeding the file in chunks

Use "-" as input to read from stdin, "-o -" to write to stdout.

Run "gifdec <command> -h" for command-specific options.
`)
}

func (c *cli) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

// readInput returns the contents of path, or of stdin when path is "-".
func (c *cli) readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(c.stdin)
	}
	return os.ReadFile(path)
}

// --- dec ---

func (c *cli) runDec(args []string) error {
	fs := c.newFlagSet("dec")
	output := fs.String("o", "", `output path (default: <input>.png, "-" for stdout; a directory with -all)`)
	frame := fs.Int("frame", 0, "index of the frame to write")
	all := fs.Bool("all", false, "write every frame as <name>_NNN.png")
	scale := fs.Float64("scale", 1, "resize frames by this factor")
	premul := fs.Bool("premultiply", false, "decode to premultiplied RGBA")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("dec: missing input file\nUsage: gifdec dec [options] <input.gif>")
	}
	if *scale <= 0 {
		return fmt.Errorf("dec: -scale must be positive, got %v", *scale)
	}
	inputPath := fs.Arg(0)

	data, err := c.readInput(inputPath)
	if err != nil {
		return fmt.Errorf("dec: reading input: %w", err)
	}

	if *all {
		return c.decodeAll(data, inputPath, *output, *scale)
	}

	d := gif.NewDecoder(&gif.Options{PremultiplyAlpha: *premul, MaxPixels: gif.DefaultMaxPixels})
	d.SetData(data, true)
	n := d.FrameCount()
	if d.Failed() && n == 0 {
		return fmt.Errorf("dec: %w", d.Err())
	}
	if *frame < 0 || *frame >= n {
		return fmt.Errorf("dec: frame %d out of range (image has %d frames)", *frame, n)
	}
	f := d.FrameBufferAtIndex(*frame)
	if f.Status() != animation.FrameComplete {
		if d.Failed() {
			return fmt.Errorf("dec: frame %d: %w", *frame, d.Err())
		}
		return fmt.Errorf("dec: frame %d: %w", *frame, gif.ErrTruncated)
	}
	if d.Failed() {
		warnColor.Fprintf(c.stderr, "warning: %v\n", d.Err())
	}

	img := scaleImage(f.Image(), *scale)
	if *output == "-" {
		return png.Encode(c.stdout, img)
	}
	if *output == "" {
		*output = outputBase(inputPath) + ".png"
	}
	if err := writePNG(*output, img); err != nil {
		return fmt.Errorf("dec: %w", err)
	}
	okColor.Fprintf(c.stderr, "Decoded %s → %s\n", inputPath, *output)
	return nil
}

// decodeAll writes every frame that decodes. A damaged file still has its
// good frames written before the error is returned.
func (c *cli) decodeAll(data []byte, inputPath, outDir string, scale float64) error {
	anim, decErr := gif.DecodeAll(bytes.NewReader(data))
	if anim == nil {
		return fmt.Errorf("dec: %w", decErr)
	}
	if outDir == "-" {
		return fmt.Errorf("dec: -all cannot write to stdout")
	}
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("dec: %w", err)
	}

	base := filepath.Base(outputBase(inputPath))
	for i, f := range anim.Frames {
		path := filepath.Join(outDir, fmt.Sprintf("%s_%03d.png", base, i))
		if err := writePNG(path, scaleImage(f.Image(), scale)); err != nil {
			return fmt.Errorf("dec: frame %d: %w", i, err)
		}
	}
	if decErr != nil {
		warnColor.Fprintf(c.stderr, "Decoded %s → %s (%d frames before: %v)\n", inputPath, outDir, len(anim.Frames), decErr)
		return fmt.Errorf("dec: %w", decErr)
	}
	okColor.Fprintf(c.stderr, "Decoded %s → %s (%d frames)\n", inputPath, outDir, len(anim.Frames))
	return nil
}

// outputBase strips the extension of inputPath; stdin becomes "output".
func outputBase(inputPath string) string {
	if inputPath == "-" {
		return "output"
	}
	base := filepath.Base(inputPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func writePNG(path string, img image.Image) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		os.Remove(path)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// scaleImage resizes img by factor. Enlargements use Catmull-Rom,
// reductions the cheaper bilinear approximation.
func scaleImage(img image.Image, factor float64) image.Image {
	if factor == 1 {
		return img
	}
	b := img.Bounds()
	w := max(1, int(float64(b.Dx())*factor+0.5))
	h := max(1, int(float64(b.Dy())*factor+0.5))
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	var s xdraw.Scaler = xdraw.ApproxBiLinear
	if factor > 1 {
		s = xdraw.CatmullRom
	}
	s.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// --- info ---

func (c *cli) runInfo(args []string) error {
	fs := c.newFlagSet("info")
	verbose := fs.Bool("v", false, "list every frame")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("info: missing input file\nUsage: gifdec info [options] <input.gif>")
	}
	inputPath := fs.Arg(0)

	data, err := c.readInput(inputPath)
	if err != nil {
		return fmt.Errorf("info: reading input: %w", err)
	}
	feat, err := gif.GetFeatures(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("info: %w", err)
	}

	name := inputPath
	if inputPath == "-" {
		name = "<stdin>"
	}
	field := func(key, format string, a ...any) {
		keyColor.Fprintf(c.stdout, "%-13s", key+":")
		fmt.Fprintf(c.stdout, format+"\n", a...)
	}
	field("File", "%s", name)
	field("Format", "GIF%s", feat.Version)
	field("Dimensions", "%d x %d", feat.Width, feat.Height)
	field("Frames", "%d", feat.FrameCount)
	field("Animation", "%v", feat.HasAnimation)
	if feat.HasAnimation {
		field("Loop count", "%s", loopString(feat.LoopCount))
		field("Duration", "%v", feat.Duration)
	}
	field("Transparency", "%v", feat.HasTransparency)
	field("Interlaced", "%v", feat.Interlaced)
	for _, comment := range feat.Comments {
		field("Comment", "%q", comment)
	}
	field("File size", "%d bytes", len(data))

	if !*verbose {
		return nil
	}
	anim, err := gif.DecodeAll(bytes.NewReader(data))
	if anim == nil {
		return fmt.Errorf("info: %w", err)
	}
	for i, f := range anim.Frames {
		fmt.Fprintf(c.stdout, "  frame %3d  rect %-16v  %-20v  delay %-7v  alpha %-5v  requires %d\n",
			i, f.OriginalFrameRect, f.DisposalMethod, f.Duration, f.HasAlpha, f.RequiredPreviousFrameIndex)
		if f.Short {
			warnColor.Fprintf(c.stdout, "  frame %3d  image data ends early\n", i)
		}
	}
	if err != nil {
		warnColor.Fprintf(c.stdout, "  decoding stopped: %v\n", err)
	}
	return nil
}

func loopString(n int) string {
	switch n {
	case gif.LoopInfinite:
		return "infinite"
	case gif.LoopOnce:
		return "once"
	}
	return fmt.Sprintf("%d", n)
}

// --- stream ---

// tracer reports every on-demand frame decode.
type tracer struct {
	w      io.Writer
	format string
	start  time.Time
}

func (t *tracer) WillDecodeImage(format string) {
	t.format = format
	t.start = time.Now()
}

func (t *tracer) DidDecodeImage() {
	fmt.Fprintf(t.w, "trace: %s decode took %v\n", t.format, time.Since(t.start))
}

func (c *cli) runStream(args []string) error {
	fs := c.newFlagSet("stream")
	chunk := fs.Int("chunk", 4096, "bytes delivered per step")
	trace := fs.Bool("trace", false, "report every frame decode on stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("stream: missing input file\nUsage: gifdec stream [options] <input.gif>")
	}
	if *chunk <= 0 {
		return fmt.Errorf("stream: -chunk must be positive, got %d", *chunk)
	}

	data, err := c.readInput(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("stream: reading input: %w", err)
	}

	opts := gif.DefaultOptions()
	if *trace {
		opts.Instrumentation = &tracer{w: c.stderr}
	}
	d := gif.NewDecoder(opts)

	next := 0
	sizeShown := false
	for n := min(*chunk, len(data)); ; n = min(n+*chunk, len(data)) {
		d.SetData(data[:n], n == len(data))
		if !sizeShown && d.IsSizeAvailable() {
			w, h := d.Size()
			fmt.Fprintf(c.stdout, "%8d bytes: canvas %dx%d\n", n, w, h)
			sizeShown = true
		}
		// Frames are handed out in order, each once it is complete.
		for count := d.FrameCount(); next < count; next++ {
			f := d.FrameBufferAtIndex(next)
			if f.Status() != animation.FrameComplete {
				break
			}
			okColor.Fprintf(c.stdout, "%8d bytes: frame %d complete (%v, %v)\n", n, next, d.FrameDurationAtIndex(next), f.DisposalMethod)
		}
		if d.Failed() || n == len(data) {
			break
		}
	}

	if d.Failed() {
		return fmt.Errorf("stream: after %d frames: %w", next, d.Err())
	}
	if !sizeShown || next == 0 {
		return fmt.Errorf("stream: %w", gif.ErrTruncated)
	}
	fmt.Fprintf(c.stdout, "done: %d frames, loop %s\n", next, loopString(d.RepetitionCount()))
	return nil
}
