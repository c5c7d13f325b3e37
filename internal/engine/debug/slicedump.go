// Package debug provides debug visualization utilities.
package debug

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"

	"github.com/Faultbox/midgard-vt/internal/engine/cmdbuf"
)

// SliceReader is the part of a device the dumper reads from.
type SliceReader interface {
	ReadSlice(id cmdbuf.TextureID, slice int) ([]float32, error)
	Describe(id cmdbuf.TextureID) (width, height, layers int, format cmdbuf.Format, err error)
}

// SliceDumper writes texture array slices as PNG files.
type SliceDumper struct {
	outputDir string
	prefix    string
	minSize   int
}

// NewSliceDumper creates a dumper writing to outputDir. Slices smaller than
// minSize are scaled up with nearest-neighbour filtering.
func NewSliceDumper(outputDir, prefix string, minSize int) *SliceDumper {
	return &SliceDumper{
		outputDir: outputDir,
		prefix:    prefix,
		minSize:   minSize,
	}
}

// Filename returns the path Dump writes for a layer name and slice.
func (sd *SliceDumper) Filename(name string, slice int) string {
	filename := fmt.Sprintf("%s_%s_%02d.png", sd.prefix, name, slice)
	if sd.outputDir != "" {
		filename = filepath.Join(sd.outputDir, filename)
	}
	return filename
}

// Dump reads one slice and writes it as a PNG. Returns the file path.
func (sd *SliceDumper) Dump(dev SliceReader, id cmdbuf.TextureID, slice int, name string) (string, error) {
	w, h, _, format, err := dev.Describe(id)
	if err != nil {
		return "", err
	}
	data, err := dev.ReadSlice(id, slice)
	if err != nil {
		return "", err
	}

	img, err := SliceImage(data, w, h, format)
	if err != nil {
		return "", err
	}
	return sd.write(sd.scaled(img), name, slice)
}

func (sd *SliceDumper) scaled(img *image.NRGBA) image.Image {
	b := img.Bounds()
	if sd.minSize <= 0 || (b.Dx() >= sd.minSize && b.Dy() >= sd.minSize) {
		return img
	}
	f := (sd.minSize + min(b.Dx(), b.Dy()) - 1) / min(b.Dx(), b.Dy())
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx()*f, b.Dy()*f))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

func (sd *SliceDumper) write(img image.Image, name string, slice int) (string, error) {
	if sd.outputDir != "" {
		if err := os.MkdirAll(sd.outputDir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}

	filename := sd.Filename(name, slice)
	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return "", fmt.Errorf("encoding PNG: %w", err)
	}
	return filename, nil
}

// SliceImage converts slice texels to an image. Row 0 of the slice is the
// bottom row of the image. Single-channel data is normalized to its range.
func SliceImage(data []float32, width, height int, format cmdbuf.Format) (*image.NRGBA, error) {
	ch := format.Channels()
	if ch == 0 || len(data) != width*height*ch {
		return nil, fmt.Errorf("slice data size mismatch: expected %d, got %d", width*height*ch, len(data))
	}

	lo, hi := float32(0), float32(1)
	if ch == 1 {
		lo, hi = valueRange(data)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		srcY := height - 1 - y // Flip Y
		for x := 0; x < width; x++ {
			texel := data[(srcY*width+x)*ch : (srcY*width+x+1)*ch]
			img.SetNRGBA(x, y, texelColor(texel, lo, hi))
		}
	}
	return img, nil
}

func texelColor(t []float32, lo, hi float32) color.NRGBA {
	switch len(t) {
	case 1:
		v := unorm((t[0] - lo) / (hi - lo))
		return color.NRGBA{v, v, v, 255}
	case 2:
		return color.NRGBA{unorm(t[0]), unorm(t[1]), 0, 255}
	default:
		return color.NRGBA{unorm(t[0]), unorm(t[1]), unorm(t[2]), unorm(t[3])}
	}
}

func valueRange(data []float32) (lo, hi float32) {
	lo, hi = float32(math.Inf(1)), float32(math.Inf(-1))
	for _, v := range data {
		lo, hi = min(lo, v), max(hi, v)
	}
	if !(hi > lo) {
		// Flat or empty: map everything to black.
		return lo, lo + 1
	}
	return lo, hi
}

func unorm(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
