// Package imageio loads images for inference and fetches remote ones.
package imageio

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	_ "image/png" // register PNG decoder
	"os"
	"strings"

	"github.com/nfnt/resize"
)

// DefaultSize is the input edge length of the ImageNet networks.
const DefaultSize = 224

// ParseInterpolation maps a name to a resize function. The default
// "nearest" matches how the reference pipeline loaded its images.
func ParseInterpolation(name string) (resize.InterpolationFunction, error) {
	switch strings.ToLower(name) {
	case "", "nearest":
		return resize.NearestNeighbor, nil
	case "bilinear":
		return resize.Bilinear, nil
	case "bicubic":
		return resize.Bicubic, nil
	case "lanczos3":
		return resize.Lanczos3, nil
	}
	return 0, fmt.Errorf("unknown interpolation %q", name)
}

// Loader decodes image files and scales them to a square target size.
type Loader struct {
	Size   int
	Interp resize.InterpolationFunction
}

// NewLoader creates a loader; size <= 0 means DefaultSize.
func NewLoader(size int, interp resize.InterpolationFunction) *Loader {
	if size <= 0 {
		size = DefaultSize
	}
	return &Loader{Size: size, Interp: interp}
}

// Load decodes the file at path (JPEG, PNG or GIF) and resizes it to
// Size x Size, ignoring the aspect ratio.
func (l *Loader) Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return l.Resize(img), nil
}

// Resize scales img to the loader's size.
func (l *Loader) Resize(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() == l.Size && b.Dy() == l.Size {
		return img
	}
	return resize.Resize(uint(l.Size), uint(l.Size), img, l.Interp)
}

// EncodeJPEG encodes img for transport to a remote model.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode to jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
