package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
)

// JPEGQuality is the encoder quality used for every upload
const JPEGQuality = 90

// FileExtension is the extension reported to Viam for normalized images
const FileExtension = ".jpg"

// DecodeError is returned when a file cannot be opened or decoded as an image
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode image %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NormalizeFile opens path and runs it through Normalize
func NormalizeFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	defer file.Close()

	data, err := Normalize(file)
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		decodeErr.Path = path
	}
	return data, err
}

// Normalize decodes an image and re-encodes it as a three channel JPEG.
// Transparent pixels are composited over white, so the alpha channel is
// dropped without darkening the colors underneath.
func Normalize(r io.Reader) ([]byte, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	bounds := src.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(canvas, bounds, src, bounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
