package images

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func uniform(img settable, c color.Color) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			img.Set(x, y, c)
		}
	}
}

type settable interface {
	image.Image
	Set(x, y int, c color.Color)
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func near(a, b uint8) bool {
	d := int(a) - int(b)
	return d > -12 && d < 12
}

func TestNormalize(t *testing.T) {
	rect := image.Rect(0, 0, 16, 16)

	transparent := image.NewNRGBA(rect)
	uniform(transparent, color.NRGBA{R: 255, A: 0})

	opaque := image.NewNRGBA(rect)
	uniform(opaque, color.NRGBA{B: 255, A: 255})

	rgb := image.NewRGBA(rect)
	uniform(rgb, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	gray := image.NewGray(rect)
	uniform(gray, color.Gray{Y: 128})

	var jpegInput bytes.Buffer
	if err := jpeg.Encode(&jpegInput, rgb, nil); err != nil {
		t.Fatalf("Failed to encode jpeg: %v", err)
	}

	tests := []struct {
		name     string
		input    []byte
		expected color.RGBA
	}{
		{"transparent rgba flattens to white", encodePNG(t, transparent), color.RGBA{255, 255, 255, 255}},
		{"opaque rgba keeps color", encodePNG(t, opaque), color.RGBA{0, 0, 255, 255}},
		{"rgb png", encodePNG(t, rgb), color.RGBA{200, 100, 50, 255}},
		{"grayscale png", encodePNG(t, gray), color.RGBA{128, 128, 128, 255}},
		{"jpeg input", jpegInput.Bytes(), color.RGBA{200, 100, 50, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Normalize(bytes.NewReader(tt.input))
			if err != nil {
				t.Fatalf("Normalize returned error: %v", err)
			}

			decoded, format, err := image.Decode(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("Output is not decodable: %v", err)
			}
			if format != "jpeg" {
				t.Errorf("Expected jpeg output, got %s", format)
			}
			if _, ok := decoded.(*image.YCbCr); !ok {
				t.Errorf("Expected three channel YCbCr jpeg, got %T", decoded)
			}
			if decoded.Bounds() != rect {
				t.Errorf("Expected bounds %v, got %v", rect, decoded.Bounds())
			}

			r, g, b, _ := decoded.At(8, 8).RGBA()
			got := color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), 255}
			if !near(got.R, tt.expected.R) || !near(got.G, tt.expected.G) || !near(got.B, tt.expected.B) {
				t.Errorf("Expected pixel near %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestNormalizeRejectsNonImages(t *testing.T) {
	_, err := Normalize(bytes.NewReader([]byte("definitely not an image")))

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected DecodeError, got %v", err)
	}
}

func TestNormalizeFile(t *testing.T) {
	dir := t.TempDir()

	corrupt := filepath.Join(dir, "b.jpg")
	if err := os.WriteFile(corrupt, []byte("corrupt"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := NormalizeFile(corrupt)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected DecodeError, got %v", err)
	}
	if decodeErr.Path != corrupt {
		t.Errorf("Expected path %s on error, got %s", corrupt, decodeErr.Path)
	}

	_, err = NormalizeFile(filepath.Join(dir, "missing.png"))
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected DecodeError for missing file, got %v", err)
	}
}

func TestIsSupported(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"a.png", true},
		{"b.jpg", true},
		{"c.jpeg", true},
		{"UPPER.PNG", true},
		{"Mixed.JpEg", true},
		{"notes.txt", false},
		{"image.gif", false},
		{"png", false},
		{"archive.png.zip", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSupported(tt.name); got != tt.expected {
				t.Errorf("IsSupported(%q) = %v, expected %v", tt.name, got, tt.expected)
			}
		})
	}
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.jpg", "a.png", "notes.txt", "C.JPEG", "photo.gif"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.png"), 0755); err != nil {
		t.Fatal(err)
	}

	paths, err := Scan(dir)
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}

	expected := []string{
		filepath.Join(dir, "C.JPEG"),
		filepath.Join(dir, "a.png"),
		filepath.Join(dir, "b.jpg"),
	}
	if !reflect.DeepEqual(paths, expected) {
		t.Errorf("Expected %v, got %v", expected, paths)
	}
}

func TestScanMissingDirectory(t *testing.T) {
	if _, err := Scan(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected error for missing directory")
	}
}
