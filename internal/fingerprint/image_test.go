package fingerprint

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func createTestImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodeJPEG(img image.Image) []byte {
	var buf bytes.Buffer
	_ = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("format = %q; want jpeg", format)
	}
	return cfg.Width, cfg.Height
}

func TestResizeImage(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		maxSize       int
		wantW, wantH  int
	}{
		{"landscape downscaled", 400, 200, 100, 100, 50},
		{"portrait downscaled", 200, 400, 100, 50, 100},
		{"square downscaled", 300, 300, 150, 150, 150},
		{"small kept", 80, 60, 100, 80, 60},
		{"no limit", 120, 90, 0, 120, 90},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data := encodeJPEG(createTestImage(tc.width, tc.height, color.White))
			out, err := ResizeImage(data, tc.maxSize)
			if err != nil {
				t.Fatalf("ResizeImage failed: %v", err)
			}
			w, h := decodeSize(t, out)
			if w != tc.wantW || h != tc.wantH {
				t.Errorf("size = %dx%d; want %dx%d", w, h, tc.wantW, tc.wantH)
			}
		})
	}
}

func TestResizeImage_PNGBecomesJPEG(t *testing.T) {
	data := encodePNG(createTestImage(50, 40, color.Black))

	out, err := ResizeImage(data, 1920)
	if err != nil {
		t.Fatalf("ResizeImage failed: %v", err)
	}
	if got := detectMIMEType(out); got != "image/jpeg" {
		t.Errorf("detectMIMEType = %q; want image/jpeg", got)
	}
}

func TestResizeImage_InvalidData(t *testing.T) {
	_, err := ResizeImage([]byte("definitely not an image"), 100)
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("expected ErrInvalidImage, got %v", err)
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"gif", []byte("GIF89a\x00\x00"), "image/gif"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBP"), "image/webp"},
		{"short", []byte{0xFF, 0xD8}, "application/octet-stream"},
		{"unknown", []byte("plain text data"), "application/octet-stream"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectMIMEType(tc.data); got != tc.want {
				t.Errorf("detectMIMEType() = %q; want %q", got, tc.want)
			}
		})
	}
}

func TestImageExtension(t *testing.T) {
	if got := ImageExtension(encodePNG(createTestImage(4, 4, color.White))); got != ".png" {
		t.Errorf("ImageExtension(png) = %q; want .png", got)
	}
	if got := ImageExtension(encodeJPEG(createTestImage(4, 4, color.White))); got != ".jpg" {
		t.Errorf("ImageExtension(jpeg) = %q; want .jpg", got)
	}
	if got := ImageExtension([]byte("?")); got != ".jpg" {
		t.Errorf("ImageExtension(unknown) = %q; want .jpg", got)
	}
}
