package logo

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"testing"
)

func encodedPNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		t.Fatalf("EncodePNG() error = %v", err)
	}
	return buf.Bytes()
}

func TestAllowedContentType(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"image/png", true},
		{"image/jpeg", true},
		{"image/jpg", true},
		{"image/webp", true},
		{"IMAGE/PNG", true},
		{"image/png; charset=binary", true},
		{"image/gif", false},
		{"image/svg+xml", false},
		{"application/octet-stream", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			if got := AllowedContentType(tt.contentType); got != tt.want {
				t.Errorf("AllowedContentType(%q) = %v, want %v", tt.contentType, got, tt.want)
			}
		})
	}
}

func TestDecode_PNG(t *testing.T) {
	data := encodedPNG(t, bands())

	img, err := Decode(bytes.NewReader(data), "image/png")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if img.Bounds().Dx() != 300 || img.Bounds().Dy() != 200 {
		t.Errorf("bounds = %v, want 300x200", img.Bounds())
	}
}

func TestDecode_JPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, bands(), nil); err != nil {
		t.Fatalf("jpeg.Encode() error = %v", err)
	}

	img, err := Decode(&buf, "image/jpeg")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if img.Bounds().Dx() != 300 {
		t.Errorf("width = %d, want 300", img.Bounds().Dx())
	}
}

func TestDecode_UnsupportedType(t *testing.T) {
	data := encodedPNG(t, bands())

	_, err := Decode(bytes.NewReader(data), "image/gif")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Decode() error = %v, want ErrUnsupportedType", err)
	}
}

func TestDecode_Garbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("not an image")), "image/png")
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("Decode() error = %v, want ErrInvalidImage", err)
	}
}
