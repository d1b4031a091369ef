package hash

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func createTestImage(width, height int, fill color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fill)
		}
	}
	return img
}

func createGradientImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gray := uint8((x + y) * 255 / (width + height))
			img.Set(x, y, color.RGBA{gray, gray, gray, 255})
		}
	}
	return img
}

func encodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	return buf.Bytes()
}

func TestPerceptualHasher_ComputePHash(t *testing.T) {
	ph := NewPerceptualHasher()
	img := createGradientImage(100, 100)

	h1, err := ph.ComputePHash(img)
	if err != nil {
		t.Fatalf("ComputePHash failed: %v", err)
	}
	h2, err := ph.ComputePHash(img)
	if err != nil {
		t.Fatalf("ComputePHash failed: %v", err)
	}
	if h1 != h2 {
		t.Errorf("same image produced %x and %x", h1, h2)
	}
}

func TestPerceptualHasher_Decode(t *testing.T) {
	ph := NewPerceptualHasher()
	img := createGradientImage(64, 48)

	d, err := ph.Decode(encodePNG(t, img))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if d.Format != "png" {
		t.Errorf("Format = %s; want png", d.Format)
	}
	if OfImage(d.Image) != OfImage(img) {
		t.Error("decoded content hash differs from source pixels")
	}
	want, _ := ph.ComputePHash(img)
	if d.PHash != want {
		t.Errorf("PHash = %x; want %x", d.PHash, want)
	}
}

func TestPerceptualHasher_DecodeGarbage(t *testing.T) {
	ph := NewPerceptualHasher()
	if _, err := ph.Decode([]byte("not an image")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestHammingDistance(t *testing.T) {
	tests := []struct {
		name     string
		hash1    uint64
		hash2    uint64
		expected int
	}{
		{"identical", 0xFFFFFFFFFFFFFFFF, 0xFFFFFFFFFFFFFFFF, 0},
		{"one bit different", 0xFFFFFFFFFFFFFFFE, 0xFFFFFFFFFFFFFFFF, 1},
		{"completely different", 0x0, 0xFFFFFFFFFFFFFFFF, 64},
		{"half swapped", 0x00000000FFFFFFFF, 0xFFFFFFFF00000000, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := HammingDistance(tt.hash1, tt.hash2)
			if result != tt.expected {
				t.Errorf("HammingDistance(%x, %x) = %d; want %d", tt.hash1, tt.hash2, result, tt.expected)
			}
		})
	}
}

func TestIsSimilar(t *testing.T) {
	h1 := uint64(0xFFFFFFFFFFFFFFFF)
	h2 := uint64(0xFFFFFFFFFFFFFFF0) // 4 bits different

	if !IsSimilar(h1, h2, 5) {
		t.Error("expected similar with threshold 5")
	}
	if IsSimilar(h1, h2, 3) {
		t.Error("expected not similar with threshold 3")
	}
}

func TestOfImage_IgnoresEncoding(t *testing.T) {
	img := createTestImage(8, 8, color.RGBA{10, 20, 30, 255})

	// PNG is lossless, so a round trip keeps the pixels and the hash.
	decoded, err := png.Decode(bytes.NewReader(encodePNG(t, img)))
	if err != nil {
		t.Fatalf("png.Decode failed: %v", err)
	}
	if OfImage(img) != OfImage(decoded) {
		t.Error("content hash changed across a lossless re-encode")
	}
}

func TestOfImage_DistinguishesPixelsAndShape(t *testing.T) {
	a := OfImage(createTestImage(8, 8, color.White))
	b := OfImage(createTestImage(8, 8, color.Black))
	c := OfImage(createTestImage(4, 16, color.White))

	if a == b {
		t.Error("different pixels produced the same hash")
	}
	if a == c {
		t.Error("different dimensions produced the same hash")
	}
}

func TestOfImage_NormalisesBounds(t *testing.T) {
	src := createGradientImage(20, 20).(*image.RGBA)
	sub := src.SubImage(image.Rect(5, 5, 15, 15))

	moved := image.NewRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			moved.Set(x, y, src.At(x+5, y+5))
		}
	}
	if OfImage(sub) != OfImage(moved) {
		t.Error("offset bounds changed the content hash")
	}
}

func TestContentHash_HexRoundTrip(t *testing.T) {
	h := OfImage(createGradientImage(10, 10))
	parsed, err := ParseContentHash(h.Hex())
	if err != nil {
		t.Fatalf("ParseContentHash failed: %v", err)
	}
	if parsed != h {
		t.Error("hex round trip changed the hash")
	}
	if _, err := ParseContentHash("abcd"); err == nil {
		t.Error("expected length error")
	}
}

func TestPerceptualHasher_DecodeJPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, createGradientImage(16, 16), nil); err != nil {
		t.Fatalf("jpeg.Encode failed: %v", err)
	}
	d, err := NewPerceptualHasher().Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if d.Format != "jpeg" {
		t.Errorf("Format = %s; want jpeg", d.Format)
	}
}

func BenchmarkOfImage(b *testing.B) {
	img := createGradientImage(256, 256)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		OfImage(img)
	}
}

func BenchmarkHammingDistance(b *testing.B) {
	h1 := uint64(0xDEADBEEF12345678)
	h2 := uint64(0xCAFEBABE87654321)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		HammingDistance(h1, h2)
	}
}
