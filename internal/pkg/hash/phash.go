package hash

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math/bits"

	"github.com/corona10/goimagehash"
)

// Decoded is a downloaded image with its perceptual hash.
type Decoded struct {
	Image  image.Image
	Format string
	PHash  uint64
}

// PerceptualHasher computes DCT perceptual hashes.
type PerceptualHasher struct{}

func NewPerceptualHasher() *PerceptualHasher {
	return &PerceptualHasher{}
}

// ComputePHash computes the DCT-based perceptual hash of an image.
func (ph *PerceptualHasher) ComputePHash(img image.Image) (uint64, error) {
	h, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return 0, fmt.Errorf("failed to compute pHash: %w", err)
	}
	return h.GetHash(), nil
}

// Decode decodes jpeg, png or gif bytes and hashes the result.
func (ph *PerceptualHasher) Decode(data []byte) (*Decoded, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	p, err := ph.ComputePHash(img)
	if err != nil {
		return nil, err
	}
	return &Decoded{
		Image:  img,
		Format: format,
		PHash:  p,
	}, nil
}

// HammingDistance returns the number of differing bits (0 = identical).
func HammingDistance(hash1, hash2 uint64) int {
	return bits.OnesCount64(hash1 ^ hash2)
}

// IsSimilar reports whether two hashes are within threshold bits.
// Typical thresholds:
//   - 0: identical
//   - 1-5: same image with minor edits
//   - 6-10: somewhat similar
func IsSimilar(h1, h2 uint64, threshold int) bool {
	return HammingDistance(h1, h2) <= threshold
}
