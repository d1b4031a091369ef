package hash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
)

// ContentHash identifies an image by its decoded pixels, so two encodings of
// the same picture share one key.
type ContentHash [sha256.Size]byte

// Hex returns the lowercase hex form used as a storage key.
func (h ContentHash) Hex() string {
	return hex.EncodeToString(h[:])
}

func (h ContentHash) String() string {
	return h.Hex()
}

// ParseContentHash parses the output of Hex.
func ParseContentHash(s string) (ContentHash, error) {
	var h ContentHash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid content hash %q: %w", s, err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("invalid content hash length %d", len(b))
	}
	copy(h[:], b)
	return h, nil
}

// OfImage hashes the RGB pixels of img row by row, prefixed by its width and
// height. Alpha is dropped and bounds are normalised to the origin.
func OfImage(img image.Image) ContentHash {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	hasher := sha256.New()
	var dims [8]byte
	binary.BigEndian.PutUint32(dims[:4], uint32(w))
	binary.BigEndian.PutUint32(dims[4:], uint32(h))
	hasher.Write(dims[:])

	row := make([]byte, 0, w*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row = row[:0]
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			row = append(row, c.R, c.G, c.B)
		}
		hasher.Write(row)
	}

	var out ContentHash
	copy(out[:], hasher.Sum(nil))
	return out
}
