// Package imgutil centralizes the PNG/JPEG decode step shared by the
// store's status derivation, the match package's average-hash
// comparator, the rate package's perceptual-quality rater and both
// validator chains' image checks.
package imgutil

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Decode parses raw PNG or JPEG bytes into an image.Image. Any other
// format — including ones the underlying decoder would accept, like GIF
// or BMP — is an error, since the mocked service only admits PNG and
// JPEG targets.
func Decode(data []byte) (image.Image, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if format != "png" && format != "jpeg" {
		return nil, fmt.Errorf("unsupported image format %q", format)
	}
	return imaging.Decode(bytes.NewReader(data))
}

// Decodable reports whether data decodes as a PNG or JPEG image.
func Decodable(data []byte) bool {
	_, err := Decode(data)
	return err == nil
}

// Dimensions returns the decoded width and height of data, or an error
// if it does not decode.
func Dimensions(data []byte) (width, height int, err error) {
	img, err := Decode(data)
	if err != nil {
		return 0, 0, err
	}
	bounds := img.Bounds()
	return bounds.Dx(), bounds.Dy(), nil
}

// Greyscale8x8 downscales img to 8x8 and converts it to greyscale,
// returning the 64 pixel intensities in row-major order. Shared by the
// average-hash matcher and the perceptual-quality rater.
func Greyscale8x8(img image.Image) [64]uint8 {
	small := imaging.Resize(img, 8, 8, imaging.Lanczos)
	grey := imaging.Grayscale(small)
	var out [64]uint8
	i := 0
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			r, _, _, _ := grey.At(x, y).RGBA()
			out[i] = uint8(r >> 8)
			i++
		}
	}
	return out
}
