// Package rate implements the pluggable target-rater contract: assign
// a tracking-rating integer in [0, 5] to a stored image. The two
// variants form a closed set, instantiated from configuration at
// startup.
package rate

import (
	"hash/fnv"
	"math"

	"github.com/mockrecon/mockrecon/core"
	"github.com/mockrecon/mockrecon/imgutil"
)

// Random assigns a uniform integer 0-5, seeded by the image content so
// that the same image always rates the same way across runs.
type Random struct{}

var _ core.Rater = Random{}

// Rate implements core.Rater. Images that fail to decode are handled by
// the caller (the store never invokes Rate for them); Random still
// returns a deterministic value for any byte slice.
func (Random) Rate(image []byte) int {
	h := fnv.New32a()
	_, _ = h.Write(image)
	return int(h.Sum32() % 6)
}

// PerceptualQuality approximates a no-reference image-quality metric by
// measuring the local variance of pixel intensity across an 8x8
// greyscale downscale, in the spirit of BRISQUE's naturalness-statistics
// approach, and clamping the result to [0, 5]. Images failing to decode
// return 0; the store treats such a target as failed regardless of
// this return value.
type PerceptualQuality struct{}

var _ core.Rater = PerceptualQuality{}

// Rate implements core.Rater.
func (PerceptualQuality) Rate(image []byte) int {
	img, err := imgutil.Decode(image)
	if err != nil {
		return 0
	}
	pixels := imgutil.Greyscale8x8(img)

	var sum float64
	for _, p := range pixels {
		sum += float64(p)
	}
	mean := sum / float64(len(pixels))

	var variance float64
	for _, p := range pixels {
		d := float64(p) - mean
		variance += d * d
	}
	variance /= float64(len(pixels))
	stddev := math.Sqrt(variance)

	// A higher-contrast, more-detailed thumbnail scores better: map a
	// standard deviation of 0-80 onto a 0-5 rating.
	rating := int(stddev / 16)
	if rating > 5 {
		rating = 5
	}
	if rating < 0 {
		rating = 0
	}
	return rating
}
