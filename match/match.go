// Package match implements the pluggable image-matcher contract: does
// a query image match a stored target image? The two variants form a
// closed set, instantiated from configuration at startup.
package match

import (
	"bytes"
	"math/bits"

	"github.com/mockrecon/mockrecon/core"
	"github.com/mockrecon/mockrecon/imgutil"
)

// Exact matches two images by raw byte equality.
type Exact struct{}

var _ core.Matcher = Exact{}

// Matches reports whether storedImage and queryImage are byte-identical.
func (Exact) Matches(storedImage, queryImage []byte) bool {
	return bytes.Equal(storedImage, queryImage)
}

// DefaultAverageHashThreshold is the Hamming-distance cutoff used when
// no explicit threshold is configured.
const DefaultAverageHashThreshold = 10

// AverageHash matches two images by computing a 64-bit perceptual hash
// (8x8 downscale, greyscale mean threshold) for each and comparing their
// Hamming distance against Threshold. If either image fails to decode,
// Matches returns false.
type AverageHash struct {
	Threshold int
}

var _ core.Matcher = AverageHash{}

// NewAverageHash returns an AverageHash matcher with the default
// threshold.
func NewAverageHash() AverageHash {
	return AverageHash{Threshold: DefaultAverageHashThreshold}
}

// Matches implements core.Matcher.
func (m AverageHash) Matches(storedImage, queryImage []byte) bool {
	storedHash, ok := hash(storedImage)
	if !ok {
		return false
	}
	queryHash, ok := hash(queryImage)
	if !ok {
		return false
	}
	threshold := m.Threshold
	if threshold == 0 {
		threshold = DefaultAverageHashThreshold
	}
	return bits.OnesCount64(storedHash^queryHash) <= threshold
}

// hash computes the average-hash of raw image bytes: decode, downscale
// to 8x8 greyscale, then set bit i when pixel i's intensity is at or
// above the 64-pixel mean.
func hash(data []byte) (uint64, bool) {
	img, err := imgutil.Decode(data)
	if err != nil {
		return 0, false
	}
	pixels := imgutil.Greyscale8x8(img)

	var sum int
	for _, p := range pixels {
		sum += int(p)
	}
	mean := sum / len(pixels)

	var h uint64
	for i, p := range pixels {
		if int(p) >= mean {
			h |= 1 << uint(i)
		}
	}
	return h, true
}
