package services

import (
	"errors"
	"math"
	"strconv"

	"github.com/spaolacci/murmur3"

	"idealista-pricing/models"
)

// ErrInvalidFeatureCount is returned for a hashing width below one.
var ErrInvalidFeatureCount = errors.New("feature count must be positive")

// FeatureHasher maps string tokens into a fixed number of buckets using
// signed 32-bit MurmurHash3 with seed 0. The bucket is |h| mod N and the
// token contributes +1 or -1 depending on the sign of h, so colliding tokens
// tend to cancel out rather than accumulate.
type FeatureHasher struct {
	NFeatures int
}

// NewFeatureHasher creates a FeatureHasher with nFeatures buckets.
func NewFeatureHasher(nFeatures int) (*FeatureHasher, error) {
	if nFeatures < 1 {
		return nil, ErrInvalidFeatureCount
	}
	return &FeatureHasher{NFeatures: nFeatures}, nil
}

// Transform hashes each sample, a list of tokens, into a vector of length
// NFeatures. Repeated tokens accumulate.
func (h *FeatureHasher) Transform(samples [][]string) [][]float64 {
	out := make([][]float64, len(samples))
	for i, tokens := range samples {
		vec := make([]float64, h.NFeatures)
		for _, tok := range tokens {
			idx, sign := h.bucket(tok)
			vec[idx] += sign
		}
		out[i] = vec
	}
	return out
}

func (h *FeatureHasher) bucket(token string) (int, float64) {
	hash := int32(murmur3.Sum32([]byte(token)))
	n := int64(h.NFeatures)

	var idx int64
	if hash == math.MinInt32 {
		// |MinInt32| does not fit in int32; this equals 2^31 mod n.
		idx = (math.MaxInt32 - (n - 1)) % n
	} else {
		abs := int64(hash)
		if abs < 0 {
			abs = -abs
		}
		idx = abs % n
	}

	sign := 1.0
	if hash < 0 {
		sign = -1.0
	}
	return int(idx), sign
}

// HashColumns hashes samples into a table of nFeatures columns named
// "<prefix>_1" through "<prefix>_<nFeatures>", one row per sample.
func HashColumns(samples [][]string, nFeatures int, prefix string) (*models.Table, error) {
	h, err := NewFeatureHasher(nFeatures)
	if err != nil {
		return nil, err
	}

	columns := make([]string, nFeatures)
	for i := range columns {
		columns[i] = prefix + "_" + strconv.Itoa(i+1)
	}

	t := models.NewTable(columns...)
	for _, vec := range h.Transform(samples) {
		r := make(models.Row, nFeatures)
		for i, c := range columns {
			r[c] = vec[i]
		}
		t.AppendRow(r)
	}
	return t, nil
}
