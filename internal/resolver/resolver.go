// Package resolver decides which registered identity, if any, a probe face
// descriptor belongs to.
package resolver

import (
	"errors"
	"math"
	"sort"
)

var (
	// ErrDescriptorUnavailable is returned by feature extractors when no
	// descriptor can be produced for an image. Callers treat it as no match.
	ErrDescriptorUnavailable = errors.New("descriptor unavailable")

	ErrEmptyDescriptor  = errors.New("empty probe descriptor")
	ErrInvalidThreshold = errors.New("threshold must be positive for distance policies")
	ErrUnknownPolicy    = errors.New("unknown distance policy")
)

// Descriptor is a face embedding or a flattened grayscale patch.
type Descriptor []float64

// Snapshot maps identity labels to the descriptors of their reference images.
type Snapshot map[string][]Descriptor

// Len returns the number of reference descriptors in the snapshot.
func (s Snapshot) Len() int {
	n := 0
	for _, refs := range s {
		n += len(refs)
	}
	return n
}

// Match is the outcome of one resolution.
type Match struct {
	Label      string  `json:"label,omitempty"`
	Matched    bool    `json:"matched"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Policy     string  `json:"policy"`
	// Nearest is the best scoring label even when it did not pass the threshold.
	Nearest string `json:"nearest,omitempty"`
	// Skipped counts references whose dimension differs from the probe or
	// whose score is not a finite number.
	Skipped int `json:"skipped,omitempty"`
}

// Resolve returns the identity in snapshot closest to probe under policy.
//
// The threshold is exclusive: a distance equal to threshold, or a similarity
// equal to threshold, is not a match. Each identity is scored by its best
// reference; identities are visited in label order and a later label only
// replaces the current best on a strict improvement.
func Resolve(probe Descriptor, snapshot Snapshot, policy Policy, threshold float64) (Match, error) {
	if len(probe) == 0 {
		return Match{}, ErrEmptyDescriptor
	}
	higher := policy.HigherIsBetter()
	if !higher && threshold <= 0 {
		return Match{}, ErrInvalidThreshold
	}

	m := Match{Policy: policy.Name()}
	if snapshot.Len() == 0 {
		return m, nil
	}

	better := func(a, b float64) bool {
		if higher {
			return a > b
		}
		return a < b
	}

	labels := make([]string, 0, len(snapshot))
	for label := range snapshot {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	found := false
	var bestLabel string
	var bestScore float64
	for _, label := range labels {
		scored := false
		var identityScore float64
		for _, ref := range snapshot[label] {
			if len(ref) != len(probe) {
				m.Skipped++
				continue
			}
			s := policy.Score(probe, ref)
			if math.IsNaN(s) || math.IsInf(s, 0) {
				m.Skipped++
				continue
			}
			if !scored || better(s, identityScore) {
				identityScore = s
				scored = true
			}
		}
		if !scored {
			continue
		}
		if !found || better(identityScore, bestScore) {
			bestLabel, bestScore = label, identityScore
			found = true
		}
	}

	if !found {
		return m, nil
	}

	m.Nearest = bestLabel
	m.Score = bestScore
	if !better(bestScore, threshold) {
		return m, nil
	}

	m.Label = bestLabel
	m.Matched = true
	m.Confidence = confidence(bestScore, threshold, higher)
	return m, nil
}

func confidence(score, threshold float64, higher bool) float64 {
	var c float64
	if higher {
		c = score
	} else {
		c = 1 - score/threshold
	}
	return clamp(c, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
