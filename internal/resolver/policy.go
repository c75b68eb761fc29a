package resolver

import (
	"fmt"
	"math"
	"strings"
)

// Policy scores a probe against one reference descriptor. Both descriptors
// have the same, non-zero length when Score is called.
type Policy interface {
	Name() string
	Score(probe, ref Descriptor) float64
	// HigherIsBetter reports whether larger scores mean more similar faces.
	HigherIsBetter() bool
}

const (
	PolicyCosine              = "cosine"
	PolicyEuclidean           = "euclidean"
	PolicyEuclideanL2         = "euclidean_l2"
	PolicyTemplateCorrelation = "template_correlation"
)

var (
	Cosine              Policy = cosinePolicy{}
	Euclidean           Policy = euclideanPolicy{}
	EuclideanL2         Policy = euclideanL2Policy{}
	TemplateCorrelation Policy = correlationPolicy{}
)

// ParsePolicy maps a configuration value to a policy. Hyphens are accepted
// in place of underscores.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_") {
	case PolicyCosine:
		return Cosine, nil
	case PolicyEuclidean:
		return Euclidean, nil
	case PolicyEuclideanL2:
		return EuclideanL2, nil
	case PolicyTemplateCorrelation, "template":
		return TemplateCorrelation, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// DefaultThreshold returns the threshold used when none is configured.
func DefaultThreshold(p Policy) float64 {
	switch p.Name() {
	case PolicyCosine:
		return 0.4
	case PolicyEuclidean:
		return 10
	case PolicyEuclideanL2:
		return 0.86
	case PolicyTemplateCorrelation:
		return 0.6
	default:
		return 0
	}
}

type cosinePolicy struct{}

func (cosinePolicy) Name() string         { return PolicyCosine }
func (cosinePolicy) HigherIsBetter() bool { return false }

// Score returns 1 - cos(probe, ref). A zero vector has no direction and is
// scored as maximally distant.
func (cosinePolicy) Score(probe, ref Descriptor) float64 {
	var dot, normP, normR float64
	for i := range probe {
		dot += probe[i] * ref[i]
		normP += probe[i] * probe[i]
		normR += ref[i] * ref[i]
	}
	if normP == 0 || normR == 0 {
		return 2.0
	}
	return 1 - dot/(math.Sqrt(normP)*math.Sqrt(normR))
}

type euclideanPolicy struct{}

func (euclideanPolicy) Name() string         { return PolicyEuclidean }
func (euclideanPolicy) HigherIsBetter() bool { return false }

func (euclideanPolicy) Score(probe, ref Descriptor) float64 {
	return euclidean(probe, ref)
}

type euclideanL2Policy struct{}

func (euclideanL2Policy) Name() string         { return PolicyEuclideanL2 }
func (euclideanL2Policy) HigherIsBetter() bool { return false }

func (euclideanL2Policy) Score(probe, ref Descriptor) float64 {
	return euclidean(Normalize(probe), Normalize(ref))
}

type correlationPolicy struct{}

func (correlationPolicy) Name() string         { return PolicyTemplateCorrelation }
func (correlationPolicy) HigherIsBetter() bool { return true }

// Score is the zero-mean normalised cross-correlation of two equal-size
// patches, in [-1, 1]. Flat patches carry no signal and score 0.
func (correlationPolicy) Score(probe, ref Descriptor) float64 {
	n := float64(len(probe))
	var meanP, meanR float64
	for i := range probe {
		meanP += probe[i]
		meanR += ref[i]
	}
	meanP /= n
	meanR /= n

	var num, varP, varR float64
	for i := range probe {
		dp := probe[i] - meanP
		dr := ref[i] - meanR
		num += dp * dr
		varP += dp * dp
		varR += dr * dr
	}
	if varP == 0 || varR == 0 {
		return 0
	}
	return num / math.Sqrt(varP*varR)
}

func euclidean(a, b Descriptor) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Normalize returns v scaled to unit length. Zero vectors are returned as is.
func Normalize(v Descriptor) Descriptor {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	out := make(Descriptor, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
