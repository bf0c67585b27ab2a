package sampler

import (
	"math"
	"strings"
)

// fallbackProbability is used whenever the total estimate is unusable, so
// an unknown-size tree never admits unboundedly.
const fallbackProbability = 0.01

type Sampler struct {
	// PriorityPatterns are path substrings; a folder whose path contains
	// one gets its weight and admission probability boosted.
	PriorityPatterns []string
	// PriorityMultiplier applies per matching pattern; the max over all
	// matches wins.
	PriorityMultiplier float64
}

func New(patterns []string, multiplier float64) *Sampler {
	if multiplier <= 0 {
		multiplier = 3.0
	}
	return &Sampler{PriorityPatterns: patterns, PriorityMultiplier: multiplier}
}

// PerFileProbability returns the base chance of admitting a single scanned
// file. A cold-start ramp boosts it while the queue is nearly empty so the
// first render does not wait out a full statistical pass.
func PerFileProbability(targetQueueSize int, estimatedTotal int, currentQueueSize int) float64 {
	if estimatedTotal <= 0 {
		return fallbackProbability
	}

	p := float64(targetQueueSize) / float64(estimatedTotal)
	switch {
	case currentQueueSize < 10:
		p *= 10
	case currentQueueSize < 30:
		p *= 3
	case currentQueueSize < 50:
		p *= 1.5
	}
	if p > 1 {
		return 1
	}
	return p
}

// FolderWeight scores a folder by file count: tiny folders keep a linear
// chance to surface, large folders are log-dampened, and size tiers claw
// back part of the dampening for genuinely big collections.
func (s *Sampler) FolderWeight(folderPath string, fileCount int) float64 {
	if fileCount <= 0 {
		return 0
	}

	var w float64
	if fileCount < 5 {
		w = float64(fileCount) * 0.5
	} else {
		w = math.Log10(float64(fileCount)) * 10
	}

	w *= s.PathMultiplier(folderPath)

	switch {
	case fileCount > 10000:
		w *= 1.8
	case fileCount > 1000:
		w *= 1.5
	case fileCount > 100:
		w *= 1.2
	}
	return w
}

// PathMultiplier returns the priority boost for a folder path, 1.0 when no
// pattern matches.
func (s *Sampler) PathMultiplier(folderPath string) float64 {
	if s == nil || len(s.PriorityPatterns) == 0 {
		return 1.0
	}

	best := 1.0
	lower := strings.ToLower(folderPath)
	for _, pat := range s.PriorityPatterns {
		pat = strings.ToLower(strings.TrimSpace(pat))
		if pat == "" {
			continue
		}
		if strings.Contains(lower, pat) && s.PriorityMultiplier > best {
			best = s.PriorityMultiplier
		}
	}
	return best
}

// AdmissionProbability is the final per-file chance for a file in
// folderPath: base probability times the path priority boost, capped at 1.
func (s *Sampler) AdmissionProbability(folderPath string, targetQueueSize int, estimatedTotal int, currentQueueSize int) float64 {
	p := PerFileProbability(targetQueueSize, estimatedTotal, currentQueueSize)
	p *= s.PathMultiplier(folderPath)
	if p > 1 {
		return 1
	}
	return p
}
