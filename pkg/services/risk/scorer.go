package risk

import (
	"fmt"

	"github.com/qe-tools/quality-atlas/pkg/models/domain"
)

const (
	minFactor = 1
	maxFactor = 10
)

type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// Score computes the Risk Priority Number from the three ordinal
// factors. Each factor must be an integer in [1,10]; the result is
// their exact product, in [1,1000]. Pure and deterministic.
func Score(severity, occurrence, detection int) (int, error) {
	for _, f := range []struct {
		name  string
		value int
	}{
		{"severity", severity},
		{"occurrence", occurrence},
		{"detection", detection},
	} {
		if f.value < minFactor || f.value > maxFactor {
			return 0, fmt.Errorf("%s score %d: %w", f.name, f.value, domain.ErrInvalidScoreRange)
		}
	}

	return severity * occurrence * detection, nil
}

// BandFor maps an RPN score to its display tier. Recomputed on every
// read; any factor change invalidates a cached band.
func BandFor(score int) Band {
	switch {
	case score > 100:
		return BandHigh
	case score > 50:
		return BandMedium
	default:
		return BandLow
	}
}
