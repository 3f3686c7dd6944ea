package risk

import (
	"testing"

	"github.com/qe-tools/quality-atlas/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	t.Run("product of factors", func(t *testing.T) {
		score, err := Score(10, 5, 3)
		require.NoError(t, err)
		assert.Equal(t, 150, score)
	})

	t.Run("deterministic over full range", func(t *testing.T) {
		for s := 1; s <= 10; s++ {
			for o := 1; o <= 10; o++ {
				for d := 1; d <= 10; d++ {
					score, err := Score(s, o, d)
					require.NoError(t, err)
					assert.Equal(t, s*o*d, score)

					again, err := Score(s, o, d)
					require.NoError(t, err)
					assert.Equal(t, score, again)
				}
			}
		}
	})

	tests := []struct {
		name    string
		s, o, d int
	}{
		{"severity below range", 0, 5, 5},
		{"severity above range", 11, 5, 5},
		{"occurrence below range", 5, 0, 5},
		{"occurrence above range", 5, 11, 5},
		{"detection below range", 5, 5, 0},
		{"detection above range", 5, 5, 11},
		{"negative factor", -3, 5, 5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Score(tc.s, tc.o, tc.d)
			assert.ErrorIs(t, err, domain.ErrInvalidScoreRange)
		})
	}
}

func TestBandFor(t *testing.T) {
	tests := []struct {
		score    int
		expected Band
	}{
		{1, BandLow},
		{50, BandLow},
		{51, BandMedium},
		{100, BandMedium},
		{101, BandHigh},
		{150, BandHigh},
		{1000, BandHigh},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.expected, BandFor(tc.score), "score %d", tc.score)
	}
}
