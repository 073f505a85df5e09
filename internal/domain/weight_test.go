package domain_test

import (
	"testing"

	"github.com/couchcryptid/gridtemp/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightFuncs_Properties(t *testing.T) {
	const radius = 1200.0

	for _, name := range []string{"linear", "cosine"} {
		t.Run(name, func(t *testing.T) {
			w, err := domain.WeightByName(name)
			require.NoError(t, err)

			assert.Equal(t, 1.0, w(0, radius))
			assert.Zero(t, w(radius, radius), "boundary is open")
			assert.Zero(t, w(radius+1, radius))

			prev := 1.0
			for d := 50.0; d < radius; d += 50 {
				cur := w(d, radius)
				assert.Positive(t, cur)
				assert.LessOrEqual(t, cur, prev, "weight must not increase with distance")
				prev = cur
			}
		})
	}
}

func TestLinearWeight_Triangular(t *testing.T) {
	assert.InDelta(t, 0.5, domain.LinearWeight(600, 1200), 1e-9)
	assert.InDelta(t, 0.25, domain.LinearWeight(900, 1200), 1e-9)
}

func TestWeightByName_Unknown(t *testing.T) {
	_, err := domain.WeightByName("gaussian")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gaussian")
}
