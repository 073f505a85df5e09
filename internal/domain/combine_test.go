package domain_test

import (
	"math/rand"
	"testing"

	"github.com/couchcryptid/gridtemp/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombine_WeightedMean(t *testing.T) {
	table := domain.WeightTable{"A": 2, "B": 1}
	series := map[string]domain.Series{
		"A": {{Temp: 1, Valid: true}},
		"B": {{Temp: 4, Valid: true}},
	}

	out := domain.Combine(table, series, 1)

	require.Len(t, out, 1)
	require.True(t, out[0].Valid)
	assert.InDelta(t, 2.0, out[0].Temp, 1e-9) // (2·1 + 1·4) / 3
}

func TestCombine_MissingMonthExcludedFromDenominator(t *testing.T) {
	table := domain.WeightTable{"A": 2, "B": 1}
	series := map[string]domain.Series{
		"A": {{Temp: 1, Valid: true}, {}},
		"B": {{Temp: 4, Valid: true}, {Temp: 4, Valid: true}},
	}

	out := domain.Combine(table, series, 2)

	assert.InDelta(t, 2.0, out[0].Temp, 1e-9)
	require.True(t, out[1].Valid)
	assert.InDelta(t, 4.0, out[1].Temp, 1e-9, "only B reports the second month")
}

func TestCombine_NoCoverage(t *testing.T) {
	out := domain.Combine(domain.WeightTable{}, nil, 3)
	require.Len(t, out, 3)
	for _, v := range out {
		assert.False(t, v.Valid)
	}
}

func TestCombine_MonthWithZeroReporters(t *testing.T) {
	table := domain.WeightTable{"A": 1}
	series := map[string]domain.Series{
		"A": {{Temp: 1, Valid: true}, {}},
	}

	out := domain.Combine(table, series, 2)

	assert.True(t, out[0].Valid)
	assert.False(t, out[1].Valid)
}

func TestCombine_OrderIndependent(t *testing.T) {
	const months = 24
	rng := rand.New(rand.NewSource(7))

	table := make(domain.WeightTable)
	series := make(map[string]domain.Series)
	ids := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	for _, id := range ids {
		table[id] = rng.Float64()
		s := domain.NewSeries(months)
		for i := range s {
			if rng.Float64() < 0.8 {
				s[i] = domain.Value{Temp: rng.NormFloat64(), Valid: true}
			}
		}
		series[id] = s
	}

	// Map iteration order varies between runs; repeated calls must agree.
	first := domain.Combine(table, series, months)
	for trial := 0; trial < 10; trial++ {
		again := domain.Combine(table, series, months)
		for i := range first {
			require.Equal(t, first[i].Valid, again[i].Valid)
			if first[i].Valid {
				assert.InDelta(t, first[i].Temp, again[i].Temp, 1e-9)
			}
		}
	}
}
