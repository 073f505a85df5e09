package domain

// Combine merges the anomaly series of a cell's weighted contributing
// stations into one cell-level series of months entries.
//
// Each month is the weighted mean Σ(w·v)/Σw over the stations reporting that
// month; a station missing a month is excluded from both numerator and
// denominator for that month only. Weights are never renormalized against a
// fixed station set. A month with zero reporters, or an empty weight table,
// yields missing values. Summation is a plain accumulation over the table's
// stations and the result is independent of iteration order up to
// floating-point tolerance.
func Combine(table WeightTable, series map[string]Series, months int) Series {
	out := NewSeries(months)
	if len(table) == 0 {
		return out
	}

	sums := make([]float64, months)
	weights := make([]float64, months)
	for id, w := range table {
		s, ok := series[id]
		if !ok {
			continue
		}
		for i, v := range s {
			if v.Valid {
				sums[i] += w * v.Temp
				weights[i] += w
			}
		}
	}

	for i := range out {
		if weights[i] > 0 {
			out[i] = Value{Temp: sums[i] / weights[i], Valid: true}
		}
	}
	return out
}
