package domain

// BaselineMeans computes the per-calendar-month mean of the valid values
// inside the baseline window [baselineStart, baselineEnd]. A month with no
// valid baseline observations yields a missing mean.
func BaselineMeans(s Series, startYear, baselineStart, baselineEnd int) [12]Value {
	var sums [12]float64
	var counts [12]int

	from := (baselineStart - startYear) * 12
	to := (baselineEnd-startYear)*12 + 11
	if from < 0 {
		from = 0
	}
	if to >= len(s) {
		to = len(s) - 1
	}
	for i := from; i <= to; i++ {
		if s[i].Valid {
			sums[i%12] += s[i].Temp
			counts[i%12]++
		}
	}

	var means [12]Value
	for m := range means {
		if counts[m] > 0 {
			means[m] = Value{Temp: sums[m] / float64(counts[m]), Valid: true}
		}
	}
	return means
}

// ToAnomalies converts an absolute temperature series to deviations from its
// baseline-period monthly means. Months whose baseline mean is missing become
// missing, since they have no zero-point. Returns ok=false when the station
// has no valid observations anywhere in the baseline window, in which case it
// cannot be anchored and must be excluded from combination.
func ToAnomalies(s Series, startYear, baselineStart, baselineEnd int) (Series, bool) {
	means := BaselineMeans(s, startYear, baselineStart, baselineEnd)

	anchored := false
	for _, m := range means {
		if m.Valid {
			anchored = true
			break
		}
	}
	if !anchored {
		return nil, false
	}

	out := make(Series, len(s))
	for i, v := range s {
		m := means[i%12]
		if v.Valid && m.Valid {
			out[i] = Value{Temp: v.Temp - m.Temp, Valid: true}
		}
	}
	return out, true
}
