package services

// Fixed aggregation weights. CV: skills 40%, experience 25%, achievements 20%,
// culture 15%. Project: correctness 30%, code 25%, results 20%, docs 15%,
// bonus 10%.

func clampFloat(lo, hi, v float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// AggregateCV folds the CV sub-scores into a single 1..5 value.
func AggregateCV(s CVScores) float64 {
	sum := 0.40*float64(s.Skills) + 0.25*float64(s.Exp) + 0.20*float64(s.Ach) + 0.15*float64(s.Culture)
	return clampFloat(1.0, 5.0, sum)
}

// AggregateProject folds the project sub-scores into a single 1..5 value.
func AggregateProject(s ProjectScores) float64 {
	sum := 0.30*float64(s.Corr) + 0.25*float64(s.Code) + 0.20*float64(s.Res) +
		0.15*float64(s.Docs) + 0.10*float64(s.Bonus)
	return clampFloat(1.0, 5.0, sum)
}

// CVMatchRate maps the 1..5 aggregate onto the persisted 0..100 scale.
func CVMatchRate(s CVScores) float64 {
	return AggregateCV(s) * 20.0
}
