package downsampling

// LastValid returns the finite value with the latest instant in the series,
// ignoring any window. Ties on instant go to the later sample. Ceilings are
// not applied. Returns nil when the series has no valid sample.
func LastValid(series Series) *float64 {
	var (
		found bool
		best  Sample
	)
	for _, s := range series.Samples {
		if !s.IsValid() {
			continue
		}
		if !found || !s.Instant.Before(best.Instant) {
			best = s
			found = true
		}
	}
	if !found {
		return nil
	}
	v := best.Value
	return &v
}

// LastValidInAggregate returns the last non-nil value of an aggregate
func LastValidInAggregate(points []AggregatedPoint) *float64 {
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].Value != nil {
			v := *points[i].Value
			return &v
		}
	}
	return nil
}
