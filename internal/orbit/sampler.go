package orbit

// SamplePath returns numPoints+1 positions evenly spaced in time over one
// period, with mean anomaly at epoch fixed to zero. The result depends only on
// the orbit's shape, so a satellite's phase never moves its path. Sample 0 and
// sample numPoints coincide, closing the loop.
//
// numPoints <= 0 selects DefaultPathPoints. A degenerate orbit yields an empty
// path.
func SamplePath(el Elements, numPoints int) Path {
	if el.Degenerate() {
		return Path{}
	}
	if numPoints <= 0 {
		numPoints = DefaultPathPoints
	}

	f := newFrame(el)
	period := el.Period()
	path := make(Path, 0, numPoints+1)
	for i := 0; i <= numPoints; i++ {
		t := float64(i) / float64(numPoints) * period
		path = append(path, f.position(t, 0))
	}
	return path
}

// SampleTimes returns the sample times SamplePath uses for the same arguments.
func SampleTimes(el Elements, numPoints int) []float64 {
	if el.Degenerate() {
		return nil
	}
	if numPoints <= 0 {
		numPoints = DefaultPathPoints
	}
	period := el.Period()
	times := make([]float64, numPoints+1)
	for i := range times {
		times[i] = float64(i) / float64(numPoints) * period
	}
	return times
}
