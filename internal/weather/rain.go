package weather

// RainEvent describes the first contiguous run of qualifying precipitation samples.
type RainEvent struct {
	StartMin    int     `json:"startMin"`
	DurationMin int     `json:"durationMin"`
	TotalMm     float64 `json:"totalMm"`
}

// ComputeRainEvent scans a fixed-step precipitation series and returns the
// first run of samples at or above threshold. StartMin is the offset of the
// run's first sample from the start of the series.
func ComputeRainEvent(series []float64, threshold float64, stepMin int) (RainEvent, bool) {
	start := -1
	var ev RainEvent
	for i, v := range series {
		if v >= threshold {
			if start < 0 {
				start = i
				ev.StartMin = i * stepMin
			}
			ev.DurationMin += stepMin
			ev.TotalMm += v
			continue
		}
		if start >= 0 {
			break
		}
	}
	return ev, start >= 0
}
