// internal/view/chart.go
package view

// ChartSeries holds the line chart input. All slices are indexed in lockstep
// with ViewState.History.
type ChartSeries struct {
	Labels      []string  `json:"labels"`
	HeartRate   []float64 `json:"heart_rate"`
	SpO2        []float64 `json:"spo2"`
	Temperature []float64 `json:"temperature"`
}

// Chart builds the parallel series from a snapshot. labelLayout is a
// time.Format layout applied to each reading's local time.
func Chart(s ViewState, labelLayout string) ChartSeries {
	n := len(s.History)
	cs := ChartSeries{
		Labels:      make([]string, n),
		HeartRate:   make([]float64, n),
		SpO2:        make([]float64, n),
		Temperature: make([]float64, n),
	}
	for i, r := range s.History {
		cs.Labels[i] = r.Time().Local().Format(labelLayout)
		cs.HeartRate[i] = r.HeartRate
		cs.SpO2[i] = r.SpO2
		cs.Temperature[i] = r.Temperature
	}
	return cs
}
