package types

import "fmt"

// Period selects the granularity of the energy balance navigator.
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod validates a period name.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodWeek, PeriodMonth, PeriodYear:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period: %q", s)
	}
}

// HeatmapMetric selects the value plotted in the history heatmap.
type HeatmapMetric string

const (
	HeatmapPrice  HeatmapMetric = "price"
	HeatmapBuy    HeatmapMetric = "buy"
	HeatmapExport HeatmapMetric = "export"
)

// ParseHeatmapMetric validates a heatmap metric name.
func ParseHeatmapMetric(s string) (HeatmapMetric, error) {
	switch m := HeatmapMetric(s); m {
	case HeatmapPrice, HeatmapBuy, HeatmapExport:
		return m, nil
	default:
		return "", fmt.Errorf("unknown heatmap metric: %q", s)
	}
}
