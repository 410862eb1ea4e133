/**
 * @Author: lidonglin
 * @Description: options of client metrics
 * @File:  metric_option.go
 * @Version: 1.0.0
 * @Date: 2023/11/20 14:12
 */

package tclient

const (
	DefaultLatencySummaryName = "client_http_request_latency_ms"
	DefaultLatencySummaryHelp = "count and duration in ms of outgoing client requests"

	DefaultLatencyHistogramName = "histo_client_http_request_latency_ms"
	DefaultLatencyHistogramHelp = "histogram in ms of outgoing client requests"

	LabelAction = "action"
	LabelCode   = "code"

	OutcomeTimeout = "timeout"
)

var (
	DefaultLatencyObjectives = map[float64]float64{0.5: 0.05, 0.75: 0.02, 0.95: 0.01, 0.99: 0.001}

	// DefaultLatencyBuckets in ms
	DefaultLatencyBuckets = []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}
)

type MetricsOption struct {
	summaryName string
	summaryHelp string

	histogramName string
	histogramHelp string

	objectives map[float64]float64
	buckets    []float64
}

func NewMetricsOption() *MetricsOption {
	return &MetricsOption{
		summaryName: DefaultLatencySummaryName,
		summaryHelp: DefaultLatencySummaryHelp,

		histogramName: DefaultLatencyHistogramName,
		histogramHelp: DefaultLatencyHistogramHelp,

		objectives: DefaultLatencyObjectives,
		buckets:    DefaultLatencyBuckets,
	}
}

// WithSummary overrides the summary name and help, empty values are ignored
func (p *MetricsOption) WithSummary(name string, help string) *MetricsOption {
	if name != "" {
		p.summaryName = name
	}

	if help != "" {
		p.summaryHelp = help
	}

	return p
}

// WithHistogram overrides the histogram name and help, empty values are ignored
func (p *MetricsOption) WithHistogram(name string, help string) *MetricsOption {
	if name != "" {
		p.histogramName = name
	}

	if help != "" {
		p.histogramHelp = help
	}

	return p
}

func (p *MetricsOption) WithObjectives(objectives map[float64]float64) *MetricsOption {
	if len(objectives) > 0 {
		p.objectives = objectives
	}

	return p
}

func (p *MetricsOption) WithBuckets(buckets []float64) *MetricsOption {
	if len(buckets) > 0 {
		p.buckets = buckets
	}

	return p
}

var defaultMetricsOption = NewMetricsOption()
