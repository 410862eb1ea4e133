/**
 * @Author: lidonglin
 * @Description: metric registration
 * @File:  metric.go
 * @Version: 1.0.0
 * @Date: 2022/07/14 10:58
 */

package tclient

import (
	"context"

	"github.com/choveylee/tlog"
	"github.com/choveylee/tmetric"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpClientRequestHistogram, httpClientRequestHistogramErr = tmetric.NewHistogramVec(
		"http_client_request_latency",
		"time between first byte of request headers sent to last byte of response received, or terminal error",
		[]string{
			"http_client_method",
			"http_client_status",
			"http_client_host",
		},
	)
)

func init() {
	if httpClientRequestHistogramErr != nil {
		tlog.W(context.Background()).Err(httpClientRequestHistogramErr).Msg("register http client request histogram")
	}
}

// Observer accepts one observation for the series identified by labelValues.
// labelValues are given in the order of the label names the series was
// registered with.
type Observer interface {
	Observe(value float64, labelValues ...string)
}

// MetricRegistry registers labeled metric series.
type MetricRegistry interface {
	Summary(name string, help string, labelNames []string) (Observer, error)
	Histogram(name string, help string, labelNames []string) (Observer, error)
}

type summaryObserver struct {
	vec *prometheus.SummaryVec
}

func (p *summaryObserver) Observe(value float64, labelValues ...string) {
	p.vec.WithLabelValues(labelValues...).Observe(value)
}

type histogramObserver struct {
	vec *prometheus.HistogramVec
}

func (p *histogramObserver) Observe(value float64, labelValues ...string) {
	p.vec.WithLabelValues(labelValues...).Observe(value)
}

// PromRegistry is a MetricRegistry backed by a prometheus.Registerer.
type PromRegistry struct {
	registerer prometheus.Registerer

	objectives map[float64]float64
	buckets    []float64
}

// NewPromRegistry returns a registry registering on registerer, or on
// prometheus.DefaultRegisterer when registerer is nil.
func NewPromRegistry(registerer prometheus.Registerer, metricsOption *MetricsOption) *PromRegistry {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	if metricsOption == nil {
		metricsOption = defaultMetricsOption
	}

	return &PromRegistry{
		registerer: registerer,

		objectives: metricsOption.objectives,
		buckets:    metricsOption.buckets,
	}
}

func (p *PromRegistry) Summary(name string, help string, labelNames []string) (Observer, error) {
	vec := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       name,
			Help:       help,
			Objectives: p.objectives,
		},
		labelNames,
	)

	collector, err := p.register(vec)
	if err != nil {
		return nil, errors.Wrapf(err, "register summary %s", name)
	}

	existVec, ok := collector.(*prometheus.SummaryVec)
	if ok == false {
		return nil, errors.Errorf("summary %s registered with another collector type", name)
	}

	return &summaryObserver{vec: existVec}, nil
}

func (p *PromRegistry) Histogram(name string, help string, labelNames []string) (Observer, error) {
	vec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    name,
			Help:    help,
			Buckets: p.buckets,
		},
		labelNames,
	)

	collector, err := p.register(vec)
	if err != nil {
		return nil, errors.Wrapf(err, "register histogram %s", name)
	}

	existVec, ok := collector.(*prometheus.HistogramVec)
	if ok == false {
		return nil, errors.Errorf("histogram %s registered with another collector type", name)
	}

	return &histogramObserver{vec: existVec}, nil
}

// register returns the collector serving the series, reusing one already
// registered under the same descriptor.
func (p *PromRegistry) register(collector prometheus.Collector) (prometheus.Collector, error) {
	err := p.registerer.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prometheus.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		return alreadyRegisteredErr.ExistingCollector, nil
	}

	return nil, err
}
