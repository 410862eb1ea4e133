/**
 * @Author: lidonglin
 * @Description: latency metrics of outgoing client requests
 * @File:  metric_interceptor.go
 * @Version: 1.0.0
 * @Date: 2023/11/20 15:40
 */

package tclient

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/choveylee/tlog"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsInterceptorFactory owns the latency series shared by every
// interceptor it creates.
type MetricsInterceptorFactory struct {
	requestDurationSummary   Observer
	requestDurationHistogram Observer
}

// NewMetricsInterceptorFactory registers the latency summary and histogram,
// both labeled by action and code, on registry.
func NewMetricsInterceptorFactory(registry MetricRegistry, metricsOption *MetricsOption) (*MetricsInterceptorFactory, error) {
	if metricsOption == nil {
		metricsOption = defaultMetricsOption
	}

	labelNames := []string{LabelAction, LabelCode}

	summary, err := registry.Summary(metricsOption.summaryName, metricsOption.summaryHelp, labelNames)
	if err != nil {
		return nil, err
	}

	histogram, err := registry.Histogram(metricsOption.histogramName, metricsOption.histogramHelp, labelNames)
	if err != nil {
		return nil, err
	}

	factory := &MetricsInterceptorFactory{
		requestDurationSummary:   summary,
		requestDurationHistogram: histogram,
	}

	return factory, nil
}

// Create returns an interceptor for the client named clientName.
func (p *MetricsInterceptorFactory) Create(clientName string) *MetricsInterceptor {
	return NewMetricsInterceptor(clientName, p.requestDurationSummary, p.requestDurationHistogram)
}

var (
	defaultMetricsInterceptorFactory     *MetricsInterceptorFactory
	defaultMetricsInterceptorFactoryErr  error
	defaultMetricsInterceptorFactoryOnce sync.Once
)

// DefaultMetricsInterceptorFactory returns the process wide factory,
// registered on prometheus.DefaultRegisterer.
func DefaultMetricsInterceptorFactory() (*MetricsInterceptorFactory, error) {
	defaultMetricsInterceptorFactoryOnce.Do(func() {
		registry := NewPromRegistry(prometheus.DefaultRegisterer, defaultMetricsOption)

		defaultMetricsInterceptorFactory, defaultMetricsInterceptorFactoryErr = NewMetricsInterceptorFactory(registry, defaultMetricsOption)
		if defaultMetricsInterceptorFactoryErr != nil {
			tlog.W(context.Background()).Err(defaultMetricsInterceptorFactoryErr).Msg("default metrics interceptor factory")
		}
	})

	return defaultMetricsInterceptorFactory, defaultMetricsInterceptorFactoryErr
}

// MetricsInterceptor records the latency of requests tagged with an
// invocation or a streaming method.
type MetricsInterceptor struct {
	clientName string

	requestDurationSummary   Observer
	requestDurationHistogram Observer
}

// NewMetricsInterceptor binds clientName to series registered with the
// labels action and code.
func NewMetricsInterceptor(clientName string, summary Observer, histogram Observer) *MetricsInterceptor {
	return &MetricsInterceptor{
		clientName: clientName,

		requestDurationSummary:   summary,
		requestDurationHistogram: histogram,
	}
}

func (p *MetricsInterceptor) ClientName() string {
	return p.clientName
}

// ActionName returns "{clientName}.{method}" for a tagged ctx.
func (p *MetricsInterceptor) ActionName(ctx context.Context) (string, bool) {
	method, ok := RequestTagsFromContext(ctx).methodName()
	if ok == false {
		return "", false
	}

	return actionName(p.clientName, method), true
}

// Intercept forwards req to next. The latency of the call is recorded when
// next returns a response or a transport timeout; resp and err are
// returned as next returned them.
func (p *MetricsInterceptor) Intercept(req *http.Request, next http.RoundTripper) (*http.Response, error) {
	action, ok := p.ActionName(req.Context())
	if ok == false {
		return next.RoundTrip(req)
	}

	startedAt := time.Now()
	resp, err := next.RoundTrip(req)
	latency := time.Since(startedAt)

	switch classifyCall(resp, err) {
	case callOk:
		p.observe(action, statusCodeLabel(resp), latency)
	case callTimeout:
		p.observe(action, OutcomeTimeout, latency)

		tlog.W(req.Context()).Err(err).Detailf("action: %s", action).
			Detailf("req.host: %s", req.Host).Detailf("latency: %d", latency).Msg("http client timeout")
	case callOther:
	}

	return resp, err
}

// Wrap returns a transport intercepting every request sent to next.
func (p *MetricsInterceptor) Wrap(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}

	return &metricTransport{
		transport:   next,
		interceptor: p,
	}
}

func (p *MetricsInterceptor) observe(action string, code string, latency time.Duration) {
	elapsedMillis := ms(latency)

	p.requestDurationSummary.Observe(elapsedMillis, action, code)
	p.requestDurationHistogram.Observe(elapsedMillis, action, code)
}

func ms(d time.Duration) float64 {
	if d < 0 {
		d = 0
	}

	return float64(d) / float64(time.Millisecond)
}

type metricTransport struct {
	transport http.RoundTripper

	interceptor *MetricsInterceptor
}

func (p *metricTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return p.interceptor.Intercept(req, p.transport)
}
