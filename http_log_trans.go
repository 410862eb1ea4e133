/**
 * @Author: lidonglin
 * @Description:
 * @File:  http_log_trans.go
 * @Version: 1.0.0
 * @Date: 2022/07/13 15:58
 */

package tclient

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/choveylee/tlog"
)

type LogTransOption struct {
	enableSlowLog  bool
	ignoreNotFound bool
	slowLatency    time.Duration

	enableAccessLog bool
	includeHeaders  bool
}

func NewLogTransOption() *LogTransOption {
	return &LogTransOption{
		enableSlowLog:  true,
		ignoreNotFound: false,
		slowLatency:    500 * time.Millisecond,

		enableAccessLog: false,
		includeHeaders:  false,
	}
}

func (p *LogTransOption) WithSlowLog(enableSlowLog bool, slowLatency time.Duration) *LogTransOption {
	p.enableSlowLog = enableSlowLog
	p.slowLatency = slowLatency

	return p
}

func (p *LogTransOption) IgnoreNotFound(ignoreNotFound bool) *LogTransOption {
	p.ignoreNotFound = ignoreNotFound

	return p
}

func (p *LogTransOption) WithAccessLog(enableAccessLog bool) *LogTransOption {
	p.enableAccessLog = enableAccessLog

	return p
}

func (p *LogTransOption) IncludeHeaders(includeHeaders bool) *LogTransOption {
	p.includeHeaders = includeHeaders

	return p
}

var defaultLogTransOption = NewLogTransOption()

type logTransport struct {
	transport http.RoundTripper

	logTransOption *LogTransOption
}

func (p *logTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	startedAt := time.Now()
	resp, err := p.transport.RoundTrip(req)
	latency := time.Since(startedAt)

	status := "-1"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}

	if httpClientRequestHistogramErr == nil {
		httpClientRequestHistogram.Observe(ms(latency), req.Method, status, req.Host)
	}

	option := p.logTransOption

	if option.enableSlowLog == true && err == nil && latency > option.slowLatency {
		if resp.StatusCode == http.StatusOK || (resp.StatusCode == http.StatusNotFound && option.ignoreNotFound == false) {
			details := p.details(req, nil, latency)

			event := tlog.I(req.Context()).Err(err).Detailf("%s", details[0])
			for _, detail := range details[1:] {
				event = event.Detailf("%s", detail)
			}

			event.Msg("slow log")
		}
	}

	if option.enableAccessLog == true {
		details := p.details(req, resp, latency)

		event := tlog.I(req.Context()).Err(err).Detailf("%s", details[0])
		for _, detail := range details[1:] {
			event = event.Detailf("%s", detail)
		}

		event.Msg("access log")
	}

	return resp, err
}

func (p *logTransport) details(req *http.Request, resp *http.Response, latency time.Duration) []string {
	details := []string{
		fmt.Sprintf("req.method: %s", req.Method),
		fmt.Sprintf("req.host: %s", req.Host),
		fmt.Sprintf("req.url: %s", req.URL.String()),
		fmt.Sprintf("latency: %d", latency),
	}

	method, ok := RequestTagsFromContext(req.Context()).methodName()
	if ok == true {
		details = append(details, fmt.Sprintf("req.action: %s", method))
	}

	if p.logTransOption.includeHeaders == false {
		return details
	}

	for key, vals := range req.Header {
		details = append(details, fmt.Sprintf("req.header.%s: %s", key, strings.Join(vals, ";")))
	}

	if resp != nil {
		for key, vals := range resp.Header {
			details = append(details, fmt.Sprintf("resp.header.%s: %s", key, strings.Join(vals, ";")))
		}
	}

	return details
}

func wrapLogTransport(transport http.RoundTripper, logTransOption *LogTransOption) http.RoundTripper {
	if transport == nil {
		transport = http.DefaultTransport
	}

	if logTransOption == nil {
		logTransOption = defaultLogTransOption
	}

	return &logTransport{
		transport:      transport,
		logTransOption: logTransOption,
	}
}
