/**
 * @Author: lidonglin
 * @Description:
 * @File:  http_request.go
 * @Version: 1.0.0
 * @Date: 2022/06/05 11:49
 */

package tclient

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"
)

type RequestOption struct {
	Options map[int]interface{}

	Headers map[string]string

	Cookies []*http.Cookie

	// Tags name the action of the request in latency metrics
	Tags RequestTags

	lock *sync.Mutex
}

func NewRequestOption() *RequestOption {
	requestOption := &RequestOption{
		Options: make(map[int]interface{}),

		Headers: make(map[string]string),

		Cookies: make([]*http.Cookie, 0),

		lock: &sync.Mutex{},
	}

	return requestOption
}

// WithOption transport options belong to the client and are ignored here
func (p *RequestOption) WithOption(key int, val interface{}) *RequestOption {
	p.lock.Lock()
	defer p.lock.Unlock()

	_, ok := OptTransports[key]
	if ok == true {
		return p
	}

	p.Options[key] = val

	return p
}

// WithTimeout timeout option
func (p *RequestOption) WithTimeout(timeout time.Duration) *RequestOption {
	return p.WithOption(OptTimeout, timeout)
}

// WithTransport base transport of this request
func (p *RequestOption) WithTransport(transport http.RoundTripper) *RequestOption {
	return p.WithOption(OptTransBase, transport)
}

// WithLogTransOption log trans option
func (p *RequestOption) WithLogTransOption(option *LogTransOption) *RequestOption {
	return p.WithOption(OptTransLog, option)
}

// WithMetricsInterceptor overrides the interceptor of the client, nil disables it
func (p *RequestOption) WithMetricsInterceptor(interceptor *MetricsInterceptor) *RequestOption {
	return p.WithOption(OptTransMetric, interceptor)
}

// WithCookieJar cookie jar
func (p *RequestOption) WithCookieJar(jar http.CookieJar) *RequestOption {
	return p.WithOption(OptCookieJar, jar)
}

// WithRedirectPolicy redirect policy
func (p *RequestOption) WithRedirectPolicy(option RedirectPolicyFunc) *RequestOption {
	return p.WithOption(OptRedirectPolicy, option)
}

// WithRequestHookFunc request hook func
func (p *RequestOption) WithRequestHookFunc(option RequestHookFunc) *RequestOption {
	return p.WithOption(OptExtraRequestHookFunc, option)
}

// WithResponseHookFunc response hook func
func (p *RequestOption) WithResponseHookFunc(option ResponseHookFunc) *RequestOption {
	return p.WithOption(OptExtraResponseHookFunc, option)
}

// WithInvocation tags the request as an invocation of method
func (p *RequestOption) WithInvocation(method string) *RequestOption {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.Tags.Invocation = &InvocationTag{Method: method}

	return p
}

// WithStreamMethod tags the request with a streaming method path, e.g. /pkg.Service/Method
func (p *RequestOption) WithStreamMethod(path string) *RequestOption {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.Tags.StreamMethod = &StreamMethodTag{Path: path}

	return p
}

func (p *RequestOption) WithHeader(key string, val string) *RequestOption {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.Headers[strings.ToLower(key)] = val

	return p
}

func (p *RequestOption) WithUserAgent(val string) *RequestOption {
	return p.WithHeader("user-agent", val)
}

func (p *RequestOption) WithContentType(val string) *RequestOption {
	return p.WithHeader("content-type", val)
}

func (p *RequestOption) WithHeaders(headers map[string]string) *RequestOption {
	for key, val := range headers {
		p.WithHeader(key, val)
	}

	return p
}

func (p *RequestOption) WithCookies(cookies ...*http.Cookie) *RequestOption {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.Cookies = append(p.Cookies, cookies...)

	return p
}

// tagContext attaches the tags of the option on top of those already in ctx
func (p *RequestOption) tagContext(ctx context.Context) context.Context {
	if p.Tags.Invocation != nil {
		ctx = WithInvocation(ctx, p.Tags.Invocation.Method)
	}

	if p.Tags.StreamMethod != nil {
		ctx = WithStreamMethod(ctx, p.Tags.StreamMethod.Path)
	}

	return ctx
}
