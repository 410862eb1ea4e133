/**
 * @Author: lidonglin
 * @Description:
 * @File:  http_client.go
 * @Version: 1.0.0
 * @Date: 2022/05/28 10:46
 */

package tclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httputil"
	_url "net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/choveylee/tlog"
	"github.com/json-iterator/go"
	"github.com/pkg/errors"
)

const (
	OptTimeout int = iota

	// Transport Option
	OptTransConnectTimeout
	OptTransDeadlineTimeout

	OptTransProxyAddr

	OptTransMaxIdleConns
	OptTransMaxIdleConnsPerHost
	OptTransMaxConnsPerHost

	OptTransUnsafeTls
	OptTransTlsConfig

	// Transport Chain Option
	OptTransBase
	OptTransLog
	OptTransMetric

	// Cookie Jar Option
	OptCookieJar

	// Redirect Option
	OptRedirectPolicy

	// Extra Option
	OptExtraRequestHookFunc
	OptExtraResponseHookFunc
)

// OptTransports options applied to the pooled transport of a client,
// not accepted per request
var OptTransports = map[int]struct{}{
	OptTransConnectTimeout:  {},
	OptTransDeadlineTimeout: {},

	OptTransProxyAddr: {},

	OptTransMaxIdleConns:        {},
	OptTransMaxIdleConnsPerHost: {},
	OptTransMaxConnsPerHost:     {},

	OptTransUnsafeTls: {},
	OptTransTlsConfig: {},
}

const (
	DefaultTimeout         = 30 * time.Second
	DefaultConnectTimeout  = 30 * time.Second
	DefaultDeadlineTimeout = 30 * time.Second
)

type RedirectPolicyFunc func(*http.Request, []*http.Request) error
type RequestHookFunc func(context.Context, *http.Client, *http.Request)
type ResponseHookFunc func(context.Context, *http.Response, error)

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,

		DialContext: (&net.Dialer{
			Timeout:   DefaultConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,

		ForceAttemptHTTP2: true,

		MaxIdleConns:    100,
		IdleConnTimeout: 90 * time.Second,

		TLSHandshakeTimeout: 10 * time.Second,

		ExpectContinueTimeout: 1 * time.Second,
	}
}

type HttpClient struct {
	// Default options of this client.
	options map[int]interface{}

	// Default Headers of this client.
	headers map[string]string

	// Pooled transport of this client
	transport *http.Transport

	connectTimeout  time.Duration
	deadlineTimeout time.Duration

	cookieJar http.CookieJar

	withDebug bool

	sync.RWMutex
}

func NewHttpClient() *HttpClient {
	httpClient := &HttpClient{
		options: make(map[int]interface{}),
		headers: make(map[string]string),

		transport: newTransport(),

		connectTimeout:  DefaultConnectTimeout,
		deadlineTimeout: DefaultDeadlineTimeout,
	}

	cookieJar, err := cookiejar.New(nil)
	if err == nil {
		httpClient.cookieJar = cookieJar
	}

	return httpClient
}

func (p *HttpClient) Defaults(options map[int]interface{}, headers map[string]string) *HttpClient {
	for key, val := range options {
		p.WithOption(key, val)
	}

	for key, val := range headers {
		p.WithHeader(key, val)
	}

	return p
}

func (p *HttpClient) Debug(val bool) *HttpClient {
	p.Lock()
	defer p.Unlock()

	p.withDebug = val

	return p
}

func (p *HttpClient) Transport() http.RoundTripper {
	p.RLock()
	defer p.RUnlock()

	return p.transport
}

func durationOption(val interface{}) (time.Duration, error) {
	switch retVal := val.(type) {
	case time.Duration:
		return retVal, nil
	case int:
		return time.Duration(retVal) * time.Millisecond, nil
	default:
		return 0, fmt.Errorf("duration type illegal, time.duration or int(ms) supported")
	}
}

func (p *HttpClient) resetTransport(key int, val interface{}) error {
	switch key {
	case OptTransMaxIdleConns, OptTransMaxIdleConnsPerHost, OptTransMaxConnsPerHost:
		count, ok := val.(int)
		if ok == false {
			return fmt.Errorf("conns type illegal, int supported")
		}

		switch key {
		case OptTransMaxIdleConns:
			p.transport.MaxIdleConns = count
		case OptTransMaxIdleConnsPerHost:
			p.transport.MaxIdleConnsPerHost = count
		default:
			p.transport.MaxConnsPerHost = count
		}
	case OptTransConnectTimeout, OptTransDeadlineTimeout:
		timeout, err := durationOption(val)
		if err != nil {
			return err
		}

		if key == OptTransConnectTimeout {
			p.connectTimeout = timeout
		} else {
			p.deadlineTimeout = timeout
		}

		// connect timeout never exceeds the deadline, or dialing might wait for a long time
		if p.deadlineTimeout > 0 && (p.connectTimeout > p.deadlineTimeout || p.connectTimeout == 0) {
			p.connectTimeout = p.deadlineTimeout
		}

		dialer := &net.Dialer{
			Timeout:   p.connectTimeout,
			KeepAlive: 30 * time.Second,
		}

		deadlineTimeout := p.deadlineTimeout

		p.transport.DialContext = func(ctx context.Context, network string, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}

			if deadlineTimeout <= 0 {
				return conn, nil
			}

			return &deadlineConn{Conn: conn, timeout: deadlineTimeout}, nil
		}

		// waiting for the response of each request is bounded on its own,
		// pooled connections carry no deadline while idle
		p.transport.ResponseHeaderTimeout = deadlineTimeout
	case OptTransProxyAddr:
		proxy, ok := val.(string)
		if ok == false {
			return fmt.Errorf("proxy type illegal, string supported")
		}

		if strings.Contains(proxy, "://") == false {
			proxy = "http://" + proxy
		}

		proxyUrl, err := _url.Parse(proxy)
		if err != nil {
			return errors.Wrapf(err, "parse proxy %s", proxy)
		}

		p.transport.Proxy = http.ProxyURL(proxyUrl)
	case OptTransUnsafeTls:
		unsafeTls, ok := val.(bool)
		if ok == false {
			return fmt.Errorf("unsafe tls type illegal, bool supported")
		}

		if p.transport.TLSClientConfig == nil {
			p.transport.TLSClientConfig = &tls.Config{}
		}

		p.transport.TLSClientConfig.InsecureSkipVerify = unsafeTls
	case OptTransTlsConfig:
		tlsConfig, ok := val.(*tls.Config)
		if ok == false {
			return fmt.Errorf("tls config type illegal, tls config supported")
		}

		p.transport.TLSClientConfig = tlsConfig
	}

	return nil
}

// deadlineConn bounds every write on the connection, each write getting
// a fresh deadline
type deadlineConn struct {
	net.Conn

	timeout time.Duration
}

func (p *deadlineConn) Write(b []byte) (int, error) {
	err := p.Conn.SetWriteDeadline(time.Now().Add(p.timeout))
	if err != nil {
		return 0, errors.Wrap(err, "set write deadline")
	}

	return p.Conn.Write(b)
}

func (p *HttpClient) WithOption(key int, val interface{}) *HttpClient {
	p.Lock()
	defer p.Unlock()

	_, ok := OptTransports[key]
	if ok == true {
		err := p.resetTransport(key, val)
		if err != nil {
			tlog.W(context.Background()).Err(err).Detailf("option: %d", key).Msg("http client option illegal")
		}
	} else {
		p.options[key] = val
	}

	return p
}

// WithTimeout timeout of a whole request, including redirects
func (p *HttpClient) WithTimeout(timeout time.Duration) *HttpClient {
	return p.WithOption(OptTimeout, timeout)
}

// WithConnectTimeout connect timeout option
func (p *HttpClient) WithConnectTimeout(timeout time.Duration) *HttpClient {
	return p.WithOption(OptTransConnectTimeout, timeout)
}

// WithDeadlineTimeout read and write deadline of dialed connections
func (p *HttpClient) WithDeadlineTimeout(timeout time.Duration) *HttpClient {
	return p.WithOption(OptTransDeadlineTimeout, timeout)
}

// WithProxyAddress proxy address: ip:port
func (p *HttpClient) WithProxyAddress(addr string) *HttpClient {
	return p.WithOption(OptTransProxyAddr, addr)
}

// WithUnsafeTls https TLS
func (p *HttpClient) WithUnsafeTls(unsafe bool) *HttpClient {
	return p.WithOption(OptTransUnsafeTls, unsafe)
}

// WithTransport replaces the pooled transport at the bottom of the chain
func (p *HttpClient) WithTransport(transport http.RoundTripper) *HttpClient {
	return p.WithOption(OptTransBase, transport)
}

// WithLogTransOption log trans option
func (p *HttpClient) WithLogTransOption(option *LogTransOption) *HttpClient {
	return p.WithOption(OptTransLog, option)
}

// WithMetricsInterceptor records request latency of tagged requests
func (p *HttpClient) WithMetricsInterceptor(interceptor *MetricsInterceptor) *HttpClient {
	return p.WithOption(OptTransMetric, interceptor)
}

// WithCookieJar cookie jar
func (p *HttpClient) WithCookieJar(jar http.CookieJar) *HttpClient {
	return p.WithOption(OptCookieJar, jar)
}

// WithRedirectPolicy redirect policy
func (p *HttpClient) WithRedirectPolicy(option RedirectPolicyFunc) *HttpClient {
	return p.WithOption(OptRedirectPolicy, option)
}

// WithRequestHookFunc request hook func
func (p *HttpClient) WithRequestHookFunc(option RequestHookFunc) *HttpClient {
	return p.WithOption(OptExtraRequestHookFunc, option)
}

// WithResponseHookFunc response hook func
func (p *HttpClient) WithResponseHookFunc(option ResponseHookFunc) *HttpClient {
	return p.WithOption(OptExtraResponseHookFunc, option)
}

func (p *HttpClient) WithOptions(options map[int]interface{}) *HttpClient {
	for key, val := range options {
		p.WithOption(key, val)
	}

	return p
}

func (p *HttpClient) WithHeader(key string, val string) *HttpClient {
	p.Lock()
	defer p.Unlock()

	p.headers[strings.ToLower(key)] = val

	return p
}

func (p *HttpClient) WithUserAgent(val string) *HttpClient {
	return p.WithHeader("user-agent", val)
}

func (p *HttpClient) WithContentType(val string) *HttpClient {
	return p.WithHeader("content-type", val)
}

func (p *HttpClient) WithHeaders(headers map[string]string) *HttpClient {
	for key, val := range headers {
		p.WithHeader(key, val)
	}

	return p
}

// wrapTransport builds the chain log(metric(base)) for one request
func wrapTransport(transport http.RoundTripper, options map[int]interface{}) (http.RoundTripper, error) {
	srcBaseTransport, ok := options[OptTransBase]
	if ok == true {
		baseTransport, ok := srcBaseTransport.(http.RoundTripper)
		if ok == false {
			return nil, fmt.Errorf("base transport type illegal, http.RoundTripper supported")
		}

		transport = baseTransport
	}

	srcInterceptor, ok := options[OptTransMetric]
	if ok == true {
		interceptor, ok := srcInterceptor.(*MetricsInterceptor)
		if ok == false {
			return nil, fmt.Errorf("metrics interceptor type illegal")
		}

		if interceptor != nil {
			transport = interceptor.Wrap(transport)
		}
	}

	logTransOption := defaultLogTransOption

	srcLogTransOption, ok := options[OptTransLog]
	if ok == true {
		destLogTransOption, ok := srcLogTransOption.(*LogTransOption)
		if ok == false {
			return nil, fmt.Errorf("log trans option type illegal")
		}

		logTransOption = destLogTransOption
	}

	return wrapLogTransport(transport, logTransOption), nil
}

func prepareCookieJar(defaultJar http.CookieJar, options map[int]interface{}) (http.CookieJar, error) {
	srcCookieJar, ok := options[OptCookieJar]
	if ok == false {
		return defaultJar, nil
	}

	switch cookieJar := srcCookieJar.(type) {
	case nil:
		return nil, nil
	case bool:
		if cookieJar == false {
			return nil, nil
		}

		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}

		return jar, nil
	case http.CookieJar:
		return cookieJar, nil
	default:
		return nil, fmt.Errorf("cookie jar type illegal, bool or http.CookieJar supported")
	}
}

func prepareRedirect(options map[int]interface{}) (RedirectPolicyFunc, error) {
	srcRedirectPolicy, ok := options[OptRedirectPolicy]
	if ok == false {
		return nil, nil
	}

	switch redirectPolicy := srcRedirectPolicy.(type) {
	case RedirectPolicyFunc:
		return redirectPolicy, nil
	case func(*http.Request, []*http.Request) error:
		return redirectPolicy, nil
	default:
		return nil, fmt.Errorf("redirect policy type illegal")
	}
}

func prepareRequest(ctx context.Context, method string, url string, headers map[string]string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	for key, val := range headers {
		req.Header.Set(key, val)
	}

	return req, nil
}

func (p *HttpClient) Do(ctx context.Context, method string, url string, requestOption *RequestOption, body io.Reader) (*Response, error) {
	p.RLock()
	defer p.RUnlock()

	// merge options
	options := make(map[int]interface{})

	for key, val := range p.options {
		options[key] = val
	}

	// merge headers
	headers := make(map[string]string)

	for key, val := range p.headers {
		headers[key] = val
	}

	cookies := make([]*http.Cookie, 0)

	if requestOption != nil {
		for key, val := range requestOption.Options {
			options[key] = val
		}

		for key, val := range requestOption.Headers {
			headers[key] = val
		}

		cookies = requestOption.Cookies

		ctx = requestOption.tagContext(ctx)
	}

	transport, err := wrapTransport(p.transport, options)
	if err != nil {
		return nil, err
	}

	cookieJar, err := prepareCookieJar(p.cookieJar, options)
	if err != nil {
		return nil, err
	}

	redirect, err := prepareRedirect(options)
	if err != nil {
		return nil, err
	}

	client := &http.Client{
		Transport:     transport,
		CheckRedirect: redirect,
		Jar:           cookieJar,
		Timeout:       DefaultTimeout,
	}

	srcTimeout, ok := options[OptTimeout]
	if ok == true {
		timeout, err := durationOption(srcTimeout)
		if err != nil {
			return nil, err
		}

		client.Timeout = timeout
	}

	var bodyBytes []byte

	if body != nil {
		bodyBytes, err = io.ReadAll(body)
		if err != nil {
			return nil, errors.Wrap(err, "read request body")
		}

		body = bytes.NewReader(bodyBytes)
	}

	request, err := prepareRequest(ctx, method, url, headers, body)
	if err != nil {
		return nil, err
	}

	if p.withDebug == true {
		dump, err := httputil.DumpRequestOut(request, true)
		if err == nil {
			fmt.Printf("%s\n", dump)
		}
	}

	if cookieJar != nil {
		cookieJar.SetCookies(request.URL, cookies)
	} else {
		for _, cookie := range cookies {
			request.AddCookie(cookie)
		}
	}

	srcRequestHookFunc, ok := options[OptExtraRequestHookFunc]
	if ok == true {
		requestHookFunc, ok := srcRequestHookFunc.(RequestHookFunc)
		if ok == true && requestHookFunc != nil {
			requestHookFunc(ctx, client, request)
		}
	}

	response, err := client.Do(request)

	if err != nil || response.StatusCode != http.StatusOK {
		event := tlog.W(request.Context()).Err(err).Detailf("req.method: %s", request.Method).
			Detailf("req.host: %s", request.Host).Detailf("req.url: %s", request.URL.String()).
			Detailf("req.body: %s", string(bodyBytes))

		if response != nil {
			event = event.Detailf("resp.status code: %d", response.StatusCode)
		}

		event.Msg("http client abnormal log")
	}

	srcResponseHookFunc, ok := options[OptExtraResponseHookFunc]
	if ok == true {
		responseHookFunc, ok := srcResponseHookFunc.(ResponseHookFunc)
		if ok == true && responseHookFunc != nil {
			responseHookFunc(ctx, response, err)
		}
	}

	if response == nil {
		return nil, err
	}

	return &Response{response}, err
}

func (p *HttpClient) send(ctx context.Context, method string, url string, requestOption *RequestOption, params interface{}) (*Response, error) {
	var body io.Reader

	switch retParams := params.(type) {
	case nil:
	case []byte:
		body = bytes.NewReader(retParams)
	case string:
		body = strings.NewReader(retParams)
	case io.Reader:
		body = retParams
	case _url.Values:
		if requestOption == nil {
			requestOption = NewRequestOption()
		}

		requestOption.WithContentType(ContentTypeApplicationForm)

		body = strings.NewReader(retParams.Encode())
	default:
		return nil, fmt.Errorf("params type not support")
	}

	return p.Do(ctx, method, url, requestOption, body)
}

func (p *HttpClient) sendJson(ctx context.Context, method string, url string, requestOption *RequestOption, params interface{}) (*Response, error) {
	if requestOption == nil {
		requestOption = NewRequestOption()
	}

	requestOption.WithContentType(ContentTypeApplicationJson)

	switch params.(type) {
	case nil, []byte, string, io.Reader:
		return p.send(ctx, method, url, requestOption, params)
	}

	data, err := jsoniter.Marshal(params)
	if err != nil {
		return nil, errors.Wrap(err, "marshal json params")
	}

	return p.Do(ctx, method, url, requestOption, bytes.NewReader(data))
}

func appendParams(url string, params _url.Values) string {
	if len(params) == 0 {
		return url
	}

	if strings.Contains(url, "?") == false {
		url += "?"
	}

	if strings.HasSuffix(url, "?") || strings.HasSuffix(url, "&") {
		return url + params.Encode()
	}

	return url + "&" + params.Encode()
}

func (p *HttpClient) Head(ctx context.Context, url string, requestOption *RequestOption) (*Response, error) {
	return p.Do(ctx, http.MethodHead, url, requestOption, nil)
}

func (p *HttpClient) Get(ctx context.Context, url string, requestOption *RequestOption, params _url.Values) (*Response, error) {
	return p.Do(ctx, http.MethodGet, appendParams(url, params), requestOption, nil)
}

func (p *HttpClient) GetLen(ctx context.Context, url string, requestOption *RequestOption, params _url.Values) (int64, error) {
	resp, err := p.Do(ctx, http.MethodHead, appendParams(url, params), requestOption, nil)
	if err != nil {
		return -1, err
	}

	defer resp.Body.Close()

	return strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
}

// Post support data type: []byte/string/io.Reader/url.Values
func (p *HttpClient) Post(ctx context.Context, url string, requestOption *RequestOption, params interface{}) (*Response, error) {
	return p.send(ctx, http.MethodPost, url, requestOption, params)
}

// PostJson support data type: map[string]interface{}/struct
func (p *HttpClient) PostJson(ctx context.Context, url string, requestOption *RequestOption, params interface{}) (*Response, error) {
	return p.sendJson(ctx, http.MethodPost, url, requestOption, params)
}

func (p *HttpClient) Put(ctx context.Context, url string, requestOption *RequestOption, params interface{}) (*Response, error) {
	return p.send(ctx, http.MethodPut, url, requestOption, params)
}

func (p *HttpClient) PutJson(ctx context.Context, url string, requestOption *RequestOption, params interface{}) (*Response, error) {
	return p.sendJson(ctx, http.MethodPut, url, requestOption, params)
}

func (p *HttpClient) Patch(ctx context.Context, url string, requestOption *RequestOption, params interface{}) (*Response, error) {
	return p.send(ctx, http.MethodPatch, url, requestOption, params)
}

func (p *HttpClient) PatchJson(ctx context.Context, url string, requestOption *RequestOption, params interface{}) (*Response, error) {
	return p.sendJson(ctx, http.MethodPatch, url, requestOption, params)
}

func (p *HttpClient) Delete(ctx context.Context, url string, requestOption *RequestOption, params _url.Values) (*Response, error) {
	return p.Do(ctx, http.MethodDelete, appendParams(url, params), requestOption, nil)
}
