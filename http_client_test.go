package tclient

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type user struct {
	Id   int    `json:"id"`
	Name string `json:"name"`
}

func newUserServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users":
			if r.Method == http.MethodPost {
				assert.Equal(t, ContentTypeApplicationJson, r.Header.Get("Content-Type"))

				var u user
				err := jsoniter.NewDecoder(r.Body).Decode(&u)
				if err != nil {
					w.WriteHeader(http.StatusBadRequest)
					return
				}

				u.Id = 7

				w.Header().Set("Content-Type", ContentTypeApplicationJson)
				w.WriteHeader(http.StatusCreated)
				jsoniter.NewEncoder(w).Encode(u)
				return
			}

			w.Header().Set("Content-Type", ContentTypeTextPlain)
			io.WriteString(w, "name="+r.URL.Query().Get("name"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestClientRecordsTaggedRequests(t *testing.T) {
	srv := newUserServer(t)
	factory, registry := newRecordingFactory(t)

	client := NewHttpClient().WithMetricsInterceptor(factory.Create("users"))

	resp, err := client.Get(context.Background(), srv.URL+"/users", NewRequestOption().WithInvocation("ListUsers"), url.Values{"name": {"ann"}})
	require.NoError(t, err)

	statusCode, body, err := resp.ToString()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, statusCode)
	assert.Equal(t, "name=ann", body)

	resp, err = client.Get(WithStreamMethod(context.Background(), "/users.v1.UserService/Missing"), srv.URL+"/missing", nil, nil)
	require.NoError(t, err)
	resp.Body.Close()

	summary := registry.summary.all()
	require.Len(t, summary, 2)
	assert.Equal(t, []string{"users.ListUsers", "200"}, summary[0].labels)
	assert.Equal(t, []string{"users.Missing", "404"}, summary[1].labels)
	assert.Len(t, registry.histogram.all(), 2)
}

func TestClientSkipsUntaggedRequests(t *testing.T) {
	srv := newUserServer(t)
	factory, registry := newRecordingFactory(t)

	client := NewHttpClient().WithMetricsInterceptor(factory.Create("users"))

	resp, err := client.Get(context.Background(), srv.URL+"/users", nil, nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, registry.summary.all())
	assert.Empty(t, registry.histogram.all())
}

func TestClientPostJson(t *testing.T) {
	srv := newUserServer(t)
	factory, registry := newRecordingFactory(t)

	client := NewHttpClient().WithMetricsInterceptor(factory.Create("users"))

	resp, err := client.PostJson(context.Background(), srv.URL+"/users", NewRequestOption().WithInvocation("CreateUser"), user{Name: "ann"})
	require.NoError(t, err)

	var created user
	statusCode, err := resp.ToJson(&created)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, statusCode)
	assert.Equal(t, user{Id: 7, Name: "ann"}, created)

	summary := registry.summary.all()
	require.Len(t, summary, 1)
	assert.Equal(t, []string{"users.CreateUser", "201"}, summary[0].labels)
}

func TestClientRecordsTransportTimeout(t *testing.T) {
	factory, registry := newRecordingFactory(t)

	timeoutErr := &net.OpError{Op: "read", Net: "tcp", Err: timeoutError{}}

	client := NewHttpClient().
		WithMetricsInterceptor(factory.Create("users")).
		WithTransport(failWith(timeoutErr))

	resp, err := client.Get(context.Background(), "http://users.test/users", NewRequestOption().WithInvocation("ListUsers"), nil)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, timeoutErr)

	summary := registry.summary.all()
	require.Len(t, summary, 1)
	assert.Equal(t, []string{"users.ListUsers", "timeout"}, summary[0].labels)
	assert.Len(t, registry.histogram.all(), 1)
}

func TestClientPassesOtherFailuresThrough(t *testing.T) {
	factory, registry := newRecordingFactory(t)

	refusedErr := errors.New("connection refused")

	client := NewHttpClient().
		WithMetricsInterceptor(factory.Create("users")).
		WithTransport(failWith(refusedErr)).
		WithLogTransOption(NewLogTransOption().WithAccessLog(true).IncludeHeaders(true))

	_, err := client.Get(context.Background(), "http://users.test/users", NewRequestOption().WithInvocation("ListUsers"), nil)
	assert.ErrorIs(t, err, refusedErr)

	assert.Empty(t, registry.summary.all())
	assert.Empty(t, registry.histogram.all())
}

func TestRequestOptionOverridesInterceptor(t *testing.T) {
	srv := newUserServer(t)
	factory, registry := newRecordingFactory(t)

	client := NewHttpClient().WithMetricsInterceptor(factory.Create("users"))

	option := NewRequestOption().WithInvocation("ListUsers").WithMetricsInterceptor(nil)

	resp, err := client.Get(context.Background(), srv.URL+"/users", option, nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Empty(t, registry.summary.all())
}

func TestClientHooksSeeTaggedRequest(t *testing.T) {
	srv := newUserServer(t)

	var action string
	var status int

	client := NewHttpClient().
		WithRequestHookFunc(func(ctx context.Context, _ *http.Client, req *http.Request) {
			action, _ = RequestTagsFromContext(req.Context()).methodName()
		}).
		WithResponseHookFunc(func(ctx context.Context, resp *http.Response, err error) {
			if err == nil {
				status = resp.StatusCode
			}
		})

	resp, err := client.Get(context.Background(), srv.URL+"/users", NewRequestOption().WithInvocation("ListUsers"), nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "ListUsers", action)
	assert.Equal(t, http.StatusOK, status)
}

func TestClientRejectsIllegalOptions(t *testing.T) {
	client := NewHttpClient()

	_, err := client.Get(context.Background(), "http://users.test", NewRequestOption().WithOption(OptTimeout, "1s"), nil)
	assert.Error(t, err)

	_, err = client.Get(context.Background(), "http://users.test", NewRequestOption().WithOption(OptTransMetric, "users"), nil)
	assert.Error(t, err)

	_, err = client.Get(context.Background(), "http://users.test", NewRequestOption().WithOption(OptTransLog, true), nil)
	assert.Error(t, err)
}

func TestClientTransportOptions(t *testing.T) {
	client := NewHttpClient().
		WithConnectTimeout(2 * time.Second).
		WithDeadlineTimeout(time.Second).
		WithOption(OptTransMaxIdleConnsPerHost, 4).
		WithUnsafeTls(true).
		WithProxyAddress("127.0.0.1:3128")

	transport, ok := client.Transport().(*http.Transport)
	require.True(t, ok)

	assert.Equal(t, time.Second, client.connectTimeout)
	assert.Equal(t, time.Second, client.deadlineTimeout)
	assert.Equal(t, 4, transport.MaxIdleConnsPerHost)
	assert.True(t, transport.TLSClientConfig.InsecureSkipVerify)

	proxyUrl, err := transport.Proxy(&http.Request{URL: &url.URL{Scheme: "http", Host: "users.test"}})
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:3128", proxyUrl.String())

	// clients do not share a transport
	assert.False(t, transport == NewHttpClient().Transport())
}

func TestAppendParams(t *testing.T) {
	params := url.Values{"a": {"1"}}

	assert.Equal(t, "http://x/y", appendParams("http://x/y", nil))
	assert.Equal(t, "http://x/y?a=1", appendParams("http://x/y", params))
	assert.Equal(t, "http://x/y?a=1", appendParams("http://x/y?", params))
	assert.Equal(t, "http://x/y?b=2&a=1", appendParams("http://x/y?b=2", params))
}

func TestDeadlineTimeoutAppliesPerRequestOnPooledConn(t *testing.T) {
	var newConns int32

	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusCreated)
	}))
	srv.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			atomic.AddInt32(&newConns, 1)
		}
	}
	srv.Start()
	defer srv.Close()

	factory, registry := newRecordingFactory(t)

	client := NewHttpClient().
		WithMetricsInterceptor(factory.Create("users")).
		WithDeadlineTimeout(400 * time.Millisecond)

	// the pooled connection outlives the deadline across these requests
	for i := 0; i < 6; i++ {
		resp, err := client.Post(context.Background(), srv.URL+"/users", NewRequestOption().WithInvocation("CreateUser"), []byte("{}"))
		require.NoError(t, err)

		statusCode, _, err := resp.ToBytes()
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, statusCode)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&newConns))

	summary := registry.summary.all()
	require.Len(t, summary, 6)
	for _, o := range summary {
		assert.Equal(t, []string{"users.CreateUser", "201"}, o.labels)
	}
}

func TestDeadlineTimeoutRecordsSlowResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	factory, registry := newRecordingFactory(t)

	client := NewHttpClient().
		WithMetricsInterceptor(factory.Create("users")).
		WithDeadlineTimeout(50 * time.Millisecond)

	_, err := client.Get(context.Background(), srv.URL+"/users", NewRequestOption().WithInvocation("ListUsers"), nil)
	require.Error(t, err)

	summary := registry.summary.all()
	require.Len(t, summary, 1)
	assert.Equal(t, []string{"users.ListUsers", "timeout"}, summary[0].labels)
	assert.GreaterOrEqual(t, summary[0].value, 50.0)
}

func TestHttpClientRequestHistogramRegistered(t *testing.T) {
	assert.NoError(t, httpClientRequestHistogramErr)
}
