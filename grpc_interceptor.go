/**
 * @Author: lidonglin
 * @Description: latency metrics of outgoing grpc calls
 * @File:  grpc_interceptor.go
 * @Version: 1.0.0
 * @Date: 2023/11/21 10:16
 */

package tclient

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"google.golang.org/grpc"
)

// UnaryClientInterceptor records unary calls under "{clientName}.{Method}"
// with code "200", or "timeout".
func (p *MetricsInterceptor) UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		action, ok := p.grpcActionName(method)
		if ok == false {
			return invoker(ctx, method, req, reply, cc, opts...)
		}

		startedAt := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)
		p.observeGrpc(action, err, time.Since(startedAt))

		return err
	}
}

// StreamClientInterceptor records the time taken to establish a stream.
func (p *MetricsInterceptor) StreamClientInterceptor() grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		action, ok := p.grpcActionName(method)
		if ok == false {
			return streamer(ctx, desc, cc, method, opts...)
		}

		startedAt := time.Now()
		clientStream, err := streamer(ctx, desc, cc, method, opts...)
		p.observeGrpc(action, err, time.Since(startedAt))

		return clientStream, err
	}
}

func (p *MetricsInterceptor) grpcActionName(fullMethod string) (string, bool) {
	tags := RequestTags{StreamMethod: &StreamMethodTag{Path: fullMethod}}

	method, ok := tags.methodName()
	if ok == false {
		return "", false
	}

	return actionName(p.clientName, method), true
}

// observeGrpc records a completed call under the status of the http
// exchange carrying it, and transport timeouts. Calls failing with a grpc
// status or any other error are not recorded.
func (p *MetricsInterceptor) observeGrpc(action string, err error, latency time.Duration) {
	switch {
	case err == nil:
		p.observe(action, strconv.Itoa(http.StatusOK), latency)
	case isTransportTimeout(err):
		p.observe(action, OutcomeTimeout, latency)
	}
}
