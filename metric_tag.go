/**
 * @Author: lidonglin
 * @Description: request tags naming the logical action of a call
 * @File:  metric_tag.go
 * @Version: 1.0.0
 * @Date: 2023/11/20 14:35
 */

package tclient

import (
	"context"
	"strings"
)

// InvocationTag describes a typed API method invocation.
type InvocationTag struct {
	Method string
}

// StreamMethodTag describes a streaming method by its full path,
// e.g. "/pkg.Service/Method".
type StreamMethodTag struct {
	Path string
}

// RequestTags is the closed set of metadata a request may carry.
type RequestTags struct {
	Invocation   *InvocationTag
	StreamMethod *StreamMethodTag
}

type requestTagsKey struct{}

// WithInvocation returns a copy of ctx tagged with an invocation of method.
func WithInvocation(ctx context.Context, method string) context.Context {
	tags := RequestTagsFromContext(ctx)
	tags.Invocation = &InvocationTag{Method: method}

	return context.WithValue(ctx, requestTagsKey{}, tags)
}

// WithStreamMethod returns a copy of ctx tagged with the streaming method path.
func WithStreamMethod(ctx context.Context, path string) context.Context {
	tags := RequestTagsFromContext(ctx)
	tags.StreamMethod = &StreamMethodTag{Path: path}

	return context.WithValue(ctx, requestTagsKey{}, tags)
}

func RequestTagsFromContext(ctx context.Context) RequestTags {
	if ctx == nil {
		return RequestTags{}
	}

	tags, _ := ctx.Value(requestTagsKey{}).(RequestTags)

	return tags
}

// methodName returns the method identifier of the tags, the invocation
// taking priority over the streaming method.
func (p RequestTags) methodName() (string, bool) {
	if p.Invocation != nil && p.Invocation.Method != "" {
		return p.Invocation.Method, true
	}

	if p.StreamMethod != nil {
		method := lastPathSegment(p.StreamMethod.Path)
		if method != "" {
			return method, true
		}
	}

	return "", false
}

func lastPathSegment(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return path
	}

	return path[idx+1:]
}

func actionName(clientName string, method string) string {
	return clientName + "." + method
}
