package tclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestTagsMethodName(t *testing.T) {
	tests := []struct {
		name   string
		tags   RequestTags
		want   string
		wantOk bool
	}{
		{"none", RequestTags{}, "", false},
		{"invocation", RequestTags{Invocation: &InvocationTag{Method: "GetUser"}}, "GetUser", true},
		{"stream path", RequestTags{StreamMethod: &StreamMethodTag{Path: "/pkg.Service/Method"}}, "Method", true},
		{"stream without slash", RequestTags{StreamMethod: &StreamMethodTag{Path: "Method"}}, "Method", true},
		{"stream trailing slash", RequestTags{StreamMethod: &StreamMethodTag{Path: "/pkg.Service/"}}, "", false},
		{"empty invocation falls back", RequestTags{
			Invocation:   &InvocationTag{},
			StreamMethod: &StreamMethodTag{Path: "/pkg.Service/Watch"},
		}, "Watch", true},
		{"invocation wins", RequestTags{
			Invocation:   &InvocationTag{Method: "Get"},
			StreamMethod: &StreamMethodTag{Path: "/pkg.Service/Watch"},
		}, "Get", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.tags.methodName()
			assert.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTagsAccumulateInContext(t *testing.T) {
	ctx := WithInvocation(context.Background(), "Get")
	ctx = WithStreamMethod(ctx, "/pkg.Service/Watch")

	tags := RequestTagsFromContext(ctx)
	if assert.NotNil(t, tags.Invocation) && assert.NotNil(t, tags.StreamMethod) {
		assert.Equal(t, "Get", tags.Invocation.Method)
		assert.Equal(t, "/pkg.Service/Watch", tags.StreamMethod.Path)
	}

	// the parent context is left untouched
	parent := RequestTagsFromContext(WithInvocation(context.Background(), "Get"))
	assert.Nil(t, parent.StreamMethod)
}

func TestActionName(t *testing.T) {
	factory, _ := newRecordingFactory(t)
	interceptor := factory.Create("users")

	_, ok := interceptor.ActionName(context.Background())
	assert.False(t, ok)

	action, ok := interceptor.ActionName(WithStreamMethod(context.Background(), "/users.v1.UserService/ListUsers"))
	assert.True(t, ok)
	assert.Equal(t, "users.ListUsers", action)
}

func TestRequestOptionTagContext(t *testing.T) {
	option := NewRequestOption().WithInvocation("Get").WithStreamMethod("/pkg.Service/Watch")

	tags := RequestTagsFromContext(option.tagContext(context.Background()))
	method, ok := tags.methodName()
	assert.True(t, ok)
	assert.Equal(t, "Get", method)

	untagged := NewRequestOption().tagContext(context.Background())
	_, ok = RequestTagsFromContext(untagged).methodName()
	assert.False(t, ok)
}
