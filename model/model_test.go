package model

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertion)
var _ Client = (*MockClient)(nil)

func TestMockClient_CannedAndEchoResponses(t *testing.T) {
	ctx := context.Background()
	client := NewMockClient("test-model", "mock")
	client.AddResponse("hello", "hi there")

	resp, err := client.Chat(ctx, Request{Messages: []Message{
		{Role: RoleSystem, Content: "You are a test."},
		{Role: RoleUser, Content: "hello"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Content)

	resp, err = client.Chat(ctx, Request{Messages: []Message{
		{Role: RoleUser, Content: "something else"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: something else", resp.Content)
}

func TestMockClient_MatchesLastUserMessage(t *testing.T) {
	client := NewMockClient("test-model", "mock")
	client.AddResponse("second", "matched")

	resp, err := client.Chat(context.Background(), Request{Messages: []Message{
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "reply"},
		{Role: RoleUser, Content: "second"},
	}})
	require.NoError(t, err)
	assert.Equal(t, "matched", resp.Content)
}

func TestMockClient_RecordsRequests(t *testing.T) {
	client := NewMockClient("test-model", "mock")
	_, err := client.Chat(context.Background(), Request{Model: "m1"})
	require.NoError(t, err)
	_, err = client.Chat(context.Background(), Request{Model: "m2"})
	require.NoError(t, err)

	reqs := client.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "m1", reqs[0].Model)
	assert.Equal(t, "m2", reqs[1].Model)
}

func TestMockClient_FailWith(t *testing.T) {
	client := NewMockClient("test-model", "mock")
	client.FailWith(&UnavailableError{Endpoint: "mock", Err: errors.New("down")})

	_, err := client.Chat(context.Background(), Request{})
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Len(t, client.Requests(), 1, "failed calls are still recorded")
}

func TestMockClient_Info(t *testing.T) {
	client := NewMockClient("test-model", "mock")
	assert.Equal(t, Info{Name: "test-model", Provider: "mock"}, client.Info())
}

func TestIsUnavailable_Wrapped(t *testing.T) {
	base := &UnavailableError{Endpoint: "http://localhost:11434", Err: errors.New("refused")}
	wrapped := fmt.Errorf("turn failed: %w", base)

	assert.True(t, IsUnavailable(wrapped))
	assert.False(t, IsUnavailable(errors.New("plain")))
	assert.False(t, IsUnavailable(nil))
}

func TestUnavailableError_Unwrap(t *testing.T) {
	cause := errors.New("refused")
	err := &UnavailableError{Endpoint: "x", Err: cause}
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "x")
}

type fakeNetError struct{}

func (fakeNetError) Error() string   { return "i/o timeout" }
func (fakeNetError) Timeout() bool   { return true }
func (fakeNetError) Temporary() bool { return true }

var _ net.Error = fakeNetError{}

func TestWrapTransportErr(t *testing.T) {
	assert.NoError(t, WrapTransportErr("e", nil))

	assert.True(t, IsUnavailable(WrapTransportErr("e", context.DeadlineExceeded)))
	assert.True(t, IsUnavailable(WrapTransportErr("e", context.Canceled)))
	assert.True(t, IsUnavailable(WrapTransportErr("e", fakeNetError{})))
	assert.True(t, IsUnavailable(WrapTransportErr("e", &net.OpError{Op: "dial", Err: errors.New("refused")})))

	// Non-transport errors pass through untouched.
	appErr := errors.New("bad request")
	assert.Equal(t, appErr, WrapTransportErr("e", appErr))
}

func TestMockClient_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	client := NewMockClient("test-model", "mock")
	_, err := client.Chat(ctx, Request{})
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}
