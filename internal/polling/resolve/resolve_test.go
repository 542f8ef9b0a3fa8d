package resolve

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReverseInvalidIPReturnsEmpty(t *testing.T) {
	r := New([]string{"127.0.0.1:1"}, 50*time.Millisecond)
	assert.Equal(t, "", r.Reverse(context.Background(), "not-an-ip"))
}

func TestReverseNoServersConfiguredReturnsEmpty(t *testing.T) {
	r := New(nil, 50*time.Millisecond)
	assert.Equal(t, "", r.Reverse(context.Background(), "192.168.1.1"))
}

func TestReverseRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := New([]string{"127.0.0.1:1"}, 50*time.Millisecond)
	assert.Equal(t, "", r.Reverse(ctx, "192.168.1.1"))
}

func TestNewDefaultsTimeout(t *testing.T) {
	r := New(nil, 0)
	assert.Equal(t, 2*time.Second, r.timeout)
}
