package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/csmblade/panfm-go-rewrite/internal/errkind"
	"github.com/stretchr/testify/assert"
)

func TestWithRetrySucceedsImmediately(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), "chan-1", func(ctx context.Context) error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryFailsFastOnNonTransientError(t *testing.T) {
	calls := 0
	wantErr := errkind.New(errkind.Validation, "send", errors.New("bad recipient"))
	err := withRetry(context.Background(), "chan-1", func(ctx context.Context) error {
		calls++
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, calls)
}

func TestWithRetryStopsWhenContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	calls := 0
	err := withRetry(ctx, "chan-1", func(ctx context.Context) error {
		calls++
		return errkind.New(errkind.Transient, "send", errors.New("timeout"))
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
}
