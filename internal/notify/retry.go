package notify

import (
	"context"
	"time"

	"github.com/csmblade/panfm-go-rewrite/internal/errkind"
	"github.com/rs/zerolog/log"
)

// retryBackoff is the fixed delay schedule applied between retry
// attempts for a transient send failure: 2s, 4s, 8s.
var retryBackoff = []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}

// withRetry calls send up to len(retryBackoff)+1 times, retrying only
// when the error is classified Transient. Non-transient errors (bad
// recipient, auth failure, malformed webhook URL) fail fast.
func withRetry(ctx context.Context, channelID string, send func(context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = send(ctx)
		if err == nil {
			return nil
		}
		if !errkind.Retryable(err) || attempt >= len(retryBackoff) {
			return err
		}
		delay := retryBackoff[attempt]
		log.Warn().Err(err).Str("channel", channelID).Int("attempt", attempt+1).Dur("retry_in", delay).Msg("notification send failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
