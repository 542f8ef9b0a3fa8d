// Package notify dispatches confirmed alert triggers to configured
// channels (email, webhook, Slack) with bounded retry on transient
// failures.
package notify

import (
	"context"

	"github.com/csmblade/panfm-go-rewrite/internal/models"
)

// Channel delivers one rendered alert to one destination.
type Channel interface {
	ID() string
	Kind() string
	Send(ctx context.Context, trigger models.Trigger, history models.AlertHistory) error
}
