package notify

import (
	"context"
	"sync"

	"github.com/csmblade/panfm-go-rewrite/internal/models"
	"github.com/rs/zerolog/log"
)

// Dispatcher routes a trigger to every channel named in its alert
// config's Channels list. It implements alerts.Notifier.
type Dispatcher struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{channels: map[string]Channel{}}
}

// Register adds or replaces a channel by ID, used whenever the
// configuration snapshot changes.
func (d *Dispatcher) Register(ch Channel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels[ch.ID()] = ch
}

// Replace swaps the entire channel set atomically, used on config reload.
func (d *Dispatcher) Replace(channels []Channel) {
	next := make(map[string]Channel, len(channels))
	for _, ch := range channels {
		next[ch.ID()] = ch
	}
	d.mu.Lock()
	d.channels = next
	d.mu.Unlock()
}

// Notify sends the trigger to every channel the alert config named,
// continuing past individual channel failures so one bad channel never
// blocks delivery to the others.
func (d *Dispatcher) Notify(ctx context.Context, trigger models.Trigger, history models.AlertHistory) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var firstErr error
	for _, id := range trigger.Config.Channels {
		ch, ok := d.channels[id]
		if !ok {
			log.Warn().Str("channel", id).Msg("alert references unknown notification channel")
			continue
		}
		if err := ch.Send(ctx, trigger, history); err != nil {
			log.Error().Err(err).Str("channel", id).Str("kind", ch.Kind()).Msg("notification channel send failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Test sends a synthetic trigger through one channel, used by the
// operator-facing "test channel" action.
func (d *Dispatcher) Test(ctx context.Context, channelID string) error {
	d.mu.RLock()
	ch, ok := d.channels[channelID]
	d.mu.RUnlock()
	if !ok {
		return nil
	}
	trigger := models.Trigger{Config: models.AlertConfig{MetricType: "test"}}
	history := models.AlertHistory{Metric: "test", Message: "This is a test notification from the firewall monitoring collector."}
	return ch.Send(ctx, trigger, history)
}
