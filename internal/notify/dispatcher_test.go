package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/csmblade/panfm-go-rewrite/internal/models"
	"github.com/stretchr/testify/assert"
)

type fakeChannel struct {
	id      string
	sends   []models.AlertHistory
	sendErr error
}

func (f *fakeChannel) ID() string   { return f.id }
func (f *fakeChannel) Kind() string { return "fake" }
func (f *fakeChannel) Send(ctx context.Context, trigger models.Trigger, history models.AlertHistory) error {
	f.sends = append(f.sends, history)
	return f.sendErr
}

func TestDispatcherNotifySendsToEveryNamedChannel(t *testing.T) {
	d := NewDispatcher()
	a := &fakeChannel{id: "a"}
	b := &fakeChannel{id: "b"}
	d.Replace([]Channel{a, b})

	trigger := models.Trigger{Config: models.AlertConfig{Channels: []string{"a", "b"}}}
	err := d.Notify(context.Background(), trigger, models.AlertHistory{Metric: "cpu"})
	assert.NoError(t, err)
	assert.Len(t, a.sends, 1)
	assert.Len(t, b.sends, 1)
}

func TestDispatcherNotifySkipsUnknownChannelButContinues(t *testing.T) {
	d := NewDispatcher()
	a := &fakeChannel{id: "a"}
	d.Replace([]Channel{a})

	trigger := models.Trigger{Config: models.AlertConfig{Channels: []string{"missing", "a"}}}
	err := d.Notify(context.Background(), trigger, models.AlertHistory{})
	assert.NoError(t, err)
	assert.Len(t, a.sends, 1)
}

func TestDispatcherNotifyContinuesPastChannelFailure(t *testing.T) {
	d := NewDispatcher()
	failing := &fakeChannel{id: "a", sendErr: errors.New("boom")}
	ok := &fakeChannel{id: "b"}
	d.Replace([]Channel{failing, ok})

	trigger := models.Trigger{Config: models.AlertConfig{Channels: []string{"a", "b"}}}
	err := d.Notify(context.Background(), trigger, models.AlertHistory{})
	assert.Error(t, err)
	assert.Len(t, failing.sends, 1)
	assert.Len(t, ok.sends, 1)
}

func TestDispatcherReplaceSwapsChannelSetAtomically(t *testing.T) {
	d := NewDispatcher()
	old := &fakeChannel{id: "a"}
	d.Replace([]Channel{old})
	d.Replace([]Channel{&fakeChannel{id: "b"}})

	trigger := models.Trigger{Config: models.AlertConfig{Channels: []string{"a"}}}
	err := d.Notify(context.Background(), trigger, models.AlertHistory{})
	assert.NoError(t, err)
	assert.Empty(t, old.sends)
}
