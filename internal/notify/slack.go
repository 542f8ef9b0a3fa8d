package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/csmblade/panfm-go-rewrite/internal/errkind"
	"github.com/csmblade/panfm-go-rewrite/internal/models"
	"github.com/slack-go/slack"
)

// SlackChannel posts alert notifications to a Slack channel via a bot
// token, colour-coded by severity.
type SlackChannel struct {
	id        string
	client    *slack.Client
	channelID string
}

func NewSlackChannel(id, token, channelID string) *SlackChannel {
	return &SlackChannel{id: id, client: slack.New(token), channelID: channelID}
}

func (c *SlackChannel) ID() string   { return c.id }
func (c *SlackChannel) Kind() string { return "slack" }

func (c *SlackChannel) Send(ctx context.Context, trigger models.Trigger, history models.AlertHistory) error {
	return withRetry(ctx, c.id, func(ctx context.Context) error {
		return c.send(ctx, history)
	})
}

func severityColor(sev models.Severity) string {
	switch sev {
	case models.SeverityCritical:
		return "#d32f2f"
	case models.SeverityWarning:
		return "#f9a825"
	default:
		return "#2196f3"
	}
}

func (c *SlackChannel) send(ctx context.Context, history models.AlertHistory) error {
	attachment := slack.Attachment{
		Color: severityColor(history.Severity),
		Title: fmt.Sprintf("%s alert: %s", history.Severity, history.Metric),
		Text:  history.Message,
		Fields: []slack.AttachmentField{
			{Title: "Device", Value: history.DeviceID.String(), Short: true},
			{Title: "Actual", Value: fmt.Sprintf("%.2f", history.Actual), Short: true},
			{Title: "Threshold", Value: fmt.Sprintf("%.2f", history.Threshold), Short: true},
		},
		Ts: json.Number(fmt.Sprintf("%d", history.TriggerTime.Unix())),
	}

	_, _, err := c.client.PostMessageContext(ctx, c.channelID, slack.MsgOptionAttachments(attachment))
	if err != nil {
		// An error reply from the Slack API (invalid_auth,
		// channel_not_found, ...) is not retried.
		var apiErr slack.SlackErrorResponse
		if errors.As(err, &apiErr) {
			return errkind.New(errkind.Upstream, "notify.slack.send", err)
		}
		return errkind.New(errkind.Transient, "notify.slack.send", err)
	}
	return nil
}
