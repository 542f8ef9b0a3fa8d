package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/csmblade/panfm-go-rewrite/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookChannelSendsExpectedPayloadAndAuth(t *testing.T) {
	var gotAuth string
	var gotBody webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewWebhookChannel("wh-1", srv.URL, "tok-123")
	deviceID := uuid.New()
	history := models.AlertHistory{
		DeviceID:    deviceID,
		Metric:      "cpu",
		Severity:    models.SeverityCritical,
		Actual:      95,
		Threshold:   80,
		Message:     "CPU Usage is 95.0%",
		TriggerTime: time.Now(),
	}

	err := ch.Send(context.Background(), models.Trigger{}, history)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, deviceID.String(), gotBody.DeviceID)
	assert.Equal(t, "cpu", gotBody.Metric)
}

func TestWebhookChannelServerErrorIsTransientAndRetried(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ch := NewWebhookChannel("wh-1", srv.URL, "")
	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()

	err := ch.Send(ctx, models.Trigger{}, models.AlertHistory{})
	assert.Error(t, err)
	assert.GreaterOrEqual(t, attempts, 2)
}

func TestWebhookChannelClientErrorFailsFast(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	ch := NewWebhookChannel("wh-1", srv.URL, "")
	err := ch.Send(context.Background(), models.Trigger{}, models.AlertHistory{})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}
