package scan

import (
	"testing"
	"time"

	"github.com/csmblade/panfm-go-rewrite/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectChangesNewPortOnHighRiskPortIsCritical(t *testing.T) {
	deviceID := uuid.New()
	previous := models.ScanResult{Ports: []models.Port{}}
	current := models.ScanResult{
		Time:  time.Now(),
		Ports: []models.Port{{Number: 3389, Protocol: "tcp", State: models.PortOpen, Service: "rdp"}},
	}

	events := DetectChanges(deviceID, "192.168.1.5", previous, current)
	assert.Len(t, events, 1)
	assert.Equal(t, models.ChangeNewPort, events[0].Kind)
	assert.Equal(t, models.SeverityCritical, events[0].Severity)
	assert.Equal(t, "3389/tcp (rdp)", events[0].NewValue)
	require.Contains(t, events[0].Detail, "risk_description")
	assert.NotEmpty(t, events[0].Detail["risk_description"])
}

func TestDetectChangesNewPortOnOrdinaryPortIsWarning(t *testing.T) {
	deviceID := uuid.New()
	previous := models.ScanResult{}
	current := models.ScanResult{
		Time:  time.Now(),
		Ports: []models.Port{{Number: 8088, Protocol: "tcp", State: models.PortOpen}},
	}

	events := DetectChanges(deviceID, "192.168.1.5", previous, current)
	assert.Len(t, events, 1)
	assert.Equal(t, models.SeverityWarning, events[0].Severity)
	assert.Equal(t, "8088/tcp", events[0].NewValue)
	assert.Empty(t, events[0].Detail)
}

func TestDetectChangesNewHighRiskPortOnTargetF(t *testing.T) {
	deviceID := uuid.New()
	previous := models.ScanResult{Ports: []models.Port{
		{Number: 22, Protocol: "tcp", State: models.PortOpen, Service: "ssh"},
		{Number: 80, Protocol: "tcp", State: models.PortOpen, Service: "http"},
	}}
	current := models.ScanResult{
		Time: time.Now(),
		Ports: []models.Port{
			{Number: 22, Protocol: "tcp", State: models.PortOpen, Service: "ssh"},
			{Number: 80, Protocol: "tcp", State: models.PortOpen, Service: "http"},
			{Number: 3389, Protocol: "tcp", State: models.PortOpen, Service: "ms-wbt-server"},
		},
	}

	events := DetectChanges(deviceID, "192.168.1.50", previous, current)
	require.Len(t, events, 1)
	assert.Equal(t, models.ChangeNewPort, events[0].Kind)
	assert.Equal(t, models.SeverityCritical, events[0].Severity)
	assert.Equal(t, "3389/tcp (ms-wbt-server)", events[0].NewValue)
	assert.Contains(t, events[0].Detail, "risk_description")
}

func TestDetectChangesPortClosed(t *testing.T) {
	deviceID := uuid.New()
	previous := models.ScanResult{Ports: []models.Port{{Number: 22, Protocol: "tcp", State: models.PortOpen, Service: "ssh"}}}
	current := models.ScanResult{Time: time.Now()}

	events := DetectChanges(deviceID, "192.168.1.5", previous, current)
	assert.Len(t, events, 1)
	assert.Equal(t, models.ChangePortClosed, events[0].Kind)
	assert.Equal(t, models.SeverityInfo, events[0].Severity)
}

func TestDetectChangesServiceVersionChange(t *testing.T) {
	deviceID := uuid.New()
	previous := models.ScanResult{Ports: []models.Port{{Number: 80, Protocol: "tcp", State: models.PortOpen, Product: "nginx", Version: "1.18"}}}
	current := models.ScanResult{Time: time.Now(), Ports: []models.Port{{Number: 80, Protocol: "tcp", State: models.PortOpen, Product: "nginx", Version: "1.24"}}}

	events := DetectChanges(deviceID, "192.168.1.5", previous, current)
	assert.Len(t, events, 1)
	assert.Equal(t, models.ChangeServiceVersionChange, events[0].Kind)
	assert.Equal(t, "nginx 1.18", events[0].OldValue)
	assert.Equal(t, "nginx 1.24", events[0].NewValue)
}

func TestDetectChangesOSChange(t *testing.T) {
	deviceID := uuid.New()
	previous := models.ScanResult{OSName: "Linux 5.x"}
	current := models.ScanResult{Time: time.Now(), OSName: "Windows 10"}

	events := DetectChanges(deviceID, "192.168.1.5", previous, current)
	assert.Len(t, events, 1)
	assert.Equal(t, models.ChangeOSChange, events[0].Kind)
}

func TestDetectChangesNoChangesWhenIdentical(t *testing.T) {
	deviceID := uuid.New()
	result := models.ScanResult{
		OSName: "Linux",
		Ports:  []models.Port{{Number: 443, Protocol: "tcp", State: models.PortOpen, Product: "nginx", Version: "1.24"}},
	}
	events := DetectChanges(deviceID, "192.168.1.5", result, result)
	assert.Empty(t, events)
}
