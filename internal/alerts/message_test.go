package alerts

import (
	"testing"

	"github.com/csmblade/panfm-go-rewrite/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestMetricDisplayNameKnown(t *testing.T) {
	assert.Equal(t, "CPU Usage", MetricDisplayName("cpu"))
}

func TestMetricDisplayNameFallsBackToTitleCase(t *testing.T) {
	assert.Equal(t, "Wan Latency", MetricDisplayName("wan_latency"))
}

func TestFormatMessagePercentMetrics(t *testing.T) {
	msg := FormatMessage("cpu", 92.3, 80, models.OpGT, nil)
	assert.Contains(t, msg, "CPU Usage is 92.3%")
	assert.Contains(t, msg, "threshold: > 80.0%")
}

func TestFormatMessageAppPrefixedMetric(t *testing.T) {
	msg := FormatMessage("app_dns", 12.5, 10, models.OpGT, nil)
	assert.Contains(t, msg, `Application "dns" bandwidth is 12.5 Mbps`)
}

func TestFormatMessageBooleanStyleMetrics(t *testing.T) {
	assert.Equal(t, "Interface Status: Interface is down", FormatMessage("interface_down", 0, 0, models.OpEQ, nil))
	assert.Equal(t, "Firewall Health: Firewall is unreachable", FormatMessage("firewall_unreachable", 0, 0, models.OpEQ, nil))
}

func TestFormatMessagePerIPBandwidthEnumeratesOffenders(t *testing.T) {
	perIP := []models.PerIPResult{
		{IP: "192.168.1.10", Hostname: "desktop-1", Direction: "downloaded", TotalBytesMB: 2500},
	}
	msg := FormatMessage("per_ip_bandwidth_5min", 1, 1000, models.OpGT, perIP)
	assert.Contains(t, msg, "192.168.1.10 (desktop-1) downloaded 2500 MB")
}
