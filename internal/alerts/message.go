package alerts

import (
	"fmt"
	"strings"

	"github.com/csmblade/panfm-go-rewrite/internal/models"
)

// metricDisplayNames gives a human label to the known metric types; any
// other metric_type (e.g. a per-application "app_<name>" metric) falls
// back to a title-cased version of the raw code.
var metricDisplayNames = map[string]string{
	"cpu":                  "CPU Usage",
	"memory":               "Memory Usage",
	"sessions":             "Session Count",
	"threats":              "Threat Activity",
	"interface_errors":     "Interface Errors",
	"interface_down":       "Interface Status",
	"disk":                 "Disk Usage",
	"license_expiring":     "License Expiration",
	"firewall_unreachable": "Firewall Health",
	"per_ip_bandwidth_5min": "Per-IP Bandwidth",
}

// MetricDisplayName returns the human-readable label for a metric type.
func MetricDisplayName(metricType string) string {
	if name, ok := metricDisplayNames[metricType]; ok {
		return name
	}
	return strings.Title(strings.ReplaceAll(metricType, "_", " "))
}

// FormatMessage renders the alert history message, with per-metric-type
// formatting for the metrics that have a natural unit (percent, count,
// days), Mbps for application-scoped "app_<name>" metrics, and a generic
// fallback for everything else. perIP carries the offending IPs
// for a per_ip_bandwidth_5min trigger; it is ignored for every other
// metric type.
func FormatMessage(metricType string, actual, threshold float64, op models.Operator, perIP []models.PerIPResult) string {
	name := MetricDisplayName(metricType)

	switch {
	case metricType == "per_ip_bandwidth_5min":
		return formatPerIPMessage(perIP, threshold)
	case metricType == "cpu" || metricType == "memory" || metricType == "disk":
		return fmt.Sprintf("%s is %.1f%% (threshold: %s %.1f%%)", name, actual, op, threshold)
	case metricType == "sessions":
		return fmt.Sprintf("%s is %d (threshold: %s %d)", name, int64(actual), op, int64(threshold))
	case metricType == "threats":
		return fmt.Sprintf("%s: %d threats detected (threshold: %s %d)", name, int64(actual), op, int64(threshold))
	case metricType == "interface_errors":
		return fmt.Sprintf("%s: %d errors/minute (threshold: %s %d)", name, int64(actual), op, int64(threshold))
	case metricType == "interface_down":
		return fmt.Sprintf("%s: Interface is down", name)
	case metricType == "license_expiring":
		return fmt.Sprintf("%s: License expires in %d days (threshold: %s %d days)", name, int64(actual), op, int64(threshold))
	case metricType == "firewall_unreachable":
		return fmt.Sprintf("%s: Firewall is unreachable", name)
	case strings.HasPrefix(metricType, "app_"):
		app := strings.TrimPrefix(metricType, "app_")
		return fmt.Sprintf("Application %q bandwidth is %.1f Mbps (threshold: %s %.1f Mbps)", app, actual, op, threshold)
	default:
		return fmt.Sprintf("%s: %.2f (threshold: %s %.2f)", name, actual, op, threshold)
	}
}

// formatPerIPMessage enumerates every offending IP on its own line, e.g.
// "192.168.1.10 (desktop-1) downloaded 2500 MB".
func formatPerIPMessage(perIP []models.PerIPResult, thresholdMB float64) string {
	if len(perIP) == 0 {
		return fmt.Sprintf("Per-IP Bandwidth: no IP exceeded %.0f MB in the last 5 minutes", thresholdMB)
	}
	lines := make([]string, 0, len(perIP)+1)
	lines = append(lines, fmt.Sprintf("%d IP(s) exceeded %.0f MB in the last 5 minutes:", len(perIP), thresholdMB))
	for _, r := range perIP {
		direction := r.Direction
		if direction == "" {
			direction = "transferred"
		}
		if r.Hostname != "" {
			lines = append(lines, fmt.Sprintf("%s (%s) %s %.0f MB", r.IP, r.Hostname, direction, r.TotalBytesMB))
		} else {
			lines = append(lines, fmt.Sprintf("%s %s %.0f MB", r.IP, direction, r.TotalBytesMB))
		}
	}
	return strings.Join(lines, "\n")
}
