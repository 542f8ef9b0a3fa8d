package scan

import (
	"fmt"

	"github.com/csmblade/panfm-go-rewrite/internal/models"
	"github.com/google/uuid"
)

// highRiskDescriptions names the exposure a well-known high-risk port
// represents, used to populate a new_port event's risk_description detail.
var highRiskDescriptions = map[int]string{
	21:    "FTP control channel, commonly brute-forced and unencrypted",
	23:    "Telnet, unencrypted remote shell",
	135:   "Windows RPC endpoint mapper",
	139:   "NetBIOS session service",
	445:   "SMB file sharing, a common ransomware propagation vector",
	1433:  "Microsoft SQL Server",
	3306:  "MySQL database",
	3389:  "Windows Remote Desktop Protocol",
	5432:  "PostgreSQL database",
	5900:  "VNC remote desktop, often deployed without authentication",
	6379:  "Redis, frequently exposed without authentication",
	8080:  "Alternate HTTP, often an unreviewed admin interface",
	27017: "MongoDB database",
}

// DetectChanges compares two consecutive scans of the same target and
// returns every detected difference: newly opened ports, closed ports,
// an OS fingerprint change, or a service/version change on a port that
// stayed open. A port newly appearing on a well-known high-risk port
// number is always reported at critical severity, regardless of the
// configured default new-port severity.
func DetectChanges(deviceID uuid.UUID, targetIP string, previous, current models.ScanResult) []models.ScanChangeEvent {
	var events []models.ScanChangeEvent

	prevPorts := make(map[int]models.Port, len(previous.Ports))
	for _, p := range previous.Ports {
		prevPorts[p.Number] = p
	}
	currPorts := make(map[int]models.Port, len(current.Ports))
	for _, p := range current.Ports {
		currPorts[p.Number] = p
	}

	for num, p := range currPorts {
		if p.State != models.PortOpen {
			continue
		}
		prev, existed := prevPorts[num]
		if !existed || prev.State != models.PortOpen {
			event := models.ScanChangeEvent{
				DeviceID: deviceID, TargetIP: targetIP, Time: current.Time,
				Kind: models.ChangeNewPort, Severity: newPortSeverity(num),
				NewValue: portLabel(p),
			}
			if desc, risky := highRiskDescriptions[num]; risky {
				event.Detail = map[string]any{"risk_description": desc}
			}
			events = append(events, event)
			continue
		}
		if prev.ProductVersion() != p.ProductVersion() && p.ProductVersion() != "" {
			events = append(events, models.ScanChangeEvent{
				DeviceID: deviceID, TargetIP: targetIP, Time: current.Time,
				Kind: models.ChangeServiceVersionChange, Severity: models.SeverityWarning,
				OldValue: prev.ProductVersion(), NewValue: p.ProductVersion(),
			})
		}
	}

	for num, p := range prevPorts {
		if p.State != models.PortOpen {
			continue
		}
		if curr, stillOpen := currPorts[num]; !stillOpen || curr.State != models.PortOpen {
			events = append(events, models.ScanChangeEvent{
				DeviceID: deviceID, TargetIP: targetIP, Time: current.Time,
				Kind: models.ChangePortClosed, Severity: models.SeverityInfo,
				OldValue: portLabel(p),
			})
		}
	}

	if previous.OSName != "" && current.OSName != "" && previous.OSName != current.OSName {
		events = append(events, models.ScanChangeEvent{
			DeviceID: deviceID, TargetIP: targetIP, Time: current.Time,
			Kind: models.ChangeOSChange, Severity: models.SeverityWarning,
			OldValue: previous.OSName, NewValue: current.OSName,
		})
	}

	return events
}

func newPortSeverity(port int) models.Severity {
	if models.HighRiskPorts[port] {
		return models.SeverityCritical
	}
	return models.SeverityWarning
}

// portLabel renders "<port>/<protocol> (<service>)", dropping the
// parenthesized service when the scanner didn't identify one.
func portLabel(p models.Port) string {
	if p.Service == "" {
		return fmt.Sprintf("%d/%s", p.Number, p.Protocol)
	}
	return fmt.Sprintf("%d/%s (%s)", p.Number, p.Protocol, p.Service)
}
