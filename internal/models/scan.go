package models

import (
	"time"

	"github.com/google/uuid"
)

// ScanProfile is the named triple of aggressiveness + timeout + argument set.
type ScanProfile string

const (
	ScanQuick    ScanProfile = "quick"
	ScanBalanced ScanProfile = "balanced"
	ScanThorough ScanProfile = "thorough"
)

// ScanProfileTimeout returns the profile-specific execution timeout (spec §4.6).
func ScanProfileTimeout(p ScanProfile) time.Duration {
	switch p {
	case ScanQuick:
		return 60 * time.Second
	case ScanThorough:
		return 180 * time.Second
	default:
		return 120 * time.Second // balanced, and any unrecognized profile
	}
}

// TargetType selects how a ScheduledScan resolves its set of target IPs.
type TargetType string

const (
	TargetTag      TargetType = "tag"
	TargetLocation TargetType = "location"
	TargetIP       TargetType = "ip"
	TargetAll      TargetType = "all"
)

// TargetSelector names a ScheduledScan's target resolution rule.
type TargetSelector struct {
	Type  TargetType `json:"type"`
	Value string     `json:"value,omitempty"`
}

// TriggerKind selects how a ScheduledScan is scheduled.
type TriggerKind string

const (
	TriggerInterval TriggerKind = "interval"
	TriggerDaily    TriggerKind = "daily"
	TriggerWeekly   TriggerKind = "weekly"
	TriggerCron     TriggerKind = "cron"
)

// ScanTrigger is a ScheduledScan's cadence declaration.
type ScanTrigger struct {
	Kind           TriggerKind `json:"kind"`
	IntervalSec    int         `json:"intervalSeconds,omitempty"`
	DailyAt        string      `json:"dailyAt,omitempty"`  // "HH:MM"
	WeeklyDOW      time.Weekday `json:"weeklyDow,omitempty"`
	WeeklyAt       string      `json:"weeklyAt,omitempty"` // "HH:MM"
	CronExpression string      `json:"cronExpression,omitempty"`
}

// ScheduledScan is an operator-declared recurring scan.
type ScheduledScan struct {
	ID         int64          `json:"id"`
	DeviceID   uuid.UUID      `json:"deviceId"`
	Target     TargetSelector `json:"target"`
	Profile    ScanProfile    `json:"profile"`
	Trigger    ScanTrigger    `json:"trigger"`
	Enabled    bool           `json:"enabled"`
	LastRunAt  *time.Time     `json:"lastRunAt,omitempty"`
	LastStatus string         `json:"lastStatus,omitempty"`
	LastError  string         `json:"lastError,omitempty"`
	NextRunAt  *time.Time     `json:"nextRunAt,omitempty"`
}

// PortState is the nmap-reported state of a scanned port.
type PortState string

const (
	PortOpen     PortState = "open"
	PortClosed   PortState = "closed"
	PortFiltered PortState = "filtered"
)

// Port is one entry in a ScanResult's port list.
type Port struct {
	Number   int       `json:"port"`
	Protocol string    `json:"protocol"`
	State    PortState `json:"state"`
	Service  string    `json:"service,omitempty"`
	Product  string    `json:"product,omitempty"`
	Version  string    `json:"version,omitempty"`
}

// ProductVersion renders "<product> <version>" for change-detection comparisons.
func (p Port) ProductVersion() string {
	if p.Product == "" && p.Version == "" {
		return ""
	}
	if p.Version == "" {
		return p.Product
	}
	return p.Product + " " + p.Version
}

// OSMatch is one candidate OS fingerprint match.
type OSMatch struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// HostStatus reports whether a scanned target responded.
type HostStatus string

const (
	HostUp   HostStatus = "up"
	HostDown HostStatus = "down"
)

// ScanResult is one scan execution against one target.
type ScanResult struct {
	ID         int64         `json:"id"`
	DeviceID   uuid.UUID     `json:"deviceId"`
	TargetIP   string        `json:"targetIp"`
	Time       time.Time     `json:"time"`
	Profile    ScanProfile   `json:"profile"`
	Duration   time.Duration `json:"duration"`
	HostStatus HostStatus    `json:"hostStatus"`
	OSName     string        `json:"osName,omitempty"`
	OSMatches  []OSMatch     `json:"osMatches,omitempty"`
	Ports      []Port        `json:"ports"`
	RawOutput  string        `json:"rawOutput,omitempty"`
}

// TopOSMatch returns the highest-confidence OS match, or the zero value
// if there are none.
func (r *ScanResult) TopOSMatch() OSMatch {
	var best OSMatch
	for _, m := range r.OSMatches {
		if m.Confidence > best.Confidence {
			best = m
		}
	}
	return best
}

// ChangeKind classifies a detected difference between two scans.
type ChangeKind string

const (
	ChangeNewPort              ChangeKind = "new_port"
	ChangePortClosed           ChangeKind = "port_closed"
	ChangeOSChange             ChangeKind = "os_change"
	ChangeServiceVersionChange ChangeKind = "service_version_change"
)

// HighRiskPorts are well-known ports whose new appearance is always critical.
var HighRiskPorts = map[int]bool{
	21: true, 23: true, 135: true, 139: true, 445: true,
	1433: true, 3306: true, 3389: true, 5432: true, 5900: true,
	6379: true, 8080: true, 27017: true,
}

// ScanChangeEvent is a detected difference between two consecutive scans
// of the same (device, target).
type ScanChangeEvent struct {
	ID         int64          `json:"id"`
	DeviceID   uuid.UUID      `json:"deviceId"`
	TargetIP   string         `json:"targetIp"`
	Time       time.Time      `json:"time"`
	Kind       ChangeKind     `json:"kind"`
	Severity   Severity       `json:"severity"`
	OldValue   string         `json:"oldValue,omitempty"`
	NewValue   string         `json:"newValue,omitempty"`
	Detail     map[string]any `json:"detail,omitempty"`
	AckBy      string         `json:"ackBy,omitempty"`
	AckTime    *time.Time     `json:"ackTime,omitempty"`
}

// QueueStatus is the lifecycle state of a ScanQueueItem.
type QueueStatus string

const (
	QueueQueued    QueueStatus = "queued"
	QueueRunning   QueueStatus = "running"
	QueueCompleted QueueStatus = "completed"
	QueueFailed    QueueStatus = "failed"
)

// ScanQueueItem is one unit of scan work produced by target resolution.
type ScanQueueItem struct {
	ID          uuid.UUID   `json:"id"`
	ScheduleID  int64       `json:"scheduleId"`
	DeviceID    uuid.UUID   `json:"deviceId"`
	TargetIP    string      `json:"targetIp"`
	Profile     ScanProfile `json:"profile"`
	Status      QueueStatus `json:"status"`
	QueuedAt    time.Time   `json:"queuedAt"`
	StartedAt   *time.Time  `json:"startedAt,omitempty"`
	CompletedAt *time.Time  `json:"completedAt,omitempty"`
	ResultID    int64       `json:"resultId,omitempty"`
	Error       string      `json:"error,omitempty"`
}
