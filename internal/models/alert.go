package models

import (
	"time"

	"github.com/google/uuid"
)

// Operator is an alert threshold comparison.
type Operator string

const (
	OpGT Operator = ">"
	OpLT Operator = "<"
	OpGE Operator = ">="
	OpLE Operator = "<="
	OpEQ Operator = "=="
	OpNE Operator = "!="
)

// ValidOperators is the allowlist enforced at write (spec §3).
var ValidOperators = map[Operator]bool{
	OpGT: true, OpLT: true, OpGE: true, OpLE: true, OpEQ: true, OpNE: true,
}

// Severity is an alert's priority level.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// ValidSeverities is the allowlist enforced at write (spec §3).
var ValidSeverities = map[Severity]bool{
	SeverityCritical: true, SeverityWarning: true, SeverityInfo: true,
}

// AlertConfig is an operator-defined threshold rule for one device.
type AlertConfig struct {
	ID         int64     `json:"id"`
	DeviceID   uuid.UUID `json:"deviceId"`
	MetricType string    `json:"metricType"` // open string: cpu, memory, app_<name>, ...
	Threshold  float64   `json:"threshold"`
	Operator   Operator  `json:"operator"`
	Severity   Severity  `json:"severity"`
	Enabled    bool      `json:"enabled"`
	Channels   []string  `json:"channels"` // notification channel ids
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// AlertConfigUpdate is an explicit partial-update struct with an
// allowlist of fields; unknown fields never reach the engine (spec §9).
type AlertConfigUpdate struct {
	Threshold *float64   `json:"threshold,omitempty"`
	Operator  *Operator  `json:"operator,omitempty"`
	Severity  *Severity  `json:"severity,omitempty"`
	Enabled   *bool      `json:"enabled,omitempty"`
	Channels  *[]string  `json:"channels,omitempty"`
}

// PerIPResult is one offending IP from a per_ip_bandwidth_5min evaluation.
type PerIPResult struct {
	IP           string  `json:"ip"`
	Hostname     string  `json:"hostname,omitempty"`
	Direction    string  `json:"direction"` // "downloaded" or "uploaded"
	TotalBytesMB float64 `json:"totalBytesMb"`
}

// AlertHistory records one trigger event.
type AlertHistory struct {
	ID             int64         `json:"id"`
	ConfigID       int64         `json:"configId"`
	DeviceID       uuid.UUID     `json:"deviceId"`
	Metric         string        `json:"metric"`
	Threshold      float64       `json:"threshold"`
	Actual         float64       `json:"actual"`
	Severity       Severity      `json:"severity"`
	Message        string        `json:"message"`
	TriggerTime    time.Time     `json:"triggerTime"`
	PerIPResults   []PerIPResult `json:"perIpResults,omitempty"`
	AckBy          string        `json:"ackBy,omitempty"`
	AckTime        *time.Time    `json:"ackTime,omitempty"`
	ResolvedReason string        `json:"resolvedReason,omitempty"`
	ResolvedTime   *time.Time    `json:"resolvedTime,omitempty"`
}

// Resolved reports whether the history row has been resolved.
func (h *AlertHistory) Resolved() bool { return h.ResolvedTime != nil }

// AlertCooldown is keyed by (DeviceID, ConfigID).
type AlertCooldown struct {
	DeviceID      uuid.UUID `json:"deviceId"`
	ConfigID      int64     `json:"configId"`
	LastTrigger   time.Time `json:"lastTrigger"`
	CooldownUntil time.Time `json:"cooldownUntil"`
}

// DefaultCooldownSeconds is the default cooldown applied when a config
// does not specify one (spec §4.4).
const DefaultCooldownSeconds = 900

// Recurrence is a maintenance window's repeat rule.
type Recurrence string

const (
	RecurrenceOnce   Recurrence = "once"
	RecurrenceDaily  Recurrence = "daily"
	RecurrenceWeekly Recurrence = "weekly"
)

// MaintenanceWindow suppresses alert evaluation for a device (or every
// device, when DeviceID is nil) during a declared interval.
type MaintenanceWindow struct {
	ID         int64      `json:"id"`
	DeviceID   *uuid.UUID `json:"deviceId,omitempty"` // nil = global
	Start      time.Time  `json:"start"`
	End        time.Time  `json:"end"`
	Recurrence Recurrence `json:"recurrence"`
	Enabled    bool       `json:"enabled"`
}

// Trigger is the result of evaluating one AlertConfig against the
// latest metrics for a device.
type Trigger struct {
	Config       AlertConfig
	ActualValue  float64
	TopSource    string
	PerIPResults []PerIPResult
}
