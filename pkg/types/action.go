package types

// ActionKind is the terminal recommendation of the action policy.
type ActionKind string

const (
	ActionUpgradeCritical    ActionKind = "UPGRADE_CRITICAL"
	ActionUpgradeRequired    ActionKind = "UPGRADE_REQUIRED"
	ActionUpgradeRecommended ActionKind = "UPGRADE_RECOMMENDED"
	ActionNoAction           ActionKind = "NO_ACTION"
	ActionInvestigate        ActionKind = "INVESTIGATE"
	ActionMonitor            ActionKind = "MONITOR"
)

// Urgency orders recommendations for presentation. Higher is more
// urgent.
type Urgency int

const (
	UrgencyInfo Urgency = iota
	UrgencyLow
	UrgencyMedium
	UrgencyHigh
	UrgencyCritical
)

var UrgencyNames = []string{
	"info",
	"low",
	"medium",
	"high",
	"critical",
}

func (u Urgency) String() string {
	return UrgencyNames[u]
}

// ActionGuidance is derived per query and never persisted.
type ActionGuidance struct {
	Kind    ActionKind `json:",omitempty"`
	Urgency Urgency    `json:""`
	Message string     `json:",omitempty"`
	Steps   []string   `json:",omitempty"`
}
