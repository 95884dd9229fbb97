package types

import "github.com/fatih/color"

// ComplianceStatus is the verdict of comparing an installed version
// against a resolved minimum safe version.
type ComplianceStatus string

const (
	StatusCompliant    ComplianceStatus = "COMPLIANT"
	StatusNonCompliant ComplianceStatus = "NON_COMPLIANT"
	StatusOutdated     ComplianceStatus = "OUTDATED"
	StatusUnknown      ComplianceStatus = "UNKNOWN"
	StatusNotFound     ComplianceStatus = "NOT_FOUND"
	StatusError        ComplianceStatus = "ERROR"
)

var statusColor = map[ComplianceStatus]func(a ...interface{}) string{
	StatusCompliant:    color.New(color.FgGreen).SprintFunc(),
	StatusNonCompliant: color.New(color.FgRed).SprintFunc(),
	StatusOutdated:     color.New(color.FgYellow).SprintFunc(),
	StatusUnknown:      color.New(color.FgCyan).SprintFunc(),
	StatusNotFound:     color.New(color.FgBlue).SprintFunc(),
	StatusError:        color.New(color.FgHiRed).SprintFunc(),
}

func ColorizeStatus(status ComplianceStatus) string {
	if colorize, ok := statusColor[status]; ok {
		return colorize(string(status))
	}
	return string(status)
}

// ComplianceResult is derived per query and never persisted.
type ComplianceResult struct {
	InstalledVersion string           `json:",omitempty"`
	MSV              string           `json:",omitempty"`
	Recommended      string           `json:",omitempty"`
	Latest           string           `json:",omitempty"`
	Status           ComplianceStatus `json:""`
	CriticalUpgrade  bool             `json:",omitempty"`
	Message          string           `json:",omitempty"`
}
