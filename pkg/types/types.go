package types

import (
	"fmt"
	"time"

	"github.com/fatih/color"
)

type Severity int

const (
	SeverityUnknown Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var (
	SeverityNames = []string{
		"UNKNOWN",
		"LOW",
		"MEDIUM",
		"HIGH",
		"CRITICAL",
	}
	SeverityColor = []func(a ...interface{}) string{
		color.New(color.FgCyan).SprintFunc(),
		color.New(color.FgBlue).SprintFunc(),
		color.New(color.FgYellow).SprintFunc(),
		color.New(color.FgHiRed).SprintFunc(),
		color.New(color.FgRed).SprintFunc(),
	}
)

func NewSeverity(severity string) (Severity, error) {
	for i, name := range SeverityNames {
		if severity == name {
			return Severity(i), nil
		}
	}
	return SeverityUnknown, fmt.Errorf("unknown severity: %s", severity)
}

func (s Severity) String() string {
	return SeverityNames[s]
}

func ColorizeSeverity(severity string) string {
	for i, name := range SeverityNames {
		if severity == name {
			return SeverityColor[i](severity)
		}
	}
	return color.New(color.FgBlue).SprintFunc()(severity)
}

// Confidence rates how well-evidenced a resolved minimum safe version is.
// The order is significant: merges may raise confidence but never lower it.
type Confidence int

const (
	ConfidenceNone Confidence = iota
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
)

var ConfidenceNames = []string{
	"NONE",
	"LOW",
	"MEDIUM",
	"HIGH",
}

func NewConfidence(confidence string) (Confidence, error) {
	for i, name := range ConfidenceNames {
		if confidence == name {
			return Confidence(i), nil
		}
	}
	return ConfidenceNone, fmt.Errorf("unknown confidence: %s", confidence)
}

func (c Confidence) String() string {
	return ConfidenceNames[c]
}

type SourceID string

type DataSource struct {
	ID   SourceID `json:",omitempty"`
	Name string   `json:",omitempty"`
	URL  string   `json:",omitempty"`
}

// VersionRange is an interval of affected versions. At most one of
// StartIncluding/StartExcluding is set, and at most one of
// EndIncluding/EndExcluding.
type VersionRange struct {
	StartIncluding string `json:"start_including,omitempty"`
	StartExcluding string `json:"start_excluding,omitempty"`
	EndIncluding   string `json:"end_including,omitempty"`
	EndExcluding   string `json:"end_excluding,omitempty"`
}

// InferredFix derives the fixed version implied by an affected range.
// An exclusive upper bound is itself the fix. An inclusive upper bound
// only proves the fix is some later version, which yields the
// UnresolvedFix marker; a fixed version must never be a string that
// numerically equals an affected version. Returns "" when the range is
// open-ended.
func (r VersionRange) InferredFix() string {
	if r.EndExcluding != "" {
		return r.EndExcluding
	}
	if r.EndIncluding != "" {
		return UnresolvedFix
	}
	return ""
}

// UnresolvedFix marks a fixed version that is only known to be greater
// than some affected version. It is kept for audit but never enters
// minimum-safe-version arithmetic.
const UnresolvedFix = "unresolved"

// IsResolvableFix reports whether v is a concrete fixed version usable
// in minimum-safe-version arithmetic.
func IsResolvableFix(v string) bool {
	return v != "" && v != UnresolvedFix
}

// Advisory is the common shape every intelligence source is normalized
// into. Immutable once produced by a normalizer.
type Advisory struct {
	ID              string         `json:",omitempty"`
	Title           string         `json:",omitempty"`
	Severity        Severity       `json:",omitempty"`
	CveIDs          []string       `json:",omitempty"`
	Ranges          []VersionRange `json:",omitempty"`
	FixedVersions   []string       `json:",omitempty"`
	Published       time.Time      `json:",omitempty"`
	ExploitedInWild bool           `json:",omitempty"`
	Source          SourceID       `json:",omitempty"`
}

// ResolvableFixes returns the concrete fixed versions of the advisory,
// excluding unresolved markers.
func (a Advisory) ResolvableFixes() []string {
	var fixes []string
	for _, v := range a.FixedVersions {
		if IsResolvableFix(v) {
			fixes = append(fixes, v)
		}
	}
	return fixes
}

// ProductQuery identifies the product a source is asked about.
type ProductQuery struct {
	ProductID string
	Name      string
	Vendor    string
	// MatchKey is the registered platform identifier, either a
	// CPE-like prefix ("cpe:2.3:a:vendorx:widget") or a package URL
	// ("pkg:npm/widget").
	MatchKey string
	// Package is the ecosystem package name derived from a package-URL
	// match key, empty otherwise.
	Package string
}

// SourceResult records the outcome of the most recent query attempt
// against one source.
type SourceResult struct {
	Source   SourceID `json:",omitempty"`
	Queried  bool     `json:""`
	CVECount int      `json:",omitempty"`
	Note     string   `json:",omitempty"`
}

// Branch is one release line of a product, keyed by a truncated
// version prefix. MSV and LatestKnown only ever move forward.
type Branch struct {
	Prefix         string    `json:",omitempty"`
	MSV            string    `json:",omitempty"`
	LatestKnown    string    `json:",omitempty"`
	LastChecked    time.Time `json:",omitempty"`
	AdvisoriesSeen []string  `json:",omitempty"`
}

// ResolutionEntry is the cached resolution state for one product. The
// resolution cache owns its lifetime; everything else sees snapshots.
type ResolutionEntry struct {
	ProductID     string                    `json:",omitempty"`
	Name          string                    `json:",omitempty"`
	Vendor        string                    `json:",omitempty"`
	Branches      []Branch                  `json:",omitempty"`
	DataSources   []SourceID                `json:",omitempty"`
	Confidence    Confidence                `json:""`
	Justification string                    `json:",omitempty"`
	CVECount      int                       `json:",omitempty"`
	Exploited     bool                      `json:",omitempty"`
	SourceResults map[SourceID]SourceResult `json:",omitempty"`
	LastUpdated   time.Time                 `json:",omitempty"`
}
