package nvd

// Item is based on https://csrc.nist.gov/schema/nvd/api/2.0/cve_api_json_2.0.schema
// (see `cve_item`), trimmed to the fields the normalizer consumes.
type Item struct {
	Cve Cve `json:"cve"`
}

type Cve struct {
	ID             string          `json:"id"`
	Published      string          `json:"published"`
	LastModified   string          `json:"lastModified,omitempty"`
	CisaExploitAdd string          `json:"cisaExploitAdd,omitempty"`
	CisaActionDue  string          `json:"cisaActionDue,omitempty"`
	Descriptions   []LangString    `json:"descriptions"`
	Metrics        Metrics         `json:"metrics,omitempty"`
	Configurations []Configuration `json:"configurations,omitempty"`
}

type LangString struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type Metrics struct {
	CvssMetricV31 []CvssMetricV3 `json:"cvssMetricV31,omitempty"`
	CvssMetricV30 []CvssMetricV3 `json:"cvssMetricV30,omitempty"`
	CvssMetricV2  []CvssMetricV2 `json:"cvssMetricV2,omitempty"`
}

type CvssMetricV3 struct {
	Source   string      `json:"source"`
	Type     string      `json:"type"`
	CvssData CvssDataV30 `json:"cvssData"`
}

// CvssDataV30 covers both v3.0 and v3.1; the schemas only differ in the
// vectorString patterns.
type CvssDataV30 struct {
	Version      string  `json:"version"`
	VectorString string  `json:"vectorString"`
	BaseScore    float64 `json:"baseScore"`
	BaseSeverity string  `json:"baseSeverity"`
}

type CvssMetricV2 struct {
	Source       string      `json:"source"`
	Type         string      `json:"type"`
	CvssData     CvssDataV20 `json:"cvssData"`
	BaseSeverity string      `json:"baseSeverity,omitempty"`
}

type CvssDataV20 struct {
	Version      string  `json:"version"`
	VectorString string  `json:"vectorString"`
	BaseScore    float64 `json:"baseScore"`
}

type Configuration struct {
	Operator string `json:"operator,omitempty"`
	Negate   bool   `json:"negate,omitempty"`
	Nodes    []Node `json:"nodes"`
}

type Node struct {
	Operator string     `json:"operator"`
	Negate   bool       `json:"negate"`
	CpeMatch []CpeMatch `json:"cpeMatch"`
}

type CpeMatch struct {
	Vulnerable            bool   `json:"vulnerable"`
	Criteria              string `json:"criteria"`
	MatchCriteriaID       string `json:"matchCriteriaId"`
	VersionStartExcluding string `json:"versionStartExcluding,omitempty"`
	VersionStartIncluding string `json:"versionStartIncluding,omitempty"`
	VersionEndExcluding   string `json:"versionEndExcluding,omitempty"`
	VersionEndIncluding   string `json:"versionEndIncluding,omitempty"`
}
