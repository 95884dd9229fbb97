package vendoradv

// Feed is one scraped vendor advisory document.
type Feed struct {
	Vendor     string     `yaml:"vendor"`
	Advisories []Advisory `yaml:"advisories"`
}

type Advisory struct {
	ID            string          `yaml:"id"`
	Title         string          `yaml:"title"`
	Product       string          `yaml:"product"`
	Severity      string          `yaml:"severity"`
	CVEs          []string        `yaml:"cves"`
	Affected      []AffectedRange `yaml:"affected"`
	FixedVersions []string        `yaml:"fixed_versions"`
	Published     string          `yaml:"published"`
	Exploited     bool            `yaml:"exploited"`
}

type AffectedRange struct {
	StartIncluding string `yaml:"start_including"`
	StartExcluding string `yaml:"start_excluding"`
	EndIncluding   string `yaml:"end_including"`
	EndExcluding   string `yaml:"end_excluding"`
}
