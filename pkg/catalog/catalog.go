// Package catalog loads the product registry: the list of products to
// resolve, with the identifiers sources match advisories against.
package catalog

import (
	"os"
	"strings"

	"github.com/package-url/packageurl-go"
	"github.com/samber/oops"
	"gopkg.in/yaml.v2"

	"github.com/minsafe/msv-db/pkg/types"
)

// Product is one registered product.
type Product struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Vendor string `yaml:"vendor"`

	// MatchKey is either a CPE-like prefix ("cpe:2.3:a:vendorx:widget")
	// or a package URL ("pkg:npm/widget").
	MatchKey string `yaml:"match_key"`

	// Installed is the deployed version, when the operator tracks it in
	// the registry.
	Installed string `yaml:"installed"`

	// LatestKnown maps a release branch prefix to the newest release
	// the operator knows about on that branch.
	LatestKnown map[string]string `yaml:"latest_known"`
}

type Catalog struct {
	Products []Product `yaml:"products"`

	byID map[string]Product
}

// Load reads the registry file. Duplicate product ids are rejected, a
// later entry silently shadowing an earlier one would hide a typo.
func Load(filePath string) (*Catalog, error) {
	eb := oops.With("file_path", filePath)

	b, err := os.ReadFile(filePath)
	if err != nil {
		return nil, eb.Wrapf(err, "file read error")
	}

	var c Catalog
	if err = yaml.Unmarshal(b, &c); err != nil {
		return nil, eb.Wrapf(err, "yaml unmarshal error")
	}

	c.byID = make(map[string]Product, len(c.Products))
	for _, p := range c.Products {
		if p.ID == "" {
			return nil, eb.Errorf("product without id")
		}
		if _, ok := c.byID[p.ID]; ok {
			return nil, eb.With("product_id", p.ID).Errorf("duplicate product id")
		}
		c.byID[p.ID] = p
	}
	return &c, nil
}

func (c *Catalog) Get(productID string) (Product, bool) {
	p, ok := c.byID[productID]
	return p, ok
}

// Query derives the source query for the product. A package-URL match
// key contributes the ecosystem package name; sources that only speak
// CPE ignore it.
func (p Product) Query() types.ProductQuery {
	q := types.ProductQuery{
		ProductID: p.ID,
		Name:      p.Name,
		Vendor:    p.Vendor,
		MatchKey:  p.MatchKey,
	}
	if strings.HasPrefix(p.MatchKey, "pkg:") {
		if purl, err := packageurl.FromString(p.MatchKey); err == nil {
			q.Package = purl.Name
			if purl.Namespace != "" {
				q.Package = purl.Namespace + "/" + purl.Name
			}
		}
	}
	return q
}
