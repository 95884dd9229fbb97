package pkg

import (
	"fmt"
	"strings"

	"github.com/urfave/cli"
	"golang.org/x/xerrors"

	"github.com/minsafe/msv-db/pkg/cache"
)

func show(c *cli.Context) error {
	productID := c.Args().First()
	if productID == "" {
		return xerrors.New("product_id is required")
	}

	store, err := cache.New(c.String("cache-dir"))
	if err != nil {
		return xerrors.Errorf("cache open error: %w", err)
	}
	defer store.Close()

	entry, err := store.Get(productID)
	if err != nil {
		return xerrors.Errorf("cache read error: %w", err)
	}
	if entry == nil {
		return xerrors.Errorf("no resolution for %s", productID)
	}

	fmt.Printf("Product:     %s (%s, %s)\n", entry.ProductID, entry.Name, entry.Vendor)
	fmt.Printf("Confidence:  %s\n", entry.Confidence)
	fmt.Printf("CVEs:        %d\n", entry.CVECount)
	fmt.Printf("Exploited:   %t\n", entry.Exploited)
	fmt.Printf("Updated:     %s\n", entry.LastUpdated.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Reason:      %s\n", entry.Justification)

	fmt.Println("Branches:")
	for _, b := range entry.Branches {
		line := fmt.Sprintf("  %-8s minimum safe %s", b.Prefix, orDash(b.MSV))
		if b.LatestKnown != "" {
			line += fmt.Sprintf(", latest known %s", b.LatestKnown)
		}
		fmt.Println(line)
		if len(b.AdvisoriesSeen) > 0 {
			fmt.Printf("           advisories: %s\n", strings.Join(b.AdvisoriesSeen, ", "))
		}
	}

	fmt.Println("Sources:")
	for _, res := range entry.SourceResults {
		status := "queried"
		if !res.Queried {
			status = "unavailable"
		}
		line := fmt.Sprintf("  %-26s %s, %d CVEs", res.Source, status, res.CVECount)
		if res.Note != "" {
			line += fmt.Sprintf(" (%s)", res.Note)
		}
		fmt.Println(line)
	}
	return nil
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
