package pkg

import (
	"fmt"

	"github.com/urfave/cli"
	"golang.org/x/xerrors"

	"github.com/minsafe/msv-db/pkg/action"
	"github.com/minsafe/msv-db/pkg/cache"
	"github.com/minsafe/msv-db/pkg/catalog"
	"github.com/minsafe/msv-db/pkg/compliance"
	"github.com/minsafe/msv-db/pkg/resolver"
	"github.com/minsafe/msv-db/pkg/types"
	"github.com/minsafe/msv-db/pkg/version"
)

func check(c *cli.Context) error {
	productID := c.Args().First()
	if productID == "" {
		return xerrors.New("product_id is required")
	}
	installed := c.Args().Get(1)

	reg, err := catalog.Load(c.String("catalog"))
	if err != nil {
		return xerrors.Errorf("catalog load error: %w", err)
	}
	if installed == "" {
		if product, ok := reg.Get(productID); ok {
			installed = product.Installed
		}
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

	msv, recommended := pickMSV(entry, installed, store, productID)
	result := compliance.Evaluate(installed, msv, recommended)
	guidance := action.Decide(guidanceInput(entry, installed, msv, recommended))

	fmt.Printf("Product:    %s\n", productID)
	if installed != "" {
		fmt.Printf("Installed:  %s\n", installed)
	}
	if msv != "" {
		fmt.Printf("Minimum:    %s\n", msv)
	}
	if recommended != "" {
		fmt.Printf("Recommended: %s\n", recommended)
	}
	fmt.Printf("Status:     %s\n", types.ColorizeStatus(result.Status))
	fmt.Printf("Action:     %s (%s)\n", guidance.Kind, guidance.Urgency)
	fmt.Printf("  %s\n", guidance.Message)
	for _, step := range guidance.Steps {
		fmt.Printf("  - %s\n", step)
	}
	return nil
}

// pickMSV selects the minimum safe version to grade against: the branch
// the installed version is on when cached, otherwise the branch with
// the highest minimum across the product.
func pickMSV(entry *types.ResolutionEntry, installed string, store *cache.Store, productID string) (msv, recommended string) {
	if entry == nil {
		return "", ""
	}
	if installed != "" {
		prefix := version.Branch(installed)
		for _, b := range entry.Branches {
			if b.Prefix == prefix {
				return b.MSV, b.LatestKnown
			}
		}
	}
	primary, err := store.PrimaryMSV(productID)
	if err != nil || primary == nil {
		return "", ""
	}
	for _, b := range entry.Branches {
		if b.Prefix == primary.Branch {
			return b.MSV, b.LatestKnown
		}
	}
	return primary.MSV, ""
}

// guidanceInput assembles the action policy's signals from the cached
// entry. Evidence means at least one source was actually queried; a
// resolution where every source failed has none.
func guidanceInput(entry *types.ResolutionEntry, installed, msv, recommended string) action.Input {
	in := action.Input{
		Installed:      installed,
		MSV:            msv,
		Recommended:    recommended,
		NoSafeBranches: resolver.NoSafeBranches(entry),
	}
	if entry == nil {
		return in
	}
	in.Exploited = entry.Exploited
	in.CVECount = entry.CVECount
	in.Confidence = entry.Confidence
	for _, res := range entry.SourceResults {
		if res.Queried {
			in.HasEvidence = true
			break
		}
	}
	return in
}
