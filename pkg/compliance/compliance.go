// Package compliance grades an installed version against a resolved
// minimum safe version. It is pure: all inputs arrive as arguments and
// the verdict carries its own explanation.
package compliance

import (
	"fmt"

	"github.com/minsafe/msv-db/pkg/types"
	"github.com/minsafe/msv-db/pkg/version"
)

// Evaluate compares installed against the minimum safe version msv and
// the recommended (latest known) version. Missing inputs degrade to
// UNKNOWN rather than guessing: no installed version means we cannot
// grade, and no msv means there is nothing to grade against.
func Evaluate(installed, msv, recommended string) types.ComplianceResult {
	result := types.ComplianceResult{
		InstalledVersion: installed,
		MSV:              msv,
		Recommended:      recommended,
	}

	if installed == "" {
		result.Status = types.StatusUnknown
		result.Message = "installed version not provided"
		return result
	}
	if msv == "" {
		result.Status = types.StatusUnknown
		result.Message = "no minimum safe version resolved"
		return result
	}

	if version.Less(installed, msv) {
		result.Status = types.StatusNonCompliant
		result.Message = fmt.Sprintf("installed %s is below minimum safe version %s", installed, msv)
		if version.Major(msv) > version.Major(installed) {
			// Reaching safety requires crossing a major boundary.
			result.CriticalUpgrade = true
			result.Message += " and requires a major version upgrade"
		}
		return result
	}

	if recommended != "" && version.Less(installed, recommended) {
		result.Status = types.StatusOutdated
		result.Message = fmt.Sprintf("installed %s meets minimum safe version %s but trails recommended %s",
			installed, msv, recommended)
		return result
	}

	result.Status = types.StatusCompliant
	result.Message = fmt.Sprintf("installed %s meets minimum safe version %s", installed, msv)
	return result
}
