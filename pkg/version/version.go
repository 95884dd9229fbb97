// Package version implements a total order over dotted numeric version
// strings. Components are compared numerically; anything that does not
// parse as a non-negative integer degrades to 0 rather than failing, so
// comparisons are usable on whatever a source happens to report.
package version

import (
	"strconv"
	"strings"
)

// Compare returns -1, 0 or 1. Missing trailing components count as 0,
// so "1.0" == "1.0.0".
func Compare(a, b string) int {
	av := parse(a)
	bv := parse(b)

	n := len(av)
	if len(bv) > n {
		n = len(bv)
	}
	for i := 0; i < n; i++ {
		var x, y int
		if i < len(av) {
			x = av[i]
		}
		if i < len(bv) {
			y = bv[i]
		}
		if x < y {
			return -1
		}
		if x > y {
			return 1
		}
	}
	return 0
}

func Less(a, b string) bool {
	return Compare(a, b) < 0
}

// Max returns the greater of a and b, preferring a on ties. An empty
// string loses to any non-empty version.
func Max(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if Compare(a, b) >= 0 {
		return a
	}
	return b
}

// Major returns the first numeric component.
func Major(v string) int {
	components := parse(v)
	if len(components) == 0 {
		return 0
	}
	return components[0]
}

// Branch returns the release-branch key of a version: its first two
// numeric components. The key is normalized through the numeric parse,
// so "7.2", "7.2.0" and "7.2.4" all map to branch "7.2".
func Branch(v string) string {
	components := parse(v)
	major, minor := 0, 0
	if len(components) > 0 {
		major = components[0]
	}
	if len(components) > 1 {
		minor = components[1]
	}
	return strconv.Itoa(major) + "." + strconv.Itoa(minor)
}

func parse(v string) []int {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ".")
	components := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			n = 0
		}
		components[i] = n
	}
	return components
}
