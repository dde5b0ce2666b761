// Package migration runs the versioned migration units a module registers,
// in version order, between an installed and a target version.
package migration

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrInvalidVersion is returned for versions that are not major.minor.patch
var ErrInvalidVersion = errors.New("invalid version")

// Version is a major.minor.patch release number
type Version struct {
	Major, Minor, Patch int
}

// ParseVersion accepts "1.4.0", "v1.4.0" and unit names like "V1Dot4Dot0"
func ParseVersion(s string) (Version, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "v"), "V")
	raw = strings.ReplaceAll(raw, "Dot", ".")

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
		}
		nums[i] = n
	}

	v := Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}
	if !semver.IsValid(v.semver()) {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
	}
	return v, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// UnitName returns the conventional unit name, e.g. V1Dot4Dot0
func (v Version) UnitName() string {
	return fmt.Sprintf("V%dDot%dDot%d", v.Major, v.Minor, v.Patch)
}

func (v Version) semver() string {
	return "v" + v.String()
}

// Compare returns -1, 0 or +1 as v sorts before, with or after o
func (v Version) Compare(o Version) int {
	return semver.Compare(v.semver(), o.semver())
}
