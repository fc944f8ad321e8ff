package h5build

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is an HDF5 release number.
type Version struct {
	Major   int
	Minor   int
	Release int
}

// ParseVersion parses an "X.Y.Z" version string. Anything else, including
// fewer or more components or non-numeric parts, is an error.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("HDF5 version string must be in X.Y.Z format: %q", s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("HDF5 version string must be in X.Y.Z format: %q", s)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Release: nums[2]}, nil
}

// ValidateVersion reports whether s is a well-formed "X.Y.Z" version string.
func ValidateVersion(s string) error {
	_, err := ParseVersion(s)
	return err
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Release)
}

// AtLeast reports whether v is the same as or newer than other.
func (v Version) AtLeast(other Version) bool {
	if v.Major != other.Major {
		return v.Major > other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor > other.Minor
	}
	return v.Release >= other.Release
}
