package blueprint

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is the game version a document targets. It travels packed into a
// single uint64, 16 bits per part, major first.
type Version struct {
	Major, Minor, Patch, Build uint16
}

// DefaultVersion is stamped on new documents.
var DefaultVersion = Version{Major: 1, Minor: 1, Patch: 59}

func (v Version) Pack() uint64 {
	return uint64(v.Major)<<48 | uint64(v.Minor)<<32 | uint64(v.Patch)<<16 | uint64(v.Build)
}

func UnpackVersion(n uint64) Version {
	return Version{
		Major: uint16(n >> 48),
		Minor: uint16(n >> 32),
		Patch: uint16(n >> 16),
		Build: uint16(n),
	}
}

// ParseVersion reads "major.minor[.patch[.build]]".
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) < 2 || len(parts) > 4 {
		return Version{}, fmt.Errorf("version %q: %w", s, ErrInvalidArgument)
	}
	var nums [4]uint16
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return Version{}, fmt.Errorf("version %q: %w", s, ErrInvalidArgument)
		}
		nums[i] = uint16(n)
	}
	return Version{nums[0], nums[1], nums[2], nums[3]}, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.Build)
}
