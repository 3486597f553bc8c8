package component

import "fmt"

// Size is the size class of a destructible entity. Larger classes fragment
// into smaller ones.
type Size int

const (
	SizeSmall Size = iota
	SizeMedium
	SizeLarge
)

// Sizes lists every size class from smallest to largest.
var Sizes = []Size{SizeSmall, SizeMedium, SizeLarge}

// Largest is the size class whose destruction can produce a dense fragment.
const Largest = SizeLarge

func (s Size) String() string {
	switch s {
	case SizeSmall:
		return "small"
	case SizeMedium:
		return "medium"
	case SizeLarge:
		return "large"
	}
	return fmt.Sprintf("size(%d)", int(s))
}

// Valid reports whether s is a known size class.
func (s Size) Valid() bool {
	return s >= SizeSmall && s <= SizeLarge
}

// Smaller returns the next size class down. ok is false for the smallest.
func (s Size) Smaller() (Size, bool) {
	if s <= SizeSmall || !s.Valid() {
		return s, false
	}
	return s - 1, true
}

// ParseSize converts a size name used in config and data files.
func ParseSize(name string) (Size, error) {
	switch name {
	case "small":
		return SizeSmall, nil
	case "medium":
		return SizeMedium, nil
	case "large":
		return SizeLarge, nil
	}
	return 0, fmt.Errorf("unknown size class %q", name)
}

// MarshalText encodes the size by name for JSON/TOML/YAML.
func (s Size) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid size class %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Size) UnmarshalText(b []byte) error {
	v, err := ParseSize(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
