package enums

import (
	"fmt"
	"slices"
)

func member[T ~string](v T, set []T) bool {
	return slices.Contains(set, v)
}

// parse matches raw exactly against set; kind names the enum in errors.
func parse[T ~string](raw, kind string, set []T) (T, error) {
	if v := T(raw); member(v, set) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
