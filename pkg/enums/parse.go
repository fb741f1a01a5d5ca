package enums

import (
	"fmt"
	"slices"
	"strings"
)

// parse matches raw against valid after trimming and lowercasing; kind names
// the enum in the error.
func parse[T ~string](kind string, valid []T, raw string) (T, error) {
	v := T(strings.ToLower(strings.TrimSpace(raw)))
	if slices.Contains(valid, v) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
