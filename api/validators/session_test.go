package validators

import (
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/swapmeet-backend/pkg/errors"
)

func TestParseSessionID(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{raw: " cs_test_a1B2c3 ", want: "cs_test_a1B2c3", ok: true},
		{raw: "cs_live_XYZ9", want: "cs_live_XYZ9", ok: true},
		{raw: ""},
		{raw: "pi_test_123"},
		{raw: "cs_test_"},
		{raw: "cs_test_abc/../x"},
		{raw: "cs_test_" + strings.Repeat("a", maxSessionIDLen)},
	}
	for _, tt := range tests {
		got, err := ParseSessionID(tt.raw)
		if tt.ok {
			if err != nil || got != tt.want {
				t.Fatalf("ParseSessionID(%q) = %q, %v", tt.raw, got, err)
			}
			continue
		}
		if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("ParseSessionID(%q) expected validation error, got %v", tt.raw, err)
		}
	}
}
