package version

import (
	"strings"
	"testing"
)

func TestVersionStringNonEmpty(t *testing.T) {
	if s := String(); s == "" {
		t.Fatalf("version string is empty")
	}
}

func TestVersionStringCarriesAppName(t *testing.T) {
	if s := String(); !strings.HasPrefix(s, "kastom ") {
		t.Fatalf("unexpected banner: %q", s)
	}
}
