package version

import (
	"strings"
	"testing"
)

func TestInfoKeys(t *testing.T) {
	info := Info()
	for _, key := range []string{"version", "go_version", "commit", "build_date"} {
		if _, ok := info[key]; !ok {
			t.Errorf("Info() missing key %q", key)
		}
	}
	if info["version"] != BuildVersion {
		t.Errorf("version = %q, want %q", info["version"], BuildVersion)
	}
}

func TestString(t *testing.T) {
	s := String()
	if !strings.HasPrefix(s, "co2mcp ") {
		t.Errorf("String() = %q, want co2mcp prefix", s)
	}
}
