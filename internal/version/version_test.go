package version

import (
	"strings"
	"testing"
)

func TestLongAndUserAgent(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()
	Version = "1.2.3"

	if got := UserAgent(); got != "streamctl/1.2.3" {
		t.Errorf("UserAgent() = %q", got)
	}
	long := Long()
	if !strings.HasPrefix(long, "1.2.3 (commit ") || !strings.Contains(long, Get().Platform) {
		t.Errorf("Long() = %q", long)
	}
}
