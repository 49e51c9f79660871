package buildinfo

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	old := Version
	Version = "v0.3.0"
	defer func() { Version = old }()

	if got := String(); !strings.HasPrefix(got, "version: v0.3.0\n") {
		t.Errorf("String() = %q, want version line first", got)
	}
	if got := Template(); !strings.Contains(got, "{{.Name}} version v0.3.0") {
		t.Errorf("Template() = %q, want cobra name placeholder", got)
	}
}
