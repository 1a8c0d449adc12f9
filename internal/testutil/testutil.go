// Package testutil has helpers shared by tests.
package testutil

import (
	"os"
	"os/exec"
	"testing"
)

// RequireHostFilter skips the test unless PHOQUE_HOST_TEST is set, the
// process runs as root and bin is on PATH. Such tests change the real
// packet filter and belong in a throwaway VM or container.
func RequireHostFilter(t *testing.T, bin string) {
	t.Helper()
	if os.Getenv("PHOQUE_HOST_TEST") == "" {
		t.Skip("Skipping test: requires PHOQUE_HOST_TEST environment")
	}
	if os.Geteuid() != 0 {
		t.Skip("Skipping test: requires root")
	}
	if _, err := exec.LookPath(bin); err != nil {
		t.Skipf("Skipping test: %s not found", bin)
	}
}
