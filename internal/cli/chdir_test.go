package cli

import (
	"os"
	"testing"
)

// tChdir changes the working directory for the duration of the test,
// matching the semantics of testing.T.Chdir (unavailable before Go 1.24).
func tChdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
