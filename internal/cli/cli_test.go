package cli

import (
	"bytes"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRun(t *testing.T) {
	out, err := execute(t, "run", "--log-level", "error", "--operators", "4", "--round-timeout", "1s", "--duration", "5s")
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}
	for _, want := range []string{
		`operator 1 decided "op1-round0" in round 0`,
		`operator 4 decided "op1-round0" in round 0`,
		"network:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q:\n%s", want, out)
		}
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	if _, err := execute(t, "run", "--log-level", "error", "--operators", "0"); err == nil {
		t.Error("run accepted zero operators")
	}
}

func TestInvalidLogLevel(t *testing.T) {
	if _, err := execute(t, "run", "--log-level", "loud"); err == nil {
		t.Error("run accepted an invalid log level")
	}
	// reset the persistent flag for later tests
	if err := rootCmd.PersistentFlags().Set("log-level", "error"); err != nil {
		t.Fatal(err)
	}
}
