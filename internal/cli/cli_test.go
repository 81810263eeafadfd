package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "examclient dev") {
		t.Errorf("output = %q", out.String())
	}
}

func TestJournalRequiresRedis(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	rootCmd.SetArgs([]string{"journal"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "REDIS_URL") {
		t.Errorf("err = %v, want REDIS_URL error", err)
	}
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"serve", "version", "journal"} {
		if cmd, _, err := rootCmd.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}
