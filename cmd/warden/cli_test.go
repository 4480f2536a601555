package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func executeCommand(root *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestCLIHelp(t *testing.T) {
	output, err := executeCommand(rootCmd, "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, phrase := range []string{"warden", "QuickJS", "run", "repl", "serve", "mcp", "inspect"} {
		if !strings.Contains(output, phrase) {
			t.Errorf("help output should contain %q", phrase)
		}
	}
}

func TestCLIRunHelp(t *testing.T) {
	output, err := executeCommand(rootCmd, "run", "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, phrase := range []string{"--code", "--allow-host", "--kv", "--disk-cache", "--mount", "--timeout"} {
		if !strings.Contains(output, phrase) {
			t.Errorf("run help output should contain %q", phrase)
		}
	}
}

func TestCLIServeHelp(t *testing.T) {
	output, err := executeCommand(rootCmd, "serve", "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, phrase := range []string{"--addr", "--report-db"} {
		if !strings.Contains(output, phrase) {
			t.Errorf("serve help output should contain %q", phrase)
		}
	}
}

func TestCLIReplHelp(t *testing.T) {
	output, err := executeCommand(rootCmd, "repl", "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(output) == "" {
		t.Error("expected non-empty repl help output")
	}
}

func TestCLIMCPHelp(t *testing.T) {
	output, err := executeCommand(rootCmd, "mcp", "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(output) == "" {
		t.Error("expected non-empty mcp help output")
	}
}

func TestCLIInspectHelp(t *testing.T) {
	output, err := executeCommand(rootCmd, "inspect", "--help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, phrase := range []string{"--run", "--type", "--path"} {
		if !strings.Contains(output, phrase) {
			t.Errorf("inspect help output should contain %q", phrase)
		}
	}
}

func TestCLIInspectRequiresDBArg(t *testing.T) {
	if _, err := executeCommand(rootCmd, "inspect"); err == nil {
		t.Error("expected an error when no database path is given")
	}
}

func TestParseMount(t *testing.T) {
	tests := []struct {
		spec        string
		wantVirtual string
		wantHost    string
		wantErr     bool
	}{
		{"/app:./fixtures", "/app", "./fixtures", false},
		{"/app:/abs/host/path", "/app", "/abs/host/path", false},
		{"no-colon-here", "", "", true},
	}
	for _, tc := range tests {
		vp, hp, err := parseMount(tc.spec)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseMount(%q) should error", tc.spec)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseMount(%q) unexpected error: %v", tc.spec, err)
			continue
		}
		if vp != tc.wantVirtual || hp != tc.wantHost {
			t.Errorf("parseMount(%q) = (%q, %q), want (%q, %q)", tc.spec, vp, hp, tc.wantVirtual, tc.wantHost)
		}
	}
}

func TestParseMemoryLimitMiB(t *testing.T) {
	tests := []struct {
		in   string
		want uint
	}{
		{"1mb", 1},
		{"16mb", 16},
		{"64MB", 64},
		{"256mb", 256},
		{"1gb", 1024},
		{"bogus", 0},
		{"", 0},
	}
	for _, tc := range tests {
		if got := parseMemoryLimitMiB(tc.in); got != tc.want {
			t.Errorf("parseMemoryLimitMiB(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
