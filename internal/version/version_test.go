package version

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"
)

// TestHelperProcess isn't a real test. It's used to mock exec.CommandContext.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	args := os.Args
	for len(args) > 0 {
		if args[0] == "--" {
			args = args[1:]
			break
		}
		args = args[1:]
	}
	if len(args) < 3 || args[0] != "git" || args[1] != "describe" {
		os.Exit(0)
	}

	switch args[2] {
	case "--always":
		if os.Getenv("MOCK_GIT_FAIL") == "1" {
			os.Exit(1)
		}
		os.Stdout.WriteString("mock-commit-hash\n")
	case "--tags":
		if os.Getenv("MOCK_GIT_FAIL") == "1" {
			os.Exit(1)
		}
		os.Stdout.WriteString("v1.2.3\n")
	}
}

func mockExec(fail bool) func(ctx context.Context, name string, arg ...string) *exec.Cmd {
	return func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		cs := []string{"-test.run=TestHelperProcess", "--", name}
		cs = append(cs, arg...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = []string{"GO_WANT_HELPER_PROCESS=1"}
		if fail {
			cmd.Env = append(cmd.Env, "MOCK_GIT_FAIL=1")
		}
		return cmd
	}
}

func reset(t *testing.T) {
	t.Helper()
	origExec := execCommand
	origVersion, origCommit, origDate := Version, Commit, Date
	t.Cleanup(func() {
		execCommand = origExec
		Version, Commit, Date = origVersion, origCommit, origDate
		once = sync.Once{}
	})
	Version, Commit, Date = "", "", ""
	once = sync.Once{}
}

func TestInfo_FromGit(t *testing.T) {
	reset(t)
	execCommand = mockExec(false)

	info := Info()
	if !strings.Contains(info, "1.2.3") {
		t.Errorf("Info() = %q, want version 1.2.3", info)
	}
	if !strings.Contains(info, "mock-commit-hash") {
		t.Errorf("Info() = %q, want commit hash", info)
	}
	if ClientVersion() != "1.2.3" {
		t.Errorf("ClientVersion() = %q, want 1.2.3", ClientVersion())
	}
}

func TestInfo_GitUnavailable(t *testing.T) {
	reset(t)
	execCommand = mockExec(true)

	if got := ClientVersion(); got != "dev" {
		t.Errorf("ClientVersion() = %q, want dev", got)
	}
	if Commit != "unknown" {
		t.Errorf("Commit = %q, want unknown", Commit)
	}
}

func TestInfo_LdflagsWin(t *testing.T) {
	reset(t)
	execCommand = mockExec(false)
	Version = "9.9.9"
	Commit = "abc123"

	if got := ClientVersion(); got != "9.9.9" {
		t.Errorf("ClientVersion() = %q, want 9.9.9", got)
	}
	if ua := UserAgent(); !strings.HasPrefix(ua, "stockscanner-tui/9.9.9") {
		t.Errorf("UserAgent() = %q", ua)
	}
}
