package main

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/j-veylop/stockscanner-tui/internal/devapi"
)

// setupEnv points configuration at a fresh development API and temp files.
func setupEnv(t *testing.T) {
	t.Helper()

	srv, err := devapi.New(devapi.Config{})
	if err != nil {
		t.Fatalf("devapi.New failed: %v", err)
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	t.Setenv("API_BASE_URL", ts.URL)
	t.Setenv("APP_ENV", "test")
	t.Setenv("CONFIG_FILE", filepath.Join(dir, "missing.yaml"))
	t.Setenv("DATABASE_PATH", filepath.Join(dir, "scanner.db"))
	t.Setenv("CREDENTIALS_PATH", filepath.Join(dir, "credentials.json"))
	t.Setenv("STORAGE_SECRET", "cli-test")
	t.Setenv("LOG_FILE", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("RETRY_MAX_ATTEMPTS", "1")
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func mustExecute(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	out, err := execute(t, stdin, args...)
	if err != nil {
		t.Fatalf("scanner %s failed: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestVersionCmd(t *testing.T) {
	out := mustExecute(t, "", "version")
	if !strings.Contains(out, "stockscanner-tui") {
		t.Errorf("version output = %q", out)
	}
}

func TestInvalidAPIFlag(t *testing.T) {
	setupEnv(t)
	if _, err := execute(t, "", "--api", "not a url", "status"); err == nil {
		t.Error("expected an error for an invalid API URL")
	}
}

func TestStocksCmd(t *testing.T) {
	setupEnv(t)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"All", []string{"stocks"}, []string{"AAPL", "Apple Inc.", "+1.12%", "10 of 10 stocks"}},
		{"Limit", []string{"stocks", "-n", "3"}, []string{"3 of 10 stocks"}},
		{"Search", []string{"stocks", "NVDA"}, []string{"NVDA", "1 of 1 stocks"}},
		{"NoMatch", []string{"stocks", "ZZZZ"}, []string{"no stocks"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := mustExecute(t, "", tt.args...)
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestSignedOutCommands(t *testing.T) {
	setupEnv(t)

	if out := mustExecute(t, "", "status"); !strings.Contains(out, "signed out") {
		t.Errorf("status output = %q", out)
	}

	for _, args := range [][]string{{"watchlist", "list"}, {"portfolio"}} {
		_, err := execute(t, "", args...)
		if err == nil || !strings.Contains(err.Error(), "scanner login") {
			t.Errorf("scanner %s error = %v, want a sign-in hint", strings.Join(args, " "), err)
		}
	}
}

func TestReadPassword(t *testing.T) {
	piped := filepath.Join(t.TempDir(), "stdin")
	if err := os.WriteFile(piped, []byte("from-file\nignored\n"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	f, err := os.Open(piped)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()

	tests := []struct {
		in   io.Reader
		name string
		want string
	}{
		{name: "Reader", in: strings.NewReader("secret\r\nnext\n"), want: "secret"},
		{name: "NoNewline", in: strings.NewReader("secret"), want: "secret"},
		{name: "Empty", in: strings.NewReader(""), want: ""},
		{name: "RegularFile", in: f, want: "from-file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var prompt bytes.Buffer
			got, err := readPassword(tt.in, &prompt)
			if err != nil {
				t.Fatalf("readPassword failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("readPassword = %q, want %q", got, tt.want)
			}
			if prompt.Len() != 0 {
				t.Errorf("piped input should not prompt, got %q", prompt.String())
			}
		})
	}
}

func TestLoginWrongPassword(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "", "login", "-u", "demo", "-p", "wrong")
	if err == nil || !strings.Contains(err.Error(), "Invalid username or password") {
		t.Errorf("login error = %v", err)
	}
}

func TestSignedInWorkflow(t *testing.T) {
	setupEnv(t)

	if out := mustExecute(t, "demo1234\n", "login", "-u", "demo"); !strings.Contains(out, "signed in as demo") {
		t.Fatalf("login output = %q", out)
	}

	status := mustExecute(t, "", "status")
	for _, want := range []string{"authenticated", "user:        demo", "token:", "session:"} {
		if !strings.Contains(status, want) {
			t.Errorf("status missing %q:\n%s", want, status)
		}
	}

	if out := mustExecute(t, "", "watchlist", "list"); !strings.Contains(out, "watchlist is empty") {
		t.Errorf("watchlist list = %q", out)
	}
	if out := mustExecute(t, "", "watchlist", "add", "nvda", "--alert", "150", "--notes", "earnings"); !strings.Contains(out, "added NVDA") {
		t.Errorf("watchlist add = %q", out)
	}
	if _, err := execute(t, "", "watchlist", "add", "NVDA"); err == nil {
		t.Error("adding a duplicate ticker should fail")
	}

	list := mustExecute(t, "", "watchlist", "list")
	for _, want := range []string{"NVDA", "150.00", "earnings"} {
		if !strings.Contains(list, want) {
			t.Errorf("watchlist list missing %q:\n%s", want, list)
		}
	}

	if out := mustExecute(t, "", "watchlist", "remove", "NVDA"); !strings.Contains(out, "removed NVDA") {
		t.Errorf("watchlist remove = %q", out)
	}
	if _, err := execute(t, "", "watchlist", "remove", "NVDA"); err == nil || !strings.Contains(err.Error(), "not on the watchlist") {
		t.Errorf("second remove error = %v", err)
	}

	portfolio := mustExecute(t, "", "portfolio")
	for _, want := range []string{"AAPL", "XOM", "cash $2,500.00"} {
		if !strings.Contains(portfolio, want) {
			t.Errorf("portfolio missing %q:\n%s", want, portfolio)
		}
	}

	requests := mustExecute(t, "", "requests", "-n", "5")
	for _, want := range []string{"last 24h:", "GET", "/api/portfolio/"} {
		if !strings.Contains(requests, want) {
			t.Errorf("requests missing %q:\n%s", want, requests)
		}
	}

	if out := mustExecute(t, "", "logout"); !strings.Contains(out, "signed out") {
		t.Errorf("logout output = %q", out)
	}
	if out := mustExecute(t, "", "status"); !strings.Contains(out, "user:        signed out") {
		t.Errorf("status after logout = %q", out)
	}
}
