package loadgen

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestFillCommand(t *testing.T) {
	cmd := FillCommand(DefaultParams(), "10.0.1.27:11211")

	expected := []string{
		"-s", "10.0.1.27:11211",
		"-T", "16",
		"-c", "160",
		"-F", "~/memcached-scripts/memaslap.fill.cnf",
		"-x", "250000000",
	}
	if cmd.Name != "memaslap" {
		t.Errorf("expected memaslap, got %s", cmd.Name)
	}
	if cmd.Mode != ModeFill {
		t.Errorf("expected fill mode, got %s", cmd.Mode)
	}
	if !reflect.DeepEqual(cmd.Args, expected) {
		t.Errorf("unexpected args:\n got %v\nwant %v", cmd.Args, expected)
	}
}

func TestRunCommand(t *testing.T) {
	cmd := RunCommand(DefaultParams(), "A:11211,B:11211")

	expected := []string{
		"-s", "A:11211,B:11211",
		"-T", "16",
		"-F", "~/memcached-scripts/memaslap.run.cnf",
		"-d", "1024",
		"-t", "30s",
	}
	if cmd.Mode != ModeRun {
		t.Errorf("expected run mode, got %s", cmd.Mode)
	}
	if !reflect.DeepEqual(cmd.Args, expected) {
		t.Errorf("unexpected args:\n got %v\nwant %v", cmd.Args, expected)
	}
	if !strings.HasPrefix(cmd.String(), "memaslap -s A:11211,B:11211") {
		t.Errorf("unexpected command string: %s", cmd.String())
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		input    time.Duration
		expected string
	}{
		{30 * time.Second, "30s"},
		{90 * time.Second, "90s"},
		{2 * time.Minute, "2m"},
		{time.Hour, "1h"},
		{1500 * time.Millisecond, "2s"},
		{100 * time.Millisecond, "1s"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.input); got != tt.expected {
			t.Errorf("formatDuration(%v) = %s, want %s", tt.input, got, tt.expected)
		}
	}
}

func TestParamsValidate(t *testing.T) {
	if err := DefaultParams().Validate(); err != nil {
		t.Errorf("default params should be valid: %v", err)
	}

	mutations := map[string]func(*Params){
		"binary":      func(p *Params) { p.Binary = "" },
		"threads":     func(p *Params) { p.Threads = 0 },
		"concurrency": func(p *Params) { p.FillConcurrency = -1 },
		"ops":         func(p *Params) { p.FillOps = 0 },
		"payload":     func(p *Params) { p.RunPayload = 0 },
		"duration":    func(p *Params) { p.RunDuration = 0 },
	}
	for name, mutate := range mutations {
		p := DefaultParams()
		mutate(&p)
		if err := p.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestExpandHome(t *testing.T) {
	tests := []struct {
		input, home, expected string
	}{
		{"~/a.cnf", "/home/bench", "/home/bench/a.cnf"},
		{"~", "/home/bench", "/home/bench"},
		{"/etc/a.cnf", "/home/bench", "/etc/a.cnf"},
		{"~/a.cnf", "", "~/a.cnf"},
		{"A:11211", "/home/bench", "A:11211"},
	}

	for _, tt := range tests {
		if got := expandHome(tt.input, tt.home); got != tt.expected {
			t.Errorf("expandHome(%q, %q) = %q, want %q", tt.input, tt.home, got, tt.expected)
		}
	}
}

func TestExecRunnerExitCodeNotAnError(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	var stdout bytes.Buffer
	r := &ExecRunner{Stdout: &stdout, HomeDir: "/home/bench"}

	res, err := r.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", `echo "$0"; exit 3`, "~/x"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", res.ExitCode)
	}
	if res.Success() {
		t.Error("expected Success() to be false")
	}
	if got := strings.TrimSpace(stdout.String()); got != "/home/bench/x" {
		t.Errorf("expected expanded argument, got %q", got)
	}
}

func TestExecRunnerLaunchFailure(t *testing.T) {
	r := &ExecRunner{}

	_, err := r.Run(context.Background(), Command{Name: "/nonexistent/memaslap"})
	if !errors.Is(err, ErrLaunch) {
		t.Errorf("expected ErrLaunch, got %v", err)
	}
}

func TestRunnerFunc(t *testing.T) {
	var got Command
	r := RunnerFunc(func(_ context.Context, cmd Command) (Result, error) {
		got = cmd
		return Result{ExitCode: 0}, nil
	})

	res, err := r.Run(context.Background(), FillCommand(DefaultParams(), "A:11211"))
	if err != nil || !res.Success() {
		t.Fatalf("unexpected result: %v, %v", res, err)
	}
	if got.Mode != ModeFill {
		t.Errorf("expected fill command to reach runner, got %s", got.Mode)
	}
}
