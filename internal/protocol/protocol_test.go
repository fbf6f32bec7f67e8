package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestFormatRequest(t *testing.T) {
	tests := []struct {
		size     int
		expected string
	}{
		{SetupSize, "-1\n"},
		{0, "0\n"},
		{4, "4\n"},
		{16, "16\n"},
	}

	for _, tt := range tests {
		if got := string(FormatRequest(RunRequest{ExperimentSize: tt.size})); got != tt.expected {
			t.Errorf("FormatRequest(%d) = %q, want %q", tt.size, got, tt.expected)
		}
	}
}

func TestReadRequest(t *testing.T) {
	tests := []struct {
		input    string
		expected int
		hasError bool
	}{
		{"4\n", 4, false},
		{"-1\n", SetupSize, false},
		{"+8\n", 8, false},
		{"  12 \r\n", 12, false},
		{"0\n", 0, false},
		{"abc\n", 0, true},
		{"\n", 0, true},
		{"-2\n", 0, true},
		{"4", 0, true},
		{"", 0, true},
		{strings.Repeat("1", 64) + "\n", 0, true},
	}

	for _, tt := range tests {
		req, err := ReadRequest(bufio.NewReader(strings.NewReader(tt.input)))
		if tt.hasError {
			if !errors.Is(err, ErrMalformedCommand) {
				t.Errorf("ReadRequest(%q): expected ErrMalformedCommand, got %v", tt.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ReadRequest(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if req.ExperimentSize != tt.expected {
			t.Errorf("ReadRequest(%q) = %d, want %d", tt.input, req.ExperimentSize, tt.expected)
		}
	}
}

func TestReadRequestLeavesRemainder(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("4\n-1\n"))

	first, err := ReadRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := ReadRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first.ExperimentSize != 4 || !second.IsSetup() {
		t.Errorf("unexpected requests: %v, %v", first, second)
	}
}

func TestWriteRequestRejectsInvalid(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRequest(&buf, RunRequest{ExperimentSize: -3}); !errors.Is(err, ErrMalformedCommand) {
		t.Errorf("expected ErrMalformedCommand, got %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("nothing should be written, got %q", buf.String())
	}
}

func TestRunRequestString(t *testing.T) {
	if got := (RunRequest{ExperimentSize: SetupSize}).String(); got != "setup" {
		t.Errorf("expected setup, got %s", got)
	}
	if got := (RunRequest{ExperimentSize: 8}).String(); got != "run(size=8)" {
		t.Errorf("expected run(size=8), got %s", got)
	}
}

func TestAck(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAck(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 1 {
		t.Fatalf("expected exactly one byte, got %d", buf.Len())
	}
	if err := ReadAck(&buf); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestReadAckIgnoresValue(t *testing.T) {
	for _, b := range []byte{0x00, 'x', 0xFF} {
		if err := ReadAck(bytes.NewReader([]byte{b})); err != nil {
			t.Errorf("ReadAck(%#x): unexpected error: %v", b, err)
		}
	}
}

func TestReadAckMissing(t *testing.T) {
	if err := ReadAck(bytes.NewReader(nil)); !errors.Is(err, ErrMissingAck) {
		t.Errorf("expected ErrMissingAck, got %v", err)
	}
}
