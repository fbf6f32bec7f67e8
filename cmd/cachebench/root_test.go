package main

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cachebench/internal/coordinator"
	"cachebench/internal/logger"
	"cachebench/internal/protocol"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { logger.SetDefault(logger.New(os.Stdout, logger.LevelInfo)) })

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cachebench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestTopologyCommandSetup(t *testing.T) {
	out, err := execute(t, "topology")
	require.NoError(t, err)

	assert.Contains(t, out, "Phase: setup, cluster size: 16")
	assert.Contains(t, out, "10.0.1.27")
	assert.Contains(t, out, "FillTarget")
	assert.Contains(t, out, "Idle")
}

func TestTopologyCommandExperiment(t *testing.T) {
	cfg := writeConfig(t, "cluster:\n  hosts: [a, b, c, d]\n")
	out, err := execute(t, "--config", cfg, "topology", "4")
	require.NoError(t, err)

	assert.Contains(t, out, "Servers: a:11211,b:11211")
	assert.Contains(t, out, "Generator")
}

func TestCommandArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"coordinator without size", []string{"coordinator"}},
		{"coordinator with two sizes", []string{"coordinator", "4", "8"}},
		{"coordinator non numeric", []string{"coordinator", "many"}},
		{"coordinator negative", []string{"coordinator", "-3"}},
		{"setup with args", []string{"setup", "4"}},
		{"topology non numeric", []string{"topology", "x"}},
		{"missing config", []string{"--config", "/nonexistent/cachebench.yaml", "topology"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestCoordinatorSmallExperimentContactsNobody(t *testing.T) {
	cfg := writeConfig(t, "cluster:\n  hosts: [192.0.2.1, 192.0.2.2]\ncoordinator:\n  dial_timeout: 100ms\n")
	out, err := execute(t, "--config", cfg, "coordinator", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "no hosts contacted")
}

func TestSetupAgainstLocalWorker(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	lines := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, _ := bufio.NewReader(conn).ReadString('\n')
		lines <- line
		_ = protocol.WriteAck(conn)
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	cfg := writeConfig(t, fmt.Sprintf("cluster:\n  hosts: [127.0.0.1, 127.0.0.2]\n  worker_port: %d\n", port))

	out, err := execute(t, "--config", cfg, "setup")
	require.NoError(t, err)
	assert.Equal(t, "-1\n", <-lines)
	assert.Contains(t, out, "COMPLETE")
}

func TestCoordinatorReportsUnreachableHost(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	cfg := writeConfig(t, fmt.Sprintf("cluster:\n  hosts: [127.0.0.2, 127.0.0.1]\n  worker_port: %d\n", port))

	_, err = execute(t, "--config", cfg, "coordinator", "2")
	require.Error(t, err)

	he, ok := coordinator.FailedHost(err)
	require.True(t, ok)
	assert.Equal(t, 1, he.Index)
	assert.Equal(t, coordinator.KindConnection, he.Kind)
}
