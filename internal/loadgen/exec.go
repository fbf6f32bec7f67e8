package loadgen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ExecRunner はos/execで外部プロセスを起動するRunner
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
	// HomeDir は "~/" 展開に使う（空ならos.UserHomeDir）
	HomeDir string
}

var _ Runner = (*ExecRunner)(nil)

// Run はコマンドを起動し終了まで待つ
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	home := r.HomeDir
	if home == "" {
		if h, err := os.UserHomeDir(); err == nil {
			home = h
		}
	}

	args := make([]string, len(cmd.Args))
	for i, a := range cmd.Args {
		args[i] = expandHome(a, home)
	}

	c := exec.CommandContext(ctx, expandHome(cmd.Name, home), args...)
	c.Stdout = r.Stdout
	c.Stderr = r.Stderr

	start := time.Now()
	if err := c.Start(); err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("%w: %s: %w", ErrLaunch, cmd.Name, err)
	}

	err := c.Wait()
	result := Result{Duration: time.Since(start)}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		// 終了コードは解釈しない
		result.ExitCode = exitErr.ExitCode()
	default:
		result.ExitCode = -1
	}
	return result, nil
}

func expandHome(s, home string) string {
	if home == "" {
		return s
	}
	if s == "~" {
		return home
	}
	if strings.HasPrefix(s, "~/") {
		return filepath.Join(home, s[2:])
	}
	return s
}
