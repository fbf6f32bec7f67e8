// Package loadgen builds and runs invocations of the external cache load
// generator (a memaslap-compatible binary).
//
// The generator is a black box with two fixed modes:
//
//	fill: -s <endpoint> -T <threads> -c <concurrency> -F <fill config> -x <ops>
//	run:  -s <s1,s2,...> -T <threads> -F <run config> -d <payload> -t <duration>
//
// Its exit status is reported but never interpreted as a benchmark failure.
// Only a failure to start the process (ErrLaunch) is an error.
package loadgen

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrLaunch は外部プロセスを起動できなかった場合のエラー
var ErrLaunch = errors.New("failed to launch load generator")

// Mode は負荷生成ツールの実行モード
type Mode int

const (
	ModeFill Mode = iota
	ModeRun
)

func (m Mode) String() string {
	switch m {
	case ModeFill:
		return "fill"
	case ModeRun:
		return "run"
	default:
		return "unknown"
	}
}

// Params は負荷生成ツールの固定パラメータ
type Params struct {
	Binary  string // 実行ファイル
	Threads int    // -T

	FillConcurrency int    // -c
	FillConfig      string // -F（フィル）
	FillOps         int64  // -x

	RunConfig   string        // -F（実行）
	RunPayload  int           // -d
	RunDuration time.Duration // -t
}

// DefaultParams はデフォルトパラメータを返す
func DefaultParams() Params {
	return Params{
		Binary:          "memaslap",
		Threads:         16,
		FillConcurrency: 160,
		FillConfig:      "~/memcached-scripts/memaslap.fill.cnf",
		FillOps:         250000000,
		RunConfig:       "~/memcached-scripts/memaslap.run.cnf",
		RunPayload:      1024,
		RunDuration:     30 * time.Second,
	}
}

// Validate はパラメータを検証する
func (p Params) Validate() error {
	if p.Binary == "" {
		return fmt.Errorf("load generator binary must be set")
	}
	if p.Threads <= 0 {
		return fmt.Errorf("threads must be positive")
	}
	if p.FillConcurrency <= 0 {
		return fmt.Errorf("fill concurrency must be positive")
	}
	if p.FillOps <= 0 {
		return fmt.Errorf("fill op count must be positive")
	}
	if p.RunPayload <= 0 {
		return fmt.Errorf("run payload must be positive")
	}
	if p.RunDuration <= 0 {
		return fmt.Errorf("run duration must be positive")
	}
	return nil
}

// Command は1回分の外部プロセス起動内容
type Command struct {
	Mode Mode
	Name string
	Args []string
}

func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// FillCommand は自ホストのキャッシュを埋めるコマンドを作成する
func FillCommand(p Params, endpoint string) Command {
	return Command{
		Mode: ModeFill,
		Name: p.Binary,
		Args: []string{
			"-s", endpoint,
			"-T", strconv.Itoa(p.Threads),
			"-c", strconv.Itoa(p.FillConcurrency),
			"-F", p.FillConfig,
			"-x", strconv.FormatInt(p.FillOps, 10),
		},
	}
}

// RunCommand は複数サーバーに対する計測実行コマンドを作成する
func RunCommand(p Params, servers string) Command {
	return Command{
		Mode: ModeRun,
		Name: p.Binary,
		Args: []string{
			"-s", servers,
			"-T", strconv.Itoa(p.Threads),
			"-F", p.RunConfig,
			"-d", strconv.Itoa(p.RunPayload),
			"-t", formatDuration(p.RunDuration),
		},
	}
}

// formatDuration はツールが受け付ける "30s" / "5m" 形式に変換する
func formatDuration(d time.Duration) string {
	secs := int64(d.Round(time.Second) / time.Second)
	if secs <= 0 {
		secs = 1
	}
	if secs%3600 == 0 {
		return strconv.FormatInt(secs/3600, 10) + "h"
	}
	if secs%60 == 0 {
		return strconv.FormatInt(secs/60, 10) + "m"
	}
	return strconv.FormatInt(secs, 10) + "s"
}

// Result は外部プロセスの終了結果
type Result struct {
	ExitCode int
	Duration time.Duration
}

// Success は終了コードが0かを返す
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner は外部プロセスを同期実行する
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// RunnerFunc は関数をRunnerとして扱うアダプタ
type RunnerFunc func(ctx context.Context, cmd Command) (Result, error)

// Run はfを呼び出す
func (f RunnerFunc) Run(ctx context.Context, cmd Command) (Result, error) {
	return f(ctx, cmd)
}
