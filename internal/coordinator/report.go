package coordinator

import (
	"fmt"
	"strings"
	"time"

	"cachebench/internal/metrics"
	"cachebench/internal/protocol"
)

// HostResult は1ホスト分の結果
type HostResult struct {
	Index   int
	Addr    string
	Acked   bool
	Elapsed time.Duration // 接続開始から確認応答までの時間
	Err     error
}

// Report は1フェーズの実行結果
type Report struct {
	PhaseID        string
	Phase          string
	ExperimentSize int
	StartTime      time.Time
	EndTime        time.Time
	Elapsed        time.Duration
	Hosts          []HostResult // 対象ホスト順
	Latency        metrics.Snapshot
	Err            error
}

func newReport(phaseID string, req protocol.RunRequest, targets int) *Report {
	return &Report{
		PhaseID:        phaseID,
		Phase:          req.String(),
		ExperimentSize: req.ExperimentSize,
		StartTime:      time.Now(),
		Hosts:          make([]HostResult, targets),
	}
}

func (r *Report) finish(m *metrics.Metrics) {
	r.EndTime = time.Now()
	r.Elapsed = r.EndTime.Sub(r.StartTime)
	r.Latency = m.Snapshot()
}

// Contacted は対象ホストのインデックスを返す
func (r *Report) Contacted() []int {
	indices := make([]int, len(r.Hosts))
	for i, h := range r.Hosts {
		indices[i] = h.Index
	}
	return indices
}

// Acked は確認応答を返したホスト数を返す
func (r *Report) Acked() int {
	n := 0
	for _, h := range r.Hosts {
		if h.Acked {
			n++
		}
	}
	return n
}

// Success はフェーズが全ホストの確認応答で完了したかを返す
func (r *Report) Success() bool {
	return r.Err == nil && r.Acked() == len(r.Hosts)
}

// String はレポートを整形して返す
func (r *Report) String() string {
	status := "COMPLETE"
	if !r.Success() {
		status = "ABORTED"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `
================================================================================
                         PHASE REPORT: %s
================================================================================

EXECUTION SUMMARY
-----------------
  Phase ID:       %s
  Status:         %s
  Start Time:     %s
  End Time:       %s
  Duration:       %v

ACKNOWLEDGEMENTS
----------------
  Contacted:      %d
  Acknowledged:   %d
  Fastest:        %v
  Slowest:        %v
  Spread:         %v

HOSTS
-----
`,
		r.Phase,
		r.PhaseID,
		status,
		r.StartTime.Format("2006-01-02 15:04:05"),
		r.EndTime.Format("2006-01-02 15:04:05"),
		r.Elapsed.Round(time.Millisecond),
		len(r.Hosts),
		r.Acked(),
		r.Latency.Min.Round(time.Millisecond),
		r.Latency.Max.Round(time.Millisecond),
		r.Latency.Spread().Round(time.Millisecond),
	)

	if len(r.Hosts) == 0 {
		b.WriteString("  (no hosts contacted)\n")
	}
	for _, h := range r.Hosts {
		switch {
		case h.Acked:
			fmt.Fprintf(&b, "  [%2d] %-22s acked in %v\n", h.Index, h.Addr, h.Elapsed.Round(time.Millisecond))
		case h.Err != nil:
			fmt.Fprintf(&b, "  [%2d] %-22s %v\n", h.Index, h.Addr, h.Err)
		default:
			fmt.Fprintf(&b, "  [%2d] %-22s pending\n", h.Index, h.Addr)
		}
	}

	if r.Err != nil {
		fmt.Fprintf(&b, "\n  Error: %v\n", r.Err)
	}
	b.WriteString("\n================================================================================")
	return b.String()
}
