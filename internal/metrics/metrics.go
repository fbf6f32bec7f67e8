package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	// ヒストグラムはマイクロ秒単位で 1µs 〜 24h を記録する
	minTrackable = int64(1)
	maxTrackable = int64(24 * time.Hour / time.Microsecond)
	sigFigs      = 3
)

// Config はメトリクスの設定
type Config struct {
	SignificantFigures int
}

// Metrics はホストごとの完了時間を収集する
type Metrics struct {
	acked  atomic.Uint64
	failed atomic.Uint64

	mu        sync.Mutex
	startTime time.Time
	hist      *hdrhistogram.Histogram
}

// New は新しいメトリクスを作成する
func New() *Metrics {
	return NewWithConfig(Config{SignificantFigures: sigFigs})
}

// NewWithConfig は設定を指定してメトリクスを作成する
func NewWithConfig(config Config) *Metrics {
	figs := config.SignificantFigures
	if figs < 1 || figs > 5 {
		figs = sigFigs
	}
	return &Metrics{
		startTime: time.Now(),
		hist:      hdrhistogram.New(minTrackable, maxTrackable, figs),
	}
}

// RecordAck は確認応答を受信したホストの完了時間を記録する
func (m *Metrics) RecordAck(latency time.Duration) {
	m.acked.Add(1)

	us := latency.Microseconds()
	if us < minTrackable {
		us = minTrackable
	}
	if us > maxTrackable {
		us = maxTrackable
	}

	m.mu.Lock()
	_ = m.hist.RecordValue(us)
	m.mu.Unlock()
}

// RecordFailure は失敗したホストを記録する
func (m *Metrics) RecordFailure() {
	m.failed.Add(1)
}

// Acked は確認応答数を返す
func (m *Metrics) Acked() uint64 {
	return m.acked.Load()
}

// Failed は失敗数を返す
func (m *Metrics) Failed() uint64 {
	return m.failed.Load()
}

// Quantile は指定パーセンタイル（0〜100）の完了時間を返す
func (m *Metrics) Quantile(q float64) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.hist.TotalCount() == 0 {
		return 0
	}
	return time.Duration(m.hist.ValueAtQuantile(q)) * time.Microsecond
}

// Reset はメトリクスをリセットする
func (m *Metrics) Reset() {
	m.acked.Store(0)
	m.failed.Store(0)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.hist.Reset()
	m.startTime = time.Now()
}

// Snapshot はメトリクスのスナップショット
type Snapshot struct {
	Acked   uint64
	Failed  uint64
	Min     time.Duration
	Mean    time.Duration
	P50     time.Duration
	P99     time.Duration
	Max     time.Duration
	Elapsed time.Duration
}

// Spread は最速ホストと最遅ホストの差を返す
func (s Snapshot) Spread() time.Duration {
	return s.Max - s.Min
}

// Snapshot は現在のメトリクスのスナップショットを返す
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		Acked:   m.acked.Load(),
		Failed:  m.failed.Load(),
		Elapsed: time.Since(m.startTime),
	}
	if m.hist.TotalCount() == 0 {
		return snap
	}

	us := time.Microsecond
	snap.Min = time.Duration(m.hist.Min()) * us
	snap.Mean = time.Duration(m.hist.Mean()) * us
	snap.P50 = time.Duration(m.hist.ValueAtQuantile(50)) * us
	snap.P99 = time.Duration(m.hist.ValueAtQuantile(99)) * us
	snap.Max = time.Duration(m.hist.Max()) * us
	return snap
}
