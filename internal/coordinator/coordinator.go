package coordinator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"cachebench/internal/events"
	"cachebench/internal/logger"
	"cachebench/internal/metrics"
	"cachebench/internal/protocol"
	"cachebench/internal/topology"
)

// DefaultWorkerPort はワーカーの既定ポート
const DefaultWorkerPort = 15000

// Kind はホスト障害の種類
type Kind int

const (
	KindConnection Kind = iota // 接続・送信に失敗
	KindProtocol               // 確認応答を受信できなかった
	KindAborted                // 他ホストの障害または呼び出し元のキャンセルで中断
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindProtocol:
		return "protocol"
	case KindAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// HostError はフェーズを失敗させたホストを示す
type HostError struct {
	Index int
	Addr  string
	Kind  Kind
	Err   error
}

func (e *HostError) Error() string {
	return fmt.Sprintf("host %d (%s): %s error: %v", e.Index, e.Addr, e.Kind, e.Err)
}

func (e *HostError) Unwrap() error {
	return e.Err
}

// Config はコーディネーターの設定
type Config struct {
	WorkerPort  int
	DialTimeout time.Duration // 0で無制限
	AckTimeout  time.Duration // 0で無制限（確認応答を無期限に待つ）
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		WorkerPort: DefaultWorkerPort,
	}
}

// Dialer は接続を確立する
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Coordinator はフェーズごとに対象ワーカーへ指示を送り、全員の完了を待つ
type Coordinator struct {
	cfg      Config
	topo     *topology.Topology
	dialer   Dialer
	eventBus *events.Bus

	mu      sync.Mutex
	running bool
}

// New は新しいCoordinatorを作成する
func New(cfg Config, topo *topology.Topology) *Coordinator {
	if cfg.WorkerPort <= 0 {
		cfg.WorkerPort = DefaultWorkerPort
	}
	return &Coordinator{
		cfg:    cfg,
		topo:   topo,
		dialer: &net.Dialer{Timeout: cfg.DialTimeout},
	}
}

// SetEventBus はイベントバスを設定する
func (c *Coordinator) SetEventBus(bus *events.Bus) {
	c.eventBus = bus
}

// SetDialer はダイヤラーを差し替える
func (c *Coordinator) SetDialer(d Dialer) {
	c.dialer = d
}

// WorkerAddr はワーカーのアドレスを返す
func (c *Coordinator) WorkerAddr(index int) (string, error) {
	host, err := c.topo.HostAt(index)
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(host, strconv.Itoa(c.cfg.WorkerPort)), nil
}

// RunSetup はフィル対象の全ホストに -1 を送り、全員の確認応答を待つ
func (c *Coordinator) RunSetup(ctx context.Context) (*Report, error) {
	return c.Run(ctx, protocol.RunRequest{ExperimentSize: protocol.SetupSize})
}

// RunExperiment は負荷生成ホストに実験サイズを送り、全員の確認応答を待つ
func (c *Coordinator) RunExperiment(ctx context.Context, experimentSize int) (*Report, error) {
	if experimentSize < 0 {
		return nil, fmt.Errorf("experiment size must be non-negative, got %d", experimentSize)
	}
	return c.Run(ctx, protocol.RunRequest{ExperimentSize: experimentSize})
}

// Run は要求を対象ホストへ並行に送り、全ホストの確認応答を待つ（完全バリア）
// いずれかのホストが失敗した時点で残りの接続を閉じ、そのホストを示すHostErrorを返す
func (c *Coordinator) Run(ctx context.Context, req protocol.RunRequest) (*Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil, fmt.Errorf("a phase is already running")
	}
	c.running = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	targets := c.topo.Targets(req.ExperimentSize)
	report := newReport(uuid.New().String(), req, targets.Len())

	if targets.Len() == 0 {
		logger.Info("", "Phase %s has no target hosts, nothing to do", req)
		report.finish(metrics.New())
		return report, nil
	}

	logger.Info("", "Phase %s (%s): contacting %d hosts %v", req, report.PhaseID, targets.Len(), targets)
	c.eventBus.Publish(events.NewPhaseStartEvent(report.PhaseID, req.ExperimentSize, targets.Len()))

	m := metrics.New()
	g, gctx := errgroup.WithContext(ctx)

	for i, idx := range targets.Indices() {
		g.Go(func() error {
			res := c.contact(gctx, report.PhaseID, idx, req)
			report.Hosts[i] = res
			if res.Err != nil {
				m.RecordFailure()
				return res.Err
			}
			m.RecordAck(res.Elapsed)
			return nil
		})
	}

	err := g.Wait()
	report.finish(m)

	if err != nil {
		report.Err = err
		logger.Error("", "Phase %s aborted: %v", req, err)
		c.eventBus.Publish(events.NewPhaseAbortedEvent(report.PhaseID, req.ExperimentSize, err))
		return report, err
	}

	logger.Info("", "Phase %s complete: %d/%d hosts acknowledged in %v",
		req, report.Acked(), targets.Len(), report.Elapsed.Round(time.Millisecond))
	c.eventBus.Publish(events.NewPhaseCompleteEvent(report.PhaseID, req.ExperimentSize, targets.Len(), report.Elapsed))
	return report, nil
}

// contact は1ホストに接続し、要求を送り、確認応答1バイトを待つ
func (c *Coordinator) contact(ctx context.Context, phaseID string, index int, req protocol.RunRequest) HostResult {
	res := HostResult{Index: index}

	addr, err := c.WorkerAddr(index)
	if err != nil {
		res.Err = &HostError{Index: index, Kind: KindConnection, Err: err}
		return res
	}
	res.Addr = addr

	fail := func(kind Kind, err error) HostResult {
		if ctx.Err() != nil {
			kind, err = KindAborted, ctx.Err()
		}
		res.Err = &HostError{Index: index, Addr: addr, Kind: kind, Err: err}
		c.eventBus.Publish(events.NewHostFailedEvent(phaseID, index, addr, res.Err))
		if kind != KindAborted {
			logger.Error(addr, "%v", res.Err)
		}
		return res
	}

	start := time.Now()
	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fail(KindConnection, err)
	}
	defer conn.Close()

	// 中断時は接続を閉じて読み取りを解除する
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	if err := protocol.WriteRequest(conn, req); err != nil {
		return fail(KindConnection, err)
	}
	logger.Debug(addr, "Sent %s", req)
	c.eventBus.Publish(events.NewHostDispatchedEvent(phaseID, index, addr))

	if c.cfg.AckTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(c.cfg.AckTimeout))
	}
	if err := protocol.ReadAck(conn); err != nil {
		return fail(KindProtocol, err)
	}

	res.Elapsed = time.Since(start)
	res.Acked = true
	logger.Info(addr, "Acknowledged after %v", res.Elapsed.Round(time.Millisecond))
	c.eventBus.Publish(events.NewHostAckedEvent(phaseID, index, addr, res.Elapsed))
	return res
}

// FailedHost はエラーからフェーズを失敗させたホストを取り出す
func FailedHost(err error) (*HostError, bool) {
	var he *HostError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}
