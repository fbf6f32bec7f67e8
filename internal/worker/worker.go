package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/netutil"

	"cachebench/internal/loadgen"
	"cachebench/internal/logger"
	"cachebench/internal/protocol"
	"cachebench/internal/topology"
)

// DefaultPort はワーカーの既定待ち受けポート
const DefaultPort = 15000

// State は接続ごとの処理状態
type State int

const (
	StateListening State = iota
	StateReceivingCommand
	StateExecuting
	StateAcknowledging
)

func (s State) String() string {
	switch s {
	case StateListening:
		return "Listening"
	case StateReceivingCommand:
		return "ReceivingCommand"
	case StateExecuting:
		return "Executing"
	case StateAcknowledging:
		return "Acknowledging"
	default:
		return "Unknown"
	}
}

// Config はワーカーの設定（起動時に一度だけ作られ、以後変更されない）
type Config struct {
	Index          int           // トポロジ上の自ホストのインデックス
	ListenAddr     string        // 待ち受けアドレス
	SerializeRuns  bool          // 同一ホストでの外部プロセス実行を直列化する
	MaxConnections int           // 同時接続数の上限（0で無制限）
	ReadTimeout    time.Duration // コマンド行の読み取りタイムアウト（0で無制限）
	Params         loadgen.Params
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		ListenAddr:    ":" + strconv.Itoa(DefaultPort),
		SerializeRuns: true,
		Params:        loadgen.DefaultParams(),
	}
}

// Stats はワーカーの処理統計
type Stats struct {
	Received       uint64 // 受信したコマンド数
	Executed       uint64 // 外部プロセスを実行した数
	Idle           uint64 // 何もしなかったコマンド数
	Acknowledged   uint64 // 確認応答を返した数
	Malformed      uint64 // 不正なコマンド行
	LaunchFailures uint64 // 外部プロセス起動失敗
	NonZeroExits   uint64 // 0以外で終了した外部プロセス
	Active         int64  // 処理中の接続数
}

// Outcome は1コマンドの処理結果
type Outcome struct {
	Role    topology.Role
	Command *loadgen.Command
	Result  loadgen.Result
}

// Server はホストごとのワーカーサービス
type Server struct {
	cfg    Config
	topo   *topology.Topology
	runner loadgen.Runner
	hostID string

	runMu sync.Mutex
	wg    sync.WaitGroup

	received       atomic.Uint64
	executed       atomic.Uint64
	idle           atomic.Uint64
	acknowledged   atomic.Uint64
	malformed      atomic.Uint64
	launchFailures atomic.Uint64
	nonZeroExits   atomic.Uint64
	active         atomic.Int64

	mu      sync.Mutex
	addr    net.Addr
	serving bool
}

// New は新しいワーカーを作成する
func New(cfg Config, topo *topology.Topology, runner loadgen.Runner) (*Server, error) {
	host, err := topo.HostAt(cfg.Index)
	if err != nil {
		return nil, fmt.Errorf("invalid worker index: %w", err)
	}
	if runner == nil {
		return nil, fmt.Errorf("load generator runner must not be nil")
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid load generator params: %w", err)
	}
	return &Server{
		cfg:    cfg,
		topo:   topo,
		runner: runner,
		hostID: host,
	}, nil
}

// HostID はログ用のホスト識別子を返す
func (s *Server) HostID() string {
	return s.hostID
}

// Addr は待ち受け中のアドレスを返す（未起動ならnil）
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// ListenAndServe は設定のアドレスで待ち受けを開始する
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve はリスナーで接続を受け付ける
// ctx がキャンセルされるとリスナーを閉じ、処理中の接続の終了を待ってからnilを返す
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.serving {
		s.mu.Unlock()
		return fmt.Errorf("worker is already serving")
	}
	s.serving = true
	s.addr = ln.Addr()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.serving = false
		s.mu.Unlock()
	}()

	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = ln.Close()
	}()

	logger.Info(s.hostID, "Worker %d listening on %s (state: %s)", s.cfg.Index, ln.Addr(), StateListening)

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				logger.Info(s.hostID, "Worker stopped")
				return nil
			}
			backoff = nextBackoff(backoff)
			logger.Warn(s.hostID, "Couldn't accept connection: %v; retrying in %v", err, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
			}
			continue
		}
		backoff = 0

		s.wg.Add(1)
		go s.handleConn(ctx, conn)
	}
}

// handleConn は1接続につき1コマンドを処理する
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	s.active.Add(1)
	defer s.active.Add(-1)

	// 停止時は読み取り中・実行中の接続も閉じる
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	remote := conn.RemoteAddr().String()
	logger.Debug(s.hostID, "%s: %s", remote, StateReceivingCommand)

	if s.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	}
	req, err := protocol.ReadRequest(bufio.NewReader(conn))
	if err != nil {
		s.malformed.Add(1)
		logger.Warn(s.hostID, "%s: dropping connection: %v", remote, err)
		return
	}
	_ = conn.SetReadDeadline(time.Time{})
	s.received.Add(1)

	logger.Debug(s.hostID, "%s: %s %s", remote, StateExecuting, req)
	if _, err := s.Execute(ctx, req); err != nil {
		// 起動失敗時は確認応答を返さずに切断する
		logger.Error(s.hostID, "%s: %s failed: %v", remote, req, err)
		return
	}
	if ctx.Err() != nil {
		// 停止で中断された実行は完了として扱わない
		logger.Warn(s.hostID, "%s: %s interrupted by shutdown, not acknowledging", remote, req)
		return
	}

	logger.Debug(s.hostID, "%s: %s", remote, StateAcknowledging)
	if err := protocol.WriteAck(conn); err != nil {
		logger.Warn(s.hostID, "%s: %v", remote, err)
		return
	}
	s.acknowledged.Add(1)
}

// nextBackoff はAccept失敗時の待ち時間を5msから1sまで倍々に伸ばす
func nextBackoff(d time.Duration) time.Duration {
	const (
		minBackoff = 5 * time.Millisecond
		maxBackoff = time.Second
	)
	if d == 0 {
		return minBackoff
	}
	return min(d*2, maxBackoff)
}

// Execute は要求に対する自ホストの役割を決め、必要なら外部プロセスを同期実行する
func (s *Server) Execute(ctx context.Context, req protocol.RunRequest) (Outcome, error) {
	role := topology.RoleOf(s.cfg.Index, req.ExperimentSize, s.topo.Size())
	out := Outcome{Role: role}

	var cmd loadgen.Command
	switch role {
	case topology.RoleFillTarget:
		endpoint, err := s.topo.CacheEndpoint(s.cfg.Index)
		if err != nil {
			return out, err
		}
		cmd = loadgen.FillCommand(s.cfg.Params, endpoint)
	case topology.RoleGenerator:
		cmd = loadgen.RunCommand(s.cfg.Params, s.topo.ServerList(req.ExperimentSize))
	default:
		s.idle.Add(1)
		logger.Info(s.hostID, "Idle for %s", req)
		return out, nil
	}
	out.Command = &cmd

	if s.cfg.SerializeRuns {
		s.runMu.Lock()
		defer s.runMu.Unlock()
	}

	logger.Info(s.hostID, "Starting %s as %s: %s", req, role, cmd)
	res, err := s.runner.Run(ctx, cmd)
	if err != nil {
		s.launchFailures.Add(1)
		return out, err
	}
	out.Result = res
	s.executed.Add(1)

	if !res.Success() {
		// 終了コードは解釈しない（記録のみ）
		s.nonZeroExits.Add(1)
		logger.Warn(s.hostID, "%s exited with code %d after %v", cmd.Mode, res.ExitCode, res.Duration)
	} else {
		logger.Info(s.hostID, "%s finished in %v", cmd.Mode, res.Duration)
	}
	return out, nil
}

// Stats は現在の統計を返す
func (s *Server) Stats() Stats {
	return Stats{
		Received:       s.received.Load(),
		Executed:       s.executed.Load(),
		Idle:           s.idle.Load(),
		Acknowledged:   s.acknowledged.Load(),
		Malformed:      s.malformed.Load(),
		LaunchFailures: s.launchFailures.Load(),
		NonZeroExits:   s.nonZeroExits.Load(),
		Active:         s.active.Load(),
	}
}
