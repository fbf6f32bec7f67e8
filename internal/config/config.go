package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cachebench/internal/coordinator"
	"cachebench/internal/loadgen"
	"cachebench/internal/logger"
	"cachebench/internal/topology"
	"cachebench/internal/worker"

	"gopkg.in/yaml.v3"
)

// DefaultHosts はベンチマーククラスタの既定ホスト一覧（インデックス順）
var DefaultHosts = []string{
	"10.0.1.27", "10.0.1.28", "10.0.1.29", "10.0.1.30",
	"10.0.1.43", "10.0.1.32", "10.0.1.33", "10.0.1.34",
	"10.0.1.35", "10.0.1.36", "10.0.1.37", "10.0.1.38",
	"10.0.1.39", "10.0.1.40", "10.0.1.41", "10.0.1.42",
}

// FileConfig は設定ファイルの構造
type FileConfig struct {
	Cluster     ClusterConfig     `yaml:"cluster" json:"cluster"`
	Worker      WorkerConfig      `yaml:"worker" json:"worker"`
	Coordinator CoordinatorConfig `yaml:"coordinator" json:"coordinator"`
	LoadGen     LoadGenConfig     `yaml:"loadgen" json:"loadgen"`
	Log         LogConfig         `yaml:"log" json:"log"`
}

// ClusterConfig はクラスタ構成
type ClusterConfig struct {
	Hosts      []string `yaml:"hosts" json:"hosts"`
	WorkerPort int      `yaml:"worker_port" json:"worker_port"`
	CachePort  int      `yaml:"cache_port" json:"cache_port"`
}

// WorkerConfig はワーカー設定
type WorkerConfig struct {
	Listen         string `yaml:"listen" json:"listen"`
	SerializeRuns  *bool  `yaml:"serialize_runs" json:"serialize_runs"`
	MaxConnections int    `yaml:"max_connections" json:"max_connections"`
	ReadTimeout    string `yaml:"read_timeout" json:"read_timeout"`
}

// CoordinatorConfig はコーディネーター設定
type CoordinatorConfig struct {
	DialTimeout string `yaml:"dial_timeout" json:"dial_timeout"`
	AckTimeout  string `yaml:"ack_timeout" json:"ack_timeout"`
}

// LoadGenConfig は負荷生成ツールの設定
type LoadGenConfig struct {
	Binary          string `yaml:"binary" json:"binary"`
	Threads         int    `yaml:"threads" json:"threads"`
	FillConcurrency int    `yaml:"fill_concurrency" json:"fill_concurrency"`
	FillConfig      string `yaml:"fill_config" json:"fill_config"`
	FillOps         int64  `yaml:"fill_ops" json:"fill_ops"`
	RunConfig       string `yaml:"run_config" json:"run_config"`
	RunPayload      int    `yaml:"run_payload" json:"run_payload"`
	RunDuration     string `yaml:"run_duration" json:"run_duration"`
}

// LogConfig はログ設定
type LogConfig struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	File       string `yaml:"file" json:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
}

// Default は設定ファイルがない場合の設定を返す
func Default() *FileConfig {
	hosts := make([]string, len(DefaultHosts))
	copy(hosts, DefaultHosts)
	return &FileConfig{
		Cluster: ClusterConfig{
			Hosts:      hosts,
			WorkerPort: worker.DefaultPort,
			CachePort:  topology.DefaultCachePort,
		},
	}
}

// LoadFile は設定ファイルを読み込む
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	config.Cluster.Hosts = nil
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	// ホスト一覧の省略時は既定クラスタを使う
	if len(config.Cluster.Hosts) == 0 {
		config.Cluster.Hosts = Default().Cluster.Hosts
	}

	return config, nil
}

// Validate は設定を検証する
func (f *FileConfig) Validate() error {
	if len(f.Cluster.Hosts) == 0 {
		return fmt.Errorf("cluster.hosts must not be empty")
	}
	if f.Cluster.WorkerPort < 0 || f.Cluster.WorkerPort > 65535 {
		return fmt.Errorf("cluster.worker_port must be between 0 and 65535")
	}
	if f.Cluster.CachePort < 0 || f.Cluster.CachePort > 65535 {
		return fmt.Errorf("cluster.cache_port must be between 0 and 65535")
	}

	if f.Worker.MaxConnections < 0 {
		return fmt.Errorf("worker.max_connections must be non-negative")
	}

	if f.LoadGen.Threads < 0 {
		return fmt.Errorf("loadgen.threads must be non-negative")
	}
	if f.LoadGen.FillConcurrency < 0 {
		return fmt.Errorf("loadgen.fill_concurrency must be non-negative")
	}
	if f.LoadGen.FillOps < 0 {
		return fmt.Errorf("loadgen.fill_ops must be non-negative")
	}
	if f.LoadGen.RunPayload < 0 {
		return fmt.Errorf("loadgen.run_payload must be non-negative")
	}

	durations := map[string]string{
		"worker.read_timeout":      f.Worker.ReadTimeout,
		"coordinator.dial_timeout": f.Coordinator.DialTimeout,
		"coordinator.ack_timeout":  f.Coordinator.AckTimeout,
		"loadgen.run_duration":     f.LoadGen.RunDuration,
	}
	for name, value := range durations {
		if _, err := parseDuration(name, value); err != nil {
			return err
		}
	}

	if f.Log.Level != "" {
		if _, err := logger.ParseLevel(f.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	switch f.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", f.Log.Format)
	}

	if _, err := f.ToLoadGenParams(); err != nil {
		return fmt.Errorf("loadgen: %w", err)
	}
	if _, err := f.ToTopology(); err != nil {
		return err
	}
	return nil
}

// ToTopology はクラスタ設定からトポロジを作成する
func (f *FileConfig) ToTopology() (*topology.Topology, error) {
	port := f.Cluster.CachePort
	if port == 0 {
		port = topology.DefaultCachePort
	}
	topo, err := topology.New(f.Cluster.Hosts, port)
	if err != nil {
		return nil, fmt.Errorf("invalid cluster: %w", err)
	}
	return topo, nil
}

// ToLoadGenParams はFileConfigをloadgen.Paramsに変換する
func (f *FileConfig) ToLoadGenParams() (loadgen.Params, error) {
	lc := f.LoadGen

	// デフォルト値の設定
	params := loadgen.DefaultParams()

	if lc.Binary != "" {
		params.Binary = lc.Binary
	}
	if lc.Threads > 0 {
		params.Threads = lc.Threads
	}
	if lc.FillConcurrency > 0 {
		params.FillConcurrency = lc.FillConcurrency
	}
	if lc.FillConfig != "" {
		params.FillConfig = lc.FillConfig
	}
	if lc.FillOps > 0 {
		params.FillOps = lc.FillOps
	}
	if lc.RunConfig != "" {
		params.RunConfig = lc.RunConfig
	}
	if lc.RunPayload > 0 {
		params.RunPayload = lc.RunPayload
	}
	if lc.RunDuration != "" {
		d, err := parseDuration("loadgen.run_duration", lc.RunDuration)
		if err != nil {
			return params, err
		}
		params.RunDuration = d
	}

	return params, params.Validate()
}

// ToWorkerConfig はFileConfigをworker.Configに変換する（インデックスは呼び出し側で設定する）
func (f *FileConfig) ToWorkerConfig() (worker.Config, error) {
	wc := f.Worker
	config := worker.DefaultConfig()

	if f.Cluster.WorkerPort > 0 {
		config.ListenAddr = fmt.Sprintf(":%d", f.Cluster.WorkerPort)
	}
	if wc.Listen != "" {
		config.ListenAddr = wc.Listen
	}
	if wc.SerializeRuns != nil {
		config.SerializeRuns = *wc.SerializeRuns
	}
	config.MaxConnections = wc.MaxConnections

	d, err := parseDuration("worker.read_timeout", wc.ReadTimeout)
	if err != nil {
		return config, err
	}
	config.ReadTimeout = d

	params, err := f.ToLoadGenParams()
	if err != nil {
		return config, err
	}
	config.Params = params

	return config, nil
}

// ToCoordinatorConfig はFileConfigをcoordinator.Configに変換する
func (f *FileConfig) ToCoordinatorConfig() (coordinator.Config, error) {
	config := coordinator.DefaultConfig()

	if f.Cluster.WorkerPort > 0 {
		config.WorkerPort = f.Cluster.WorkerPort
	}

	d, err := parseDuration("coordinator.dial_timeout", f.Coordinator.DialTimeout)
	if err != nil {
		return config, err
	}
	config.DialTimeout = d

	d, err = parseDuration("coordinator.ack_timeout", f.Coordinator.AckTimeout)
	if err != nil {
		return config, err
	}
	config.AckTimeout = d

	return config, nil
}

// ToLoggerConfig はFileConfigをlogger.Configに変換する
func (f *FileConfig) ToLoggerConfig() (logger.Config, error) {
	lc := f.Log
	config := logger.Config{
		Level:      logger.LevelInfo,
		Format:     lc.Format,
		File:       lc.File,
		MaxSizeMB:  lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
		MaxAgeDays: lc.MaxAgeDays,
	}
	if lc.Level != "" {
		level, err := logger.ParseLevel(lc.Level)
		if err != nil {
			return config, err
		}
		config.Level = level
	}
	return config, nil
}

// parseDuration は空文字を0として扱う
func parseDuration(name, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must be non-negative", name)
	}
	return d, nil
}
