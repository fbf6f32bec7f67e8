package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cachebench/internal/config"
	"cachebench/internal/logger"
)

var version = "dev"

// options はサブコマンド間で共有するグローバル設定
type options struct {
	cfgFile string
	debug   bool

	cfg *config.FileConfig
	log *logger.Logger
}

// newRootCmd はルートコマンドを作成する
func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "cachebench",
		Short: "Distributed cache benchmark orchestration",
		Long: `cachebench drives memaslap-style load generators across a fixed cluster.

Every cluster host runs "cachebench worker". A single "cachebench coordinator"
then tells the right hosts to fill their caches or to generate load, and
returns only after every contacted worker has finished.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd.OutOrStdout())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.log != nil {
				_ = opts.log.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file path (YAML/JSON)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		newWorkerCmd(opts),
		newCoordinatorCmd(opts),
		newSetupCmd(opts),
		newTopologyCmd(opts),
	)
	return root
}

// load は設定ファイルを読み込み、ロガーを初期化する
func (o *options) load(out io.Writer) error {
	cfg := config.Default()
	if o.cfgFile != "" {
		fileConfig, err := config.LoadFile(o.cfgFile)
		if err != nil {
			return err
		}
		cfg = fileConfig
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	o.cfg = cfg

	logConfig, err := cfg.ToLoggerConfig()
	if err != nil {
		return err
	}
	if o.debug {
		logConfig.Level = logger.LevelDebug
	}
	o.log = logger.NewFromConfig(out, logConfig)
	logger.SetDefault(o.log)
	return nil
}

// signalContext はSIGINT/SIGTERMでキャンセルされるコンテキストを返す
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			logger.Warn("", "Received %s, shutting down", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// Execute はルートコマンドを実行する
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
