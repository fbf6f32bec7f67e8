// Package logger provides a simple, thread-safe logging facility on top of zap.
//
// The logger supports four levels: Debug, Info, Warn, and Error.
// Each log entry includes a timestamp, level, optional host ID, and message.
//
// # Basic Usage
//
// Using the default logger:
//
//	logger.Info("", "Coordinator started")
//	logger.Info("10.0.1.27", "Fill complete")
//	logger.Error("10.0.1.28", "Dial failed: %v", err)
//
// Creating a custom logger:
//
//	l := logger.New(os.Stderr, logger.LevelDebug)
//	l.Debug("10.0.1.27", "Debug message")
//
// Writing to a rotating file as well as the console:
//
//	l := logger.NewFromConfig(os.Stdout, logger.Config{
//	    Level:     logger.LevelInfo,
//	    File:      "/var/log/cachebench.log",
//	    MaxSizeMB: 100,
//	})
//	defer l.Close()
//	logger.SetDefault(l)
//
// # Log Levels
//
// Messages below the configured level are filtered:
//   - LevelDebug: all messages
//   - LevelInfo: Info, Warn, Error
//   - LevelWarn: Warn, Error
//   - LevelError: Error only
//
// # Thread Safety
//
// All logging operations are safe for concurrent use.
package logger
