// Package logging provides structured logging for Mission Core.
//
// It wraps log/slog with default fields (service, robot, version) and
// level filtering. Text output is the default since logs are usually read
// on the robot's console; JSON is available for shipping to a collector.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # text, json
//	  output: "stderr"   # stderr, stdout
//
// Usage:
//
//	logger := logging.New(cfg.Logging, cfg.Robot.ID, version)
//	logger.Component("mission").Info("mission started", "mission", "bottles")
package logging
