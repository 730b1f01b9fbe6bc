// Package logger provides structured logging for demandflow using zerolog.
//
// Stages, executors and the status server log through component-scoped
// loggers. Per-connection events carry the stage name and the subscription
// id so that a single stream can be followed across hops.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("pipeline").WithStage("windowed", subID)
//	log.Debug("subscription canceled")
package logger
