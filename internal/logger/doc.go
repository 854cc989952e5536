// Package logger provides structured logging built on zerolog.
//
// Components obtain a tagged logger through Get:
//
//	log := logger.Get("record")
//	log.Info("recording started", logger.Fields("session_id", id))
package logger
