package cmd

import (
	"fmt"
	"log/slog"
	"os"
)

// asynqLogger routes asynq's printf-style logs through slog.
type asynqLogger struct {
	logger *slog.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.logger.Debug(fmt.Sprint(args...), "component", "asynq") }
func (l asynqLogger) Info(args ...interface{})  { l.logger.Info(fmt.Sprint(args...), "component", "asynq") }
func (l asynqLogger) Warn(args ...interface{})  { l.logger.Warn(fmt.Sprint(args...), "component", "asynq") }
func (l asynqLogger) Error(args ...interface{}) { l.logger.Error(fmt.Sprint(args...), "component", "asynq") }

func (l asynqLogger) Fatal(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...), "component", "asynq")
	os.Exit(1)
}
