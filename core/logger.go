package core

import "log"

// Logger is any leveled logging service.
// expected args fmt: error | map[string]interface{} | user value for reporting
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// NopLogger discards everything; meant for tests.
type NopLogger struct{}

var _ Logger = (*NopLogger)(nil)

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(msg string, _ ...interface{}) {
	log.Fatal(msg)
}
