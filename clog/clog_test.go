package clog

import (
	"sync"
	"testing"
)

type recordingProvider struct {
	mu   sync.Mutex
	logs []string
}

func (r *recordingProvider) Critical(format string, v ...interface{}) { r.record("C", format) }
func (r *recordingProvider) Error(format string, v ...interface{})    { r.record("E", format) }
func (r *recordingProvider) Warn(format string, v ...interface{})     { r.record("W", format) }
func (r *recordingProvider) Debug(format string, v ...interface{})    { r.record("D", format) }

func (r *recordingProvider) record(level, format string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, level+":"+format)
}

func TestLogGateDisabledByDefault(t *testing.T) {
	l := NewLogger("test")
	rp := &recordingProvider{}
	l.SetLogProvider(rp)
	l.Debug("should not appear")
	if len(rp.logs) != 0 {
		t.Fatalf("expected no logs before LogMode(true), got %v", rp.logs)
	}
}

func TestLogModeEnablesProvider(t *testing.T) {
	l := NewLogger("test")
	rp := &recordingProvider{}
	l.SetLogProvider(rp)
	l.LogMode(true)
	l.Warn("hello %d", 1)
	if len(rp.logs) != 1 || rp.logs[0] != "W:hello %d" {
		t.Fatalf("unexpected logs: %v", rp.logs)
	}
}

func TestLogModeDisableStopsOutput(t *testing.T) {
	l := NewLogger("test")
	rp := &recordingProvider{}
	l.SetLogProvider(rp)
	l.LogMode(true)
	l.LogMode(false)
	l.Error("nope")
	if len(rp.logs) != 0 {
		t.Fatalf("expected no logs after disabling, got %v", rp.logs)
	}
}

func TestSetLogProviderIgnoresNil(t *testing.T) {
	l := NewLogger("test")
	l.SetLogProvider(nil)
	l.LogMode(true)
	l.Debug("uses default logrus provider, should not panic")
}
