package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := &ZapLogger{logger: zap.New(core).Sugar()}

	child := l.With("node", "n-1")
	child.Info("Job dispatched", "jobId", "j-1")
	l.Warn("Plain entry")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("logged %d entries, want 2", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["node"] != "n-1" || fields["jobId"] != "j-1" {
		t.Errorf("child fields = %v, want node and jobId", fields)
	}
	if _, ok := entries[1].ContextMap()["node"]; ok {
		t.Error("parent logger picked up the child's fields")
	}
}
