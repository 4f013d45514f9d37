package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level   string
		dev     bool
		enabled zapcore.Level
		wantErr bool
	}{
		{"", false, zapcore.InfoLevel, false},
		{"debug", true, zapcore.DebugLevel, false},
		{"warn", false, zapcore.WarnLevel, false},
		{"chatty", false, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := New(tt.level, tt.dev)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !logger.Core().Enabled(tt.enabled) {
				t.Errorf("expected %s enabled", tt.enabled)
			}
			if tt.enabled > zapcore.DebugLevel && logger.Core().Enabled(tt.enabled-1) {
				t.Errorf("expected %s disabled", tt.enabled-1)
			}
		})
	}
}
