package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level, format string
		wantLevel     logrus.Level
		wantJSON      bool
	}{
		{"debug", "json", logrus.DebugLevel, true},
		{"warn", "text", logrus.WarnLevel, false},
		{"nonsense", "", logrus.InfoLevel, false},
	}

	for _, tt := range tests {
		l := New(tt.level, tt.format)
		if l.GetLevel() != tt.wantLevel {
			t.Errorf("New(%q).Level = %v, want %v", tt.level, l.GetLevel(), tt.wantLevel)
		}
		_, isJSON := l.Formatter.(*logrus.JSONFormatter)
		if isJSON != tt.wantJSON {
			t.Errorf("New(_, %q) json formatter = %v", tt.format, isJSON)
		}
	}
}
