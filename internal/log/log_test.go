package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	prevLevel := GetLevel()
	t.Cleanup(func() {
		SetOutput(prev)
		SetLevel(prevLevel)
	})

	SetLevel(LevelInfo)
	Debug("hidden %d", 1)
	Info("querying %s", "registry")
	Warn("failed %s", "left-pad")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message emitted at info level: %q", out)
	}
	if !strings.Contains(out, "querying registry\n") {
		t.Errorf("missing info line: %q", out)
	}
	if !strings.Contains(out, "[WARN] failed left-pad") {
		t.Errorf("missing warn line: %q", out)
	}

	buf.Reset()
	SetLevel(LevelDebug)
	Debug("shown %d", 2)
	if !strings.Contains(buf.String(), "[DEBUG] shown 2") {
		t.Errorf("missing debug line: %q", buf.String())
	}

	buf.Reset()
	SetLevel(LevelError + 4)
	Error("always")
	if !strings.Contains(buf.String(), "[ERROR] always") {
		t.Errorf("error line suppressed: %q", buf.String())
	}
}
