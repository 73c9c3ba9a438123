package logx

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewTagsService(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	lg := New(Config{Service: "school-ops-agent"}, &buf)
	lg.Info().Msg("hello")

	line := buf.String()
	if !strings.Contains(line, `"service":"school-ops-agent"`) {
		t.Fatalf("log line missing service tag: %s", line)
	}
	if !strings.Contains(line, `"message":"hello"`) {
		t.Fatalf("log line missing message: %s", line)
	}
}

func TestNewDebugLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	lg := New(Config{}, &buf)
	lg.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug suppressed at info level, got: %s", buf.String())
	}

	lg = New(Config{Debug: true}, &buf)
	lg.Debug().Msg("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("debug line not emitted: %s", buf.String())
	}
}
