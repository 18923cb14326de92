package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "debug", want: Debug},
		{in: " INFO ", want: Info},
		{in: "", want: Info},
		{in: "warning", want: Warn},
		{in: "error", want: Error},
		{in: "loud", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("expected error for %q", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("JSON"); err != nil || f != JSON {
		t.Fatalf("unexpected format %v %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Fatalf("expected error for xml")
	}
}

func TestTextLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Warn, Text, &buf)
	l.Info("hidden")
	l.Warn("fisher matrix singular", F("doas", 2))
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line leaked: %s", out)
	}
	if !strings.Contains(out, "fisher matrix singular") || !strings.Contains(out, "doas=2") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestJSONLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Debug, JSON, &buf).With(F("subsystem", "bench"), F("", "skipped"))
	l.Debug("trial done", F("trial", 3))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v (%s)", err, buf.String())
	}
	if payload["msg"] != "trial done" || payload["subsystem"] != "bench" || payload["trial"] != float64(3) {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if _, ok := payload[""]; ok {
		t.Fatalf("empty key should be dropped")
	}
}

func TestDefaultReplacement(t *testing.T) {
	var buf bytes.Buffer
	prev := Default()
	SetDefault(New(Info, Text, &buf))
	defer SetDefault(prev)

	Default().Info("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("default logger not replaced")
	}
	SetDefault(nil)
	Default().Info("again")
	if !strings.Contains(buf.String(), "again") {
		t.Fatalf("nil must not replace the default logger")
	}
}
