package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func captureLogs(t *testing.T) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLoggingRecordsUsage(t *testing.T) {
	logger, buf := captureLogs(t)
	mock := NewMockProvider(MockResponse{
		Content: json.RawMessage(`{}`),
		Usage:   Usage{InputTokens: 12, OutputTokens: 34},
	})
	p := WithLogging(mock, ProviderMock, logger)

	ctx := WithPurpose(context.Background(), "question-gen")
	if _, err := p.Generate(ctx, Request{System: "sys", Messages: []Message{{Role: RoleUser, Content: "hi"}}}); err != nil {
		t.Fatal(err)
	}

	lines := logLines(t, buf)
	if len(lines) != 2 {
		t.Fatalf("got %d log lines", len(lines))
	}
	info := lines[0]
	if info["msg"] != "llm request" || info["purpose"] != "question-gen" || info["provider"] != "mock" {
		t.Errorf("info = %v", info)
	}
	if info["input_tokens"] != float64(12) || info["output_tokens"] != float64(34) {
		t.Errorf("tokens = %v / %v", info["input_tokens"], info["output_tokens"])
	}
	body, _ := lines[1]["body"].(string)
	if !strings.Contains(body, "[system]\nsys") || !strings.Contains(body, "[user]\nhi") {
		t.Errorf("debug body = %q", body)
	}
}

func TestLoggingWarnsOnError(t *testing.T) {
	logger, buf := captureLogs(t)
	p := WithLogging(NewMockProvider(MockResponse{Err: errors.New("boom")}), ProviderMock, logger)

	if _, err := p.Generate(context.Background(), Request{}); err == nil {
		t.Fatal("expected error to pass through")
	}
	first := logLines(t, buf)[0]
	if first["level"] != "WARN" || first["error"] != "boom" {
		t.Errorf("log = %v", first)
	}
}
