package stream

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/papertrail/papertrail/internal/model"
)

func TestLineAppendsNewline(t *testing.T) {
	line, err := Line(model.DoneEvent())
	if err != nil {
		t.Fatalf("Line failed: %v", err)
	}
	if !bytes.HasSuffix(line, []byte("\n")) {
		t.Fatal("line does not end with newline")
	}
	if bytes.Count(line, []byte("\n")) != 1 {
		t.Fatal("line contains embedded newlines")
	}

	var ev struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(line, &ev); err != nil {
		t.Fatalf("line is not valid JSON: %v", err)
	}
	if ev.Type != "done" {
		t.Errorf("type = %q, want done", ev.Type)
	}
}

func TestLineErrorPayload(t *testing.T) {
	line, err := Line(model.ErrorEvent("Unknown or expired jobId"))
	if err != nil {
		t.Fatalf("Line failed: %v", err)
	}
	var ev struct {
		Type    string `json:"type"`
		Payload struct {
			Message string `json:"message"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(line, &ev); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if ev.Type != "error" || ev.Payload.Message != "Unknown or expired jobId" {
		t.Errorf("got %+v", ev)
	}
}
