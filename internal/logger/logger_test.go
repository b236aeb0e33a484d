package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewJSONCarriesServiceField(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "json")
	log.Info().Str("exam_id", "e1").Msg("attempt started")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if line["service"] != ServiceName {
		t.Errorf("service = %v, want %s", line["service"], ServiceName)
	}
	if line["exam_id"] != "e1" {
		t.Errorf("exam_id = %v, want e1", line["exam_id"])
	}
	if line["message"] != "attempt started" {
		t.Errorf("message = %v", line["message"])
	}
}

func TestNewPrettyIsNotJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "pretty")
	log.Info().Msg("hello")

	if json.Valid(buf.Bytes()) {
		t.Errorf("pretty output unexpectedly valid JSON: %s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("hello")) {
		t.Errorf("pretty output missing message: %s", buf.String())
	}
}
