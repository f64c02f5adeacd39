package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"strings"
	"testing"

	"verisyntra.org/internal/obs"
)

func TestLogEventIncludesRequestAndBilingualMessage(t *testing.T) {
	var buf bytes.Buffer
	obs.SetOutputForTests(log.New(&buf, "", 0))

	ctx := WithRequestID(context.Background(), "req-9")
	err := LogEvent(ctx, Entry{
		TenantID:   "acme",
		Action:     "activity.update",
		EntityType: "processing_activity",
		EntityID:   "act-1",
		UserID:     "user-3",
		Before:     map[string]any{"status": "active"},
		After:      map[string]any{"status": "inactive"},
		MessageVi:  "Cập nhật hoạt động xử lý",
		MessageEn:  "Processing activity updated",
	})
	if err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &record); err != nil {
		t.Fatalf("decode audit line: %v", err)
	}
	if record["type"] != "audit" || record["request_id"] != "req-9" {
		t.Fatalf("unexpected record: %v", record)
	}
	if record["message_vi"] != "Cập nhật hoạt động xử lý" {
		t.Fatalf("missing Vietnamese message: %v", record)
	}
	if record["before"] == nil || record["after"] == nil {
		t.Fatalf("expected before/after values: %v", record)
	}
}

func TestLogEventRequiresAction(t *testing.T) {
	if err := LogEvent(context.Background(), Entry{TenantID: "acme"}); err == nil {
		t.Fatalf("expected error for missing action")
	}
}
