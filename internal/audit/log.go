package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"verisyntra.org/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// Entry is a single audit record. Every mutation to a tenant-scoped entity
// produces exactly one Entry; the bilingual message is what operators see.
type Entry struct {
	TenantID   string         `json:"tenant_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	UserID     string         `json:"user_id,omitempty"`
	IPAddress  string         `json:"ip_address,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
	Before     map[string]any `json:"before,omitempty"`
	After      map[string]any `json:"after,omitempty"`
	MessageVi  string         `json:"message_vi"`
	MessageEn  string         `json:"message_en,omitempty"`
}

// LogEvent writes an audit log entry enriched with request context.
func LogEvent(ctx context.Context, entry Entry) error {
	if strings.TrimSpace(entry.Action) == "" {
		return errors.New("audit action is required")
	}
	record := map[string]any{
		"ts":          time.Now().UTC().Format(time.RFC3339Nano),
		"type":        "audit",
		"action":      entry.Action,
		"tenant_id":   entry.TenantID,
		"entity_type": entry.EntityType,
		"entity_id":   entry.EntityID,
		"message_vi":  entry.MessageVi,
	}
	if rid := requestIDFromContext(ctx); rid != "" {
		record["request_id"] = rid
	}
	if entry.UserID != "" {
		record["user_id"] = entry.UserID
	}
	if entry.IPAddress != "" {
		record["ip_address"] = entry.IPAddress
	}
	if entry.UserAgent != "" {
		record["user_agent"] = entry.UserAgent
	}
	if entry.MessageEn != "" {
		record["message_en"] = entry.MessageEn
	}
	if len(entry.Before) > 0 {
		record["before"] = entry.Before
	}
	if len(entry.After) > 0 {
		record["after"] = entry.After
	}

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	obs.Logger().Println(string(data))
	return nil
}
