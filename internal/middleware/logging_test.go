package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/postboard/internal/model"
)

// mockStatusRecorder はStatusRecorderのモック。
type mockStatusRecorder struct {
	statuses []int
}

var _ StatusRecorder = (*mockStatusRecorder)(nil)

func (m *mockStatusRecorder) RecordHTTPStatus(statusCode int) {
	m.statuses = append(m.statuses, statusCode)
}

func newJSONLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func decodeLogEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\nraw: %s", err, buf.String())
	}
	return entry
}

// TestLoggingMiddleware_LogsRequestFields はリクエストログに必要なフィールドが含まれることを検証する。
func TestLoggingMiddleware_LogsRequestFields(t *testing.T) {
	var buf bytes.Buffer

	handler := NewLoggingMiddleware(newJSONLogger(&buf), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/posts", nil))

	entry := decodeLogEntry(t, &buf)
	if entry["msg"] != "http_request" {
		t.Errorf("msg = %q, want %q", entry["msg"], "http_request")
	}
	if entry["method"] != "GET" {
		t.Errorf("method = %q, want %q", entry["method"], "GET")
	}
	if entry["path"] != "/api/posts" {
		t.Errorf("path = %q, want %q", entry["path"], "/api/posts")
	}
	if status, ok := entry["status"].(float64); !ok || status != 200 {
		t.Errorf("status = %v, want 200", entry["status"])
	}
	if d, ok := entry["duration_ms"].(float64); !ok || d < 0 {
		t.Errorf("duration_ms = %v, want >= 0", entry["duration_ms"])
	}
}

// TestLoggingMiddleware_IncludesIdentityID はIdentityMiddlewareが読み出したIDがログに含まれることを検証する。
func TestLoggingMiddleware_IncludesIdentityID(t *testing.T) {
	var buf bytes.Buffer
	provider := &mockProvider{storage: storedIdentity(t, model.Identity{ID: 7, Name: "Kurtis Weissnat", Email: "Telly.Hoeger@billy.biz"})}

	inner := NewIdentityMiddleware(provider, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	handler := NewLoggingMiddleware(newJSONLogger(&buf), nil)(inner)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/posts", nil))

	entry := decodeLogEntry(t, &buf)
	if id, ok := entry["identity_id"].(float64); !ok || id != 7 {
		t.Errorf("identity_id = %v, want 7", entry["identity_id"])
	}
}

// TestLoggingMiddleware_NoIdentity_OmitsField は未ログインではidentity_idを出力しないことを検証する。
func TestLoggingMiddleware_NoIdentity_OmitsField(t *testing.T) {
	var buf bytes.Buffer

	handler := NewLoggingMiddleware(newJSONLogger(&buf), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	entry := decodeLogEntry(t, &buf)
	if _, ok := entry["identity_id"]; ok {
		t.Errorf("identity_id should be omitted, got %v", entry["identity_id"])
	}
}

// TestLoggingMiddleware_StatusAndLevel はステータスコードとログレベルの対応を検証する。
func TestLoggingMiddleware_StatusAndLevel(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		level      string
	}{
		{"200 OK", http.StatusOK, "INFO"},
		{"202 Accepted", http.StatusAccepted, "INFO"},
		{"401 Unauthorized", http.StatusUnauthorized, "WARN"},
		{"403 Forbidden", http.StatusForbidden, "WARN"},
		{"503 Service Unavailable", http.StatusServiceUnavailable, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			recorder := &mockStatusRecorder{}

			handler := NewLoggingMiddleware(newJSONLogger(&buf), recorder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

			entry := decodeLogEntry(t, &buf)
			if status := int(entry["status"].(float64)); status != tt.statusCode {
				t.Errorf("status = %d, want %d", status, tt.statusCode)
			}
			if entry["level"] != tt.level {
				t.Errorf("level = %q, want %q", entry["level"], tt.level)
			}
			if len(recorder.statuses) != 1 || recorder.statuses[0] != tt.statusCode {
				t.Errorf("recorded statuses = %v, want [%d]", recorder.statuses, tt.statusCode)
			}
		})
	}
}

// TestLoggingMiddleware_BodyWriteCapture はWriteHeaderなしの書き込みで200が記録されることを検証する。
func TestLoggingMiddleware_BodyWriteCapture(t *testing.T) {
	var buf bytes.Buffer

	handler := NewLoggingMiddleware(newJSONLogger(&buf), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	entry := decodeLogEntry(t, &buf)
	if status := int(entry["status"].(float64)); status != 200 {
		t.Errorf("status = %d, want 200", status)
	}
}
