package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestReady(t *testing.T) {
	tests := []struct {
		name     string
		redisErr error
		status   int
	}{
		{"all ok", nil, http.StatusOK},
		{"redis down", errors.New("connection refused"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New("socialcredit-api", "test")
			h.AddCheck("database", PingFunc(func(ctx context.Context) error { return nil }))
			h.AddCheck("redis", PingFunc(func(ctx context.Context) error { return tt.redisErr }))

			rec := httptest.NewRecorder()
			h.Ready(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ready", nil))

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}

			var body struct {
				Data ReadyResponse `json:"data"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if got := len(body.Data.Checks); got != 3 {
				t.Fatalf("checks = %d, want api, database and redis", got)
			}
			if got := body.Data.Checks[2]; got.Name != "redis" || (got.Status == "ok") != (tt.redisErr == nil) {
				t.Errorf("redis check = %+v", got)
			}
		})
	}
}

func TestStatusDegradedWhenDatabaseFails(t *testing.T) {
	h := New("socialcredit-api", "test")
	h.AddCheck("database", PingFunc(func(ctx context.Context) error { return errors.New("locked") }))

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	var body struct {
		Data StatusResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body.Data.Status != "degraded" || body.Data.Checks.Database != "error" {
		t.Errorf("status = %+v", body.Data)
	}
}
