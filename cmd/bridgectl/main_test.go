package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"orderbridge/internal/model"
	"orderbridge/internal/remote"
)

func TestBuildBatch(t *testing.T) {
	batch, err := buildBatch("update_available_shipping_rates", "1001", `{"rate_id":"r-1"}`)
	if err != nil {
		t.Fatalf("buildBatch: %v", err)
	}
	if len(batch.Directives) != 1 {
		t.Fatalf("directives = %d, want 1", len(batch.Directives))
	}
	d := batch.Directives[0]
	if d.Directive != "update_available_shipping_rates" {
		t.Errorf("Directive = %q", d.Directive)
	}
	if d.OrderID() != "1001" {
		t.Errorf("OrderID = %q, want 1001", d.OrderID())
	}
	if model.ArgString(d.Args, "rate_id") != "r-1" {
		t.Errorf("rate_id = %v", d.Args["rate_id"])
	}
	if !strings.HasPrefix(d.ID, "cli-") {
		t.Errorf("ID = %q, want cli- prefix", d.ID)
	}
}

func TestBuildBatchNoArgs(t *testing.T) {
	batch, err := buildBatch("health_check", "", "")
	if err != nil {
		t.Fatalf("buildBatch: %v", err)
	}
	if batch.Directives[0].Args != nil {
		t.Errorf("Args = %v, want nil", batch.Directives[0].Args)
	}
}

func TestBuildBatchInvalidArgs(t *testing.T) {
	if _, err := buildBatch("health_check", "", "{not json"); err == nil {
		t.Error("expected error for invalid -args")
	}
}

func TestLoadBatch(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "batch.json")
	os.WriteFile(good, []byte(`{"directives":[{"id":"1","directive":"health_check"}]}`), 0o600)
	batch, err := loadBatch(good)
	if err != nil {
		t.Fatalf("loadBatch: %v", err)
	}
	if batch.Directives[0].Directive != "health_check" {
		t.Errorf("Directive = %q", batch.Directives[0].Directive)
	}

	empty := filepath.Join(dir, "empty.json")
	os.WriteFile(empty, []byte(`{"directives":[]}`), 0o600)
	if _, err := loadBatch(empty); err == nil {
		t.Error("expected error for empty batch")
	}

	if _, err := loadBatch(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestStatusKind(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{model.StatusOK, "ok"},
		{model.StatusExists, "ok"},
		{model.StatusFuture, "pending"},
		{model.StatusFailed, "error"},
		{model.StatusError, "error"},
		{"Order not found", "error"},
	}
	for _, tt := range tests {
		if got := statusKind(tt.status); got != tt.want {
			t.Errorf("statusKind(%q) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestProtocolError(t *testing.T) {
	got := protocolError([]byte(`{"error":{"code":"Error-102","message":"missing bearer token"}}`))
	if got != "Error-102 missing bearer token" {
		t.Errorf("protocolError = %q", got)
	}
	if got := protocolError([]byte("plain failure\n")); got != "plain failure" {
		t.Errorf("protocolError = %q", got)
	}
}

func TestOperationName(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"query HealthCheck { healthCheck }", "HealthCheck"},
		{"\n  mutation CompleteOrder($id: ID!) { x }", "CompleteOrder"},
		{"{ healthCheck }", "anonymous"},
	}
	for _, tt := range tests {
		if got := operationName(tt.query); got != tt.want {
			t.Errorf("operationName(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestLoadFixtures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.json")
	os.WriteFile(path, []byte(`{"OrderLineItems":{"order":{"lineItems":[]}}}`), 0o600)

	fixtures, err := loadFixtures(path)
	if err != nil {
		t.Fatalf("loadFixtures: %v", err)
	}
	if _, ok := fixtures["HealthCheck"]; !ok {
		t.Error("default HealthCheck fixture missing")
	}
	if _, ok := fixtures["OrderLineItems"]; !ok {
		t.Error("file fixture missing")
	}
	if _, ok := defaultFixtures["OrderLineItems"]; ok {
		t.Error("loadFixtures mutated defaultFixtures")
	}
}

func TestPartnerHandler(t *testing.T) {
	quiet = true
	t.Cleanup(func() { quiet = false })

	h := partnerHandler("pk_test", "sk_test", defaultFixtures)
	body, _ := json.Marshal(remote.Request{Query: "query HealthCheck { healthCheck }"})

	tests := []struct {
		name       string
		kid        string
		secret     string
		ts         time.Time
		wantStatus int
	}{
		{"valid", "pk_test", "sk_test", time.Now(), http.StatusOK},
		{"unknown kid", "pk_other", "sk_test", time.Now(), http.StatusUnauthorized},
		{"bad mac", "pk_test", "sk_wrong", time.Now(), http.StatusUnauthorized},
		{"stale", "pk_test", "sk_test", time.Now().Add(-time.Hour), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := remote.SignatureValue(tt.kid, tt.secret, body, tt.ts)
			if err != nil {
				t.Fatalf("SignatureValue: %v", err)
			}
			req := httptest.NewRequest("POST", "/graphql", bytes.NewReader(body))
			req.Header.Set(remote.SignatureHeader, sig)
			w := httptest.NewRecorder()

			h.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus == http.StatusOK && !strings.Contains(w.Body.String(), `"healthCheck":"ok"`) {
				t.Errorf("body = %s", w.Body.String())
			}
		})
	}
}

func TestPartnerHandlerMissingSignature(t *testing.T) {
	h := partnerHandler("pk_test", "sk_test", defaultFixtures)
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(`{"query":"query HealthCheck { healthCheck }"}`))
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
