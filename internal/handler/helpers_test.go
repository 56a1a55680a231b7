package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/config"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/model"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/service"
	"github.com/williamdesenvolva/chatwoot-mcp-sub000/internal/tools"
)

// ---------------------------------------------------------------------------
// queryInt tests
// ---------------------------------------------------------------------------

func TestQueryInt(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		key        string
		defaultVal int
		want       int
	}{
		{"returns default for missing param", "/test", "limit", 25, 25},
		{"parses integer param", "/test?limit=100", "limit", 25, 100},
		{"returns default for non-integer", "/test?limit=abc", "limit", 25, 25},
		{"parses zero", "/test?page=0", "page", 10, 0},
		{"parses negative", "/test?page=-5", "page", 0, -5},
		{"returns default for empty value", "/test?limit=", "limit", 25, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.url, nil)
			got := queryInt(r, tt.key, tt.defaultVal)
			if got != tt.want {
				t.Errorf("queryInt(%q, %d) = %d, want %d", tt.key, tt.defaultVal, got, tt.want)
			}
		})
	}
}

func TestQueryString(t *testing.T) {
	r := httptest.NewRequest("GET", "/test?action=%20token.create%20&empty=", nil)
	if got := queryString(r, "action"); got != "token.create" {
		t.Errorf("queryString(action) = %q", got)
	}
	if got := queryString(r, "empty"); got != "" {
		t.Errorf("queryString(empty) = %q", got)
	}
	if got := queryString(r, "missing"); got != "" {
		t.Errorf("queryString(missing) = %q", got)
	}
}

func TestClampInt(t *testing.T) {
	tests := []struct {
		val, min, max, want int
	}{
		{50, 1, 500, 50},
		{0, 1, 500, 1},
		{9000, 1, 500, 500},
		{-3, 1, 500, 1},
	}
	for _, tt := range tests {
		if got := clampInt(tt.val, tt.min, tt.max); got != tt.want {
			t.Errorf("clampInt(%d, %d, %d) = %d, want %d", tt.val, tt.min, tt.max, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// error mapping
// ---------------------------------------------------------------------------

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"not found", fmt.Errorf("get user: %w", config.ErrNotFound), http.StatusNotFound, "user: not found"},
		{"conflict", fmt.Errorf("%w: username taken", config.ErrConflict), http.StatusConflict, ""},
		{"invalid input", fmt.Errorf("%w: name is required", service.ErrInvalidInput), http.StatusBadRequest, ""},
		{"invalid arguments", fmt.Errorf("%w: content is required", tools.ErrInvalidArguments), http.StatusBadRequest, ""},
		{"forbidden", service.ErrForbidden, http.StatusForbidden, "user: forbidden"},
		{"unknown tool", fmt.Errorf("%w: nope", tools.ErrUnknownTool), http.StatusNotFound, ""},
		{"anything else", fmt.Errorf("disk on fire"), http.StatusInternalServerError, "user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := classifyError(tt.err, "user")
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if tt.wantMsg != "" && msg != tt.wantMsg {
				t.Errorf("message = %q, want %q", msg, tt.wantMsg)
			}
			if tt.wantMsg == "" && msg != tt.err.Error() {
				t.Errorf("message = %q, want error text %q", msg, tt.err.Error())
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, http.StatusTooManyRequests, "slow down")

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body model.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "rate_limited" || body.Message != "slow down" {
		t.Errorf("body = %+v", body)
	}
}

// ---------------------------------------------------------------------------
// date parsing
// ---------------------------------------------------------------------------

func TestParseDate(t *testing.T) {
	got, err := parseDate("2024-03-05", false)
	if err != nil || !got.Equal(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start of day = %v, %v", got, err)
	}

	got, err = parseDate("2024-03-05", true)
	if err != nil {
		t.Fatalf("end of day: %v", err)
	}
	if got.Day() != 5 || got.Hour() != 23 || got.Minute() != 59 {
		t.Errorf("end of day = %v", got)
	}

	got, err = parseDate("2024-03-05T10:30:00Z", true)
	if err != nil || got.Hour() != 10 {
		t.Errorf("RFC 3339 = %v, %v", got, err)
	}

	if got, err := parseDate("", false); got != nil || err != nil {
		t.Errorf("empty = %v, %v", got, err)
	}
	if _, err := parseDate("last tuesday", false); err == nil {
		t.Error("expected an error for free text")
	}
}
