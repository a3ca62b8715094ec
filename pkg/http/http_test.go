package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"
)

type echoReq struct {
	Coin      string  `json:"coin" validate:"required"`
	Timeframe string  `json:"timeframe" default:"15m" validate:"timeframe"`
	Target    float64 `json:"target" default:"2" validate:"gt=0"`
}

type routes struct{}

func (routes) RegisterRoutes(e *echo.Echo) {
	e.POST("/echo", func(c echo.Context) error {
		req := &echoReq{}
		if verr := ReadAndValidateRequest(c, req); verr != nil {
			return BadRequestResponse(c, verr)
		}
		if req.Coin == "missing" {
			return AppErrorResponse(c, NotFoundErrorf("coin %s", req.Coin))
		}
		return SuccessResponse(c, req)
	})
}

func post(t *testing.T, s *Server, body string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	s.Echo().ServeHTTP(rec, req)
	var out APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return rec, out
}

func TestServerValidationAndDefaults(t *testing.T) {
	s := NewServer(nil, []Handler{routes{}}, WithMetricsPath(""))

	rec, out := post(t, s, `{"coin":"BTCUSDT"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	data := out.Data.(map[string]interface{})
	if data["timeframe"] != "15m" || data["target"] != 2.0 {
		t.Fatalf("defaults not applied: %v", data)
	}

	rec, _ = post(t, s, `{"coin":"BTCUSDT","target":0}`)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "ERR_GT") {
		t.Fatalf("explicit zero must reach validation, got %d %s", rec.Code, rec.Body.String())
	}

	rec, out = post(t, s, `{"timeframe":"soon"}`)
	if rec.Code != http.StatusBadRequest || out.Status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"field":"coin"`) || !strings.Contains(body, "ERR_TIMEFRAME") {
		t.Fatalf("unexpected validation body %s", body)
	}

	rec, _ = post(t, s, `{"coin":"missing"}`)
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "ERR_NOT_FOUND") {
		t.Fatalf("expected 404 app error, got %d %s", rec.Code, rec.Body.String())
	}

	rec, _ = post(t, s, `{"coin":`)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "ERR_BIND") {
		t.Fatalf("expected bind error, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestServerHealth(t *testing.T) {
	s := NewServer(nil, nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}

func TestServerReadiness(t *testing.T) {
	ready := true
	s := NewServer(nil, nil, WithMetricsPath(""), WithReadinessCheck("clickhouse", func(context.Context) error {
		if ready {
			return nil
		}
		return errors.New("connection refused")
	}))

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ready"`) {
		t.Fatalf("unexpected readiness response %d %s", rec.Code, rec.Body.String())
	}

	ready = false
	rec = httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "clickhouse not ready") {
		t.Fatalf("expected 503, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestClientStatusError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("json body must set content type")
		}
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewClient().SendAndParse(context.Background(), &RequestOptions{
		Method: MethodPost,
		URL:    srv.URL,
		Body:   map[string]int{"n": 1},
	}, nil)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusTooManyRequests || !se.Temporary() || se.Body != "slow down" {
		t.Fatalf("unexpected error %v", err)
	}
}
