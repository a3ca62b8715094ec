package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/scoring"
	"SignalForge/internal/usecase"
	"SignalForge/pkg/cache"
	xhttp "SignalForge/pkg/http"
	"SignalForge/pkg/queue"
)

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

type pairDetector struct{}

func (pairDetector) Detect(_ models.Candle, _ models.Indicators, idx int, _ models.SignalConfig, _ models.RegimeAt) ([]models.Signal, error) {
	if idx != 60 {
		return nil, nil
	}
	return []models.Signal{
		{Type: models.SignalRSI, Strength: 60},
		{Type: models.SignalMACD, Strength: 60},
	}, nil
}

type noIndicators struct{}

func (noIndicators) Compute(context.Context, []models.Candle, models.SignalConfig) (models.Indicators, error) {
	return models.Indicators{}, nil
}

type nopQueue struct{ enqueued int }

func (q *nopQueue) RegisterJob(queue.Job)                                {}
func (q *nopQueue) Start() error                                         { return nil }
func (q *nopQueue) Stop(context.Context) error                           { return nil }
func (q *nopQueue) Enqueue(context.Context, string, interface{}) error { q.enqueued++; return nil }

type denyAfter struct{ n int }

func (d *denyAfter) Allow(string) bool {
	d.n--
	return d.n >= 0
}

func candlesJSON(t *testing.T) string {
	t.Helper()
	c := make([]models.Candle, 120)
	for i := range c {
		c[i] = models.Candle{Time: t0.Add(time.Duration(i) * 15 * time.Minute), Open: 100, High: 100.1, Low: 99.9, Close: 100, Volume: 1}
	}
	c[62].High = 103
	raw, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal candles: %v", err)
	}
	return string(raw)
}

func newTestEcho(limiter *denyAfter, q queue.Queue) (*echo.Echo, *cache.MemoryCache) {
	mc := cache.NewMemoryCache()
	opts := []usecase.BacktestOption{usecase.WithResultCache(mc, time.Minute)}
	if q != nil {
		opts = append(opts, usecase.WithJobQueue(q))
	}
	buc := usecase.NewBacktestUseCase(noIndicators{}, nil, pairDetector{}, nil, opts...)
	suc := usecase.NewScoreUseCase(scoring.NewStrengthAggregator(buc.Tracker(), nil), nil, nil)

	e := echo.New()
	var allower interface{ Allow(string) bool }
	if limiter != nil {
		allower = limiter
	}
	NewBacktestHandler(nil, buc, allower).RegisterRoutes(e)
	NewScoreHandler(nil, suc).RegisterRoutes(e)
	return e, mc
}

func do(e *echo.Echo, method, path, body string) (*httptest.ResponseRecorder, xhttp.APIResponse) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	e.ServeHTTP(rec, req)
	var out xhttp.APIResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestBacktestEndpoint(t *testing.T) {
	e, mc := newTestEcho(nil, nil)
	defer mc.Close()

	body := `{"coin":"BTCUSDT","min_combined_strength":100,"min_occurrences":1,"candles":` + candlesJSON(t) + `}`
	rec, _ := do(e, http.MethodPost, "/api/backtest", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var env struct {
		Data models.BacktestResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(env.Data.Matches) != 1 || !env.Data.Matches[0].Successful {
		t.Fatalf("unexpected result %+v", env.Data.Summary)
	}
	if env.Data.Strategies == nil || len(env.Data.Strategies.ProcessedCombinations) != 1 {
		t.Fatalf("expected one ranked strategy, got %+v", env.Data.Strategies)
	}

	rec, _ = do(e, http.MethodGet, "/api/backtest/runs/"+env.Data.RunID, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"phase":"ranked"`) {
		t.Fatalf("sync runs must record their phase, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestBacktestEndpointValidation(t *testing.T) {
	e, mc := newTestEcho(nil, nil)
	defer mc.Close()

	rec, out := do(e, http.MethodPost, "/api/backtest", `{"timeframe":"fortnight","max_signals":1,"required_signals":3}`)
	if rec.Code != http.StatusBadRequest || out.Status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	for _, want := range []string{`"field":"coin"`, "ERR_TIMEFRAME", "ERR_GTEFIELD"} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Fatalf("missing %s in %s", want, rec.Body.String())
		}
	}

	rec, _ = do(e, http.MethodPost, "/api/backtest", `{"coin":"ETHUSDT"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("no candle source must be 404, got %d %s", rec.Code, rec.Body.String())
	}
	rec, _ = do(e, http.MethodGet, "/api/backtest/runs/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown run must be 404, got %d", rec.Code)
	}
	rec, _ = do(e, http.MethodPost, "/api/backtest/jobs", `{"coin":"ETHUSDT"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("jobs without a queue must be 503, got %d", rec.Code)
	}
}

func TestBacktestJobsAndRateLimit(t *testing.T) {
	q := &nopQueue{}
	e, mc := newTestEcho(&denyAfter{n: 1}, q)
	defer mc.Close()

	rec, _ := do(e, http.MethodPost, "/api/backtest/jobs", `{"coin":"BTCUSDT"}`)
	if rec.Code != http.StatusAccepted || q.enqueued != 1 {
		t.Fatalf("expected 202 and one job, got %d %d", rec.Code, q.enqueued)
	}
	loc := rec.Header().Get(echo.HeaderLocation)
	if !strings.HasPrefix(loc, "/api/backtest/runs/") {
		t.Fatalf("missing location header %q", loc)
	}
	rec, _ = do(e, http.MethodGet, loc, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"state":"queued"`) {
		t.Fatalf("expected queued run, got %d %s", rec.Code, rec.Body.String())
	}

	rec, _ = do(e, http.MethodPost, "/api/backtest/jobs", `{"coin":"BTCUSDT"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	rec, _ = do(e, http.MethodGet, loc, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status lookups are not rate limited, got %d", rec.Code)
	}
}

func TestScoreEndpoints(t *testing.T) {
	e, mc := newTestEcho(nil, nil)
	defer mc.Close()

	rec, _ := do(e, http.MethodPost, "/api/score", `{"signals":[{"type":"rsi","strength":70},{"type":"obv","strength":40}],"regime":"uptrend","confidence":0.9}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "total_strength") {
		t.Fatalf("unexpected score response %d %s", rec.Code, rec.Body.String())
	}

	rec, _ = do(e, http.MethodPost, "/api/score", `{"signals":[{"type":"tarot","strength":70}]}`)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "ERR_SIGNAL_TYPE") {
		t.Fatalf("unknown type must be 400, got %d %s", rec.Code, rec.Body.String())
	}

	rec, _ = do(e, http.MethodPost, "/api/score", `{"signals":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty signals must be 400, got %d", rec.Code)
	}

	rec, _ = do(e, http.MethodPost, "/api/score/outcome", `{"signals":[{"type":"rsi","strength":65}],"regime":"ranging","successful":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("outcome: %d %s", rec.Code, rec.Body.String())
	}

	rec, _ = do(e, http.MethodGet, "/api/score/diagnostics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("diagnostics: %d", rec.Code)
	}
}

func TestBacktestEndpointKeepsExplicitZeros(t *testing.T) {
	e, mc := newTestEcho(nil, nil)
	defer mc.Close()

	cases := []struct {
		name    string
		fields  string
		code    int
		matches int
	}{
		{"zero strength keeps every subset", `"required_signals":1,"max_signals":2,"min_combined_strength":0,"min_occurrences":1`, http.StatusOK, 3},
		{"omitted strength uses default", `"required_signals":1,"max_signals":2,"min_occurrences":1`, http.StatusOK, 1},
		{"strength above pair total", `"required_signals":1,"max_signals":2,"min_combined_strength":121,"min_occurrences":1`, http.StatusOK, 0},
		{"zero occurrences rejected", `"min_occurrences":0`, http.StatusBadRequest, 0},
		{"zero required signals rejected", `"required_signals":0`, http.StatusBadRequest, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := `{"coin":"BTCUSDT",` + tc.fields + `,"candles":` + candlesJSON(t) + `}`
			rec, _ := do(e, http.MethodPost, "/api/backtest", body)
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d %s", tc.code, rec.Code, rec.Body.String())
			}
			if tc.code != http.StatusOK {
				if !strings.Contains(rec.Body.String(), "ERR_GTE") {
					t.Fatalf("expected ERR_GTE, got %s", rec.Body.String())
				}
				return
			}
			var env struct {
				Data models.BacktestResult `json:"data"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(env.Data.Matches) != tc.matches {
				t.Fatalf("expected %d matches, got %d", tc.matches, len(env.Data.Matches))
			}
		})
	}
}

func TestScoreEndpointUsesConfidenceLiterally(t *testing.T) {
	e, mc := newTestEcho(nil, nil)
	defer mc.Close()

	total := func(confidence string) float64 {
		t.Helper()
		body := `{"signals":[{"type":"rsi","strength":50}],"regime":"uptrend"` + confidence + `}`
		rec, _ := do(e, http.MethodPost, "/api/score", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("score %q: %d %s", confidence, rec.Code, rec.Body.String())
		}
		var env struct {
			Data models.ScoreResult `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return env.Data.TotalStrength
	}

	zero, low := total(`,"confidence":0`), total(`,"confidence":0.01`)
	omitted, half := total(""), total(`,"confidence":0.5`)
	if zero != low {
		t.Fatalf("confidence 0 must score like 0.01, got %v and %v", zero, low)
	}
	if omitted != half {
		t.Fatalf("omitted confidence must default to 0.5, got %v and %v", omitted, half)
	}
	if zero == half {
		t.Fatalf("explicit zero confidence was replaced by the default: %v", zero)
	}
}
