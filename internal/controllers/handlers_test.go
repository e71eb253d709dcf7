package controllers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"xenocpu/internal/config"
	"xenocpu/internal/controllers"
	"xenocpu/internal/middleware"
	"xenocpu/internal/models"
	"xenocpu/internal/routes"
	"xenocpu/internal/services"
	"xenocpu/internal/telemetry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubProvider implements services.SystemInfoProvider with fixed readings.
type stubProvider struct{}

func (stubProvider) BrandString() (string, error) { return "  Test CPU @ 3.20GHz", nil }
func (stubProvider) LogicalThreads() (int, error) { return 8, nil }
func (stubProvider) NominalMHz() (int, error)     { return 3200, nil }
func (stubProvider) SampleLoad(context.Context) (float64, error) {
	return 12.5, nil
}
func (stubProvider) SampleFrequencyRatio(context.Context) (float64, error) {
	return 100, nil
}

type testServer struct {
	handlers *controllers.Handlers
	router   *gin.Engine
	auth     *services.AuthService
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.Auth.SecretKey = strings.Repeat("s", 40)
	cfg.Stress.BufferElements = 64
	cfg.Stress.PauseInterval = 5 * time.Millisecond
	cfg.Stress.DefaultThreads = 2
	cfg.Benchmark = config.BenchmarkConfig{
		SingleCoreLimit:  2000,
		MultiCoreLimit:   5000,
		WarmupIterations: 10,
		DefaultRuns:      2,
	}
	cfg.Server.RateLimit = 1000
	cfg.Server.RateBurst = 1000
	if mutate != nil {
		mutate(&cfg)
	}

	log := zap.NewNop().Sugar()
	metrics := telemetry.New()

	stress := services.NewStressController(cfg.Stress, log, metrics)
	t.Cleanup(func() { stress.Stop() })

	hardware := services.NewHardwareInspector(stubProvider{}, cfg.Hardware, metrics, log)
	history := services.NewHistoryCollector(cfg.History, hardware, log)
	runner := services.NewBenchmarkRunner(cfg.Benchmark, nil, log)
	auth := services.NewAuthService(cfg.Auth, log)

	h := controllers.NewHandlers(&controllers.Handlers{
		Stress:     stress,
		Benchmarks: services.NewBenchmarkService(runner, history, metrics, log),
		Hardware:   hardware,
		History:    history,
		Auth:       auth,
		Security:   middleware.NewSecurityLogger(log),
		Config:     cfg,
		Log:        log,
	})
	h.Hub = services.NewWebSocketHub(time.Hour, h.Stats, metrics, log)
	h.Hub.Start()
	t.Cleanup(h.Hub.Stop)

	return &testServer{handlers: h, router: routes.NewRouter(h, metrics), auth: auth}
}

func (ts *testServer) do(t *testing.T, method, path, body string, header ...string) (int, map[string]interface{}) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var out map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func TestStressEndpoints_Lifecycle(t *testing.T) {
	ts := newTestServer(t, nil)

	code, body := ts.do(t, http.MethodPost, "/stress/start", `{"threads":3}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])

	code, body = ts.do(t, http.MethodPost, "/stress/start", `{"threads":3}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, false, body["success"])

	code, body = ts.do(t, http.MethodGet, "/stress/status", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["running"])
	assert.Equal(t, float64(3), body["thread_count"])

	code, body = ts.do(t, http.MethodPost, "/stress/toggle", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["paused"])

	code, _ = ts.do(t, http.MethodPost, "/stress/resume", "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = ts.do(t, http.MethodPost, "/stress/stop", "")
	assert.Equal(t, http.StatusOK, code)

	code, body = ts.do(t, http.MethodPost, "/stress/stop", "")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Stress test not running", body["message"])

	code, _ = ts.do(t, http.MethodPost, "/stress/pause", "")
	assert.Equal(t, http.StatusConflict, code)
}

func TestStartStress_DefaultsAndValidation(t *testing.T) {
	ts := newTestServer(t, nil)

	code, _ := ts.do(t, http.MethodPost, "/stress/start", `{"threads":0}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.do(t, http.MethodPost, "/stress/start", `not json`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.do(t, http.MethodPost, "/stress/start", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, ts.handlers.Stress.ActiveThreadCount())
}

func TestControlRoutes_RequireToken(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.Auth.RequireToken = true })

	code, _ := ts.do(t, http.MethodPost, "/stress/start", "")
	assert.Equal(t, http.StatusUnauthorized, code)

	// status stays readable
	code, _ = ts.do(t, http.MethodGet, "/stress/status", "")
	assert.Equal(t, http.StatusOK, code)

	token, err := ts.auth.GenerateToken("tester")
	require.NoError(t, err)
	code, _ = ts.do(t, http.MethodPost, "/stress/start", "", "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, code)
}

func TestBenchmarkEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	code, body := ts.do(t, http.MethodPost, "/benchmark/single", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, string(models.BenchmarkSingleCore), body["kind"])
	assert.Greater(t, body["score"], 0.0)
	assert.Equal(t, float64(5), body["runs"])

	code, body = ts.do(t, http.MethodPost, "/benchmark/multi", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, string(models.BenchmarkMultiCore), body["kind"])

	code, body = ts.do(t, http.MethodPost, "/benchmark/multi?runs=20", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, string(models.BenchmarkMultiCoreProgress), body["kind"])
	assert.Equal(t, float64(10), body["runs"])

	code, _ = ts.do(t, http.MethodPost, "/benchmark/multi?runs=abc", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = ts.do(t, http.MethodGet, "/history?metric=benchmark&duration=1h", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["data"], 3)
}

func TestHardwareEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	code, body := ts.do(t, http.MethodGet, "/hardware/metrics", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["is_valid"])
	assert.Equal(t, 12.5, body["cpu_load"])
	assert.Equal(t, float64(3200), body["cpu_freq_mhz"])
	assert.Nil(t, body["temp_c"])

	code, body = ts.do(t, http.MethodGet, "/hardware/cpu", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Test CPU @ 3.20GHz", body["name"])
	assert.Equal(t, float64(4), body["cores"])
	assert.Equal(t, float64(8), body["threads"])
	assert.Equal(t, float64(3200), body["max_clock_mhz"])
	assert.Equal(t, 3.2, body["max_clock_ghz"])

	_, body = ts.do(t, http.MethodGet, "/hardware/cpu?capacity=4", "")
	assert.Equal(t, "Test", body["name"])

	code, _ = ts.do(t, http.MethodGet, "/hardware/cpu?capacity=x", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = ts.do(t, http.MethodGet, "/hardware/snapshot", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "hardware")
	assert.Contains(t, body, "stress")
}

func TestHistoryEndpoint_Validation(t *testing.T) {
	ts := newTestServer(t, nil)

	code, _ := ts.do(t, http.MethodGet, "/history?metric=disk", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.do(t, http.MethodGet, "/history?duration=forever", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := ts.do(t, http.MethodGet, "/history/all?duration=5m", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "data")
}

func TestPrometheusEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(t, http.MethodGet, "/hardware/metrics", "")

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "xenocpu_cpu_load_percent 12.5")
}

func TestDispatch_Commands(t *testing.T) {
	ts := newTestServer(t, nil)
	h := ts.handlers
	ctx := context.Background()

	data, err := h.Dispatch(ctx, "startStress", json.RawMessage(`{"numProcesses":3,"threads":7}`))
	require.NoError(t, err)
	encoded, err := json.Marshal(data)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"message":"Stress test started"}`, string(encoded))
	assert.Equal(t, 3, h.Stress.ActiveThreadCount())

	data, err = h.Dispatch(ctx, "getStressStatus", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, data.(models.StressStatus).ThreadCount)

	_, err = h.Dispatch(ctx, "togglePauseResume", nil)
	require.NoError(t, err)
	assert.True(t, h.Stress.Status().Paused)

	_, err = h.Dispatch(ctx, "stopStress", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, h.Stress.ActiveThreadCount())

	data, err = h.Dispatch(ctx, "getCpuInfo", json.RawMessage(`{"capacity":4}`))
	require.NoError(t, err)
	assert.Equal(t, "Test", data.(models.CPUIdentity).ModelName)

	data, err = h.Dispatch(ctx, "getHardwareMetrics", nil)
	require.NoError(t, err)
	assert.True(t, data.(models.SystemSnapshot).Hardware.IsValid)

	data, err = h.Dispatch(ctx, "runMultiCoreBenchmark", json.RawMessage(`{"numRuns":2}`))
	require.NoError(t, err)
	assert.Equal(t, 2, data.(models.BenchmarkResult).Runs)

	_, err = h.Dispatch(ctx, "getAppDir", nil)
	assert.Error(t, err)

	_, err = h.Dispatch(ctx, "startStress", json.RawMessage(`{"threads":"many"}`))
	assert.Error(t, err)
}

func TestDispatch_StartStressDefaultThreads(t *testing.T) {
	ts := newTestServer(t, nil)
	_, err := ts.handlers.Dispatch(context.Background(), "startStress", json.RawMessage(`null`))
	require.NoError(t, err)
	assert.Equal(t, 2, ts.handlers.Stress.ActiveThreadCount())
}

func TestWebSocket_CommandReplyAndProgress(t *testing.T) {
	ts := newTestServer(t, nil)
	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(models.WebSocketMessage{
		Type: "command",
		ID:   "42",
		Cmd:  "runMultiCoreBenchmark",
		Args: json.RawMessage(`{"numRuns":3}`),
	}))

	var progress []float64
	gotReply := false
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	// the reply may overtake the last progress event, so read until both arrived
	for !gotReply || len(progress) < 3 {
		var msg struct {
			Type    string                 `json:"type"`
			ID      string                 `json:"id"`
			ReplyTo string                 `json:"reply_to"`
			Data    map[string]interface{} `json:"data"`
			Error   string                 `json:"error"`
		}
		require.NoError(t, conn.ReadJSON(&msg))

		if msg.Type == services.MessageBenchmarkProgress {
			progress = append(progress, msg.Data["current_run"].(float64))
			assert.Equal(t, float64(3), msg.Data["total_runs"])
			continue
		}
		if msg.Type != services.MessageReply {
			continue
		}

		assert.Equal(t, "42", msg.ID)
		assert.Equal(t, "runMultiCoreBenchmark", msg.ReplyTo)
		assert.Empty(t, msg.Error)
		assert.Equal(t, true, msg.Data["success"])
		gotReply = true
	}

	assert.Equal(t, []float64{1, 2, 3}, progress)
}

func TestWebSocket_RequiresTokenWhenConfigured(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.Auth.RequireToken = true })
	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := ts.auth.GenerateToken("tester")
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	require.NoError(t, err)
	conn.Close()
}
