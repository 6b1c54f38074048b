package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/curvewatch/curvewatch/internal/config"
	"github.com/curvewatch/curvewatch/internal/dataset"
	"github.com/curvewatch/curvewatch/internal/provider"
	"github.com/curvewatch/curvewatch/internal/releases"
	"github.com/curvewatch/curvewatch/pkg/utils"
)

// ---- test helpers ----

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	tmp := t.TempDir()
	return &config.Config{
		Data: config.DataConfig{
			RawDir:       filepath.Join(tmp, "raw"),
			ProcessedDir: filepath.Join(tmp, "processed"),
			SampleDir:    filepath.Join(tmp, "sample"),
			ReadmePath:   filepath.Join(tmp, "README.md"),
		},
		Fetch: config.FetchConfig{
			StartDate:   "2020-01-01",
			Concurrency: 2,
		},
		Series: config.DefaultSeries(),
		Viz: config.VizConfig{
			OutDir:      filepath.Join(tmp, "figures"),
			OnePagerDir: filepath.Join(tmp, "one_pager"),
			Formats:     []string{"svg"},
			VolWindow:   20,
			Width:       800,
			Height:      400,
		},
	}
}

func testServer(t *testing.T) *Server {
	t.Helper()
	srv := NewServer(testConfig(t), provider.NewRegistry(), nil)
	go srv.wsHub.Run()
	return srv
}

// seedDataset writes a processed table with yields, slopes and the
// spread to the server's processed dir.
func seedDataset(t *testing.T, srv *Server) *dataset.Frame {
	t.Helper()

	bases := map[string]float64{
		"US_3M": 5.3, "US_2Y": 4.6, "US_5Y": 4.2, "US_10Y": 4.1, "US_30Y": 4.2,
		"CA_3M": 5.1, "CA_2Y": 4.2, "CA_5Y": 3.7, "CA_10Y": 3.6, "CA_30Y": 3.7,
		"USDCAD": 1.36,
	}

	f := dataset.NewFrame()
	f.Dates = utils.BusinessDaysEnding(time.Now(), 120)
	for _, spec := range srv.cfg.Series {
		base := bases[spec.Name]
		col := make([]float64, len(f.Dates))
		for i := range col {
			col[i] = base + 0.1*math.Sin(float64(i)/15)
		}
		f.AddColumn(spec.Name, col)
	}
	f.ComputeSlopes(dataset.TenorMapping(srv.cfg.TenorMapping()))
	f.ComputeSpread("US_10Y", "CA_10Y")

	if _, err := f.Save(srv.cfg.Data.ProcessedDir); err != nil {
		t.Fatalf("seed dataset: %v", err)
	}
	return f
}

func doGet(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

// dataMap asserts the response data is a JSON object.
func dataMap(t *testing.T, resp APIResponse) map[string]any {
	t.Helper()
	m, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("data is %T, want object", resp.Data)
	}
	return m
}

// ---- envelope tests ----

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, APIResponse{Success: true, Data: "x"})

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	resp := decodeResponse(t, rec)
	if !resp.Success || resp.Data != "x" {
		t.Errorf("response = %+v", resp)
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, http.StatusBadRequest, "bad input")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Success || resp.Error != "bad input" {
		t.Errorf("response = %+v", resp)
	}
}

// ---- handler tests ----

func TestHandleHealth(t *testing.T) {
	srv := testServer(t)

	rec := doGet(t, srv, "/api/v1/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := dataMap(t, decodeResponse(t, rec))
	if data["status"] != "ok" {
		t.Errorf("status field = %v", data["status"])
	}
	if _, ok := data["rows"]; ok {
		t.Error("rows reported without a dataset")
	}

	seedDataset(t, srv)
	data = dataMap(t, decodeResponse(t, doGet(t, srv, "/health")))
	if data["rows"] != float64(120) {
		t.Errorf("rows = %v, want 120", data["rows"])
	}
}

func TestHandleDatasetMissing(t *testing.T) {
	srv := testServer(t)
	rec := doGet(t, srv, "/api/v1/dataset")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleDataset(t *testing.T) {
	srv := testServer(t)
	f := seedDataset(t, srv)

	rec := doGet(t, srv, "/api/v1/dataset")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	data := dataMap(t, decodeResponse(t, rec))
	rows := data["rows"].([]any)
	if len(rows) != f.Len() {
		t.Errorf("rows = %d, want %d", len(rows), f.Len())
	}

	// Date bounds narrow the result.
	start := utils.FormatDate(f.Dates[100])
	rec = doGet(t, srv, "/api/v1/dataset?start="+start)
	data = dataMap(t, decodeResponse(t, rec))
	if got := len(data["rows"].([]any)); got != 20 {
		t.Errorf("bounded rows = %d, want 20", got)
	}

	rec = doGet(t, srv, "/api/v1/dataset?start=not-a-date")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad start: status = %d, want 400", rec.Code)
	}
}

func TestHandleCurve(t *testing.T) {
	srv := testServer(t)
	f := seedDataset(t, srv)

	rec := doGet(t, srv, "/api/v1/curve")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	data := dataMap(t, decodeResponse(t, rec))
	if data["date"] != utils.FormatDate(f.LastDate()) {
		t.Errorf("date = %v", data["date"])
	}
	points := data["points"].([]any)
	if len(points) != 10 {
		t.Errorf("points = %d, want 10 (both curves)", len(points))
	}
	// Tenors come back as the short labels the providers use.
	tenors := make(map[string]bool)
	for _, p := range points {
		pt := p.(map[string]any)
		tenor, ok := pt["tenor"].(string)
		if !ok {
			t.Fatalf("tenor is %T, want string label", pt["tenor"])
		}
		tenors[pt["country"].(string)+"_"+tenor] = true
	}
	for _, want := range []string{"US_3M", "US_10Y", "CA_30Y"} {
		if !tenors[want] {
			t.Errorf("missing curve point %s in %v", want, tenors)
		}
	}

	// A mid-week historic date resolves to that row.
	target := utils.FormatDate(f.Dates[50])
	rec = doGet(t, srv, "/api/v1/curve?date="+target)
	data = dataMap(t, decodeResponse(t, rec))
	if data["date"] != target {
		t.Errorf("historic date = %v, want %s", data["date"], target)
	}

	rec = doGet(t, srv, "/api/v1/curve?date=garbage")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad date: status = %d, want 400", rec.Code)
	}
}

func TestHandleSlopes(t *testing.T) {
	srv := testServer(t)
	seedDataset(t, srv)

	rec := doGet(t, srv, "/api/v1/slopes")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	rows := resp.Data.([]any)
	if len(rows) == 0 {
		t.Fatal("no slope rows")
	}
	last := rows[len(rows)-1].(map[string]any)
	for _, key := range []string{"US_2s10s_bp", "US_5s30s_bp", "CA_2s10s_bp", "CA_5s30s_bp"} {
		if _, ok := last[key]; !ok {
			t.Errorf("missing %s in %v", key, last)
		}
	}
}

func TestHandleChanges(t *testing.T) {
	srv := testServer(t)
	seedDataset(t, srv)

	rec := doGet(t, srv, "/api/v1/changes/us")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := dataMap(t, decodeResponse(t, rec))
	for _, bucket := range []string{"1d", "1w", "1m", "3m"} {
		if _, ok := data[bucket]; !ok {
			t.Errorf("missing bucket %s", bucket)
		}
	}

	rec = doGet(t, srv, "/api/v1/changes/UK")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown country: status = %d, want 400", rec.Code)
	}
}

func TestHandleVol(t *testing.T) {
	srv := testServer(t)
	seedDataset(t, srv)

	rec := doGet(t, srv, "/api/v1/vol")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := dataMap(t, decodeResponse(t, rec))
	if data["window_days"] != float64(20) {
		t.Errorf("window_days = %v", data["window_days"])
	}
	vol := data["vol_bp"].(map[string]any)
	if v, ok := vol["US_10Y"].(float64); !ok || v < 0 {
		t.Errorf("US_10Y vol = %v", vol["US_10Y"])
	}

	rec = doGet(t, srv, "/api/v1/vol?window=40")
	data = dataMap(t, decodeResponse(t, rec))
	if data["window_days"] != float64(40) {
		t.Errorf("override window = %v", data["window_days"])
	}

	rec = doGet(t, srv, "/api/v1/vol?window=1")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("tiny window: status = %d, want 400", rec.Code)
	}
}

func TestHandleSpread(t *testing.T) {
	srv := testServer(t)
	f := seedDataset(t, srv)

	rec := doGet(t, srv, "/api/v1/spread")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeResponse(t, rec)
	rows := resp.Data.([]any)
	if len(rows) != f.Len() {
		t.Errorf("rows = %d, want %d", len(rows), f.Len())
	}
	last := rows[len(rows)-1].(map[string]any)
	if _, ok := last["spread_bp"]; !ok {
		t.Errorf("missing spread_bp in %v", last)
	}
	if _, ok := last["fx"]; !ok {
		t.Errorf("missing fx overlay in %v", last)
	}
}

func TestHandleProviders(t *testing.T) {
	srv := testServer(t)
	rec := doGet(t, srv, "/api/v1/providers")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp := decodeResponse(t, rec); !resp.Success {
		t.Errorf("response = %+v", resp)
	}
}

func TestHandleConfigKeys(t *testing.T) {
	srv := testServer(t)
	rec := doGet(t, srv, "/api/v1/config/keys")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "FRED") {
		t.Errorf("key report missing FRED entry: %s", body)
	}
}

func TestHandleChart(t *testing.T) {
	srv := testServer(t)
	f := seedDataset(t, srv)

	rec := doGet(t, srv, "/api/v1/charts/nope")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown chart: status = %d, want 400", rec.Code)
	}

	rec = doGet(t, srv, "/api/v1/charts/curves_snapshot")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing artifact: status = %d, want 404", rec.Code)
	}

	if _, err := srv.renderer.RenderAll(f); err != nil {
		t.Fatalf("RenderAll: %v", err)
	}
	rec = doGet(t, srv, "/api/v1/charts/curves_snapshot")
	if rec.Code != http.StatusOK {
		t.Fatalf("rendered chart: status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("content type = %q", ct)
	}
}

func TestHandleReleases(t *testing.T) {
	rss := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Feed</title>
<item><title>H.15 update</title><link>https://example.com/a</link>
<pubDate>Mon, 24 Aug 2026 09:00:00 GMT</pubDate></item>
</channel></rss>`)
	}))
	defer rss.Close()

	srv := testServer(t)
	srv.feed = releases.NewWithSources([]releases.Source{{Name: "Test", RSSURL: rss.URL}})

	rec := doGet(t, srv, "/api/v1/releases")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), "H.15 update") {
		t.Errorf("body = %s", rec.Body)
	}

	rec = doGet(t, srv, "/api/v1/releases?limit=zero")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit: status = %d, want 400", rec.Code)
	}
}

func TestHandleRefreshAccepted(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/refresh", bytes.NewReader(nil))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	data := dataMap(t, decodeResponse(t, rec))
	if data["started"] != true {
		t.Errorf("started = %v", data["started"])
	}
}

func TestServeUI(t *testing.T) {
	srv := testServer(t)

	rec := doGet(t, srv, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "curvewatch") {
		t.Error("viewer page not served at /")
	}

	srv.SetServeUI(false)
	rec = doGet(t, srv, "/")
	if rec.Code == http.StatusOK {
		t.Errorf("UI still served after disable: status = %d", rec.Code)
	}
}

// ---- WebSocket hub tests ----

func TestWSHub_NewWSHub(t *testing.T) {
	hub := NewWSHub(nil)
	if hub == nil {
		t.Fatal("NewWSHub returned nil")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount: got %d, want 0", hub.ClientCount())
	}
}

func TestWSHub_RegisterAndUnregister(t *testing.T) {
	hub := NewWSHub(nil)
	go hub.Run()
	time.Sleep(10 * time.Millisecond)

	client := &WSClient{
		hub:  hub,
		send: make(chan WSMessage, 256),
	}

	hub.Register(client)
	time.Sleep(10 * time.Millisecond)
	if hub.ClientCount() != 1 {
		t.Errorf("after register: ClientCount=%d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)
	time.Sleep(10 * time.Millisecond)
	if hub.ClientCount() != 0 {
		t.Errorf("after unregister: ClientCount=%d, want 0", hub.ClientCount())
	}
}

func TestWSHub_Broadcast(t *testing.T) {
	hub := NewWSHub(nil)
	go hub.Run()
	time.Sleep(10 * time.Millisecond)

	client1 := &WSClient{hub: hub, send: make(chan WSMessage, 256)}
	client2 := &WSClient{hub: hub, send: make(chan WSMessage, 256)}

	hub.Register(client1)
	hub.Register(client2)
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast(WSMessage{Type: "refresh_complete", Data: "hello"})
	time.Sleep(10 * time.Millisecond)

	for i, c := range []*WSClient{client1, client2} {
		select {
		case got := <-c.send:
			if got.Type != "refresh_complete" {
				t.Errorf("client%d got type=%q", i+1, got.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("client%d did not receive message", i+1)
		}
	}
}
