package boc

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/curvewatch/curvewatch/internal/provider"
	"github.com/curvewatch/curvewatch/pkg/models"
)

func TestProviderInfo(t *testing.T) {
	p := New()
	info := p.Info()

	if info.Name != "boc" {
		t.Errorf("name = %q, want boc", info.Name)
	}
	if len(info.Credentials) != 0 {
		t.Errorf("valet needs no credentials, got %+v", info.Credentials)
	}
	if len(info.Models) != 5 {
		t.Errorf("expected 5 models, got %d", len(info.Models))
	}
}

func TestYieldSeriesFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Plain observations path; the /json suffix 404s for some
		// series, so the shape comes from content negotiation.
		if !strings.HasSuffix(r.URL.Path, "/observations/BD.CDN.10YR.DQ.YLD") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if accept := r.Header.Get("Accept"); accept != "application/json" {
			t.Errorf("Accept = %q, want application/json", accept)
		}
		if r.URL.Query().Get("start_date") != "2024-01-01" {
			t.Errorf("start_date = %q", r.URL.Query().Get("start_date"))
		}
		fmt.Fprint(w, `{"observations":[
			{"d":"2024-01-02","BD.CDN.10YR.DQ.YLD":{"v":"3.20"}},
			{"d":"2024-01-03","BD.CDN.10YR.DQ.YLD":{"v":""}},
			{"d":"2024-01-04","BD.CDN.10YR.DQ.YLD":{"v":"3.25"}}
		]}`)
	}))
	defer srv.Close()

	p := New()
	p.SetBaseURLs(srv.URL, srv.URL)

	f := p.Fetcher(provider.ModelYieldSeries)
	result, err := f.Fetch(context.Background(), provider.QueryParams{
		provider.ParamSeriesID:  "BD.CDN.10YR.DQ.YLD",
		provider.ParamStartDate: "2024-01-01",
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	obs := result.Data.([]models.Observation)
	if len(obs) != 2 {
		t.Fatalf("expected 2 observations (empty cell dropped), got %d", len(obs))
	}
	if obs[0].Value != 3.20 || obs[1].Value != 3.25 {
		t.Errorf("unexpected values: %+v", obs)
	}
}

func TestYieldSeriesRecentFallback(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		// Reject the start_date form, accept recent=5000.
		if r.URL.Query().Get("start_date") != "" {
			http.Error(w, `{"message":"bad request"}`, http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("recent") != "5000" {
			t.Errorf("expected recent=5000 retry, got %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `{"observations":[{"d":"2024-01-02","TB.CDN.90D.DQ.YLD":{"v":"5.01"}}]}`)
	}))
	defer srv.Close()

	p := New()
	p.SetBaseURLs(srv.URL, srv.URL)

	f := p.Fetcher(provider.ModelYieldSeries)
	result, err := f.Fetch(context.Background(), provider.QueryParams{
		provider.ParamSeriesID:  "TB.CDN.90D.DQ.YLD",
		provider.ParamStartDate: "2024-01-01",
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 upstream calls (reject then retry), got %d", calls)
	}

	obs := result.Data.([]models.Observation)
	if len(obs) != 1 || obs[0].Value != 5.01 {
		t.Errorf("unexpected observations: %+v", obs)
	}
}

func TestYieldCurveAllTenors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		series := parts[len(parts)-1]
		fmt.Fprintf(w, `{"observations":[{"d":"2024-01-02","%s":{"v":"3.00"}}]}`, series)
	}))
	defer srv.Close()

	p := New()
	p.SetBaseURLs(srv.URL, srv.URL)

	f := p.Fetcher(provider.ModelYieldCurve)
	result, err := f.Fetch(context.Background(), provider.QueryParams{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	points := result.Data.([]models.CurvePoint)
	if len(points) != len(benchmarkSeries) {
		t.Fatalf("expected %d points, got %d", len(benchmarkSeries), len(points))
	}
	for _, pt := range points {
		if pt.Country != "CA" {
			t.Errorf("country = %q, want CA", pt.Country)
		}
	}
}

func TestFXFetchDefaultPair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/observations/FXUSDCAD") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"observations":[{"d":"2024-01-02","FXUSDCAD":{"v":"1.3345"}}]}`)
	}))
	defer srv.Close()

	p := New()
	p.SetBaseURLs(srv.URL, srv.URL)

	f := p.Fetcher(provider.ModelFXRate)
	result, err := f.Fetch(context.Background(), provider.QueryParams{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	fx := result.Data.([]models.FXObservation)
	if len(fx) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(fx))
	}
	if fx[0].Pair != "USD/CAD" {
		t.Errorf("pair = %q, want USD/CAD", fx[0].Pair)
	}
	if fx[0].Rate != 1.3345 {
		t.Errorf("rate = %v", fx[0].Rate)
	}
}

func TestDiscoveryFiltersYieldSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/lists/series/json") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"series":{
			"BD.CDN.10YR.DQ.YLD":{"label":"GoC benchmark 10 year","description":"Benchmark bond yield"},
			"BD.CDN.LONG.DQ.YLD":{"label":"GoC benchmark long-term","description":"Benchmark bond yield"},
			"TB.CDN.90D.DQ.YLD":{"label":"Treasury bill 3 month","description":"T-bill yield"},
			"FXUSDCAD":{"label":"USD/CAD noon rate","description":"FX rate"},
			"V41690973":{"label":"CPI","description":"Consumer price index"}
		}}`)
	}))
	defer srv.Close()

	p := New()
	p.SetBaseURLs(srv.URL, srv.URL)

	f := p.Fetcher(provider.ModelSeriesDiscovery)
	result, err := f.Fetch(context.Background(), provider.QueryParams{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	infos := result.Data.([]models.SeriesInfo)
	if len(infos) != 3 {
		t.Fatalf("expected 3 yield series, got %d: %+v", len(infos), infos)
	}
	// Sorted by ID.
	if infos[0].ID != "BD.CDN.10YR.DQ.YLD" || infos[0].Tenor != "10Y" {
		t.Errorf("unexpected first entry: %+v", infos[0])
	}
	if infos[1].ID != "BD.CDN.LONG.DQ.YLD" || infos[1].Tenor != "30Y" {
		t.Errorf("long-term should map to 30Y: %+v", infos[1])
	}
	if infos[2].ID != "TB.CDN.90D.DQ.YLD" || infos[2].Tenor != "3M" {
		t.Errorf("90 day bill should map to 3M: %+v", infos[2])
	}
}

func TestDiscoveryQueryFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"series":{
			"BD.CDN.2YR.DQ.YLD":{"label":"GoC benchmark 2 year","description":""},
			"BD.CDN.5YR.DQ.YLD":{"label":"GoC benchmark 5 year","description":""}
		}}`)
	}))
	defer srv.Close()

	p := New()
	p.SetBaseURLs(srv.URL, srv.URL)

	f := p.Fetcher(provider.ModelSeriesDiscovery)
	result, err := f.Fetch(context.Background(), provider.QueryParams{provider.ParamQuery: "2 year"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	infos := result.Data.([]models.SeriesInfo)
	if len(infos) != 1 || infos[0].ID != "BD.CDN.2YR.DQ.YLD" {
		t.Errorf("unexpected filtered result: %+v", infos)
	}
}

func TestLatestYieldsScrape(t *testing.T) {
	page := `<html><body><table>
		<tr><th>Series</th><th>2024-01-03</th><th>2024-01-04</th></tr>
		<tr><td>2 year</td><td>3.85</td><td>3.90</td></tr>
		<tr><td>5 year</td><td>3.40</td><td>3.45</td></tr>
		<tr><td>10 year</td><td>3.20</td><td>3.25</td></tr>
		<tr><td>Long-term</td><td>3.10</td><td>3.15</td></tr>
	</table></body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	p := New()
	p.SetBaseURLs(srv.URL, srv.URL)

	f := p.Fetcher(provider.ModelLatestYields)
	result, err := f.Fetch(context.Background(), provider.QueryParams{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	points := result.Data.([]models.CurvePoint)
	if len(points) != 4 {
		t.Fatalf("expected 4 points, got %d: %+v", len(points), points)
	}
	byTenor := make(map[string]float64)
	for _, pt := range points {
		byTenor[pt.Tenor] = pt.Yield
	}
	if byTenor["2Y"] != 3.90 {
		t.Errorf("2Y = %v, want latest column 3.90", byTenor["2Y"])
	}
	if byTenor["30Y"] != 3.15 {
		t.Errorf("30Y (long-term) = %v, want 3.15", byTenor["30Y"])
	}
}

func TestValetObservationUnmarshal(t *testing.T) {
	var o valetObservation
	raw := []byte(`{"d":"2024-01-02","BD.CDN.2YR.DQ.YLD":{"v":"3.85"},"note":"x"}`)
	if err := o.UnmarshalJSON(raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if o.Date != "2024-01-02" {
		t.Errorf("date = %q", o.Date)
	}
	v, ok := o.Value("BD.CDN.2YR.DQ.YLD")
	if !ok || v != 3.85 {
		t.Errorf("value = %v, ok = %v", v, ok)
	}
	if _, ok := o.Value("missing"); ok {
		t.Error("expected miss for unknown series")
	}
}

func TestTenorFromName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"BD.CDN.2YR.DQ.YLD", "2Y"},
		{"BD.CDN.10YR.DQ.YLD", "10Y"},
		{"BD.CDN.LONG.DQ.YLD", "30Y"},
		{"TB.CDN.90D.DQ.YLD", "3M"},
		{"TB.CDN.180D.DQ.YLD", "180D"},
		{"FXUSDCAD", ""},
	}
	for _, tt := range tests {
		if got := tenorFromName(tt.name); got != tt.want {
			t.Errorf("tenorFromName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
