package fred

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/curvewatch/curvewatch/internal/infra"
	"github.com/curvewatch/curvewatch/internal/provider"
)

// fetchSeriesCSV downloads a series from the public fredgraph.csv
// endpoint. The response is a two column CSV, date then value, with "."
// for missing observations. No API key required.
func (p *Provider) fetchSeriesCSV(ctx context.Context, seriesID string, params provider.QueryParams) ([]fredObservation, error) {
	dlURL := p.graphURL + "?id=" + url.QueryEscape(seriesID)
	if sd := params[provider.ParamStartDate]; sd != "" {
		dlURL += "&cosd=" + sd
	}
	if ed := params[provider.ParamEndDate]; ed != "" {
		dlURL += "&coed=" + ed
	}

	body, _, err := infra.DoGet(ctx, dlURL, map[string]string{"Accept": "text/csv"})
	if err != nil {
		return nil, fmt.Errorf("fredgraph download %s: %w", seriesID, err)
	}
	defer body.Close()

	return parseFredGraphCSV(body)
}

// parseFredGraphCSV reads the fredgraph two column layout. The date
// header is "DATE" on older exports and "observation_date" on newer
// ones, so only position matters here.
func parseFredGraphCSV(r io.Reader) ([]fredObservation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read fredgraph header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("unexpected fredgraph header: %v", header)
	}

	var obs []fredObservation
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read fredgraph row: %w", err)
		}
		if len(rec) < 2 {
			continue
		}
		value := strings.TrimSpace(rec[1])
		if value == "" || value == "." {
			continue
		}
		obs = append(obs, fredObservation{
			Date:  strings.TrimSpace(rec[0]),
			Value: value,
		})
	}
	return obs, nil
}
