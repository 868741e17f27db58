package provider

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"powerarb/internal/config"
	"powerarb/internal/model"
)

// EIC area codes for the supported bidding zones.
var entsoeAreas = map[string]string{
	"FR": "10YFR-RTE------C",
	"DE": "10Y1001A1001A82H",
	"ES": "10YES-REE------0",
	"IT": "10YIT-GRTN-----B",
	"GB": "10YGB----------A",
}

// EntsoeClient implements the Client interface for the ENTSO-E transparency
// platform day-ahead price document (A44).
type EntsoeClient struct {
	logger  *slog.Logger
	baseURL string
	token   string
	http    *http.Client
}

// NewEntsoeClient creates a new EntsoeClient.
func NewEntsoeClient(logger *slog.Logger, cfg *config.ProviderConfig) *EntsoeClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://web-api.tp.entsoe.eu/api"
	}
	return &EntsoeClient{
		logger:  logger,
		baseURL: baseURL,
		token:   cfg.APIToken,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *EntsoeClient) Name() string {
	return "entsoe"
}

// marketDocument mirrors the parts of the A44 publication document we read.
type marketDocument struct {
	XMLName    xml.Name `xml:"Publication_MarketDocument"`
	TimeSeries []struct {
		Period []struct {
			TimeInterval struct {
				Start string `xml:"start"`
			} `xml:"timeInterval"`
			Resolution string `xml:"resolution"`
			Point      []struct {
				Position int     `xml:"position"`
				Price    float64 `xml:"price.amount"`
			} `xml:"Point"`
		} `xml:"Period"`
	} `xml:"TimeSeries"`
}

// FetchDayAhead retrieves the hourly day-ahead price curve for a country.
func (c *EntsoeClient) FetchDayAhead(ctx context.Context, country string, from, to time.Time) (model.PriceSeries, error) {
	area, ok := entsoeAreas[country]
	if !ok {
		return nil, fmt.Errorf("entsoe: unknown country %q", country)
	}

	query := url.Values{}
	query.Set("securityToken", c.token)
	query.Set("documentType", "A44")
	query.Set("in_Domain", area)
	query.Set("out_Domain", area)
	query.Set("periodStart", from.UTC().Format("200601021504"))
	query.Set("periodEnd", to.UTC().Format("200601021504"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("entsoe: build request: %w", err)
	}

	c.logger.Debug("EntsoeClient: fetching day-ahead prices", "country", country, "from", from, "to", to)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("entsoe: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("entsoe: unexpected status %d: %s", resp.StatusCode, body)
	}

	var doc marketDocument
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("entsoe: decode document: %w", err)
	}

	series, err := documentToSeries(&doc)
	if err != nil {
		return nil, fmt.Errorf("entsoe: %w", err)
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("entsoe: no price points for %s in [%s, %s]", country, from, to)
	}
	return series, nil
}

// documentToSeries flattens the document into an hourly series. Positions
// are 1-based offsets from the period start at the period's resolution.
func documentToSeries(doc *marketDocument) (model.PriceSeries, error) {
	var series model.PriceSeries
	for _, ts := range doc.TimeSeries {
		for _, period := range ts.Period {
			start, err := time.Parse("2006-01-02T15:04Z", period.TimeInterval.Start)
			if err != nil {
				return nil, fmt.Errorf("bad period start %q: %w", period.TimeInterval.Start, err)
			}
			step := time.Hour
			if period.Resolution == "PT15M" {
				step = 15 * time.Minute
			}
			for _, point := range period.Point {
				series = append(series, model.PricePoint{
					Timestamp: start.Add(time.Duration(point.Position-1) * step),
					Price:     point.Price,
				})
			}
		}
	}
	return series, nil
}
