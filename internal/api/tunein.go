package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glebovdev/radio-cli/internal/station"
	"github.com/go-resty/resty/v2"
)

// TuneInClient queries TuneIn's legacy OPML search API.
type TuneInClient struct {
	client *resty.Client
}

func NewTuneInClient(baseURL string, timeout time.Duration) *TuneInClient {
	return &TuneInClient{
		client: newRestyClient(baseURL, timeout),
	}
}

type tuneInResponse struct {
	Body []tuneInOutline `json:"body"`
}

type tuneInOutline struct {
	Type    string `json:"type"`
	GuideID string `json:"guide_id"`
	Text    string `json:"text"`
	URL     string `json:"URL"`
	Image   string `json:"image"`
	Subtext string `json:"subtext"`
}

// Search runs a free-text search. Only audio entries are returned, with
// query recorded as their country.
func (c *TuneInClient) Search(ctx context.Context, query string) ([]station.Station, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":   query,
			"render":  "json",
			"formats": "mp3,aac",
		}).
		Get("/Search.ashx")
	if err != nil {
		return nil, fmt.Errorf("failed to search tunein for %q: %w", query, err)
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("api returned status %d: %s", resp.StatusCode(), resp.Status())
	}

	var response tuneInResponse
	if err := json.Unmarshal(resp.Body(), &response); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	return normalizeTuneIn(response.Body, query), nil
}

func normalizeTuneIn(outlines []tuneInOutline, query string) []station.Station {
	stations := make([]station.Station, 0, len(outlines))
	for _, o := range outlines {
		if o.Type != "audio" {
			continue
		}
		st := station.New(o.GuideID, o.Text, query, []string{o.URL}, o.Image, o.Subtext, station.SourceTuneIn)
		if st.Playable() {
			stations = append(stations, st)
		}
	}
	return stations
}
