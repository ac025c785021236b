// Package api provides HTTP clients for the upstream station directories.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glebovdev/radio-cli/internal/config"
	"github.com/glebovdev/radio-cli/internal/station"
	"github.com/go-resty/resty/v2"
)

// RadioBrowserClient queries the Radio Browser community directory.
type RadioBrowserClient struct {
	client *resty.Client
}

// NewRadioBrowserClient creates a client for the given base URL, which
// includes the /json prefix.
func NewRadioBrowserClient(baseURL string, timeout time.Duration) *RadioBrowserClient {
	return &RadioBrowserClient{
		client: newRestyClient(baseURL, timeout),
	}
}

type radioBrowserStation struct {
	StationUUID string `json:"stationuuid"`
	Name        string `json:"name"`
	Country     string `json:"country"`
	URLResolved string `json:"url_resolved"`
	URL         string `json:"url"`
	Favicon     string `json:"favicon"`
	Tags        string `json:"tags"`
}

// StationsByCountry fetches every working station listed for a country.
func (c *RadioBrowserClient) StationsByCountry(ctx context.Context, country string) ([]station.Station, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("country", country).
		SetQueryParam("hidebroken", "true").
		Get("/stations/bycountry/{country}")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stations for %s: %w", country, err)
	}

	return decodeRadioBrowser(resp)
}

// StationsByName fetches working stations whose name contains name.
func (c *RadioBrowserClient) StationsByName(ctx context.Context, name string) ([]station.Station, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"name":       name,
			"hidebroken": "true",
		}).
		Get("/stations/search")
	if err != nil {
		return nil, fmt.Errorf("failed to search stations named %q: %w", name, err)
	}

	return decodeRadioBrowser(resp)
}

func decodeRadioBrowser(resp *resty.Response) ([]station.Station, error) {
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("api returned status %d: %s", resp.StatusCode(), resp.Status())
	}

	var records []radioBrowserStation
	if err := json.Unmarshal(resp.Body(), &records); err != nil {
		return nil, fmt.Errorf("failed to parse stations response: %w", err)
	}

	return normalizeRadioBrowser(records), nil
}

// normalizeRadioBrowser maps raw records onto Station, preferring the
// resolved URL over the submitted one. Records without any URL are dropped.
func normalizeRadioBrowser(records []radioBrowserStation) []station.Station {
	stations := make([]station.Station, 0, len(records))
	for _, r := range records {
		urls := []string{r.URLResolved}
		if r.URL != r.URLResolved {
			urls = append(urls, r.URL)
		}

		st := station.New(r.StationUUID, r.Name, r.Country, urls, r.Favicon, r.Tags, station.SourceRadioBrowser)
		if st.Playable() {
			stations = append(stations, st)
		}
	}
	return stations
}

func newRestyClient(baseURL string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = config.DefaultRequestTimeout
	}
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", fmt.Sprintf("radio-cli/%s", config.AppVersion)).
		SetHeader("Accept", "application/json")
}
