// Package station defines the canonical radio station model shared by every
// upstream directory.
package station

import "strings"

// Source identifies the upstream directory a station record came from.
// It is kept for diagnostics only.
type Source string

const (
	SourceRadioBrowser Source = "radio-browser"
	SourceTuneIn       Source = "tunein"
)

// Station is a normalized radio station. Values are built with New and treated
// as read-only afterwards.
type Station struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Country    string   `json:"country"`
	StreamURLs []string `json:"streamUrls"` // Highest priority first
	Logo       string   `json:"logo,omitempty"`
	Tags       string   `json:"tags"`
	Source     Source   `json:"source"`
}

// New builds a Station, dropping blank stream URLs and copying the rest so the
// caller's slice can't alias the station.
func New(id, name, country string, streamURLs []string, logo, tags string, source Source) Station {
	urls := make([]string, 0, len(streamURLs))
	for _, u := range streamURLs {
		u = strings.TrimSpace(u)
		if u != "" {
			urls = append(urls, u)
		}
	}

	return Station{
		ID:         id,
		Name:       strings.TrimSpace(name),
		Country:    strings.TrimSpace(country),
		StreamURLs: urls,
		Logo:       strings.TrimSpace(logo),
		Tags:       tags,
		Source:     source,
	}
}

// Playable reports whether the station has at least one candidate stream URL.
func (s Station) Playable() bool {
	return len(s.StreamURLs) > 0
}

// Key returns an identifier that is unique across sources.
func (s Station) Key() string {
	return string(s.Source) + "/" + s.ID
}

// PrimaryURL returns the highest priority stream URL, or "" when there is none.
func (s Station) PrimaryURL() string {
	if len(s.StreamURLs) == 0 {
		return ""
	}
	return s.StreamURLs[0]
}

// HasLogo reports whether a logo URL is available.
func (s Station) HasLogo() bool {
	return s.Logo != ""
}

// TagList splits the free-text tags into trimmed, non-empty entries.
// Radio Browser separates tags with commas, TuneIn subtext is a single phrase.
func (s Station) TagList() []string {
	if strings.TrimSpace(s.Tags) == "" {
		return nil
	}
	parts := strings.Split(s.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// FilterPlayable returns the stations that have at least one stream URL,
// preserving order.
func FilterPlayable(stations []Station) []Station {
	result := make([]Station, 0, len(stations))
	for _, s := range stations {
		if s.Playable() {
			result = append(result, s)
		}
	}
	return result
}
