package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebovdev/radio-cli/internal/station"
)

const tuneInSearchBody = `{
  "head": {"title": "Search Results", "status": "200"},
  "body": [
    {"element": "outline", "type": "link", "text": "Colombia", "URL": "http://opml.radiotime.com/Browse.ashx?id=r101"},
    {"element": "outline", "type": "audio", "text": "Caracol Radio", "URL": "http://opml.radiotime.com/Tune.ashx?id=s1", "guide_id": "s1", "image": "http://cdn.example/s1.png", "subtext": "Noticias"},
    {"element": "outline", "type": "audio", "text": "Broken", "guide_id": "s2"},
    {"element": "outline", "type": "audio", "text": "Tropicana", "URL": "http://opml.radiotime.com/Tune.ashx?id=s3", "guide_id": "s3"}
  ]
}`

func TestTuneInSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Search.ashx" {
			t.Errorf("Expected path /Search.ashx, got %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("query") != "Colombia" || q.Get("render") != "json" || q.Get("formats") != "mp3,aac" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(tuneInSearchBody))
	}))
	defer server.Close()

	client := NewTuneInClient(server.URL, time.Second)
	stations, err := client.Search(context.Background(), "Colombia")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(stations) != 2 {
		t.Fatalf("Search() returned %d stations, want 2", len(stations))
	}

	first := stations[0]
	if first.ID != "s1" || first.Name != "Caracol Radio" || first.Country != "Colombia" {
		t.Errorf("first station = %+v", first)
	}
	if first.Logo != "http://cdn.example/s1.png" || first.Tags != "Noticias" {
		t.Errorf("Logo/Tags = %q/%q", first.Logo, first.Tags)
	}
	if first.Source != station.SourceTuneIn {
		t.Errorf("Source = %q, want %q", first.Source, station.SourceTuneIn)
	}
	if stations[1].ID != "s3" {
		t.Errorf("second station ID = %q, want s3", stations[1].ID)
	}
}

func TestTuneInSearchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) }},
		{"bad json", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("<opml/>")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewTuneInClient(server.URL, time.Second)
			if _, err := client.Search(context.Background(), "Peru"); err == nil {
				t.Error("Search() expected error")
			}
		})
	}
}

func TestNormalizeTuneInEmptyBody(t *testing.T) {
	if result := normalizeTuneIn(nil, "Spain"); len(result) != 0 {
		t.Errorf("normalizeTuneIn(nil) = %v, want empty", result)
	}
}
