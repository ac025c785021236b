package station

import (
	"reflect"
	"testing"
)

func TestNewFiltersBlankURLs(t *testing.T) {
	tests := []struct {
		name     string
		urls     []string
		expected []string
	}{
		{
			name:     "Keeps declared order",
			urls:     []string{"http://a.example/stream", "http://b.example/stream"},
			expected: []string{"http://a.example/stream", "http://b.example/stream"},
		},
		{
			name:     "Drops empty and whitespace entries",
			urls:     []string{"", "  ", "http://a.example/stream", "\t"},
			expected: []string{"http://a.example/stream"},
		},
		{
			name:     "Trims surrounding whitespace",
			urls:     []string{" http://a.example/stream "},
			expected: []string{"http://a.example/stream"},
		},
		{
			name:     "Nil input gives empty list",
			urls:     nil,
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("id", "Name", "Colombia", tt.urls, "", "", SourceRadioBrowser)
			if !reflect.DeepEqual(s.StreamURLs, tt.expected) {
				t.Errorf("StreamURLs = %v, want %v", s.StreamURLs, tt.expected)
			}
		})
	}
}

func TestNewCopiesURLs(t *testing.T) {
	urls := []string{"http://a.example/stream"}
	s := New("id", "Name", "", urls, "", "", SourceTuneIn)

	urls[0] = "http://mutated.example/"

	if s.StreamURLs[0] != "http://a.example/stream" {
		t.Errorf("Station aliases caller slice: got %q", s.StreamURLs[0])
	}
}

func TestPlayable(t *testing.T) {
	if New("a", "A", "", []string{""}, "", "", SourceTuneIn).Playable() {
		t.Error("Station with only blank URLs should not be playable")
	}
	if !New("a", "A", "", []string{"http://x"}, "", "", SourceTuneIn).Playable() {
		t.Error("Station with a URL should be playable")
	}
}

func TestKey(t *testing.T) {
	a := Station{ID: "42", Source: SourceRadioBrowser}
	b := Station{ID: "42", Source: SourceTuneIn}

	if a.Key() == b.Key() {
		t.Errorf("Keys from different sources should differ, both %q", a.Key())
	}
	if a.Key() != "radio-browser/42" {
		t.Errorf("Key() = %q, want %q", a.Key(), "radio-browser/42")
	}
}

func TestPrimaryURL(t *testing.T) {
	s := Station{StreamURLs: []string{"http://first", "http://second"}}
	if s.PrimaryURL() != "http://first" {
		t.Errorf("PrimaryURL() = %q, want %q", s.PrimaryURL(), "http://first")
	}

	empty := Station{}
	if empty.PrimaryURL() != "" {
		t.Errorf("PrimaryURL() on empty station = %q, want empty", empty.PrimaryURL())
	}
}

func TestTagList(t *testing.T) {
	tests := []struct {
		tags     string
		expected []string
	}{
		{"", nil},
		{"   ", nil},
		{"pop,rock", []string{"pop", "rock"}},
		{"pop, ,rock ,", []string{"pop", "rock"}},
		{"Bogotá news talk", []string{"Bogotá news talk"}},
	}

	for _, tt := range tests {
		t.Run(tt.tags, func(t *testing.T) {
			result := Station{Tags: tt.tags}.TagList()
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("TagList() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestFilterPlayable(t *testing.T) {
	stations := []Station{
		{ID: "a", StreamURLs: []string{"http://a"}},
		{ID: "b"},
		{ID: "c", StreamURLs: []string{"http://c"}},
	}

	result := FilterPlayable(stations)

	if len(result) != 2 {
		t.Fatalf("FilterPlayable() returned %d stations, want 2", len(result))
	}
	if result[0].ID != "a" || result[1].ID != "c" {
		t.Errorf("FilterPlayable() order = [%s %s], want [a c]", result[0].ID, result[1].ID)
	}
}
